package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/govgen-backend/internal/app"
	"github.com/yungbote/govgen-backend/internal/services"
)

var (
	runTitle       string
	runDescription string
	runQuery       string
	runOwner       string
	runMigrate     bool
)

func init() {
	runCmd.Flags().StringVar(&runTitle, "title", "", "generation title (required)")
	runCmd.Flags().StringVar(&runDescription, "description", "", "optional description")
	runCmd.Flags().StringVar(&runQuery, "query", "", "requirement text used for context and prompts (required)")
	runCmd.Flags().StringVar(&runOwner, "owner", "", "owner user id whose governance documents are used (default: new id)")
	runCmd.Flags().BoolVar(&runMigrate, "migrate", false, "migrate the schema first")
	_ = runCmd.MarkFlagRequired("title")
	_ = runCmd.MarkFlagRequired("query")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Create a generation and run reason, generate and validate",
	Long: `Create a generation and drive it through every stage in this process,
printing the final generation and verdict as JSON.

Examples:
  govgen run --title "Claims PII Masking" --query "Mask SSN before logging" \
    --owner 5f0c6a1e-8d2b-4c55-9a51-3b8f1c2d7e90`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var owner uuid.UUID
		if s := strings.TrimSpace(runOwner); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				return fmt.Errorf("invalid --owner: %w", err)
			}
			owner = id
		}

		ctx, cancel := signalContext()
		defer cancel()
		a, err := loadApp(ctx, app.Options{SkipTemporal: true})
		if err != nil {
			return err
		}
		defer a.Close(context.Background())
		if runMigrate {
			if err := a.Migrate(); err != nil {
				return err
			}
		}

		in := services.CreateGenerationInput{Title: runTitle, ContextQuery: runQuery}
		if runDescription != "" {
			in.Description = &runDescription
		}
		out, err := a.RunOnce(ctx, owner, in)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}
