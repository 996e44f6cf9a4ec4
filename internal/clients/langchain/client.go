// Package langchain adapts a langchaingo model to the completion client used
// by the generation pipeline.
package langchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/yungbote/govgen-backend/internal/clients/openai"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

type Client struct {
	log         *logger.Logger
	model       llms.Model
	temperature float64
}

var _ openai.Client = (*Client)(nil)

// New builds an adapter over langchaingo's OpenAI-compatible model.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	opts := []lcopenai.Option{lcopenai.WithToken(strings.TrimSpace(cfg.APIKey))}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/v1"))
	}
	if cfg.Model != "" {
		opts = append(opts, lcopenai.WithModel(cfg.Model))
	}
	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating langchain model: %w", err)
	}
	return NewWithModel(llm, cfg.Temperature, log)
}

func NewWithModel(model llms.Model, temperature float64, log *logger.Logger) (*Client, error) {
	if model == nil {
		return nil, fmt.Errorf("model required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Client{log: log.With("service", "LangchainClient"), model: model, temperature: temperature}, nil
}

func (c *Client) Complete(ctx context.Context, req openai.Request) (*openai.Completion, error) {
	if len(req.Messages) == 0 {
		return nil, openai.ErrNoMessages()
	}
	msgs := make([]llms.MessageContent, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		role := schema.ChatMessageTypeHuman
		if m.Role == openai.RoleSystem {
			role = schema.ChatMessageTypeSystem
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}

	temp := c.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	callOpts := []llms.CallOption{llms.WithTemperature(temp)}
	if req.Schema != nil {
		// langchaingo has no response_format option, so the schema is stated
		// to the model and the reply is checked against it below.
		schemaJSON, err := json.Marshal(req.Schema.Schema)
		if err != nil {
			return nil, &openai.Error{Kind: openai.KindModelUnavailable, Err: fmt.Errorf("encode schema: %w", err)}
		}
		msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeSystem,
			"Respond with only a single JSON object named "+req.Schema.Name+" matching this JSON schema, with no prose or code fences:\n"+string(schemaJSON)))
	}

	resp, err := c.model.GenerateContent(ctx, msgs, callOpts...)
	if err != nil {
		c.log.Warn("Langchain completion failed", "error", err)
		return nil, &openai.Error{Kind: openai.KindModelUnavailable, Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, &openai.Error{Kind: openai.KindModelUnavailable, Err: errors.New("response contained no choices")}
	}

	choice := resp.Choices[0]
	out := &openai.Completion{Content: choice.Content}
	if info := choice.GenerationInfo; info != nil {
		out.PromptTokens = intFrom(info["PromptTokens"])
		out.CompletionTokens = intFrom(info["CompletionTokens"])
	}
	if req.Schema != nil {
		structured, err := openai.ConformTopLevel(choice.Content, req.Schema.Schema)
		if err != nil {
			return nil, &openai.Error{Kind: openai.KindModelResponseInvalid, Raw: choice.Content, Err: err}
		}
		out.Structured = structured
	}
	c.log.Debug("Langchain completion", "completion", choice.Content, "completion_tokens", out.CompletionTokens)
	return out, nil
}

func intFrom(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
