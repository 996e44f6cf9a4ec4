package gcp

import (
	"strings"

	"google.golang.org/api/option"
)

// clientOptions builds storage client options. creds is inline service
// account JSON or a key file path; empty falls back to application default
// credentials. A non-empty endpoint targets an emulator and skips auth.
func clientOptions(creds, endpoint string) []option.ClientOption {
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		return []option.ClientOption{option.WithEndpoint(endpoint), option.WithoutAuthentication()}
	}
	switch creds = strings.TrimSpace(creds); {
	case creds == "":
		return nil
	case strings.HasPrefix(creds, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(creds)}
	}
}
