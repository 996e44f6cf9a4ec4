package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.temporal.io/api/serviceerror"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{Address: "  localhost:7233 ", NamespaceRetentionDays: 9000}.WithDefaults()
	if cfg.Address != "localhost:7233" || cfg.Namespace != "govgen" || cfg.TaskQueue != "govgen" {
		t.Fatalf("defaults: got=%+v", cfg)
	}
	if cfg.NamespaceRetentionDays != 365 || cfg.WorkerConcurrency != 4 || cfg.DialTimeout != 5*time.Second {
		t.Fatalf("clamps: got=%+v", cfg)
	}
	if (Config{}).Enabled() {
		t.Fatalf("empty address: want disabled")
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	c, err := NewClient(context.Background(), Config{}, logger.Nop())
	if err != nil || c != nil {
		t.Fatalf("disabled: want nil,nil got=%v,%v", c, err)
	}
}

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{10, 2 * time.Second},
	}
	for _, tc := range cases {
		if got := clampBackoff(250*time.Millisecond, 2*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: want=%s got=%s", tc.attempt, tc.want, got)
		}
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("unavailable: want retryable")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("permission denied: want not retryable")
	}
	if !isRetryableRPC(context.DeadlineExceeded) || isRetryableRPC(errors.New("x")) {
		t.Fatalf("plain errors: wrong classification")
	}
}

func TestIsNamespaceNotFound(t *testing.T) {
	err := serviceerror.NewNamespaceNotFound("govgen")
	if !IsNamespaceNotFound(err) || IsNamespaceNotFound(errors.New("other")) {
		t.Fatalf("IsNamespaceNotFound: wrong classification")
	}
}

func TestLoadTLSConfigRequiresPair(t *testing.T) {
	if _, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"}); err == nil {
		t.Fatalf("loadTLSConfig without cert/key: want error")
	}
}
