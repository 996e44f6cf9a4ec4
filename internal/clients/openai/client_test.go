package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func completionBody(content string) map[string]any {
	return map[string]any{
		"model": "test-model",
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 34},
	}
}

var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"testsPassed":  map[string]any{"type": "boolean"},
		"testCoverage": map[string]any{"type": "integer"},
		"details":      map[string]any{"type": "string"},
	},
	"required":             []string{"testsPassed", "testCoverage", "details"},
	"additionalProperties": false,
}

func newTestClient(t *testing.T, cfg Config, rt roundTripperFunc) Client {
	t.Helper()
	if cfg.APIKey == "" {
		cfg.APIKey = "sk-test"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://upstream"
	}
	c, err := NewWithHTTPClient(cfg, logger.Nop(), &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return c
}

func TestCompletePlainText(t *testing.T) {
	c := newTestClient(t, Config{Model: "gpt-test", Temperature: 0.2}, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("authorization: got=%q", got)
		}
		var in chatCompletionRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in.Model != "gpt-test" || len(in.Messages) != 2 || in.Messages[0].Role != "system" {
			t.Fatalf("request: got=%+v", in)
		}
		if in.ResponseFormat != nil {
			t.Fatalf("response_format: want none got=%v", in.ResponseFormat)
		}
		return jsonResponse(http.StatusOK, completionBody("Step 1: read ADR-001")), nil
	})

	out, err := c.Complete(context.Background(), Request{Messages: []Message{
		{Role: RoleSystem, Content: "You are an expert software architect."},
		{Role: RoleUser, Content: "Build a claims service"},
	}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Content != "Step 1: read ADR-001" || out.Structured != nil {
		t.Fatalf("completion: got=%+v", out)
	}
	if out.PromptTokens != 12 || out.CompletionTokens != 34 {
		t.Fatalf("usage: got=%d/%d", out.PromptTokens, out.CompletionTokens)
	}
}

func TestCompleteStructured(t *testing.T) {
	c := newTestClient(t, Config{}, func(req *http.Request) (*http.Response, error) {
		var in chatCompletionRequest
		_ = json.NewDecoder(req.Body).Decode(&in)
		js, _ := in.ResponseFormat["json_schema"].(map[string]any)
		if in.ResponseFormat["type"] != "json_schema" || js["name"] != "validation_result" || js["strict"] != true {
			t.Fatalf("response_format: got=%v", in.ResponseFormat)
		}
		return jsonResponse(http.StatusOK, completionBody("```json\n{\"testsPassed\":true,\"testCoverage\":92,\"details\":\"ok\"}\n```")), nil
	})
	out, err := c.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "validate"}},
		Schema:   &JSONSchema{Name: "validation_result", Schema: verdictSchema, Strict: true},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if string(out.Structured) != `{"testsPassed":true,"testCoverage":92,"details":"ok"}` {
		t.Fatalf("structured: got=%s", out.Structured)
	}
}

func TestCompleteStructuredRejectsNonConformingContent(t *testing.T) {
	cases := map[string]string{
		"not json":      "I think the code is fine",
		"missing field": `{"testsPassed":true,"testCoverage":92}`,
		"extra field":   `{"testsPassed":true,"testCoverage":92,"details":"ok","score":1}`,
		"wrong type":    `{"testsPassed":"yes","testCoverage":92,"details":"ok"}`,
		"fractional":    `{"testsPassed":true,"testCoverage":92.5,"details":"ok"}`,
	}
	for name, content := range cases {
		content := content
		c := newTestClient(t, Config{}, func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, completionBody(content)), nil
		})
		_, err := c.Complete(context.Background(), Request{
			Messages: []Message{{Role: RoleUser, Content: "validate"}},
			Schema:   &JSONSchema{Name: "validation_result", Schema: verdictSchema, Strict: true},
		})
		if !errors.Is(err, errs.ErrModelResponseInvalid) {
			t.Fatalf("%s: want ErrModelResponseInvalid got=%v", name, err)
		}
		var oe *Error
		if !errors.As(err, &oe) || oe.Raw != content {
			t.Fatalf("%s: want raw content carried got=%v", name, err)
		}
	}
}

func TestCompleteUpstreamFailuresAreUnavailable(t *testing.T) {
	cases := map[string]roundTripperFunc{
		"http 500": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusInternalServerError, map[string]any{"error": "boom"}), nil
		},
		"transport": func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
		"no choices": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, map[string]any{"choices": []any{}}), nil
		},
	}
	for name, rt := range cases {
		c := newTestClient(t, Config{}, rt)
		_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
		if !errors.Is(err, errs.ErrModelUnavailable) {
			t.Fatalf("%s: want ErrModelUnavailable got=%v", name, err)
		}
		if errors.Is(err, errs.ErrModelResponseInvalid) {
			t.Fatalf("%s: must not match ErrModelResponseInvalid", name)
		}
	}
}

func TestCompleteDoesNotRetryByDefault(t *testing.T) {
	var calls int32
	c := newTestClient(t, Config{}, func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusServiceUnavailable, map[string]any{}), nil
	})
	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if err == nil {
		t.Fatalf("Complete: want error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls: want=1 got=%d", got)
	}
}

func TestCompleteHonorsCanceledContext(t *testing.T) {
	c := newTestClient(t, Config{MaxRetries: 3}, func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if !errors.Is(err, errs.ErrModelUnavailable) || !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled: got=%v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}, logger.Nop()); err == nil {
		t.Fatalf("NewClient without key: want error")
	}
}

func TestCompleteWithoutMessagesIsTyped(t *testing.T) {
	var calls int32
	c := newTestClient(t, Config{}, func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusOK, completionBody("x")), nil
	})
	_, err := c.Complete(context.Background(), Request{})
	var oe *Error
	if !errors.As(err, &oe) || oe.Kind != KindModelUnavailable {
		t.Fatalf("no messages: want *Error of kind unavailable got=%v", err)
	}
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("no messages: want ErrInvalidInput in chain got=%v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("calls: want=0 got=%d", got)
	}
}
