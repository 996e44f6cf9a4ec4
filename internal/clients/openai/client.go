package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/govgen-backend/internal/pkg/httpx"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Message struct {
	Role    Role
	Content string
}

// JSONSchema requests a schema-constrained response.
type JSONSchema struct {
	Name   string
	Schema map[string]any
	Strict bool
}

type Request struct {
	Messages []Message
	// Schema is optional; when set the response must conform to it.
	Schema *JSONSchema
	// Temperature overrides the configured default when non-nil.
	Temperature *float64
}

type Completion struct {
	// Content is the first choice's text, untouched.
	Content string
	// Structured is set only when a schema was requested and the content conformed.
	Structured       json.RawMessage
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Client performs one chat completion per call. It never retries unless
// MaxRetries is configured above zero.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

type Config struct {
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxRetries  int           `koanf:"max_retries"`
}

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
	completionPath = "/v1/chat/completions"
	maxErrorBody   = 1 << 16
)

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	timeout     time.Duration
	maxRetries  int
	httpClient  *http.Client
}

func NewClient(cfg Config, log *logger.Logger) (Client, error) {
	return NewWithHTTPClient(cfg, log, &http.Client{})
}

func NewWithHTTPClient(cfg Config, log *logger.Logger, httpClient *http.Client) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		log:         log.With("service", "OpenAIClient"),
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		maxRetries:  maxRetries,
		httpClient:  httpClient,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *client) Complete(ctx context.Context, req Request) (*Completion, error) {
	ctx, span := otel.Tracer("govgen/openai").Start(ctx, "openai.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.Bool("llm.structured", req.Schema != nil),
		attribute.Int("llm.messages", len(req.Messages)),
	)

	out, err := c.complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", out.PromptTokens),
		attribute.Int("llm.completion_tokens", out.CompletionTokens),
	)
	return out, nil
}

func (c *client) complete(ctx context.Context, req Request) (*Completion, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages()
	}
	body := chatCompletionRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		Temperature: c.temperature,
	}
	if req.Temperature != nil {
		body.Temperature = *req.Temperature
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.Schema != nil {
		body.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   req.Schema.Name,
				"schema": req.Schema.Schema,
				"strict": req.Schema.Strict,
			},
		}
	}

	start := time.Now()
	var resp chatCompletionResponse
	if err := c.do(ctx, completionPath, body, &resp); err != nil {
		c.log.Warn("OpenAI completion failed", "model", c.model, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return nil, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return nil, unavailable(0, "", errors.New("response contained no choices"))
	}

	content := *resp.Choices[0].Message.Content
	out := &Completion{
		Content:          content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if req.Schema != nil {
		structured, err := ConformTopLevel(content, req.Schema.Schema)
		if err != nil {
			return nil, invalid(content, err)
		}
		out.Structured = structured
	}
	c.log.Debug("OpenAI completion",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"completion", content,
		"prompt_tokens", out.PromptTokens,
		"completion_tokens", out.CompletionTokens,
	)
	return out, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) doOnce(ctx context.Context, path string, body any, out any) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := httpx.ReadLimited(resp.Body, maxErrorBody)
		return resp, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp, fmt.Errorf("decode completion envelope: %w", err)
	}
	return resp, nil
}

// do sends the request, retrying transient failures up to maxRetries times.
// Every failure is returned as *Error of kind model_unavailable.
func (c *client) do(ctx context.Context, path string, body any, out any) error {
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		resp, err := c.doOnce(ctx, path, body, out)
		if err == nil {
			return nil
		}
		if attempt >= c.maxRetries || !httpx.IsRetryableError(err) || ctx.Err() != nil {
			return toError(err)
		}
		wait := httpx.Jitter(httpx.RetryAfter(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", wait.String(),
			"error", err.Error(),
		)
		if sErr := httpx.Sleep(ctx, wait); sErr != nil {
			return toError(sErr)
		}
		backoff *= 2
	}
}

func toError(err error) *Error {
	var he *httpError
	if errors.As(err, &he) {
		return unavailable(he.StatusCode, he.Body, err)
	}
	return unavailable(0, "", err)
}
