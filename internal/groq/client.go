// Package groq is a hand-rolled client for the Groq OpenAI-compatible
// chat-completions API. One call turns a built prompt into a per-record
// outcome; failures are classified so the batch runner can tell a
// retryable hiccup from a batch-fatal credential problem.
package groq

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

	"github.com/Mo-420/Yacht-SEO/internal/domain"
	"github.com/Mo-420/Yacht-SEO/internal/infra"
	"github.com/Mo-420/Yacht-SEO/internal/prompt"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "openai/gpt-oss-120b"
	defaultTimeout = 120 * time.Second

	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 10 * time.Second
)

// Options controls how the client is configured.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	HTTPClient  *http.Client
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      *infra.Logger
}

// Client invokes the completion service with bounded timeout and
// retry-with-backoff. Safe for concurrent use.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *infra.Logger
	usage       *Usage
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient constructs a Groq client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("groq api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	maxDelay := opts.MaxDelay
	if maxDelay < baseDelay {
		maxDelay = defaultMaxDelay
	}
	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		model:       model,
		baseURL:     baseURL,
		client:      client,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		logger:      opts.Logger,
		usage:       &Usage{},
	}, nil
}

// Model returns the resolved model id.
func (c *Client) Model() string { return c.model }

// Usage returns the shared token counter updated by every call.
func (c *Client) Usage() *Usage { return c.usage }

// Complete turns one built prompt into an outcome. Retryable
// classifications (rate limit, 5xx, transport) are retried with
// exponential backoff up to the attempt budget; exhaustion yields a
// retry_exhausted failure for this record only.
func (c *Client) Complete(ctx context.Context, p prompt.BuiltPrompt) domain.Outcome {
	var lastKind domain.FailureKind
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		text, usage, kind, err := c.invoke(ctx, p)
		if kind == "" {
			c.usage.Add(usage.Prompt, usage.Completion)
			return domain.Success(text, usage)
		}
		if !retryable(kind) {
			return domain.Failed(kind, err.Error())
		}
		lastKind, lastErr = kind, err
		if c.logger != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Str("kind", string(kind)).Msg("groq: completion attempt failed")
		}
		if attempt == c.maxAttempts {
			break
		}
		if err := c.sleep(ctx, attempt); err != nil {
			return domain.Failed(domain.FailureAborted, err.Error())
		}
	}
	return domain.Failed(domain.FailureRetryExhausted,
		fmt.Sprintf("%s after %d attempts: %v", lastKind, c.maxAttempts, lastErr))
}

// sleep waits out the backoff delay for the given attempt, honouring
// context cancellation.
func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.baseDelay << (attempt - 1)
	if delay > c.maxDelay {
		delay = c.maxDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryable(kind domain.FailureKind) bool {
	return kind == domain.FailureRateLimited || kind == domain.FailureTransient
}

// invoke performs exactly one request/response cycle.
func (c *Client) invoke(ctx context.Context, p prompt.BuiltPrompt) (string, domain.TokenUsage, domain.FailureKind, error) {
	payload := chatRequest{
		Model:       c.model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", domain.TokenUsage{}, domain.FailureInvalidRequest, fmt.Errorf("encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", domain.TokenUsage{}, domain.FailureInvalidRequest, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", domain.TokenUsage{}, domain.FailureAborted, ctx.Err()
		}
		return "", domain.TokenUsage{}, domain.FailureTransient, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return "", domain.TokenUsage{}, classifyStatus(resp.StatusCode), apiError(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.TokenUsage{}, domain.FailureTransient, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", domain.TokenUsage{}, domain.FailureTransient, errors.New("no choices in response")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", domain.TokenUsage{}, domain.FailureTransient, errors.New("empty completion text")
	}
	usage := domain.TokenUsage{
		Prompt:     out.Usage.PromptTokens,
		Completion: out.Usage.CompletionTokens,
	}
	return text, usage, "", nil
}

func classifyStatus(code int) domain.FailureKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.FailureUnauthorized
	case code == http.StatusTooManyRequests:
		return domain.FailureRateLimited
	case code >= 500:
		return domain.FailureTransient
	default:
		return domain.FailureInvalidRequest
	}
}

// apiError extracts the service's error message, falling back to the bare
// status when the body is not the documented error envelope.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Errorf("groq status %d: %s", resp.StatusCode, parsed.Error.Message)
	}
	return fmt.Errorf("groq status %d", resp.StatusCode)
}
