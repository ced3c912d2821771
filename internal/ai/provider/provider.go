// Package provider executes single AI calls against external backends and
// returns results that either conform to the caller's declared output shape
// or carry a classified, sanitized failure - never a malformed value.
package provider

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"cortex/internal/ai/shape"
	dErrors "cortex/pkg/domain-errors"
)

// Kind identifies an external AI backend.
type Kind string

const (
	KindAnthropic Kind = "anthropic"
	KindOpenAI    Kind = "openai"
	KindDeepSeek  Kind = "deepseek"
)

// Request carries one prompt plus its declared output shape to a backend.
type Request struct {
	System    string
	User      string
	Shape     shape.Shape
	Model     string
	MaxTokens int
}

// Usage holds token accounting for a completed call. Counts are never
// negative; when a backend omits them an estimate is derived so downstream
// metering never receives a zero total for non-empty traffic.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Estimated        bool
}

// Result is a validated, typed generation.
type Result struct {
	Data     map[string]any
	Raw      string
	Usage    Usage
	Model    string
	Duration time.Duration
	Attempts int
}

// backend performs the raw SDK call for one provider. Retry, validation,
// token fallback and error sanitization all live in Client so each backend
// file only translates to its SDK.
type backend interface {
	Kind() Kind
	DefaultModel() string
	Complete(ctx context.Context, req Request) (text string, usage Usage, err error)
}

const defaultMaxTokens = 4096

// Client wraps one backend with the shared invocation policy.
type Client struct {
	backend backend
	retry   RetryConfig
	logger  *slog.Logger

	// sleep is swapped in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

func newClient(b backend, opts ...Option) *Client {
	c := &Client{
		backend: b,
		retry:   DefaultRetryConfig(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kind reports which backend this client drives.
func (c *Client) Kind() Kind {
	return c.backend.Kind()
}

// Generate executes one AI call with retry, validates the response against
// the declared shape and returns a typed result. Transient transport
// failures are retried with exponential backoff; shape mismatches and
// request-level failures are terminal.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := c.validate(&req); err != nil {
		return nil, err
	}

	start := time.Now()
	var lastClass failureClass
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		text, usage, err := c.backend.Complete(ctx, req)
		if err != nil {
			class := classify(err)
			c.logAttempt(ctx, req, attempt, class, err)
			lastClass, lastErr = class, err

			if !class.retryable() || attempt == c.retry.MaxAttempts {
				break
			}
			if serr := c.sleep(ctx, c.retry.Delay(attempt)); serr != nil {
				lastClass, lastErr = failureTimeout, serr
				break
			}
			continue
		}

		data, verr := req.Shape.Check(extractJSON(text))
		if verr != nil {
			// A syntactically fine but shape-invalid generation rarely
			// improves on retry and burns budget; fail terminally.
			c.logShapeMismatch(ctx, req, attempt, text, verr)
			return nil, dErrors.New(dErrors.CodeGenerationFailed, msgShapeMismatch)
		}

		if usage.TotalTokens <= 0 {
			usage = estimateUsage(req, text)
		}

		return &Result{
			Data:     data,
			Raw:      text,
			Usage:    usage,
			Model:    req.Model,
			Duration: time.Since(start),
			Attempts: attempt,
		}, nil
	}

	return nil, sanitized(lastClass, lastErr)
}

func (c *Client) validate(req *Request) error {
	if strings.TrimSpace(req.System) == "" {
		return dErrors.New(dErrors.CodeInvalidPrompt, "system prompt cannot be empty")
	}
	if strings.TrimSpace(req.User) == "" {
		return dErrors.New(dErrors.CodeInvalidPrompt, "user prompt cannot be empty")
	}
	if err := req.Shape.Validate(); err != nil {
		return err
	}
	if req.Model == "" {
		req.Model = c.backend.DefaultModel()
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	return nil
}

func (c *Client) logAttempt(ctx context.Context, req Request, attempt int, class failureClass, err error) {
	if c.logger == nil {
		return
	}
	// Full provider detail stays on the operator side of the trust boundary.
	c.logger.ErrorContext(ctx, "provider call failed",
		"provider", c.backend.Kind(),
		"model", req.Model,
		"attempt", attempt,
		"class", class.String(),
		"retryable", class.retryable(),
		"error", err,
	)
}

func (c *Client) logShapeMismatch(ctx context.Context, req Request, attempt int, text string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.ErrorContext(ctx, "provider response failed shape validation",
		"provider", c.backend.Kind(),
		"model", req.Model,
		"attempt", attempt,
		"response_bytes", len(text),
		"error", err,
	)
}

// systemWithShape appends the output contract to the caller's system text.
// Shared by all backends so every provider receives identical instructions.
func systemWithShape(req Request) string {
	return req.System + "\n\n" + req.Shape.Instructions()
}

// extractJSON pulls the first JSON object out of model text, tolerating
// markdown code fences and surrounding prose.
func extractJSON(text string) []byte {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return []byte(text)
	}
	return []byte(text[start : end+1])
}

// estimateUsage derives best-effort token counts (~4 bytes per token) when
// the backend response omits them.
func estimateUsage(req Request, completion string) Usage {
	prompt := estimateTokens(req.System) + estimateTokens(req.User)
	out := estimateTokens(completion)
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: out,
		TotalTokens:      prompt + out,
		Estimated:        true,
	}
}

func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
