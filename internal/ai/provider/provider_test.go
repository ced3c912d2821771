package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/ai/shape"
	dErrors "cortex/pkg/domain-errors"
)

// step scripts one backend response for the fake.
type step struct {
	text  string
	usage Usage
	err   error
}

type fakeBackend struct {
	steps []step
	calls int
}

func (f *fakeBackend) Kind() Kind           { return "fake" }
func (f *fakeBackend) DefaultModel() string { return "fake-model" }

func (f *fakeBackend) Complete(_ context.Context, _ Request) (string, Usage, error) {
	i := f.calls
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.calls++
	s := f.steps[i]
	return s.text, s.usage, s.err
}

func newTestClient(t *testing.T, b backend) *Client {
	t.Helper()
	c := newClient(b, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func testRequest() Request {
	return Request{
		System: "You scope agency projects.",
		User:   "Scope a website build.",
		Shape: shape.Shape{Fields: []shape.Field{
			{Name: "deliverables", Type: shape.TypeArray, Required: true},
		}},
	}
}

func TestGenerateSuccess(t *testing.T) {
	b := &fakeBackend{steps: []step{
		{text: `{"deliverables":["design","build"]}`, usage: Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
	}}
	c := newTestClient(t, b)

	res, err := c.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 15, res.Usage.TotalTokens)
	assert.False(t, res.Usage.Estimated)
	assert.Len(t, res.Data["deliverables"], 2)
	assert.Equal(t, "fake-model", res.Model)
}

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	rateLimited := &statusError{status: 429, err: errors.New("429 too many requests")}
	b := &fakeBackend{steps: []step{
		{err: rateLimited},
		{err: rateLimited},
		{text: `{"deliverables":["a"]}`, usage: Usage{TotalTokens: 7, PromptTokens: 4, CompletionTokens: 3}},
	}}
	c := newTestClient(t, b)

	res, err := c.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, b.calls)
	assert.Equal(t, 3, res.Attempts)
}

func TestGenerateRetriesExhausted(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode dErrors.Code
	}{
		{"rate limit", &statusError{status: 429, err: errors.New("throttled")}, dErrors.CodeRateLimited},
		{"server error", &statusError{status: 503, err: errors.New("unavailable")}, dErrors.CodeGenerationFailed},
		{"timeout", context.DeadlineExceeded, dErrors.CodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{steps: []step{{err: tt.err}}}
			c := newTestClient(t, b)

			_, err := c.Generate(context.Background(), testRequest())
			require.Error(t, err)
			assert.Equal(t, 3, b.calls)
			assert.True(t, dErrors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestGenerateNonRetryableFailsOnce(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"auth failure", &statusError{status: 401, err: errors.New("bad key")}},
		{"malformed request", &statusError{status: 400, err: errors.New("invalid schema")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{steps: []step{{err: tt.err}}}
			c := newTestClient(t, b)

			_, err := c.Generate(context.Background(), testRequest())
			require.Error(t, err)
			assert.Equal(t, 1, b.calls)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeGenerationFailed))
		})
	}
}

func TestGenerateShapeMismatchIsTerminal(t *testing.T) {
	b := &fakeBackend{steps: []step{
		{text: `{"summary":"missing the deliverables field"}`},
	}}
	c := newTestClient(t, b)

	_, err := c.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, 1, b.calls, "shape mismatch must not be retried")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeGenerationFailed))
	assert.Equal(t, msgShapeMismatch, err.Error())
}

func TestGenerateSanitizesMessages(t *testing.T) {
	b := &fakeBackend{steps: []step{
		{err: &statusError{status: 429, err: errors.New("secret-internal-endpoint responded 429: raw body")}},
	}}
	c := newTestClient(t, b)

	_, err := c.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, msgRateLimited, err.Error())
	assert.NotContains(t, err.Error(), "secret-internal-endpoint")
}

func TestGenerateEstimatesMissingUsage(t *testing.T) {
	b := &fakeBackend{steps: []step{
		{text: `{"deliverables":[]}`},
	}}
	c := newTestClient(t, b)

	res, err := c.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, res.Usage.Estimated)
	assert.Greater(t, res.Usage.TotalTokens, 0)
	assert.Equal(t, res.Usage.PromptTokens+res.Usage.CompletionTokens, res.Usage.TotalTokens)
}

func TestGenerateValidatesInput(t *testing.T) {
	c := newTestClient(t, &fakeBackend{steps: []step{{text: "{}"}}})

	req := testRequest()
	req.System = ""
	_, err := c.Generate(context.Background(), req)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPrompt))

	req = testRequest()
	req.User = "  "
	_, err = c.Generate(context.Background(), req)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPrompt))

	req = testRequest()
	req.Shape = shape.Shape{}
	_, err = c.Generate(context.Background(), req)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPrompt))
}

func TestExtractJSONToleratesFences(t *testing.T) {
	raw := "```json\n{\"deliverables\":[\"a\"]}\n```"
	assert.JSONEq(t, `{"deliverables":["a"]}`, string(extractJSON(raw)))
}

func TestRetryDelayDoublesAndCaps(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 500*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, time.Second, cfg.Delay(2))
	assert.Equal(t, 2*time.Second, cfg.Delay(3))
	assert.Equal(t, 10*time.Second, cfg.Delay(20))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want failureClass
	}{
		{"status 429", &statusError{status: 429, err: errors.New("x")}, failureRateLimit},
		{"status 500", &statusError{status: 500, err: errors.New("x")}, failureServer},
		{"status 401", &statusError{status: 401, err: errors.New("x")}, failureAuth},
		{"status 400", &statusError{status: 400, err: errors.New("x")}, failureBadRequest},
		{"deadline", context.DeadlineExceeded, failureTimeout},
		{"rate limit text", errors.New("Rate limit reached for requests"), failureRateLimit},
		{"api key text", errors.New("invalid api key provided"), failureAuth},
		{"opaque", errors.New("something odd"), failureUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
