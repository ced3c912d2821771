package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicDefaultModel = "claude-3-5-sonnet-20241022"

type anthropicBackend struct {
	client *anthropic.Client
}

// NewAnthropic builds a Client backed by the Anthropic Messages API.
func NewAnthropic(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	b := &anthropicBackend{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
	return newClient(b, opts...), nil
}

func (b *anthropicBackend) Kind() Kind {
	return KindAnthropic
}

func (b *anthropicBackend) DefaultModel() string {
	return anthropicDefaultModel
}

func (b *anthropicBackend) Complete(ctx context.Context, req Request) (string, Usage, error) {
	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(req.Model),
		MaxTokens: anthropic.F(int64(req.MaxTokens)),
		System: anthropic.F([]anthropic.TextBlockParam{
			{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(systemWithShape(req)),
			},
		}),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		}),
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			return "", Usage{}, &statusError{status: apierr.StatusCode, err: err}
		}
		return "", Usage{}, err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		text.WriteString(block.Text)
	}

	usage := Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	return text.String(), usage, nil
}
