package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openaiDefaultModel = "gpt-4o-mini"

type openaiBackend struct {
	client *openai.Client
}

// NewOpenAI builds a Client backed by the OpenAI chat completions API.
func NewOpenAI(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	b := &openaiBackend{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
	return newClient(b, opts...), nil
}

func (b *openaiBackend) Kind() Kind {
	return KindOpenAI
}

func (b *openaiBackend) DefaultModel() string {
	return openaiDefaultModel
}

func (b *openaiBackend) Complete(ctx context.Context, req Request) (string, Usage, error) {
	completion, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.F(req.Model),
		MaxTokens: openai.F(int64(req.MaxTokens)),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemWithShape(req)),
			openai.UserMessage(req.User),
		}),
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", Usage{}, &statusError{status: apierr.StatusCode, err: err}
		}
		return "", Usage{}, err
	}

	if len(completion.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("openai returned no choices")
	}

	usage := Usage{
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:      int(completion.Usage.TotalTokens),
	}
	return completion.Choices[0].Message.Content, usage, nil
}
