package provider

import (
	"context"
	"fmt"

	deepseek "github.com/cohesion-org/deepseek-go"
	"github.com/cohesion-org/deepseek-go/constants"
)

type deepseekBackend struct {
	client *deepseek.Client
}

// NewDeepSeek builds a Client backed by the DeepSeek chat API.
func NewDeepSeek(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}
	b := &deepseekBackend{
		client: deepseek.NewClient(apiKey),
	}
	return newClient(b, opts...), nil
}

func (b *deepseekBackend) Kind() Kind {
	return KindDeepSeek
}

func (b *deepseekBackend) DefaultModel() string {
	return deepseek.DeepSeekChat
}

func (b *deepseekBackend) Complete(ctx context.Context, req Request) (string, Usage, error) {
	resp, err := b.client.CreateChatCompletion(ctx, &deepseek.ChatCompletionRequest{
		Model: req.Model,
		Messages: []deepseek.ChatCompletionMessage{
			{Role: constants.ChatMessageRoleSystem, Content: systemWithShape(req)},
			{Role: constants.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		// The SDK flattens API failures; classification falls back to
		// transport signal matching.
		return "", Usage{}, err
	}

	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("deepseek returned no choices")
	}

	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return resp.Choices[0].Message.Content, usage, nil
}
