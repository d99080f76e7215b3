package generation

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// AnthropicService adapts the Anthropic SDK to the Service interface.
type AnthropicService struct {
	client    *anthropic.Client
	maxTokens int64
}

func NewAnthropicService(apiKey string) *AnthropicService {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicService{client: &client, maxTokens: 4096}
}

func (s *AnthropicService) Generate(ctx context.Context, prompt, model string) (string, Usage, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   s.maxTokens,
		Temperature: param.NewOpt(0.4),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	message, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", Usage{}, err
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", Usage{}, fmt.Errorf("no text content in generation response")
	}

	return text, Usage{
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

// AnthropicCredentials builds one rotating Credential per API key. The
// label is a positional handle kept out of logs' secret space.
func AnthropicCredentials(apiKeys []string) []Credential {
	creds := make([]Credential, 0, len(apiKeys))
	for i, key := range apiKeys {
		creds = append(creds, Credential{
			Label:   fmt.Sprintf("key-%d", i+1),
			Service: NewAnthropicService(key),
		})
	}
	return creds
}
