// Package openai adapts the OpenAI chat completions API to
// llm.Provider.
package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/industryrunners/pulse/internal/llm"
)

const defaultModel = "gpt-4o"

// Provider sends completions through the go-openai client.
type Provider struct {
	client *openai.Client
	model  string
}

// New builds the provider. The API key is required; a blank model
// falls back to the default.
func New(apiKey, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key required")
	}
	if model == "" {
		model = defaultModel
	}
	return &Provider{client: openai.NewClient(apiKey), model: model}, nil
}

func (p *Provider) Name() string { return "openai" }

// Chat runs one completion, the persona as a system message ahead of
// the user prompt. A zero MaxTokens passes through unset.
func (p *Provider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: no choices returned")
	}
	choice := resp.Choices[0]
	return &llm.Response{
		Content:      choice.Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		FinishReason: string(choice.FinishReason),
	}, nil
}
