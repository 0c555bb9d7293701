// Package claude adapts the Anthropic Messages API to llm.Provider.
package claude

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/industryrunners/pulse/internal/llm"
)

const defaultModel = "claude-sonnet-4-20250514"

// fallbackMaxTokens applies when the request leaves MaxTokens unset;
// the Messages API rejects a zero value.
const fallbackMaxTokens = 1024

// Provider sends completions through the Anthropic SDK.
type Provider struct {
	client anthropic.Client
	model  string
}

// New builds the provider. The API key is required; a blank model
// falls back to the default.
func New(apiKey, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key required")
	}
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (p *Provider) Name() string { return "claude" }

// Chat runs one completion. The system persona rides in the dedicated
// system field rather than the message list.
func (p *Provider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = fallbackMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	var content string
	if len(resp.Content) > 0 && resp.Content[0].Type == "text" {
		content = resp.Content[0].Text
	}
	return &llm.Response{
		Content:      content,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		FinishReason: string(resp.StopReason),
	}, nil
}
