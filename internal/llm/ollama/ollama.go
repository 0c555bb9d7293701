// Package ollama drives a local Ollama server through its /api/chat
// endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/industryrunners/pulse/internal/llm"
)

const (
	defaultEndpoint = "http://localhost:11434"
	defaultModel    = "qwen2.5:32b"
)

// Provider talks to an Ollama instance over plain HTTP.
type Provider struct {
	endpoint string
	model    string
	client   *http.Client
}

// New never fails: blank endpoint or model fall back to the local
// defaults.
func New(endpoint, model string) (*Provider, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		// Local inference on modest hardware takes minutes.
		client: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (p *Provider) Name() string { return "ollama" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type chatPayload struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatReply struct {
	Message         chatMessage `json:"message"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// Chat runs one non-streaming completion, the persona as a system
// message ahead of the user prompt.
func (p *Provider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	payload := chatPayload{
		Model:   p.model,
		Options: chatOptions{NumPredict: req.MaxTokens},
	}
	if req.System != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: req.System})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama chat: unexpected status %d", resp.StatusCode)
	}
	var reply chatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decoding chat reply: %w", err)
	}
	return &llm.Response{
		Content:      reply.Message.Content,
		InputTokens:  reply.PromptEvalCount,
		OutputTokens: reply.EvalCount,
		FinishReason: reply.DoneReason,
	}, nil
}
