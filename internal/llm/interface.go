// Package llm abstracts the chat-completion backends the summary
// generator can run against.
package llm

import "context"

// Provider is a chat-completion backend. Implementations translate one
// Request into the provider's wire format and normalize the reply.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req Request) (*Response, error)
}

// Request is a single-turn completion: a system persona plus one user
// prompt. A zero MaxTokens lets the provider apply its own ceiling.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Response is the normalized provider reply.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
	FinishReason string
}
