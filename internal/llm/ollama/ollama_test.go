package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/industryrunners/pulse/internal/llm"
)

var _ llm.Provider = (*Provider)(nil)

func TestNewDefaults(t *testing.T) {
	p, err := New("", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.endpoint != defaultEndpoint {
		t.Errorf("expected endpoint %s, got %s", defaultEndpoint, p.endpoint)
	}
	if p.model != defaultModel {
		t.Errorf("expected model %s, got %s", defaultModel, p.model)
	}
}

func TestChatSendsSystemAndPrompt(t *testing.T) {
	var got chatPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		json.NewEncoder(w).Encode(chatReply{
			Message:         chatMessage{Role: "assistant", Content: "### Recap"},
			DoneReason:      "stop",
			PromptEvalCount: 12,
			EvalCount:       34,
		})
	}))
	defer srv.Close()

	p, err := New(srv.URL, "llama3")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := p.Chat(context.Background(), llm.Request{
		System:    "you are an editor",
		Prompt:    "write the recap",
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if got.Model != "llama3" || got.Stream {
		t.Errorf("unexpected payload: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
	if got.Options.NumPredict != 256 {
		t.Errorf("expected num_predict 256, got %d", got.Options.NumPredict)
	}
	if resp.Content != "### Recap" || resp.InputTokens != 12 || resp.OutputTokens != 34 || resp.FinishReason != "stop" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestChatSkipsEmptySystem(t *testing.T) {
	var got chatPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(chatReply{Message: chatMessage{Content: "ok"}})
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "llama3")
	if _, err := p.Chat(context.Background(), llm.Request{Prompt: "hi"}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("expected a lone user message, got %+v", got.Messages)
	}
}

func TestChatUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "llama3")
	if _, err := p.Chat(context.Background(), llm.Request{Prompt: "hi"}); err == nil {
		t.Fatal("expected error for failing server")
	}
}
