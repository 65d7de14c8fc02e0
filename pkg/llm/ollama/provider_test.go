package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"health-agent-be/pkg/llm"
)

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Errorf("Chat must not request streaming")
		}
		if req.Model != "qwen3:4b" {
			t.Errorf("Model = %q, want qwen3:4b", req.Model)
		}
		// "model" role must be mapped to "assistant"
		for _, m := range req.Messages {
			if m.Role == "model" {
				t.Errorf("role %q leaked into ollama request", m.Role)
			}
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "hello there"},
			Done:    true,
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "qwen3:4b")
	got, err := p.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "hi"},
		{Role: "model", Content: "previous reply"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "hello there" {
		t.Errorf("Chat = %q, want %q", got, "hello there")
	}
}

func TestChatNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "missing-model")
	if _, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestChatStream(t *testing.T) {
	chunks := []string{"Eat ", "well and ", "rest."}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.Stream {
			t.Errorf("ChatStream must request streaming")
		}
		for _, c := range chunks {
			b, _ := json.Marshal(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: c}})
			fmt.Fprintf(w, "%s\n", b)
		}
		b, _ := json.Marshal(ollamaChatResponse{Done: true})
		fmt.Fprintf(w, "%s\n", b)
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "qwen3:4b")
	stream, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "advise me"}})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	defer stream.Close()

	var got []string
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		got = append(got, delta)
	}

	if len(got) != len(chunks) {
		t.Fatalf("received %d chunks, want %d (%q)", len(got), len(chunks), got)
	}
	for i := range chunks {
		if got[i] != chunks[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], chunks[i])
		}
	}

	// Stream is finite and non-restartable: further Recv keeps returning EOF.
	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("Recv after EOF = %v, want io.EOF", err)
	}
}

func TestChatStreamFinalChunkWithContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := json.Marshal(ollamaChatResponse{Message: ollamaMessage{Content: "tail"}, Done: true})
		fmt.Fprintf(w, "%s\n", b)
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "qwen3:4b")
	stream, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "x"}})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	defer stream.Close()

	delta, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if delta != "tail" {
		t.Errorf("delta = %q, want %q", delta, "tail")
	}
	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("second Recv = %v, want io.EOF", err)
	}
}
