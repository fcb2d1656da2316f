package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// tagsJSON builds a /api/tags response with the given model names.
func tagsJSON(names ...string) []byte {
	type entry struct {
		Name string `json:"name"`
	}
	type resp struct {
		Models []entry `json:"models"`
	}
	r := resp{}
	for _, n := range names {
		r.Models = append(r.Models, entry{Name: n})
	}
	b, _ := json.Marshal(r)
	return b
}

func TestIsRunning_Up(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("llama3.1:latest"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	if !c.IsRunning(context.Background()) {
		t.Error("IsRunning() = false, want true")
	}
}

func TestIsRunning_Down(t *testing.T) {
	// Point at a closed server to simulate connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL)
	if c.IsRunning(context.Background()) {
		t.Error("IsRunning() = true, want false")
	}
}

func TestHasModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("llama3.1:latest", "mistral-nemo:latest"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	if !c.HasModel(context.Background(), "llama3.1") {
		t.Error("HasModel(llama3.1) = false, want true")
	}
	if c.HasModel(context.Background(), "phi3.5") {
		t.Error("HasModel(phi3.5) = true, want false")
	}
}

func TestChat_Blocking(t *testing.T) {
	var captured chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(chatResponse{
			Message: Message{Role: "assistant", Content: "Hello, candidate!"},
			Done:    true,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Chat(context.Background(), "llama3.1", []Message{
		{Role: "user", Content: "hi"},
	}, 0.2)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if result != "Hello, candidate!" {
		t.Errorf("result = %q, want %q", result, "Hello, candidate!")
	}
	if captured.Stream {
		t.Error("blocking Chat sent stream = true")
	}
	if captured.Options.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", captured.Options.Temperature)
	}
}

func TestChat_MissingMessageField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Chat(context.Background(), "llama3.1", nil, 0)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result != "" {
		t.Errorf("result = %q, want empty string", result)
	}
}

func TestChat_Non200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Chat(context.Background(), "nope", nil, 0)
	if err == nil {
		t.Fatal("Chat with 404 backend: err = nil, want error")
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		t.Error("status error misclassified as timeout")
	}
}

func TestChat_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL)
	if _, err := c.Chat(context.Background(), "llama3.1", nil, 0); err == nil {
		t.Fatal("Chat against closed server: err = nil, want error")
	}
}

func TestChatStream_Fragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("ChatStream sent stream = false")
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"Hel"}}` + "\n"))
		w.Write([]byte("\n")) // blank line, skipped
		w.Write([]byte(`{"message":{"role":"assistant","content":"lo "}}` + "\n"))
		w.Write([]byte(`not json at all` + "\n")) // malformed, silently discarded
		w.Write([]byte(`{"message":{"role":"assistant","content":"there"}}` + "\n"))
		w.Write([]byte(`{"done":true}` + "\n"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	var deltas []string
	full, err := c.ChatStream(context.Background(), "llama3.1", []Message{
		{Role: "user", Content: "hi"},
	}, 0.5, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	if full != "Hello there" {
		t.Errorf("full = %q, want %q", full, "Hello there")
	}
	if len(deltas) != 3 {
		t.Fatalf("got %d deltas, want 3", len(deltas))
	}
	if joined := strings.Join(deltas, ""); joined != full {
		t.Errorf("concatenated deltas = %q, want %q", joined, full)
	}
}

func TestChatStream_AllLinesMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("garbage\n{{{\nmore garbage\n"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	full, err := c.ChatStream(context.Background(), "llama3.1", nil, 0, nil)
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if full != "" {
		t.Errorf("full = %q, want empty", full)
	}
}

func TestChatStream_Non200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.ChatStream(context.Background(), "llama3.1", nil, 0, nil); err == nil {
		t.Fatal("ChatStream with 500 backend: err = nil, want error")
	}
}

func TestChat_Timeout(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	// An already-expired parent context trips the same deadline path as the
	// 300s ceiling without waiting for it.
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	c := New(srv.URL)
	_, err := c.Chat(ctx, "llama3.1", nil, 0)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TimeoutError", err)
	}
}
