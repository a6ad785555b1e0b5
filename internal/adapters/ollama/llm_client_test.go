package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/core"
)

func TestComplete(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "the answer"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zap.NewNop())
	resp, err := client.Complete(context.Background(), &core.CompletionRequest{
		SystemPrompt: "be brief",
		Prompt:       "hello",
		Model:        "llama3",
		Temperature:  0.2,
		MaxTokens:    128,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp != "the answer" {
		t.Errorf("Complete() = %q", resp)
	}

	if got.Model != "llama3" || got.Prompt != "hello" || got.System != "be brief" {
		t.Errorf("request not forwarded: %+v", got)
	}
	if got.Stream {
		t.Error("streaming must be disabled")
	}
	if got.Options.NumPredict != 128 {
		t.Errorf("num_predict = %d", got.Options.NumPredict)
	}
}

func TestCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zap.NewNop())
	if _, err := client.Complete(context.Background(), &core.CompletionRequest{Model: "missing"}); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3:latest"},{"name":"mistral:7b"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zap.NewNop())
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0] != "llama3:latest" || models[1] != "mistral:7b" {
		t.Errorf("ListModels() = %v", models)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("  ", 0, zap.NewNop())
	if client.baseURL != "http://localhost:11434" {
		t.Errorf("default base URL = %q", client.baseURL)
	}
	if client.httpClient.Timeout != defaultTimeout {
		t.Errorf("default timeout = %v", client.httpClient.Timeout)
	}
}
