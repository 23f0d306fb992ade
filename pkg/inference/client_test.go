package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		auth := r.Header.Get("Authorization")
		if auth != "Bearer test-key" {
			t.Errorf("Expected Bearer test-key, got %s", auth)
		}

		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("Failed to decode payload: %v", err)
		}
		if payload["model"] != "llama3.1" {
			t.Errorf("Expected model llama3.1, got %v", payload["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "test-id",
			"model": "llama3.1",
			"choices": [{
				"message": {"role": "assistant", "content": "Hello! How can I help?"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("test-key"),
		WithModel("llama3.1"),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	resp, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("Hello")},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Message.Content != "Hello! How can I help?" {
		t.Errorf("Unexpected content: %q", resp.Message.Content)
	}
	if resp.Message.Role != RoleAssistant {
		t.Errorf("Expected assistant role, got %s", resp.Message.Role)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("Expected stop, got %s", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestClientChatToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("Failed to decode payload: %v", err)
		}

		tools, ok := payload["tools"].([]interface{})
		if !ok || len(tools) != 1 {
			t.Errorf("Expected 1 tool in payload, got %v", payload["tools"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "test-id",
			"model": "llama3.1",
			"choices": [{
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_abc",
						"type": "function",
						"function": {"name": "lights_on", "arguments": "{\"room\":\"kitchen\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 8, "total_tokens": 28}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(WithBaseURL(server.URL), WithModel("llama3.1"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	resp, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("Turn on the kitchen light")},
		Tools: []Tool{
			NewTool("lights_on", "Turn on a light", map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"room": map[string]interface{}{"type": "string"},
				},
			}),
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.FinishReason != "tool_calls" {
		t.Errorf("Expected tool_calls, got %s", resp.FinishReason)
	}
	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.ID != "call_abc" || tc.Name != "lights_on" {
		t.Errorf("Unexpected tool call: %+v", tc)
	}
	if tc.Arguments != `{"room":"kitchen"}` {
		t.Errorf("Unexpected arguments: %s", tc.Arguments)
	}
}

func TestClientChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Invalid API key", "type": "auth", "code": "invalid_api_key"}}`))
	}))
	defer server.Close()

	client, err := NewClient(WithBaseURL(server.URL), WithModel("llama3.1"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	_, err = client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("Hello")},
	})
	if err == nil {
		t.Fatal("Expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 401 || !apiErr.IsUnauthorized() {
		t.Errorf("Expected 401 unauthorized, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Invalid API key" {
		t.Errorf("Unexpected message: %q", apiErr.Message)
	}
	if apiErr.IsRetryable() {
		t.Error("401 should not be retryable")
	}
}

func TestClientChatRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "test-id",
			"model": "llama3.1",
			"choices": [{"message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(
		WithBaseURL(server.URL),
		WithModel("llama3.1"),
		WithRetry(3, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	resp, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("Hello")},
	})
	if err != nil {
		t.Fatalf("Chat failed after retries: %v", err)
	}
	if resp.Message.Content != "ok" {
		t.Errorf("Unexpected content: %q", resp.Message.Content)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("Expected /models, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client, err := NewClient(WithBaseURL(server.URL), WithModel("llama3.1"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}

func TestNewClientRequiresModel(t *testing.T) {
	_, err := NewClient(WithModel(""))
	if !errors.Is(err, ErrNoModel) {
		t.Errorf("Expected ErrNoModel, got %v", err)
	}
}
