package ai

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/momo0222/momail-backend/internal/mail"
)

// chatServer fakes a chat-completions endpoint returning a fixed reply.
func chatServer(t *testing.T, reply string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") == "" {
			t.Error("expected a bearer token")
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Messages) == 0 {
			t.Error("expected at least one message")
		}

		resp := ChatResponse{ID: "test"}
		resp.Choices = append(resp.Choices, struct {
			Message ChatMessage `json:"message"`
		}{Message: ChatMessage{Role: "assistant", Content: reply}})
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClassifyAgainstServer(t *testing.T) {
	server := chatServer(t, "  Urgent\n")
	defer server.Close()

	client := NewClient()
	client.ConfigureWithBaseURL("custom", "test-key", "test-model", server.URL)

	label, err := client.Classify(mail.NormalizedMessage{
		From:    "boss@company.com",
		Subject: "Server down",
		Snippet: "everything is on fire",
	})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if label != "urgent" {
		t.Errorf("response should be trimmed and lower-cased, got %q", label)
	}
}

func TestClassifyUnconfigured(t *testing.T) {
	client := NewClient()
	if _, err := client.Classify(mail.NormalizedMessage{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if client.IsConfigured() {
		t.Error("fresh client must not report configured")
	}
}

func TestParseSearchIntent(t *testing.T) {
	server := chatServer(t, "```json\n{\"sender\": \"deals.com\", \"classification\": \"\", \"time_range\": \"last_week\", \"query\": \"\", \"action\": \"archive\"}\n```")
	defer server.Close()

	client := NewClient()
	client.ConfigureWithBaseURL("custom", "test-key", "test-model", server.URL)

	intent, err := client.ParseSearchIntent("archive last week's emails from deals.com")
	if err != nil {
		t.Fatalf("ParseSearchIntent failed: %v", err)
	}
	if intent.Sender != "deals.com" || intent.TimeRange != "last_week" || intent.Action != "archive" {
		t.Errorf("unexpected intent: %+v", intent)
	}
}

func TestParseSearchIntentGarbledResponse(t *testing.T) {
	server := chatServer(t, "sorry, I cannot do that")
	defer server.Close()

	client := NewClient()
	client.ConfigureWithBaseURL("custom", "test-key", "test-model", server.URL)

	intent, err := client.ParseSearchIntent("find my emails")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
	if intent.Action != "search" {
		t.Errorf("fallback intent should be a plain search, got %+v", intent)
	}
}

func TestParseSearchIntentDefaultsAction(t *testing.T) {
	server := chatServer(t, `{"sender": "alice@example.com", "action": ""}`)
	defer server.Close()

	client := NewClient()
	client.ConfigureWithBaseURL("custom", "test-key", "test-model", server.URL)

	intent, err := client.ParseSearchIntent("emails from alice")
	if err != nil {
		t.Fatalf("ParseSearchIntent failed: %v", err)
	}
	if intent.Action != "search" {
		t.Errorf("empty action should default to search, got %q", intent.Action)
	}
}

func TestSendChatRequestErrors(t *testing.T) {
	// HTTP error status
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer failing.Close()

	client := NewClient()
	client.ConfigureWithBaseURL("custom", "test-key", "test-model", failing.URL)
	if _, err := client.Classify(mail.NormalizedMessage{}); !errors.Is(err, ErrAPICallFailed) {
		t.Errorf("expected ErrAPICallFailed, got %v", err)
	}

	// Well-formed response without choices
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{ID: "empty"})
	}))
	defer empty.Close()

	client.ConfigureWithBaseURL("custom", "test-key", "test-model", empty.URL)
	if _, err := client.Classify(mail.NormalizedMessage{}); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"  ```json\n{}\n```  ", "{}"},
	}
	for _, c := range cases {
		if got := stripCodeFence(c.in); got != c.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
