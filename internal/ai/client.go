// Package ai implements the language model client used for email
// classification, reply drafting and natural-language search parsing.
// It speaks the chat-completions wire format, which OpenAI-compatible
// providers and Claude both accept behind small header differences.
package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/momo0222/momail-backend/internal/mail"
)

var (
	// ErrNotConfigured indicates the AI client is not configured
	ErrNotConfigured = errors.New("AI client not configured")
	// ErrAPICallFailed indicates the AI API call failed
	ErrAPICallFailed = errors.New("AI API call failed")
	// ErrInvalidResponse indicates an invalid response from the AI API
	ErrInvalidResponse = errors.New("invalid AI API response")
)

// Provider represents an AI provider
type Provider string

const (
	// ProviderOpenAI represents OpenAI API
	ProviderOpenAI Provider = "openai"
	// ProviderClaude represents Anthropic Claude API
	ProviderClaude Provider = "claude"
	// ProviderCustom represents a custom API endpoint
	ProviderCustom Provider = "custom"
)

// Client handles AI API communication for the triage agent
type Client struct {
	provider   Provider
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	configured bool
}

// NewClient creates a new AI Client instance
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Configure configures the AI client with provider settings
func (c *Client) Configure(provider, apiKey, model string) {
	c.ConfigureWithBaseURL(provider, apiKey, model, "")
}

// ConfigureWithBaseURL configures the AI client with provider settings and custom base URL
func (c *Client) ConfigureWithBaseURL(provider, apiKey, model, baseURL string) {
	c.provider = Provider(strings.ToLower(provider))
	c.apiKey = apiKey
	c.model = model
	c.configured = apiKey != ""

	if baseURL != "" {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
		return
	}

	switch c.provider {
	case ProviderClaude:
		c.baseURL = "https://api.anthropic.com/v1"
		if c.model == "" {
			c.model = "claude-3-haiku-20240307"
		}
	default:
		c.provider = ProviderOpenAI
		c.baseURL = "https://api.openai.com/v1"
		if c.model == "" {
			c.model = "gpt-4o-mini"
		}
	}
}

// IsConfigured returns whether the client is configured
func (c *Client) IsConfigured() bool {
	return c.configured && c.apiKey != ""
}

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// ChatResponse represents a chat completion response
type ChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// sendChatRequest sends a chat completion request to the AI API
func (c *Client) sendChatRequest(messages []ChatMessage) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	request := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   500,
		Temperature: 0.3,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	switch c.provider {
	case ProviderClaude:
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")
	default:
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrAPICallFailed, resp.StatusCode, string(respBody))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPICallFailed, chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", ErrInvalidResponse
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Classify labels an email as urgent, routine, spam or personal. The
// model can return arbitrary text for unexpected input; the raw
// lower-cased response is passed through and callers must handle
// unrecognized labels.
func (c *Client) Classify(msg mail.NormalizedMessage) (string, error) {
	prompt := fmt.Sprintf(`Classify this email as one of: urgent, personal, routine, or spam

Subject: %s
From: %s
Preview: %s

Respond with just one word: urgent, personal, routine, or spam`, msg.Subject, msg.From, msg.Snippet)

	response, err := c.sendChatRequest([]ChatMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", err
	}

	return strings.ToLower(strings.TrimSpace(response)), nil
}

// toneInstructions maps a requested reply tone to drafting guidance.
var toneInstructions = map[string]string{
	"professional": "Write a professional and polite reply.",
	"casual":       "Write a casual and friendly reply.",
	"friendly":     "Write a warm and friendly reply.",
	"brief":        "Write a very brief and concise reply (2-3 sentences max).",
}

// DefaultTone is used when the caller does not request a tone.
const DefaultTone = "professional"

// DraftReply generates a reply body for an email with the requested tone
// and optional extra instructions.
func (c *Client) DraftReply(msg mail.NormalizedMessage, tone, instructions string) (string, error) {
	toneInstruction, ok := toneInstructions[tone]
	if !ok {
		toneInstruction = toneInstructions[DefaultTone]
	}

	prompt := fmt.Sprintf(`Generate ONLY the body of an email reply. Do NOT include subject line or headers.

From: %s
Subject: %s
Body: %s

%s
%s

Based on the sender and content, write a helpful reply. Keep it concise but helpful.
Write ONLY the reply body text with appropriate tone. Start directly with the greeting.`,
		msg.From, msg.Subject, msg.Body, toneInstruction, instructions)

	response, err := c.sendChatRequest([]ChatMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(response), nil
}

// GenerateEmail drafts a new email body for the compose workflow.
func (c *Client) GenerateEmail(to, subject, tone, instructions string) (string, error) {
	toneInstruction, ok := toneInstructions[tone]
	if !ok {
		toneInstruction = toneInstructions[DefaultTone]
	}

	prompt := fmt.Sprintf(`You are helping draft an email.

Recipient: %s
Subject: %s

%s
Instructions: %s

Please draft the email body only. Do NOT include subject line or headers.`,
		to, subject, toneInstruction, instructions)

	response, err := c.sendChatRequest([]ChatMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(response), nil
}

// SearchIntent holds search parameters parsed from a natural-language
// request. Empty fields were not mentioned by the user.
type SearchIntent struct {
	Sender         string `json:"sender"`
	Classification string `json:"classification"`
	TimeRange      string `json:"time_range"` // today, yesterday, last_week, last_month
	Query          string `json:"query"`
	Action         string `json:"action"` // search, archive, delete, mark_read
}

// ParseSearchIntent extracts search parameters from a natural-language
// mailbox request. A response the model garbles falls back to a plain
// search with no filters rather than failing the request.
func (c *Client) ParseSearchIntent(message string) (SearchIntent, error) {
	fallback := SearchIntent{Action: "search"}

	prompt := fmt.Sprintf(`You are an email search assistant. Parse this user request into search parameters.

User request: "%s"

Extract:
- sender: email address or name mentioned
- classification: urgent, routine, spam, personal
- time_range: today, yesterday, last_week, last_month
- query: any keywords to search in subject/body
- action: search, archive, delete, mark_read (if user wants to do something)

Return ONLY valid JSON with these fields (use empty string if not mentioned):
{"sender": "", "classification": "", "time_range": "", "query": "", "action": "search"}`, message)

	response, err := c.sendChatRequest([]ChatMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return fallback, err
	}

	var intent SearchIntent
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &intent); err != nil {
		return fallback, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if intent.Action == "" {
		intent.Action = "search"
	}
	return intent, nil
}

// stripCodeFence removes a surrounding markdown code fence from a model
// response, with or without a language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
