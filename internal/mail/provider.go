// Package mail defines the mail provider capability consumed by the
// triage agent, with a real IMAP/SMTP implementation and an in-memory
// demo implementation. The variant is chosen once at construction from
// process configuration.
package mail

import (
	"errors"
	"html"
	netmail "net/mail"
	"strings"
	"unicode/utf8"
)

var (
	// ErrProviderFailure indicates a mail provider request failed
	ErrProviderFailure = errors.New("mail provider request failed")
	// ErrMessageNotFound indicates the referenced message does not exist
	ErrMessageNotFound = errors.New("message not found")
)

// NormalizedMessage is the provider-agnostic representation of an email
// used by the classifier, responder and decision policy. From is the
// normalized (lower-cased) sender address; FromRaw preserves the original
// header for display.
type NormalizedMessage struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
	FromRaw  string `json:"from_raw"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Snippet  string `json:"snippet"`
	Body     string `json:"body"`
}

// RawMessage is a fetched but not yet normalized message. Source holds
// the full RFC822 message; providers that already hold structured fields
// (the demo provider) set Parsed instead.
type RawMessage struct {
	ID       string
	ThreadID string
	Source   []byte
	Parsed   *NormalizedMessage
}

// SentMessage identifies an outgoing message accepted by the provider.
type SentMessage struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
}

// Provider is the mail capability the agent consumes. Implementations
// must surface failures as errors wrapping ErrProviderFailure or
// ErrMessageNotFound, never as silent defaults.
type Provider interface {
	// ListNew returns the IDs of unread messages, newest last, capped at
	// maxResults.
	ListNew(maxResults int) ([]string, error)
	// Fetch retrieves one message by ID.
	Fetch(id string) (*RawMessage, error)
	// Normalize converts a fetched message into the shared value type,
	// validating and normalizing at this boundary.
	Normalize(raw *RawMessage) (NormalizedMessage, error)
	// Send delivers a message; threadID, when non-empty, threads the
	// message under an existing conversation.
	Send(to, subject, body, threadID string) (SentMessage, error)
	// Archive removes the message from the inbox view.
	Archive(id string) error
	// MarkRead marks the message as read.
	MarkRead(id string) error
	// Address returns the mailbox address this provider acts for.
	Address() string
}

// snippetLength bounds the preview stored alongside each message.
const snippetLength = 120

// makeSnippet derives a short preview from a message body. The cut
// lands on a rune boundary so multi-byte text stays valid UTF-8.
func makeSnippet(body string) string {
	s := html.UnescapeString(strings.TrimSpace(body))
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > snippetLength {
		cut := snippetLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

// NormalizeAddress extracts and normalizes the address part of a From
// header. Falls back to the lower-cased raw value when the header does
// not parse.
func NormalizeAddress(header string) (addr, name string) {
	parsed, err := netmail.ParseAddress(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header)), ""
	}
	return strings.ToLower(strings.TrimSpace(parsed.Address)), strings.TrimSpace(parsed.Name)
}
