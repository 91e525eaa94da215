package mail

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DemoProvider simulates a mailbox in memory. It implements Provider so
// the agent can run end-to-end without network access; incoming mail is
// injected with SimulateIncoming and outgoing mail is recorded instead
// of delivered.
type DemoProvider struct {
	address string

	mu       sync.Mutex
	messages map[string]NormalizedMessage
	unread   []string // arrival order
	sent     []SentDemoMessage
}

// SentDemoMessage records an outgoing message the demo provider accepted.
type SentDemoMessage struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Date     time.Time `json:"date"`
}

// NewDemoProvider creates a demo provider acting for the given address.
func NewDemoProvider(address string) *DemoProvider {
	if address == "" {
		address = "demo@momail.com"
	}
	return &DemoProvider{
		address:  address,
		messages: make(map[string]NormalizedMessage),
	}
}

// Address returns the simulated mailbox address.
func (p *DemoProvider) Address() string {
	return p.address
}

// SimulateIncoming injects an unread message into the simulated mailbox
// and returns its ID.
func (p *DemoProvider) SimulateIncoming(from, name, subject, body string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.NewString()
	msg := NormalizedMessage{
		ID:       id,
		ThreadID: uuid.NewString(),
		From:     strings.ToLower(strings.TrimSpace(from)),
		FromName: name,
		FromRaw:  fmt.Sprintf("%s <%s>", name, from),
		To:       p.address,
		Subject:  subject,
		Snippet:  makeSnippet(body),
		Body:     body,
	}
	p.messages[id] = msg
	p.unread = append(p.unread, id)
	return id
}

// ListNew returns the IDs of unread messages in arrival order.
func (p *DemoProvider) ListNew(maxResults int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.unread))
	for _, id := range p.unread {
		if maxResults > 0 && len(ids) >= maxResults {
			break
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Fetch retrieves one simulated message.
func (p *DemoProvider) Fetch(id string) (*RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg, ok := p.messages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	return &RawMessage{ID: msg.ID, ThreadID: msg.ThreadID, Parsed: &msg}, nil
}

// Normalize returns the structured fields the demo provider already holds.
func (p *DemoProvider) Normalize(raw *RawMessage) (NormalizedMessage, error) {
	if raw == nil || raw.Parsed == nil {
		return NormalizedMessage{}, fmt.Errorf("%w: demo message has no parsed form", ErrProviderFailure)
	}
	return *raw.Parsed, nil
}

// Send records the outgoing message instead of delivering it.
func (p *DemoProvider) Send(to, subject, body, threadID string) (SentMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if threadID == "" {
		threadID = uuid.NewString()
	}
	msg := SentDemoMessage{
		ID:       uuid.NewString(),
		ThreadID: threadID,
		To:       to,
		Subject:  subject,
		Body:     body,
		Date:     time.Now(),
	}
	p.sent = append(p.sent, msg)
	log.Printf("[DemoProvider] Sent email to %s: %s", to, subject)
	return SentMessage{ID: msg.ID, ThreadID: msg.ThreadID}, nil
}

// Archive removes the message from the unread view. Archiving a message
// that is already archived or unknown is a no-op.
func (p *DemoProvider) Archive(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeUnread(id)
	return nil
}

// MarkRead marks the message as read. Idempotent like Archive.
func (p *DemoProvider) MarkRead(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeUnread(id)
	return nil
}

// removeUnread drops id from the unread list. Caller holds the lock.
func (p *DemoProvider) removeUnread(id string) {
	for i, candidate := range p.unread {
		if candidate == id {
			p.unread = append(p.unread[:i], p.unread[i+1:]...)
			return
		}
	}
}

// Sent returns a copy of the recorded outgoing messages.
func (p *DemoProvider) Sent() []SentDemoMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]SentDemoMessage, len(p.sent))
	copy(out, p.sent)
	return out
}
