package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	id "github.com/emersion/go-imap-id"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/momo0222/momail-backend/internal/config"
)

const (
	connectionTimeout = 10 * time.Second
	commandTimeout    = 2 * time.Minute

	// archiveMailbox is where archived messages are moved to.
	archiveMailbox = "Archive"
)

func init() {
	// Decode non-UTF8 message parts (gb2312 etc.)
	imap.CharsetReader = charset.Reader
}

// IMAPProvider is the real mail provider, backed by IMAP for reading and
// SMTP for sending. Message IDs are RFC822 Message-ID header values
// without angle brackets; they are stable across fetches.
type IMAPProvider struct {
	account config.MailAccount

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewIMAPProvider creates a provider for the given account.
func NewIMAPProvider(account config.MailAccount) *IMAPProvider {
	return &IMAPProvider{account: account}
}

// Address returns the mailbox address this provider acts for.
func (p *IMAPProvider) Address() string {
	return p.account.Address
}

// connect dials the IMAP server, identifies the client and authenticates.
// The caller must Logout the returned client.
func (p *IMAPProvider) connect() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", p.account.IMAPHost, p.account.IMAPPort)
	dialer := &net.Dialer{Timeout: connectionTimeout}

	var c *client.Client
	if p.account.UseSSL {
		tlsConfig := &tls.Config{ServerName: p.account.IMAPHost}
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
		}
	} else {
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
		}
	}

	c.Timeout = commandTimeout

	// Some providers (163.com, 188.com) require client identification
	// before login.
	if ok, _ := c.Support("ID"); ok {
		idClient := id.NewClient(c)
		_, _ = idClient.ID(id.ID{
			id.FieldName:    "MoMail Agent",
			id.FieldVersion: "1.0.0",
			id.FieldVendor:  "MoMail",
		})
	}

	if p.account.AuthType == "oauth2" {
		token, err := p.currentAccessToken()
		if err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: oauth token: %v", ErrProviderFailure, err)
		}
		if err := c.Authenticate(newXOAuth2Client(p.account.Username, token)); err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: XOAUTH2 authentication failed: %v", ErrProviderFailure, err)
		}
	} else {
		if err := c.Login(p.account.Username, p.account.Password); err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: login failed: %v", ErrProviderFailure, err)
		}
	}

	return c, nil
}

// currentAccessToken returns a valid OAuth access token, refreshing it
// via the refresh token when expired.
func (p *IMAPProvider) currentAccessToken() (string, error) {
	p.tokenMu.Lock()
	defer p.tokenMu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	conf := &oauth2.Config{
		ClientID:     p.account.OAuthClientID,
		ClientSecret: p.account.OAuthClientSecret,
		Endpoint:     google.Endpoint,
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: p.account.OAuthRefreshToken}).Token()
	if err != nil {
		return "", err
	}

	p.accessToken = token.AccessToken
	p.tokenExpiry = token.Expiry
	return p.accessToken, nil
}

// ListNew returns the Message-IDs of unread inbox messages.
func (p *IMAPProvider) ListNew(maxResults int) ([]string, error) {
	c, err := p.connect()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("%w: select inbox: %v", ErrProviderFailure, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: search unseen: %v", ErrProviderFailure, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if maxResults > 0 && len(uids) > maxResults {
		uids = uids[len(uids)-maxResults:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{imap.FetchEnvelope}, messages)
	}()

	var ids []string
	for msg := range messages {
		if msg.Envelope == nil || msg.Envelope.MessageId == "" {
			continue
		}
		ids = append(ids, trimMessageID(msg.Envelope.MessageId))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: fetch envelopes: %v", ErrProviderFailure, err)
	}

	return ids, nil
}

// Fetch retrieves the full message with the given Message-ID.
func (p *IMAPProvider) Fetch(msgID string) (*RawMessage, error) {
	c, err := p.connect()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	uid, err := p.findUID(c, msgID)
	if err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var source []byte
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		source, err = io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrProviderFailure, err)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: fetch message: %v", ErrProviderFailure, err)
	}
	if len(source) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, msgID)
	}

	return &RawMessage{ID: msgID, Source: source}, nil
}

// findUID resolves a Message-ID to the mailbox UID. The caller must have
// connected; findUID selects INBOX itself.
func (p *IMAPProvider) findUID(c *client.Client, msgID string) (uint32, error) {
	if _, err := c.Select("INBOX", false); err != nil {
		return 0, fmt.Errorf("%w: select inbox: %v", ErrProviderFailure, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-Id", msgID)
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return 0, fmt.Errorf("%w: search by message id: %v", ErrProviderFailure, err)
	}
	if len(uids) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrMessageNotFound, msgID)
	}
	return uids[0], nil
}

// Normalize parses an RFC822 message into the shared value type.
func (p *IMAPProvider) Normalize(raw *RawMessage) (NormalizedMessage, error) {
	if raw == nil {
		return NormalizedMessage{}, fmt.Errorf("%w: nil message", ErrProviderFailure)
	}
	if raw.Parsed != nil {
		return *raw.Parsed, nil
	}

	mr, err := gomail.CreateReader(strings.NewReader(string(raw.Source)))
	if err != nil {
		return NormalizedMessage{}, fmt.Errorf("%w: parse message: %v", ErrProviderFailure, err)
	}

	header := mr.Header
	fromRaw := header.Get("From")
	fromAddr, fromName := NormalizeAddress(fromRaw)
	toAddr, _ := NormalizeAddress(header.Get("To"))
	subject, _ := header.Subject()

	msg := NormalizedMessage{
		ID:       raw.ID,
		From:     fromAddr,
		FromName: fromName,
		FromRaw:  fromRaw,
		To:       toAddr,
		Subject:  subject,
	}

	msg.ThreadID = threadIDFromHeaders(header.Get("References"), header.Get("In-Reply-To"), raw.ID)
	msg.Body = extractTextBody(mr)
	msg.Snippet = makeSnippet(msg.Body)

	return msg, nil
}

// extractTextBody walks the message parts and returns the first
// text/plain part, falling back to text/html.
func extractTextBody(mr *gomail.Reader) string {
	var htmlBody string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		inline, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		ctype, _, _ := inline.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch ctype {
		case "text/plain":
			return normalizeLineEndings(string(data))
		case "text/html":
			if htmlBody == "" {
				htmlBody = normalizeLineEndings(string(data))
			}
		}
	}
	return htmlBody
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// threadIDFromHeaders derives a stable conversation ID: the root of the
// References chain, else the replied-to message, else the message itself.
func threadIDFromHeaders(references, inReplyTo, own string) string {
	if refs := strings.Fields(references); len(refs) > 0 {
		return trimMessageID(refs[0])
	}
	if inReplyTo != "" {
		return trimMessageID(inReplyTo)
	}
	return own
}

func trimMessageID(s string) string {
	return strings.Trim(strings.TrimSpace(s), "<>")
}

// Send delivers a message via SMTP. When threadID is non-empty the
// In-Reply-To and References headers thread the message under the
// existing conversation.
func (p *IMAPProvider) Send(to, subject, body, threadID string) (SentMessage, error) {
	msgID := fmt.Sprintf("%s@%s", uuid.NewString(), p.account.SMTPHost)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", p.account.Address)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", msgID)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	if threadID != "" {
		fmt.Fprintf(&b, "In-Reply-To: <%s>\r\n", threadID)
		fmt.Fprintf(&b, "References: <%s>\r\n", threadID)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	if err := p.sendViaSMTP([]string{to}, b.String()); err != nil {
		return SentMessage{}, err
	}

	if threadID == "" {
		threadID = msgID
	}
	return SentMessage{ID: msgID, ThreadID: threadID}, nil
}

// sendViaSMTP performs the SMTP conversation. Providers that reject
// PLAIN auth get a LOGIN retry.
func (p *IMAPProvider) sendViaSMTP(recipients []string, content string) error {
	addr := fmt.Sprintf("%s:%d", p.account.SMTPHost, p.account.SMTPPort)

	var c *smtp.Client
	if p.account.UseSSL {
		tlsConfig := &tls.Config{ServerName: p.account.SMTPHost}
		conn, err := tls.DialWithDialer(&net.Dialer{Timeout: connectionTimeout}, "tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("%w: smtp connect: %v", ErrProviderFailure, err)
		}
		c, err = smtp.NewClient(conn, p.account.SMTPHost)
		if err != nil {
			conn.Close()
			return fmt.Errorf("%w: smtp client: %v", ErrProviderFailure, err)
		}
	} else {
		var err error
		c, err = smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("%w: smtp connect: %v", ErrProviderFailure, err)
		}
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: p.account.SMTPHost}); err != nil {
				c.Close()
				return fmt.Errorf("%w: starttls: %v", ErrProviderFailure, err)
			}
		}
	}
	defer c.Close()

	auth := smtp.PlainAuth("", p.account.Username, p.account.Password, p.account.SMTPHost)
	if err := c.Auth(auth); err != nil {
		// Some providers only accept LOGIN auth
		if err2 := c.Auth(newLoginAuth(p.account.Username, p.account.Password)); err2 != nil {
			return fmt.Errorf("%w: authentication failed (tried PLAIN and LOGIN): %v", ErrProviderFailure, err)
		}
	}

	if err := c.Mail(p.account.Address); err != nil {
		return fmt.Errorf("%w: MAIL FROM failed: %v", ErrProviderFailure, err)
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("%w: RCPT TO failed for %s: %v", ErrProviderFailure, rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("%w: DATA failed: %v", ErrProviderFailure, err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		return fmt.Errorf("%w: write failed: %v", ErrProviderFailure, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: close failed: %v", ErrProviderFailure, err)
	}

	// The message is already accepted; some servers return odd responses
	// to QUIT, so the error is ignored.
	c.Quit()
	return nil
}

// Archive moves the message out of the inbox into the archive mailbox.
func (p *IMAPProvider) Archive(msgID string) error {
	c, err := p.connect()
	if err != nil {
		return err
	}
	defer c.Logout()

	uid, err := p.findUID(c, msgID)
	if err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	// Create the archive mailbox if missing; already-exists errors are
	// expected and ignored.
	_ = c.Create(archiveMailbox)

	if err := c.UidCopy(seqset, archiveMailbox); err != nil {
		return fmt.Errorf("%w: copy to archive: %v", ErrProviderFailure, err)
	}

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(seqset, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("%w: flag deleted: %v", ErrProviderFailure, err)
	}
	if err := c.Expunge(nil); err != nil {
		return fmt.Errorf("%w: expunge: %v", ErrProviderFailure, err)
	}
	return nil
}

// MarkRead adds the \Seen flag to the message.
func (p *IMAPProvider) MarkRead(msgID string) error {
	c, err := p.connect()
	if err != nil {
		return err
	}
	defer c.Logout()

	uid, err := p.findUID(c, msgID)
	if err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("%w: flag seen: %v", ErrProviderFailure, err)
	}
	return nil
}

// xoAuth2Client implements the SASL XOAUTH2 mechanism
type xoAuth2Client struct {
	username    string
	accessToken string
}

func newXOAuth2Client(username, accessToken string) *xoAuth2Client {
	return &xoAuth2Client{username: username, accessToken: accessToken}
}

// Start begins the XOAUTH2 authentication
func (c *xoAuth2Client) Start() (mech string, ir []byte, err error) {
	ir = []byte(fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", c.username, c.accessToken))
	return "XOAUTH2", ir, nil
}

// Next handles server challenges (XOAUTH2 has none)
func (c *xoAuth2Client) Next(challenge []byte) (response []byte, err error) {
	return nil, nil
}

// loginAuth implements the SMTP LOGIN authentication mechanism
type loginAuth struct {
	username, password string
}

func newLoginAuth(username, password string) smtp.Auth {
	return &loginAuth{username, password}
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", []byte{}, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		switch strings.ToLower(strings.TrimSpace(string(fromServer))) {
		case "username:":
			return []byte(a.username), nil
		case "password:":
			return []byte(a.password), nil
		default:
			return []byte(a.username), nil
		}
	}
	return nil, nil
}
