package proof

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"slices"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/focusproof/internal/model"
)

// maxCandidates bounds how many matching messages are inspected per task.
const maxCandidates = 5

// Tag is the marker a proof email's subject must contain for task id.
func Tag(taskID string) string {
	short := taskID
	if len(short) > 8 {
		short = short[:8]
	}
	return "[fp-" + short + "]"
}

// MailboxConfig holds the IMAP settings for proof intake.
type MailboxConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Mailbox  string
	TLS      bool
	// Insecure dials without TLS, for local bridges.
	Insecure bool
}

// Mailbox finds proof photos mailed to an IMAP inbox. A proof mail is
// matched by the task tag or the task title in its subject and must carry
// an image.
type Mailbox struct {
	cfg MailboxConfig
}

// NewMailbox creates a Mailbox.
func NewMailbox(cfg MailboxConfig) *Mailbox {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &Mailbox{cfg: cfg}
}

// Find returns the newest proof mailed for task, or ErrNoProof.
func (m *Mailbox) Find(ctx context.Context, task model.Task) (Proof, error) {
	found, err := m.FindAll(ctx, []model.Task{task})
	if err != nil {
		return Proof{}, err
	}
	p, ok := found[task.ID]
	if !ok {
		return Proof{}, fmt.Errorf("%s: %w", Tag(task.ID), ErrNoProof)
	}
	return p, nil
}

// FindAll looks for proofs for every task over a single connection and
// returns those found, keyed by task id.
func (m *Mailbox) FindAll(ctx context.Context, tasks []model.Task) (map[string]Proof, error) {
	found := make(map[string]Proof)
	if len(tasks) == 0 {
		return found, nil
	}

	client, err := m.connect()
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(m.cfg.Mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", m.cfg.Mailbox, err)
	}

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		p, ok, err := m.findOne(client, task)
		if err != nil {
			return found, err
		}
		if ok {
			found[task.ID] = p
		}
	}
	return found, nil
}

// connect dials and authenticates.
func (m *Mailbox) connect() (*imapclient.Client, error) {
	addr := m.cfg.Host + ":" + m.cfg.Port

	var client *imapclient.Client
	var err error
	switch {
	case m.cfg.Insecure:
		var conn net.Conn
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			client = imapclient.New(conn, nil)
		}
	case m.cfg.TLS:
		client, err = imapclient.DialTLS(addr, nil)
	default:
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(m.cfg.Username, m.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", m.cfg.Username, err)
	}
	return client, nil
}

// subjectContains matches messages whose subject contains value.
func subjectContains(value string) imap.SearchCriteria {
	return imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{Key: "Subject", Value: value}},
	}
}

// findOne returns the image from the newest message for task, skipping
// candidates without one.
func (m *Mailbox) findOne(client *imapclient.Client, task model.Task) (Proof, bool, error) {
	criteria := &imap.SearchCriteria{}
	if title := strings.TrimSpace(task.Title); title != "" {
		criteria.Or = [][2]imap.SearchCriteria{{subjectContains(Tag(task.ID)), subjectContains(title)}}
	} else {
		*criteria = subjectContains(Tag(task.ID))
	}
	if task.StartTime != nil {
		criteria.Since = *task.StartTime
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return Proof{}, false, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	slices.Reverse(uids)
	if len(uids) > maxCandidates {
		uids = uids[:maxCandidates]
	}

	for _, uid := range uids {
		raw, err := fetchBody(client, uid)
		if err != nil {
			return Proof{}, false, err
		}
		mimeType, data, name, ok := extractImage(raw)
		if !ok {
			continue
		}
		p, err := FromBytes(data, mimeType, fmt.Sprintf("mail %d: %s", uid, name))
		if err != nil {
			continue
		}
		return p, true, nil
	}
	return Proof{}, false, nil
}

// fetchBody fetches the full RFC 822 message for uid without marking it read.
func fetchBody(client *imapclient.Client, uid imap.UID) ([]byte, error) {
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}
	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}
	raw := buf.FindBodySection(bodySection)

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("closing fetch: %w", err)
	}
	return raw, nil
}

// extractImage returns the first image part of a raw message, whether
// attached or inline.
func extractImage(raw []byte) (mimeType string, data []byte, name string, ok bool) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", nil, "", false
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
			return "", nil, "", false
		}

		var contentType string
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ = h.ContentType()
			name = "inline"
		case *mail.AttachmentHeader:
			contentType, _, _ = h.ContentType()
			name, _ = h.Filename()
		}
		if !strings.HasPrefix(contentType, "image/") {
			continue
		}

		body, err := io.ReadAll(io.LimitReader(part.Body, MaxImageBytes+1))
		if err != nil || len(body) == 0 {
			continue
		}
		return contentType, body, name, true
	}
}
