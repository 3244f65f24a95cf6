package reminder

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"
)

// SMTPConfig holds the SMTP server settings for reminder mail.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       string

	// TLS selects implicit TLS; otherwise STARTTLS is used.
	TLS bool
}

const dialTimeout = 30 * time.Second

// Mailer emails reminders.
type Mailer struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewMailer creates a Mailer. From defaults to the username.
func NewMailer(cfg SMTPConfig) (*Mailer, error) {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Host == "" || cfg.Port == "" || cfg.To == "" || cfg.From == "" {
		return nil, errors.New("smtp host, port, from and to are required")
	}
	return &Mailer{cfg: cfg, now: time.Now}, nil
}

// Notify sends r as a plain text email.
func (m *Mailer) Notify(ctx context.Context, r Reminder) error {
	msg, err := m.compose(r)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	if m.cfg.TLS {
		return m.sendWithTLS(ctx, addr, msg)
	}
	return m.sendWithStartTLS(ctx, addr, msg)
}

// compose renders r as an RFC 5322 message.
func (m *Mailer) compose(r Reminder) ([]byte, error) {
	var h mail.Header
	h.SetDate(m.now())
	h.SetAddressList("From", []*mail.Address{{Address: m.cfg.From}})
	h.SetAddressList("To", []*mail.Address{{Address: m.cfg.To}})
	h.SetSubject(r.Title)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("X-Focusproof-Task", r.TaskID)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\r\n\r\n%s\r\n", r.Body, r.Date); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}
	return buf.Bytes(), nil
}

// sendWithTLS sends over an implicit TLS connection.
func (m *Mailer) sendWithTLS(ctx context.Context, addr string, msg []byte) error {
	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: dialTimeout},
		Config:    &tls.Config{ServerName: m.cfg.Host},
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("TLS dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	return m.deliver(client, msg)
}

// sendWithStartTLS sends after upgrading a plain connection.
func (m *Mailer) sendWithStartTLS(ctx context.Context, addr string, msg []byte) error {
	d := &net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
		return fmt.Errorf("SMTP STARTTLS: %w", err)
	}

	return m.deliver(client, msg)
}

// deliver authenticates and sends msg on an open client.
func (m *Mailer) deliver(client *smtp.Client, msg []byte) error {
	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := client.Rcpt(m.cfg.To); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
