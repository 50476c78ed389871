package mailer

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net"
	"net/textproto"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/noah-isme/roadwatch-api/pkg/config"
)

// Message is a plain-text mail with an optional HTML alternative.
type Message struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// SMTPMailer sends mail through an SMTP relay using PLAIN auth.
type SMTPMailer struct {
	cfg  config.MailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer builds a mailer for cfg.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send delivers msg. It fails fast when the relay is not configured.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled() {
		return fmt.Errorf("smtp relay is not configured")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("mail has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, msg.To, m.compose(msg)); err != nil {
		return fmt.Errorf("send mail to %v: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: RoadWatch <" + m.cfg.From + ">\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + headerSafe(msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	if msg.HTMLBody == "" {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(crlf(msg.Body))
		return []byte(b.String())
	}

	var parts bytes.Buffer
	w := multipart.NewWriter(&parts)
	writePart(w, "text/plain", msg.Body)
	writePart(w, "text/html", msg.HTMLBody)
	w.Close() //nolint:errcheck

	b.WriteString("Content-Type: multipart/alternative; boundary=\"" + w.Boundary() + "\"\r\n\r\n")
	b.Write(parts.Bytes())
	return []byte(b.String())
}

// writePart appends one body part. Writes target an in-memory buffer and cannot fail.
func writePart(w *multipart.Writer, contentType, body string) {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType+"; charset=\"UTF-8\"")
	part, err := w.CreatePart(header)
	if err != nil {
		return
	}
	part.Write([]byte(crlf(body))) //nolint:errcheck
}

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
