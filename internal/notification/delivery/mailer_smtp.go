package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	apperrors "studentservices-api/internal/common/errors"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	From     string
}

// SMTPMailer sends multipart/alternative mail through an SMTP relay.
type SMTPMailer struct {
	cfg      SMTPConfig
	sendMail func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now      func() time.Time
}

// defaultSMTPTimeout bounds a session when the caller's context has no
// deadline.
const defaultSMTPTimeout = time.Minute

// NewSMTPMailer builds a mailer. With UseTLS the session must upgrade with
// STARTTLS; otherwise STARTTLS is used when the relay offers it.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg, now: time.Now}
	m.sendMail = m.deliver
	return m
}

func (m *SMTPMailer) Name() string { return "smtp" }

func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewDeliveryFailureError(m.Name(), fmt.Errorf("context cancelled before sending email: %w", err))
	}
	if len(msg.To) == 0 {
		return apperrors.NewDeliveryFailureError(m.Name(), fmt.Errorf("no recipients"))
	}

	from := msg.From
	if from == "" {
		from = m.cfg.From
	}
	body, err := m.buildMessage(from, msg)
	if err != nil {
		return apperrors.NewDeliveryFailureError(m.Name(), err)
	}

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.sendMail(ctx, addr, auth, from, msg.To, body); err != nil {
		return apperrors.NewDeliveryFailureError(m.Name(), err)
	}
	return nil
}

func (m *SMTPMailer) buildMessage(from string, msg *Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%s@%s>\r\n", msg.Handle, m.cfg.Host)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=UTF-8", msg.PlainBody},
		{"text/html; charset=UTF-8", msg.HTMLBody},
	} {
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(pw)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deliver runs one SMTP session. The connection deadline follows ctx, and
// cancelling ctx aborts a stalled exchange.
func (m *SMTPMailer) deliver(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = m.now().Add(defaultSMTPTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set SMTP deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP handshake failed: %w", err)
	}
	defer client.Close()

	startTLS := m.cfg.UseTLS
	if !startTLS {
		startTLS, _ = client.Extension("STARTTLS")
	}
	if startTLS {
		if err = client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}
