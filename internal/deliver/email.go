// Package deliver sends the rendered report artifact by email. One
// shot, no retry: the pipeline preserves the artifact locally before
// calling Deliver, so a failed send is always recoverable.
package deliver

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"newsbrief/internal/config"
	"newsbrief/internal/report"
)

// EmailSender delivers artifacts over SMTP with the artifact attached.
// Port 465 uses implicit TLS; anything else negotiates STARTTLS.
type EmailSender struct {
	cfg config.EmailConfig
}

func NewEmailSender(cfg config.EmailConfig) (*EmailSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("email host not configured")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("email from address not configured")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("smtp password not set (SMTP_PASSWORD)")
	}
	return &EmailSender{cfg: cfg}, nil
}

// Deliver sends the artifact to dest, or to the configured recipient
// when dest is empty.
func (s *EmailSender) Deliver(ctx context.Context, artifact *report.Artifact, dest string) error {
	if dest == "" {
		dest = s.cfg.To
	}
	if dest == "" {
		return fmt.Errorf("no recipient configured")
	}

	msg := buildMessage(s.cfg.From, dest, s.cfg.Subject, artifact)

	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL failed: %w", err)
	}
	if err := client.Rcpt(dest); err != nil {
		return fmt.Errorf("smtp RCPT failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	return client.Quit()
}

func (s *EmailSender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	dialer := &net.Dialer{Timeout: 30 * time.Second}

	if s.cfg.Port == 465 {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		tlsConn := tls.Client(conn, &tls.Config{ServerName: s.cfg.Host})
		client, err := smtp.NewClient(tlsConn, s.cfg.Host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("smtp handshake failed: %w", err)
		}
		return client, nil
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp handshake failed: %w", err)
	}
	if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
		client.Close()
		return nil, fmt.Errorf("starttls failed: %w", err)
	}
	return client, nil
}

// buildMessage assembles a multipart MIME message: a short text body
// plus the artifact as a base64 attachment.
func buildMessage(from, to, subject string, artifact *report.Artifact) []byte {
	const boundary = "newsbrief-boundary-7f3a9c"

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString("The latest newsbrief digest is attached.\r\n\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: %s\r\n", artifact.ContentType)
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", artifact.Name)
	buf.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(artifact.Data)))

	fmt.Fprintf(&buf, "\r\n--%s--\r\n", boundary)
	return buf.Bytes()
}

// wrapBase64 folds the encoded attachment at 76 columns per RFC 2045.
func wrapBase64(encoded string) string {
	const lineLen = 76
	var b strings.Builder
	for len(encoded) > lineLen {
		b.WriteString(encoded[:lineLen])
		b.WriteString("\r\n")
		encoded = encoded[lineLen:]
	}
	b.WriteString(encoded)
	return b.String()
}
