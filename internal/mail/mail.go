// Package mail delivers account emails.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/groupchat/backend/internal/config"
	"github.com/groupchat/backend/pkg/logger"
)

type Mailer interface {
	SendEmailVerification(ctx context.Context, to, name, link string) error
}

// New returns an SMTP mailer, or a mailer that only logs when no SMTP host
// is configured.
func New(cfg config.MailConfig) Mailer {
	if strings.TrimSpace(cfg.Host) == "" {
		return LogMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

type SMTPMailer struct {
	cfg config.MailConfig
}

func (m *SMTPMailer) SendEmailVerification(ctx context.Context, to, name, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.cfg.From, to, "Confirm your email address", verificationBody(name, link))
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("sending verification email: %w", err)
	}

	logger.Info("verification_email_sent", map[string]interface{}{
		"to": to,
	})
	return nil
}

// LogMailer writes the link to the log instead of sending it.
type LogMailer struct{}

func (LogMailer) SendEmailVerification(_ context.Context, to, _ string, link string) error {
	logger.Info("verification_email_skipped", map[string]interface{}{
		"to":   to,
		"link": link,
	})
	return nil
}

func verificationBody(name, link string) string {
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>Confirm your email address to finish setting up your account:</p><p><a href=\"%s\">Verify email</a></p><p>The link expires shortly. If you did not sign up, ignore this email.</p>",
		htmlEscape(name), link,
	)
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

var htmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;")

func htmlEscape(s string) string {
	return htmlReplacer.Replace(s)
}
