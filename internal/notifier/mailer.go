package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends plain-text mail over authenticated SMTP, matching the
// storefront's Gmail app-password setup.
type SMTPMailer struct {
	Addr string // host:port
	From string // "Susegad Supplies <orders@...>"
	User string
	Pass string
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	host := m.Addr
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Pass, host)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)
	if err := smtp.SendMail(m.Addr, auth, m.User, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp.SendMail: %w", err)
	}
	return nil
}
