// Package mailer sends transactional mail over SMTP.
package mailer

import (
	"fmt"

	mail "gopkg.in/mail.v2"
)

// Mailer delivers messages through a single SMTP endpoint.
type Mailer struct {
	dialer *mail.Dialer
	from   string
}

// New constructs a Mailer. Username and password may be empty for
// unauthenticated relays (local mailpit, CI).
func New(host string, port int, username, password, from string) *Mailer {
	dialer := mail.NewDialer(host, port, username, password)
	return &Mailer{dialer: dialer, from: from}
}

// Send delivers one plain-text message.
func (m *Mailer) Send(to, subject, body string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}
