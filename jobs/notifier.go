package jobs

import (
	"context"
	"fmt"
)

// Notifier adapts the queue client to the notifier interfaces consumed by
// the auth and users services. Delivery happens in the worker; the request
// only pays for an enqueue.
type Notifier struct {
	client *Client
}

// NewNotifier constructs a Notifier.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Welcome queues the account-created mail.
func (n *Notifier) Welcome(ctx context.Context, email, firstName string) error {
	greeting := "there"
	if firstName != "" {
		greeting = firstName
	}
	_, err := n.client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      email,
		Subject: "Welcome to Aegis",
		Body:    fmt.Sprintf("Hi %s,\n\nYour account has been created. You can sign in now.\n", greeting),
	})
	return err
}

// PasswordChanged queues the password-change notification.
func (n *Notifier) PasswordChanged(ctx context.Context, email string) error {
	_, err := n.client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      email,
		Subject: "Your password was changed",
		Body:    "Your account password was just changed. If this wasn't you, contact an administrator immediately.\n",
	})
	return err
}
