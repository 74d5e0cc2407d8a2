// Package contacts is the admin inbox for contact-form messages.
package contacts

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/backend"
)

var (
	ErrReplyIncomplete = errors.New("contacts: subject and reply message are required")
	ErrNoMessage       = errors.New("contacts: no message selected")
)

type API interface {
	Contacts(ctx context.Context) ([]backend.Contact, error)
	DeleteContact(ctx context.Context, id string) error
	SetContactReplied(ctx context.Context, id string, replied bool) error
	ReplyContact(ctx context.Context, id, subject, body string) error
}

// Search keeps messages whose name, email, message or subject contains q,
// ignoring case. An empty q keeps everything.
func Search(list []backend.Contact, q string) []backend.Contact {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return list
	}
	out := []backend.Contact{}
	for _, m := range list {
		for _, f := range []string{m.Name, m.Email, m.Message, m.Subject} {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// ReplySubject is the prefilled subject for answering m.
func ReplySubject(m backend.Contact) string {
	about := m.Subject
	if about == "" {
		about = m.Name
	}
	if about == "" {
		about = "Your message"
	}
	return "Re: " + about
}

// Reply sends a trimmed reply. The backend emails the customer and marks
// the message replied.
func Reply(ctx context.Context, api API, id, subject, body string) error {
	subject, body = strings.TrimSpace(subject), strings.TrimSpace(body)
	if subject == "" || body == "" {
		return ErrReplyIncomplete
	}
	if strings.TrimSpace(id) == "" {
		return ErrNoMessage
	}
	return api.ReplyContact(ctx, id, subject, body)
}

// ToggleReplied flips the replied flag from its current value.
func ToggleReplied(ctx context.Context, api API, m backend.Contact) error {
	return api.SetContactReplied(ctx, m.ID, !m.Replied)
}
