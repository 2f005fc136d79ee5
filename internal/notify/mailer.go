package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// Mailer composes the platform's transactional emails.
type Mailer struct {
	sender EmailSender
}

func NewMailer(sender EmailSender) *Mailer {
	if sender == nil {
		panic("notify: email sender required")
	}
	return &Mailer{sender: sender}
}

// SendWelcome greets a newly registered account.
func (m *Mailer) SendWelcome(ctx context.Context, email string) error {
	body := "Welcome to MediConnect.\n\n" +
		"Your account is ready. Browse hospitals, find doctors and book your next consultation from your dashboard."
	return m.send(ctx, EmailMessage{
		To:      email,
		Subject: "Welcome to MediConnect",
		Body:    body,
		HTML:    "<p>" + strings.ReplaceAll(html.EscapeString(body), "\n\n", "</p><p>") + "</p>",
	})
}

// SendAnnouncement mails a published announcement to the hospital desk.
func (m *Mailer) SendAnnouncement(ctx context.Context, to, hospitalName, title, body string) error {
	subject := fmt.Sprintf("[%s] %s", hospitalName, title)
	if strings.TrimSpace(hospitalName) == "" {
		subject = title
	}
	return m.send(ctx, EmailMessage{
		To:      to,
		ToName:  hospitalName,
		Subject: subject,
		Body:    title + "\n\n" + body,
		HTML:    "<h3>" + html.EscapeString(title) + "</h3><p>" + html.EscapeString(body) + "</p>",
	})
}

func (m *Mailer) send(ctx context.Context, msg EmailMessage) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("notify: recipient required")
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send %q: %w", msg.Subject, err)
	}
	return nil
}
