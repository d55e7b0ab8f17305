package mailer

import (
	"encoding/json"
	"fmt"

	"auth_api/internal/models"

	"gopkg.in/gomail.v2"
)

const welcomeSubject = "Welcome aboard"

type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	From   string
	sender Sender
}

func New(host string, port int, username, password string) *Mailer {
	return &Mailer{
		From:   username,
		sender: gomail.NewDialer(host, port, username, password),
	}
}

// NewWithSender is used when the SMTP transport is provided by the caller.
func NewWithSender(from string, s Sender) *Mailer {
	return &Mailer{
		From:   from,
		sender: s,
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.From)
	msg.SetHeader("Subject", subject)

	msg.SetBody("text/plain", body)

	return m.sender.DialAndSend(msg)
}

// HandleEvent decodes a queued session event and mails a welcome note for
// new registrations. Other event types are ignored.
func (m *Mailer) HandleEvent(body []byte) error {
	const op = "mailer.HandleEvent"

	var event models.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if event.Type != models.EventUserRegistered || event.Email == "" {
		return nil
	}

	text := fmt.Sprintf("Hi %s,\n\nyour account has been created. You can now log in.\n", event.Username)

	if err := m.Send(event.Email, welcomeSubject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
