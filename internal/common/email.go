package common

import "github.com/rs/zerolog"

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	Send(to, subject, body string) error
}

// InMemoryEmail records messages instead of sending them.
type InMemoryEmail struct {
	Outbox []Email
}

// Email is a single message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(to, subject, body string) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, Body: body})
	return nil
}

// LogEmailSender writes outgoing mail to the log. Used until a mail provider is configured.
type LogEmailSender struct {
	Logger zerolog.Logger
}

// Send implements EmailSender.
func (s LogEmailSender) Send(to, subject, body string) error {
	s.Logger.Info().Str("to", to).Str("subject", subject).Int("body_bytes", len(body)).Msg("email_outbound")
	return nil
}
