package auth

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Mail is a single outbound message
type Mail struct {
	To      string
	Name    string
	Subject string
	Body    string
}

// Mailer delivers account emails such as password reset links.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// LogMailer writes each mail to the log instead of delivering it.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, mail Mail) error {
	log.Info().Str("to", mail.To).Str("name", mail.Name).Str("subject", mail.Subject).Str("body", mail.Body).Msg("Mail sent")
	return nil
}
