package email

import (
	"context"
	"log/slog"
)

// Sender is the stand-in delivery transport: it logs the message and reports
// success. Swapping in SES/SMTP means replacing this one type.
type Sender struct {
	log *slog.Logger
}

func NewSender(log *slog.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Deliver(ctx context.Context, recipientEmail, subject, body string) error {
	s.log.Info("email delivered",
		"recipient", recipientEmail,
		"subject", subject,
		"body_bytes", len(body),
	)
	return nil
}
