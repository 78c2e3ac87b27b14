package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

var errMissingRecipient = errors.New("mail.missing_recipient")

// Message is a transactional email.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, message Message) error
}

type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendMailer delivers mail through the Resend API.
type ResendMailer struct {
	emails resendEmails
}

// NewResendMailer builds a mailer for apiKey.
func NewResendMailer(apiKey string) *ResendMailer {
	return &ResendMailer{emails: resend.NewClient(apiKey).Emails}
}

// Send submits message to Resend.
func (mailer *ResendMailer) Send(ctx context.Context, message Message) error {
	if strings.TrimSpace(message.To) == "" {
		return fmt.Errorf("mail.resend.send: %w", errMissingRecipient)
	}
	_, err := mailer.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    message.From,
		To:      []string{message.To},
		Subject: message.Subject,
		Text:    message.Text,
		Html:    message.HTML,
	})
	if err != nil {
		return fmt.Errorf("mail.resend.send: %w", err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. It serves
// local runs without an email provider key.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (mailer *LogMailer) Send(ctx context.Context, message Message) error {
	mailer.logger.Info("email suppressed",
		zap.String("code", "mail.log.send"),
		zap.String("to", message.To),
		zap.String("subject", message.Subject))
	return nil
}
