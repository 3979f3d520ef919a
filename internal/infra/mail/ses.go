package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"provisiond/internal/domain"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
)

const charset = "UTF-8"

// sesAPI is the subset of the SES client used here.
type sesAPI interface {
	SendEmailWithContext(ctx aws.Context, input *ses.SendEmailInput, opts ...request.Option) (*ses.SendEmailOutput, error)
}

// SESMailer sends notifications through Amazon SES instead of the
// directory's own mailbox.
type SESMailer struct {
	client sesAPI
	from   string
	log    *slog.Logger
}

func NewSESMailer(region, endpoint, from string, log *slog.Logger) (*SESMailer, error) {
	if from == "" {
		return nil, errors.New("sender address is required")
	}
	cfg := aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return newSESMailer(ses.New(sess), from, log), nil
}

func newSESMailer(client sesAPI, from string, log *slog.Logger) *SESMailer {
	if log == nil {
		log = slog.Default()
	}
	return &SESMailer{client: client, from: from, log: log}
}

func (m *SESMailer) Send(ctx context.Context, msg domain.MailMessage) error {
	input := &ses.SendEmailInput{
		Source:      aws.String(m.from),
		Destination: &ses.Destination{ToAddresses: []*string{aws.String(msg.To)}},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String(charset), Data: aws.String(msg.Subject)},
			Body: &ses.Body{
				Text: &ses.Content{Charset: aws.String(charset), Data: aws.String(msg.Body)},
			},
		},
	}
	out, err := m.client.SendEmailWithContext(ctx, input)
	if err != nil {
		m.log.Error("SES send failed", slog.String("to", msg.To), "err", err)
		return fmt.Errorf("ses send: %w", err)
	}
	m.log.Debug("SES message sent", slog.String("to", msg.To), slog.String("message_id", aws.StringValue(out.MessageId)))
	return nil
}
