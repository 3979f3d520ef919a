package mail

import (
	"context"
	"errors"
	"testing"

	"provisiond/internal/domain"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmailWithContext(_ aws.Context, input *ses.SendEmailInput, _ ...request.Option) (*ses.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailer_Send(t *testing.T) {
	fake := &fakeSES{}
	mailer := newSESMailer(fake, "no-reply@awscommunity.mx", nil)

	err := mailer.Send(context.Background(), domain.MailMessage{To: "david@example.com", Subject: "Hola", Body: "Bienvenido"})
	require.NoError(t, err)
	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	require.Equal(t, "no-reply@awscommunity.mx", aws.StringValue(in.Source))
	require.Equal(t, "david@example.com", aws.StringValue(in.Destination.ToAddresses[0]))
	require.Equal(t, "Bienvenido", aws.StringValue(in.Message.Body.Text.Data))

	fake.err = errors.New("MessageRejected")
	require.Error(t, mailer.Send(context.Background(), domain.MailMessage{To: "x@example.com"}))
}

func TestNewSESMailer_RequiresSender(t *testing.T) {
	_, err := NewSESMailer("us-east-1", "", "", nil)
	require.Error(t, err)
}
