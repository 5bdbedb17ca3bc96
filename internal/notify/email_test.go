package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

type fakeSendGrid struct {
	status int
	err    error
	sent   []*mail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func TestNewSendGridSender(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "ops@example.com"}, nil))

	sender := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "ops@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, defaultFromName, sender.fromName)

	custom := NewSendGridSender(SendGridConfig{APIKey: "key", FromName: "Dispatch Bot"}, nil)
	assert.Equal(t, "Dispatch Bot", custom.fromName)
}

func TestSendGridSenderSend(t *testing.T) {
	fake := &fakeSendGrid{status: 202}
	sender := &SendGridSender{client: fake, fromEmail: "ops@example.com", fromName: "Ops", logger: logging.Default()}

	err := sender.Send(context.Background(), EmailMessage{To: "dispatch@example.com", Subject: "Hi", Body: "text"})
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "Hi", fake.sent[0].Subject)

	fake.status = 401
	assert.ErrorContains(t, sender.Send(context.Background(), EmailMessage{To: "x@example.com"}), "status 401")

	fake.err = errors.New("dial tcp")
	assert.ErrorContains(t, sender.Send(context.Background(), EmailMessage{To: "x@example.com"}), "sendgrid send failed")
}

func TestSendGridSenderNilClient(t *testing.T) {
	sender := &SendGridSender{}
	assert.Error(t, sender.Send(context.Background(), EmailMessage{To: "x@example.com"}))
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSenderSend(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))

	fake := &fakeSES{}
	sender := NewSESSender(fake, SESConfig{FromEmail: "ops@example.com"}, nil)
	require.NoError(t, sender.Send(context.Background(), EmailMessage{To: "dispatch@example.com", Subject: "Booked", Body: "text", HTML: "<p>html</p>"}))

	assert.Equal(t, defaultFromName+" <ops@example.com>", aws.ToString(fake.input.FromEmailAddress))
	assert.Equal(t, []string{"dispatch@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "text", aws.ToString(fake.input.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(fake.input.Content.Simple.Body.Html.Data))

	fake.err = errors.New("throttled")
	assert.ErrorContains(t, sender.Send(context.Background(), EmailMessage{To: "x@example.com"}), "SES send failed")
}

func TestStubEmailSender(t *testing.T) {
	assert.NoError(t, NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "x@example.com"}))
}
