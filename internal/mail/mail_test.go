// AngelaMos | 2026
// mail_test.go

package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/paywall-blog/internal/config"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(
	_ context.Context,
	params *ses.SendEmailInput,
	_ ...func(*ses.Options),
) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailerBuildsRequest(t *testing.T) {
	t.Parallel()

	client := &fakeSES{}
	m := NewSESMailerWithClient(client, "noreply@example.com")

	msg := ConfirmationMessage("a@test.com", "alice", "https://blog.test/confirm-user?token=abc")
	require.NoError(t, m.Send(context.Background(), msg))

	require.NotNil(t, client.input)
	assert.Equal(t, []string{"a@test.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "noreply@example.com", aws.ToString(client.input.Source))
	assert.Equal(t, msg.Subject, aws.ToString(client.input.Message.Subject.Data))
	assert.Contains(t, aws.ToString(client.input.Message.Body.Text.Data), "token=abc")
	require.NotNil(t, client.input.Message.Body.Html)
}

func TestSESMailerWrapsClientError(t *testing.T) {
	t.Parallel()

	boom := errors.New("throttled")
	m := NewSESMailerWithClient(&fakeSES{err: boom}, "noreply@example.com")

	err := m.Send(context.Background(), Message{To: "a@test.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSendRejectsMissingRecipient(t *testing.T) {
	t.Parallel()

	client := &fakeSES{}
	err := NewSESMailerWithClient(client, "x@y.z").Send(context.Background(), Message{Subject: "s"})
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Nil(t, client.input)

	err = NewLogMailer(nil).Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestLogMailerWritesMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, m.Send(context.Background(), DeletionMessage("a@test.com", "alice", "https://x/delete-user?token=t")))
	assert.Contains(t, buf.String(), "a@test.com")
	assert.Contains(t, buf.String(), "delete-user")
}

func TestLink(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"https://blog.test/confirm-user?token=a%2Bb",
		Link("https://blog.test/", "/confirm-user", "a+b"),
	)
}

func TestMessagesEscapeHTML(t *testing.T) {
	t.Parallel()

	msg := ConfirmationMessage("a@test.com", "<script>", "https://x/?token=1&y=2")
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&amp;y=2")
}

func TestNewSelectsDriver(t *testing.T) {
	t.Parallel()

	m, err := New(context.Background(), config.MailConfig{Driver: "log"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	_, err = New(context.Background(), config.MailConfig{Driver: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}
