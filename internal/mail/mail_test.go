package mail_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/VitaminP8/blogexpress/internal/mail"
	"github.com/VitaminP8/blogexpress/internal/mocks"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

type fakePublisher struct {
	key string
	pub amqp.Publishing
	err error
}

func (p *fakePublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.key = key
	p.pub = msg
	return nil
}

var resetMail = mail.Message{
	From:    "BlogExpress",
	To:      "a@x.com",
	Subject: "Reset Password - BlogExpress",
	Text:    "Blog Express",
	HTML:    "<h1>Link:</h1> http://localhost:8080/api/user/reset-password/token",
}

func TestSMTPMailer_Send(t *testing.T) {
	t.Run("Builds message with headers", func(t *testing.T) {
		dialer := &fakeDialer{}
		mailer := mail.NewSMTPMailerWithDialer(dialer)

		require.NoError(t, mailer.Send(context.Background(), resetMail))
		require.Len(t, dialer.sent, 1)
		assert.Equal(t, []string{"a@x.com"}, dialer.sent[0].GetHeader("To"))
		assert.Equal(t, []string{"Reset Password - BlogExpress"}, dialer.sent[0].GetHeader("Subject"))
	})

	t.Run("Dial error is wrapped", func(t *testing.T) {
		mailer := mail.NewSMTPMailerWithDialer(&fakeDialer{err: errors.New("535 auth failed")})

		err := mailer.Send(context.Background(), resetMail)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "a@x.com")
		assert.Contains(t, err.Error(), "535 auth failed")
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := mail.NewSMTPMailerWithDialer(&fakeDialer{}).Send(ctx, resetMail)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestQueueMailer_Send(t *testing.T) {
	t.Run("Publishes persistent JSON to the queue", func(t *testing.T) {
		pub := &fakePublisher{}
		mailer := mail.NewQueueMailerWithPublisher(pub, "mail.outbound")

		require.NoError(t, mailer.Send(context.Background(), resetMail))
		assert.Equal(t, "mail.outbound", pub.key)
		assert.Equal(t, "application/json", pub.pub.ContentType)
		assert.Equal(t, amqp.Persistent, pub.pub.DeliveryMode)

		var decoded mail.Message
		require.NoError(t, json.Unmarshal(pub.pub.Body, &decoded))
		assert.Equal(t, resetMail, decoded)
	})

	t.Run("Publish error", func(t *testing.T) {
		mailer := mail.NewQueueMailerWithPublisher(&fakePublisher{err: errors.New("channel closed")}, "q")

		assert.ErrorContains(t, mailer.Send(context.Background(), resetMail), "channel closed")
	})
}

func TestConsumer_Handle(t *testing.T) {
	mailer := mocks.NewMockMailer()
	consumer := mail.NewConsumer("amqp://unused", "mail.outbound", mailer, zap.NewNop())

	t.Run("Delivers decoded message", func(t *testing.T) {
		body, err := json.Marshal(resetMail)
		require.NoError(t, err)

		require.NoError(t, consumer.Handle(context.Background(), body))
		require.NotNil(t, mailer.Last())
		assert.Equal(t, resetMail, *mailer.Last())
	})

	t.Run("Rejects garbage", func(t *testing.T) {
		assert.Error(t, consumer.Handle(context.Background(), []byte("{not json")))
	})

	t.Run("Rejects message without recipient", func(t *testing.T) {
		assert.ErrorContains(t, consumer.Handle(context.Background(), []byte(`{"subject":"x"}`)), "recipient")
	})
}

func TestLogMailer_Send(t *testing.T) {
	assert.NoError(t, mail.NewLogMailer(zap.NewNop()).Send(context.Background(), resetMail))
}
