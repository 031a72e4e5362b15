// Package mail отправляет письма пользователям: напрямую по SMTP, через очередь RabbitMQ
// (письма доставляет cmd/mailer) или в лог при локальной разработке.
package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Message - письмо с текстовой и HTML частями.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Dialer - часть gomail.Dialer, которой достаточно для отправки.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer отправляет письма через SMTP сервер (STARTTLS на 587 порту).
type SMTPMailer struct {
	dialer Dialer
}

func NewSMTPMailer(host string, port int, user, password string) *SMTPMailer {
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, password)}
}

// NewSMTPMailerWithDialer используется в тестах.
func NewSMTPMailerWithDialer(d Dialer) *SMTPMailer {
	return &SMTPMailer{dialer: d}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(buildMessage(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}

func buildMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m
}

// LogMailer только пишет письмо в лог.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail not delivered, log transport",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("html", msg.HTML),
	)
	return nil
}
