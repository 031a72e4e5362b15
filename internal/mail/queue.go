package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher - часть amqp.Channel, которая нужна для публикации.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueMailer кладет письма в durable очередь; доставкой занимается Consumer.
type QueueMailer struct {
	ch    Publisher
	queue string
}

// NewQueueMailer открывает канал и объявляет очередь. Соединение закрывает вызывающий код.
func NewQueueMailer(conn *amqp.Connection, queue string) (*QueueMailer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	if err := declareQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &QueueMailer{ch: ch, queue: queue}, nil
}

func NewQueueMailerWithPublisher(p Publisher, queue string) *QueueMailer {
	return &QueueMailer{ch: p, queue: queue}
}

func (m *QueueMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal mail failed: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key = имя очереди
	if err := m.ch.PublishWithContext(ctx, "", m.queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	return nil
}

func declareQueue(ch *amqp.Channel, queue string) error {
	// durable, чтобы письма пережили перезапуск брокера
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: queue declare failed: %w", err)
	}
	return nil
}

// Consumer читает письма из очереди и отправляет их через Mailer.
type Consumer struct {
	url    string
	queue  string
	mailer Mailer
	logger *zap.Logger
}

func NewConsumer(url, queue string, mailer Mailer, logger *zap.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, mailer: mailer, logger: logger}
}

// Run переподключается к брокеру с экспоненциальной задержкой, пока не отменен ctx.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.logger.Warn("set QoS failed", zap.Error(err))
	}
	if err := declareQueue(ch, c.queue); err != nil {
		return err
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.logger.Error("mail delivery failed", zap.Error(err))
				_ = d.Nack(false, false) // не возвращаем в очередь, чтобы не зациклиться
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle декодирует одно сообщение из очереди и отправляет его.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode mail: %w", err)
	}
	if msg.To == "" {
		return errors.New("mail has no recipient")
	}
	if err := c.mailer.Send(ctx, msg); err != nil {
		return err
	}
	c.logger.Info("mail delivered", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
