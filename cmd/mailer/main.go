// Воркер mailer читает письма из очереди RabbitMQ и отправляет их по SMTP.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/VitaminP8/blogexpress/internal/config"
	"github.com/VitaminP8/blogexpress/internal/logger"
	"github.com/VitaminP8/blogexpress/internal/mail"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	smtp := mail.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password)
	consumer := mail.NewConsumer(cfg.Mail.AMQPURL, cfg.Mail.Queue, smtp, zl.Named("mailer"))

	zl.Info("mailer started", zap.String("queue", cfg.Mail.Queue))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Fatal("mailer stopped", zap.Error(err))
	}
	zl.Info("mailer stopped")
}
