// Command notifier consumes the notification queue and delivers email and WhatsApp messages.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"talentpool-backend/internal/config"
	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/logging"
	"talentpool-backend/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.RabbitMQURL == "" {
		log.Fatal("RABBITMQ_URL is required")
	}

	dispatcher := &queue.Dispatcher{
		Mailer:   integrations.NewMailer(cfg.Email.APIURL, cfg.Email.APIKey, cfg.Email.From),
		WhatsApp: integrations.NewWhatsApp(cfg.WhatsAppAPIURL, cfg.WhatsAppToken, cfg.WhatsAppPhoneID),
		Log:      logging.Component(log, "dispatcher"),
	}
	for _, kind := range []string{queue.KindEmail, queue.KindWhatsApp} {
		if !dispatcher.CanSend(kind) {
			log.WithField("kind", kind).Warn("sender not configured, messages of this kind are dropped")
		}
	}

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL, queue.DefaultQueueName, logging.Component(log, "rabbitmq"))
	if err != nil {
		log.WithError(err).Fatal("failed to connect to queue")
	}
	defer func() {
		if err := mq.Close(); err != nil {
			log.WithError(err).Warn("failed to close queue connection")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("waiting for notifications")
	err = mq.Consume(ctx, func(ctx context.Context, n queue.Notification) error {
		err := dispatcher.Dispatch(ctx, n)
		if errors.Is(err, integrations.ErrDisabled) {
			log.WithField("kind", n.Kind).Warn("dropping notification of disabled kind")
			return nil
		}
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("consumer stopped")
		return
	}
	log.Info("notifier exited")
}
