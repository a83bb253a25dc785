package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is durable queue that notifications are published to
const DefaultQueueName = "notification_queue"

// RabbitMQ publish and consume notifications on a durable queue
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	log     *logrus.Entry
}

// NewRabbitMQ connect to broker at url and declare the queue
func NewRabbitMQ(url string, queueName string, log *logrus.Entry) (*RabbitMQ, error) {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	if log == nil {
		log = logrus.WithField("component", "rabbitmq")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	log.WithField("queue", q.Name).Info("connected to RabbitMQ")
	return &RabbitMQ{conn: conn, channel: ch, queue: q, log: log}, nil
}

// Enqueue implements Publisher
func (r *RabbitMQ) Enqueue(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = r.channel.PublishWithContext(
		ctx,
		"",           // exchange
		r.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Consume deliver every message to handler until ctx is done or the channel is closed.
// Message is acked on success. A failed message is requeued once, then dropped.
func (r *RabbitMQ) Consume(ctx context.Context, handler func(context.Context, Notification) error) error {
	if err := r.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}
	msgs, err := r.channel.Consume(
		r.queue.Name,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			r.handle(ctx, d, handler)
		}
	}
}

func (r *RabbitMQ) handle(ctx context.Context, d amqp.Delivery, handler func(context.Context, Notification) error) {
	var n Notification
	if err := json.Unmarshal(d.Body, &n); err != nil {
		r.log.WithError(err).Warn("invalid notification format")
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, n); err != nil {
		requeue := !d.Redelivered
		r.log.WithError(err).WithFields(logrus.Fields{
			"kind":    n.Kind,
			"requeue": requeue,
		}).Error("failed to deliver notification")
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

// Close release channel and connection
func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		_ = r.conn.Close()
		return err
	}
	return r.conn.Close()
}
