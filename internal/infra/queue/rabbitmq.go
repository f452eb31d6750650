package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"testimony-digest/internal/domain"
	"testimony-digest/internal/infra/metrics"
)

// RabbitMailQueue публикует исходящие письма в долговечную очередь AMQP.
type RabbitMailQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

var _ domain.MailQueue = (*RabbitMailQueue)(nil)

// NewRabbitMailQueue подключается к брокеру и объявляет очередь.
func NewRabbitMailQueue(amqpURL, queue string) (*RabbitMailQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitMailQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue публикует письмо в очередь.
func (q *RabbitMailQueue) Enqueue(ctx context.Context, email domain.OutboundEmail) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    email.ID,
		Timestamp:    email.CreatedAt,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish email: %w", err)
	}
	return nil
}

// Close освобождает канал и соединение.
func (q *RabbitMailQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
