package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, body []byte, headers amqp.Table) error {
	return p.channel.PublishWithContext(ctx,
		exchange,
		routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Headers:      headers,
		},
	)
}

func (p *Publisher) Close() error {
	return p.channel.Close()
}

// StatusPublisher publishes job status updates through the exchange.
type StatusPublisher struct {
	pub        *Publisher
	routingKey string
}

func NewStatusPublisher(pub *Publisher, routingKey string) *StatusPublisher {
	return &StatusPublisher{pub: pub, routingKey: routingKey}
}

func (sp *StatusPublisher) PublishStatus(ctx context.Context, msg entity.JobStatusMessage) error {
	body, err := encodeStatus(msg)
	if err != nil {
		return err
	}
	if err := sp.pub.publish(ctx, sp.pub.exchange, sp.routingKey, body, nil); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}

func encodeStatus(msg entity.JobStatusMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	return body, nil
}

// DLQPublisher writes straight to the dead letter queue via the default exchange.
type DLQPublisher struct {
	pub   *Publisher
	queue string
}

func NewDLQPublisher(pub *Publisher, dlqQueue string) *DLQPublisher {
	return &DLQPublisher{pub: pub, queue: dlqQueue}
}

func (dp *DLQPublisher) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	if err := dp.pub.publish(ctx, "", dp.queue, msg, amqp.Table{"x-dlq-reason": reason}); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}
