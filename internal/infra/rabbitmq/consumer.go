package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageHandler returns an error when the delivery should be requeued.
type MessageHandler func(ctx context.Context, body []byte) error

const maxBackoff = 60 * time.Second

type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	exchange    string
	workerCount int
	baseDelay   time.Duration
	handler     MessageHandler
	logger      *zap.Logger
	wg          sync.WaitGroup
}

type ConsumerConfig struct {
	URL         string
	Queue       string
	Exchange    string
	DLQ         string
	StatusQueue string
	Prefetch    int
	WorkerCount int
	BaseDelayMs int
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{cfg.Queue, cfg.DLQ, cfg.StatusQueue} {
		_, err = ch.QueueDeclare(q, true, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	// Routing keys match queue names.
	for _, q := range []string{cfg.Queue, cfg.StatusQueue} {
		if err := ch.QueueBind(q, q, cfg.Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("bind queue %s: %w", q, err)
		}
	}

	err = ch.Qos(cfg.Prefetch, 0, false)
	if err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       cfg.Queue,
		exchange:    cfg.Exchange,
		workerCount: cfg.WorkerCount,
		baseDelay:   time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		handler:     handler,
		logger:      logger,
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue,
		"",
		false, // autoAck=false
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("starting worker pool",
		zap.Int("workers", c.workerCount),
		zap.String("queue", c.queue),
	)

	for i := 0; i < c.workerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, waiting for workers to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			c.processDelivery(ctx, d, log)
		}
	}
}

func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	err := c.handler(ctx, d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	attempt := deliveryAttempt(d, err)
	delay := c.calculateBackoff(attempt)
	log.Warn("message processing failed, requeueing after backoff",
		zap.Error(err),
		zap.Uint64("delivery_tag", d.DeliveryTag),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
	)

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		// Shutting down: hand the message back so another consumer picks it up.
	}
	_ = d.Nack(false, true)
}

// attempter is implemented by handler errors that know which attempt failed.
type attempter interface {
	RetryAttempt() int
}

// deliveryAttempt prefers the attempt reported by the handler, then the
// broker's x-death history.
func deliveryAttempt(d amqp.Delivery, err error) int {
	var a attempter
	if errors.As(err, &a) && a.RetryAttempt() > 0 {
		return a.RetryAttempt()
	}

	deaths, ok := d.Headers["x-death"].([]interface{})
	if !ok || len(deaths) == 0 {
		return 1
	}
	attempt := 0
	for _, death := range deaths {
		if table, ok := death.(amqp.Table); ok {
			if n, ok := table["count"].(int64); ok && n > 0 {
				attempt += int(n)
				continue
			}
		}
		attempt++
	}
	return attempt
}

func (c *Consumer) calculateBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 32 {
		return maxBackoff
	}
	delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay <= 0 || delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
