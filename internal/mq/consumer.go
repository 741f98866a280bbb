package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageHandler is a function that processes a message body
type MessageHandler func(ctx context.Context, body []byte) error

// Consumer drains the state queue. Deliveries on one queue are handled
// strictly in order: a message is acked or dead-lettered before the next
// one is taken, which gives the ingest path its per-subscription FIFO
// semantics. Handler failures never requeue; the message goes to the DLQ
// and processing continues.
type Consumer struct {
	conn          *Connection
	channel       *amqp.Channel
	queue         string
	dlqQueue      string
	exchange      string
	bindingKey    string
	prefetchCount int
	logger        *zap.Logger
	handler       MessageHandler
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Connection    *Connection
	Queue         string
	DLQQueue      string
	Exchange      string
	BindingKey    string
	PrefetchCount int
	Logger        *zap.Logger
	Handler       MessageHandler
}

// NewConsumer declares the state queue topology and creates the consumer
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	ch, err := cfg.Connection.ConsumerChannel(cfg.PrefetchCount)
	if err != nil {
		return nil, err
	}

	// The broker-owned amq.* exchanges already exist and cannot be
	// redeclared with custom arguments
	if !strings.HasPrefix(cfg.Exchange, "amq.") {
		err = ch.ExchangeDeclare(
			cfg.Exchange,
			"topic",
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare exchange: %w", err)
		}
	}

	// Declare main queue
	// Try to declare with DLX, if fails due to precondition, try without DLX
	args := map[string]interface{}{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.DLQQueue,
	}
	_, err = ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		args,
	)
	if err != nil {
		// If queue already exists with different args, try without DLX
		cfg.Logger.Warn("failed to declare queue with DLX, trying without DLX",
			zap.Error(err))
		_, err = ch.QueueDeclare(
			cfg.Queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // no arguments
		)
		if err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare queue: %w", err)
		}
	}

	// Declare DLQ
	_, err = ch.QueueDeclare(
		cfg.DLQQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare DLQ: %w", err)
	}

	// Bind queue to the state topics of every street and device
	err = ch.QueueBind(
		cfg.Queue,
		cfg.BindingKey,
		cfg.Exchange,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &Consumer{
		conn:          cfg.Connection,
		channel:       ch,
		queue:         cfg.Queue,
		dlqQueue:      cfg.DLQQueue,
		exchange:      cfg.Exchange,
		bindingKey:    cfg.BindingKey,
		prefetchCount: cfg.PrefetchCount,
		logger:        cfg.Logger,
		handler:       cfg.Handler,
	}, nil
}

// Start starts consuming messages on a background goroutine so delivery
// of subsequent messages is never stalled by the caller
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consumer started",
		zap.String("queue", c.queue),
		zap.String("binding_key", c.bindingKey),
		zap.Int("prefetch", c.prefetchCount),
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("consumer context cancelled, stopping")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn("message channel closed")
					return
				}
				c.processDelivery(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *Consumer) processDelivery(ctx context.Context, msg amqp.Delivery) {
	fields := []zap.Field{
		zap.String("queue", c.queue),
		zap.String("routing_key", msg.RoutingKey),
		zap.Int("body_size", len(msg.Body)),
	}
	if streetID, deviceID, err := ParseStateRoutingKey(msg.RoutingKey); err == nil {
		fields = append(fields,
			zap.String("street_id", streetID),
			zap.Int("device_id", deviceID),
		)
	}
	c.logger.Info("received telemetry message", fields...)

	err := c.handler(ctx, msg.Body)
	if err != nil {
		c.logger.Error("failed to process message",
			zap.Error(err),
			zap.String("routing_key", msg.RoutingKey),
		)

		// NACK with requeue=false drops the message to the DLQ
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.Error("failed to NACK message", zap.Error(nackErr))
		}
		return
	}

	// ACK message after successful processing
	if ackErr := msg.Ack(false); ackErr != nil {
		c.logger.Error("failed to ACK message", zap.Error(ackErr))
	} else {
		c.logger.Debug("message acknowledged",
			zap.String("routing_key", msg.RoutingKey),
		)
	}
}

// Close closes the consumer channel
func (c *Consumer) Close() error {
	if c.channel != nil {
		return c.channel.Close()
	}
	return nil
}
