package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Connection is the process-wide AMQP connection. The state consumer and
// the command publisher each open their own channel on it; the connection
// itself closes through the fx lifecycle.
type Connection struct {
	conn *amqp.Connection
}

// NewConnection dials the broker and ties the connection to the fx
// lifecycle
func NewConnection(lc fx.Lifecycle, logger *zap.Logger, url string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Error("broker dial failed, check RABBITMQ_URL and broker health", zap.Error(err))
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	logger.Info("broker connection established")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := conn.Close(); err != nil {
				logger.Error("closing broker connection", zap.Error(err))
				return err
			}
			logger.Info("broker connection closed")
			return nil
		},
	})

	return &Connection{conn: conn}, nil
}

// ConsumerChannel opens a channel with the consumer prefetch applied, so
// the number of unacked deliveries on the state queue stays bounded
func (c *Connection) ConsumerChannel(prefetch int) (*amqp.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consumer channel: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}
	return ch, nil
}

// PublishChannel opens a channel for outbound command publishing
func (c *Connection) PublishChannel() (*amqp.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	return ch, nil
}
