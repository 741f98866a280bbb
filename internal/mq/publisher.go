package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Command is the fixed-shape message published to a device's cmd topic:
// either a force directive or a buzzer toggle, never both
type Command struct {
	Force  string `json:"force,omitempty"`
	Buzzer *bool  `json:"buzzer,omitempty"`
}

// ForcePedGreen is the only force directive controllers accept
const ForcePedGreen = "ped_green"

// CommandPublisher publishes command messages to per-device cmd topics
type CommandPublisher struct {
	conn     *Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewCommandPublisher creates a publisher on the command exchange
func NewCommandPublisher(conn *Connection, exchange string, logger *zap.Logger) (*CommandPublisher, error) {
	ch, err := conn.PublishChannel()
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(exchange, "amq.") {
		err = ch.ExchangeDeclare(
			exchange,
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

	return &CommandPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// PublishCommand publishes one command to a device's cmd topic
func (p *CommandPublisher) PublishCommand(ctx context.Context, streetID string, deviceID int, cmd Command) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	routingKey := CmdRoutingKey(streetID, deviceID)
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish command: %w", err)
	}

	p.logger.Info("published command",
		zap.String("routing_key", routingKey),
		zap.String("command", string(body)),
	)
	return nil
}

// Close closes the publisher channel
func (p *CommandPublisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
