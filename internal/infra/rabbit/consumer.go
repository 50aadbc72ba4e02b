package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"care-companion/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is used when no queue name is configured.
const DefaultQueue = "care.push"

// PushHandler receives decoded push envelopes.
type PushHandler interface {
	DeliverPush(ctx context.Context, env domain.PushEnvelope) error
}

// Consumer feeds push messages from a durable RabbitMQ queue into a PushHandler.
type Consumer struct {
	url     string
	queue   string
	handler PushHandler
	tag     string
}

func NewConsumer(url, queue string, handler PushHandler) *Consumer {
	if strings.TrimSpace(queue) == "" {
		queue = DefaultQueue
	}
	return &Consumer{
		url:     url,
		queue:   queue,
		handler: handler,
		tag:     "care-companion-" + uuid.NewString(),
	}
}

// Run consumes until ctx is canceled or the broker closes the channel.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	queue, err := ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}

	msgs, err := ch.Consume(
		queue.Name,
		c.tag,
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue.Name, err)
	}
	log.Printf("consuming push messages from %s as %s", queue.Name, c.tag)

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(c.tag, false)
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				log.Printf("push message dropped: %v", err)
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var env domain.PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	return c.handler.DeliverPush(ctx, env)
}
