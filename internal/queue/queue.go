package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client wraps one AMQP connection and channel. A channel must not be used
// by concurrent publishers, so publishes are serialised.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	publishMu sync.Mutex
	closeOnce sync.Once
}

func New(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.ch != nil {
			_ = c.ch.Close()
		}
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

func (c *Client) EnsureExchange(name string) error {
	return c.EnsureExchangeKind(name, "topic")
}

func (c *Client) EnsureExchangeKind(name string, kind string) error {
	if kind == "" {
		kind = "topic"
	}
	return c.ch.ExchangeDeclare(name, kind, true, false, false, false, nil)
}

func (c *Client) EnsureQueue(name string) (amqp.Queue, error) {
	return c.EnsureQueueWithArgs(name, nil)
}

func (c *Client) EnsureQueueWithArgs(name string, args amqp.Table) (amqp.Queue, error) {
	return c.ch.QueueDeclare(name, true, false, false, false, args)
}

func (c *Client) BindQueue(queueName, exchange, routingKey string) error {
	return c.ch.QueueBind(queueName, routingKey, exchange, false, nil)
}

// PublishJSON publishes payload as a persistent JSON message.
func (c *Client) PublishJSON(ctx context.Context, exchange, routingKey string, payload any) error {
	return c.PublishJSONWithID(ctx, exchange, routingKey, "", payload)
}

func (c *Client) PublishJSONWithID(ctx context.Context, exchange, routingKey, messageID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.publish(ctx, exchange, routingKey, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Body:         body,
		Timestamp:    time.Now(),
	})
}

func (c *Client) publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	return c.ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}
