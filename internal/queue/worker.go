package queue

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type HandlerFunc func(ctx context.Context, body []byte) error

const retryHeader = "x-retry-count"

// ConsumeWithRetry delivers messages from queue to handler until ctx is done
// or the channel closes. A failed message is republished with an incremented
// retry header after retryDelay; past maxRetries it is rejected so the
// queue's dead-letter exchange receives it.
func (c *Client) ConsumeWithRetry(ctx context.Context, queue string, handler HandlerFunc, maxRetries int, retryDelay time.Duration) error {
	if err := c.ch.Qos(16, 0, false); err != nil {
		return err
	}
	msgs, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		var msg amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok = <-msgs:
			if !ok {
				return errors.New("consumer closed")
			}
		}

		if err := handler(ctx, msg.Body); err == nil {
			_ = msg.Ack(false)
			continue
		}

		retryCount := getRetryCount(msg.Headers)
		if retryCount >= maxRetries {
			_ = msg.Nack(false, false)
			continue
		}

		headers := msg.Headers
		if headers == nil {
			headers = amqp.Table{}
		}
		headers[retryHeader] = int32(retryCount + 1)

		select {
		case <-ctx.Done():
			_ = msg.Nack(false, true)
			return ctx.Err()
		case <-time.After(retryDelay):
		}
		if err := c.publish(ctx, "", queue, amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Body:         msg.Body,
			Headers:      headers,
			Timestamp:    time.Now(),
		}); err != nil {
			_ = msg.Nack(false, true)
			continue
		}
		_ = msg.Ack(false)
	}
}

func getRetryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch t := headers[retryHeader].(type) {
	case int32:
		return int(t)
	case int64:
		return int(t)
	case int:
		return t
	}
	return 0
}
