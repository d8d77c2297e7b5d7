// Package events publishes order and stock changes after a transaction
// commits. Delivery is best effort; callers log failures and move on.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"genfity-pricing-service/internal/queue"
	"genfity-pricing-service/internal/stock"

	"github.com/google/uuid"
)

const (
	OrderCreated = "order.created"
	OrderUpdated = "order.updated"
	StockChanged = "stock.changed"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// NewID returns a fresh event id. Consumers use it to drop redeliveries.
func NewID() string {
	return uuid.NewString()
}

type OrderEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	MerchantID     int64     `json:"merchantId"`
	OrderID        int64     `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	Status         string    `json:"status"`
	Source         string    `json:"source"`
	TotalAmount    float64   `json:"totalAmount"`
	DiscountAmount float64   `json:"discountAmount"`
	At             time.Time `json:"at"`
}

type StockEvent struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	MerchantID int64          `json:"merchantId"`
	OrderID    int64          `json:"orderId,omitempty"`
	Changes    []stock.Change `json:"changes"`
	At         time.Time      `json:"at"`
}

func (e OrderEvent) EventID() string { return e.ID }
func (e StockEvent) EventID() string { return e.ID }

// AMQPPublisher sends events to the shared topic exchange.
type AMQPPublisher struct {
	Client   *queue.Client
	Exchange string
}

func NewAMQPPublisher(client *queue.Client) *AMQPPublisher {
	return &AMQPPublisher{Client: client, Exchange: queue.EventsExchange}
}

// Publish sends payload as JSON. Payloads carrying an event id have it set as
// the AMQP message id.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	messageID := ""
	if identified, ok := payload.(interface{ EventID() string }); ok {
		messageID = identified.EventID()
	}
	return p.Client.PublishJSONWithID(ctx, p.Exchange, routingKey, messageID, payload)
}

type Handler func(ctx context.Context, body []byte) error

// Bus delivers events in-process. It stands in for the broker when
// RabbitMQ is not configured and is also handy in tests.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

func (b *Bus) Subscribe(routingKey string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[routingKey] = append(b.handlers[routingKey], h)
}

// Publish encodes payload once and hands it to every subscriber of
// routingKey in order. The first handler error is returned after all ran.
func (b *Bus) Publish(ctx context.Context, routingKey string, payload any) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[routingKey]...)
	b.mu.RUnlock()
	if len(handlers) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var first error
	for _, h := range handlers {
		if err := h(ctx, body); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Nop drops everything.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
