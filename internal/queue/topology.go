package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "genfity.events"

	PricingDeadExchange = "genfity.pricing.dlx"
	StockQueue          = "genfity.pricing.stock"
	StockDLQ            = "genfity.pricing.stock.dlq"
	StockDeadRK         = "stock.dead"
)

// EnsurePricingTopology declares the events exchange and the stock fan-out
// queue bound to stock.* keys, with rejected messages parked on a DLQ.
func EnsurePricingTopology(qc *Client) error {
	if qc == nil {
		return nil
	}
	if err := qc.EnsureExchange(EventsExchange); err != nil {
		return err
	}

	if err := qc.EnsureExchangeKind(PricingDeadExchange, "direct"); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(StockDLQ); err != nil {
		return err
	}
	if err := qc.BindQueue(StockDLQ, PricingDeadExchange, StockDeadRK); err != nil {
		return err
	}

	if _, err := qc.EnsureQueueWithArgs(StockQueue, amqp.Table{
		"x-dead-letter-exchange":    PricingDeadExchange,
		"x-dead-letter-routing-key": StockDeadRK,
	}); err != nil {
		return err
	}
	return qc.BindQueue(StockQueue, EventsExchange, "stock.*")
}
