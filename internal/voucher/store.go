package voucher

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("voucher not found")

// UsageQuery selects prior discount rows for a template, or for one of its
// codes when CodeID is set.
type UsageQuery struct {
	MerchantID     int64
	TemplateID     int64
	CodeID         *int64
	CustomerID     *int64
	ExcludeOrderID *int64
}

type SourceLabel struct {
	Source Source
	Label  string
}

type Store interface {
	TemplateByID(ctx context.Context, merchantID, templateID int64) (*Template, error)
	CodeByValue(ctx context.Context, merchantID int64, code string) (*Template, *Code, error)
	CountUsage(ctx context.Context, q UsageQuery) (int64, error)
	SumUsage(ctx context.Context, q UsageQuery) (float64, error)
	OrderSources(ctx context.Context, merchantID, orderID int64) ([]SourceLabel, error)
}
