// Package fees computes the tax, service charge and packaging fee that sit on
// top of an order subtotal.
package fees

import (
	"math"

	"genfity-pricing-service/internal/utils"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
	OrderTypeDelivery = "DELIVERY"
)

type Config struct {
	EnableTax            bool
	TaxPercentage        float64
	EnableServiceCharge  bool
	ServiceChargePercent float64
	EnablePackagingFee   bool
	PackagingFeeAmount   float64
	// PackagingOnDelivery also charges packaging for DELIVERY orders.
	// Customer checkout sets it; POS never does.
	PackagingOnDelivery bool
}

type Breakdown struct {
	TaxAmount           float64 `json:"taxAmount"`
	ServiceChargeAmount float64 `json:"serviceChargeAmount"`
	PackagingFeeAmount  float64 `json:"packagingFeeAmount"`
}

func (b Breakdown) Sum() float64 {
	return utils.Round2(b.TaxAmount + b.ServiceChargeAmount + b.PackagingFeeAmount)
}

func Calculate(subtotal float64, cfg Config, orderType string) Breakdown {
	var out Breakdown
	if cfg.EnableTax && cfg.TaxPercentage > 0 {
		out.TaxAmount = utils.Round2(subtotal * (cfg.TaxPercentage / 100))
	}
	if cfg.EnableServiceCharge && cfg.ServiceChargePercent > 0 {
		out.ServiceChargeAmount = utils.Round2(subtotal * (cfg.ServiceChargePercent / 100))
	}
	if cfg.EnablePackagingFee && cfg.PackagingFeeAmount > 0 && packagingApplies(orderType, cfg.PackagingOnDelivery) {
		out.PackagingFeeAmount = utils.Round2(cfg.PackagingFeeAmount)
	}
	return out
}

// Total is subtotal plus fees minus discount, never below zero.
func Total(subtotal float64, b Breakdown, discount float64) float64 {
	total := utils.Round2(subtotal + b.TaxAmount + b.ServiceChargeAmount + b.PackagingFeeAmount - discount)
	return math.Max(0, total)
}

func packagingApplies(orderType string, onDelivery bool) bool {
	switch orderType {
	case OrderTypeTakeaway:
		return true
	case OrderTypeDelivery:
		return onDelivery
	default:
		return false
	}
}
