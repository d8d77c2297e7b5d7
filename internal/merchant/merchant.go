package merchant

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"genfity-pricing-service/internal/fees"
	"genfity-pricing-service/internal/pricing"
	"genfity-pricing-service/internal/utils"
)

const DefaultCurrency = "AUD"

const (
	ErrMerchantNotFound = "MERCHANT_NOT_FOUND"
	ErrMerchantInactive = "MERCHANT_INACTIVE"
)

type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

func notFound() *Error {
	return &Error{Code: ErrMerchantNotFound, Message: "Merchant not found", Status: http.StatusNotFound}
}

// AssertActive rejects merchants that are not taking orders.
func (c Config) AssertActive() error {
	if !c.IsActive {
		return &Error{Code: ErrMerchantInactive, Message: "Merchant is currently not accepting orders", Status: http.StatusBadRequest}
	}
	return nil
}

type Config struct {
	ID                          int64
	Code                        string
	Name                        string
	Currency                    string
	Timezone                    string
	IsActive                    bool
	ScheduledOrdersEnabled      bool
	EnableTax                   bool
	TaxPercentage               float64
	EnableServiceCharge         bool
	ServiceChargePercent        float64
	EnablePackagingFee          bool
	PackagingFeeAmount          float64
	StockAlertEnabled           bool
	DefaultLowStockThreshold    *int32
	RequireTableNumberForDineIn bool
	Features                    Features
}

// FeeConfig is the merchant's fee settings. Packaging on delivery orders is
// left to the caller.
func (c Config) FeeConfig() fees.Config {
	return fees.Config{
		EnableTax:            c.EnableTax,
		TaxPercentage:        c.TaxPercentage,
		EnableServiceCharge:  c.EnableServiceCharge,
		ServiceChargePercent: c.ServiceChargePercent,
		EnablePackagingFee:   c.EnablePackagingFee,
		PackagingFeeAmount:   c.PackagingFeeAmount,
	}
}

// LowStockThreshold is the merchant default used when an entity has none,
// or nil when stock alerts are off.
func (c Config) LowStockThreshold() *int32 {
	if !c.StockAlertEnabled {
		return nil
	}
	return c.DefaultLowStockThreshold
}

type Features struct {
	CustomItems             pricing.CustomItemSettings
	EditOrderEnabled        bool
	POSDiscountsEnabled     bool
	CustomerVouchersEnabled bool
}

// ParseFeatures reads the merchants.features JSON. Malformed or missing keys
// fall back to everything off.
func ParseFeatures(raw []byte, currency string) Features {
	features := Features{CustomItems: pricing.DefaultCustomItemSettings(currency)}
	if len(raw) == 0 {
		return features
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return features
	}

	pos, _ := data["pos"].(map[string]any)
	if custom, ok := pos["customItems"].(map[string]any); ok {
		if enabled, ok := custom["enabled"].(bool); ok {
			features.CustomItems.Enabled = enabled
		}
		if maxName, ok := custom["maxNameLength"].(float64); ok && maxName > 0 {
			features.CustomItems.MaxNameLength = int(math.Floor(maxName))
		}
		if maxPrice, ok := custom["maxPrice"].(float64); ok && maxPrice > 0 {
			features.CustomItems.MaxPrice = maxPrice
		}
	}
	if editOrder, ok := pos["editOrder"].(map[string]any); ok {
		features.EditOrderEnabled = editOrder["enabled"] == true
	}

	if vouchers, ok := data["orderVouchers"].(map[string]any); ok {
		features.POSDiscountsEnabled = vouchers["posDiscountsEnabled"] == true
		// customer vouchers ride on the POS discount switch
		features.CustomerVouchersEnabled = features.POSDiscountsEnabled && vouchers["customerEnabled"] == true
	}
	return features
}

func normalize(cfg *Config, features []byte) {
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = utils.DefaultTimezone
	}
	cfg.Features = ParseFeatures(features, cfg.Currency)
}
