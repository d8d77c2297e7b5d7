package voucher

import (
	"strings"
	"time"
)

type Audience string

const (
	AudiencePOS      Audience = "POS"
	AudienceCustomer Audience = "CUSTOMER"
	AudienceBoth     Audience = "BOTH"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED_AMOUNT"
)

// ParseDiscountType defaults anything that is not PERCENTAGE to FIXED_AMOUNT.
func ParseDiscountType(value string) DiscountType {
	if strings.EqualFold(strings.TrimSpace(value), string(DiscountPercentage)) {
		return DiscountPercentage
	}
	return DiscountFixed
}

type Source string

const (
	SourcePOSVoucher      Source = "POS_VOUCHER"
	SourceCustomerVoucher Source = "CUSTOMER_VOUCHER"
	SourceManual          Source = "MANUAL"
)

const ManualDiscountLabel = "Manual discount"

func (s Source) IsVoucher() bool {
	return s == SourcePOSVoucher || s == SourceCustomerVoucher
}

func (s Source) Audience() Audience {
	if s == SourceCustomerVoucher {
		return AudienceCustomer
	}
	return AudiencePOS
}

type Template struct {
	ID                    int64
	Name                  string
	Audience              string
	DiscountType          DiscountType
	DiscountValue         float64
	MaxDiscountAmount     *float64
	MinOrderAmount        *float64
	MaxUsesTotal          *int32
	MaxUsesPerCustomer    *int32
	MaxUsesPerOrder       int32
	TotalDiscountCap      *float64
	RequiresCustomerLogin bool
	AllowedOrderTypes     []string
	ValidFrom             *time.Time
	ValidUntil            *time.Time
	DaysOfWeek            []int
	StartTime             *string
	EndTime               *string
	IncludeAllItems       bool
	ReportCategory        *string
	IsActive              bool
	MenuScopes            []int64
	CategoryScopes        []int64
}

type Code struct {
	ID                 int64
	Code               string
	IsActive           bool
	MaxUsesTotal       *int32
	MaxUsesPerCustomer *int32
	ValidFrom          *time.Time
	ValidUntil         *time.Time
}

// OrderItemInput is one priced line as the resolver sees it. Custom lines
// have MenuID 0 and never match a scoped voucher.
type OrderItemInput struct {
	MenuID      int64
	CategoryIDs []int64
	Subtotal    float64
}

type DiscountResult struct {
	TemplateID        int64        `json:"templateId"`
	CodeID            *int64       `json:"codeId"`
	Code              string       `json:"code,omitempty"`
	Label             string       `json:"label"`
	DiscountType      DiscountType `json:"discountType"`
	DiscountValue     float64      `json:"discountValue"`
	DiscountAmount    float64      `json:"discountAmount"`
	EligibleSubtotal  float64      `json:"eligibleSubtotal"`
	MaxDiscountAmount *float64     `json:"maxDiscountAmount,omitempty"`
}

// StoredDiscount is an order_discounts row as persisted.
type StoredDiscount struct {
	Source              Source       `json:"source"`
	Label               string       `json:"label"`
	DiscountType        DiscountType `json:"discountType"`
	DiscountValue       *float64     `json:"discountValue"`
	DiscountAmount      float64      `json:"discountAmount"`
	VoucherTemplateID   *int64       `json:"voucherTemplateId,omitempty"`
	VoucherCodeID       *int64       `json:"voucherCodeId,omitempty"`
	VoucherCode         *string      `json:"voucherCode,omitempty"`
	AppliedByUserID     *int64       `json:"appliedByUserId,omitempty"`
	AppliedByCustomerID *int64       `json:"-"`
}

// AppliedDiscount is a discount ready to be written as an order_discounts row.
type AppliedDiscount struct {
	Source              Source       `json:"source"`
	Label               string       `json:"label"`
	DiscountType        DiscountType `json:"discountType"`
	DiscountValue       *float64     `json:"discountValue"`
	DiscountAmount      float64      `json:"discountAmount"`
	VoucherTemplateID   *int64       `json:"voucherTemplateId,omitempty"`
	VoucherCodeID       *int64       `json:"voucherCodeId,omitempty"`
	AppliedByUserID     *int64       `json:"-"`
	AppliedByCustomerID *int64       `json:"-"`
}

func FromResult(source Source, result *DiscountResult, userID, customerID *int64) AppliedDiscount {
	value := result.DiscountValue
	templateID := result.TemplateID
	return AppliedDiscount{
		Source:              source,
		Label:               result.Label,
		DiscountType:        result.DiscountType,
		DiscountValue:       &value,
		DiscountAmount:      result.DiscountAmount,
		VoucherTemplateID:   &templateID,
		VoucherCodeID:       result.CodeID,
		AppliedByUserID:     userID,
		AppliedByCustomerID: customerID,
	}
}

func SumAmounts(discounts []AppliedDiscount) float64 {
	var total float64
	for _, d := range discounts {
		total += d.DiscountAmount
	}
	return total
}

// Stored returns the discount as it reads back after being written.
func (d AppliedDiscount) Stored() StoredDiscount {
	return StoredDiscount{
		Source:              d.Source,
		Label:               d.Label,
		DiscountType:        d.DiscountType,
		DiscountValue:       d.DiscountValue,
		DiscountAmount:      d.DiscountAmount,
		VoucherTemplateID:   d.VoucherTemplateID,
		VoucherCodeID:       d.VoucherCodeID,
		AppliedByUserID:     d.AppliedByUserID,
		AppliedByCustomerID: d.AppliedByCustomerID,
	}
}
