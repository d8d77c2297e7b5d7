package orders

import (
	"errors"
	"net/http"
)

const (
	ErrOrderNotFound          = "ORDER_NOT_FOUND"
	ErrOrderNotEditable       = "ORDER_NOT_EDITABLE"
	ErrOrderTypeNotSupported  = "ORDER_TYPE_NOT_SUPPORTED"
	ErrOrderTypeMismatch      = "ORDER_TYPE_MISMATCH"
	ErrInvalidOrderType       = "INVALID_ORDER_TYPE"
	ErrOrderAlreadyPaid       = "ORDER_ALREADY_PAID"
	ErrEditOrderDisabled      = "EDIT_ORDER_DISABLED"
	ErrTableNumberRequired    = "TABLE_NUMBER_REQUIRED"
	ErrVouchersDisabled       = "VOUCHERS_DISABLED"
	ErrScheduledDisabled      = "SCHEDULED_ORDERS_DISABLED"
	ErrInvalidScheduledTime   = "INVALID_SCHEDULED_TIME"
	ErrInvalidPaymentMethod   = "INVALID_PAYMENT_METHOD"
	ErrCustomerRequired       = "CUSTOMER_REQUIRED"
	ErrDeliveryAddressMissing = "DELIVERY_ADDRESS_REQUIRED"
	ErrInvalidDiscount        = "INVALID_DISCOUNT"
	ErrOrderModified          = "ORDER_MODIFIED"
)

// ErrNoOrder is returned by a Tx when the order does not exist for the
// merchant.
var ErrNoOrder = errors.New("order not found")

type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

func (e *Error) Error() string { return e.Message }

func badRequest(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: http.StatusBadRequest}
}

func notFound() *Error {
	return &Error{Code: ErrOrderNotFound, Message: "Order not found", Status: http.StatusNotFound}
}

func conflictModified() *Error {
	return &Error{Code: ErrOrderModified, Message: "Order was changed by another request. Reload and try again.", Status: http.StatusConflict}
}
