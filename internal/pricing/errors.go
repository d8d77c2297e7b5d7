package pricing

import "net/http"

type ErrorCode string

const (
	ErrEmptyItems                 ErrorCode = "EMPTY_ITEMS"
	ErrInvalidQuantity            ErrorCode = "INVALID_QUANTITY"
	ErrInvalidItemType            ErrorCode = "INVALID_ITEM_TYPE"
	ErrMenuNotFound               ErrorCode = "MENU_NOT_FOUND"
	ErrMenuNotAvailable           ErrorCode = "MENU_NOT_AVAILABLE"
	ErrAddonNotFound              ErrorCode = "ADDON_NOT_FOUND"
	ErrAddonNotAvailable          ErrorCode = "ADDON_NOT_AVAILABLE"
	ErrCustomItemsDisabled        ErrorCode = "CUSTOM_ITEMS_DISABLED"
	ErrCustomItemNameRequired     ErrorCode = "CUSTOM_ITEM_NAME_REQUIRED"
	ErrCustomItemNameTooLong      ErrorCode = "CUSTOM_ITEM_NAME_TOO_LONG"
	ErrCustomItemPriceInvalid     ErrorCode = "CUSTOM_ITEM_PRICE_INVALID"
	ErrCustomItemPriceTooHigh     ErrorCode = "CUSTOM_ITEM_PRICE_TOO_HIGH"
	ErrCustomItemAddonsNotAllowed ErrorCode = "CUSTOM_ITEM_ADDONS_NOT_ALLOWED"
)

type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

func validationError(code ErrorCode, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, StatusCode: http.StatusBadRequest, Details: details}
}
