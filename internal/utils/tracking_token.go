package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Tracking tokens let a customer follow an order without logging in. The
// payload is "<merchantCode>:<orderNumber>" and the signature is an
// HMAC-SHA256 over the encoded payload.

func signTracking(secret, payload string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func trackingPayload(merchantCode, orderNumber string) string {
	return strings.ToUpper(strings.TrimSpace(merchantCode)) + ":" + strings.TrimSpace(orderNumber)
}

func CreateOrderTrackingToken(secret, merchantCode, orderNumber string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(trackingPayload(merchantCode, orderNumber)))
	return payload + "." + base64.RawURLEncoding.EncodeToString(signTracking(secret, payload))
}

func VerifyOrderTrackingToken(secret, token, merchantCode, orderNumber string) bool {
	payload, sig, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || payload == "" || sig == "" {
		return false
	}
	actual, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(actual, signTracking(secret, payload)) {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return false
	}
	return hmac.Equal(raw, []byte(trackingPayload(merchantCode, orderNumber)))
}
