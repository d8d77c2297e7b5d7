package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
)

const maxRequestIDLength = 128

type requestIDKey struct{}

// RequestID reuses an upstream X-Request-Id or X-Correlation-Id and mints one
// otherwise. The id is echoed on the response and stored on the context.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := readRequestIDHeader(r)
			if requestID == "" {
				requestID = generateRequestID()
			}
			r.Header.Set("X-Request-Id", requestID)
			w.Header().Set("X-Request-Id", requestID)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID)))
		})
	}
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func readRequestIDHeader(r *http.Request) string {
	for _, key := range []string{"X-Request-Id", "X-Correlation-Id"} {
		value := strings.TrimSpace(r.Header.Get(key))
		if value != "" && len(value) <= maxRequestIDLength && printable(value) {
			return value
		}
	}
	return ""
}

func printable(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] < 0x21 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

func generateRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
