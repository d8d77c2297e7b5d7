package response

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Success(w http.ResponseWriter, data any) {
	SuccessStatus(w, http.StatusOK, data, "")
}

func SuccessStatus(w http.ResponseWriter, status int, data any, message string) {
	body := map[string]any{
		"success":    true,
		"data":       data,
		"statusCode": status,
	}
	if message != "" {
		body["message"] = message
	}
	JSON(w, status, body)
}

func Error(w http.ResponseWriter, status int, code string, message string) {
	ErrorDetails(w, status, code, message, nil)
}

func ErrorDetails(w http.ResponseWriter, status int, code string, message string, details map[string]any) {
	body := map[string]any{
		"success":    false,
		"error":      code,
		"message":    message,
		"statusCode": status,
	}
	if len(details) > 0 {
		body["details"] = details
	}
	JSON(w, status, body)
}
