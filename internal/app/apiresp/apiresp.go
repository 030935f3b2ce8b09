package apiresp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

const RequestIDHeader = "X-Request-Id"

// Envelope is the body of every API response. Message is a string or a list
// of field errors; Other is null unless a handler attaches extra detail.
type Envelope struct {
	Code    int `json:"code"`
	Data    any `json:"data"`
	Message any `json:"message"`
	Other   any `json:"other"`
}

func WriteOK(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	Write(w, r, status, data, message, nil)
}

// WriteError sends a failure envelope. Data is always an empty list.
func WriteError(w http.ResponseWriter, r *http.Request, status int, message any) {
	if s, ok := message.(string); ok && s == "" {
		message = http.StatusText(status)
	}
	Write(w, r, status, []any{}, message, nil)
}

func Write(w http.ResponseWriter, r *http.Request, status int, data, message, other any) {
	if data == nil {
		data = []any{}
	}
	res := Envelope{
		Code:    status,
		Data:    data,
		Message: message,
		Other:   other,
	}

	if id := middleware.GetReqID(r.Context()); id != "" {
		w.Header().Set(RequestIDHeader, id)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}
