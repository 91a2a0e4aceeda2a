package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorBody struct {
	Error  string `json:"error"`
	Fields any    `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, payload any) {
	WriteJSON(w, http.StatusOK, payload)
}

func Created(w http.ResponseWriter, payload any) {
	WriteJSON(w, http.StatusCreated, payload)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Fail(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorBody{Error: message})
}

func FailWithFields(w http.ResponseWriter, status int, message string, fields any) {
	WriteJSON(w, status, errorBody{Error: message, Fields: fields})
}

// ServerError hides store details from the caller; the request id ties the
// log line back to the response.
func ServerError(w http.ResponseWriter, requestID string, err error) {
	slog.Error("internal error", "requestId", requestID, "err", err)
	Fail(w, http.StatusInternalServerError, "internal server error")
}
