package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/prinde/internal/services/confirm"
	"github.com/ternarybob/prinde/internal/services/gateway"
)

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteServiceError maps errors from the engine and the confirmation workflow to HTTP status codes.
func WriteServiceError(w http.ResponseWriter, err error) error {
	if errors.Is(err, confirm.ErrActionNotFound) || errors.Is(err, gateway.ErrNotFound) {
		return WriteError(w, http.StatusNotFound, err.Error())
	}
	return WriteError(w, http.StatusBadGateway, err.Error())
}
