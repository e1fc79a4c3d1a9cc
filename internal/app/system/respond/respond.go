// Package respond writes JSON responses for the API handlers.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/secretsanta/internal/app/system/inputval"
	"github.com/dalemusser/secretsanta/internal/app/system/limits"
)

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": msg} with status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

// Decode reads a JSON body into v, rejecting unknown fields and bodies over
// limits.MaxJSONBody.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Invalid writes a 422 with per-field messages when err is an
// *inputval.FieldErrors, and a 400 otherwise.
func Invalid(w http.ResponseWriter, err error) {
	var fe *inputval.FieldErrors
	if errors.As(err, &fe) {
		JSON(w, http.StatusUnprocessableEntity, ErrorBody{Error: "invalid input", Fields: fe.Fields})
		return
	}
	Error(w, http.StatusBadRequest, err.Error())
}
