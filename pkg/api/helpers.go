// Package api provides the HTTP contracts of the memory grid API and standardized
// helper functions for writing responses.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes bounds request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// Success sends a standardized successful HTTP response with optional JSON data.
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error sends a standardized error response with consistent JSON format.
func Error(w http.ResponseWriter, statusCode int, message string) {
	JSONError(w, statusCode, ErrorResponse{Error: message})
}

// JSONError sends body as the error payload.
func JSONError(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// Decode reads a JSON body into dst and validates its struct tags.
// The returned error is safe to show to clients.
func Decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return &RequestError{Message: "request body is required"}
		case errors.As(err, &syntaxErr):
			return &RequestError{Message: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)}
		case errors.As(err, &typeErr):
			return &RequestError{Field: typeErr.Field, Message: fmt.Sprintf("%s has the wrong type", typeErr.Field)}
		default:
			return &RequestError{Message: err.Error()}
		}
	}
	return ValidateStruct(dst)
}

// RequestError describes a body that failed decoding or validation.
type RequestError struct {
	Field   string
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}
