package stools

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MalformedJSONError indicates the request body could not be decoded into
// the target struct. Handlers translate it into a 400 response.
type MalformedJSONError struct {
	Message string
}

func (e *MalformedJSONError) Error() string {
	return e.Message
}

// DecodeJSONBody decodes a JSON request body into dst. Unknown fields,
// trailing content, and oversized bodies are rejected so malformed payloads
// fail loudly instead of being silently dropped.
func DecodeJSONBody(r *http.Request, dst interface{}) error {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "application/json") {
		return &MalformedJSONError{Message: "Content-Type header is not application/json"}
	}

	r.Body = http.MaxBytesReader(nil, r.Body, 1048576) // 1MB limit

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError

		switch {
		case errors.As(err, &syntaxError):
			return &MalformedJSONError{
				Message: fmt.Sprintf("Request body contains malformed JSON (at position %d)", syntaxError.Offset),
			}
		case errors.Is(err, io.ErrUnexpectedEOF):
			return &MalformedJSONError{Message: "Request body contains malformed JSON"}
		case errors.As(err, &unmarshalTypeError):
			return &MalformedJSONError{
				Message: fmt.Sprintf("Request body contains an invalid value for the %q field", unmarshalTypeError.Field),
			}
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return &MalformedJSONError{Message: fmt.Sprintf("Request body contains unknown field %s", fieldName)}
		case errors.Is(err, io.EOF):
			return &MalformedJSONError{Message: "Request body must not be empty"}
		case err.Error() == "http: request body too large":
			return &MalformedJSONError{Message: "Request body must not be larger than 1MB"}
		default:
			return fmt.Errorf("error decoding JSON: %w", err)
		}
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return &MalformedJSONError{Message: "Request body must only contain a single JSON object"}
	}
	return nil
}
