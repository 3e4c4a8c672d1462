package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var (
	Validate *validator.Validate

	errTrailingData = errors.New("body must contain a single JSON value")
	errEmptyBody    = errors.New("body must not be empty")
)

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// readJSON decodes a request body into a struct with a fixed shape: unknown
// fields and anything after the first value are rejected.
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	dec := bodyDecoder(w, r)
	dec.DisallowUnknownFields()
	return decodeOne(dec, data)
}

// readRawJSON reads a body whose shape is decided later by the normalize
// package. Unknown fields are expected there.
func readRawJSON(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := decodeOne(bodyDecoder(w, r), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func bodyDecoder(w http.ResponseWriter, r *http.Request) *json.Decoder {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body)
}

func decodeOne(dec *json.Decoder, data any) error {
	if err := dec.Decode(data); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errEmptyBody
		case errors.As(err, &tooLarge):
			return fmt.Errorf("body must not be larger than %d bytes", tooLarge.Limit)
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

func writeJSONError(w http.ResponseWriter, status int, message string) error {
	type envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	}

	return writeJSON(w, status, &envelope{
		Success: false,
		Message: message,
		Status:  status,
	})
}

func (app *application) jsonResponse(w http.ResponseWriter, status int, data any) error {
	type envelope struct {
		Data any `json:"data"`
	}
	return writeJSON(w, status, &envelope{Data: data})
}
