package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses. Unrecognized errors come
// back as 500 with a generic body so internals never leak to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, core.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, core.ErrDuplicateUser):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, core.ErrValidation):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, core.ErrInvalidFormat):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	}

	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
	}

	writeJSON(w, status, errorBody{Error: message})
}

// decodeBody rejects oversized or malformed JSON request bodies. Domain errors
// raised by field unmarshalers (a zero amount, an unparsable date) keep their
// own taxonomy; only true syntax errors flatten to ErrInvalidFormat.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, core.ErrValidation) || errors.Is(err, core.ErrInvalidFormat) {
			return err
		}
		return fmt.Errorf("%w: malformed request body", core.ErrInvalidFormat)
	}
	return nil
}
