package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formkit/pkg/arraygroup"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: encode response: %v", err)
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// formErrorToHTTP maps form and validation errors to responses.
func formErrorToHTTP(w http.ResponseWriter, err error) {
	var (
		invalid   *validation.ValidationError
		submitErr *form.SubmitError
	)
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error: err.Error(), Code: "INVALID_INPUT", Path: invalid.Path, Message: invalid.Message,
		})
	case errors.As(err, &submitErr):
		status, code := http.StatusUnprocessableEntity, "SUBMIT_REFUSED"
		if submitErr.Err != nil {
			status, code = http.StatusConflict, "VALIDATION_PENDING"
		}
		writeJSON(w, status, errorBody{
			Error: err.Error(), Code: code, Path: submitErr.Path, Message: submitErr.Message,
		})
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, arraygroup.ErrUnknownInstance),
		errors.Is(err, ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, form.ErrHiddenField):
		writeError(w, http.StatusConflict, "HIDDEN_FIELD", err.Error())
	case errors.Is(err, form.ErrClosed):
		writeError(w, http.StatusGone, "SESSION_GONE", err.Error())
	default:
		log.Printf("httpapi: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
