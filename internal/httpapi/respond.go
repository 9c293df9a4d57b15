package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-study/internal/apperr"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}

// writeError maps an error to its status code and the error envelope.
// Internal errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	detail := errorDetail{Code: apperr.Code(err), Field: apperr.FieldOf(err)}

	var ae *apperr.Error
	switch {
	case status == http.StatusInternalServerError:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		detail.Message = "internal error"
	case status == http.StatusBadGateway:
		slog.Warn("plan generation failed", "path", r.URL.Path, "error", err)
		detail.Message = "plan generation failed, try again"
	case errors.As(err, &ae) && ae.Message != "":
		detail.Message = ae.Message
	default:
		detail.Message = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into dst. Malformed bodies are
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("httpapi.decode", "body", apperr.ConstraintRequired, "request body is required")
		}
		return apperr.Validation("httpapi.decode", "body", apperr.ConstraintInvalidValue, fmt.Sprintf("malformed JSON: %v", err))
	}
	return nil
}
