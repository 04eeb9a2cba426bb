package httppresentation

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-orders/internal/pkg/pagination"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool             `json:"success"`
	Data    any              `json:"data,omitempty"`
	Meta    *pagination.Meta `json:"meta,omitempty"`
	Error   *errorBody       `json:"error,omitempty"`
}

type errorBody struct {
	Code       apperr.Kind `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindUnauthorized:      http.StatusUnauthorized,
	apperr.KindInsufficientStock: http.StatusBadRequest,
	apperr.KindInternal:          http.StatusInternalServerError,
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind apperr.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writePage(w http.ResponseWriter, data any, meta pagination.Meta) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Meta: &meta})
}

// writeError classifies err and hides internal details from the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	msg := err.Error()
	if kind == apperr.KindInternal {
		logctx.FromOr(r.Context(), observability.NopLogger()).Error("http_internal_error",
			observability.F("path", r.URL.Path),
			observability.Err(err),
		)
		msg = "internal server error"
	}
	writeJSON(w, status, envelope{Error: &errorBody{Code: kind, Message: msg, StatusCode: status}})
}

// decodeJSON rejects unknown fields and trailing data. Failures are
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	if dec.More() {
		return apperr.Validation("invalid request body: trailing data")
	}
	return nil
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, fmt.Errorf("%w: %s %s", apperr.ErrNotFound, r.Method, r.URL.Path))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, envelope{Error: &errorBody{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path),
		StatusCode: http.StatusMethodNotAllowed,
	}})
}
