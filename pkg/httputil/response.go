package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/smogalia/list-gift/pkg/errors"
	"github.com/smogalia/list-gift/pkg/logger"
	"github.com/smogalia/list-gift/pkg/validator"
)

// Response is the JSON envelope of every API response.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v with status. Encoding errors are dropped: the header is
// already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps v in the data envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

var kindCodes = map[apperrors.Kind]string{
	apperrors.KindUnauthenticated: "UNAUTHENTICATED",
	apperrors.KindForbidden:       "FORBIDDEN",
	apperrors.KindConflict:        "CONFLICT",
	apperrors.KindNotFound:        "NOT_FOUND",
	apperrors.KindTransientIO:     "TRANSIENT_IO",
	apperrors.KindInvalidInput:    "INVALID_INPUT",
	apperrors.KindInternal:        "INTERNAL_ERROR",
}

// WriteError maps err to a status and envelope. AppErrors keep their own code
// and message; bare sentinels get a generic message per kind. Server-side
// failures are logged with the request-scoped logger when one is present.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    verr.Fields(),
			RequestID: requestID,
		}})
		return
	}

	status := apperrors.HTTPStatus(err)
	body := &ErrorResponse{RequestID: requestID}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Code, body.Message = appErr.Code, appErr.Message
	} else {
		kind := apperrors.KindOf(err)
		body.Code = kindCodes[kind]
		body.Message = genericMessage(kind, err)
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	WriteJSON(w, status, Response{Error: body})
}

func genericMessage(kind apperrors.Kind, err error) string {
	switch kind {
	case apperrors.KindUnauthenticated:
		return "sign in required"
	case apperrors.KindForbidden:
		return "not allowed"
	case apperrors.KindConflict:
		return "conflicting state"
	case apperrors.KindNotFound:
		return "resource not found"
	case apperrors.KindTransientIO:
		return "temporarily unavailable, try again"
	case apperrors.KindInvalidInput:
		return err.Error()
	default:
		return "an internal error occurred"
	}
}

// WriteValidationError answers 400 for a body that failed to decode or
// validate.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		WriteError(w, r, err, nil)
		return
	}
	WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
		Code:      "INVALID_INPUT",
		Message:   err.Error(),
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}})
}

// ParseUUID writes a 400 and returns false when param is not a UUID.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:    "INVALID_PARAMETER",
			Message: "invalid id: " + param,
		}})
		return uuid.Nil, false
	}
	return id, true
}
