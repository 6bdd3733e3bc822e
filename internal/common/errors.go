package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// Kind classifies an error independently of the channel it is reported on.
// The value doubles as the oops error code and as the wire code for message replies.
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindInvalidInput    Kind = "INVALID_INPUT"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindUnavailable     Kind = "UNAVAILABLE"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindConfig          Kind = "CONFIG_ERROR"
	KindUnexpected      Kind = "UNEXPECTED"
)

var defaultMessages = map[Kind]string{
	KindNotFound:        "Resource not found",
	KindConflict:        "Resource already exists",
	KindInvalidInput:    "Validation failed",
	KindUnauthenticated: "Unauthorized",
	KindUnauthorized:    "Forbidden resource",
	KindUnavailable:     "Service temporarily unavailable",
	KindRateLimited:     "Too many requests",
	KindConfig:          "Invalid configuration",
	KindUnexpected:      "Internal server error",
}

// ErrInvalidToken is returned for any token that fails verification.
// Bad signatures, malformed tokens and expired tokens are not distinguished.
var ErrInvalidToken = newError(KindUnauthenticated, "Invalid or expired token")

// FieldErrors maps a request field to a human readable validation message.
type FieldErrors map[string]string

// Add records a message for field, keeping the first one reported.
func (fe FieldErrors) Add(field, message string) {
	if _, exists := fe[field]; !exists {
		fe[field] = message
	}
}

// Err returns an INVALID_INPUT error carrying the collected fields, or nil.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return InvalidInput("Validation failed", fe)
}

func (fe FieldErrors) String() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

func newError(kind Kind, message string) error {
	return oops.Code(string(kind)).Public(message).Errorf("%s", message)
}

func NotFound(message string) error        { return newError(KindNotFound, message) }
func Conflict(message string) error        { return newError(KindConflict, message) }
func Unauthenticated(message string) error { return newError(KindUnauthenticated, message) }
func Unauthorized(message string) error    { return newError(KindUnauthorized, message) }
func RateLimited(message string) error     { return newError(KindRateLimited, message) }

// InvalidInput builds an INVALID_INPUT error; fields may be nil.
func InvalidInput(message string, fields FieldErrors) error {
	b := oops.Code(string(KindInvalidInput)).Public(message)
	if len(fields) > 0 {
		b = b.With("fields", fields)
		return b.Errorf("%s: %s", message, fields)
	}
	return b.Errorf("%s", message)
}

// Unavailable wraps a timeout or connectivity failure.
func Unavailable(err error, operation string) error {
	return oops.Code(string(KindUnavailable)).
		Public(defaultMessages[KindUnavailable]).
		With("operation", operation).
		Wrap(err)
}

// Unexpected wraps an unclassified failure. Its details are logged, never returned to callers.
func Unexpected(err error, operation string) error {
	return oops.Code(string(KindUnexpected)).With("operation", operation).Wrap(err)
}

// ConfigErrorf reports an invalid configuration value detected at startup.
func ConfigErrorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return oops.Code(string(KindConfig)).Public(msg).Errorf("%s", msg)
}

// KindOf classifies err. Coded errors keep their innermost code; raw driver
// and context errors are classified by inspection; anything else is UNEXPECTED.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := fmt.Sprint(oopsErr.Code()); code != "" && code != "<nil>" {
			if _, known := defaultMessages[Kind(code)]; known {
				return Kind(code)
			}
		}
	}
	if IsTimeout(err) || errors.Is(err, context.Canceled) {
		return KindUnavailable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return KindConflict
	}
	return KindUnexpected
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsTimeout reports whether err is a deadline or connection-level failure.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err)
}

// PublicMessage returns the message that is safe to show to a caller.
func PublicMessage(err error) string {
	kind := KindOf(err)
	if kind == KindUnexpected {
		return defaultMessages[KindUnexpected]
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if msg := oopsErr.Public(); msg != "" {
			return msg
		}
	}
	return defaultMessages[kind]
}

// FieldsOf returns the validation details attached to err, if any.
func FieldsOf(err error) FieldErrors {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	if fields, ok := oopsErr.Context()["fields"].(FieldErrors); ok {
		return fields
	}
	return nil
}

// HTTPStatusFromError maps an error kind to an HTTP status code.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WireError is the error shape carried in message replies.
type WireError struct {
	Kind    Kind        `json:"kind"`
	Message string      `json:"message"`
	Errors  FieldErrors `json:"errors,omitempty"`
}

// ToWire converts err into its reply representation.
func ToWire(err error) *WireError {
	if err == nil {
		return nil
	}
	return &WireError{
		Kind:    KindOf(err),
		Message: PublicMessage(err),
		Errors:  FieldsOf(err),
	}
}

// Err rebuilds a coded error from its wire form.
func (w *WireError) Err() error {
	if w == nil {
		return nil
	}
	kind := w.Kind
	if _, known := defaultMessages[kind]; !known {
		kind = KindUnexpected
	}
	if kind == KindInvalidInput {
		return InvalidInput(w.Message, w.Errors)
	}
	return newError(kind, w.Message)
}

// LogError logs err with its code and context when it is an oops error.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{"error", oopsErr.Error()}
		if code := oopsErr.Code(); code != nil && fmt.Sprint(code) != "" {
			attrs = append(attrs, "code", code)
		}
		if errCtx := oopsErr.Context(); len(errCtx) > 0 {
			attrs = append(attrs, "context", errCtx)
		}
		logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	logger.ErrorContext(ctx, msg, "error", err)
}
