package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

const KEY_ERROR_TYPE = attribute.Key("error.type")

// RecordError marks the span failed and tags it with the error class, so
// client mistakes can be told apart from broken dependencies in traces.
func RecordError(err error, span trace.Span) {
	if err == nil {
		return
	}
	errorType := KEY_ERROR_TYPE.String(ErrorType(err))
	span.SetAttributes(errorType)
	span.AddEvent(err.Error(), trace.WithAttributes(errorType))
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err, trace.WithAttributes(errorType))
}

// ErrorType classifies err by the domain sentinel it wraps. Anything else is
// reported by the go type of its innermost error.
func ErrorType(err error) string {
	switch {
	case inErrors.IsValidation(err):
		return "validation"
	case inErrors.IsNotFound(err):
		return "not_found"
	case errors.Is(err, inErrors.ErrRevisionConflict), errors.Is(err, inErrors.ErrCartNotActive):
		return "conflict"
	case errors.Is(err, inErrors.ErrLockNotAcquired):
		return "lock_not_acquired"
	case errors.Is(err, inErrors.ErrTokenNotPresent), errors.Is(err, inErrors.ErrEmptySubject),
		errors.Is(err, inErrors.ErrTokenInvalid), errors.Is(err, inErrors.ErrEmptyAuth):
		return "unauthorized"
	case errors.Is(err, inErrors.ErrUnsupportedSource):
		return "unsupported"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
		err = next
	}
	return fmt.Sprintf("%T", err)
}
