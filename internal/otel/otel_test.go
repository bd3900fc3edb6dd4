package otel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func TestShutdownOtel(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	calls := 0
	shutdowns := []ShutdownFunc{
		func(context.Context) error { return errA },
		func(context.Context) error { return nil },
		func(context.Context) error { return errB },
	}

	err := ShutdownOtel(context.Background(), shutdowns)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	err = ShutdownOtel(context.Background(), []ShutdownFunc{
		func(context.Context) error { calls++; return nil },
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "wrapped validation errors",
			err:      fmt.Errorf("failed adding with error=%w", inErrors.ValidationErrors{{Field: "quantity"}}),
			expected: "validation",
		},
		{
			name:     "missing product",
			err:      fmt.Errorf("failed finding with error=%w", inErrors.ErrProductNotFound),
			expected: "not_found",
		},
		{
			name:     "revision conflict",
			err:      inErrors.ErrRevisionConflict,
			expected: "conflict",
		},
		{
			name:     "expired context",
			err:      fmt.Errorf("failed waiting with error=%w", context.DeadlineExceeded),
			expected: "canceled",
		},
		{
			name:     "unknown error reports its innermost type",
			err:      fmt.Errorf("outer with error=%w", fmt.Errorf("inner with error=%w", &net.OpError{Op: "dial"})),
			expected: "*net.OpError",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorType(tt.err))
		})
	}
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := provider.Tracer("test").Start(context.Background(), "failing")
	RecordError(nil, span)
	RecordError(fmt.Errorf("failed finding with error=%w", inErrors.ErrCartNotFound), span)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), KEY_ERROR_TYPE.String("not_found"))

	events := spans[0].Events()
	require.Len(t, events, 2, "nil error must not add events")
	assert.Equal(t, "exception", events[1].Name)
}
