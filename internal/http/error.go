package http

import (
	"context"
	"errors"
	"net/http"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

const MESSAGE_INTERNAL_ERROR = "internal server error"

// StatusCode maps domain errors to http status codes. Unknown errors are 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case inErrors.IsValidation(err):
		return http.StatusBadRequest
	case inErrors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrRevisionConflict), errors.Is(err, inErrors.ErrCartNotActive):
		return http.StatusConflict
	case errors.Is(err, inErrors.ErrLockNotAcquired):
		return http.StatusServiceUnavailable
	case errors.Is(err, inErrors.ErrTokenNotPresent), errors.Is(err, inErrors.ErrEmptySubject),
		errors.Is(err, inErrors.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, inErrors.ErrUnsupportedSource):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the failed envelope for err. Validation errors carry their
// field list in data; 5xx responses hide the error text.
func WriteError(c context.Context, w http.ResponseWriter, err error) {
	code := StatusCode(err)
	body := map[string]interface{}{
		"status":     STATUS_FAILED,
		"statusCode": code,
		"message":    err.Error(),
	}

	var validationErrs inErrors.ValidationErrors
	switch {
	case code >= http.StatusInternalServerError:
		body["message"] = MESSAGE_INTERNAL_ERROR
	case errors.As(err, &validationErrs):
		body["message"] = "validation failed"
		body["data"] = map[string]interface{}{"errors": validationErrs}
	default:
		if root := rootError(err); root != nil {
			body["message"] = root.Error()
		}
	}
	WriteJsonResponse(c, w, map[string]string{}, body)
}

// rootError returns the innermost wrapped error, which for domain errors is the
// sentinel with the user facing message.
func rootError(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
