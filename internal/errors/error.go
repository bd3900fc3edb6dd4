package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyAuth       = errors.New("missing authorization")
	ErrEmptySubject    = errors.New("missing subject")
	ErrTokenInvalid    = errors.New("invalid token")
	ErrTokenNotPresent = errors.New("token not present in context")
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrCartNotActive     = errors.New("cart is not active")
	ErrLineItemNotFound  = errors.New("product not found in cart")
	ErrProductNotFound   = errors.New("product not found")
	ErrVariantNotFound   = errors.New("variant not found for this product")
	ErrNoVariants        = errors.New("product has no variants")
	ErrRevisionConflict  = errors.New("cart was modified concurrently")
	ErrInvalidCoupon     = errors.New("invalid coupon")
	ErrLockNotAcquired   = errors.New("failed acquiring lock")
	ErrUnsupportedSource = errors.New("operation not supported by catalog source")
)

// ValidationError reports a single rejected field before any store is touched.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("field=%s %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrLineItemNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrVariantNotFound) ||
		errors.Is(err, ErrNoVariants)
}

func IsValidation(err error) bool {
	var v ValidationErrors
	if errors.As(err, &v) {
		return true
	}
	var single ValidationError
	return errors.As(err, &single) || errors.Is(err, ErrInvalidCoupon)
}
