package errors

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrEmptyAuth    = errors.New("missing authorization")
	ErrEmptySubject = errors.New("missing subject")
	ErrTokenInvalid = errors.New("invalid token")

	ErrCartNotFound        = errors.New("cart not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNonPositiveQuantity = errors.New("quantity must be at least 1")
	ErrOrderNotFound       = errors.New("order not found")
	ErrActiveOrder         = errors.New("customer has an active order")
)

func HandleError(err error, span trace.Span) {
	if err == nil {
		return
	}
	span.AddEvent(err.Error())
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}
