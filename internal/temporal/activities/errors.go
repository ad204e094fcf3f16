package activities

import (
	"fmt"

	"travel-checkout/internal/backend"

	"go.temporal.io/sdk/temporal"
)

// Application error types for failures Temporal must not retry
const (
	ReasonGateRejected      = "GateRejected"
	ReasonSessionRejected   = "SessionRejected"
	ReasonExecutionRejected = "ExecutionRejected"
	ReasonBookingRejected   = "BookingRejected"
	ReasonCheckoutNotFound  = "CheckoutNotFound"
	ReasonPaymentIDTaken    = "PaymentIDTaken"
	ReasonPaymentUnknown    = "PaymentUnknown"
)

// classify keeps transient backend failures retryable and turns the rest into
// non-retryable application errors of the given type.
func classify(reason, op string, err error) error {
	if backend.IsRetryable(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return temporal.NewNonRetryableApplicationError(
		fmt.Sprintf("%s: %v", op, err),
		reason,
		err,
	)
}
