package models

// Error kinds recorded on CheckoutState.LastError
const (
	ErrorKindGate      = "gate"
	ErrorKindSession   = "session"
	ErrorKindDeclined  = "declined"
	ErrorKindExecution = "execution"
	ErrorKindBooking   = "booking"
	ErrorKindUnknown   = "unknown"

	// ErrorKindPaymentUnknown means execution broke off without a definite answer.
	// The traveler may have been charged.
	ErrorKindPaymentUnknown = "payment_unknown"
)

var userMessages = map[string]string{
	ErrorKindGate:      "This offer is no longer available at the quoted price. Please select it again.",
	ErrorKindSession:   "We could not start the payment. Please try again.",
	ErrorKindDeclined:  "Your card was not accepted. Please check the details or use another payment method.",
	ErrorKindExecution: "We could not complete the payment. You have not been charged for this attempt.",
	ErrorKindBooking:   "We could not process your booking. Please try again.",
	ErrorKindUnknown:   "We could not confirm your booking yet. Please contact support with your payment reference.",
	ErrorKindPaymentUnknown: "Your payment status is unknown. Please contact support with your checkout reference " +
		"before paying again.",
}

// NewCheckoutError builds the user-facing error for a failure kind. Provider messages never
// pass through here.
func NewCheckoutError(kind string) *CheckoutError {
	msg, ok := userMessages[kind]
	if !ok {
		msg = userMessages[ErrorKindUnknown]
	}
	return &CheckoutError{Kind: kind, Message: msg}
}
