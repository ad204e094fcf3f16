package models

import (
	"encoding/json"
	"time"
)

// Products
const (
	ProductHotel  = "HOTEL"
	ProductFlight = "FLIGHT"
)

// Checkout workflow states
const (
	StateGated           = "GATED"
	StateFormEditing     = "FORM_EDITING"
	StateSubmitting      = "SUBMITTING"
	StateAwaitingPayment = "AWAITING_PAYMENT"
	StateExecuting       = "EXECUTING"
	StatePolling         = "POLLING"
	StateConfirmed       = "CONFIRMED"
	StateFailed          = "FAILED"
	StateAbandoned       = "ABANDONED"
)

// User-visible outcomes
const (
	OutcomeProcessing = "processing"
	OutcomeConfirmed  = "confirmed"
	OutcomeFailed     = "failed"
)

// Guest types as sent to the hotel provider
const (
	GuestAdult = "Adult"
	GuestChild = "Child"
)

// BookingStatus is the out-of-band booking outcome keyed by paymentId.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingFailed    BookingStatus = "FAILED"
	// BookingUnknown is only produced when a bounded poll runs out of time.
	BookingUnknown BookingStatus = "UNKNOWN"
)

// Terminal reports whether no further status transition can happen.
func (s BookingStatus) Terminal() bool {
	return s == BookingConfirmed || s == BookingFailed || s == BookingUnknown
}

// Outcome maps a checkout state to one of the three durable outcomes the traveler sees.
// States before polling have no outcome yet.
func Outcome(state string) string {
	switch state {
	case StatePolling:
		return OutcomeProcessing
	case StateConfirmed:
		return OutcomeConfirmed
	case StateFailed:
		return OutcomeFailed
	}
	return ""
}

// InventorySelection references the room or flight offer being purchased together with
// the last known price. It is replaced only by re-pricing.
type InventorySelection struct {
	Product           string          `json:"product"`
	Code              string          `json:"code"`
	TotalPrice        float64         `json:"totalPrice"`
	Currency          string          `json:"currency,omitempty"`
	CommissionPercent float64         `json:"commissionPercent,omitempty"`
	CancelPolicies    json.RawMessage `json:"cancelPolicies,omitempty"`
	Offer             json.RawMessage `json:"offer,omitempty"`
}

// GuestRecord holds one traveler slot. Email and phone matter only for the lead guest.
type GuestRecord struct {
	Title     string `json:"title"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// RoomGuestGroup is the party of one purchased room (or the whole itinerary for flights).
type RoomGuestGroup struct {
	RoomIndex    int           `json:"roomIndex"`
	Adults       []GuestRecord `json:"adults"`
	Children     []GuestRecord `json:"children"`
	ChildrenAges []int         `json:"childrenAges,omitempty"`
}

// PaxRoom is the party composition taken from the hotel search.
type PaxRoom struct {
	Adults       int   `json:"adults"`
	Children     int   `json:"children"`
	ChildrenAges []int `json:"childrenAges,omitempty"`
}

// CustomerName is one provider-facing guest entry.
type CustomerName struct {
	Title     string `json:"Title"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Type      string `json:"Type"`
}

// CustomerDetail lists the guests of one room.
type CustomerDetail struct {
	RoomIndex     int            `json:"RoomIndex"`
	CustomerNames []CustomerName `json:"CustomerNames"`
}

// BookingPayload is the provider-ready booking request. Built fresh for every submission.
type BookingPayload struct {
	BookingCode        string           `json:"BookingCode"`
	CustomerDetails    []CustomerDetail `json:"CustomerDetails"`
	ClientReferenceId  string           `json:"ClientReferenceId"`
	BookingReferenceId string           `json:"BookingReferenceId"`
	TotalFare          float64          `json:"TotalFare"`
	EmailId            string           `json:"EmailId"`
	PhoneNumber        string           `json:"PhoneNumber"`
	BookingType        string           `json:"BookingType"`
	PaymentMode        string           `json:"PaymentMode"`
}

// PaymentSession is the short-lived handle that authorizes the embedded payment widget.
type PaymentSession struct {
	SessionID   string `json:"sessionId"`
	CountryCode string `json:"countryCode"`
}

// WidgetConfig is what the UI hands to the payment widget initializer.
type WidgetConfig struct {
	SessionID      string   `json:"sessionId"`
	CountryCode    string   `json:"countryCode"`
	CurrencyCode   string   `json:"currencyCode"`
	Amount         float64  `json:"amount"`
	ContainerID    string   `json:"containerId"`
	PaymentOptions []string `json:"paymentOptions"`
}

// CheckoutSettings is the explicit per-attempt context threaded into the workflow.
type CheckoutSettings struct {
	PollInterval             time.Duration `json:"pollInterval"`
	PollMaxDuration          time.Duration `json:"pollMaxDuration"`
	IdleTimeout              time.Duration `json:"idleTimeout"`
	Currency                 string        `json:"currency"`
	ContainerID              string        `json:"containerId"`
	PaymentOptions           []string      `json:"paymentOptions"`
	DefaultCommissionPercent float64       `json:"defaultCommissionPercent"`
	ClientRefPrefix          string        `json:"clientRefPrefix"`
	BookingRefPrefix         string        `json:"bookingRefPrefix"`
}

// CheckoutInput represents workflow input
type CheckoutInput struct {
	CheckoutID string             `json:"checkoutId"`
	Selection  InventorySelection `json:"selection"`
	PaxRooms   []PaxRoom          `json:"paxRooms"`
	PayAtHotel bool               `json:"payAtHotel"`
	Settings   CheckoutSettings   `json:"settings"`
}

// CheckoutError is the user-facing description of the last failed step.
type CheckoutError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// CheckoutState represents the current workflow state
type CheckoutState struct {
	CheckoutID     string             `json:"checkoutId"`
	State          string             `json:"state"`
	Outcome        string             `json:"outcome,omitempty"`
	Selection      InventorySelection `json:"selection"`
	Guests         []RoomGuestGroup   `json:"guests"`
	FormValid      bool               `json:"formValid"`
	Errors         map[string]string  `json:"errors,omitempty"`
	Widget         *WidgetConfig      `json:"widget,omitempty"`
	RedirectURL    string             `json:"redirectUrl,omitempty"`
	PaymentID      string             `json:"paymentId,omitempty"`
	BookingStatus  BookingStatus      `json:"bookingStatus,omitempty"`
	Order          json.RawMessage    `json:"order,omitempty"`
	LastError      *CheckoutError     `json:"lastError,omitempty"`
	SubmitAttempts int                `json:"submitAttempts"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// CheckoutResult represents workflow output
type CheckoutResult struct {
	State *CheckoutState `json:"state"`
}

// Signal payloads

type GuestFieldUpdate struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

type PaymentResultSignal struct {
	IsSuccess bool `json:"isSuccess"`
}

type PaymentReturnSignal struct {
	PaymentID string `json:"paymentId"`
}

// Activity inputs and results

type ExecutePaymentRequest struct {
	CheckoutID   string             `json:"checkoutId"`
	SessionID    string             `json:"sessionId"`
	InvoiceValue float64            `json:"invoiceValue"`
	Selection    InventorySelection `json:"selection"`
	Payload      *BookingPayload    `json:"payload"`
	Travelers    []GuestRecord      `json:"travelers"`
}

type ExecutePaymentResult struct {
	PaymentURL string `json:"paymentUrl"`
	PaymentID  string `json:"paymentId,omitempty"`
}

type BookingStatusResult struct {
	Status BookingStatus   `json:"status"`
	Order  json.RawMessage `json:"order,omitempty"`
}

type BookRoomResult struct {
	Success   bool   `json:"success"`
	BookingID string `json:"bookingId"`
}

// PollInput is the booking status poller's input. Counters carry across continue-as-new.
type PollInput struct {
	CheckoutID        string        `json:"checkoutId"`
	PaymentID         string        `json:"paymentId"`
	Interval          time.Duration `json:"interval"`
	MaxDuration       time.Duration `json:"maxDuration"`
	StartedAt         time.Time     `json:"startedAt"`
	Requests          int           `json:"requests"`
	ConsecutiveErrors int           `json:"consecutiveErrors"`
}

// PollResult is the terminal outcome of a booking status poll.
type PollResult struct {
	PaymentID string          `json:"paymentId"`
	Status    BookingStatus   `json:"status"`
	Order     json.RawMessage `json:"order,omitempty"`
	Requests  int             `json:"requests"`
}

// Checkout is the stored audit row of one checkout attempt
type Checkout struct {
	CheckoutID    string    `json:"checkoutId" db:"checkout_id"`
	Product       string    `json:"product" db:"product"`
	InventoryCode string    `json:"inventoryCode" db:"inventory_code"`
	Status        string    `json:"status" db:"status"`
	WorkflowID    string    `json:"workflowId" db:"workflow_id"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Payment records one executed payment session
type Payment struct {
	SessionID    string    `json:"sessionId" db:"session_id"`
	CheckoutID   string    `json:"checkoutId" db:"checkout_id"`
	PaymentID    *string   `json:"paymentId,omitempty" db:"payment_id"`
	InvoiceValue float64   `json:"invoiceValue" db:"invoice_value"`
	Status       string    `json:"status" db:"status"`
	OrderJSON    *string   `json:"order,omitempty" db:"order_json"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// API Request/Response models

type CreateHotelCheckoutRequest struct {
	BookingCode string    `json:"bookingCode"`
	TotalFare   float64   `json:"totalFare"`
	Currency    string    `json:"currency"`
	PaxRooms    []PaxRoom `json:"paxRooms"`
	PayAtHotel  bool      `json:"payAtHotel"`
}

type CreateFlightCheckoutRequest struct {
	FlightOffer json.RawMessage `json:"flightOffer"`
}

type CreateCheckoutResponse struct {
	CheckoutID string `json:"checkoutId"`
	Product    string `json:"product"`
	Status     string `json:"status"`
	WorkflowID string `json:"workflowId"`
}
