package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"travel-checkout/internal/database"
	"travel-checkout/internal/models"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/temporal"
)

type OrderActivities struct {
	DB     *database.DB
	Logger *logrus.Logger
}

func NewOrderActivities(db *database.DB, logger *logrus.Logger) *OrderActivities {
	return &OrderActivities{DB: db, Logger: logger}
}

// ConfirmationNotice is what the traveler is told once the booking is confirmed.
type ConfirmationNotice struct {
	CheckoutID string          `json:"checkoutId"`
	Email      string          `json:"email"`
	PaymentID  string          `json:"paymentId,omitempty"`
	BookingID  string          `json:"bookingId,omitempty"`
	Order      json.RawMessage `json:"order,omitempty"`
}

// UpdateCheckoutStatus updates a checkout's stored state
func (a *OrderActivities) UpdateCheckoutStatus(ctx context.Context, checkoutID, status string) error {
	err := a.DB.UpdateCheckoutStatus(ctx, checkoutID, status)
	if err != nil {
		// Checkout not found is a permanent error - don't retry
		if errors.Is(err, database.ErrCheckoutNotFound) {
			return temporal.NewNonRetryableApplicationError(
				err.Error(),
				ReasonCheckoutNotFound,
				err,
			)
		}
		return fmt.Errorf("failed to update checkout status: %w", err)
	}
	return nil
}

// BindPaymentID links the provider's payment id to the executed session
func (a *OrderActivities) BindPaymentID(ctx context.Context, checkoutID, sessionID, paymentID string) error {
	err := a.DB.BindPaymentID(ctx, checkoutID, sessionID, paymentID)
	if err != nil {
		if errors.Is(err, database.ErrPaymentIDTaken) {
			return temporal.NewNonRetryableApplicationError(err.Error(), ReasonPaymentIDTaken, err)
		}
		if errors.Is(err, database.ErrPaymentNotFound) {
			return temporal.NewNonRetryableApplicationError(err.Error(), ReasonCheckoutNotFound, err)
		}
		return fmt.Errorf("failed to bind payment id: %w", err)
	}
	return nil
}

// RecordBookingStatus stores the terminal booking status of a payment
func (a *OrderActivities) RecordBookingStatus(ctx context.Context, paymentID string, status models.BookingStatus, order json.RawMessage) error {
	var orderJSON *string
	if len(order) > 0 {
		s := string(order)
		orderJSON = &s
	}
	if err := a.DB.UpdatePaymentStatus(ctx, paymentID, string(status), orderJSON); err != nil {
		if errors.Is(err, database.ErrPaymentNotFound) {
			return temporal.NewNonRetryableApplicationError(err.Error(), ReasonCheckoutNotFound, err)
		}
		return fmt.Errorf("failed to record booking status: %w", err)
	}
	return nil
}

// SendConfirmation sends a booking confirmation (simulated)
func (a *OrderActivities) SendConfirmation(ctx context.Context, notice ConfirmationNotice) error {
	// In production, this would send an email
	a.Logger.WithFields(logrus.Fields{
		"checkoutId": notice.CheckoutID,
		"email":      notice.Email,
		"paymentId":  notice.PaymentID,
		"bookingId":  notice.BookingID,
	}).Info("Sending booking confirmation")
	return nil
}
