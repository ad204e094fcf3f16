package activities

import (
	"context"
	"errors"

	"travel-checkout/internal/backend"
	"travel-checkout/internal/database"
	"travel-checkout/internal/models"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/temporal"
)

type PaymentActivities struct {
	Backend *backend.Client
	DB      *database.DB
	Logger  *logrus.Logger
}

func NewPaymentActivities(client *backend.Client, db *database.DB, logger *logrus.Logger) *PaymentActivities {
	return &PaymentActivities{Backend: client, DB: db, Logger: logger}
}

// InitiateSession opens a new payment session for the widget
func (a *PaymentActivities) InitiateSession(ctx context.Context) (*models.PaymentSession, error) {
	session, err := a.Backend.InitiateSession(ctx)
	if err != nil {
		a.Logger.WithError(err).Warn("Failed to initiate payment session")
		return nil, classify(ReasonSessionRejected, "initiate session", err)
	}
	return session, nil
}

// ExecutePayment captures the payment. Callers must run it with a single attempt:
// the backend charges the traveler, so a retry could charge twice.
func (a *PaymentActivities) ExecutePayment(ctx context.Context, req models.ExecutePaymentRequest) (*models.ExecutePaymentResult, error) {
	log := a.Logger.WithFields(logrus.Fields{
		"checkoutId":   req.CheckoutID,
		"sessionId":    req.SessionID,
		"invoiceValue": req.InvoiceValue,
	})

	result, err := a.Backend.ExecutePayment(ctx, req)
	if err != nil {
		log.WithError(err).Error("Execute payment failed")
		if backend.IsRejected(err) {
			return nil, temporal.NewNonRetryableApplicationError("execute payment: "+err.Error(), ReasonExecutionRejected, err)
		}
		// No definite answer: the charge may or may not have been captured.
		return nil, temporal.NewNonRetryableApplicationError("execute payment: "+err.Error(), ReasonPaymentUnknown, err)
	}

	// The charge went through; a missing audit row must not fail the checkout.
	payment := &models.Payment{
		SessionID:    req.SessionID,
		CheckoutID:   req.CheckoutID,
		InvoiceValue: req.InvoiceValue,
		Status:       string(models.BookingPending),
	}
	if err := a.DB.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, database.ErrSessionAlreadyStored) {
			log.Warn("Payment session was already recorded")
		} else {
			log.WithError(err).Error("Failed to record payment")
		}
	}

	log.WithField("paymentId", result.PaymentID).Info("Payment executed")
	return result, nil
}

// BookingStatus reads the booking outcome for a payment. Errors are returned as is;
// the poller treats every failure as "still pending".
func (a *PaymentActivities) BookingStatus(ctx context.Context, paymentID string) (*models.BookingStatusResult, error) {
	result, err := a.Backend.BookingStatus(ctx, paymentID)
	if err != nil {
		a.Logger.WithError(err).WithField("paymentId", paymentID).Debug("Booking status request failed")
		return nil, err
	}
	return result, nil
}
