package activities

import (
	"context"

	"travel-checkout/internal/backend"
	"travel-checkout/internal/models"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/temporal"
)

type GateActivities struct {
	Backend *backend.Client
	Logger  *logrus.Logger
}

func NewGateActivities(client *backend.Client, logger *logrus.Logger) *GateActivities {
	return &GateActivities{Backend: client, Logger: logger}
}

// PreBook re-confirms price and availability of the selection and returns the fresh snapshot.
// It has no side effects, so Temporal may retry it.
func (a *GateActivities) PreBook(ctx context.Context, selection models.InventorySelection) (*models.InventorySelection, error) {
	log := a.Logger.WithFields(logrus.Fields{"product": selection.Product, "code": selection.Code})

	var fresh *models.InventorySelection
	var err error
	switch selection.Product {
	case models.ProductHotel:
		fresh, err = a.Backend.PreBookRoom(ctx, selection.Code)
	case models.ProductFlight:
		fresh, err = a.Backend.FlightPricing(ctx, selection.Offer)
	default:
		return nil, temporal.NewNonRetryableApplicationError("unknown product "+selection.Product, ReasonGateRejected, nil)
	}
	if err != nil {
		log.WithError(err).Warn("Pre-book failed")
		return nil, classify(ReasonGateRejected, "pre-book", err)
	}

	if fresh.Currency == "" {
		fresh.Currency = selection.Currency
	}
	if fresh.TotalPrice != selection.TotalPrice {
		log.WithFields(logrus.Fields{"quoted": selection.TotalPrice, "current": fresh.TotalPrice}).Info("Price changed on pre-book")
	}
	return fresh, nil
}

// BookRoom books a pay-at-hotel room directly with the provider.
func (a *GateActivities) BookRoom(ctx context.Context, payload *models.BookingPayload) (*models.BookRoomResult, error) {
	result, err := a.Backend.BookRoom(ctx, payload)
	if err != nil {
		a.Logger.WithError(err).WithField("bookingReferenceId", payload.BookingReferenceId).Warn("BookRoom failed")
		return nil, classify(ReasonBookingRejected, "book room", err)
	}
	return result, nil
}
