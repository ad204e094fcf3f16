package workflows

import (
	"time"

	"travel-checkout/internal/models"

	"go.temporal.io/sdk/workflow"
)

const DefaultPollInterval = 8 * time.Second

// pollTicksPerRun bounds the history of one run; the poll continues as new after it.
var pollTicksPerRun = 500

// PollWorkflowID is the poller's workflow id. Only one poller may exist per payment.
func PollWorkflowID(paymentID string) string {
	return "booking-status-" + paymentID
}

// BookingStatusWorkflow polls the booking status of one payment at a fixed interval until
// the provider reports CONFIRMED or FAILED. Request errors keep the status PENDING.
func BookingStatusWorkflow(ctx workflow.Context, input models.PollInput) (*models.PollResult, error) {
	logger := workflow.GetLogger(ctx)
	if input.StartedAt.IsZero() {
		input.StartedAt = workflow.Now(ctx)
		logger.Info("BookingStatusWorkflow started", "paymentID", input.PaymentID)
	}

	interval := input.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	activityCtx := singleAttempt(ctx)

	for tick := 0; tick < pollTicksPerRun; tick++ {
		if err := workflow.Sleep(ctx, interval); err != nil {
			logger.Info("Booking status poll cancelled", "paymentID", input.PaymentID)
			return nil, err
		}

		if input.MaxDuration > 0 && workflow.Now(ctx).Sub(input.StartedAt) >= input.MaxDuration {
			logger.Warn("Booking status still unknown, giving up",
				"paymentID", input.PaymentID, "requests", input.Requests)
			return &models.PollResult{
				PaymentID: input.PaymentID,
				Status:    models.BookingUnknown,
				Requests:  input.Requests,
			}, nil
		}

		input.Requests++
		var result *models.BookingStatusResult
		err := workflow.ExecuteActivity(activityCtx, paymentActivities.BookingStatus, input.PaymentID).Get(ctx, &result)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			input.ConsecutiveErrors++
			logger.Warn("Booking status request failed",
				"paymentID", input.PaymentID, "consecutiveErrors", input.ConsecutiveErrors, "error", err)
			continue
		}
		input.ConsecutiveErrors = 0

		if result.Status == models.BookingConfirmed || result.Status == models.BookingFailed {
			logger.Info("Booking status resolved",
				"paymentID", input.PaymentID, "status", result.Status, "requests", input.Requests)
			return &models.PollResult{
				PaymentID: input.PaymentID,
				Status:    result.Status,
				Order:     result.Order,
				Requests:  input.Requests,
			}, nil
		}
	}

	return nil, workflow.NewContinueAsNewError(ctx, BookingStatusWorkflow, input)
}
