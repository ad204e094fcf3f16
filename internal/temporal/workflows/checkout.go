package workflows

import (
	"errors"
	"math/rand"

	"travel-checkout/internal/backend"
	"travel-checkout/internal/booking"
	"travel-checkout/internal/guests"
	"travel-checkout/internal/models"
	"travel-checkout/internal/payment"
	"travel-checkout/internal/temporal/activities"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	SignalUpdateGuest     = "updateGuest"
	SignalSubmit          = "submit"
	SignalPaymentResult   = "paymentResult"
	SignalPaymentReturned = "paymentReturned"
	SignalAbandon         = "abandon"
	UpdateInitWidget      = "initWidget"
	QueryGetState         = "getState"
)

var ErrNotAwaitingPayment = errors.New("checkout is not awaiting payment")

var (
	gateActivities    *activities.GateActivities
	paymentActivities *activities.PaymentActivities
	orderActivities   *activities.OrderActivities
)

// checkout is the state owned by one CheckoutWorkflow run.
type checkout struct {
	ctx    workflow.Context
	logger log.Logger
	input  models.CheckoutInput
	state  *models.CheckoutState

	form     *guests.Form
	payments *payment.Manager
	payload  *models.BookingPayload

	// executed session waiting for its payment id
	sessionID string

	pollFuture workflow.ChildWorkflowFuture
	pollCancel workflow.CancelFunc

	timerFuture workflow.Future
	cancelTimer workflow.CancelFunc
}

// CheckoutWorkflow orchestrates one checkout attempt from re-pricing to the booking outcome
func CheckoutWorkflow(ctx workflow.Context, input models.CheckoutInput) (*models.CheckoutResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("CheckoutWorkflow started", "checkoutID", input.CheckoutID, "product", input.Selection.Product)

	c := &checkout{
		ctx:    ctx,
		logger: logger,
		input:  input,
		state: &models.CheckoutState{
			CheckoutID: input.CheckoutID,
			State:      models.StateGated,
			Selection:  input.Selection,
			UpdatedAt:  workflow.Now(ctx),
		},
		payments: payment.NewManager(payment.WidgetOptions{
			Currency:       input.Settings.Currency,
			ContainerID:    input.Settings.ContainerID,
			PaymentOptions: input.Settings.PaymentOptions,
		}),
	}

	// Set up query handler for real-time state
	err := workflow.SetQueryHandler(ctx, QueryGetState, func() (*models.CheckoutState, error) {
		return c.state, nil
	})
	if err != nil {
		return nil, err
	}

	err = workflow.SetUpdateHandlerWithOptions(ctx, UpdateInitWidget, c.initWidget, workflow.UpdateHandlerOptions{
		Validator: c.validateInitWidget,
	})
	if err != nil {
		return nil, err
	}

	// Set up signal channels
	updateGuestChan := workflow.GetSignalChannel(ctx, SignalUpdateGuest)
	submitChan := workflow.GetSignalChannel(ctx, SignalSubmit)
	paymentResultChan := workflow.GetSignalChannel(ctx, SignalPaymentResult)
	paymentReturnedChan := workflow.GetSignalChannel(ctx, SignalPaymentReturned)
	abandonChan := workflow.GetSignalChannel(ctx, SignalAbandon)

	if c.gate() {
		c.resetIdleTimer()
	}

	// Main event loop
	for !c.done() {
		selector := workflow.NewSelector(ctx)

		selector.AddReceive(updateGuestChan, func(ch workflow.ReceiveChannel, more bool) {
			var update models.GuestFieldUpdate
			ch.Receive(ctx, &update)
			c.updateGuest(update)
		})

		selector.AddReceive(submitChan, func(ch workflow.ReceiveChannel, more bool) {
			ch.Receive(ctx, nil)
			c.submit()
		})

		selector.AddReceive(paymentResultChan, func(ch workflow.ReceiveChannel, more bool) {
			var result models.PaymentResultSignal
			ch.Receive(ctx, &result)
			c.paymentResult(result)
		})

		selector.AddReceive(paymentReturnedChan, func(ch workflow.ReceiveChannel, more bool) {
			var returned models.PaymentReturnSignal
			ch.Receive(ctx, &returned)
			c.paymentReturned(returned)
		})

		selector.AddReceive(abandonChan, func(ch workflow.ReceiveChannel, more bool) {
			ch.Receive(ctx, nil)
			logger.Info("Received abandon signal", "checkoutID", input.CheckoutID)
			c.abandon()
		})

		if c.pollFuture != nil {
			selector.AddFuture(c.pollFuture, c.pollDone)
		}
		if c.timerFuture != nil {
			selector.AddFuture(c.timerFuture, c.idleExpired)
		}

		selector.Select(ctx)
	}

	logger.Info("CheckoutWorkflow completed", "checkoutID", input.CheckoutID, "state", c.state.State)
	return &models.CheckoutResult{State: c.state}, nil
}

func (c *checkout) done() bool {
	switch c.state.State {
	case models.StateConfirmed, models.StateFailed, models.StateAbandoned:
		return true
	}
	return false
}

// gate re-prices the selection. A failure ends the checkout before any guest data is asked for.
func (c *checkout) gate() bool {
	var fresh *models.InventorySelection
	err := workflow.ExecuteActivity(withRetries(c.ctx), gateActivities.PreBook, c.input.Selection).Get(c.ctx, &fresh)
	if err != nil {
		c.logger.Error("Pre-book failed", "error", err)
		c.fail(models.ErrorKindGate)
		return false
	}

	if fresh.Product == models.ProductFlight && fresh.CommissionPercent == 0 {
		fresh.CommissionPercent = c.input.Settings.DefaultCommissionPercent
	}
	c.state.Selection = *fresh
	c.form = c.newForm(*fresh)
	c.refreshForm()
	c.transition(models.StateFormEditing)
	return true
}

func (c *checkout) newForm(sel models.InventorySelection) *guests.Form {
	if sel.Product == models.ProductFlight {
		n, err := backend.TravelerCount(sel.Offer)
		if err != nil || n == 0 {
			n = 1
			for _, room := range c.input.PaxRooms {
				n = max(n, room.Adults+room.Children)
			}
		}
		return guests.NewTravelerForm(n)
	}

	if len(c.input.PaxRooms) == 0 {
		return guests.NewForm([]models.PaxRoom{{Adults: 1}})
	}
	return guests.NewForm(c.input.PaxRooms)
}

func (c *checkout) updateGuest(update models.GuestFieldUpdate) {
	if c.state.State != models.StateFormEditing {
		c.logger.Info("Guest update ignored", "state", c.state.State, "path", update.Path)
		return
	}
	if err := c.form.UpdateField(update.Path, update.Value); err != nil {
		c.logger.Warn("Rejected guest update", "path", update.Path, "error", err)
		return
	}
	c.refreshForm()
	c.touch()
	c.resetIdleTimer()
}

// submit is the guarded FormEditing -> Submitting transition. Anything arriving while a
// submission is in flight finds the checkout in another state and is dropped.
func (c *checkout) submit() {
	if c.state.State != models.StateFormEditing {
		c.logger.Info("Submit ignored", "state", c.state.State)
		return
	}

	result := c.form.MarkSubmitAttempted()
	c.state.SubmitAttempts++
	c.refreshForm()
	c.resetIdleTimer()
	if !result.Valid {
		c.logger.Info("Submit rejected by validation", "errors", len(result.Errors))
		c.touch()
		return
	}

	c.state.LastError = nil
	c.transition(models.StateSubmitting)

	payload, err := c.buildPayload()
	if err != nil {
		c.logger.Error("Failed to build booking payload", "error", err)
		c.backToForm(models.ErrorKindBooking)
		return
	}
	c.payload = payload

	if c.input.PayAtHotel && c.state.Selection.Product == models.ProductHotel {
		c.bookAtHotel()
		return
	}
	c.openSession()
}

func (c *checkout) buildPayload() (*models.BookingPayload, error) {
	var suffix int
	err := workflow.SideEffect(c.ctx, func(workflow.Context) interface{} {
		return rand.Intn(booking.MaxReferenceSuffix + 1)
	}).Get(&suffix)
	if err != nil {
		return nil, err
	}

	refs, err := booking.NewReferences(c.input.Settings.ClientRefPrefix, c.input.Settings.BookingRefPrefix,
		workflow.Now(c.ctx), suffix)
	if err != nil {
		return nil, err
	}

	return booking.Build(booking.Input{
		Selection:  c.state.Selection,
		Groups:     c.form.Groups(),
		References: refs,
	})
}

func (c *checkout) openSession() {
	amount := booking.InvoiceValue(c.state.Selection)
	if err := c.payments.Request(c.payload.BookingReferenceId, amount); err != nil {
		c.logger.Error("Cannot request payment session", "error", err)
		c.payments.Discard()
		c.backToForm(models.ErrorKindSession)
		return
	}

	var session *models.PaymentSession
	err := workflow.ExecuteActivity(withRetries(c.ctx), paymentActivities.InitiateSession).Get(c.ctx, &session)
	if err == nil {
		err = c.payments.Ready(*session)
	}
	if err != nil {
		c.logger.Error("Failed to open payment session", "error", err)
		c.payments.Discard()
		c.backToForm(models.ErrorKindSession)
		return
	}

	c.state.Widget = c.payments.Widget()
	c.transition(models.StateAwaitingPayment)
	c.resetIdleTimer()
}

func (c *checkout) validateInitWidget() error {
	if c.state.State != models.StateAwaitingPayment {
		return ErrNotAwaitingPayment
	}
	return c.payments.CanInitWidget()
}

func (c *checkout) initWidget(ctx workflow.Context) (*models.WidgetConfig, error) {
	cfg, err := c.payments.InitWidget()
	if err != nil {
		return nil, err
	}
	c.logger.Info("Payment widget initialized", "sessionID", cfg.SessionID)
	c.state.Widget = &cfg
	c.touch()
	c.resetIdleTimer()
	return &cfg, nil
}

func (c *checkout) paymentResult(result models.PaymentResultSignal) {
	if c.state.State != models.StateAwaitingPayment {
		c.logger.Info("Payment result ignored", "state", c.state.State)
		return
	}

	session, err := c.payments.Complete(c.payload.BookingReferenceId, result.IsSuccess)
	if errors.Is(err, payment.ErrPaymentRejected) {
		c.logger.Info("Payment widget reported a rejection")
		c.state.LastError = models.NewCheckoutError(models.ErrorKindDeclined)
		c.state.Widget = c.payments.Widget()
		c.touch()
		c.resetIdleTimer()
		return
	}
	if err != nil {
		c.logger.Warn("Payment result rejected", "phase", c.payments.Phase(), "error", err)
		return
	}

	c.execute(session)
}

// execute runs the single payment execution for a consumed session.
func (c *checkout) execute(session models.PaymentSession) {
	c.state.LastError = nil
	c.state.Widget = nil
	c.stopIdleTimer()
	c.transition(models.StateExecuting)

	req := models.ExecutePaymentRequest{
		CheckoutID:   c.input.CheckoutID,
		SessionID:    session.SessionID,
		InvoiceValue: booking.InvoiceValue(c.state.Selection),
		Selection:    c.state.Selection,
		Payload:      c.payload,
		Travelers:    c.form.Travelers(),
	}

	var result *models.ExecutePaymentResult
	err := workflow.ExecuteActivity(singleAttempt(c.ctx), paymentActivities.ExecutePayment, req).Get(c.ctx, &result)
	if err != nil {
		c.logger.Error("Payment execution failed", "sessionID", session.SessionID, "error", err)
		if hasReason(err, activities.ReasonExecutionRejected) {
			c.backToForm(models.ErrorKindExecution)
			return
		}
		// The charge may have gone through; a new attempt could charge twice.
		c.fail(models.ErrorKindPaymentUnknown)
		return
	}

	c.sessionID = session.SessionID
	c.state.RedirectURL = result.PaymentURL
	c.touch()

	if result.PaymentID != "" && c.bindPaymentID(result.PaymentID) {
		c.startPolling(result.PaymentID)
		return
	}
	// Wait for the traveler to come back from the payment page with the payment id.
	c.resetIdleTimer()
}

func (c *checkout) bookAtHotel() {
	c.stopIdleTimer()
	c.transition(models.StateExecuting)

	var result *models.BookRoomResult
	err := workflow.ExecuteActivity(singleAttempt(c.ctx), gateActivities.BookRoom, c.payload).Get(c.ctx, &result)
	if err != nil {
		c.logger.Error("BookRoom failed", "error", err)
		c.backToForm(models.ErrorKindBooking)
		return
	}
	if !result.Success {
		c.fail(models.ErrorKindBooking)
		return
	}

	c.state.BookingStatus = models.BookingConfirmed
	c.transition(models.StateConfirmed)
	c.sendConfirmation(activities.ConfirmationNotice{BookingID: result.BookingID})
}

func (c *checkout) paymentReturned(returned models.PaymentReturnSignal) {
	if returned.PaymentID == "" {
		c.logger.Warn("Payment return without payment id")
		return
	}

	switch c.state.State {
	case models.StateExecuting:
		if c.bindPaymentID(returned.PaymentID) {
			c.startPolling(returned.PaymentID)
		}
	case models.StatePolling:
		if returned.PaymentID == c.state.PaymentID {
			return
		}
		// The current poll keeps running unless the new id can be bound.
		if !c.bindPaymentID(returned.PaymentID) {
			return
		}
		c.logger.Info("Switching booking status poll", "from", c.state.PaymentID, "to", returned.PaymentID)
		c.stopPolling()
		c.startPolling(returned.PaymentID)
	default:
		c.logger.Info("Payment return ignored", "state", c.state.State)
	}
}

// bindPaymentID attaches a payment id to this checkout's session. It reports false only when
// the id already belongs to another checkout.
func (c *checkout) bindPaymentID(paymentID string) bool {
	err := workflow.ExecuteActivity(bookkeeping(c.ctx), orderActivities.BindPaymentID,
		c.input.CheckoutID, c.sessionID, paymentID).Get(c.ctx, nil)
	if err == nil {
		return true
	}
	if hasReason(err, activities.ReasonPaymentIDTaken) {
		c.logger.Error("Payment id belongs to another checkout", "paymentID", paymentID)
		return false
	}
	c.logger.Warn("Failed to bind payment id", "paymentID", paymentID, "error", err)
	return true
}

func (c *checkout) startPolling(paymentID string) {
	c.stopIdleTimer()
	pollCtx, cancel := workflow.WithCancel(c.ctx)
	pollCtx = workflow.WithChildOptions(pollCtx, workflow.ChildWorkflowOptions{
		WorkflowID:            PollWorkflowID(paymentID),
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		ParentClosePolicy:     enumspb.PARENT_CLOSE_POLICY_REQUEST_CANCEL,
	})
	c.pollFuture = workflow.ExecuteChildWorkflow(pollCtx, BookingStatusWorkflow, models.PollInput{
		CheckoutID:  c.input.CheckoutID,
		PaymentID:   paymentID,
		Interval:    c.input.Settings.PollInterval,
		MaxDuration: c.input.Settings.PollMaxDuration,
	})
	c.pollCancel = cancel

	c.state.PaymentID = paymentID
	c.state.BookingStatus = models.BookingPending
	c.transition(models.StatePolling)
}

// stopPolling cancels the current poller and waits until it is gone.
func (c *checkout) stopPolling() {
	if c.pollCancel == nil {
		return
	}
	c.pollCancel()
	_ = c.pollFuture.Get(c.ctx, nil)
	c.pollFuture, c.pollCancel = nil, nil
}

func (c *checkout) pollDone(f workflow.Future) {
	var result *models.PollResult
	err := f.Get(c.ctx, &result)
	c.pollFuture, c.pollCancel = nil, nil
	if err != nil {
		if temporal.IsCanceledError(err) {
			return
		}
		c.logger.Error("Booking status poll failed", "paymentID", c.state.PaymentID, "error", err)
		c.state.BookingStatus = models.BookingUnknown
		c.fail(models.ErrorKindUnknown)
		return
	}

	c.state.BookingStatus = result.Status
	if result.Status != models.BookingUnknown {
		c.recordBookingStatus(result)
	}

	switch result.Status {
	case models.BookingConfirmed:
		c.state.Order = result.Order
		c.transition(models.StateConfirmed)
		c.sendConfirmation(activities.ConfirmationNotice{PaymentID: result.PaymentID, Order: result.Order})
	case models.BookingFailed:
		c.fail(models.ErrorKindBooking)
	default:
		c.fail(models.ErrorKindUnknown)
	}
}

func (c *checkout) abandon() {
	if c.done() {
		return
	}
	c.stopPolling()
	c.stopIdleTimer()
	c.payments.Discard()
	c.state.Widget = nil
	c.transition(models.StateAbandoned)
}

func (c *checkout) idleExpired(f workflow.Future) {
	if f != c.timerFuture {
		return
	}
	if err := f.Get(c.ctx, nil); err != nil {
		// Timer was cancelled by traveler activity
		return
	}
	c.timerFuture, c.cancelTimer = nil, nil

	switch c.state.State {
	case models.StateFormEditing, models.StateAwaitingPayment:
		c.logger.Info("Checkout idle, abandoning", "checkoutID", c.input.CheckoutID)
		c.abandon()
	case models.StateExecuting:
		// Paid but the traveler never came back with a payment id.
		c.logger.Warn("No payment return received", "checkoutID", c.input.CheckoutID)
		c.fail(models.ErrorKindUnknown)
	}
}

func (c *checkout) resetIdleTimer() {
	c.stopIdleTimer()
	if c.input.Settings.IdleTimeout <= 0 {
		return
	}
	timerCtx, cancel := workflow.WithCancel(c.ctx)
	c.timerFuture = workflow.NewTimer(timerCtx, c.input.Settings.IdleTimeout)
	c.cancelTimer = cancel
}

func (c *checkout) stopIdleTimer() {
	if c.cancelTimer != nil {
		c.cancelTimer()
	}
	c.timerFuture, c.cancelTimer = nil, nil
}

// backToForm returns to the last editable state after a failed step. Guest data stays.
func (c *checkout) backToForm(kind string) {
	c.payload = nil
	c.state.Widget = nil
	c.state.LastError = models.NewCheckoutError(kind)
	c.transition(models.StateFormEditing)
	c.resetIdleTimer()
}

func (c *checkout) fail(kind string) {
	c.stopIdleTimer()
	c.state.LastError = models.NewCheckoutError(kind)
	c.transition(models.StateFailed)
}

func (c *checkout) refreshForm() {
	c.state.Guests = c.form.Groups()
	c.state.Errors = c.form.VisibleErrors()
	c.state.FormValid = c.form.Result().Valid
}

func (c *checkout) touch() {
	c.state.UpdatedAt = workflow.Now(c.ctx)
}

// transition moves to the next state and mirrors it to the checkout row.
func (c *checkout) transition(state string) {
	c.state.State = state
	c.state.Outcome = models.Outcome(state)
	c.touch()

	err := workflow.ExecuteActivity(bookkeeping(c.ctx), orderActivities.UpdateCheckoutStatus,
		c.input.CheckoutID, state).Get(c.ctx, nil)
	if err != nil {
		c.logger.Warn("Failed to record checkout status", "state", state, "error", err)
	}
}

func (c *checkout) recordBookingStatus(result *models.PollResult) {
	err := workflow.ExecuteActivity(bookkeeping(c.ctx), orderActivities.RecordBookingStatus,
		result.PaymentID, result.Status, result.Order).Get(c.ctx, nil)
	if err != nil {
		c.logger.Warn("Failed to record booking status", "paymentID", result.PaymentID, "error", err)
	}
}

func (c *checkout) sendConfirmation(notice activities.ConfirmationNotice) {
	notice.CheckoutID = c.input.CheckoutID
	if c.payload != nil {
		notice.Email = c.payload.EmailId
	}
	err := workflow.ExecuteActivity(bookkeeping(c.ctx), orderActivities.SendConfirmation, notice).Get(c.ctx, nil)
	if err != nil {
		c.logger.Warn("Failed to send confirmation", "error", err)
	}
}

func hasReason(err error, reason string) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == reason
}
