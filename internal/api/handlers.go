package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"travel-checkout/internal/backend"
	"travel-checkout/internal/database"
	"travel-checkout/internal/models"
	"travel-checkout/internal/temporal/workflows"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// Store is the part of the database the API needs.
type Store interface {
	CreateCheckout(ctx context.Context, checkout *models.Checkout) error
	GetCheckout(ctx context.Context, checkoutID string) (*models.Checkout, error)
	GetLatestPayment(ctx context.Context, checkoutID string) (*models.Payment, error)
}

type Handler struct {
	Store          Store
	TemporalClient client.Client
	TaskQueue      string
	Settings       models.CheckoutSettings
	Logger         *logrus.Logger
}

func NewHandler(store Store, temporalClient client.Client, taskQueue string, settings models.CheckoutSettings, logger *logrus.Logger) *Handler {
	return &Handler{
		Store:          store,
		TemporalClient: temporalClient,
		TaskQueue:      taskQueue,
		Settings:       settings,
		Logger:         logger,
	}
}

// Health check endpoint
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// CreateHotelCheckout starts a checkout for a hotel room
func (h *Handler) CreateHotelCheckout(w http.ResponseWriter, r *http.Request) {
	var req models.CreateHotelCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	// Validate
	if strings.TrimSpace(req.BookingCode) == "" || len(req.PaxRooms) == 0 {
		http.Error(w, "bookingCode and paxRooms required", http.StatusBadRequest)
		return
	}
	for i, room := range req.PaxRooms {
		if room.Adults < 1 {
			http.Error(w, fmt.Sprintf("room %d needs at least one adult", i), http.StatusBadRequest)
			return
		}
		if room.Children < 0 || (len(room.ChildrenAges) > 0 && len(room.ChildrenAges) != room.Children) {
			http.Error(w, fmt.Sprintf("room %d has inconsistent children", i), http.StatusBadRequest)
			return
		}
	}

	h.startCheckout(w, r, models.CheckoutInput{
		Selection: models.InventorySelection{
			Product:    models.ProductHotel,
			Code:       req.BookingCode,
			TotalPrice: req.TotalFare,
			Currency:   req.Currency,
		},
		PaxRooms:   req.PaxRooms,
		PayAtHotel: req.PayAtHotel,
	})
}

// CreateFlightCheckout starts a checkout for a flight offer
func (h *Handler) CreateFlightCheckout(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFlightCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.FlightOffer) == 0 {
		http.Error(w, "flightOffer required", http.StatusBadRequest)
		return
	}

	selection, err := backend.ParseFlightOffer(req.FlightOffer)
	if err != nil || selection.Code == "" {
		http.Error(w, "flightOffer is not a valid offer", http.StatusBadRequest)
		return
	}
	travelers, err := backend.TravelerCount(req.FlightOffer)
	if err != nil || travelers == 0 {
		http.Error(w, "flightOffer has no travelers", http.StatusBadRequest)
		return
	}

	h.startCheckout(w, r, models.CheckoutInput{
		Selection: *selection,
		PaxRooms:  []models.PaxRoom{{Adults: travelers}},
	})
}

func (h *Handler) startCheckout(w http.ResponseWriter, r *http.Request, input models.CheckoutInput) {
	checkoutID := uuid.New().String()
	input.CheckoutID = checkoutID
	input.Settings = h.Settings

	checkout := &models.Checkout{
		CheckoutID:    checkoutID,
		Product:       input.Selection.Product,
		InventoryCode: input.Selection.Code,
		Status:        models.StateGated,
		WorkflowID:    checkoutID,
	}
	if err := h.Store.CreateCheckout(r.Context(), checkout); err != nil {
		h.Logger.WithError(err).Error("Failed to store checkout")
		http.Error(w, "failed to create checkout", http.StatusInternalServerError)
		return
	}

	// Start Temporal workflow
	workflowOptions := client.StartWorkflowOptions{
		ID:        checkoutID,
		TaskQueue: h.TaskQueue,
	}
	we, err := h.TemporalClient.ExecuteWorkflow(r.Context(), workflowOptions, workflows.CheckoutWorkflow, input)
	if err != nil {
		h.Logger.WithError(err).WithField("checkoutId", checkoutID).Error("Failed to start checkout workflow")
		http.Error(w, "failed to start checkout", http.StatusInternalServerError)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"checkoutId": checkoutID,
		"product":    input.Selection.Product,
		"runId":      we.GetRunID(),
	}).Info("Checkout started")

	writeJSON(w, http.StatusCreated, models.CreateCheckoutResponse{
		CheckoutID: checkoutID,
		Product:    input.Selection.Product,
		Status:     models.StateGated,
		WorkflowID: we.GetID(),
	})
}

// GetCheckout returns the live checkout state, or the stored status once the workflow is gone
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	checkout, ok := h.lookup(w, r)
	if !ok {
		return
	}

	// Query workflow for current state
	resp, err := h.TemporalClient.QueryWorkflow(r.Context(), checkout.WorkflowID, "", workflows.QueryGetState)
	if err != nil {
		h.Logger.WithError(err).WithField("checkoutId", checkout.CheckoutID).Debug("Query failed, using stored status")
		writeJSON(w, http.StatusOK, h.storedState(r.Context(), checkout))
		return
	}

	var state *models.CheckoutState
	if err := resp.Get(&state); err != nil {
		http.Error(w, fmt.Sprintf("failed to get workflow state: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// storedState rebuilds what the rows know about a checkout whose workflow is gone.
func (h *Handler) storedState(ctx context.Context, checkout *models.Checkout) models.CheckoutState {
	state := models.CheckoutState{
		CheckoutID: checkout.CheckoutID,
		State:      checkout.Status,
		Outcome:    models.Outcome(checkout.Status),
		UpdatedAt:  checkout.UpdatedAt,
	}

	p, err := h.Store.GetLatestPayment(ctx, checkout.CheckoutID)
	if err != nil {
		if !errors.Is(err, database.ErrPaymentNotFound) {
			h.Logger.WithError(err).WithField("checkoutId", checkout.CheckoutID).Warn("Failed to load payment")
		}
		return state
	}
	if p.PaymentID != nil {
		state.PaymentID = *p.PaymentID
		state.BookingStatus = models.BookingStatus(p.Status)
	}
	if p.OrderJSON != nil {
		state.Order = json.RawMessage(*p.OrderJSON)
	}
	return state
}

// UpdateGuest sets one guest field
func (h *Handler) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	var req models.GuestFieldUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path required", http.StatusBadRequest)
		return
	}

	h.signal(w, r, workflows.SignalUpdateGuest, req, "guest updated")
}

// Submit asks the checkout to validate the form and continue to payment
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, workflows.SignalSubmit, nil, "submitted")
}

// InitWidget hands out the payment widget configuration, once per payment session
func (h *Handler) InitWidget(w http.ResponseWriter, r *http.Request) {
	checkout, ok := h.lookup(w, r)
	if !ok {
		return
	}

	handle, err := h.TemporalClient.UpdateWorkflow(r.Context(), client.UpdateWorkflowOptions{
		WorkflowID:   checkout.WorkflowID,
		UpdateName:   workflows.UpdateInitWidget,
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	var cfg models.WidgetConfig
	if err == nil {
		err = handle.Get(r.Context(), &cfg)
	}
	if err != nil {
		if isGone(err) {
			http.Error(w, "checkout is no longer active", http.StatusGone)
			return
		}
		h.Logger.WithError(err).WithField("checkoutId", checkout.CheckoutID).Info("Widget initialization refused")
		http.Error(w, "payment widget cannot be initialized now", http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// PaymentResult forwards the widget callback
func (h *Handler) PaymentResult(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentResultSignal
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	h.signal(w, r, workflows.SignalPaymentResult, req, "payment result received")
}

// PaymentReturn records the traveler's return from the payment page
func (h *Handler) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentReturnSignal
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.PaymentID) == "" {
		http.Error(w, "paymentId required", http.StatusBadRequest)
		return
	}

	h.signal(w, r, workflows.SignalPaymentReturned, req, "payment return received")
}

// Abandon tears the checkout down
func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, workflows.SignalAbandon, nil, "checkout abandoned")
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*models.Checkout, bool) {
	checkoutID := mux.Vars(r)["checkoutId"]

	checkout, err := h.Store.GetCheckout(r.Context(), checkoutID)
	if errors.Is(err, database.ErrCheckoutNotFound) {
		http.Error(w, "checkout not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.Logger.WithError(err).WithField("checkoutId", checkoutID).Error("Failed to load checkout")
		http.Error(w, "failed to load checkout", http.StatusInternalServerError)
		return nil, false
	}
	return checkout, true
}

func (h *Handler) signal(w http.ResponseWriter, r *http.Request, name string, arg interface{}, message string) {
	checkout, ok := h.lookup(w, r)
	if !ok {
		return
	}

	// Send signal to workflow
	err := h.TemporalClient.SignalWorkflow(r.Context(), checkout.WorkflowID, "", name, arg)
	if err != nil {
		if isGone(err) {
			http.Error(w, "checkout is no longer active", http.StatusGone)
			return
		}
		h.Logger.WithError(err).WithFields(logrus.Fields{"checkoutId": checkout.CheckoutID, "signal": name}).Error("Failed to send signal")
		http.Error(w, "failed to send signal", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"message": message})
}

// isGone reports whether the workflow has already completed.
func isGone(err error) bool {
	var notFound *serviceerror.NotFound
	return errors.As(err, &notFound)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
