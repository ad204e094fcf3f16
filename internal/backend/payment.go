package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"travel-checkout/internal/models"
)

var ErrMissingPaymentURL = errors.New("execute-payment returned no payment url")

type initiateSessionResponse struct {
	Data struct {
		Data struct {
			SessionID   string `json:"SessionId"`
			CountryCode string `json:"CountryCode"`
		} `json:"Data"`
	} `json:"data"`
}

// InitiateSession opens a payment session for the embedded widget.
func (c *Client) InitiateSession(ctx context.Context) (*models.PaymentSession, error) {
	var resp initiateSessionResponse
	if err := c.post(ctx, "InitiateSession", "/payment/initiateSession", struct{}{}, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Data.SessionID == "" {
		return nil, &Error{Op: "InitiateSession", Err: ErrEmptyResult}
	}
	return &models.PaymentSession{
		SessionID:   resp.Data.Data.SessionID,
		CountryCode: resp.Data.Data.CountryCode,
	}, nil
}

type executePaymentRequest struct {
	SessionID    string                 `json:"sessionId"`
	InvoiceValue float64                `json:"invoiceValue"`
	FlightData   json.RawMessage        `json:"flightData,omitempty"`
	HotelData    *models.BookingPayload `json:"hotelData,omitempty"`
	Travelers    []models.GuestRecord   `json:"travelers"`
}

type executePaymentResponse struct {
	PaymentURL string `json:"paymentUrl"`
	PaymentID  string `json:"paymentId"`
}

// ExecutePayment asks the backend to capture the payment and persist the booking.
// Flights send the priced offer, hotels the booking payload.
func (c *Client) ExecutePayment(ctx context.Context, req models.ExecutePaymentRequest) (*models.ExecutePaymentResult, error) {
	body := executePaymentRequest{
		SessionID:    req.SessionID,
		InvoiceValue: req.InvoiceValue,
		Travelers:    req.Travelers,
	}
	switch req.Selection.Product {
	case models.ProductFlight:
		body.FlightData = req.Selection.Offer
	default:
		body.HotelData = req.Payload
	}

	var resp executePaymentResponse
	if err := c.post(ctx, "ExecutePayment", "/payment/execute-payment", body, &resp); err != nil {
		return nil, err
	}
	if resp.PaymentURL == "" {
		return nil, &Error{Op: "ExecutePayment", Err: ErrMissingPaymentURL}
	}
	return &models.ExecutePaymentResult{PaymentURL: resp.PaymentURL, PaymentID: resp.PaymentID}, nil
}

type bookingStatusRequest struct {
	PaymentID string `json:"paymentId"`
}

type bookingStatusResponse struct {
	Status string          `json:"status"`
	Order  json.RawMessage `json:"order"`
}

// BookingStatus reads the out-of-band booking outcome for a payment.
func (c *Client) BookingStatus(ctx context.Context, paymentID string) (*models.BookingStatusResult, error) {
	var resp bookingStatusResponse
	if err := c.post(ctx, "BookingStatus", "/payment/bookingStatus", bookingStatusRequest{PaymentID: paymentID}, &resp); err != nil {
		return nil, err
	}

	status := models.BookingStatus(resp.Status)
	switch status {
	case models.BookingPending, models.BookingConfirmed, models.BookingFailed:
	default:
		return nil, &Error{Op: "BookingStatus", Err: fmt.Errorf("%w: status %q", ErrMalformedResponse, resp.Status)}
	}

	result := &models.BookingStatusResult{Status: status}
	if status == models.BookingConfirmed && len(resp.Order) > 0 && string(resp.Order) != "null" {
		result.Order = resp.Order
	}
	return result, nil
}
