package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"travel-checkout/internal/config"
	"travel-checkout/internal/models"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	path string
	body map[string]interface{}
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)
		calls = append(calls, recorded{path: r.URL.Path, body: body})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	client := NewClient(config.BackendConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, logger)
	return client, &calls
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestPreBookRoomWrappedRooms(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"HotelResult":[{"HotelCode":"H1","Currency":"USD","Rooms":[
			{"BookingCode":"BC-1!fresh","TotalFare":412.75,"CancelPolicies":[{"FromDate":"2026-11-01","Charge":100}]}]}]}}`)
	})

	sel, err := client.PreBookRoom(context.Background(), "BC-1")
	require.NoError(t, err)

	assert.Equal(t, "/hotels/PreBookRoom", (*calls)[0].path)
	assert.Equal(t, "BC-1", (*calls)[0].body["BookingCode"])
	assert.Equal(t, models.ProductHotel, sel.Product)
	assert.Equal(t, "BC-1!fresh", sel.Code)
	assert.Equal(t, 412.75, sel.TotalPrice)
	assert.Equal(t, "USD", sel.Currency)
	assert.JSONEq(t, `[{"FromDate":"2026-11-01","Charge":100}]`, string(sel.CancelPolicies))
}

func TestPreBookRoomFlatRoom(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"HotelResult":[{"TotalFare":"99.5","Currency":"SAR"}]}}`)
	})

	sel, err := client.PreBookRoom(context.Background(), "BC-2")
	require.NoError(t, err)
	assert.Equal(t, "BC-2", sel.Code)
	assert.Equal(t, 99.5, sel.TotalPrice)
}

func TestPreBookRoomEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"HotelResult":[]}}`)
	})

	_, err := client.PreBookRoom(context.Background(), "BC-3")
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.False(t, IsRetryable(err))
}

func TestErrorClassification(t *testing.T) {
	status := http.StatusBadGateway
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, `{"message":"upstream exploded"}`)
	})

	_, err := client.InitiateSession(context.Background())
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRejected(err))

	status = http.StatusUnprocessableEntity
	_, err = client.InitiateSession(context.Background())
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.True(t, IsRejected(err))

	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusUnprocessableEntity, be.StatusCode)
	assert.Contains(t, be.Body, "upstream exploded")
	assert.NotContains(t, be.Error(), "upstream exploded")
}

func TestNetworkErrorIsRetryable(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	client := NewClient(config.BackendConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, logger)

	_, err := client.BookingStatus(context.Background(), "pay-1")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRejected(err))
}

func TestErrorBodyIsLoggedAtDebug(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"message":"session expired"}`)
	})
	client.logger.SetLevel(logrus.DebugLevel)
	hook := logtest.NewLocal(client.logger)

	_, err := client.InitiateSession(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "session expired")

	var logged bool
	for _, entry := range hook.AllEntries() {
		if body, ok := entry.Data["body"].(string); ok && entry.Level == logrus.DebugLevel {
			assert.Contains(t, body, "session expired")
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestFlightPricing(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"flightOffers":[{"id":"7","price":{"total":"1000.00","currency":"SAR"}}]},"presentageCommission":7}`)
	})

	sel, err := client.FlightPricing(context.Background(), json.RawMessage(`{"id":"7"}`))
	require.NoError(t, err)

	assert.Equal(t, "/flights/flight-pricing", (*calls)[0].path)
	assert.Equal(t, map[string]interface{}{"id": "7"}, (*calls)[0].body["flightOffer"])
	assert.Equal(t, models.ProductFlight, sel.Product)
	assert.Equal(t, "7", sel.Code)
	assert.Equal(t, 1000.0, sel.TotalPrice)
	assert.Equal(t, 7.0, sel.CommissionPercent)
}

func TestTravelerCount(t *testing.T) {
	n, err := TravelerCount(json.RawMessage(`{"travelerPricings":[{"travelerType":"ADULT"},{"travelerType":"CHILD"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = TravelerCount(json.RawMessage(`[`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestInitiateSession(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"Data":{"SessionId":"sess-1","CountryCode":"SAU"}}}`)
	})

	session, err := client.InitiateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/payment/initiateSession", (*calls)[0].path)
	assert.Equal(t, models.PaymentSession{SessionID: "sess-1", CountryCode: "SAU"}, *session)
}

func TestExecutePaymentHotel(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"paymentUrl":"https://pay.example.com/inv/1"}`)
	})

	result, err := client.ExecutePayment(context.Background(), models.ExecutePaymentRequest{
		SessionID:    "sess-1",
		InvoiceValue: 410.5,
		Selection:    models.InventorySelection{Product: models.ProductHotel, Code: "BC-1"},
		Payload:      &models.BookingPayload{BookingCode: "BC-1"},
		Travelers:    []models.GuestRecord{{Title: "Mr", FirstName: "John", LastName: "Doe"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/inv/1", result.PaymentURL)

	body := (*calls)[0].body
	assert.Equal(t, "sess-1", body["sessionId"])
	assert.Equal(t, 410.5, body["invoiceValue"])
	assert.NotNil(t, body["hotelData"])
	assert.NotContains(t, body, "flightData")
	assert.Len(t, body["travelers"], 1)
}

func TestExecutePaymentWithoutURL(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := client.ExecutePayment(context.Background(), models.ExecutePaymentRequest{
		SessionID: "sess-1",
		Selection: models.InventorySelection{Product: models.ProductFlight, Offer: json.RawMessage(`{"id":"7"}`)},
	})
	assert.ErrorIs(t, err, ErrMissingPaymentURL)
}

func TestBookingStatus(t *testing.T) {
	body := `{"status":"PENDING"}`
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	})

	result, err := client.BookingStatus(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, result.Status)
	assert.Equal(t, "pay-1", (*calls)[0].body["paymentId"])

	body = `{"status":"CONFIRMED","order":{"_id":"o-1","invoiceId":"inv-1"}}`
	result, err = client.BookingStatus(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, result.Status)
	assert.JSONEq(t, `{"_id":"o-1","invoiceId":"inv-1"}`, string(result.Order))

	body = `{"status":"MAYBE"}`
	_, err = client.BookingStatus(context.Background(), "pay-1")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestBookRoom(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"bookingId":"B-9"}`)
	})

	result, err := client.BookRoom(context.Background(), &models.BookingPayload{BookingCode: "BC-1", PaymentMode: "PayLater"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "B-9", result.BookingID)
	assert.Equal(t, "/hotels/BookRoom", (*calls)[0].path)
	assert.Equal(t, "PayLater", (*calls)[0].body["PaymentMode"])
}
