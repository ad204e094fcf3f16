package activities

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"travel-checkout/internal/backend"
	"travel-checkout/internal/config"
	"travel-checkout/internal/database"
	"travel-checkout/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type ActivitiesTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env     *testsuite.TestActivityEnvironment
	handler http.HandlerFunc
	mock    sqlmock.Sqlmock
	db      *database.DB
	client  *backend.Client
	logger  *logrus.Logger
}

func (s *ActivitiesTestSuite) SetupTest() {
	s.env = s.NewTestActivityEnvironment()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))
	s.T().Cleanup(srv.Close)

	s.logger = logrus.New()
	s.logger.SetOutput(io.Discard)
	s.client = backend.NewClient(config.BackendConfig{BaseURL: srv.URL, Timeout: time.Second}, s.logger)

	sqlDB, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.T().Cleanup(func() { sqlDB.Close() })
	s.mock = mock
	s.db = &database.DB{DB: sqlDB}
}

func (s *ActivitiesTestSuite) respond(status int, body string) {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (s *ActivitiesTestSuite) applicationError(err error) *temporal.ApplicationError {
	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr), "expected application error, got %v", err)
	return appErr
}

func (s *ActivitiesTestSuite) TestPreBookHotel() {
	s.respond(http.StatusOK, `{"data":{"HotelResult":[{"BookingCode":"BC-1","TotalFare":420,"Currency":"SAR"}]}}`)
	gate := NewGateActivities(s.client, s.logger)
	s.env.RegisterActivity(gate)

	val, err := s.env.ExecuteActivity(gate.PreBook, models.InventorySelection{
		Product: models.ProductHotel, Code: "BC-1", TotalPrice: 400,
	})
	s.Require().NoError(err)

	var fresh models.InventorySelection
	s.Require().NoError(val.Get(&fresh))
	s.Equal(420.0, fresh.TotalPrice)
	s.Equal("SAR", fresh.Currency)
}

func (s *ActivitiesTestSuite) TestPreBookRejectedIsNotRetried() {
	s.respond(http.StatusBadRequest, `{"message":"room sold out"}`)
	gate := NewGateActivities(s.client, s.logger)
	s.env.RegisterActivity(gate)

	_, err := s.env.ExecuteActivity(gate.PreBook, models.InventorySelection{Product: models.ProductHotel, Code: "BC-1"})
	s.Require().Error(err)

	appErr := s.applicationError(err)
	s.True(appErr.NonRetryable())
	s.Equal(ReasonGateRejected, appErr.Type())
	s.NotContains(err.Error(), "room sold out")
}

func (s *ActivitiesTestSuite) TestPreBookUnavailableIsRetryable() {
	s.respond(http.StatusServiceUnavailable, `{}`)
	gate := NewGateActivities(s.client, s.logger)
	s.env.RegisterActivity(gate)

	_, err := s.env.ExecuteActivity(gate.PreBook, models.InventorySelection{Product: models.ProductHotel, Code: "BC-1"})
	s.Require().Error(err)

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		s.False(appErr.NonRetryable())
	}
}

func (s *ActivitiesTestSuite) TestExecutePaymentRecordsPayment() {
	s.respond(http.StatusOK, `{"paymentUrl":"https://pay.example.com/1","paymentId":"pay-1"}`)
	s.mock.ExpectExec("INSERT INTO payments").
		WithArgs("sess-1", "chk-1", 410.5, "PENDING").
		WillReturnResult(sqlmock.NewResult(1, 1))

	payments := NewPaymentActivities(s.client, s.db, s.logger)
	s.env.RegisterActivity(payments)

	val, err := s.env.ExecuteActivity(payments.ExecutePayment, models.ExecutePaymentRequest{
		CheckoutID:   "chk-1",
		SessionID:    "sess-1",
		InvoiceValue: 410.5,
		Selection:    models.InventorySelection{Product: models.ProductHotel, Code: "BC-1"},
		Payload:      &models.BookingPayload{BookingCode: "BC-1"},
	})
	s.Require().NoError(err)

	var result models.ExecutePaymentResult
	s.Require().NoError(val.Get(&result))
	s.Equal("pay-1", result.PaymentID)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ActivitiesTestSuite) TestExecutePaymentKeepsResultWhenAuditFails() {
	s.respond(http.StatusOK, `{"paymentUrl":"https://pay.example.com/1"}`)
	s.mock.ExpectExec("INSERT INTO payments").WillReturnError(errors.New("connection reset"))

	payments := NewPaymentActivities(s.client, s.db, s.logger)
	s.env.RegisterActivity(payments)

	val, err := s.env.ExecuteActivity(payments.ExecutePayment, models.ExecutePaymentRequest{
		CheckoutID: "chk-1",
		SessionID:  "sess-1",
		Selection:  models.InventorySelection{Product: models.ProductFlight, Offer: json.RawMessage(`{"id":"1"}`)},
	})
	s.Require().NoError(err)

	var result models.ExecutePaymentResult
	s.Require().NoError(val.Get(&result))
	s.Equal("https://pay.example.com/1", result.PaymentURL)
}

func (s *ActivitiesTestSuite) TestPreBookSameCodeGivesSameSnapshot() {
	s.respond(http.StatusOK, `{"data":{"HotelResult":[{"BookingCode":"BC-1","TotalFare":420,"Currency":"SAR"}]}}`)
	gate := NewGateActivities(s.client, s.logger)
	s.env.RegisterActivity(gate)

	selection := models.InventorySelection{Product: models.ProductHotel, Code: "BC-1", TotalPrice: 400}
	var snapshots [2]models.InventorySelection
	for i := range snapshots {
		val, err := s.env.ExecuteActivity(gate.PreBook, selection)
		s.Require().NoError(err)
		s.Require().NoError(val.Get(&snapshots[i]))
	}
	s.Equal(snapshots[0], snapshots[1])
}

func (s *ActivitiesTestSuite) executeHotelPayment() error {
	payments := NewPaymentActivities(s.client, s.db, s.logger)
	s.env.RegisterActivity(payments)

	_, err := s.env.ExecuteActivity(payments.ExecutePayment, models.ExecutePaymentRequest{
		CheckoutID:   "chk-1",
		SessionID:    "sess-1",
		InvoiceValue: 410.5,
		Selection:    models.InventorySelection{Product: models.ProductHotel, Code: "BC-1"},
		Payload:      &models.BookingPayload{BookingCode: "BC-1"},
	})
	return err
}

func (s *ActivitiesTestSuite) TestExecutePaymentRefusedIsRejected() {
	s.respond(http.StatusBadRequest, `{"message":"invalid session"}`)

	err := s.executeHotelPayment()
	s.Require().Error(err)

	appErr := s.applicationError(err)
	s.Equal(ReasonExecutionRejected, appErr.Type())
	s.True(appErr.NonRetryable())
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ActivitiesTestSuite) TestExecutePaymentServerErrorIsUnknown() {
	s.respond(http.StatusBadGateway, `{}`)

	err := s.executeHotelPayment()
	s.Require().Error(err)

	appErr := s.applicationError(err)
	s.Equal(ReasonPaymentUnknown, appErr.Type())
	s.True(appErr.NonRetryable())
}

func (s *ActivitiesTestSuite) TestUpdateCheckoutStatusNotFound() {
	s.mock.ExpectExec("UPDATE checkouts").
		WithArgs(models.StateFormEditing, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	orders := NewOrderActivities(s.db, s.logger)
	s.env.RegisterActivity(orders)

	_, err := s.env.ExecuteActivity(orders.UpdateCheckoutStatus, "missing", models.StateFormEditing)
	s.Require().Error(err)
	s.Equal(ReasonCheckoutNotFound, s.applicationError(err).Type())
}

func (s *ActivitiesTestSuite) TestBindPaymentIDTaken() {
	s.mock.ExpectExec("UPDATE payments").
		WithArgs("pay-1", "chk-2", "sess-2").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'pay-1'"})

	orders := NewOrderActivities(s.db, s.logger)
	s.env.RegisterActivity(orders)

	_, err := s.env.ExecuteActivity(orders.BindPaymentID, "chk-2", "sess-2", "pay-1")
	s.Require().Error(err)

	appErr := s.applicationError(err)
	s.Equal(ReasonPaymentIDTaken, appErr.Type())
	s.True(appErr.NonRetryable())
}

func (s *ActivitiesTestSuite) TestRecordBookingStatus() {
	s.mock.ExpectExec("UPDATE payments").
		WithArgs("CONFIRMED", `{"_id":"o-1"}`, "pay-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	orders := NewOrderActivities(s.db, s.logger)
	s.env.RegisterActivity(orders)

	_, err := s.env.ExecuteActivity(orders.RecordBookingStatus, "pay-1", models.BookingConfirmed, json.RawMessage(`{"_id":"o-1"}`))
	s.Require().NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func TestActivitiesTestSuite(t *testing.T) {
	suite.Run(t, new(ActivitiesTestSuite))
}
