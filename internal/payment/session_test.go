package payment

import (
	"testing"

	"travel-checkout/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(WidgetOptions{})
	require.NoError(t, m.Request("TBO-BOOK-1", 1050))
	require.NoError(t, m.Ready(models.PaymentSession{SessionID: "sess-1", CountryCode: "SAU"}))
	return m
}

func TestManagerHappyPath(t *testing.T) {
	m := NewManager(WidgetOptions{})
	assert.Equal(t, PhaseUninitialized, m.Phase())
	assert.Nil(t, m.Widget())

	require.NoError(t, m.Request("TBO-BOOK-1", 1050))
	assert.Equal(t, PhaseSessionRequested, m.Phase())

	require.NoError(t, m.Ready(models.PaymentSession{SessionID: "sess-1", CountryCode: "SAU"}))
	assert.Equal(t, PhaseSessionReady, m.Phase())

	cfg, err := m.InitWidget()
	require.NoError(t, err)
	assert.Equal(t, models.WidgetConfig{
		SessionID:      "sess-1",
		CountryCode:    "SAU",
		CurrencyCode:   "SAR",
		Amount:         1050,
		ContainerID:    "embedded-payment",
		PaymentOptions: []string{"ApplePay", "Card"},
	}, cfg)

	session, err := m.Complete("TBO-BOOK-1", true)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.SessionID)
	assert.Equal(t, PhaseUninitialized, m.Phase())
}

func TestManagerInitWidgetOnlyOnce(t *testing.T) {
	m := readyManager(t)

	_, err := m.InitWidget()
	require.NoError(t, err)

	_, err = m.InitWidget()
	assert.ErrorIs(t, err, ErrWidgetAlreadyInitialized)
	assert.Equal(t, PhaseWidgetInitialized, m.Phase())
}

func TestManagerRejectionReturnsToReady(t *testing.T) {
	m := readyManager(t)
	_, err := m.InitWidget()
	require.NoError(t, err)

	_, err = m.Complete("TBO-BOOK-1", false)
	assert.ErrorIs(t, err, ErrPaymentRejected)
	assert.Equal(t, PhaseSessionReady, m.Phase())
	require.NotNil(t, m.Widget())
	assert.Equal(t, "sess-1", m.Widget().SessionID, "same session is kept for the retry")

	_, err = m.InitWidget()
	require.NoError(t, err)
	session, err := m.Complete("TBO-BOOK-1", true)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.SessionID)
}

func TestManagerGuards(t *testing.T) {
	m := NewManager(WidgetOptions{})

	_, err := m.InitWidget()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, m.Ready(models.PaymentSession{SessionID: "x"}), ErrInvalidTransition)

	require.NoError(t, m.Request("A", 10))
	assert.ErrorIs(t, m.Request("B", 10), ErrInvalidTransition)
	assert.ErrorIs(t, m.Ready(models.PaymentSession{}), ErrEmptySession)

	require.NoError(t, m.Ready(models.PaymentSession{SessionID: "s"}))
	_, err = m.Complete("A", true)
	assert.ErrorIs(t, err, ErrInvalidTransition, "widget must be initialized first")

	_, err = m.InitWidget()
	require.NoError(t, err)
	_, err = m.Complete("B", true)
	assert.ErrorIs(t, err, ErrSessionPayloadMismatch)
}

func TestManagerNeverReusesExecutedSession(t *testing.T) {
	m := readyManager(t)
	_, err := m.InitWidget()
	require.NoError(t, err)
	_, err = m.Complete("TBO-BOOK-1", true)
	require.NoError(t, err)

	require.NoError(t, m.Request("TBO-BOOK-2", 1050))
	err = m.Ready(models.PaymentSession{SessionID: "sess-1"})
	assert.ErrorIs(t, err, ErrSessionAlreadyExecuted)
}

func TestManagerDiscard(t *testing.T) {
	m := readyManager(t)
	m.Discard()

	assert.Equal(t, PhaseUninitialized, m.Phase())
	assert.Nil(t, m.Widget())
	require.NoError(t, m.Request("TBO-BOOK-2", 99))
}
