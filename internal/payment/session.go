package payment

import (
	"errors"
	"fmt"

	"travel-checkout/internal/models"
)

// Phase is the lifecycle position of the current payment session.
type Phase string

const (
	PhaseUninitialized     Phase = "UNINITIALIZED"
	PhaseSessionRequested  Phase = "SESSION_REQUESTED"
	PhaseSessionReady      Phase = "SESSION_READY"
	PhaseWidgetInitialized Phase = "WIDGET_INITIALIZED"
)

// Widget defaults used by the current product
const (
	DefaultCurrency    = "SAR"
	DefaultContainerID = "embedded-payment"
)

var DefaultPaymentOptions = []string{"ApplePay", "Card"}

var (
	ErrInvalidTransition        = errors.New("invalid payment session transition")
	ErrEmptySession             = errors.New("payment session has no id")
	ErrWidgetAlreadyInitialized = errors.New("payment widget already initialized for this session")
	ErrSessionPayloadMismatch   = errors.New("payment session belongs to another booking payload")
	ErrSessionAlreadyExecuted   = errors.New("payment session already executed")
	ErrPaymentRejected          = errors.New("payment widget rejected the card data")
)

// WidgetOptions are the fixed parts of the widget configuration.
type WidgetOptions struct {
	Currency       string
	ContainerID    string
	PaymentOptions []string
}

// Manager drives one checkout's payment session and keeps the widget from being
// initialized twice or a session from being executed twice.
type Manager struct {
	opts       WidgetOptions
	phase      Phase
	session    models.PaymentSession
	payloadRef string
	amount     float64
	executed   map[string]bool
}

func NewManager(opts WidgetOptions) *Manager {
	if opts.Currency == "" {
		opts.Currency = DefaultCurrency
	}
	if opts.ContainerID == "" {
		opts.ContainerID = DefaultContainerID
	}
	if len(opts.PaymentOptions) == 0 {
		opts.PaymentOptions = DefaultPaymentOptions
	}
	return &Manager{
		opts:     opts,
		phase:    PhaseUninitialized,
		executed: make(map[string]bool),
	}
}

func (m *Manager) Phase() Phase { return m.phase }

// Request starts a session for one payload. A session is never shared between payloads,
// so a previous one must be discarded first.
func (m *Manager) Request(payloadRef string, amount float64) error {
	if m.phase != PhaseUninitialized {
		return fmt.Errorf("request from %s: %w", m.phase, ErrInvalidTransition)
	}
	m.phase = PhaseSessionRequested
	m.payloadRef = payloadRef
	m.amount = amount
	return nil
}

// Ready stores the session returned by the backend.
func (m *Manager) Ready(session models.PaymentSession) error {
	if m.phase != PhaseSessionRequested {
		return fmt.Errorf("ready from %s: %w", m.phase, ErrInvalidTransition)
	}
	if session.SessionID == "" {
		return ErrEmptySession
	}
	if m.executed[session.SessionID] {
		return fmt.Errorf("%s: %w", session.SessionID, ErrSessionAlreadyExecuted)
	}
	m.session = session
	m.phase = PhaseSessionReady
	return nil
}

// CanInitWidget reports whether InitWidget would succeed.
func (m *Manager) CanInitWidget() error {
	switch m.phase {
	case PhaseSessionReady:
		return nil
	case PhaseWidgetInitialized:
		return ErrWidgetAlreadyInitialized
	}
	return fmt.Errorf("init widget from %s: %w", m.phase, ErrInvalidTransition)
}

// InitWidget hands out the widget configuration exactly once per ready session.
func (m *Manager) InitWidget() (models.WidgetConfig, error) {
	if err := m.CanInitWidget(); err != nil {
		return models.WidgetConfig{}, err
	}
	m.phase = PhaseWidgetInitialized
	return m.widget(), nil
}

// Complete handles the widget callback. On success the session is consumed and returned
// for execution; a rejection puts the session back to ready so the traveler can retry.
func (m *Manager) Complete(payloadRef string, isSuccess bool) (models.PaymentSession, error) {
	if m.phase != PhaseWidgetInitialized {
		return models.PaymentSession{}, fmt.Errorf("complete from %s: %w", m.phase, ErrInvalidTransition)
	}
	if payloadRef != m.payloadRef {
		return models.PaymentSession{}, ErrSessionPayloadMismatch
	}
	if !isSuccess {
		m.phase = PhaseSessionReady
		return models.PaymentSession{}, ErrPaymentRejected
	}
	if m.executed[m.session.SessionID] {
		return models.PaymentSession{}, fmt.Errorf("%s: %w", m.session.SessionID, ErrSessionAlreadyExecuted)
	}

	session := m.session
	m.executed[session.SessionID] = true
	m.reset()
	return session, nil
}

// Discard abandons the current session; the next attempt must request a new one.
func (m *Manager) Discard() {
	m.reset()
}

func (m *Manager) reset() {
	m.phase = PhaseUninitialized
	m.session = models.PaymentSession{}
	m.payloadRef = ""
	m.amount = 0
}

// Widget returns the configuration while a session is usable, nil otherwise.
func (m *Manager) Widget() *models.WidgetConfig {
	if m.phase != PhaseSessionReady && m.phase != PhaseWidgetInitialized {
		return nil
	}
	w := m.widget()
	return &w
}

func (m *Manager) widget() models.WidgetConfig {
	return models.WidgetConfig{
		SessionID:      m.session.SessionID,
		CountryCode:    m.session.CountryCode,
		CurrencyCode:   m.opts.Currency,
		Amount:         m.amount,
		ContainerID:    m.opts.ContainerID,
		PaymentOptions: append([]string(nil), m.opts.PaymentOptions...),
	}
}
