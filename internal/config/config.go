package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"travel-checkout/internal/models"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort        string
	DatabaseDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TaskQueue         string
	LogLevel          string
	LogFormat         string

	Backend  BackendConfig
	Checkout CheckoutConfig
}

// BackendConfig selects the booking/payment backend host.
type BackendConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// CheckoutConfig holds the per-attempt defaults handed to every checkout workflow.
type CheckoutConfig struct {
	PollInterval             time.Duration
	PollMaxDuration          time.Duration
	IdleTimeout              time.Duration
	Currency                 string
	ContainerID              string
	PaymentOptions           []string
	DefaultCommissionPercent float64
	ClientRefPrefix          string
	BookingRefPrefix         string
}

var ErrMissingBaseURL = errors.New("BACKEND_BASE_URL is required")

func Load() *Config {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseDSN:       getEnv("DATABASE_DSN", "checkout_user:checkout_pass@tcp(localhost:3306)/travel_checkout?parseTime=true"),
		TemporalAddress:   getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace: getEnv("TEMPORAL_NAMESPACE", "default"),
		TaskQueue:         getEnv("TEMPORAL_TASK_QUEUE", "checkout-task-queue"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		Backend: BackendConfig{
			BaseURL:           strings.TrimRight(getEnv("BACKEND_BASE_URL", ""), "/"),
			Timeout:           parseDuration(getEnv("BACKEND_TIMEOUT", "20s"), 20*time.Second),
			RequestsPerSecond: parseFloat(getEnv("BACKEND_RPS", "10"), 10),
		},
		Checkout: CheckoutConfig{
			PollInterval:             parseDuration(getEnv("POLL_INTERVAL", "8s"), 8*time.Second),
			PollMaxDuration:          parseDuration(getEnv("POLL_MAX_DURATION", "0s"), 0),
			IdleTimeout:              parseDuration(getEnv("CHECKOUT_IDLE_TIMEOUT", "30m"), 30*time.Minute),
			Currency:                 getEnv("PAYMENT_CURRENCY", "SAR"),
			ContainerID:              getEnv("PAYMENT_CONTAINER_ID", "embedded-payment"),
			PaymentOptions:           parseList(getEnv("PAYMENT_OPTIONS", "ApplePay,Card")),
			DefaultCommissionPercent: parseFloat(getEnv("DEFAULT_COMMISSION_PERCENT", "5"), 5),
			ClientRefPrefix:          getEnv("CLIENT_REF_PREFIX", "CASE7-"),
			BookingRefPrefix:         getEnv("BOOKING_REF_PREFIX", "TBO-BOOK-CASE9-"),
		},
	}
}

// Validate checks the settings a process cannot run without.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return ErrMissingBaseURL
	}
	return nil
}

// Settings converts the checkout defaults into the explicit workflow context.
func (c CheckoutConfig) Settings() models.CheckoutSettings {
	return models.CheckoutSettings{
		PollInterval:             c.PollInterval,
		PollMaxDuration:          c.PollMaxDuration,
		IdleTimeout:              c.IdleTimeout,
		Currency:                 c.Currency,
		ContainerID:              c.ContainerID,
		PaymentOptions:           append([]string(nil), c.PaymentOptions...),
		DefaultCommissionPercent: c.DefaultCommissionPercent,
		ClientRefPrefix:          c.ClientRefPrefix,
		BookingRefPrefix:         c.BookingRefPrefix,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
