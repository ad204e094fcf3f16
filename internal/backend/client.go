package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"travel-checkout/internal/config"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

var (
	ErrEmptyResult       = errors.New("backend returned no result")
	ErrMalformedResponse = errors.New("malformed backend response")
)

// Error is a failed backend call. Network failures and 5xx answers are retryable,
// everything else is a rejection of the request itself.
type Error struct {
	Op         string
	StatusCode int
	Retryable  bool
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Retryable
	}
	return false
}

// IsRejected reports whether the backend answered err with a 4xx, meaning the request
// was refused and not carried out.
func IsRejected(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.StatusCode >= 400 && be.StatusCode < 500
	}
	return false
}

// Client talks JSON to the booking and payment backend behind a single base URL.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewClient(cfg config.BackendConfig, logger *logrus.Logger) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

func (c *Client) post(ctx context.Context, op, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, Retryable: true, Err: err}
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{"op": op, "path": path}).WithError(err).Warn("Backend request failed")
		return &Error{Op: op, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Retryable: true, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.WithFields(logrus.Fields{
		"op":       op,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Backend request completed")

	if resp.StatusCode >= 300 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		c.logger.WithFields(logrus.Fields{
			"op":     op,
			"status": resp.StatusCode,
			"body":   string(raw),
		}).Debug("Backend error body")
		return &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Body:       string(raw),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	return nil
}

// Amount decodes prices sent either as JSON numbers or numeric strings.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}
