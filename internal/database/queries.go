package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"travel-checkout/internal/models"
)

// CreateCheckout stores a new checkout attempt
func (db *DB) CreateCheckout(ctx context.Context, checkout *models.Checkout) error {
	query := `
		INSERT INTO checkouts (checkout_id, product, inventory_code, status, workflow_id)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query, checkout.CheckoutID, checkout.Product, checkout.InventoryCode,
		checkout.Status, checkout.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to create checkout: %w", err)
	}

	return nil
}

// GetCheckout retrieves a checkout by ID
func (db *DB) GetCheckout(ctx context.Context, checkoutID string) (*models.Checkout, error) {
	query := `
		SELECT checkout_id, product, inventory_code, status, workflow_id, created_at, updated_at
		FROM checkouts
		WHERE checkout_id = ?
	`

	var c models.Checkout
	err := db.QueryRowContext(ctx, query, checkoutID).Scan(
		&c.CheckoutID, &c.Product, &c.InventoryCode, &c.Status,
		&c.WorkflowID, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout: %w", err)
	}

	return &c, nil
}

// UpdateCheckoutStatus updates a checkout's state
func (db *DB) UpdateCheckoutStatus(ctx context.Context, checkoutID, status string) error {
	query := `
		UPDATE checkouts
		SET status = ?, updated_at = NOW()
		WHERE checkout_id = ?
	`

	result, err := db.ExecContext(ctx, query, status, checkoutID)
	if err != nil {
		return fmt.Errorf("failed to update checkout status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrCheckoutNotFound
	}

	return nil
}

// CreatePayment records an executed payment session
func (db *DB) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (session_id, checkout_id, invoice_value, status)
		VALUES (?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query, payment.SessionID, payment.CheckoutID, payment.InvoiceValue, payment.Status)
	if isDuplicate(err) {
		return fmt.Errorf("session %s: %w", payment.SessionID, ErrSessionAlreadyStored)
	}
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// BindPaymentID attaches the provider's payment id to the session it paid for.
// A payment id can belong to one session only.
func (db *DB) BindPaymentID(ctx context.Context, checkoutID, sessionID, paymentID string) error {
	query := `
		UPDATE payments
		SET payment_id = ?, updated_at = NOW()
		WHERE checkout_id = ? AND session_id = ?
	`

	result, err := db.ExecContext(ctx, query, paymentID, checkoutID, sessionID)
	if isDuplicate(err) {
		return fmt.Errorf("payment %s: %w", paymentID, ErrPaymentIDTaken)
	}
	if err != nil {
		return fmt.Errorf("failed to bind payment id: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

// UpdatePaymentStatus stores the booking outcome reported for a payment
func (db *DB) UpdatePaymentStatus(ctx context.Context, paymentID, status string, order *string) error {
	query := `
		UPDATE payments
		SET status = ?, order_json = COALESCE(?, order_json), updated_at = NOW()
		WHERE payment_id = ?
	`

	result, err := db.ExecContext(ctx, query, status, order, paymentID)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

// GetLatestPayment retrieves the most recent payment attempt of a checkout
func (db *DB) GetLatestPayment(ctx context.Context, checkoutID string) (*models.Payment, error) {
	query := `
		SELECT session_id, checkout_id, payment_id, invoice_value, status, order_json, created_at, updated_at
		FROM payments
		WHERE checkout_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	var p models.Payment
	var pid, order sql.NullString
	err := db.QueryRowContext(ctx, query, checkoutID).Scan(
		&p.SessionID, &p.CheckoutID, &pid, &p.InvoiceValue, &p.Status, &order, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if pid.Valid {
		p.PaymentID = &pid.String
	}
	if order.Valid {
		p.OrderJSON = &order.String
	}

	return &p, nil
}
