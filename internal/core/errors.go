package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSaleNotFound      = errors.New("sale not found")
	ErrAlreadyCancelled  = errors.New("sale already cancelled")
	ErrSaleNotActive     = errors.New("sale is not active")
	ErrNoChange          = errors.New("payment method unchanged")
	ErrPaymentMismatch   = errors.New("payments do not match sale total")
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrInvalidCredential = errors.New("invalid username or password")

	// ErrTransient marks serialization and deadlock failures. The operation
	// was rolled back and may be retried by the caller.
	ErrTransient = errors.New("transient store failure")
)

// validationErrorf returns an error wrapping ErrValidation.
func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InsufficientStockError is returned when a movement would take a product below zero.
type InsufficientStockError struct {
	ProductID   int
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// PaymentMismatchError is returned when split payments do not reconcile with
// the item total.
type PaymentMismatchError struct {
	ItemsTotal    decimal.Decimal
	PaymentsTotal decimal.Decimal
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("payments sum (%s) does not match sale total (%s)",
		e.PaymentsTotal.StringFixed(2), e.ItemsTotal.StringFixed(2))
}

func (e *PaymentMismatchError) Unwrap() error { return ErrPaymentMismatch }

// classifyStoreError tags serialization_failure and deadlock_detected with ErrTransient.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %w", ErrTransient, err)
		}
	}
	return err
}
