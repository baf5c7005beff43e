package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// UpdatePaymentMethod rewrites the payment method of an active sale.
// Setting the method already recorded fails with ErrNoChange.
func (s *saleService) UpdatePaymentMethod(ctx context.Context, saleID int, newMethod string, actorID int) (*Sale, error) {
	if !ValidPaymentMethod(newMethod) {
		return nil, validationErrorf("unknown payment method %q", newMethod)
	}

	sale, err := s.updatePaymentMethodTx(ctx, saleID, newMethod, actorID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return sale, nil
}

func (s *saleService) updatePaymentMethodTx(ctx context.Context, saleID int, newMethod string, actorID int) (*Sale, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status, current string
	err = tx.QueryRow(ctx,
		"SELECT status, payment_method FROM sales WHERE id = $1 FOR UPDATE",
		saleID,
	).Scan(&status, &current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrSaleNotFound, saleID)
		}
		return nil, fmt.Errorf("failed to fetch sale %d: %w", saleID, err)
	}
	if status != SaleActive {
		return nil, fmt.Errorf("%w: sale %d is %s", ErrSaleNotActive, saleID, status)
	}
	if current == newMethod {
		return nil, fmt.Errorf("%w: sale %d already uses %s", ErrNoChange, saleID, newMethod)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO sales_payment_history (sale_id, old_payment_method, new_payment_method, changed_by)
		VALUES ($1, $2, $3, $4)
	`, saleID, current, newMethod, actorID); err != nil {
		return nil, fmt.Errorf("failed to record payment history for sale %d: %w", saleID, err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE sales SET payment_method = $1 WHERE id = $2",
		newMethod, saleID,
	); err != nil {
		return nil, fmt.Errorf("failed to update payment method for sale %d: %w", saleID, err)
	}

	sale, err := getSaleQ(ctx, tx, saleID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment method change: %w", err)
	}
	return sale, nil
}
