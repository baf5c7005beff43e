package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const minCancelReasonLen = 5

// CancelSale reverses an active sale. The sale row is locked first, so two
// concurrent cancellations serialize and the second sees status cancelled.
// Items whose product has been deleted are skipped; the sale, its items and
// its history are never removed.
func (s *saleService) CancelSale(ctx context.Context, saleID int, reason string, actorID int) (*Sale, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < minCancelReasonLen {
		return nil, validationErrorf("cancel reason must be at least %d characters", minCancelReasonLen)
	}

	sale, restored, err := s.cancelSaleTx(ctx, saleID, reason, actorID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	s.logger.Debug("sale cancelled", zap.Int("sale_id", saleID), zap.Int("actor_id", actorID), zap.Int("items_restored", restored))
	return sale, nil
}

func (s *saleService) cancelSaleTx(ctx context.Context, saleID int, reason string, actorID int) (*Sale, int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		"SELECT status FROM sales WHERE id = $1 FOR UPDATE",
		saleID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, fmt.Errorf("%w: id %d", ErrSaleNotFound, saleID)
		}
		return nil, 0, fmt.Errorf("failed to fetch sale %d: %w", saleID, err)
	}
	if status == SaleCancelled {
		return nil, 0, fmt.Errorf("%w: id %d", ErrAlreadyCancelled, saleID)
	}

	items, err := fetchSaleItemsQ(ctx, tx, []int{saleID})
	if err != nil {
		return nil, 0, err
	}

	movementReason := fmt.Sprintf("Cancellation of sale #%d", saleID)
	restored := 0
	for _, it := range items[saleID] {
		if it.ProductID == nil {
			continue
		}
		p, err := lockProductTx(ctx, tx, *it.ProductID)
		if errors.Is(err, ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		if _, err := applyMovementTx(ctx, tx, p, it.Quantity, MovementIn, movementReason, &actorID); err != nil {
			return nil, 0, fmt.Errorf("failed to restore stock for sale item %d: %w", it.ID, err)
		}
		restored++
	}

	if _, err := tx.Exec(ctx, `
		UPDATE sales
		SET status = 'cancelled', cancelled_by = $2, cancelled_at = now(), cancel_reason = $3
		WHERE id = $1
	`, saleID, actorID, reason); err != nil {
		return nil, 0, fmt.Errorf("failed to cancel sale %d: %w", saleID, err)
	}

	sale, err := getSaleQ(ctx, tx, saleID)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to commit sale cancellation: %w", err)
	}
	return sale, restored, nil
}
