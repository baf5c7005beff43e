package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryService is the stock ledger. Every change to products.quantity goes
// through applyMovementTx, which locks the product row, checks the new quantity
// and appends the matching stock_movements row in the caller's transaction.
type InventoryService interface {
	// ApplyMovement changes a product's quantity by delta in its own transaction.
	// delta is negative for "out", positive for "in"; "adjustment" accepts either sign.
	ApplyMovement(ctx context.Context, productID, delta int, movementType, reason string, userID *int) (*StockMovement, error)

	// AdjustStock applies an operator correction and returns the updated product.
	AdjustStock(ctx context.Context, productID, delta int, reason string, userID int) (*Product, error)

	// GetMovements returns the most recent movements, newest first.
	// productID nil returns movements for all products.
	GetMovements(ctx context.Context, productID *int, limit int) ([]StockMovement, error)
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *inventoryService) ApplyMovement(ctx context.Context, productID, delta int, movementType, reason string, userID *int) (*StockMovement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := lockProductTx(ctx, tx, productID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	m, err := applyMovementTx(ctx, tx, p, delta, movementType, reason, userID)
	if err != nil {
		return nil, classifyStoreError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyStoreError(fmt.Errorf("failed to commit stock movement: %w", err))
	}
	return m, nil
}

func (s *inventoryService) AdjustStock(ctx context.Context, productID, delta int, reason string, userID int) (*Product, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, validationErrorf("adjustment reason is required")
	}
	if _, err := s.ApplyMovement(ctx, productID, delta, MovementAdjustment, reason, &userID); err != nil {
		return nil, err
	}
	return getProductQ(ctx, s.pool, productID)
}

func (s *inventoryService) GetMovements(ctx context.Context, productID *int, limit int) ([]StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT sm.id, sm.product_id, p.name, sm.type, sm.quantity, sm.reason, sm.user_id, sm.created_at
		FROM stock_movements sm
		LEFT JOIN products p ON p.id = sm.product_id
	`
	args := []any{limit}
	if productID != nil {
		query += " WHERE sm.product_id = $2"
		args = append(args, *productID)
	}
	query += " ORDER BY sm.created_at DESC, sm.id DESC LIMIT $1"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Type, &m.Quantity,
			&m.Reason, &m.UserID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

// lockProductTx reads a product with FOR UPDATE. Concurrent transactions
// touching the same product wait here until the holder commits, so the
// quantity returned is the one the caller will validate against.
func lockProductTx(ctx context.Context, tx pgx.Tx, productID int) (*Product, error) {
	var p Product
	err := tx.QueryRow(ctx, `
		SELECT id, name, brand, price, quantity, min_stock_level, discount, image_url, updated_at
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, productID).Scan(&p.ID, &p.Name, &p.Brand, &p.Price, &p.Quantity,
		&p.MinStockLevel, &p.Discount, &p.ImageURL, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("failed to lock product %d: %w", productID, err)
	}
	return &p, nil
}

// applyMovementTx moves p.Quantity by delta and records the movement.
// p must have been read by lockProductTx in the same transaction; its Quantity
// is updated in place so repeated lines for one product see the running value.
func applyMovementTx(ctx context.Context, tx pgx.Tx, p *Product, delta int, movementType, reason string, userID *int) (*StockMovement, error) {
	if delta == 0 {
		return nil, validationErrorf("stock movement quantity must be non-zero")
	}
	switch movementType {
	case MovementIn:
		if delta < 0 {
			return nil, validationErrorf("movement type in requires a positive quantity")
		}
	case MovementOut:
		if delta > 0 {
			return nil, validationErrorf("movement type out requires a negative quantity")
		}
	case MovementAdjustment:
	default:
		return nil, validationErrorf("unknown movement type %q", movementType)
	}

	newQty := p.Quantity + delta
	if newQty < 0 {
		return nil, &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Available:   p.Quantity,
			Requested:   -delta,
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE products SET quantity = $1 WHERE id = $2",
		newQty, p.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to update stock for product %d: %w", p.ID, err)
	}

	qty := delta
	if qty < 0 {
		qty = -qty
	}
	m := StockMovement{ProductID: &p.ID, Type: movementType, Quantity: qty, Reason: reason, UserID: userID}
	if err := tx.QueryRow(ctx, `
		INSERT INTO stock_movements (product_id, type, quantity, reason, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, p.ID, movementType, qty, reason, userID).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to record stock movement for product %d: %w", p.ID, err)
	}

	p.Quantity = newQty
	return &m, nil
}
