package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleService owns the sale lifecycle: creation, payment-method edits and
// cancellation. Every mutating call runs in a single transaction and re-reads
// the affected product rows under FOR UPDATE before validating them.
type SaleService interface {
	// CalculateSaleTotal prices lines at current product prices without locking
	// or mutating anything.
	CalculateSaleTotal(ctx context.Context, lines []SaleLineInput) (decimal.Decimal, error)

	// CreateSale records a single-payment sale and decrements stock.
	CreateSale(ctx context.Context, lines []SaleLineInput, paymentMethod string, sellerID int) (*Sale, error)

	// CreateSaleSplit records a sale settled by 2 to 5 payments. Payments must
	// reconcile with the item total within PaymentTolerance; this is checked
	// against current prices before the transaction and again inside it.
	CreateSaleSplit(ctx context.Context, lines []SaleLineInput, payments []PaymentInput, sellerID int) (*Sale, error)

	// CancelSale moves an active sale to cancelled and restores its stock.
	CancelSale(ctx context.Context, saleID int, reason string, actorID int) (*Sale, error)

	// UpdatePaymentMethod changes the payment method of an active sale and
	// appends a history row.
	UpdatePaymentMethod(ctx context.Context, saleID int, newMethod string, actorID int) (*Sale, error)

	// Queries
	GetSale(ctx context.Context, saleID int) (*Sale, error)
	// GetSales returns sales newest first. sellerID nil returns every seller's sales.
	GetSales(ctx context.Context, sellerID *int) ([]Sale, error)
	GetPaymentHistory(ctx context.Context, saleID int) ([]PaymentHistoryEntry, error)
}

type saleService struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewSaleService(pool *pgxpool.Pool, logger *zap.Logger) SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &saleService{pool: pool, logger: logger}
}

// ── Creation ──────────────────────────────────────────────────────────────────

func (s *saleService) CalculateSaleTotal(ctx context.Context, lines []SaleLineInput) (decimal.Decimal, error) {
	if err := validateLines(lines); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for i, l := range lines {
		p, err := getProductQ(ctx, s.pool, l.ProductID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("line %d: %w", i+1, err)
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total, nil
}

func (s *saleService) CreateSale(ctx context.Context, lines []SaleLineInput, paymentMethod string, sellerID int) (*Sale, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}
	if !ValidPaymentMethod(paymentMethod) {
		return nil, validationErrorf("unknown payment method %q", paymentMethod)
	}

	sale, err := s.createSaleTx(ctx, lines, paymentMethod, nil, sellerID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	s.logger.Debug("sale created", zap.Int("sale_id", sale.ID), zap.Int("seller_id", sellerID), zap.String("payment_method", paymentMethod))
	return sale, nil
}

func (s *saleService) CreateSaleSplit(ctx context.Context, lines []SaleLineInput, payments []PaymentInput, sellerID int) (*Sale, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}
	if err := validatePayments(payments); err != nil {
		return nil, err
	}

	// Reject a mismatched tender before any row is locked.
	total, err := s.CalculateSaleTotal(ctx, lines)
	if err != nil {
		return nil, err
	}
	if err := ReconcilePayments(total, payments); err != nil {
		return nil, err
	}

	sale, err := s.createSaleTx(ctx, lines, PaymentSplit, payments, sellerID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	s.logger.Debug("split sale created", zap.Int("sale_id", sale.ID), zap.Int("seller_id", sellerID), zap.Int("payments", len(payments)))
	return sale, nil
}

// createSaleTx validates and decrements each line in input order, then writes
// the sale, its items and, for split sales, its payments. The returned Sale is
// read inside the transaction before commit. Any error rolls back everything,
// including stock already decremented for earlier lines.
func (s *saleService) createSaleTx(ctx context.Context, lines []SaleLineInput, paymentMethod string, payments []PaymentInput, sellerID int) (*Sale, error) {
	reason := ReasonSale
	if payments != nil {
		reason = ReasonSaleSplit
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	type pricedLine struct {
		productID   int
		quantity    int
		priceAtTime decimal.Decimal
	}
	priced := make([]pricedLine, 0, len(lines))
	total := decimal.Zero

	for i, l := range lines {
		p, err := lockProductTx(ctx, tx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		// Price is taken from the same locked read the stock check uses.
		price := p.Price
		if _, err := applyMovementTx(ctx, tx, p, -l.Quantity, MovementOut, reason, &sellerID); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		priced = append(priced, pricedLine{productID: l.ProductID, quantity: l.Quantity, priceAtTime: price})
	}

	// Prices may have moved since the pre-check; reconcile against what is charged.
	if payments != nil {
		if err := ReconcilePayments(total, payments); err != nil {
			return nil, err
		}
	}

	var saleID int
	err = tx.QueryRow(ctx, `
		INSERT INTO sales (total_amount, payment_method, seller_id, status)
		VALUES ($1, $2, $3, 'active')
		RETURNING id
	`, total, paymentMethod, sellerID).Scan(&saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sale: %w", err)
	}

	for i, pl := range priced {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sale_items (sale_id, product_id, quantity, price_at_time)
			VALUES ($1, $2, $3, $4)
		`, saleID, pl.productID, pl.quantity, pl.priceAtTime); err != nil {
			return nil, fmt.Errorf("failed to insert sale item %d: %w", i+1, err)
		}
	}

	for i, pay := range payments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sale_payments (sale_id, payment_method, amount)
			VALUES ($1, $2, $3)
		`, saleID, pay.PaymentMethod, pay.Amount.Round(2)); err != nil {
			return nil, fmt.Errorf("failed to insert payment %d: %w", i+1, err)
		}
	}

	sale, err := getSaleQ(ctx, tx, saleID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}
	return sale, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

const saleColumns = `
	s.id, s.total_amount, s.payment_method, s.seller_id, s.status,
	s.cancelled_by, s.cancelled_at, s.cancel_reason, s.created_at,
	u.id, u.username, u.role`

func scanSale(row pgx.Row) (*Sale, error) {
	var sale Sale
	var sellerID *int
	var sellerName, sellerRole *string
	if err := row.Scan(
		&sale.ID, &sale.TotalAmount, &sale.PaymentMethod, &sale.SellerID, &sale.Status,
		&sale.CancelledBy, &sale.CancelledAt, &sale.CancelReason, &sale.CreatedAt,
		&sellerID, &sellerName, &sellerRole,
	); err != nil {
		return nil, err
	}
	if sellerID != nil {
		sale.Seller = &UserSummary{ID: *sellerID, Username: *sellerName, Role: *sellerRole}
	}
	return &sale, nil
}

// saleQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type saleQuerier interface {
	pgxQuerier
	pgxRowQuerier
}

func (s *saleService) GetSale(ctx context.Context, saleID int) (*Sale, error) {
	return getSaleQ(ctx, s.pool, saleID)
}

// getSaleQ loads a sale with its items, payments and payment history.
func getSaleQ(ctx context.Context, q saleQuerier, saleID int) (*Sale, error) {
	sale, err := scanSale(q.QueryRow(ctx, `
		SELECT `+saleColumns+`
		FROM sales s
		LEFT JOIN users u ON u.id = s.seller_id
		WHERE s.id = $1
	`, saleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrSaleNotFound, saleID)
		}
		return nil, fmt.Errorf("failed to fetch sale %d: %w", saleID, err)
	}

	items, err := fetchSaleItemsQ(ctx, q, []int{saleID})
	if err != nil {
		return nil, err
	}
	sale.Items = items[saleID]

	if sale.Payments, err = fetchSalePaymentsQ(ctx, q, saleID); err != nil {
		return nil, err
	}
	if sale.PaymentHistory, err = fetchPaymentHistoryQ(ctx, q, saleID); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *saleService) GetSales(ctx context.Context, sellerID *int) ([]Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales s
		LEFT JOIN users u ON u.id = s.seller_id
	`
	var args []any
	if sellerID != nil {
		query += " WHERE s.seller_id = $1"
		args = append(args, *sellerID)
	}
	query += " ORDER BY s.created_at DESC, s.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	var ids []int
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, *sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sales: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return sales, nil
	}
	items, err := fetchSaleItemsQ(ctx, s.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Items = items[sales[i].ID]
	}
	return sales, nil
}

func (s *saleService) GetPaymentHistory(ctx context.Context, saleID int) ([]PaymentHistoryEntry, error) {
	return fetchPaymentHistoryQ(ctx, s.pool, saleID)
}

func fetchPaymentHistoryQ(ctx context.Context, q pgxRowQuerier, saleID int) ([]PaymentHistoryEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT id, sale_id, old_payment_method, new_payment_method, changed_by, changed_at
		FROM sales_payment_history
		WHERE sale_id = $1
		ORDER BY changed_at DESC, id DESC
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment history: %w", err)
	}
	defer rows.Close()

	var history []PaymentHistoryEntry
	for rows.Next() {
		var h PaymentHistoryEntry
		if err := rows.Scan(&h.ID, &h.SaleID, &h.OldPaymentMethod, &h.NewPaymentMethod, &h.ChangedBy, &h.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func fetchSalePaymentsQ(ctx context.Context, q pgxRowQuerier, saleID int) ([]SalePayment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, sale_id, payment_method, amount, created_at
		FROM sale_payments
		WHERE sale_id = $1
		ORDER BY id
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale payments: %w", err)
	}
	defer rows.Close()

	var payments []SalePayment
	for rows.Next() {
		var p SalePayment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.PaymentMethod, &p.Amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// fetchSaleItemsQ returns the items of the given sales keyed by sale id.
func fetchSaleItemsQ(ctx context.Context, q pgxRowQuerier, saleIDs []int) (map[int][]SaleItem, error) {
	rows, err := q.Query(ctx, `
		SELECT si.id, si.sale_id, si.product_id, p.name, si.quantity, si.price_at_time
		FROM sale_items si
		LEFT JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = ANY($1)
		ORDER BY si.sale_id, si.id
	`, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale items: %w", err)
	}
	defer rows.Close()

	items := make(map[int][]SaleItem, len(saleIDs))
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PriceAtTime); err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		items[it.SaleID] = append(items[it.SaleID], it)
	}
	return items, rows.Err()
}
