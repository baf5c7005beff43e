package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const topProductsLimit = 5

// ── Report types ──────────────────────────────────────────────────────────────

// SalesStats summarises the ledger. TotalSales and TotalRevenue cover active
// sales only; TopProducts counts units from every sale, cancelled included,
// since it measures demand rather than revenue.
type SalesStats struct {
	TotalSales   int             `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TopProducts  []TopProduct    `json:"top_products"`
}

// TopProduct is a product ranked by units sold.
type TopProduct struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only queries over the sales ledger.
type ReportingService interface {
	GetSalesStats(ctx context.Context) (*SalesStats, error)
}

type reportingService struct {
	pool *pgxpool.Pool
}

func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func (s *reportingService) GetSalesStats(ctx context.Context) (*SalesStats, error) {
	stats := &SalesStats{}
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE status = 'active'
	`).Scan(&stats.TotalSales, &stats.TotalRevenue); err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}

	// Rows come back in ascending product id; ties keep that order after ranking.
	rows, err := s.pool.Query(ctx, `
		SELECT si.product_id, p.name, SUM(si.quantity)::int
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		GROUP BY si.product_id, p.name
		ORDER BY si.product_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query product totals: %w", err)
	}
	defer rows.Close()

	var totals []TopProduct
	for rows.Next() {
		var tp TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.ProductName, &tp.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan product total: %w", err)
		}
		totals = append(totals, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product totals: %w", err)
	}

	stats.TopProducts = RankTopProducts(totals, topProductsLimit)
	return stats, nil
}

// RankTopProducts sorts totals by quantity, highest first, keeping the input
// order for ties, and returns at most limit entries.
func RankTopProducts(totals []TopProduct, limit int) []TopProduct {
	ranked := make([]TopProduct, len(totals))
	copy(ranked, totals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Quantity > ranked[j].Quantity
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
