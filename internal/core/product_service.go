package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const defaultMinStockLevel = 5

// ProductInput carries the fields of a new product. Quantity is the initial
// stock and is booked as an "Initial Stock" movement.
type ProductInput struct {
	Name          string
	Brand         string
	Price         decimal.Decimal
	Quantity      int
	MinStockLevel *int
	Discount      decimal.Decimal
	ImageURL      *string
}

// ProductPatch holds the editable product fields; nil means unchanged.
// Quantity is absent on purpose: stock changes go through InventoryService.
type ProductPatch struct {
	Name          *string
	Brand         *string
	Price         *decimal.Decimal
	MinStockLevel *int
	Discount      *decimal.Decimal
	ImageURL      *string
}

// ProductPage is one page of the catalog.
type ProductPage struct {
	Data  []Product `json:"data"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Pages int       `json:"pages"`
}

// ProductService manages the product catalog.
type ProductService interface {
	CreateProduct(ctx context.Context, in ProductInput, createdBy *int) (*Product, error)
	UpdateProduct(ctx context.Context, productID int, patch ProductPatch) (*Product, error)
	// DeleteProduct removes a product. Its movements and sale items keep their
	// rows with product_id set to NULL.
	DeleteProduct(ctx context.Context, productID int) error
	GetProduct(ctx context.Context, productID int) (*Product, error)
	GetProducts(ctx context.Context) ([]Product, error)
	GetProductsPaginated(ctx context.Context, page, limit int) (*ProductPage, error)
	// GetLowStockProducts returns products at or below their minimum level, lowest first.
	GetLowStockProducts(ctx context.Context) ([]Product, error)
}

type productService struct {
	pool *pgxpool.Pool
}

func NewProductService(pool *pgxpool.Pool) ProductService {
	return &productService{pool: pool}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx (for Query).
type pgxRowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const productColumns = "id, name, brand, price, quantity, min_stock_level, discount, image_url, updated_at"

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Price, &p.Quantity,
		&p.MinStockLevel, &p.Discount, &p.ImageURL, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func getProductQ(ctx context.Context, q pgxQuerier, productID int) (*Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	return p, nil
}

func validateProductInput(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationErrorf("product name is required")
	}
	if strings.TrimSpace(in.Brand) == "" {
		return validationErrorf("product brand is required")
	}
	if in.Price.IsNegative() {
		return validationErrorf("price cannot be negative, got %s", in.Price)
	}
	if in.Quantity < 0 {
		return validationErrorf("quantity cannot be negative, got %d", in.Quantity)
	}
	if in.MinStockLevel != nil && *in.MinStockLevel < 0 {
		return validationErrorf("minimum stock level cannot be negative, got %d", *in.MinStockLevel)
	}
	if in.Discount.IsNegative() {
		return validationErrorf("discount cannot be negative, got %s", in.Discount)
	}
	return nil
}

func (s *productService) CreateProduct(ctx context.Context, in ProductInput, createdBy *int) (*Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}
	minStock := defaultMinStockLevel
	if in.MinStockLevel != nil {
		minStock = *in.MinStockLevel
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The row starts empty; the initial quantity is a regular "in" movement.
	p, err := scanProduct(tx.QueryRow(ctx, `
		INSERT INTO products (name, brand, price, quantity, min_stock_level, discount, image_url)
		VALUES ($1, $2, $3, 0, $4, $5, $6)
		RETURNING `+productColumns,
		strings.TrimSpace(in.Name), strings.TrimSpace(in.Brand), in.Price.Round(2), minStock, in.Discount.Round(2), in.ImageURL,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	if in.Quantity > 0 {
		if _, err := applyMovementTx(ctx, tx, p, in.Quantity, MovementIn, ReasonInitialStock, createdBy); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyStoreError(fmt.Errorf("failed to commit product creation: %w", err))
	}
	return p, nil
}

func (s *productService) UpdateProduct(ctx context.Context, productID int, patch ProductPatch) (*Product, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, validationErrorf("product name cannot be empty")
	}
	if patch.Brand != nil && strings.TrimSpace(*patch.Brand) == "" {
		return nil, validationErrorf("product brand cannot be empty")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, validationErrorf("price cannot be negative, got %s", *patch.Price)
	}
	if patch.MinStockLevel != nil && *patch.MinStockLevel < 0 {
		return nil, validationErrorf("minimum stock level cannot be negative, got %d", *patch.MinStockLevel)
	}
	if patch.Discount != nil && patch.Discount.IsNegative() {
		return nil, validationErrorf("discount cannot be negative, got %s", *patch.Discount)
	}

	sets := []string{"updated_at = now()"}
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", strings.TrimSpace(*patch.Name))
	}
	if patch.Brand != nil {
		add("brand", strings.TrimSpace(*patch.Brand))
	}
	if patch.Price != nil {
		add("price", patch.Price.Round(2))
	}
	if patch.MinStockLevel != nil {
		add("min_stock_level", *patch.MinStockLevel)
	}
	if patch.Discount != nil {
		add("discount", patch.Discount.Round(2))
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	args = append(args, productID)

	p, err := scanProduct(s.pool.QueryRow(ctx,
		fmt.Sprintf("UPDATE products SET %s WHERE id = $%d RETURNING %s", strings.Join(sets, ", "), len(args), productColumns),
		args...,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("failed to update product %d: %w", productID, err)
	}
	return p, nil
}

func (s *productService) DeleteProduct(ctx context.Context, productID int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM products WHERE id = $1", productID)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
	}
	return nil
}

func (s *productService) GetProduct(ctx context.Context, productID int) (*Product, error) {
	return getProductQ(ctx, s.pool, productID)
}

func (s *productService) GetProducts(ctx context.Context) ([]Product, error) {
	return queryProducts(ctx, s.pool, "SELECT "+productColumns+" FROM products ORDER BY name, id")
}

func (s *productService) GetProductsPaginated(ctx context.Context, page, limit int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products").Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	products, err := queryProducts(ctx, s.pool,
		"SELECT "+productColumns+" FROM products ORDER BY name, id LIMIT $1 OFFSET $2",
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []Product{}
	}

	return &ProductPage{
		Data:  products,
		Total: total,
		Page:  page,
		Pages: (total + limit - 1) / limit,
	}, nil
}

func (s *productService) GetLowStockProducts(ctx context.Context) ([]Product, error) {
	return queryProducts(ctx, s.pool,
		"SELECT "+productColumns+" FROM products WHERE quantity <= min_stock_level ORDER BY quantity, id")
}

func queryProducts(ctx context.Context, q pgxRowQuerier, sql string, args ...any) ([]Product, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}
