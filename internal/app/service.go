package app

import (
	"context"

	"pos-ledger/internal/core"
)

// ApplicationService is the single interface the CLI and Web adapters call.
// It validates requests, enforces seller ownership of sales, and emits audit
// events. Role gating (admin-only routes) is the adapter's job.
type ApplicationService interface {
	// ── Auth & users ──

	// AuthenticateUser verifies credentials and records a LOGIN event.
	AuthenticateUser(ctx context.Context, req LoginRequest, meta AuditMeta) (*Session, error)
	// Logout records a LOGOUT event.
	Logout(ctx context.Context, actor Actor, meta AuditMeta)
	GetUser(ctx context.Context, userID int) (*core.User, error)
	ListUsers(ctx context.Context) (*UserListResult, error)
	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest, meta AuditMeta) (*core.User, error)

	// ── Catalog & stock ──

	// ListProducts returns one page of the catalog ordered by name.
	ListProducts(ctx context.Context, page, limit int) (*core.ProductPage, error)
	GetProduct(ctx context.Context, productID int) (*core.Product, error)
	CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest, meta AuditMeta) (*core.Product, error)
	UpdateProduct(ctx context.Context, actor Actor, productID int, req UpdateProductRequest, meta AuditMeta) (*core.Product, error)
	DeleteProduct(ctx context.Context, actor Actor, productID int, meta AuditMeta) error
	// AdjustStock applies an operator stock correction through the stock ledger.
	AdjustStock(ctx context.Context, actor Actor, productID int, req AdjustStockRequest, meta AuditMeta) (*core.Product, error)
	ListMovements(ctx context.Context, productID *int, limit int) (*MovementListResult, error)
	GetLowStockProducts(ctx context.Context) (*ProductListResult, error)

	// ── Sales ──

	CreateSale(ctx context.Context, actor Actor, req CreateSaleRequest, meta AuditMeta) (*SaleResult, error)
	CreateSplitSale(ctx context.Context, actor Actor, req CreateSplitSaleRequest, meta AuditMeta) (*SaleResult, error)
	// ListSales returns every sale for admins and only the actor's own sales for sellers.
	ListSales(ctx context.Context, actor Actor) (*SaleListResult, error)
	// GetSale fails with ErrForbidden when a seller asks for another seller's sale.
	GetSale(ctx context.Context, actor Actor, saleID int, meta AuditMeta) (*SaleResult, error)
	UpdatePaymentMethod(ctx context.Context, actor Actor, saleID int, req UpdatePaymentMethodRequest, meta AuditMeta) (*SaleResult, error)
	CancelSale(ctx context.Context, actor Actor, saleID int, req CancelSaleRequest, meta AuditMeta) (*SaleResult, error)

	// ── Reporting ──

	GetSalesStats(ctx context.Context) (*core.SalesStats, error)
}
