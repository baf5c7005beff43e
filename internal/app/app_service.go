package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"pos-ledger/internal/audit"
	"pos-ledger/internal/core"
	"pos-ledger/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type appService struct {
	productService   core.ProductService
	inventoryService core.InventoryService
	saleService      core.SaleService
	reportingService core.ReportingService
	userService      core.UserService
	recorder         audit.Recorder
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	productService core.ProductService,
	inventoryService core.InventoryService,
	saleService core.SaleService,
	reportingService core.ReportingService,
	userService core.UserService,
	recorder audit.Recorder,
	m *metrics.Metrics,
	logger *zap.Logger,
) ApplicationService {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &appService{
		productService:   productService,
		inventoryService: inventoryService,
		saleService:      saleService,
		reportingService: reportingService,
		userService:      userService,
		recorder:         recorder,
		metrics:          m,
		logger:           logger,
	}
}

func (s *appService) record(ctx context.Context, actor *Actor, action, resource string, resourceID int, oldValues, newValues any, meta AuditMeta) {
	e := audit.Event{
		Action:    action,
		Resource:  resource,
		OldValues: oldValues,
		NewValues: newValues,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if resourceID > 0 {
		e.ResourceID = strconv.Itoa(resourceID)
	}
	if actor != nil {
		uid := actor.UserID
		e.UserID = &uid
	}
	s.recorder.Record(ctx, e)
}

// ── Auth & users ──────────────────────────────────────────────────────────────

func (s *appService) AuthenticateUser(ctx context.Context, req LoginRequest, meta AuditMeta) (*Session, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	u, err := s.userService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &Actor{UserID: u.ID, Role: u.Role}, audit.ActionLogin, "auth", u.ID, nil, nil, meta)
	return &Session{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *appService) Logout(ctx context.Context, actor Actor, meta AuditMeta) {
	s.record(ctx, &actor, audit.ActionLogout, "auth", actor.UserID, nil, nil, meta)
}

func (s *appService) GetUser(ctx context.Context, userID int) (*core.User, error) {
	return s.userService.GetByID(ctx, userID)
}

func (s *appService) ListUsers(ctx context.Context) (*UserListResult, error) {
	users, err := s.userService.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return &UserListResult{Users: users}, nil
}

func (s *appService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest, meta AuditMeta) (*core.User, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	u, err := s.userService.CreateUser(ctx, req.Username, req.Password, req.Role)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &actor, audit.ActionCreate, "users", u.ID, nil, u.Summary(), meta)
	return u, nil
}

// ── Catalog & stock ───────────────────────────────────────────────────────────

func (s *appService) ListProducts(ctx context.Context, page, limit int) (*core.ProductPage, error) {
	return s.productService.GetProductsPaginated(ctx, page, limit)
}

func (s *appService) GetProduct(ctx context.Context, productID int) (*core.Product, error) {
	return s.productService.GetProduct(ctx, productID)
}

func (s *appService) CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest, meta AuditMeta) (*core.Product, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	price, err := core.ParseAmount(req.Price)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	discount := decimal.Zero
	if req.Discount != "" {
		if discount, err = core.ParseAmount(req.Discount); err != nil {
			return nil, fmt.Errorf("discount: %w", err)
		}
	}

	p, err := s.productService.CreateProduct(ctx, core.ProductInput{
		Name:          req.Name,
		Brand:         req.Brand,
		Price:         price,
		Quantity:      req.Quantity,
		MinStockLevel: req.MinStockLevel,
		Discount:      discount,
		ImageURL:      req.ImageURL,
	}, &actor.UserID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &actor, audit.ActionCreate, "products", p.ID, nil, p, meta)
	return p, nil
}

func (s *appService) UpdateProduct(ctx context.Context, actor Actor, productID int, req UpdateProductRequest, meta AuditMeta) (*core.Product, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	patch := core.ProductPatch{
		Name:          req.Name,
		Brand:         req.Brand,
		MinStockLevel: req.MinStockLevel,
		ImageURL:      req.ImageURL,
	}
	if req.Price != nil {
		price, err := core.ParseAmount(*req.Price)
		if err != nil {
			return nil, fmt.Errorf("price: %w", err)
		}
		patch.Price = &price
	}
	if req.Discount != nil {
		discount, err := core.ParseAmount(*req.Discount)
		if err != nil {
			return nil, fmt.Errorf("discount: %w", err)
		}
		patch.Discount = &discount
	}

	before, err := s.productService.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	p, err := s.productService.UpdateProduct(ctx, productID, patch)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &actor, audit.ActionUpdate, "products", productID, before, p, meta)
	return p, nil
}

func (s *appService) DeleteProduct(ctx context.Context, actor Actor, productID int, meta AuditMeta) error {
	before, err := s.productService.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if err := s.productService.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	s.record(ctx, &actor, audit.ActionDelete, "products", productID, before, nil, meta)
	return nil
}

func (s *appService) AdjustStock(ctx context.Context, actor Actor, productID int, req AdjustStockRequest, meta AuditMeta) (*core.Product, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	before, err := s.productService.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	p, err := s.inventoryService.AdjustStock(ctx, productID, req.Delta, req.Reason, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &actor, audit.ActionUpdate, "stock", productID,
		map[string]any{"quantity": before.Quantity},
		map[string]any{"quantity": p.Quantity, "reason": req.Reason}, meta)
	return p, nil
}

func (s *appService) ListMovements(ctx context.Context, productID *int, limit int) (*MovementListResult, error) {
	movements, err := s.inventoryService.GetMovements(ctx, productID, limit)
	if err != nil {
		return nil, err
	}
	return &MovementListResult{Movements: movements}, nil
}

func (s *appService) GetLowStockProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.productService.GetLowStockProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

// ── Sales ─────────────────────────────────────────────────────────────────────

func (s *appService) CreateSale(ctx context.Context, actor Actor, req CreateSaleRequest, meta AuditMeta) (*SaleResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	sale, err := s.saleService.CreateSale(ctx, toCoreLines(req.Items), req.PaymentMethod, actor.UserID)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}
	s.metrics.SalesCreated.WithLabelValues("single").Inc()
	s.record(ctx, &actor, audit.ActionCreate, "sales", sale.ID, nil, saleSnapshot(sale), meta)
	return &SaleResult{Sale: sale}, nil
}

func (s *appService) CreateSplitSale(ctx context.Context, actor Actor, req CreateSplitSaleRequest, meta AuditMeta) (*SaleResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	payments := make([]core.PaymentInput, len(req.Payments))
	for i, p := range req.Payments {
		amount, err := core.ParseAmount(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("payment %d: %w", i+1, err)
		}
		payments[i] = core.PaymentInput{PaymentMethod: p.PaymentMethod, Amount: amount}
	}

	sale, err := s.saleService.CreateSaleSplit(ctx, toCoreLines(req.Items), payments, actor.UserID)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}
	s.metrics.SalesCreated.WithLabelValues("split").Inc()
	s.record(ctx, &actor, audit.ActionCreate, "sales", sale.ID, nil, saleSnapshot(sale), meta)
	return &SaleResult{Sale: sale}, nil
}

func (s *appService) countRejection(err error) {
	if errors.Is(err, core.ErrInsufficientStock) {
		s.metrics.StockRejections.Inc()
	}
}

func (s *appService) ListSales(ctx context.Context, actor Actor) (*SaleListResult, error) {
	var sellerID *int
	if !actor.IsAdmin() {
		sellerID = &actor.UserID
	}
	sales, err := s.saleService.GetSales(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return &SaleListResult{Sales: sales}, nil
}

func (s *appService) GetSale(ctx context.Context, actor Actor, saleID int, meta AuditMeta) (*SaleResult, error) {
	sale, err := s.ownedSale(ctx, actor, saleID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &actor, audit.ActionView, "sales", saleID, nil, nil, meta)
	return &SaleResult{Sale: sale}, nil
}

// ownedSale loads a sale and checks the actor may act on it. The returned
// sale doubles as the pre-mutation snapshot for audit old values.
func (s *appService) ownedSale(ctx context.Context, actor Actor, saleID int) (*core.Sale, error) {
	sale, err := s.saleService.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && sale.SellerID != actor.UserID {
		return nil, fmt.Errorf("%w: sale %d belongs to another seller", ErrForbidden, saleID)
	}
	return sale, nil
}

func (s *appService) UpdatePaymentMethod(ctx context.Context, actor Actor, saleID int, req UpdatePaymentMethodRequest, meta AuditMeta) (*SaleResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	before, err := s.ownedSale(ctx, actor, saleID)
	if err != nil {
		return nil, err
	}

	sale, err := s.saleService.UpdatePaymentMethod(ctx, saleID, req.PaymentMethod, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &actor, audit.ActionUpdate, "sales", saleID,
		map[string]any{"payment_method": before.PaymentMethod},
		map[string]any{"payment_method": sale.PaymentMethod}, meta)
	return &SaleResult{Sale: sale}, nil
}

func (s *appService) CancelSale(ctx context.Context, actor Actor, saleID int, req CancelSaleRequest, meta AuditMeta) (*SaleResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	before, err := s.ownedSale(ctx, actor, saleID)
	if err != nil {
		return nil, err
	}

	sale, err := s.saleService.CancelSale(ctx, saleID, req.Reason, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.metrics.SalesCancelled.Inc()
	s.record(ctx, &actor, audit.ActionDelete, "sales", saleID, saleSnapshot(before),
		map[string]any{"status": sale.Status, "cancel_reason": req.Reason}, meta)
	return &SaleResult{Sale: sale}, nil
}

// ── Reporting ─────────────────────────────────────────────────────────────────

func (s *appService) GetSalesStats(ctx context.Context) (*core.SalesStats, error) {
	return s.reportingService.GetSalesStats(ctx)
}

// saleSnapshot is the audit representation of a sale header.
func saleSnapshot(sale *core.Sale) map[string]any {
	return map[string]any{
		"status":         sale.Status,
		"payment_method": sale.PaymentMethod,
		"total_amount":   core.FormatAmount(sale.TotalAmount),
		"items":          len(sale.Items),
	}
}
