package core_test

import (
	"errors"
	"testing"

	"pos-ledger/internal/core"

	"github.com/shopspring/decimal"
)

func TestProduct_CreateBooksInitialStock(t *testing.T) {
	svc, ctx := setupSaleTestDB(t)
	p1 := newProduct(t, ctx, svc, "Widget", "5.00", 20)
	empty := newProduct(t, ctx, svc, "Empty", "1.00", 0)

	if q := quantityOf(t, ctx, svc, p1); q != 20 {
		t.Errorf("Expected stock 20, got %d", q)
	}
	movements, err := svc.inventory.GetMovements(ctx, &p1, 10)
	if err != nil {
		t.Fatalf("GetMovements failed: %v", err)
	}
	if len(movements) != 1 || movements[0].Type != core.MovementIn || movements[0].Reason != core.ReasonInitialStock || movements[0].Quantity != 20 {
		t.Errorf("Expected one Initial Stock movement of 20, got %+v", movements)
	}

	movements, err = svc.inventory.GetMovements(ctx, &empty, 10)
	if err != nil {
		t.Fatalf("GetMovements failed: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("Expected no movement for a product created empty, got %d", len(movements))
	}

	p, err := svc.products.GetProduct(ctx, p1)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if p.MinStockLevel != 5 || !p.Discount.IsZero() {
		t.Errorf("Expected defaults min_stock_level=5 discount=0, got %d/%s", p.MinStockLevel, p.Discount)
	}
}

func TestProduct_Validation(t *testing.T) {
	svc, ctx := setupSaleTestDB(t)

	_, err := svc.products.CreateProduct(ctx, core.ProductInput{Name: "", Brand: "Acme", Price: decimal.NewFromInt(1)}, nil)
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected ErrValidation for empty name, got %v", err)
	}
	_, err = svc.products.CreateProduct(ctx, core.ProductInput{Name: "X", Brand: "Acme", Price: decimal.NewFromInt(-1)}, nil)
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected ErrValidation for negative price, got %v", err)
	}
	_, err = svc.products.CreateProduct(ctx, core.ProductInput{Name: "X", Brand: "Acme", Price: decimal.NewFromInt(1), Quantity: -3}, nil)
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected ErrValidation for negative quantity, got %v", err)
	}
	if _, err := svc.products.UpdateProduct(ctx, 99999, core.ProductPatch{}); !errors.Is(err, core.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
	if err := svc.products.DeleteProduct(ctx, 99999); !errors.Is(err, core.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestProduct_UpdateLeavesQuantity(t *testing.T) {
	svc, ctx := setupSaleTestDB(t)
	p1 := newProduct(t, ctx, svc, "Widget", "5.00", 20)

	name := "Widget Pro"
	minStock := 30
	p, err := svc.products.UpdateProduct(ctx, p1, core.ProductPatch{Name: &name, MinStockLevel: &minStock})
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	if p.Name != name || p.MinStockLevel != 30 || p.Quantity != 20 {
		t.Errorf("Unexpected product after update: %+v", p)
	}

	low, err := svc.products.GetLowStockProducts(ctx)
	if err != nil {
		t.Fatalf("GetLowStockProducts failed: %v", err)
	}
	if len(low) != 1 || low[0].ID != p1 {
		t.Errorf("Expected Widget Pro to be low on stock, got %+v", low)
	}
}

func TestProduct_Pagination(t *testing.T) {
	svc, ctx := setupSaleTestDB(t)
	for _, n := range []string{"A", "B", "C", "D", "E"} {
		newProduct(t, ctx, svc, n, "1.00", 1)
	}

	page, err := svc.products.GetProductsPaginated(ctx, 2, 2)
	if err != nil {
		t.Fatalf("GetProductsPaginated failed: %v", err)
	}
	if page.Total != 5 || page.Pages != 3 || page.Page != 2 {
		t.Errorf("Expected total=5 pages=3 page=2, got %+v", page)
	}
	if len(page.Data) != 2 || page.Data[0].Name != "C" {
		t.Errorf("Expected C and D on page 2, got %+v", page.Data)
	}
}

func TestInventory_AdjustStock(t *testing.T) {
	svc, ctx := setupSaleTestDB(t)
	p1 := newProduct(t, ctx, svc, "Widget", "5.00", 10)

	p, err := svc.inventory.AdjustStock(ctx, p1, -4, "damaged in storage", testAdminID)
	if err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	if p.Quantity != 6 {
		t.Errorf("Expected stock 6, got %d", p.Quantity)
	}

	_, err = svc.inventory.AdjustStock(ctx, p1, -7, "count correction", testAdminID)
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}
	if q := quantityOf(t, ctx, svc, p1); q != 6 {
		t.Errorf("Expected stock to remain 6, got %d", q)
	}

	if _, err := svc.inventory.AdjustStock(ctx, p1, 0, "noop", testAdminID); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected ErrValidation for zero delta, got %v", err)
	}
	if _, err := svc.inventory.ApplyMovement(ctx, p1, -1, core.MovementIn, "bad sign", nil); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected ErrValidation for negative in movement, got %v", err)
	}
	if _, err := svc.inventory.ApplyMovement(ctx, 99999, 1, core.MovementIn, "missing", nil); !errors.Is(err, core.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestUser_CreateAndAuthenticate(t *testing.T) {
	svc, ctx := setupSaleTestDB(t)

	u, err := svc.users.CreateUser(ctx, "  maria ", "secret1", core.RoleSeller)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.Username != "maria" || u.PasswordHash == "secret1" {
		t.Errorf("Expected trimmed username and hashed password, got %+v", u)
	}

	if _, err := svc.users.CreateUser(ctx, "maria", "another1", core.RoleSeller); !errors.Is(err, core.ErrDuplicateUsername) {
		t.Errorf("Expected ErrDuplicateUsername, got %v", err)
	}

	got, err := svc.users.Authenticate(ctx, "maria", "secret1")
	if err != nil || got.ID != u.ID {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if _, err := svc.users.Authenticate(ctx, "maria", "wrong-pass"); !errors.Is(err, core.ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for wrong password, got %v", err)
	}
	if _, err := svc.users.Authenticate(ctx, "nobody", "secret1"); !errors.Is(err, core.ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for unknown user, got %v", err)
	}
}
