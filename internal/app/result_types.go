package app

import "pos-ledger/internal/core"

// Session is returned by AuthenticateUser.
type Session struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// SaleResult is returned by sale lifecycle operations.
type SaleResult struct {
	Sale *core.Sale
}

// SaleListResult is returned by ListSales.
type SaleListResult struct {
	Sales []core.Sale
}

// ProductListResult is returned by GetLowStockProducts.
type ProductListResult struct {
	Products []core.Product
}

// MovementListResult is returned by ListMovements.
type MovementListResult struct {
	Movements []core.StockMovement
}

// UserListResult is returned by ListUsers.
type UserListResult struct {
	Users []core.User
}
