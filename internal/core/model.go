package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// User roles.
const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

// Stock movement types.
const (
	MovementIn         = "in"
	MovementOut        = "out"
	MovementAdjustment = "adjustment"
)

// Payment methods. PaymentSplit is never accepted as input; it tags sales
// settled through several SalePayment rows.
const (
	PaymentCash  = "cash"
	PaymentCard  = "card"
	PaymentPix   = "pix"
	PaymentSplit = "split"
)

// Sale statuses. A sale moves from active to cancelled exactly once.
const (
	SaleActive    = "active"
	SaleCancelled = "cancelled"
)

// Movement reasons written by the sale engine.
const (
	ReasonSale         = "Sale"
	ReasonSaleSplit    = "Sale (Split Payment)"
	ReasonInitialStock = "Initial Stock"
)

// ValidPaymentMethod reports whether m is a method a customer can pay with.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentPix:
		return true
	}
	return false
}

// Product is a catalog item. Quantity is changed only through the stock mutator.
type Product struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	MinStockLevel int             `json:"min_stock_level"`
	Discount      decimal.Decimal `json:"discount"`
	ImageURL      *string         `json:"image_url,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StockMovement is one append-only entry of the stock ledger.
// ProductID is nil once the product has been deleted.
type StockMovement struct {
	ID          int       `json:"id"`
	ProductID   *int      `json:"product_id"`
	ProductName *string   `json:"product_name,omitempty"` // joined from products
	Type        string    `json:"type"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
	UserID      *int      `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserSummary is the public part of a User, attached to sales.
type UserSummary struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Sale is a sale header with its lines. Payments is populated only for split
// sales and PaymentHistory only by GetSale.
type Sale struct {
	ID             int                   `json:"id"`
	TotalAmount    decimal.Decimal       `json:"total_amount"`
	PaymentMethod  string                `json:"payment_method"`
	SellerID       int                   `json:"seller_id"`
	Seller         *UserSummary          `json:"seller,omitempty"`
	Status         string                `json:"status"`
	CancelledBy    *int                  `json:"cancelled_by,omitempty"`
	CancelledAt    *time.Time            `json:"cancelled_at,omitempty"`
	CancelReason   *string               `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	Items          []SaleItem            `json:"items"`
	Payments       []SalePayment         `json:"payments,omitempty"`
	PaymentHistory []PaymentHistoryEntry `json:"payment_history,omitempty"`
}

// SaleItem is one line of a sale. PriceAtTime is the product price read when
// the line was validated and never changes afterwards.
type SaleItem struct {
	ID          int             `json:"id"`
	SaleID      int             `json:"sale_id"`
	ProductID   *int            `json:"product_id"`
	ProductName *string         `json:"product_name,omitempty"` // joined from products
	Quantity    int             `json:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time"`
}

// LineTotal returns Quantity × PriceAtTime.
func (i SaleItem) LineTotal() decimal.Decimal {
	return i.PriceAtTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SalePayment is one tender of a split sale.
type SalePayment struct {
	ID            int             `json:"id"`
	SaleID        int             `json:"sale_id"`
	PaymentMethod string          `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentHistoryEntry records one payment-method change on an active sale.
type PaymentHistoryEntry struct {
	ID               int       `json:"id"`
	SaleID           int       `json:"sale_id"`
	OldPaymentMethod string    `json:"old_payment_method"`
	NewPaymentMethod string    `json:"new_payment_method"`
	ChangedBy        int       `json:"changed_by"`
	ChangedAt        time.Time `json:"changed_at"`
}

// SaleLineInput is a requested sale line.
type SaleLineInput struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// PaymentInput is a requested tender of a split sale.
type PaymentInput struct {
	PaymentMethod string          `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
}
