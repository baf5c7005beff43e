package app

import "pos-ledger/internal/core"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == core.RoleAdmin }

// AuditMeta carries request metadata copied into audit events.
type AuditMeta struct {
	IPAddress string
	UserAgent string
}

// LoginRequest is the input for AuthenticateUser.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest is the input for creating an account.
type CreateUserRequest struct {
	Username        string `json:"username" validate:"required,min=3"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=admin seller"`
}

// CreateProductRequest is the input for creating a product. Money values are
// decimal strings; a comma decimal separator is accepted.
type CreateProductRequest struct {
	Name          string  `json:"name" validate:"required"`
	Brand         string  `json:"brand" validate:"required"`
	Price         string  `json:"price" validate:"required"`
	Quantity      int     `json:"quantity" validate:"gte=0"`
	MinStockLevel *int    `json:"min_stock_level,omitempty" validate:"omitempty,gte=0"`
	Discount      string  `json:"discount,omitempty"`
	ImageURL      *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UpdateProductRequest patches a product; omitted fields are unchanged.
// Stock quantity is not editable here, see AdjustStockRequest.
type UpdateProductRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Brand         *string `json:"brand,omitempty" validate:"omitempty,min=1"`
	Price         *string `json:"price,omitempty"`
	MinStockLevel *int    `json:"min_stock_level,omitempty" validate:"omitempty,gte=0"`
	Discount      *string `json:"discount,omitempty"`
	ImageURL      *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// AdjustStockRequest is an operator stock correction. Delta may be negative.
type AdjustStockRequest struct {
	Delta  int    `json:"delta" validate:"required,ne=0"`
	Reason string `json:"reason" validate:"required"`
}

// SaleLine is one requested sale line.
type SaleLine struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
	Quantity  int `json:"quantity" validate:"required,gt=0"`
}

// CreateSaleRequest is the input for a single-payment sale.
type CreateSaleRequest struct {
	Items         []SaleLine `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string     `json:"payment_method" validate:"required,oneof=cash card pix"`
}

// SplitPayment is one tender of a split sale.
type SplitPayment struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash card pix"`
	Amount        string `json:"amount" validate:"required"`
}

// CreateSplitSaleRequest is the input for a sale settled by 2 to 5 payments.
type CreateSplitSaleRequest struct {
	Items    []SaleLine     `json:"items" validate:"required,min=1,dive"`
	Payments []SplitPayment `json:"payments" validate:"required,min=2,max=5,dive"`
}

// UpdatePaymentMethodRequest changes the payment method of an active sale.
type UpdatePaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash card pix"`
}

// CancelSaleRequest cancels a sale. Reason must have at least 5 characters.
type CancelSaleRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

func toCoreLines(items []SaleLine) []core.SaleLineInput {
	lines := make([]core.SaleLineInput, len(items))
	for i, it := range items {
		lines[i] = core.SaleLineInput{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines
}
