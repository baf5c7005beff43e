package web

import (
	"time"

	"pos-ledger/internal/core"
)

// JSON views. Money is rendered as a string with two fractional digits.

type productView struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand"`
	Price         string    `json:"price"`
	Quantity      int       `json:"quantity"`
	MinStockLevel int       `json:"min_stock_level"`
	Discount      string    `json:"discount"`
	ImageURL      *string   `json:"image_url,omitempty"`
	LowStock      bool      `json:"low_stock"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toProductView(p core.Product) productView {
	return productView{
		ID:            p.ID,
		Name:          p.Name,
		Brand:         p.Brand,
		Price:         core.FormatAmount(p.Price),
		Quantity:      p.Quantity,
		MinStockLevel: p.MinStockLevel,
		Discount:      core.FormatAmount(p.Discount),
		ImageURL:      p.ImageURL,
		LowStock:      p.Quantity <= p.MinStockLevel,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toProductViews(ps []core.Product) []productView {
	out := make([]productView, len(ps))
	for i, p := range ps {
		out[i] = toProductView(p)
	}
	return out
}

type saleItemView struct {
	ID          int     `json:"id"`
	ProductID   *int    `json:"product_id"`
	ProductName *string `json:"product_name"`
	Quantity    int     `json:"quantity"`
	PriceAtTime string  `json:"price_at_time"`
	LineTotal   string  `json:"line_total"`
}

type salePaymentView struct {
	PaymentMethod string `json:"payment_method"`
	Amount        string `json:"amount"`
}

type saleView struct {
	ID             int                        `json:"id"`
	TotalAmount    string                     `json:"total_amount"`
	PaymentMethod  string                     `json:"payment_method"`
	SellerID       int                        `json:"seller_id"`
	Seller         *core.UserSummary          `json:"seller,omitempty"`
	Status         string                     `json:"status"`
	CancelledBy    *int                       `json:"cancelled_by,omitempty"`
	CancelledAt    *time.Time                 `json:"cancelled_at,omitempty"`
	CancelReason   *string                    `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
	Items          []saleItemView             `json:"items"`
	Payments       []salePaymentView          `json:"payments,omitempty"`
	PaymentHistory []core.PaymentHistoryEntry `json:"payment_history,omitempty"`
}

func toSaleView(s core.Sale) saleView {
	v := saleView{
		ID:             s.ID,
		TotalAmount:    core.FormatAmount(s.TotalAmount),
		PaymentMethod:  s.PaymentMethod,
		SellerID:       s.SellerID,
		Seller:         s.Seller,
		Status:         s.Status,
		CancelledBy:    s.CancelledBy,
		CancelledAt:    s.CancelledAt,
		CancelReason:   s.CancelReason,
		CreatedAt:      s.CreatedAt,
		Items:          make([]saleItemView, len(s.Items)),
		PaymentHistory: s.PaymentHistory,
	}
	for i, it := range s.Items {
		v.Items[i] = saleItemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			PriceAtTime: core.FormatAmount(it.PriceAtTime),
			LineTotal:   core.FormatAmount(it.LineTotal()),
		}
	}
	for _, p := range s.Payments {
		v.Payments = append(v.Payments, salePaymentView{
			PaymentMethod: p.PaymentMethod,
			Amount:        core.FormatAmount(p.Amount),
		})
	}
	return v
}

type statsView struct {
	TotalSales   int               `json:"total_sales"`
	TotalRevenue string            `json:"total_revenue"`
	TopProducts  []core.TopProduct `json:"top_products"`
}
