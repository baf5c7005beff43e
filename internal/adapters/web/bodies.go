package web

import (
	"bytes"
	"encoding/json"
	"fmt"

	"pos-ledger/internal/app"
)

// amount accepts a money value sent either as a JSON number or as a string
// such as "12.50" or "12,50". Parsing is left to the service.
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a number or string: %w", err)
	}
	*a = amount(n.String())
	return nil
}

type createProductBody struct {
	Name          string  `json:"name"`
	Brand         string  `json:"brand"`
	Price         amount  `json:"price"`
	Quantity      int     `json:"quantity"`
	MinStockLevel *int    `json:"min_stock_level"`
	Discount      amount  `json:"discount"`
	ImageURL      *string `json:"image_url"`
}

func (b createProductBody) toRequest() app.CreateProductRequest {
	return app.CreateProductRequest{
		Name:          b.Name,
		Brand:         b.Brand,
		Price:         string(b.Price),
		Quantity:      b.Quantity,
		MinStockLevel: b.MinStockLevel,
		Discount:      string(b.Discount),
		ImageURL:      b.ImageURL,
	}
}

// updateProductBody decodes Quantity only to reject it.
type updateProductBody struct {
	Name          *string `json:"name"`
	Brand         *string `json:"brand"`
	Price         *amount `json:"price"`
	Quantity      *int    `json:"quantity"`
	MinStockLevel *int    `json:"min_stock_level"`
	Discount      *amount `json:"discount"`
	ImageURL      *string `json:"image_url"`
}

func (b updateProductBody) toRequest() app.UpdateProductRequest {
	req := app.UpdateProductRequest{
		Name:          b.Name,
		Brand:         b.Brand,
		MinStockLevel: b.MinStockLevel,
		ImageURL:      b.ImageURL,
	}
	if b.Price != nil {
		s := string(*b.Price)
		req.Price = &s
	}
	if b.Discount != nil {
		s := string(*b.Discount)
		req.Discount = &s
	}
	return req
}

type splitSaleBody struct {
	Items    []app.SaleLine `json:"items"`
	Payments []struct {
		PaymentMethod string `json:"payment_method"`
		Amount        amount `json:"amount"`
	} `json:"payments"`
}

func (b splitSaleBody) toRequest() app.CreateSplitSaleRequest {
	req := app.CreateSplitSaleRequest{Items: b.Items}
	for _, p := range b.Payments {
		req.Payments = append(req.Payments, app.SplitPayment{
			PaymentMethod: p.PaymentMethod,
			Amount:        string(p.Amount),
		})
	}
	return req
}
