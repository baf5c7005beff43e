package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentTolerance is the largest accepted difference between a split sale's
// item total and the sum of its payments.
var PaymentTolerance = decimal.New(1, -2)

var minPaymentAmount = decimal.New(1, -2)

// ParseAmount parses a currency or percentage string. Both "4.50" and "4,50"
// are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, validationErrorf("amount is required")
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, validationErrorf("invalid amount %q", s)
	}
	return d, nil
}

// FormatAmount renders d with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// SumPayments returns the total of all payment amounts.
func SumPayments(payments []PaymentInput) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// ReconcilePayments fails with *PaymentMismatchError when the payments differ
// from itemsTotal by more than PaymentTolerance.
func ReconcilePayments(itemsTotal decimal.Decimal, payments []PaymentInput) error {
	paid := SumPayments(payments)
	if itemsTotal.Sub(paid).Abs().GreaterThan(PaymentTolerance) {
		return &PaymentMismatchError{ItemsTotal: itemsTotal, PaymentsTotal: paid}
	}
	return nil
}

// validateLines checks the shape of a sale request before any row is touched.
func validateLines(lines []SaleLineInput) error {
	if len(lines) == 0 {
		return validationErrorf("sale must have at least one item")
	}
	for i, l := range lines {
		if l.ProductID <= 0 {
			return validationErrorf("line %d: invalid product id %d", i+1, l.ProductID)
		}
		if l.Quantity <= 0 {
			return validationErrorf("line %d: quantity must be positive, got %d", i+1, l.Quantity)
		}
	}
	return nil
}

// validatePayments checks a split payment list: 2 to 5 entries, known methods,
// each amount at least 0.01.
func validatePayments(payments []PaymentInput) error {
	if len(payments) < 2 || len(payments) > 5 {
		return validationErrorf("split sale needs between 2 and 5 payments, got %d", len(payments))
	}
	for i, p := range payments {
		if !ValidPaymentMethod(p.PaymentMethod) {
			return validationErrorf("payment %d: unknown payment method %q", i+1, p.PaymentMethod)
		}
		if p.Amount.LessThan(minPaymentAmount) {
			return validationErrorf("payment %d: amount must be at least 0.01, got %s", i+1, p.Amount)
		}
	}
	return nil
}
