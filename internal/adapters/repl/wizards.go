package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pos-ledger/internal/app"
	"pos-ledger/internal/core"
)

func (s *Session) prompt(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	raw, err := s.reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if err != nil && raw == "" {
		return "", false
	}
	return raw, true
}

// saleWizard collects lines and payments interactively and records the sale.
// A payment answer of "split" switches to entering 2 to 5 tenders.
func (s *Session) saleWizard(ctx context.Context) error {
	fmt.Fprintln(s.out, "Enter sale lines. Type 'done' when finished, 'cancel' to abort.")
	fmt.Fprintln(s.out, "Format per line: <product-id> [quantity]")

	var lines []app.SaleLine
	for n := 1; ; {
		raw, ok := s.prompt(fmt.Sprintf("  Line %d: ", n))
		if !ok || strings.EqualFold(raw, "cancel") {
			fmt.Fprintln(s.out, "Sale cancelled.")
			return nil
		}
		if strings.EqualFold(raw, "done") {
			break
		}
		if raw == "" {
			continue
		}

		parts := strings.Fields(raw)
		id, err := strconv.Atoi(parts[0])
		if err != nil || id <= 0 {
			fmt.Fprintln(s.out, "  Invalid product id.")
			continue
		}
		qty := 1
		if len(parts) > 1 {
			if qty, err = strconv.Atoi(parts[1]); err != nil || qty <= 0 {
				fmt.Fprintln(s.out, "  Invalid quantity.")
				continue
			}
		}
		lines = append(lines, app.SaleLine{ProductID: id, Quantity: qty})
		n++
	}

	if len(lines) == 0 {
		fmt.Fprintln(s.out, "No lines entered. Sale not recorded.")
		return nil
	}

	method, ok := s.prompt("Payment method (cash, card, pix, split): ")
	if !ok {
		return nil
	}
	method = strings.ToLower(method)
	meta := app.AuditMeta{UserAgent: "repl"}

	var result *app.SaleResult
	var err error
	if method == core.PaymentSplit {
		payments, ok := s.collectPayments()
		if !ok {
			fmt.Fprintln(s.out, "Sale cancelled.")
			return nil
		}
		result, err = s.svc.CreateSplitSale(ctx, s.actor, app.CreateSplitSaleRequest{Items: lines, Payments: payments}, meta)
	} else {
		result, err = s.svc.CreateSale(ctx, s.actor, app.CreateSaleRequest{Items: lines, PaymentMethod: method}, meta)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "\nSale recorded (ID: %d)\n", result.Sale.ID)
	printSaleDetail(s.out, result.Sale)
	return nil
}

func (s *Session) collectPayments() ([]app.SplitPayment, bool) {
	fmt.Fprintln(s.out, "Enter payments as <method> <amount>. Type 'done' when finished.")
	var payments []app.SplitPayment
	for {
		raw, ok := s.prompt(fmt.Sprintf("  Payment %d: ", len(payments)+1))
		if !ok || strings.EqualFold(raw, "cancel") {
			return nil, false
		}
		if strings.EqualFold(raw, "done") {
			return payments, true
		}
		parts := strings.Fields(raw)
		if len(parts) != 2 {
			fmt.Fprintln(s.out, "  Invalid format. Use: <method> <amount>")
			continue
		}
		payments = append(payments, app.SplitPayment{PaymentMethod: strings.ToLower(parts[0]), Amount: parts[1]})
	}
}
