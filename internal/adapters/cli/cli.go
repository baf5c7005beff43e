package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pos-ledger/internal/app"
	"pos-ledger/internal/core"
)

const usage = `Available commands:
  stats                                  sales count, revenue and top products
  low-stock                              products at or below their minimum level
  movements [product_id] [limit]         recent stock movements
  sale <method> <product_id:qty>...      record a single-payment sale
  cancel <sale_id> <reason...>           cancel a sale and restore its stock`

// adminOnly lists commands restricted to the admin role.
var adminOnly = map[string]bool{
	"stats": true, "low-stock": true, "low": true, "cancel": true,
}

// Run executes a one-shot CLI command on behalf of actor and writes the result to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, actor app.Actor, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}
	if adminOnly[args[0]] && !actor.IsAdmin() {
		return fmt.Errorf("%w: %s requires the admin role", app.ErrForbidden, args[0])
	}

	switch args[0] {
	case "stats":
		stats, err := svc.GetSalesStats(ctx)
		if err != nil {
			return err
		}
		printStats(out, stats)

	case "low-stock", "low":
		result, err := svc.GetLowStockProducts(ctx)
		if err != nil {
			return err
		}
		printLowStock(out, result.Products)

	case "movements", "mov":
		var productID *int
		limit := 20
		if len(args) > 1 {
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid product id %q", args[1])
			}
			productID = &id
		}
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid limit %q", args[2])
			}
			limit = n
		}
		result, err := svc.ListMovements(ctx, productID, limit)
		if err != nil {
			return err
		}
		printMovements(out, result.Movements)

	case "sale":
		if len(args) < 3 {
			return fmt.Errorf("usage: app sale <cash|card|pix> <product_id:qty>...")
		}
		req := app.CreateSaleRequest{PaymentMethod: args[1]}
		for _, arg := range args[2:] {
			line, err := parseLine(arg)
			if err != nil {
				return err
			}
			req.Items = append(req.Items, line)
		}
		result, err := svc.CreateSale(ctx, actor, req, app.AuditMeta{UserAgent: "cli"})
		if err != nil {
			return err
		}
		return printJSON(out, result.Sale)

	case "cancel":
		if len(args) < 3 {
			return fmt.Errorf("usage: app cancel <sale_id> <reason>")
		}
		saleID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid sale id %q", args[1])
		}
		req := app.CancelSaleRequest{Reason: strings.Join(args[2:], " ")}
		result, err := svc.CancelSale(ctx, actor, saleID, req, app.AuditMeta{UserAgent: "cli"})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Sale #%d cancelled, stock restored for %d line(s).\n", result.Sale.ID, len(result.Sale.Items))

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

// parseLine reads "product_id:qty". A bare product id means quantity 1.
func parseLine(s string) (app.SaleLine, error) {
	idPart, qtyPart, found := strings.Cut(s, ":")
	id, err := strconv.Atoi(idPart)
	if err != nil {
		return app.SaleLine{}, fmt.Errorf("invalid line %q: product id", s)
	}
	qty := 1
	if found {
		if qty, err = strconv.Atoi(qtyPart); err != nil {
			return app.SaleLine{}, fmt.Errorf("invalid line %q: quantity", s)
		}
	}
	return app.SaleLine{ProductID: id, Quantity: qty}, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStats(out io.Writer, s *core.SalesStats) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 52))
	fmt.Fprintf(out, "  %-48s\n", "SALES SUMMARY")
	fmt.Fprintf(out, "  Active sales : %d\n", s.TotalSales)
	fmt.Fprintf(out, "  Revenue      : %s\n", core.FormatAmount(s.TotalRevenue))
	fmt.Fprintln(out, strings.Repeat("=", 52))
	fmt.Fprintf(out, "  %-8s %-30s %10s\n", "ID", "TOP PRODUCT", "UNITS")
	fmt.Fprintln(out, strings.Repeat("-", 52))
	for _, p := range s.TopProducts {
		fmt.Fprintf(out, "  %-8d %-30s %10d\n", p.ProductID, p.ProductName, p.Quantity)
	}
	fmt.Fprintln(out, strings.Repeat("=", 52))
}

func printLowStock(out io.Writer, products []core.Product) {
	if len(products) == 0 {
		fmt.Fprintln(out, "No products below their minimum stock level.")
		return
	}
	fmt.Fprintf(out, "%-6s %-30s %8s %8s\n", "ID", "NAME", "QTY", "MIN")
	fmt.Fprintln(out, strings.Repeat("-", 55))
	for _, p := range products {
		fmt.Fprintf(out, "%-6d %-30s %8d %8d\n", p.ID, p.Name, p.Quantity, p.MinStockLevel)
	}
}

func printMovements(out io.Writer, movements []core.StockMovement) {
	fmt.Fprintf(out, "%-6s %-20s %-24s %-10s %6s  %s\n", "ID", "WHEN", "PRODUCT", "TYPE", "QTY", "REASON")
	fmt.Fprintln(out, strings.Repeat("-", 90))
	for _, m := range movements {
		name := "(deleted)"
		if m.ProductName != nil {
			name = *m.ProductName
		}
		fmt.Fprintf(out, "%-6d %-20s %-24s %-10s %6d  %s\n",
			m.ID, m.CreatedAt.Format("2006-01-02 15:04:05"), name, m.Type, m.Quantity, m.Reason)
	}
}
