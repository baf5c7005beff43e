package repl

import (
	"fmt"
	"io"
	"strings"

	"pos-ledger/internal/core"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  /products [page]           list the catalog")
	fmt.Fprintln(out, "  /sale                      record a sale (guided)")
	fmt.Fprintln(out, "  /sales                     list sales")
	fmt.Fprintln(out, "  /show <sale-id>            sale detail")
	fmt.Fprintln(out, "  /pay <sale-id> <method>    change the payment method of an active sale")
	fmt.Fprintln(out, "  /cancel <sale-id> <reason> cancel a sale (admin)")
	fmt.Fprintln(out, "  /stats  /low  /mov [id]    reports (admin)")
	fmt.Fprintln(out, "  /exit")
}

func printProducts(out io.Writer, page *core.ProductPage) {
	fmt.Fprintf(out, "%-6s %-28s %-16s %10s %6s\n", "ID", "NAME", "BRAND", "PRICE", "QTY")
	fmt.Fprintln(out, strings.Repeat("-", 70))
	for _, p := range page.Data {
		flag := ""
		if p.Quantity <= p.MinStockLevel {
			flag = " !"
		}
		fmt.Fprintf(out, "%-6d %-28s %-16s %10s %6d%s\n", p.ID, p.Name, p.Brand, core.FormatAmount(p.Price), p.Quantity, flag)
	}
	fmt.Fprintf(out, "Page %d of %d (%d products)\n", page.Page, page.Pages, page.Total)
}

func printSales(out io.Writer, sales []core.Sale) {
	if len(sales) == 0 {
		fmt.Fprintln(out, "No sales.")
		return
	}
	fmt.Fprintf(out, "%-6s %-20s %-8s %-10s %12s\n", "ID", "DATE", "METHOD", "STATUS", "TOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, s := range sales {
		fmt.Fprintf(out, "%-6d %-20s %-8s %-10s %12s\n",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.PaymentMethod, s.Status, core.FormatAmount(s.TotalAmount))
	}
}

func printSaleDetail(out io.Writer, s *core.Sale) {
	fmt.Fprintf(out, "Sale #%d  %s  %s  total %s\n", s.ID, s.Status, s.PaymentMethod, core.FormatAmount(s.TotalAmount))
	for _, it := range s.Items {
		name := "(deleted)"
		if it.ProductName != nil {
			name = *it.ProductName
		}
		fmt.Fprintf(out, "  %3d x %-28s @ %10s = %10s\n", it.Quantity, name, core.FormatAmount(it.PriceAtTime), core.FormatAmount(it.LineTotal()))
	}
	for _, p := range s.Payments {
		fmt.Fprintf(out, "  paid %-6s %10s\n", p.PaymentMethod, core.FormatAmount(p.Amount))
	}
	if s.CancelReason != nil {
		fmt.Fprintf(out, "  cancelled: %s\n", *s.CancelReason)
	}
}
