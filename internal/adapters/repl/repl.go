package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pos-ledger/internal/adapters/cli"
	"pos-ledger/internal/app"
)

var errExit = errors.New("exit")

// Session is an interactive counter session for one signed-in user.
type Session struct {
	svc    app.ApplicationService
	actor  app.Actor
	reader *bufio.Reader
	out    io.Writer
}

func New(svc app.ApplicationService, actor app.Actor, in io.Reader, out io.Writer) *Session {
	return &Session{svc: svc, actor: actor, reader: bufio.NewReader(in), out: out}
}

// Run reads slash commands until /exit or end of input.
func (s *Session) Run(ctx context.Context) {
	fmt.Fprintln(s.out, "POS counter")
	fmt.Fprintf(s.out, "Signed in as user #%d (%s). Type /help for commands.\n", s.actor.UserID, s.actor.Role)
	fmt.Fprintln(s.out, strings.Repeat("-", 60))

	for {
		fmt.Fprint(s.out, "\n> ")
		input, readErr := s.reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			if err := s.dispatch(ctx, input); err != nil {
				if errors.Is(err, errExit) {
					fmt.Fprintln(s.out, "Goodbye!")
					return
				}
				fmt.Fprintf(s.out, "Error: %v\n", err)
			}
		}
		if readErr != nil {
			return
		}
	}
}

func (s *Session) dispatch(ctx context.Context, input string) error {
	if !strings.HasPrefix(input, "/") {
		fmt.Fprintln(s.out, "Commands start with '/'. Type /help for the list.")
		return nil
	}
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch cmd {
	case "products", "p":
		page := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid page %q", args[0])
			}
			page = n
		}
		result, err := s.svc.ListProducts(ctx, page, 20)
		if err != nil {
			return err
		}
		printProducts(s.out, result)

	case "sale", "new":
		return s.saleWizard(ctx)

	case "sales":
		result, err := s.svc.ListSales(ctx, s.actor)
		if err != nil {
			return err
		}
		printSales(s.out, result.Sales)

	case "show":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /show <sale-id>")
			return nil
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sale id %q", args[0])
		}
		result, err := s.svc.GetSale(ctx, s.actor, id, app.AuditMeta{UserAgent: "repl"})
		if err != nil {
			return err
		}
		printSaleDetail(s.out, result.Sale)

	case "pay":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: /pay <sale-id> <cash|card|pix>")
			return nil
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sale id %q", args[0])
		}
		result, err := s.svc.UpdatePaymentMethod(ctx, s.actor, id,
			app.UpdatePaymentMethodRequest{PaymentMethod: strings.ToLower(args[1])}, app.AuditMeta{UserAgent: "repl"})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Sale #%d payment method is now %s.\n", result.Sale.ID, result.Sale.PaymentMethod)

	case "stats", "low", "low-stock", "movements", "mov", "cancel":
		return cli.Run(ctx, s.svc, s.actor, append([]string{cmd}, args...), s.out)

	case "help", "h":
		printHelp(s.out)

	case "exit", "quit", "q":
		return errExit

	default:
		fmt.Fprintf(s.out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}
