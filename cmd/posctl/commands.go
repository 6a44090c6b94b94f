package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"storepos/internal/domain"
	"storepos/internal/draft"
	"storepos/internal/returns"
)

var errUsage = errors.New("usage")

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("posctl "+name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// parse reports every flag error as bad usage; the flag set has already
// printed the details.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func money(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// lineFlags collects repeated -item ID:QTY values.
type lineFlags []draft.Line

func (l *lineFlags) String() string {
	parts := make([]string, 0, len(*l))
	for _, line := range *l {
		parts = append(parts, fmt.Sprintf("%d:%d", line.ItemID, line.Quantity))
	}
	return strings.Join(parts, ",")
}

func (l *lineFlags) Set(raw string) error {
	id, qty, found := strings.Cut(raw, ":")
	if !found {
		qty = "1"
	}
	itemID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return fmt.Errorf("item id %q is not a number", id)
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(qty))
	if err != nil {
		return fmt.Errorf("quantity %q is not a number", qty)
	}
	*l = append(*l, draft.Line{ItemID: itemID, Quantity: quantity})
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	username := fs.String("username", "", "employee username")
	password := fs.String("password", "", "employee password")
	if err := parse(fs, args); err != nil {
		return err
	}
	user, err := a.api.Auth.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s (%s)\n", user.Username, user.Position)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if a.api.Auth.Logout(ctx) {
		fmt.Fprintln(a.out, "logged out")
	} else {
		fmt.Fprintln(a.out, "not logged in")
	}
	return nil
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	user, _ := a.session.User()
	fmt.Fprintf(a.out, "%s (%s) id=%s\n", user.Username, user.Position, user.ID)
	return nil
}

func runInventory(ctx context.Context, a *app, _ []string) error {
	items, err := a.api.Inventory.List(ctx)
	if err != nil {
		return err
	}
	tw := a.table()
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", item.ID, item.Name, money(item.PriceCents), item.Quantity)
	}
	return tw.Flush()
}

func runCustomers(ctx context.Context, a *app, _ []string) error {
	customers, err := a.api.Customers.List(ctx)
	if err != nil {
		return err
	}
	tw := a.table()
	fmt.Fprintln(tw, "ID\tNAME\tPHONE")
	for _, c := range customers {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.Phone)
	}
	return tw.Flush()
}

func runSale(ctx context.Context, a *app, args []string) error {
	fs := a.flags("sale")
	var lines lineFlags
	fs.Var(&lines, "item", "line as ID:QTY, repeatable")
	coupon := fs.String("coupon", "", "coupon code")
	pay := fs.String("pay", string(domain.PaymentCash), "payment method")
	if err := parse(fs, args); err != nil {
		return err
	}

	form := draft.NewSaleForm(a.api.Sales, a.loader, a.session, a.pricing, a.logger.Named("sale"))
	if err := form.Open(ctx); err != nil {
		return err
	}
	for _, line := range lines {
		if err := form.AddLine(line.ItemID, line.Quantity); err != nil {
			return err
		}
	}
	if *coupon != "" {
		if err := form.ApplyCoupon(*coupon); err != nil {
			return err
		}
	}
	preview := form.Totals()
	sale, err := form.Finalize(ctx, domain.PaymentMethod(strings.ToUpper(*pay)), form.Coupon())
	if err != nil {
		return err
	}
	a.loader.InvalidateInventory(ctx)

	tw := a.table()
	fmt.Fprintf(tw, "sale\t%s\n", sale.ID)
	fmt.Fprintf(tw, "subtotal\t%s\n", money(sale.SubtotalCents))
	fmt.Fprintf(tw, "discount\t%s\n", money(sale.DiscountCents))
	fmt.Fprintf(tw, "tax\t%s\n", money(sale.TaxCents))
	fmt.Fprintf(tw, "total\t%s\n", money(sale.TotalCents))
	if err := tw.Flush(); err != nil {
		return err
	}
	if sale.TotalCents != preview.TotalCents {
		fmt.Fprintf(a.errOut, "note: server total %s differs from estimate %s\n", money(sale.TotalCents), money(preview.TotalCents))
	}
	return nil
}

func runRental(ctx context.Context, a *app, args []string) error {
	fs := a.flags("rental")
	var lines lineFlags
	fs.Var(&lines, "item", "line as ID:QTY, repeatable")
	customer := fs.String("customer", "", "customer id")
	due := fs.String("due", "", "due date, YYYY-MM-DD")
	deposit := fs.Int64("deposit", 0, "deposit in cents")
	if err := parse(fs, args); err != nil {
		return err
	}

	form := draft.NewRentalForm(a.api.Rentals, a.loader, a.session, a.pricing, a.logger.Named("rental"))
	if err := form.Open(ctx); err != nil {
		return err
	}
	if err := form.SelectCustomer(*customer); err != nil {
		return err
	}
	dueDate, err := draft.ParseDueDate(*due)
	if err != nil {
		return err
	}
	if err := form.SetDueDate(dueDate); err != nil {
		return err
	}
	if err := form.SetDeposit(*deposit); err != nil {
		return err
	}
	for _, line := range lines {
		if err := form.AddLine(line.ItemID, line.Quantity); err != nil {
			return err
		}
	}
	result, err := form.Finalize(ctx)
	if err != nil {
		return err
	}
	a.loader.InvalidateInventory(ctx)

	tw := a.table()
	fmt.Fprintf(tw, "rental\t%s\t%s\n", result.Rental.ID, result.Rental.RentalNumber)
	fmt.Fprintf(tw, "due\t%s\n", result.Rental.DueDate.Format(time.DateOnly))
	fmt.Fprintf(tw, "total\t%s\n", money(result.Rental.TotalCents))
	fmt.Fprintf(tw, "deposit\t%s\n", money(result.Rental.DepositCents))
	fmt.Fprintf(tw, "due now\t%s\n", money(result.TotalDueCents))
	return tw.Flush()
}

func (a *app) returnForm() *returns.Form {
	return returns.NewForm(a.api.Rentals, a.api.Sales, a.api.Returns, a.policy, a.logger.Named("returns"))
}

func runReturnQuote(ctx context.Context, a *app, args []string) error {
	fs := a.flags("return-quote")
	rentalID := fs.String("rental", "", "rental id")
	at := fs.String("at", "", "assumed return time, RFC3339")
	server := fs.Bool("server", false, "ask the backend for the quote")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *rentalID == "" {
		fmt.Fprintln(a.errOut, "return-quote needs -rental")
		return errUsage
	}

	form := a.returnForm()
	quote, err := form.Select(ctx, *rentalID)
	if err != nil {
		return err
	}
	if *at != "" {
		when, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return domain.NewValidationError("at", "Return time must be RFC3339")
		}
		if quote, err = form.Preview(&when); err != nil {
			return err
		}
	}
	if *server {
		if quote, err = form.Quote(ctx); err != nil {
			return err
		}
	}
	a.printQuote(quote)
	return nil
}

func (a *app) printQuote(q domain.LateFeeQuote) {
	tw := a.table()
	fmt.Fprintf(tw, "rental\t%s\n", q.RentalID)
	fmt.Fprintf(tw, "due\t%s\n", q.DueDate.Format(time.RFC3339))
	fmt.Fprintf(tw, "returned\t%s\n", q.ReturnedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "days late\t%d\n", q.DaysLate)
	fmt.Fprintf(tw, "late fee\t%s\n", money(q.LateFeeCents))
	fmt.Fprintf(tw, "deposit\t%s\n", money(q.DepositCents))
	fmt.Fprintf(tw, "refund\t%s\n", money(q.RefundCents))
	if due := q.BalanceDueCents(); due > 0 {
		fmt.Fprintf(tw, "balance due\t%s\n", money(due))
	}
	_ = tw.Flush()
}

func runReturn(ctx context.Context, a *app, args []string) error {
	fs := a.flags("return")
	rentalID := fs.String("rental", "", "rental id")
	saleID := fs.String("sale", "", "sale id")
	reason := fs.String("reason", "", "reason for the return")
	if err := parse(fs, args); err != nil {
		return err
	}
	if (*rentalID == "") == (*saleID == "") {
		fmt.Fprintln(a.errOut, "return needs exactly one of -rental or -sale")
		return errUsage
	}

	form := a.returnForm()
	var (
		rec domain.ReturnRecord
		err error
	)
	if *saleID != "" {
		rec, err = form.SubmitSaleReturn(ctx, *saleID, *reason)
	} else {
		if _, err = form.Select(ctx, *rentalID); err != nil {
			return err
		}
		rec, err = form.Submit(ctx, *reason)
	}
	if err != nil {
		return err
	}
	a.loader.InvalidateInventory(ctx)
	fmt.Fprintf(a.out, "return %s recorded, refund %s\n", rec.ID, money(rec.AmountCents))
	return nil
}

func runReports(ctx context.Context, a *app, _ []string) error {
	dash, err := a.api.Reports.Dashboard(ctx)
	if err != nil {
		return err
	}
	tw := a.table()
	fmt.Fprintf(tw, "sales\t%d\trevenue %s\ttax %s\n", dash.Sales.TotalSales, money(dash.Sales.TotalRevenueCents), money(dash.Sales.TotalTaxCents))
	fmt.Fprintf(tw, "rentals\t%d\trevenue %s\tactive %d\n", dash.Rentals.TotalRentals, money(dash.Rentals.TotalRevenueCents), dash.Rentals.ActiveRentals)
	fmt.Fprintf(tw, "inventory\t%d\tvalue %s\tlow stock %d\n", dash.Inventory.TotalItems, money(dash.Inventory.TotalValueCents), dash.Inventory.LowStock)
	return tw.Flush()
}
