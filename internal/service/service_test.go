package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storepos/internal/domain"
	"storepos/internal/store"
	"storepos/internal/store/memory"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	repo, err := memory.NewSeeded(nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := New(repo, Options{
		TaxRate:            0.07,
		LateFeePerDayCents: 1000,
		Clock:              func() time.Time { return fixedNow },
	})
	admin, err := svc.Authenticate(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	return svc, WithActor(context.Background(), admin)
}

func openSale(t *testing.T, svc *Service, ctx context.Context, lines map[int64]int) domain.Sale {
	t.Helper()
	actor, _ := ActorFromContext(ctx)
	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{EmployeeID: actor.ID})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	for itemID, qty := range lines {
		if sale, err = svc.AddSaleItem(ctx, sale.ID, domain.AddItemRequest{ItemID: itemID, Quantity: qty}); err != nil {
			t.Fatalf("add item %d: %v", itemID, err)
		}
	}
	return sale
}

func itemQuantity(t *testing.T, svc *Service, id int64) int {
	t.Helper()
	item, err := svc.GetItem(context.Background(), id)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	return item.Quantity
}

func TestAuthenticateRejectsBadPasswordAndInactiveAccounts(t *testing.T) {
	svc, ctx := newTestService(t)
	if _, err := svc.Authenticate(ctx, "admin", "wrong"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ghost", "admin123"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}

	emp, err := svc.CreateEmployee(ctx, domain.EmployeeCreateRequest{Username: "Bob", Password: "hunter22", Position: domain.PositionCashier})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if _, err := svc.ToggleEmployeeStatus(ctx, emp.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "bob", "hunter22"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected inactive account to be refused, got %v", err)
	}
}

func TestAdminOnlyOperations(t *testing.T) {
	svc, _ := newTestService(t)
	cashier, err := svc.Authenticate(context.Background(), "cashier", "cashier123")
	if err != nil {
		t.Fatalf("authenticate cashier: %v", err)
	}
	ctx := WithActor(context.Background(), cashier)

	if _, err := svc.CreateItem(ctx, domain.ItemCreateRequest{ID: 9, Name: "Saw", PriceCents: 900, Quantity: 3}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.ListEmployees(ctx); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.CreateCustomer(ctx, domain.CustomerCreateRequest{Name: "Eve", Phone: "555-000"}); err != nil {
		t.Fatalf("cashiers may add customers: %v", err)
	}
}

func TestAdminCannotDeactivateSelf(t *testing.T) {
	svc, ctx := newTestService(t)
	actor, _ := ActorFromContext(ctx)
	if _, err := svc.ToggleEmployeeStatus(ctx, actor.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFinalizeSaleAppliesCouponPercentAndTakesStock(t *testing.T) {
	svc, ctx := newTestService(t)
	sale := openSale(t, svc, ctx, map[int64]int{1: 1, 2: 2})
	if sale.SubtotalCents != 14000 {
		t.Fatalf("expected running subtotal 14000, got %d", sale.SubtotalCents)
	}

	out, err := svc.FinalizeSale(ctx, sale.ID, domain.SaleFinalizeRequest{PaymentMethod: domain.PaymentCash, CouponCode: " summer10"})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if out.Status != domain.StatusFinalized || out.CouponCode != "SUMMER10" {
		t.Fatalf("unexpected sale %+v", out)
	}
	if out.TaxCents != 980 || out.DiscountCents != 1400 || out.TotalCents != 13580 {
		t.Fatalf("unexpected totals %+v", out)
	}
	if got := itemQuantity(t, svc, 1); got != 19 {
		t.Fatalf("expected drill stock 19, got %d", got)
	}
	if got := itemQuantity(t, svc, 2); got != 48 {
		t.Fatalf("expected hammer stock 48, got %d", got)
	}
	if _, err := svc.AddSaleItem(ctx, sale.ID, domain.AddItemRequest{ItemID: 3, Quantity: 1}); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected finalized sale to be closed, got %v", err)
	}
}

func TestFinalizeSaleRejectsUnknownAndInactiveCoupons(t *testing.T) {
	svc, ctx := newTestService(t)
	sale := openSale(t, svc, ctx, map[int64]int{3: 1})

	if _, err := svc.FinalizeSale(ctx, sale.ID, domain.SaleFinalizeRequest{PaymentMethod: domain.PaymentCash, CouponCode: "NOPE"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	coupons, _ := svc.ListCoupons(ctx)
	off := false
	if _, err := svc.UpdateCoupon(ctx, coupons[0].ID, domain.CouponUpdateRequest{IsActive: &off}); err != nil {
		t.Fatalf("deactivate coupon: %v", err)
	}
	if _, err := svc.FinalizeSale(ctx, sale.ID, domain.SaleFinalizeRequest{PaymentMethod: domain.PaymentCash, CouponCode: "SUMMER10"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for inactive coupon, got %v", err)
	}
	got, _ := svc.GetSale(ctx, sale.ID)
	if got.Status != domain.StatusOpen {
		t.Fatalf("expected sale to stay open, got %s", got.Status)
	}
}

func TestFinalizeSaleOutOfStockLeavesEverythingUnchanged(t *testing.T) {
	svc, ctx := newTestService(t)
	sale := openSale(t, svc, ctx, map[int64]int{1: 21, 2: 1})

	_, err := svc.FinalizeSale(ctx, sale.ID, domain.SaleFinalizeRequest{PaymentMethod: domain.PaymentCredit})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	var stockErr *store.StockError
	if !errors.As(err, &stockErr) || stockErr.ItemID != 1 {
		t.Fatalf("expected drill named in error, got %v", err)
	}
	if got := itemQuantity(t, svc, 2); got != 50 {
		t.Fatalf("expected hammer untouched, got %d", got)
	}
	got, _ := svc.GetSale(ctx, sale.ID)
	if got.Status != domain.StatusOpen {
		t.Fatalf("expected sale still open, got %s", got.Status)
	}
}

func TestFinalizeEmptySaleFails(t *testing.T) {
	svc, ctx := newTestService(t)
	sale := openSale(t, svc, ctx, nil)
	if _, err := svc.FinalizeSale(ctx, sale.ID, domain.SaleFinalizeRequest{PaymentMethod: domain.PaymentCash}); !errors.Is(err, domain.ErrEmptyTransaction) {
		t.Fatalf("expected empty transaction, got %v", err)
	}
}

func TestConcurrentFinalizeNeverOversells(t *testing.T) {
	svc, ctx := newTestService(t)
	ids := make([]string, 5)
	for i := range ids {
		ids[i] = openSale(t, svc, ctx, map[int64]int{1: 6}).ID
	}

	var wg sync.WaitGroup
	results := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.FinalizeSale(ctx, id, domain.SaleFinalizeRequest{PaymentMethod: domain.PaymentCash})
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, store.ErrInsufficientStock):
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 3 {
		t.Fatalf("expected three sales to fit 20 drills, got %d", ok)
	}
	if got := itemQuantity(t, svc, 1); got != 2 {
		t.Fatalf("expected 2 drills left, got %d", got)
	}
}

func TestSaleReturnRefundsTotalOnce(t *testing.T) {
	svc, ctx := newTestService(t)
	sale := openSale(t, svc, ctx, map[int64]int{2: 5})
	sale, err := svc.FinalizeSale(ctx, sale.ID, domain.SaleFinalizeRequest{PaymentMethod: domain.PaymentDebit})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	rec, err := svc.RecordSaleReturn(ctx, domain.SaleReturnRequest{SaleID: sale.ID, AmountCents: 1, Reason: "damaged"})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if rec.AmountCents != sale.TotalCents || rec.Type != domain.ReturnSale {
		t.Fatalf("unexpected record %+v", rec)
	}
	if got := itemQuantity(t, svc, 2); got != 50 {
		t.Fatalf("expected hammers restocked, got %d", got)
	}
	if _, err := svc.RecordSaleReturn(ctx, domain.SaleReturnRequest{SaleID: sale.ID}); !errors.Is(err, store.ErrAlreadyReturned) {
		t.Fatalf("expected already returned, got %v", err)
	}
	if got := itemQuantity(t, svc, 2); got != 50 {
		t.Fatalf("expected no second restock, got %d", got)
	}
}

func TestCancelledSaleCannotBeReturned(t *testing.T) {
	svc, ctx := newTestService(t)
	sale := openSale(t, svc, ctx, map[int64]int{2: 1})
	if _, err := svc.CancelSale(ctx, sale.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.CancelSale(ctx, sale.ID); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected second cancel to conflict, got %v", err)
	}
	if _, err := svc.RecordSaleReturn(ctx, domain.SaleReturnRequest{SaleID: sale.ID}); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected invalid transaction, got %v", err)
	}
}

func finalizedRental(t *testing.T, svc *Service, ctx context.Context, due time.Time) domain.Rental {
	t.Helper()
	actor, _ := ActorFromContext(ctx)
	r, err := svc.CreateRental(ctx, domain.RentalCreateRequest{UserID: "u1", EmployeeID: actor.ID, DueDate: due, DepositCents: 5000})
	if err != nil {
		t.Fatalf("create rental: %v", err)
	}
	if _, err := svc.AddRentalItem(ctx, r.ID, domain.AddItemRequest{ItemID: 1, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	r, err = svc.FinalizeRental(ctx, r.ID, domain.RentalFinalizeRequest{TotalCents: 1})
	if err != nil {
		t.Fatalf("finalize rental: %v", err)
	}
	return r
}

func TestRentalLifecycleAndLateFee(t *testing.T) {
	svc, ctx := newTestService(t)
	due := fixedNow.Add(48 * time.Hour)
	rental := finalizedRental(t, svc, ctx, due)
	if rental.TotalCents != 21400 {
		t.Fatalf("expected server total 21400, got %d", rental.TotalCents)
	}
	if rental.RentalNumber == "" {
		t.Fatal("expected rental number")
	}
	if got := itemQuantity(t, svc, 1); got != 18 {
		t.Fatalf("expected 18 drills after rental, got %d", got)
	}

	late := due.Add(3 * 24 * time.Hour)
	quote, err := svc.LateFee(ctx, rental.ID, &late)
	if err != nil {
		t.Fatalf("late fee: %v", err)
	}
	if !quote.IsLate || quote.DaysLate != 3 || quote.LateFeeCents != 3000 || quote.RefundCents != 2000 {
		t.Fatalf("unexpected quote %+v", quote)
	}

	if _, err := svc.MarkRentalReturned(ctx, rental.ID, domain.RentalReturnRequest{ReturnedAt: &late}); err != nil {
		t.Fatalf("mark returned: %v", err)
	}
	if got := itemQuantity(t, svc, 1); got != 20 {
		t.Fatalf("expected drills back in stock, got %d", got)
	}
	rec, err := svc.RecordRentalReturn(ctx, domain.RentalReturnRecordRequest{RentalID: rental.ID, AmountCents: quote.RefundCents})
	if err != nil {
		t.Fatalf("record return: %v", err)
	}
	if rec.AmountCents != 2000 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if got := itemQuantity(t, svc, 1); got != 20 {
		t.Fatalf("expected single restock, got %d", got)
	}
	if _, err := svc.RecordRentalReturn(ctx, domain.RentalReturnRecordRequest{RentalID: rental.ID}); !errors.Is(err, store.ErrAlreadyReturned) {
		t.Fatalf("expected already returned, got %v", err)
	}

	stored, _ := svc.LateFee(ctx, rental.ID, nil)
	if !stored.ReturnedAt.Equal(late) {
		t.Fatalf("expected quote at recorded return time, got %s", stored.ReturnedAt)
	}
}

func TestRentalReturnRecordsComputedRefund(t *testing.T) {
	svc, ctx := newTestService(t)
	rental := finalizedRental(t, svc, ctx, fixedNow.Add(24*time.Hour))

	rec, err := svc.RecordRentalReturn(ctx, domain.RentalReturnRecordRequest{RentalID: rental.ID, AmountCents: 999999})
	if err != nil {
		t.Fatalf("record return: %v", err)
	}
	if rec.AmountCents != 5000 {
		t.Fatalf("expected refund of the 5000 deposit, got %d", rec.AmountCents)
	}
	stored, _ := svc.ListReturns(ctx)
	if len(stored) != 1 || stored[0].AmountCents != 5000 {
		t.Fatalf("expected stored refund 5000, got %+v", stored)
	}
}

func TestCreateRentalRequiresKnownCustomer(t *testing.T) {
	svc, ctx := newTestService(t)
	actor, _ := ActorFromContext(ctx)
	_, err := svc.CreateRental(ctx, domain.RentalCreateRequest{UserID: "nobody", EmployeeID: actor.ID, DueDate: fixedNow})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReports(t *testing.T) {
	svc, ctx := newTestService(t)
	sale := openSale(t, svc, ctx, map[int64]int{3: 32})
	if _, err := svc.FinalizeSale(ctx, sale.ID, domain.SaleFinalizeRequest{PaymentMethod: domain.PaymentCash}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	openSale(t, svc, ctx, map[int64]int{2: 1})
	finalizedRental(t, svc, ctx, fixedNow.Add(24*time.Hour))

	sales, err := svc.SalesReport(ctx)
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}
	if sales.TotalSales != 1 || sales.TotalRevenueCents != 51360 || sales.TotalTaxCents != 3360 {
		t.Fatalf("unexpected sales report %+v", sales)
	}
	rentals, _ := svc.RentalReport(ctx)
	if rentals.TotalRentals != 1 || rentals.ActiveRentals != 1 || rentals.TotalRevenueCents != 21400 {
		t.Fatalf("unexpected rental report %+v", rentals)
	}
	inv, _ := svc.InventoryReport(ctx)
	// 18 drills, 50 hammers, 3 screwdriver sets
	if inv.TotalItems != 3 || inv.LowStock != 1 || inv.TotalValueCents != 18*10000+50*2000+3*1500 {
		t.Fatalf("unexpected inventory report %+v", inv)
	}
}
