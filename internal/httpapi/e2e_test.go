package httpapi_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storepos/internal/backend"
	"storepos/internal/domain"
	"storepos/internal/draft"
	"storepos/internal/gateway"
	"storepos/internal/httpapi"
	"storepos/internal/returns"
	"storepos/internal/service"
	"storepos/internal/session"
	"storepos/internal/store/memory"
)

type terminal struct {
	session   *session.Store
	api       *backend.Services
	loader    *draft.Loader
	redirects atomic.Int32
}

// newTerminal starts the sandbox backend and a client wired to it the
// way cmd/posctl wires them.
func newTerminal(t *testing.T) *terminal {
	t.Helper()
	repo, err := memory.NewSeeded(nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := service.New(repo, service.Options{TaxRate: 0.07, LateFeePerDayCents: 1000})
	server := httpapi.New(svc, httpapi.NewAuthManager("e2e-secret-e2e-secret-e2e-secret", time.Hour, svc), httpapi.Options{})
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	term := &terminal{session: session.NewStore(session.NewMemoryStorage(), nil)}
	term.session.LoadFromStorage(context.Background())
	client, err := gateway.New(gateway.Options{
		BaseURL:   srv.URL,
		Session:   term.session,
		Navigator: gateway.NavigatorFunc(func() { term.redirects.Add(1) }),
	})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	term.api = backend.New(client, term.session, nil)
	term.loader = draft.NewLoader(term.api.Inventory, term.api.Customers, nil, time.Minute, nil)
	return term
}

func (term *terminal) login(t *testing.T, username, password string) {
	t.Helper()
	if _, err := term.api.Auth.Login(context.Background(), username, password); err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
}

func TestTerminalSellsWithCoupon(t *testing.T) {
	term := newTerminal(t)
	term.login(t, "cashier", "cashier123")
	ctx := context.Background()

	form := draft.NewSaleForm(term.api.Sales, term.loader, term.session, draft.DefaultPricing(), nil)
	if err := form.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := form.Finalize(ctx, domain.PaymentCash, ""); !errors.Is(err, domain.ErrEmptyTransaction) {
		t.Fatalf("expected empty transaction, got %v", err)
	}
	sales, _ := term.api.Sales.List(ctx)
	if len(sales) != 0 {
		t.Fatalf("expected no sale created by empty finalize, got %d", len(sales))
	}

	if err := form.AddLine(1, 1); err != nil {
		t.Fatalf("add drill: %v", err)
	}
	if err := form.AddLine(2, 2); err != nil {
		t.Fatalf("add hammers: %v", err)
	}
	if err := form.ApplyCoupon("summer10"); err != nil {
		t.Fatalf("coupon: %v", err)
	}
	preview := form.Totals()

	sale, err := form.Finalize(ctx, domain.PaymentMethod("BARTER"), "")
	if err == nil || sale.ID != "" {
		t.Fatalf("expected unknown payment method to be refused, got %+v", sale)
	}

	sale, err = form.Finalize(ctx, domain.PaymentCredit, form.Coupon())
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if sale.Status != domain.StatusFinalized || sale.TotalCents != preview.TotalCents {
		t.Fatalf("expected server total %d to match preview, got %+v", preview.TotalCents, sale)
	}
	if len(form.Lines()) != 0 {
		t.Fatal("expected the form to reset after finalize")
	}

	if err := form.Open(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	for _, item := range form.Inventory() {
		if item.ID == 1 && item.Quantity != 19 {
			t.Fatalf("expected fresh stock after finalize, got %d drills", item.Quantity)
		}
	}
}

func TestTerminalRentsAndReturnsOnce(t *testing.T) {
	term := newTerminal(t)
	term.login(t, "admin", "admin123")
	ctx := context.Background()

	rentForm := draft.NewRentalForm(term.api.Rentals, term.loader, term.session, draft.DefaultPricing(), nil)
	if err := rentForm.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := rentForm.SelectCustomer("u1"); err != nil {
		t.Fatalf("customer: %v", err)
	}
	if err := rentForm.SetDueDate(time.Now().Add(48 * time.Hour)); err != nil {
		t.Fatalf("due date: %v", err)
	}
	if err := rentForm.SetDeposit(5000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := rentForm.AddLine(1, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	result, err := rentForm.Finalize(ctx)
	if err != nil {
		t.Fatalf("finalize rental: %v", err)
	}
	if result.Rental.TotalCents != 21400 || result.TotalDueCents != 26400 {
		t.Fatalf("unexpected rental result %+v", result)
	}

	returnForm := returns.NewForm(term.api.Rentals, term.api.Sales, term.api.Returns, returns.Policy{LateFeePerDayCents: 1000}, nil)
	quote, err := returnForm.Select(ctx, result.Rental.ID)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if quote.IsLate || quote.RefundCents != 5000 {
		t.Fatalf("expected on-time full refund, got %+v", quote)
	}
	rec, err := returnForm.Submit(ctx, "done")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.AmountCents != 5000 {
		t.Fatalf("expected refund 5000, got %d", rec.AmountCents)
	}

	if _, err := returnForm.Select(ctx, result.Rental.ID); !errors.Is(err, domain.ErrAlreadyReturned) {
		t.Fatalf("expected already returned, got %v", err)
	}
	_, err = term.api.Returns.ReturnRental(ctx, domain.RentalReturnRecordRequest{RentalID: result.Rental.ID})
	if !errors.Is(err, domain.ErrAlreadyReturned) {
		t.Fatalf("expected backend to refuse a second return, got %v", err)
	}
}

func TestRejectedTokenLogsOutOnce(t *testing.T) {
	term := newTerminal(t)
	ctx := context.Background()

	// Signed with another secret, so the server rejects it.
	other := httpapi.NewAuthManager("some-other-secret-some-other-secret", time.Hour, fixedAccount{})
	resp, err := other.Login(ctx, domain.LoginRequest{Username: "admin", Password: "x"})
	if err != nil {
		t.Fatalf("foreign login: %v", err)
	}
	if err := term.session.SetAuth(ctx, resp.AccessToken, resp.Employee); err != nil {
		t.Fatalf("set auth: %v", err)
	}

	var wg sync.WaitGroup
	var unauthorized atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := term.api.Inventory.List(ctx); errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrAuthExpired) {
				unauthorized.Add(1)
			}
		}()
	}
	wg.Wait()

	if unauthorized.Load() != 8 {
		t.Fatalf("expected every call to fail auth, got %d", unauthorized.Load())
	}
	if got := term.redirects.Load(); got != 1 {
		t.Fatalf("expected exactly one redirect, got %d", got)
	}
	if term.session.IsAuthenticated() {
		t.Fatal("expected session cleared")
	}
}

type fixedAccount struct{}

func (fixedAccount) Authenticate(context.Context, string, string) (domain.Identity, error) {
	return domain.Identity{ID: "emp-x", Username: "admin", Position: domain.PositionAdmin}, nil
}
