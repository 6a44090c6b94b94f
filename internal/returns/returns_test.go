package returns

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"storepos/internal/domain"
)

var due = time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)

func TestOnTimeReturnRefundsDeposit(t *testing.T) {
	terms := Terms{RentalID: "r1", DueDate: due, DepositCents: 5000}
	for _, at := range []time.Time{due.Add(-48 * time.Hour), due} {
		q := Calculate(terms, at, Policy{LateFeePerDayCents: 1000})
		if q.IsLate || q.DaysLate != 0 || q.LateFeeCents != 0 || q.RefundCents != 5000 {
			t.Fatalf("expected no fee at %s, got %+v", at, q)
		}
	}
}

func TestThreeDaysLate(t *testing.T) {
	q := Calculate(Terms{RentalID: "r1", DueDate: due, DepositCents: 100}, due.Add(72*time.Hour), Policy{LateFeePerDayCents: 10})
	if !q.IsLate || q.DaysLate != 3 || q.LateFeeCents != 30 || q.RefundCents != 70 {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestPartialDayCountsAsFullDay(t *testing.T) {
	q := Calculate(Terms{DueDate: due}, due.Add(time.Second), Policy{LateFeePerDayCents: 10})
	if q.DaysLate != 1 || q.LateFeeCents != 10 {
		t.Fatalf("expected one day late, got %+v", q)
	}
	q = Calculate(Terms{DueDate: due}, due.Add(49*time.Hour), Policy{LateFeePerDayCents: 10})
	if q.DaysLate != 3 {
		t.Fatalf("expected three days late, got %d", q.DaysLate)
	}
}

func TestRefundIsNotClamped(t *testing.T) {
	q := Calculate(Terms{DueDate: due, DepositCents: 2000}, due.Add(5*24*time.Hour), Policy{LateFeePerDayCents: 1000})
	if q.RefundCents != -3000 {
		t.Fatalf("expected refund -3000, got %d", q.RefundCents)
	}
	if q.BalanceDueCents() != 3000 {
		t.Fatalf("expected balance due 3000, got %d", q.BalanceDueCents())
	}
}

type fakeRentals map[string]domain.Rental

func (f fakeRentals) Get(_ context.Context, id string) (domain.Rental, error) {
	r, ok := f[id]
	if !ok {
		return domain.Rental{}, &domain.BackendError{Status: http.StatusNotFound, Message: "rental not found"}
	}
	return r, nil
}

type fakeSales map[string]domain.Sale

func (f fakeSales) Get(_ context.Context, id string) (domain.Sale, error) {
	s, ok := f[id]
	if !ok {
		return domain.Sale{}, &domain.BackendError{Status: http.StatusNotFound, Message: "sale not found"}
	}
	return s, nil
}

type fakeAPI struct {
	mu           sync.Mutex
	perDay       int64
	rentals      fakeRentals
	now          time.Time
	quotes       []time.Time
	quotesAtNow  int
	rentalPosts  []domain.RentalReturnRecordRequest
	salePosts    []domain.SaleReturnRequest
	returnErr    error
	releaseQuote chan struct{}
}

func (f *fakeAPI) LateFee(_ context.Context, id string, at *time.Time) (domain.LateFeeQuote, error) {
	if f.releaseQuote != nil {
		<-f.releaseQuote
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	when := f.now
	if at == nil {
		f.quotesAtNow++
	} else {
		when = *at
		f.quotes = append(f.quotes, when)
	}
	return Calculate(TermsOf(f.rentals[id]), when, Policy{LateFeePerDayCents: f.perDay}), nil
}

func (f *fakeAPI) ReturnRental(_ context.Context, req domain.RentalReturnRecordRequest) (domain.ReturnRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.returnErr != nil {
		return domain.ReturnRecord{}, f.returnErr
	}
	f.rentalPosts = append(f.rentalPosts, req)
	return domain.ReturnRecord{ID: "ret-1", Type: domain.ReturnRental, RentalID: req.RentalID, AmountCents: req.AmountCents}, nil
}

func (f *fakeAPI) ReturnSale(_ context.Context, req domain.SaleReturnRequest) (domain.ReturnRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.salePosts = append(f.salePosts, req)
	return domain.ReturnRecord{ID: "ret-2", Type: domain.ReturnSale, SaleID: req.SaleID, AmountCents: req.AmountCents}, nil
}

func newTestForm(now time.Time) (*Form, *fakeAPI) {
	rentals := fakeRentals{
		"r1":   {ID: "r1", RentalNumber: "R-10001", DueDate: due, DepositCents: 5000, Status: domain.StatusFinalized},
		"done": {ID: "done", DueDate: due, Status: domain.StatusReturned},
	}
	sales := fakeSales{
		"s1": {ID: "s1", Status: domain.StatusFinalized, TotalCents: 13580},
		"s2": {ID: "s2", Status: domain.StatusOpen},
	}
	api := &fakeAPI{perDay: 1000, rentals: rentals, now: now}
	form := NewForm(rentals, sales, api, Policy{LateFeePerDayCents: 1000}, nil, WithClock(func() time.Time { return now }))
	return form, api
}

func TestSelectRejectsMissingAndReturnedRentals(t *testing.T) {
	form, _ := newTestForm(due)
	if _, err := form.Select(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := form.Select(context.Background(), "done"); !errors.Is(err, domain.ErrAlreadyReturned) {
		t.Fatalf("expected ErrAlreadyReturned, got %v", err)
	}
	if _, err := form.Preview(nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected preview without selection to fail, got %v", err)
	}
}

func TestPreviewReplacesCalculation(t *testing.T) {
	form, _ := newTestForm(due.Add(-time.Hour))
	q, err := form.Select(context.Background(), "r1")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if q.IsLate {
		t.Fatalf("expected on time, got %+v", q)
	}

	later := due.Add(2 * 24 * time.Hour)
	q, _ = form.Preview(&later)
	if q.DaysLate != 2 || q.RefundCents != 3000 {
		t.Fatalf("unexpected preview %+v", q)
	}
	current, ok := form.Current()
	if !ok || current != q {
		t.Fatalf("expected current to be the latest preview, got %+v", current)
	}
}

func TestSubmitUsesServerRefundAndBlocksResubmit(t *testing.T) {
	form, api := newTestForm(due)
	if _, err := form.Select(context.Background(), "r1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	at := due.Add(3 * 24 * time.Hour)
	_, _ = form.Preview(&at)

	rec, err := form.Submit(context.Background(), "damaged case")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.AmountCents != 2000 {
		t.Fatalf("expected refund 2000, got %d", rec.AmountCents)
	}
	if len(api.quotes) != 1 || !api.quotes[0].Equal(at) {
		t.Fatalf("expected quote at previewed time, got %v", api.quotes)
	}

	if _, err := form.Submit(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected no selection after success, got %v", err)
	}
	if _, err := form.Select(context.Background(), "r1"); !errors.Is(err, domain.ErrAlreadyReturned) {
		t.Fatalf("expected ErrAlreadyReturned, got %v", err)
	}
	if len(api.rentalPosts) != 1 {
		t.Fatalf("expected one return posted, got %d", len(api.rentalPosts))
	}
}

func TestSubmitWithoutPreviewQuotesAtSubmitTime(t *testing.T) {
	form, api := newTestForm(due.Add(-time.Hour))
	q, err := form.Select(context.Background(), "r1")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if q.IsLate {
		t.Fatalf("expected on time at select, got %+v", q)
	}

	// The counter closes after midnight, two days past due.
	api.now = due.Add(2 * 24 * time.Hour)
	rec, err := form.Submit(context.Background(), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if api.quotesAtNow != 1 || len(api.quotes) != 0 {
		t.Fatalf("expected one quote as of now, got %d now and %v explicit", api.quotesAtNow, api.quotes)
	}
	if rec.AmountCents != 3000 {
		t.Fatalf("expected refund 3000 after two late days, got %d", rec.AmountCents)
	}
}

func TestConcurrentSubmitPostsOnce(t *testing.T) {
	form, api := newTestForm(due)
	api.releaseQuote = make(chan struct{})
	if _, err := form.Select(context.Background(), "r1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := form.Submit(context.Background(), "")
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(api.releaseQuote)

	var ok, dup int
	for i := 0; i < 2; i++ {
		err := <-errs
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyReturned):
			dup++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || dup != 1 || len(api.rentalPosts) != 1 {
		t.Fatalf("expected one success and one duplicate, got ok=%d dup=%d posts=%d", ok, dup, len(api.rentalPosts))
	}
}

func TestFailedSubmitCanBeRetried(t *testing.T) {
	form, api := newTestForm(due)
	api.returnErr = domain.ErrNetwork
	_, _ = form.Select(context.Background(), "r1")

	if _, err := form.Submit(context.Background(), ""); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	api.returnErr = nil
	if _, err := form.Submit(context.Background(), ""); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestSaleReturn(t *testing.T) {
	form, api := newTestForm(due)
	rec, err := form.SubmitSaleReturn(context.Background(), "s1", "wrong size")
	if err != nil {
		t.Fatalf("sale return: %v", err)
	}
	if rec.AmountCents != 13580 || api.salePosts[0].Reason != "wrong size" {
		t.Fatalf("unexpected return %+v", api.salePosts[0])
	}
	if _, err := form.SubmitSaleReturn(context.Background(), "s1", ""); !errors.Is(err, domain.ErrAlreadyReturned) {
		t.Fatalf("expected ErrAlreadyReturned, got %v", err)
	}
	if _, err := form.SubmitSaleReturn(context.Background(), "s2", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected open sale rejected, got %v", err)
	}
	if len(api.salePosts) != 1 {
		t.Fatalf("expected a single post, got %d", len(api.salePosts))
	}
}
