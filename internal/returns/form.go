package returns

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"storepos/internal/domain"
	"storepos/internal/logging"
)

type RentalSource interface {
	Get(ctx context.Context, id string) (domain.Rental, error)
}

type SaleSource interface {
	Get(ctx context.Context, id string) (domain.Sale, error)
}

type API interface {
	LateFee(ctx context.Context, rentalID string, returnedAt *time.Time) (domain.LateFeeQuote, error)
	ReturnRental(ctx context.Context, req domain.RentalReturnRecordRequest) (domain.ReturnRecord, error)
	ReturnSale(ctx context.Context, req domain.SaleReturnRequest) (domain.ReturnRecord, error)
}

var errNoRental = domain.NewValidationError("rentalId", "Select a rental")

type Option func(*Form)

func WithClock(now func() time.Time) Option {
	return func(f *Form) { f.now = now }
}

// Form processes one return at a time. It remembers every rental and
// sale it has returned so a second submit fails locally.
type Form struct {
	mu       sync.Mutex
	rentals  RentalSource
	sales    SaleSource
	api      API
	policy   Policy
	logger   *zap.Logger
	now      func() time.Time
	selected *domain.Rental
	current  domain.LateFeeQuote

	// previewAt is the return time the operator entered, nil for now.
	previewAt *time.Time
	returned  map[string]bool
}

func NewForm(rentals RentalSource, sales SaleSource, api API, policy Policy, logger *zap.Logger, opts ...Option) *Form {
	f := &Form{
		rentals:  rentals,
		sales:    sales,
		api:      api,
		policy:   policy,
		logger:   logging.OrNop(logger),
		now:      time.Now,
		returned: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Select loads the rental and previews a return as of now.
func (f *Form) Select(ctx context.Context, rentalID string) (domain.LateFeeQuote, error) {
	if rentalID == "" {
		return domain.LateFeeQuote{}, errNoRental
	}
	f.mu.Lock()
	done := f.returned[rentalKey(rentalID)]
	f.mu.Unlock()
	if done {
		return domain.LateFeeQuote{}, alreadyReturned("rental", rentalID)
	}

	rental, err := f.rentals.Get(ctx, rentalID)
	if err != nil {
		return domain.LateFeeQuote{}, err
	}
	if rental.Returned() {
		return domain.LateFeeQuote{}, alreadyReturned("rental", rentalID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = &rental
	f.previewAt = nil
	f.current = Calculate(TermsOf(rental), f.now(), f.policy)
	return f.current, nil
}

// Preview replaces the current calculation. A nil returnedAt means now.
func (f *Form) Preview(returnedAt *time.Time) (domain.LateFeeQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selected == nil {
		return domain.LateFeeQuote{}, errNoRental
	}
	at := f.now()
	f.previewAt = nil
	if returnedAt != nil {
		at = *returnedAt
		f.previewAt = &at
	}
	f.current = Calculate(TermsOf(*f.selected), at, f.policy)
	return f.current, nil
}

// Quote asks the backend for the authoritative numbers and adopts them.
// Without an explicit preview time the backend quotes as of now.
func (f *Form) Quote(ctx context.Context) (domain.LateFeeQuote, error) {
	f.mu.Lock()
	if f.selected == nil {
		f.mu.Unlock()
		return domain.LateFeeQuote{}, errNoRental
	}
	id := f.selected.ID
	at := f.previewAt
	f.mu.Unlock()

	quote, err := f.api.LateFee(ctx, id, at)
	if err != nil {
		return domain.LateFeeQuote{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selected != nil && f.selected.ID == id {
		f.current = quote
	}
	return quote, nil
}

// Submit records the return of the selected rental using the backend's
// refund. The backend marks the rental returned.
func (f *Form) Submit(ctx context.Context, reason string) (domain.ReturnRecord, error) {
	f.mu.Lock()
	if f.selected == nil {
		f.mu.Unlock()
		return domain.ReturnRecord{}, errNoRental
	}
	id := f.selected.ID
	key := rentalKey(id)
	if f.returned[key] {
		f.mu.Unlock()
		return domain.ReturnRecord{}, alreadyReturned("rental", id)
	}
	// Claimed up front so a concurrent submit fails locally.
	f.returned[key] = true
	f.mu.Unlock()

	rec, err := f.submitRental(ctx, id, reason)
	if err != nil {
		f.mu.Lock()
		delete(f.returned, key)
		f.mu.Unlock()
		return domain.ReturnRecord{}, err
	}

	f.mu.Lock()
	f.selected = nil
	f.previewAt = nil
	f.current = domain.LateFeeQuote{}
	f.mu.Unlock()
	f.logger.Info("rental returned",
		zap.String("rental_id", id),
		zap.Int64("refund_cents", rec.AmountCents),
	)
	return rec, nil
}

func (f *Form) submitRental(ctx context.Context, id, reason string) (domain.ReturnRecord, error) {
	quote, err := f.Quote(ctx)
	if err != nil {
		return domain.ReturnRecord{}, err
	}
	return f.api.ReturnRental(ctx, domain.RentalReturnRecordRequest{
		RentalID:    id,
		AmountCents: quote.RefundCents,
		Reason:      reason,
	})
}

// SubmitSaleReturn refunds a finalized sale in full.
func (f *Form) SubmitSaleReturn(ctx context.Context, saleID, reason string) (domain.ReturnRecord, error) {
	if saleID == "" {
		return domain.ReturnRecord{}, domain.NewValidationError("saleId", "Select a sale")
	}
	key := saleKey(saleID)
	f.mu.Lock()
	if f.returned[key] {
		f.mu.Unlock()
		return domain.ReturnRecord{}, alreadyReturned("sale", saleID)
	}
	f.returned[key] = true
	f.mu.Unlock()

	rec, err := f.submitSale(ctx, saleID, reason)
	if err != nil {
		f.mu.Lock()
		delete(f.returned, key)
		f.mu.Unlock()
		return domain.ReturnRecord{}, err
	}
	f.logger.Info("sale returned",
		zap.String("sale_id", saleID),
		zap.Int64("refund_cents", rec.AmountCents),
	)
	return rec, nil
}

func (f *Form) submitSale(ctx context.Context, saleID, reason string) (domain.ReturnRecord, error) {
	sale, err := f.sales.Get(ctx, saleID)
	if err != nil {
		return domain.ReturnRecord{}, err
	}
	switch sale.Status {
	case domain.StatusReturned:
		return domain.ReturnRecord{}, alreadyReturned("sale", saleID)
	case domain.StatusFinalized:
	default:
		return domain.ReturnRecord{}, domain.NewValidationError("saleId", "Only finalized sales can be returned")
	}
	return f.api.ReturnSale(ctx, domain.SaleReturnRequest{
		SaleID:      saleID,
		AmountCents: sale.TotalCents,
		Reason:      reason,
	})
}

// Current is the latest calculation for the selected rental.
func (f *Form) Current() (domain.LateFeeQuote, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.selected != nil
}

func rentalKey(id string) string { return "rental:" + id }
func saleKey(id string) string   { return "sale:" + id }

func alreadyReturned(kind, id string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrAlreadyReturned, kind, id)
}
