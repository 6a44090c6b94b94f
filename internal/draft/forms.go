package draft

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"storepos/internal/domain"
	"storepos/internal/logging"
)

// ErrClosed is returned when a form was closed while a call was running.
// The late result is discarded.
var ErrClosed = errors.New("form closed")

var (
	errNotReady   = domain.NewValidationError("", "Reference data still loading")
	errSubmitting = domain.NewValidationError("", "Finalize already in progress")
)

const abandonTimeout = 5 * time.Second

// Identity is the read side of the session a form needs.
type Identity interface {
	User() (domain.Identity, bool)
}

type FormOption func(*form)

func WithClock(now func() time.Time) FormOption {
	return func(f *form) { f.now = now }
}

// form holds what sale and rental forms share: the draft, the load
// lifecycle and the submit guard.
type form struct {
	mu         sync.Mutex
	loader     *Loader
	identity   Identity
	logger     *zap.Logger
	now        func() time.Time
	draft      *Draft
	customers  []domain.Customer
	ready      bool
	closed     bool
	submitting bool
	generation int
}

func (f *form) init(kind Kind, loader *Loader, identity Identity, pricing Pricing, logger *zap.Logger, opts []FormOption) {
	f.loader = loader
	f.identity = identity
	f.logger = logging.OrNop(logger)
	f.now = time.Now
	f.draft = New(kind, pricing, nil)
	for _, opt := range opts {
		opt(f)
	}
}

func (f *form) open(ctx context.Context, withCustomers bool) error {
	f.mu.Lock()
	f.generation++
	gen := f.generation
	f.ready = false
	f.closed = false
	f.mu.Unlock()

	ref, err := f.loader.Load(ctx, withCustomers)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || gen != f.generation {
		f.logger.Debug("discarding reference data for closed form")
		return ErrClosed
	}
	if err != nil {
		return err
	}
	f.draft.SetInventory(ref.Inventory)
	f.customers = ref.Customers
	f.ready = true
	return nil
}

// Close abandons the draft. Responses still in flight are discarded.
func (f *form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.ready = false
	f.generation++
	f.draft.Reset()
}

// mutable must be called with f.mu held.
func (f *form) mutable() error {
	switch {
	case f.closed:
		return ErrClosed
	case !f.ready:
		return errNotReady
	case f.submitting:
		return errSubmitting
	}
	return nil
}

func (f *form) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *form) AddLine(itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutable(); err != nil {
		return err
	}
	return f.draft.AddLine(itemID, quantity)
}

func (f *form) UpdateLineQuantity(itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutable(); err != nil {
		return err
	}
	return f.draft.UpdateLineQuantity(itemID, quantity)
}

func (f *form) RemoveLine(itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutable(); err != nil {
		return err
	}
	f.draft.RemoveLine(itemID)
	return nil
}

func (f *form) ApplyCoupon(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutable(); err != nil {
		return err
	}
	f.draft.ApplyCoupon(code)
	return nil
}

func (f *form) Lines() []Line {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Lines()
}

func (f *form) Totals() Totals {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Totals()
}

func (f *form) Coupon() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Coupon()
}

// beginSubmit checks the shared preconditions and marks the form busy.
// It must be called with f.mu held.
func (f *form) beginSubmit() (domain.Identity, int, error) {
	if err := f.mutable(); err != nil {
		return domain.Identity{}, 0, err
	}
	if f.draft.IsEmpty() {
		return domain.Identity{}, 0, domain.ErrEmptyTransaction
	}
	user, ok := f.identity.User()
	if !ok {
		return domain.Identity{}, 0, domain.NewValidationError("employeeId", "Not logged in")
	}
	f.submitting = true
	return user, f.generation, nil
}

func (f *form) endSubmit(ctx context.Context, gen int, ok bool) {
	f.mu.Lock()
	f.submitting = false
	if ok && gen == f.generation && !f.closed {
		f.draft.Reset()
	}
	f.mu.Unlock()
	if ok {
		f.loader.InvalidateInventory(ctx)
	}
}

func (f *form) abandon(ctx context.Context, kind Kind, id string, cancel func(context.Context, string) error) {
	ctx, stop := context.WithTimeout(context.WithoutCancel(ctx), abandonTimeout)
	defer stop()
	if err := cancel(ctx, id); err != nil {
		f.logger.Warn("cancel of abandoned transaction failed",
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}
