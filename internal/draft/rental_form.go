package draft

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storepos/internal/domain"
)

type RentalAPI interface {
	Create(ctx context.Context, req domain.RentalCreateRequest) (domain.Rental, error)
	AddItem(ctx context.Context, id string, req domain.AddItemRequest) (domain.Rental, error)
	Finalize(ctx context.Context, id string, req domain.RentalFinalizeRequest) (domain.Rental, error)
	Cancel(ctx context.Context, id string) (domain.Rental, error)
}

type RentalResult struct {
	Rental        domain.Rental
	TotalDueCents int64
}

// RentalForm builds one rental for a customer. It needs both the
// inventory and the customer list before it accepts lines.
type RentalForm struct {
	form
	api RentalAPI
}

func NewRentalForm(api RentalAPI, loader *Loader, identity Identity, pricing Pricing, logger *zap.Logger, opts ...FormOption) *RentalForm {
	r := &RentalForm{api: api}
	r.init(KindRental, loader, identity, pricing, logger, opts)
	return r
}

func (r *RentalForm) Open(ctx context.Context) error {
	return r.open(ctx, true)
}

func (r *RentalForm) Customers() []domain.Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Customer, len(r.customers))
	copy(out, r.customers)
	return out
}

func (r *RentalForm) SelectCustomer(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	for _, c := range r.customers {
		if c.ID == id {
			r.draft.SetCustomer(id)
			return nil
		}
	}
	return domain.NewValidationError("userId", "Select a customer")
}

func (r *RentalForm) SetDueDate(due time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	r.draft.SetDueDate(due)
	return nil
}

func (r *RentalForm) SetDeposit(cents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	return r.draft.SetDeposit(cents)
}

func (r *RentalForm) TotalDueCents() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft.TotalDueCents()
}

func (r *RentalForm) validate() error {
	if r.draft.CustomerID() == "" {
		return domain.NewValidationError("userId", "Select a customer")
	}
	due := r.draft.DueDate()
	if due.IsZero() {
		return domain.NewValidationError("dueDate", "Select a due date")
	}
	if due.Before(r.now()) {
		return domain.NewValidationError("dueDate", "Due date is in the past")
	}
	return nil
}

// Finalize creates the rental, adds every line and closes it with the
// draft total. Rejections leave the draft intact and cancel the
// half-built rental.
func (r *RentalForm) Finalize(ctx context.Context) (RentalResult, error) {
	r.mu.Lock()
	if err := r.mutable(); err != nil {
		r.mu.Unlock()
		return RentalResult{}, err
	}
	if err := r.validate(); err != nil {
		r.mu.Unlock()
		return RentalResult{}, err
	}
	user, gen, err := r.beginSubmit()
	if err != nil {
		r.mu.Unlock()
		return RentalResult{}, err
	}
	create := domain.RentalCreateRequest{
		UserID:       r.draft.CustomerID(),
		EmployeeID:   user.ID,
		DueDate:      r.draft.DueDate(),
		DepositCents: r.draft.DepositCents(),
	}
	lines := r.draft.Lines()
	total := r.draft.Totals().TotalCents
	r.mu.Unlock()

	rental, err := r.submit(ctx, create, lines, total)
	r.endSubmit(ctx, gen, err == nil)
	if err != nil {
		return RentalResult{}, err
	}
	r.logger.Info("rental finalized",
		zap.String("rental_id", rental.ID),
		zap.String("rental_number", rental.RentalNumber),
		zap.Int64("total_cents", rental.TotalCents),
	)
	return RentalResult{Rental: rental, TotalDueCents: rental.TotalCents + rental.DepositCents}, nil
}

func (r *RentalForm) submit(ctx context.Context, create domain.RentalCreateRequest, lines []Line, total int64) (domain.Rental, error) {
	rental, err := r.api.Create(ctx, create)
	if err != nil {
		return domain.Rental{}, err
	}
	for _, line := range lines {
		if _, err := r.api.AddItem(ctx, rental.ID, domain.AddItemRequest{ItemID: line.ItemID, Quantity: line.Quantity}); err != nil {
			r.abandon(ctx, KindRental, rental.ID, r.cancel)
			return domain.Rental{}, err
		}
	}
	final, err := r.api.Finalize(ctx, rental.ID, domain.RentalFinalizeRequest{TotalCents: total})
	if err != nil {
		r.abandon(ctx, KindRental, rental.ID, r.cancel)
		return domain.Rental{}, err
	}
	return final, nil
}

func (r *RentalForm) cancel(ctx context.Context, id string) error {
	_, err := r.api.Cancel(ctx, id)
	return err
}
