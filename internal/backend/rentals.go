package backend

import (
	"context"

	"storepos/internal/domain"
	"storepos/internal/gateway"
)

type Rentals struct {
	client *gateway.Client
}

func NewRentals(client *gateway.Client) *Rentals {
	return &Rentals{client: client}
}

func (s *Rentals) List(ctx context.Context) ([]domain.Rental, error) {
	return gateway.Get[[]domain.Rental](ctx, s.client, pathRentals, nil)
}

func (s *Rentals) Get(ctx context.Context, id string) (domain.Rental, error) {
	return gateway.Get[domain.Rental](ctx, s.client, byID(pathRentals, id), nil)
}

func (s *Rentals) Create(ctx context.Context, req domain.RentalCreateRequest) (domain.Rental, error) {
	return gateway.Post[domain.Rental](ctx, s.client, pathRentals, req)
}

func (s *Rentals) AddItem(ctx context.Context, id string, req domain.AddItemRequest) (domain.Rental, error) {
	return gateway.Patch[domain.Rental](ctx, s.client, action(pathRentals, id, "add-item"), req)
}

func (s *Rentals) RemoveItem(ctx context.Context, id string, itemID int64) (domain.Rental, error) {
	return gateway.Delete[domain.Rental](ctx, s.client, rentalItem(id, itemID))
}

func (s *Rentals) Finalize(ctx context.Context, id string, req domain.RentalFinalizeRequest) (domain.Rental, error) {
	return gateway.Patch[domain.Rental](ctx, s.client, action(pathRentals, id, "finalize"), req)
}

// Return marks the rental as physically returned. Refund records are
// posted separately through Returns.ReturnRental.
func (s *Rentals) Return(ctx context.Context, id string, req domain.RentalReturnRequest) (domain.Rental, error) {
	return gateway.Patch[domain.Rental](ctx, s.client, action(pathRentals, id, "return"), req)
}

func (s *Rentals) Cancel(ctx context.Context, id string) (domain.Rental, error) {
	return gateway.Patch[domain.Rental](ctx, s.client, action(pathRentals, id, "cancel"), nil)
}
