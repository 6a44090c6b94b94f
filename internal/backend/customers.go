package backend

import (
	"context"
	"net/http"

	"storepos/internal/domain"
	"storepos/internal/gateway"
)

// Customers talks to the backend's /users resource.
type Customers struct {
	client *gateway.Client
}

func NewCustomers(client *gateway.Client) *Customers {
	return &Customers{client: client}
}

func (s *Customers) List(ctx context.Context) ([]domain.Customer, error) {
	return gateway.Get[[]domain.Customer](ctx, s.client, pathUsers, nil)
}

func (s *Customers) Get(ctx context.Context, id string) (domain.Customer, error) {
	return gateway.Get[domain.Customer](ctx, s.client, byID(pathUsers, id), nil)
}

func (s *Customers) Create(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	return gateway.Post[domain.Customer](ctx, s.client, pathUsers, req)
}

func (s *Customers) Update(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	return gateway.Patch[domain.Customer](ctx, s.client, byID(pathUsers, id), req)
}

func (s *Customers) Delete(ctx context.Context, id string) error {
	return s.client.Do(ctx, http.MethodDelete, byID(pathUsers, id), nil, nil, nil)
}
