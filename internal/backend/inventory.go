package backend

import (
	"context"
	"net/http"

	"storepos/internal/domain"
	"storepos/internal/gateway"
)

type Inventory struct {
	client *gateway.Client
}

func NewInventory(client *gateway.Client) *Inventory {
	return &Inventory{client: client}
}

func (s *Inventory) List(ctx context.Context) ([]domain.Item, error) {
	return gateway.Get[[]domain.Item](ctx, s.client, pathInventory, nil)
}

func (s *Inventory) Get(ctx context.Context, id int64) (domain.Item, error) {
	return gateway.Get[domain.Item](ctx, s.client, itemByID(id), nil)
}

func (s *Inventory) Create(ctx context.Context, req domain.ItemCreateRequest) (domain.Item, error) {
	return gateway.Post[domain.Item](ctx, s.client, pathInventory, req)
}

func (s *Inventory) Update(ctx context.Context, id int64, req domain.ItemUpdateRequest) (domain.Item, error) {
	return gateway.Patch[domain.Item](ctx, s.client, itemByID(id), req)
}

func (s *Inventory) Delete(ctx context.Context, id int64) error {
	return s.client.Do(ctx, http.MethodDelete, itemByID(id), nil, nil, nil)
}
