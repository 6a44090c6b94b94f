package backend

import (
	"context"

	"storepos/internal/domain"
	"storepos/internal/gateway"
)

type Sales struct {
	client *gateway.Client
}

func NewSales(client *gateway.Client) *Sales {
	return &Sales{client: client}
}

func (s *Sales) List(ctx context.Context) ([]domain.Sale, error) {
	return gateway.Get[[]domain.Sale](ctx, s.client, pathSales, nil)
}

func (s *Sales) Get(ctx context.Context, id string) (domain.Sale, error) {
	return gateway.Get[domain.Sale](ctx, s.client, byID(pathSales, id), nil)
}

func (s *Sales) Create(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	return gateway.Post[domain.Sale](ctx, s.client, pathSales, req)
}

func (s *Sales) AddItem(ctx context.Context, id string, req domain.AddItemRequest) (domain.Sale, error) {
	return gateway.Patch[domain.Sale](ctx, s.client, action(pathSales, id, "add-item"), req)
}

func (s *Sales) Finalize(ctx context.Context, id string, req domain.SaleFinalizeRequest) (domain.Sale, error) {
	return gateway.Patch[domain.Sale](ctx, s.client, action(pathSales, id, "finalize"), req)
}

func (s *Sales) Cancel(ctx context.Context, id string) (domain.Sale, error) {
	return gateway.Patch[domain.Sale](ctx, s.client, action(pathSales, id, "cancel"), nil)
}
