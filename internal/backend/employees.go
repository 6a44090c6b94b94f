package backend

import (
	"context"
	"net/http"

	"storepos/internal/domain"
	"storepos/internal/gateway"
)

type Employees struct {
	client *gateway.Client
}

func NewEmployees(client *gateway.Client) *Employees {
	return &Employees{client: client}
}

func (s *Employees) List(ctx context.Context) ([]domain.Employee, error) {
	return gateway.Get[[]domain.Employee](ctx, s.client, pathEmployees, nil)
}

func (s *Employees) Get(ctx context.Context, id string) (domain.Employee, error) {
	return gateway.Get[domain.Employee](ctx, s.client, byID(pathEmployees, id), nil)
}

func (s *Employees) Create(ctx context.Context, req domain.EmployeeCreateRequest) (domain.Employee, error) {
	return gateway.Post[domain.Employee](ctx, s.client, pathEmployees, req)
}

func (s *Employees) Update(ctx context.Context, id string, req domain.EmployeeUpdateRequest) (domain.Employee, error) {
	return gateway.Patch[domain.Employee](ctx, s.client, byID(pathEmployees, id), req)
}

func (s *Employees) ToggleStatus(ctx context.Context, id string) (domain.Employee, error) {
	return gateway.Patch[domain.Employee](ctx, s.client, action(pathEmployees, id, "toggle-status"), nil)
}

func (s *Employees) Delete(ctx context.Context, id string) error {
	return s.client.Do(ctx, http.MethodDelete, byID(pathEmployees, id), nil, nil, nil)
}
