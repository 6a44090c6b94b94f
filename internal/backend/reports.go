package backend

import (
	"context"

	"golang.org/x/sync/errgroup"

	"storepos/internal/domain"
	"storepos/internal/gateway"
)

type Reports struct {
	client *gateway.Client
}

func NewReports(client *gateway.Client) *Reports {
	return &Reports{client: client}
}

func (s *Reports) Sales(ctx context.Context) (domain.SalesReport, error) {
	return gateway.Get[domain.SalesReport](ctx, s.client, pathReportsSales, nil)
}

func (s *Reports) Rentals(ctx context.Context) (domain.RentalReport, error) {
	return gateway.Get[domain.RentalReport](ctx, s.client, pathReportsRentals, nil)
}

func (s *Reports) Inventory(ctx context.Context) (domain.InventoryReport, error) {
	return gateway.Get[domain.InventoryReport](ctx, s.client, pathReportsInventory, nil)
}

// Dashboard loads the three reports in parallel; the first failure wins.
func (s *Reports) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var out domain.Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.Sales(gctx)
		out.Sales = r
		return err
	})
	g.Go(func() error {
		r, err := s.Rentals(gctx)
		out.Rentals = r
		return err
	})
	g.Go(func() error {
		r, err := s.Inventory(gctx)
		out.Inventory = r
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Dashboard{}, err
	}
	return out, nil
}
