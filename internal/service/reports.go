package service

import (
	"context"

	"storepos/internal/domain"
)

// LowStockThreshold is the quantity below which an item counts as low.
const LowStockThreshold = 5

// SalesReport covers finalized sales, including ones later returned.
func (s *Service) SalesReport(ctx context.Context) (domain.SalesReport, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.SalesReport{}, err
	}
	var out domain.SalesReport
	for _, sale := range sales {
		if sale.Status != domain.StatusFinalized && sale.Status != domain.StatusReturned {
			continue
		}
		out.TotalSales++
		out.TotalRevenueCents += sale.TotalCents
		out.TotalTaxCents += sale.TaxCents
	}
	return out, nil
}

func (s *Service) RentalReport(ctx context.Context) (domain.RentalReport, error) {
	rentals, err := s.repo.ListRentals(ctx)
	if err != nil {
		return domain.RentalReport{}, err
	}
	var out domain.RentalReport
	for _, r := range rentals {
		if r.Status != domain.StatusFinalized && r.Status != domain.StatusReturned {
			continue
		}
		out.TotalRentals++
		out.TotalRevenueCents += r.TotalCents
		if !r.Returned() {
			out.ActiveRentals++
		}
	}
	return out, nil
}

func (s *Service) InventoryReport(ctx context.Context) (domain.InventoryReport, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return domain.InventoryReport{}, err
	}
	out := domain.InventoryReport{TotalItems: len(items)}
	for _, item := range items {
		if item.Quantity < LowStockThreshold {
			out.LowStock++
		}
		out.TotalValueCents += item.PriceCents * int64(item.Quantity)
	}
	return out, nil
}
