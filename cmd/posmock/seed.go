package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storepos/internal/store"
	"storepos/internal/store/memory"
)

// seedIfEmpty copies the demo data into a repository that has no
// employees yet, so a fresh database can be logged into.
func seedIfEmpty(ctx context.Context, dst store.Repository, logger *zap.Logger) error {
	existing, err := dst.ListEmployees(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	src, err := memory.NewSeeded(logger)
	if err != nil {
		return err
	}

	items, _ := src.ListItems(ctx)
	for _, item := range items {
		if _, err := dst.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("item %d: %w", item.ID, err)
		}
	}
	customers, _ := src.ListCustomers(ctx)
	for _, c := range customers {
		if _, err := dst.CreateCustomer(ctx, c); err != nil {
			return fmt.Errorf("customer %s: %w", c.ID, err)
		}
	}
	coupons, _ := src.ListCoupons(ctx)
	for _, c := range coupons {
		if _, err := dst.CreateCoupon(ctx, c); err != nil {
			return fmt.Errorf("coupon %s: %w", c.Code, err)
		}
	}
	employees, _ := src.ListEmployees(ctx)
	for _, e := range employees {
		account, err := src.GetEmployee(ctx, e.ID)
		if err != nil {
			return err
		}
		if _, err := dst.CreateEmployee(ctx, *account); err != nil {
			return fmt.Errorf("employee %s: %w", e.Username, err)
		}
	}
	logger.Info("seeded empty repository",
		zap.Int("items", len(items)),
		zap.Int("customers", len(customers)),
		zap.Int("employees", len(employees)),
	)
	return nil
}
