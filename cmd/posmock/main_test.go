package main

import (
	"context"
	"testing"

	"storepos/internal/config"
	"storepos/internal/logging"
	"storepos/internal/store/memory"
)

func TestValidateSecurityConfigRejectsShortSecret(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short"})
	if err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsLongSecret(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("expected long secret to pass, got %v", err)
	}
}

func TestOpenRepositoryDefaultsToSeededMemory(t *testing.T) {
	ctx := context.Background()
	repo, closers, err := openRepository(ctx, config.Config{}, logging.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(closers) != 0 {
		t.Fatalf("expected no closers for memory, got %d", len(closers))
	}
	if _, err := repo.GetEmployeeByUsername(ctx, "admin"); err != nil {
		t.Fatalf("expected seeded admin, got %v", err)
	}
}

func TestSeedIfEmptyCopiesDemoData(t *testing.T) {
	ctx := context.Background()
	dst := memory.New()
	if err := seedIfEmpty(ctx, dst, logging.NewNop()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	items, _ := dst.ListItems(ctx)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	account, err := dst.GetEmployeeByUsername(ctx, "cashier")
	if err != nil || account.PasswordHash == "" {
		t.Fatalf("expected cashier with password hash, got %+v, %v", account, err)
	}

	// Second run is a no-op.
	if err := seedIfEmpty(ctx, dst, logging.NewNop()); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	employees, _ := dst.ListEmployees(ctx)
	if len(employees) != 2 {
		t.Fatalf("expected 2 employees after reseed, got %d", len(employees))
	}
}
