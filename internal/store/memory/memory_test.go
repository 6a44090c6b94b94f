package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"storepos/internal/domain"
	"storepos/internal/store"
)

func TestSeededStoreMatchesDemoData(t *testing.T) {
	s, err := NewSeeded(nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	items, _ := s.ListItems(context.Background())
	if len(items) != 3 || items[0].Name != "Drill Machine" || items[0].Quantity != 20 {
		t.Fatalf("unexpected items %+v", items)
	}
	customers, _ := s.ListCustomers(context.Background())
	if len(customers) != 2 {
		t.Fatalf("expected two customers, got %d", len(customers))
	}
	admin, err := s.GetEmployeeByUsername(context.Background(), "ADMIN")
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")) != nil {
		t.Fatal("expected bcrypt hash of the default password")
	}
}

func TestFinalizeSaleIsAllOrNothing(t *testing.T) {
	s, _ := NewSeeded(nil)
	ctx := context.Background()
	sale := domain.Sale{
		ID:     "s1",
		Status: domain.StatusFinalized,
		Items: []domain.LineItem{
			{ItemID: 2, Quantity: 5},
			{ItemID: 1, Quantity: 21},
		},
	}
	_, err := s.FinalizeSale(ctx, sale)
	var stockErr *store.StockError
	if !errors.As(err, &stockErr) || stockErr.Name != "Drill Machine" || stockErr.Available != 20 {
		t.Fatalf("expected drill stock error, got %v", err)
	}
	hammer, _ := s.GetItem(ctx, 2)
	if hammer.Quantity != 50 {
		t.Fatalf("expected hammer stock untouched, got %d", hammer.Quantity)
	}
	if _, err := s.GetSale(ctx, "s1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("expected rejected sale not stored")
	}
}

func TestSaleReturnRestocksOnce(t *testing.T) {
	s, _ := NewSeeded(nil)
	ctx := context.Background()
	sale := domain.Sale{ID: "s1", Status: domain.StatusFinalized, Items: []domain.LineItem{{ItemID: 2, Quantity: 4}}}
	if _, err := s.FinalizeSale(ctx, sale); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	rec := domain.ReturnRecord{ID: "r1", Type: domain.ReturnSale, SaleID: "s1", AmountCents: 8000}
	if _, err := s.RecordReturn(ctx, rec); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := s.RecordReturn(ctx, rec); !errors.Is(err, store.ErrAlreadyReturned) {
		t.Fatalf("expected ErrAlreadyReturned, got %v", err)
	}
	hammer, _ := s.GetItem(ctx, 2)
	if hammer.Quantity != 50 {
		t.Fatalf("expected hammer restocked once, got %d", hammer.Quantity)
	}
}

func TestRentalReturnPathsShareState(t *testing.T) {
	s, _ := NewSeeded(nil)
	ctx := context.Background()
	rental := domain.Rental{ID: "r1", Status: domain.StatusFinalized, DueDate: time.Now(), Items: []domain.LineItem{{ItemID: 1, Quantity: 2}}}
	if _, err := s.FinalizeRental(ctx, rental); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := s.MarkRentalReturned(ctx, "r1", time.Now()); err != nil {
		t.Fatalf("mark returned: %v", err)
	}
	if _, err := s.MarkRentalReturned(ctx, "r1", time.Now()); !errors.Is(err, store.ErrAlreadyReturned) {
		t.Fatalf("expected ErrAlreadyReturned, got %v", err)
	}

	rec := domain.ReturnRecord{ID: "x", Type: domain.ReturnRental, RentalID: "r1", AmountCents: 100, CreatedAt: time.Now()}
	if _, err := s.RecordReturn(ctx, rec); err != nil {
		t.Fatalf("record after physical return: %v", err)
	}
	drill, _ := s.GetItem(ctx, 1)
	if drill.Quantity != 20 {
		t.Fatalf("expected drill restocked exactly once, got %d", drill.Quantity)
	}
	if _, err := s.RecordReturn(ctx, rec); !errors.Is(err, store.ErrAlreadyReturned) {
		t.Fatalf("expected second record rejected, got %v", err)
	}
}
