package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestBackendErrorMatchesKinds(t *testing.T) {
	unauthorized := &BackendError{Status: http.StatusUnauthorized, Message: "token expired"}
	if !errors.Is(unauthorized, ErrUnauthorized) || !errors.Is(unauthorized, ErrBackendRejected) {
		t.Fatalf("expected 401 to match unauthorized and rejected")
	}

	stock := fmt.Errorf("finalize sale: %w", &BackendError{Status: http.StatusConflict, Code: CodeOutOfStock, Message: "Hammer has 2 left"})
	if !errors.Is(stock, ErrOutOfStock) {
		t.Fatalf("expected wrapped OUT_OF_STOCK to match ErrOutOfStock")
	}
	if errors.Is(stock, ErrAlreadyReturned) {
		t.Fatalf("did not expect OUT_OF_STOCK to match ErrAlreadyReturned")
	}

	missing := &BackendError{Status: http.StatusNotFound}
	if !errors.Is(missing, ErrNotFound) {
		t.Fatalf("expected 404 to match ErrNotFound")
	}
}

func TestUserMessagePassesBackendTextThrough(t *testing.T) {
	err := fmt.Errorf("finalize: %w", &BackendError{Status: http.StatusBadRequest, Message: "Coupon WINTER is expired"})
	if got := UserMessage(err); got != "Coupon WINTER is expired" {
		t.Fatalf("expected backend message verbatim, got %q", got)
	}

	if got := UserMessage(NewValidationError("userId", "Select a customer")); got != "Select a customer" {
		t.Fatalf("expected validation message, got %q", got)
	}

	if got := UserMessage(fmt.Errorf("get /inventory: %w", ErrNetwork)); got == "" {
		t.Fatalf("expected a network message")
	}
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := RentalCreateRequest{EmployeeID: "e1"}.Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if UserMessage(err) != "Select a customer" {
		t.Fatalf("expected customer prompt first, got %q", UserMessage(err))
	}
}

func TestLineItemRejectsInconsistentTotal(t *testing.T) {
	line := LineItem{ItemID: 2, Quantity: 3, UnitPriceCents: 2000, LineTotalCents: 5000}
	if err := line.Validate(); err == nil {
		t.Fatal("expected inconsistent line total to be rejected")
	}
	line.LineTotalCents = 6000
	if err := line.Validate(); err != nil {
		t.Fatalf("expected consistent line to pass, got %v", err)
	}
}

func TestReturnRecordRequiresTarget(t *testing.T) {
	rec := ReturnRecord{ID: "r1", Type: ReturnRental}
	if err := rec.Validate(); err == nil {
		t.Fatal("expected rental return without rental id to fail")
	}
}
