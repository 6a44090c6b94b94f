package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storepos/internal/domain"
	"storepos/internal/draft"
	"storepos/internal/returns"
	"storepos/internal/store"
	"storepos/internal/xid"
)

func notOpen(kind string, status domain.TransactionStatus) error {
	return fmt.Errorf("%w: %s is %s", store.ErrInvalidTransaction, kind, status)
}

// addLine merges quantity into an existing line for the same item. The
// unit price is captured from the catalogue when the line is first added.
func addLine(lines []domain.LineItem, item domain.Item, quantity int) []domain.LineItem {
	for i := range lines {
		if lines[i].ItemID == item.ID {
			lines[i].Quantity += quantity
			lines[i].LineTotalCents = lines[i].UnitPriceCents * int64(lines[i].Quantity)
			return lines
		}
	}
	return append(lines, domain.LineItem{
		ID:             xid.New("line"),
		ItemID:         item.ID,
		Quantity:       quantity,
		UnitPriceCents: item.PriceCents,
		LineTotalCents: item.PriceCents * int64(quantity),
	})
}

func subtotal(lines []domain.LineItem) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.LineTotalCents
	}
	return sum
}

func (s *Service) lineItem(ctx context.Context, req domain.AddItemRequest) (domain.Item, error) {
	if err := req.Validate(); err != nil {
		return domain.Item{}, err
	}
	item, err := s.repo.GetItem(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Item{}, domain.NewValidationError("itemId", fmt.Sprintf("item %d does not exist", req.ItemID))
		}
		return domain.Item{}, err
	}
	return *item, nil
}

// totals applies the tax rate, and the coupon's own percentage when the
// coupon is active.
func (s *Service) totals(ctx context.Context, subtotalCents int64, couponCode string) (draft.Totals, string, error) {
	if couponCode == "" {
		return draft.NewPricing(s.taxRate, 0).Compute(subtotalCents, false), "", nil
	}
	coupon, err := s.repo.GetCouponByCode(ctx, couponCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return draft.Totals{}, "", domain.NewValidationError("couponCode", fmt.Sprintf("coupon %s is not valid", couponCode))
		}
		return draft.Totals{}, "", err
	}
	if !coupon.IsActive {
		return draft.Totals{}, "", domain.NewValidationError("couponCode", fmt.Sprintf("coupon %s is no longer active", coupon.Code))
	}
	t := draft.NewPricing(s.taxRate, float64(coupon.DiscountPercent)/100).Compute(subtotalCents, true)
	t.Estimated = false
	return t, coupon.Code, nil
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if err := req.Validate(); err != nil {
		return domain.Sale{}, err
	}
	if _, err := s.repo.GetEmployee(ctx, req.EmployeeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Sale{}, domain.NewValidationError("employeeId", "unknown employee")
		}
		return domain.Sale{}, err
	}
	out, err := s.repo.SaveSale(ctx, domain.Sale{
		ID:         xid.New("sale"),
		EmployeeID: req.EmployeeID,
		Status:     domain.StatusOpen,
		Items:      []domain.LineItem{},
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		return domain.Sale{}, err
	}
	return *out, nil
}

func (s *Service) AddSaleItem(ctx context.Context, id string, req domain.AddItemRequest) (domain.Sale, error) {
	item, err := s.lineItem(ctx, req)
	if err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	if sale.Status != domain.StatusOpen {
		return domain.Sale{}, notOpen("sale", sale.Status)
	}
	sale.Items = addLine(sale.Items, item, req.Quantity)
	t := draft.NewPricing(s.taxRate, 0).Compute(subtotal(sale.Items), false)
	sale.SubtotalCents, sale.TaxCents, sale.TotalCents = t.SubtotalCents, t.TaxCents, t.TotalCents
	out, err := s.repo.SaveSale(ctx, *sale)
	if err != nil {
		return domain.Sale{}, err
	}
	return *out, nil
}

// FinalizeSale prices the sale, takes its lines out of stock and closes
// it. A shortage leaves both the sale and the stock unchanged.
func (s *Service) FinalizeSale(ctx context.Context, id string, req domain.SaleFinalizeRequest) (domain.Sale, error) {
	if err := req.Validate(); err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	if sale.Status != domain.StatusOpen {
		return domain.Sale{}, notOpen("sale", sale.Status)
	}
	if len(sale.Items) == 0 {
		return domain.Sale{}, domain.ErrEmptyTransaction
	}

	t, code, err := s.totals(ctx, subtotal(sale.Items), normalizeCode(req.CouponCode))
	if err != nil {
		return domain.Sale{}, err
	}
	sale.SubtotalCents = t.SubtotalCents
	sale.TaxCents = t.TaxCents
	sale.DiscountCents = t.DiscountCents
	sale.TotalCents = t.TotalCents
	sale.PaymentMethod = req.PaymentMethod
	sale.CouponCode = code
	sale.Status = domain.StatusFinalized

	out, err := s.repo.FinalizeSale(ctx, *sale)
	if err != nil {
		return domain.Sale{}, err
	}
	s.logger.Info("sale finalized",
		zap.String("sale_id", out.ID),
		zap.Int64("total_cents", out.TotalCents),
		zap.String("coupon", out.CouponCode),
	)
	return *out, nil
}

func (s *Service) CancelSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	if sale.Status != domain.StatusOpen {
		return domain.Sale{}, notOpen("sale", sale.Status)
	}
	sale.Status = domain.StatusCancelled
	out, err := s.repo.SaveSale(ctx, *sale)
	if err != nil {
		return domain.Sale{}, err
	}
	return *out, nil
}

func (s *Service) ListRentals(ctx context.Context) ([]domain.Rental, error) {
	return s.repo.ListRentals(ctx)
}

func (s *Service) GetRental(ctx context.Context, id string) (domain.Rental, error) {
	r, err := s.repo.GetRental(ctx, id)
	if err != nil {
		return domain.Rental{}, err
	}
	return *r, nil
}

func (s *Service) CreateRental(ctx context.Context, req domain.RentalCreateRequest) (domain.Rental, error) {
	if err := req.Validate(); err != nil {
		return domain.Rental{}, err
	}
	if _, err := s.repo.GetCustomer(ctx, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Rental{}, domain.NewValidationError("userId", "Select a customer")
		}
		return domain.Rental{}, err
	}
	if _, err := s.repo.GetEmployee(ctx, req.EmployeeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Rental{}, domain.NewValidationError("employeeId", "unknown employee")
		}
		return domain.Rental{}, err
	}
	out, err := s.repo.SaveRental(ctx, domain.Rental{
		ID:           xid.New("rent"),
		RentalNumber: xid.RentalNumber(),
		UserID:       req.UserID,
		EmployeeID:   req.EmployeeID,
		Status:       domain.StatusOpen,
		DepositCents: req.DepositCents,
		DueDate:      req.DueDate.UTC(),
		Items:        []domain.LineItem{},
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return domain.Rental{}, err
	}
	return *out, nil
}

func (s *Service) openRental(ctx context.Context, id string) (*domain.Rental, error) {
	rental, err := s.repo.GetRental(ctx, id)
	if err != nil {
		return nil, err
	}
	if rental.Status != domain.StatusOpen {
		return nil, notOpen("rental", rental.Status)
	}
	return rental, nil
}

func (s *Service) AddRentalItem(ctx context.Context, id string, req domain.AddItemRequest) (domain.Rental, error) {
	item, err := s.lineItem(ctx, req)
	if err != nil {
		return domain.Rental{}, err
	}
	rental, err := s.openRental(ctx, id)
	if err != nil {
		return domain.Rental{}, err
	}
	rental.Items = addLine(rental.Items, item, req.Quantity)
	rental.TotalCents = draft.NewPricing(s.taxRate, 0).Compute(subtotal(rental.Items), false).TotalCents
	out, err := s.repo.SaveRental(ctx, *rental)
	if err != nil {
		return domain.Rental{}, err
	}
	return *out, nil
}

func (s *Service) RemoveRentalItem(ctx context.Context, id string, itemID int64) (domain.Rental, error) {
	rental, err := s.openRental(ctx, id)
	if err != nil {
		return domain.Rental{}, err
	}
	kept := rental.Items[:0]
	for _, l := range rental.Items {
		if l.ItemID != itemID {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(rental.Items) {
		return domain.Rental{}, store.ErrNotFound
	}
	rental.Items = kept
	rental.TotalCents = draft.NewPricing(s.taxRate, 0).Compute(subtotal(rental.Items), false).TotalCents
	out, err := s.repo.SaveRental(ctx, *rental)
	if err != nil {
		return domain.Rental{}, err
	}
	return *out, nil
}

// FinalizeRental reprices the lines itself. The client's total is only
// logged when it disagrees.
func (s *Service) FinalizeRental(ctx context.Context, id string, req domain.RentalFinalizeRequest) (domain.Rental, error) {
	rental, err := s.openRental(ctx, id)
	if err != nil {
		return domain.Rental{}, err
	}
	if len(rental.Items) == 0 {
		return domain.Rental{}, domain.ErrEmptyTransaction
	}
	rental.TotalCents = draft.NewPricing(s.taxRate, 0).Compute(subtotal(rental.Items), false).TotalCents
	if req.TotalCents != 0 && req.TotalCents != rental.TotalCents {
		s.logger.Warn("client rental total differs",
			zap.String("rental_id", id),
			zap.Int64("client_cents", req.TotalCents),
			zap.Int64("server_cents", rental.TotalCents),
		)
	}
	rental.Status = domain.StatusFinalized
	out, err := s.repo.FinalizeRental(ctx, *rental)
	if err != nil {
		return domain.Rental{}, err
	}
	s.logger.Info("rental finalized",
		zap.String("rental_id", out.ID),
		zap.String("rental_number", out.RentalNumber),
		zap.Int64("total_cents", out.TotalCents),
	)
	return *out, nil
}

// MarkRentalReturned records the physical return. A nil time means now.
func (s *Service) MarkRentalReturned(ctx context.Context, id string, req domain.RentalReturnRequest) (domain.Rental, error) {
	at := s.now()
	if req.ReturnedAt != nil {
		at = *req.ReturnedAt
	}
	rental, err := s.repo.GetRental(ctx, id)
	if err != nil {
		return domain.Rental{}, err
	}
	if rental.Status == domain.StatusOpen || rental.Status == domain.StatusCancelled {
		return domain.Rental{}, notOpen("rental", rental.Status)
	}
	out, err := s.repo.MarkRentalReturned(ctx, id, at)
	if err != nil {
		return domain.Rental{}, err
	}
	return *out, nil
}

func (s *Service) CancelRental(ctx context.Context, id string) (domain.Rental, error) {
	rental, err := s.openRental(ctx, id)
	if err != nil {
		return domain.Rental{}, err
	}
	rental.Status = domain.StatusCancelled
	out, err := s.repo.SaveRental(ctx, *rental)
	if err != nil {
		return domain.Rental{}, err
	}
	return *out, nil
}

func (s *Service) LateFee(ctx context.Context, rentalID string, returnedAt *time.Time) (domain.LateFeeQuote, error) {
	rental, err := s.repo.GetRental(ctx, rentalID)
	if err != nil {
		return domain.LateFeeQuote{}, err
	}
	at := s.now()
	switch {
	case returnedAt != nil:
		at = *returnedAt
	case rental.ReturnedAt != nil:
		at = *rental.ReturnedAt
	}
	return returns.Calculate(returns.TermsOf(*rental), at.UTC(), s.lateFee), nil
}
