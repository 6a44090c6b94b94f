package draft

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"storepos/internal/domain"
)

type SaleAPI interface {
	Create(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error)
	AddItem(ctx context.Context, id string, req domain.AddItemRequest) (domain.Sale, error)
	Finalize(ctx context.Context, id string, req domain.SaleFinalizeRequest) (domain.Sale, error)
	Cancel(ctx context.Context, id string) (domain.Sale, error)
}

// SaleForm builds one sale at a time against a stock snapshot.
type SaleForm struct {
	form
	api SaleAPI
}

func NewSaleForm(api SaleAPI, loader *Loader, identity Identity, pricing Pricing, logger *zap.Logger, opts ...FormOption) *SaleForm {
	s := &SaleForm{api: api}
	s.init(KindSale, loader, identity, pricing, logger, opts)
	return s
}

// Open loads the inventory. Line mutations fail until it returns nil.
func (s *SaleForm) Open(ctx context.Context) error {
	return s.open(ctx, false)
}

func (s *SaleForm) Inventory() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]domain.Item, 0, len(s.draft.stock))
	for _, item := range s.draft.stock {
		items = append(items, item)
	}
	return items
}

// Finalize submits the draft. A non-blank coupon is sent instead of the
// one on the draft without being stored on it. If the backend rejects any
// step the draft is left as it was, the half-built sale is cancelled, and
// the backend error is returned.
func (s *SaleForm) Finalize(ctx context.Context, payment domain.PaymentMethod, coupon string) (domain.Sale, error) {
	s.mu.Lock()
	user, gen, err := s.beginSubmit()
	if err != nil {
		s.mu.Unlock()
		return domain.Sale{}, err
	}
	if !payment.Valid() {
		s.submitting = false
		s.mu.Unlock()
		return domain.Sale{}, domain.NewValidationError("paymentMethod", "Select a payment method")
	}
	code := strings.ToUpper(strings.TrimSpace(coupon))
	if code == "" {
		code = s.draft.Coupon()
	}
	lines := s.draft.Lines()
	s.mu.Unlock()

	sale, err := s.submit(ctx, user, lines, payment, code)
	s.endSubmit(ctx, gen, err == nil)
	if err != nil {
		return domain.Sale{}, err
	}
	s.logger.Info("sale finalized",
		zap.String("sale_id", sale.ID),
		zap.Int64("total_cents", sale.TotalCents),
		zap.Int("lines", len(sale.Items)),
	)
	return sale, nil
}

func (s *SaleForm) submit(ctx context.Context, user domain.Identity, lines []Line, payment domain.PaymentMethod, coupon string) (domain.Sale, error) {
	sale, err := s.api.Create(ctx, domain.SaleCreateRequest{EmployeeID: user.ID})
	if err != nil {
		return domain.Sale{}, err
	}
	for _, line := range lines {
		if _, err := s.api.AddItem(ctx, sale.ID, domain.AddItemRequest{ItemID: line.ItemID, Quantity: line.Quantity}); err != nil {
			s.abandon(ctx, KindSale, sale.ID, s.cancel)
			return domain.Sale{}, err
		}
	}
	final, err := s.api.Finalize(ctx, sale.ID, domain.SaleFinalizeRequest{PaymentMethod: payment, CouponCode: coupon})
	if err != nil {
		s.abandon(ctx, KindSale, sale.ID, s.cancel)
		return domain.Sale{}, err
	}
	return final, nil
}

func (s *SaleForm) cancel(ctx context.Context, id string) error {
	_, err := s.api.Cancel(ctx, id)
	return err
}
