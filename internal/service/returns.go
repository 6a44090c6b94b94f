package service

import (
	"context"

	"go.uber.org/zap"

	"storepos/internal/domain"
	"storepos/internal/xid"
)

func (s *Service) ListReturns(ctx context.Context) ([]domain.ReturnRecord, error) {
	return s.repo.ListReturns(ctx)
}

// RecordSaleReturn refunds the full sale total. The requested amount is only
// checked for sign.
func (s *Service) RecordSaleReturn(ctx context.Context, req domain.SaleReturnRequest) (domain.ReturnRecord, error) {
	if err := req.Validate(); err != nil {
		return domain.ReturnRecord{}, err
	}
	sale, err := s.repo.GetSale(ctx, req.SaleID)
	if err != nil {
		return domain.ReturnRecord{}, err
	}
	return s.record(ctx, domain.ReturnRecord{
		ID:          xid.New("ret"),
		Type:        domain.ReturnSale,
		SaleID:      sale.ID,
		AmountCents: sale.TotalCents,
		Reason:      req.Reason,
		CreatedAt:   s.now().UTC(),
	})
}

// RecordRentalReturn stores the refund computed from the rental's deposit
// and late fee, at its recorded return time or now. The client's amount
// is ignored. The refund may be negative when the fee exceeds the deposit.
func (s *Service) RecordRentalReturn(ctx context.Context, req domain.RentalReturnRecordRequest) (domain.ReturnRecord, error) {
	if err := req.Validate(); err != nil {
		return domain.ReturnRecord{}, err
	}
	quote, err := s.LateFee(ctx, req.RentalID, nil)
	if err != nil {
		return domain.ReturnRecord{}, err
	}
	if req.AmountCents != quote.RefundCents {
		s.logger.Warn("client refund differs from computed refund",
			zap.String("rental_id", req.RentalID),
			zap.Int64("client_cents", req.AmountCents),
			zap.Int64("refund_cents", quote.RefundCents),
		)
	}
	return s.record(ctx, domain.ReturnRecord{
		ID:          xid.New("ret"),
		Type:        domain.ReturnRental,
		RentalID:    req.RentalID,
		AmountCents: quote.RefundCents,
		Reason:      req.Reason,
		CreatedAt:   s.now().UTC(),
	})
}

func (s *Service) record(ctx context.Context, rec domain.ReturnRecord) (domain.ReturnRecord, error) {
	out, err := s.repo.RecordReturn(ctx, rec)
	if err != nil {
		return domain.ReturnRecord{}, err
	}
	s.logger.Info("return recorded",
		zap.String("type", string(out.Type)),
		zap.String("sale_id", out.SaleID),
		zap.String("rental_id", out.RentalID),
		zap.Int64("amount_cents", out.AmountCents),
	)
	return *out, nil
}
