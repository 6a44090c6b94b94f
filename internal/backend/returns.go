package backend

import (
	"context"
	"net/url"
	"time"

	"storepos/internal/domain"
	"storepos/internal/gateway"
)

type Returns struct {
	client *gateway.Client
}

func NewReturns(client *gateway.Client) *Returns {
	return &Returns{client: client}
}

func (s *Returns) List(ctx context.Context) ([]domain.ReturnRecord, error) {
	return gateway.Get[[]domain.ReturnRecord](ctx, s.client, pathReturns, nil)
}

func (s *Returns) ReturnSale(ctx context.Context, req domain.SaleReturnRequest) (domain.ReturnRecord, error) {
	return gateway.Post[domain.ReturnRecord](ctx, s.client, pathReturnSale, req)
}

func (s *Returns) ReturnRental(ctx context.Context, req domain.RentalReturnRecordRequest) (domain.ReturnRecord, error) {
	return gateway.Post[domain.ReturnRecord](ctx, s.client, pathReturnRental, req)
}

// LateFee asks the backend for its calculation. A nil returnedAt means
// now, as judged by the server.
func (s *Returns) LateFee(ctx context.Context, rentalID string, returnedAt *time.Time) (domain.LateFeeQuote, error) {
	var query url.Values
	if returnedAt != nil {
		query = url.Values{"returnedAt": []string{returnedAt.UTC().Format(time.RFC3339)}}
	}
	return gateway.Get[domain.LateFeeQuote](ctx, s.client, byID(pathLateFee, rentalID), query)
}
