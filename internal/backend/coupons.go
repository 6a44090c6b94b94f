package backend

import (
	"context"
	"net/http"

	"storepos/internal/domain"
	"storepos/internal/gateway"
)

type Coupons struct {
	client *gateway.Client
}

func NewCoupons(client *gateway.Client) *Coupons {
	return &Coupons{client: client}
}

func (s *Coupons) List(ctx context.Context) ([]domain.Coupon, error) {
	return gateway.Get[[]domain.Coupon](ctx, s.client, pathCoupons, nil)
}

func (s *Coupons) Get(ctx context.Context, id string) (domain.Coupon, error) {
	return gateway.Get[domain.Coupon](ctx, s.client, byID(pathCoupons, id), nil)
}

func (s *Coupons) Create(ctx context.Context, req domain.CouponCreateRequest) (domain.Coupon, error) {
	return gateway.Post[domain.Coupon](ctx, s.client, pathCoupons, req)
}

func (s *Coupons) Update(ctx context.Context, id string, req domain.CouponUpdateRequest) (domain.Coupon, error) {
	return gateway.Patch[domain.Coupon](ctx, s.client, byID(pathCoupons, id), req)
}

func (s *Coupons) Delete(ctx context.Context, id string) error {
	return s.client.Do(ctx, http.MethodDelete, byID(pathCoupons, id), nil, nil, nil)
}
