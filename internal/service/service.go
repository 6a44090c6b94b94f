package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storepos/internal/domain"
	"storepos/internal/logging"
	"storepos/internal/returns"
	"storepos/internal/store"
	"storepos/internal/xid"
)

// ErrForbidden is returned when the actor's position may not perform
// the operation.
var ErrForbidden = errors.New("admin position required")

var ErrAccountInactive = fmt.Errorf("%w: account is inactive", domain.ErrUnauthorized)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Identity) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Identity, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Identity)
	return actor, ok
}

type Options struct {
	TaxRate            float64
	LateFeePerDayCents int64
	Logger             *zap.Logger
	Clock              func() time.Time
}

type Service struct {
	repo    store.Repository
	taxRate float64
	lateFee returns.Policy
	logger  *zap.Logger
	now     func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		repo:    repo,
		taxRate: opts.TaxRate,
		lateFee: returns.Policy{LateFeePerDayCents: opts.LateFeePerDayCents},
		logger:  logging.OrNop(opts.Logger),
		now:     opts.Clock,
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Position != domain.PositionAdmin {
		return ErrForbidden
	}
	return nil
}

// Authenticate checks the password against the stored bcrypt hash.
// Unknown users and wrong passwords give the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.Identity, error) {
	account, err := s.repo.GetEmployeeByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, domain.ErrUnauthorized
		}
		return domain.Identity{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	if !account.IsActive {
		return domain.Identity{}, ErrAccountInactive
	}
	return domain.Identity{ID: account.ID, Username: account.Username, Position: account.Position}, nil
}

func (s *Service) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.repo.ListItems(ctx)
}

func (s *Service) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	return *item, nil
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.Item, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Item{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.Item{}, err
	}
	created, err := s.repo.CreateItem(ctx, domain.Item{
		ID:         req.ID,
		Name:       strings.TrimSpace(req.Name),
		PriceCents: req.PriceCents,
		Quantity:   req.Quantity,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		return domain.Item{}, err
	}
	return *created, nil
}

func (s *Service) UpdateItem(ctx context.Context, id int64, req domain.ItemUpdateRequest) (domain.Item, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Item{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.Item{}, err
	}
	existing, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.PriceCents != nil {
		updated.PriceCents = *req.PriceCents
	}
	if req.Quantity != nil {
		updated.Quantity = *req.Quantity
	}
	out, err := s.repo.UpdateItem(ctx, updated)
	if err != nil {
		return domain.Item{}, err
	}
	return *out, nil
}

func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteItem(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *c, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if err := req.Validate(); err != nil {
		return domain.Customer{}, err
	}
	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		ID:        xid.New("usr"),
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if err := req.Validate(); err != nil {
		return domain.Customer{}, err
	}
	existing, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.HasCredit != nil {
		updated.HasCredit = *req.HasCredit
	}
	if req.CreditValueCents != nil {
		updated.CreditValueCents = *req.CreditValueCents
	}
	out, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}
	return *out, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	return s.repo.DeleteCustomer(ctx, id)
}

func (s *Service) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListEmployees(ctx)
}

func (s *Service) GetEmployee(ctx context.Context, id string) (domain.Employee, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}
	account, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return domain.Employee{}, err
	}
	return account.Employee, nil
}

func (s *Service) CreateEmployee(ctx context.Context, req domain.EmployeeCreateRequest) (domain.Employee, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.Employee{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Employee{}, err
	}
	created, err := s.repo.CreateEmployee(ctx, store.EmployeeAccount{
		Employee: domain.Employee{
			ID:        xid.New("emp"),
			Username:  strings.ToLower(strings.TrimSpace(req.Username)),
			Position:  req.Position,
			IsActive:  true,
			CreatedAt: s.now().UTC(),
		},
		PasswordHash: string(hash),
	})
	if err != nil {
		return domain.Employee{}, err
	}
	s.logger.Info("employee created", zap.String("employee_id", created.ID), zap.String("position", string(created.Position)))
	return *created, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, id string, req domain.EmployeeUpdateRequest) (domain.Employee, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.Employee{}, err
	}
	existing, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return domain.Employee{}, err
	}
	updated := *existing
	if req.Username != nil {
		updated.Username = strings.ToLower(strings.TrimSpace(*req.Username))
	}
	if req.Position != nil {
		updated.Position = *req.Position
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.Employee{}, err
		}
		updated.PasswordHash = string(hash)
	}
	out, err := s.repo.UpdateEmployee(ctx, updated)
	if err != nil {
		return domain.Employee{}, err
	}
	return *out, nil
}

func (s *Service) ToggleEmployeeStatus(ctx context.Context, id string) (domain.Employee, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}
	if actor, _ := ActorFromContext(ctx); actor.ID == id {
		return domain.Employee{}, domain.NewValidationError("id", "you cannot deactivate yourself")
	}
	existing, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return domain.Employee{}, err
	}
	existing.IsActive = !existing.IsActive
	out, err := s.repo.UpdateEmployee(ctx, *existing)
	if err != nil {
		return domain.Employee{}, err
	}
	return *out, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteEmployee(ctx, id)
}

func (s *Service) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	return s.repo.ListCoupons(ctx)
}

func (s *Service) GetCoupon(ctx context.Context, id string) (domain.Coupon, error) {
	c, err := s.repo.GetCoupon(ctx, id)
	if err != nil {
		return domain.Coupon{}, err
	}
	return *c, nil
}

func (s *Service) CreateCoupon(ctx context.Context, req domain.CouponCreateRequest) (domain.Coupon, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Coupon{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.Coupon{}, err
	}
	created, err := s.repo.CreateCoupon(ctx, domain.Coupon{
		ID:              xid.New("cpn"),
		Code:            normalizeCode(req.Code),
		DiscountPercent: req.DiscountPercent,
		IsActive:        true,
		CreatedAt:       s.now().UTC(),
	})
	if err != nil {
		return domain.Coupon{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCoupon(ctx context.Context, id string, req domain.CouponUpdateRequest) (domain.Coupon, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Coupon{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.Coupon{}, err
	}
	existing, err := s.repo.GetCoupon(ctx, id)
	if err != nil {
		return domain.Coupon{}, err
	}
	updated := *existing
	if req.Code != nil {
		updated.Code = normalizeCode(*req.Code)
	}
	if req.DiscountPercent != nil {
		updated.DiscountPercent = *req.DiscountPercent
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	out, err := s.repo.UpdateCoupon(ctx, updated)
	if err != nil {
		return domain.Coupon{}, err
	}
	return *out, nil
}

func (s *Service) DeleteCoupon(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteCoupon(ctx, id)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
