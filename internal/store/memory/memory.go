package memory

import (
	"cmp"
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storepos/internal/domain"
	"storepos/internal/logging"
	"storepos/internal/store"
	"storepos/internal/xid"
)

type Store struct {
	mu          sync.RWMutex
	items       map[int64]domain.Item
	customers   map[string]domain.Customer
	employees   map[string]store.EmployeeAccount
	coupons     map[string]domain.Coupon
	sales       map[string]domain.Sale
	rentals     map[string]domain.Rental
	returns     []domain.ReturnRecord
	returnedFor map[string]bool
}

func New() *Store {
	return &Store{
		items:       make(map[int64]domain.Item),
		customers:   make(map[string]domain.Customer),
		employees:   make(map[string]store.EmployeeAccount),
		coupons:     make(map[string]domain.Coupon),
		sales:       make(map[string]domain.Sale),
		rentals:     make(map[string]domain.Rental),
		returnedFor: make(map[string]bool),
	}
}

// NewSeeded returns a store with the demo catalogue, two customers, an
// admin and a cashier. Seed passwords come from SEED_ADMIN_PASSWORD and
// SEED_CASHIER_PASSWORD, falling back to dev defaults with a warning.
func NewSeeded(logger *zap.Logger) (*Store, error) {
	logger = logging.OrNop(logger)
	s := New()
	now := time.Now().UTC()

	for _, item := range []domain.Item{
		{ID: 1, Name: "Drill Machine", PriceCents: 10000, Quantity: 20},
		{ID: 2, Name: "Hammer", PriceCents: 2000, Quantity: 50},
		{ID: 3, Name: "Screwdriver Set", PriceCents: 1500, Quantity: 35},
	} {
		item.CreatedAt = now
		s.items[item.ID] = item
	}
	for _, c := range []domain.Customer{
		{ID: "u1", Name: "John Doe", Phone: "111-222"},
		{ID: "u2", Name: "Alice Smith", Phone: "333-444"},
	} {
		c.CreatedAt = now
		s.customers[c.ID] = c
	}
	coupon := domain.Coupon{ID: xid.New("cpn"), Code: "SUMMER10", DiscountPercent: 10, IsActive: true, CreatedAt: now}
	s.coupons[coupon.ID] = coupon

	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		logger.Warn("using default dev credentials, set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}
	for _, u := range []struct {
		username string
		password string
		position domain.Position
	}{
		{"admin", adminPwd, domain.PositionAdmin},
		{"cashier", cashierPwd, domain.PositionCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		account := store.EmployeeAccount{
			Employee: domain.Employee{
				ID:        xid.New("emp"),
				Username:  u.username,
				Position:  u.position,
				IsActive:  true,
				CreatedAt: now,
			},
			PasswordHash: string(hash),
		}
		s.employees[account.ID] = account
	}
	return s, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) ListItems(_ context.Context) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b domain.Item) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) GetItem(_ context.Context, id int64) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.items[item.ID] = item
	return &item, nil
}

func (s *Store) UpdateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.items[item.ID] = item
	return &item, nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Customer) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.customers[customer.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[customer.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.customers, id)
	return nil
}

func (s *Store) ListEmployees(_ context.Context) ([]domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e.Employee)
	}
	slices.SortFunc(out, func(a, b domain.Employee) int { return strings.Compare(a.Username, b.Username) })
	return out, nil
}

func (s *Store) GetEmployee(_ context.Context, id string) (*store.EmployeeAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *Store) GetEmployeeByUsername(_ context.Context, username string) (*store.EmployeeAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.employees {
		if strings.EqualFold(e.Username, username) {
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateEmployee(_ context.Context, account store.EmployeeAccount) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.employees {
		if e.ID == account.ID || strings.EqualFold(e.Username, account.Username) {
			return nil, store.ErrDuplicate
		}
	}
	s.employees[account.ID] = account
	return &account.Employee, nil
}

func (s *Store) UpdateEmployee(_ context.Context, account store.EmployeeAccount) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[account.ID]; !ok {
		return nil, store.ErrNotFound
	}
	for _, e := range s.employees {
		if e.ID != account.ID && strings.EqualFold(e.Username, account.Username) {
			return nil, store.ErrDuplicate
		}
	}
	s.employees[account.ID] = account
	return &account.Employee, nil
}

func (s *Store) DeleteEmployee(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.employees, id)
	return nil
}

func (s *Store) ListCoupons(_ context.Context) ([]domain.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Coupon) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

func (s *Store) GetCoupon(_ context.Context, id string) (*domain.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coupons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) GetCouponByCode(_ context.Context, code string) (*domain.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.coupons {
		if strings.EqualFold(c.Code, code) {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateCoupon(_ context.Context, coupon domain.Coupon) (*domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.coupons {
		if strings.EqualFold(c.Code, coupon.Code) {
			return nil, store.ErrDuplicate
		}
	}
	s.coupons[coupon.ID] = coupon
	return &coupon, nil
}

func (s *Store) UpdateCoupon(_ context.Context, coupon domain.Coupon) (*domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.coupons[coupon.ID]; !ok {
		return nil, store.ErrNotFound
	}
	for _, c := range s.coupons {
		if c.ID != coupon.ID && strings.EqualFold(c.Code, coupon.Code) {
			return nil, store.ErrDuplicate
		}
	}
	s.coupons[coupon.ID] = coupon
	return &coupon, nil
}

func (s *Store) DeleteCoupon(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.coupons[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.coupons, id)
	return nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		out = append(out, cloneSale(sale))
	}
	slices.SortFunc(out, func(a, b domain.Sale) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) SaveSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales[sale.ID] = cloneSale(sale)
	return &sale, nil
}

func (s *Store) FinalizeSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeStock(sale.Items); err != nil {
		return nil, err
	}
	s.sales[sale.ID] = cloneSale(sale)
	return &sale, nil
}

func (s *Store) ListRentals(_ context.Context) ([]domain.Rental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Rental, 0, len(s.rentals))
	for _, r := range s.rentals {
		out = append(out, cloneRental(r))
	}
	slices.SortFunc(out, func(a, b domain.Rental) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *Store) GetRental(_ context.Context, id string) (*domain.Rental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rentals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneRental(r)
	return &out, nil
}

func (s *Store) SaveRental(_ context.Context, rental domain.Rental) (*domain.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rentals[rental.ID] = cloneRental(rental)
	return &rental, nil
}

func (s *Store) FinalizeRental(_ context.Context, rental domain.Rental) (*domain.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeStock(rental.Items); err != nil {
		return nil, err
	}
	s.rentals[rental.ID] = cloneRental(rental)
	return &rental, nil
}

func (s *Store) MarkRentalReturned(_ context.Context, id string, at time.Time) (*domain.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rentals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.Returned() {
		return nil, store.ErrAlreadyReturned
	}
	s.markReturned(&r, at)
	out := cloneRental(r)
	return &out, nil
}

func (s *Store) ListReturns(_ context.Context) ([]domain.ReturnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.returns)
	slices.SortFunc(out, func(a, b domain.ReturnRecord) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *Store) RecordReturn(_ context.Context, record domain.ReturnRecord) (*domain.ReturnRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch record.Type {
	case domain.ReturnSale:
		sale, ok := s.sales[record.SaleID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if s.returnedFor["sale:"+sale.ID] || sale.Status == domain.StatusReturned {
			return nil, store.ErrAlreadyReturned
		}
		if sale.Status != domain.StatusFinalized {
			return nil, store.ErrInvalidTransaction
		}
		s.putBack(sale.Items)
		sale.Status = domain.StatusReturned
		s.sales[sale.ID] = sale
		s.returnedFor["sale:"+sale.ID] = true
	case domain.ReturnRental:
		rental, ok := s.rentals[record.RentalID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if s.returnedFor["rental:"+rental.ID] {
			return nil, store.ErrAlreadyReturned
		}
		if rental.Status != domain.StatusFinalized && rental.Status != domain.StatusReturned {
			return nil, store.ErrInvalidTransaction
		}
		if !rental.Returned() {
			s.markReturned(&rental, record.CreatedAt)
		}
		s.returnedFor["rental:"+rental.ID] = true
	default:
		return nil, store.ErrInvalidTransaction
	}

	s.returns = append(s.returns, record)
	return &record, nil
}

// takeStock must be called with s.mu held. It checks every line before
// changing anything.
func (s *Store) takeStock(lines []domain.LineItem) error {
	wanted := make(map[int64]int, len(lines))
	for _, line := range lines {
		wanted[line.ItemID] += line.Quantity
	}
	for id, qty := range wanted {
		item, ok := s.items[id]
		if !ok {
			return store.ErrNotFound
		}
		if item.Quantity < qty {
			return &store.StockError{ItemID: id, Name: item.Name, Requested: qty, Available: item.Quantity}
		}
	}
	for id, qty := range wanted {
		item := s.items[id]
		item.Quantity -= qty
		s.items[id] = item
	}
	return nil
}

func (s *Store) putBack(lines []domain.LineItem) {
	for _, line := range lines {
		if item, ok := s.items[line.ItemID]; ok {
			item.Quantity += line.Quantity
			s.items[line.ItemID] = item
		}
	}
}

func (s *Store) markReturned(r *domain.Rental, at time.Time) {
	at = at.UTC()
	r.ReturnedAt = &at
	r.Status = domain.StatusReturned
	s.putBack(r.Items)
	s.rentals[r.ID] = cloneRental(*r)
}

func cloneSale(src domain.Sale) domain.Sale {
	dst := src
	dst.Items = slices.Clone(src.Items)
	dst.ReturnRecords = slices.Clone(src.ReturnRecords)
	return dst
}

func cloneRental(src domain.Rental) domain.Rental {
	dst := src
	dst.Items = slices.Clone(src.Items)
	if src.ReturnedAt != nil {
		at := *src.ReturnedAt
		dst.ReturnedAt = &at
	}
	return dst
}
