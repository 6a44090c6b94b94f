package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storepos/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrDuplicate          = errors.New("already exists")
	ErrAlreadyReturned    = errors.New("already returned")
)

// StockError names the line that could not be fulfilled.
type StockError struct {
	ItemID    int64
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s has only %d in stock, %d requested", e.Name, e.Available, e.Requested)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// EmployeeAccount is an employee with its bcrypt password hash.
type EmployeeAccount struct {
	domain.Employee
	PasswordHash string
}

type Repository interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	UpdateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	DeleteItem(ctx context.Context, id int64) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	GetEmployee(ctx context.Context, id string) (*EmployeeAccount, error)
	GetEmployeeByUsername(ctx context.Context, username string) (*EmployeeAccount, error)
	CreateEmployee(ctx context.Context, account EmployeeAccount) (*domain.Employee, error)
	UpdateEmployee(ctx context.Context, account EmployeeAccount) (*domain.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error

	ListCoupons(ctx context.Context) ([]domain.Coupon, error)
	GetCoupon(ctx context.Context, id string) (*domain.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
	CreateCoupon(ctx context.Context, coupon domain.Coupon) (*domain.Coupon, error)
	UpdateCoupon(ctx context.Context, coupon domain.Coupon) (*domain.Coupon, error)
	DeleteCoupon(ctx context.Context, id string) error

	ListSales(ctx context.Context) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	// SaveSale stores an open or cancelled sale. Stock is untouched.
	SaveSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	// FinalizeSale takes every line out of stock and stores the sale in
	// one step. A short line fails the whole sale with a *StockError.
	FinalizeSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)

	ListRentals(ctx context.Context) ([]domain.Rental, error)
	GetRental(ctx context.Context, id string) (*domain.Rental, error)
	SaveRental(ctx context.Context, rental domain.Rental) (*domain.Rental, error)
	FinalizeRental(ctx context.Context, rental domain.Rental) (*domain.Rental, error)
	// MarkRentalReturned puts the rented items back in stock.
	MarkRentalReturned(ctx context.Context, id string, at time.Time) (*domain.Rental, error)

	ListReturns(ctx context.Context) ([]domain.ReturnRecord, error)
	// RecordReturn fails with ErrAlreadyReturned when the sale or rental
	// already has a return. Returned sales are restocked; rentals are
	// marked returned and restocked unless that already happened.
	RecordReturn(ctx context.Context, record domain.ReturnRecord) (*domain.ReturnRecord, error)
}
