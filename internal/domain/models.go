package domain

import "time"

type Position string

const (
	PositionAdmin   Position = "ADMIN"
	PositionCashier Position = "CASHIER"
)

func (p Position) Valid() bool {
	return p == PositionAdmin || p == PositionCashier
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCredit PaymentMethod = "CREDIT"
	PaymentDebit  PaymentMethod = "DEBIT"
	PaymentCheck  PaymentMethod = "CHECK"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCredit, PaymentDebit, PaymentCheck:
		return true
	}
	return false
}

type ReturnType string

const (
	ReturnSale   ReturnType = "SALE"
	ReturnRental ReturnType = "RENTAL"
)

type TransactionStatus string

const (
	StatusOpen      TransactionStatus = "OPEN"
	StatusFinalized TransactionStatus = "FINALIZED"
	StatusCancelled TransactionStatus = "CANCELLED"
	StatusReturned  TransactionStatus = "RETURNED"
)

// Identity is the authenticated employee as the client knows it.
type Identity struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Position Position `json:"position"`
}

type Item struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"priceCents"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ItemCreateRequest struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
}

type ItemUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	PriceCents *int64  `json:"priceCents,omitempty"`
	Quantity   *int    `json:"quantity,omitempty"`
}

// Customer is a renting or buying customer, exposed by the backend
// under /users.
type Customer struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email,omitempty"`
	HasCredit        bool      `json:"hasCredit"`
	CreditValueCents int64     `json:"creditValueCents"`
	CreatedAt        time.Time `json:"createdAt"`
}

type CustomerCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type CustomerUpdateRequest struct {
	Name             *string `json:"name,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	Email            *string `json:"email,omitempty"`
	HasCredit        *bool   `json:"hasCredit,omitempty"`
	CreditValueCents *int64  `json:"creditValueCents,omitempty"`
}

type Employee struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Position  Position  `json:"position"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type EmployeeCreateRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Position Position `json:"position"`
}

type EmployeeUpdateRequest struct {
	Username *string   `json:"username,omitempty"`
	Password *string   `json:"password,omitempty"`
	Position *Position `json:"position,omitempty"`
	IsActive *bool     `json:"isActive,omitempty"`
}

type Coupon struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discountPercent"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
}

type CouponCreateRequest struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discountPercent,omitempty"`
}

type CouponUpdateRequest struct {
	Code            *string `json:"code,omitempty"`
	DiscountPercent *int    `json:"discountPercent,omitempty"`
	IsActive        *bool   `json:"isActive,omitempty"`
}

// LineItem is a persisted sale or rental line.
type LineItem struct {
	ID             string `json:"id"`
	ItemID         int64  `json:"itemId"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	LineTotalCents int64  `json:"lineTotalCents"`
}

type ReturnRecord struct {
	ID          string     `json:"id"`
	Type        ReturnType `json:"type"`
	SaleID      string     `json:"saleId,omitempty"`
	RentalID    string     `json:"rentalId,omitempty"`
	AmountCents int64      `json:"amountCents"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type Sale struct {
	ID            string            `json:"id"`
	EmployeeID    string            `json:"employeeId"`
	Status        TransactionStatus `json:"status"`
	SubtotalCents int64             `json:"subtotalCents"`
	TaxCents      int64             `json:"taxCents"`
	DiscountCents int64             `json:"discountCents"`
	TotalCents    int64             `json:"totalCents"`
	PaymentMethod PaymentMethod     `json:"paymentMethod,omitempty"`
	CouponCode    string            `json:"couponCode,omitempty"`
	Items         []LineItem        `json:"items"`
	ReturnRecords []ReturnRecord    `json:"returnRecords,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type SaleCreateRequest struct {
	EmployeeID string `json:"employeeId"`
}

type AddItemRequest struct {
	ItemID   int64 `json:"itemId"`
	Quantity int   `json:"quantity"`
}

type SaleFinalizeRequest struct {
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CouponCode    string        `json:"couponCode,omitempty"`
}

type Rental struct {
	ID           string            `json:"id"`
	RentalNumber string            `json:"rentalNumber"`
	UserID       string            `json:"userId"`
	EmployeeID   string            `json:"employeeId"`
	Status       TransactionStatus `json:"status"`
	DepositCents int64             `json:"depositCents"`
	TotalCents   int64             `json:"totalCents"`
	DueDate      time.Time         `json:"dueDate"`
	ReturnedAt   *time.Time        `json:"returnedAt,omitempty"`
	Items        []LineItem        `json:"items"`
	CreatedAt    time.Time         `json:"createdAt"`
}

func (r Rental) Returned() bool {
	return r.ReturnedAt != nil || r.Status == StatusReturned
}

type RentalCreateRequest struct {
	UserID       string    `json:"userId"`
	EmployeeID   string    `json:"employeeId"`
	DueDate      time.Time `json:"dueDate"`
	DepositCents int64     `json:"depositCents"`
}

type RentalFinalizeRequest struct {
	TotalCents int64 `json:"totalCents"`
}

type RentalReturnRequest struct {
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
}

type SaleReturnRequest struct {
	SaleID      string `json:"saleId"`
	AmountCents int64  `json:"amountCents"`
	Reason      string `json:"reason,omitempty"`
}

type RentalReturnRecordRequest struct {
	RentalID    string `json:"rentalId"`
	AmountCents int64  `json:"amountCents"`
	Reason      string `json:"reason,omitempty"`
}

// LateFeeQuote is the backend's authoritative late-fee calculation.
type LateFeeQuote struct {
	RentalID           string    `json:"rentalId"`
	DueDate            time.Time `json:"dueDate"`
	ReturnedAt         time.Time `json:"returnedAt"`
	IsLate             bool      `json:"isLate"`
	DaysLate           int       `json:"daysLate"`
	LateFeePerDayCents int64     `json:"lateFeePerDayCents"`
	LateFeeCents       int64     `json:"lateFeeCents"`
	DepositCents       int64     `json:"depositCents"`
	RefundCents        int64     `json:"refundCents"`
}

// BalanceDueCents is what the customer still owes when the late fee
// exceeds the deposit.
func (q LateFeeQuote) BalanceDueCents() int64 {
	if q.RefundCents < 0 {
		return -q.RefundCents
	}
	return 0
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string   `json:"accessToken"`
	Employee    Identity `json:"employee"`
}

type SalesReport struct {
	TotalSales        int   `json:"totalSales"`
	TotalRevenueCents int64 `json:"totalRevenueCents"`
	TotalTaxCents     int64 `json:"totalTaxCents"`
}

type RentalReport struct {
	TotalRentals      int   `json:"totalRentals"`
	TotalRevenueCents int64 `json:"totalRevenueCents"`
	ActiveRentals     int   `json:"activeRentals"`
}

type InventoryReport struct {
	TotalItems      int   `json:"totalItems"`
	LowStock        int   `json:"lowStock"`
	TotalValueCents int64 `json:"totalValueCents"`
}

type Dashboard struct {
	Sales     SalesReport     `json:"sales"`
	Rentals   RentalReport    `json:"rentals"`
	Inventory InventoryReport `json:"inventory"`
}
