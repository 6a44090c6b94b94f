package domain

import (
	"fmt"
	"strings"
)

// Validator is implemented by every payload that crosses the HTTP
// boundary in either direction.
type Validator interface {
	Validate() error
}

func required(field, value, message string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, message)
	}
	return nil
}

func nonNegative(field string, value int64) error {
	if value < 0 {
		return NewValidationError(field, fmt.Sprintf("%s must not be negative", field))
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (i Identity) Validate() error {
	if !i.Position.Valid() {
		return NewValidationError("position", fmt.Sprintf("unknown position %q", i.Position))
	}
	return firstError(
		required("id", i.ID, "employee id is required"),
		required("username", i.Username, "username is required"),
	)
}

func (i Item) Validate() error {
	if i.ID <= 0 {
		return NewValidationError("id", "item id must be positive")
	}
	return firstError(
		required("name", i.Name, "item name is required"),
		nonNegative("priceCents", i.PriceCents),
		nonNegative("quantity", int64(i.Quantity)),
	)
}

func (r ItemCreateRequest) Validate() error {
	if r.ID <= 0 {
		return NewValidationError("id", "item id must be positive")
	}
	return firstError(
		required("name", r.Name, "item name is required"),
		nonNegative("priceCents", r.PriceCents),
		nonNegative("quantity", int64(r.Quantity)),
	)
}

func (r ItemUpdateRequest) Validate() error {
	if r.Name != nil {
		if err := required("name", *r.Name, "item name is required"); err != nil {
			return err
		}
	}
	if r.PriceCents != nil {
		if err := nonNegative("priceCents", *r.PriceCents); err != nil {
			return err
		}
	}
	if r.Quantity != nil {
		return nonNegative("quantity", int64(*r.Quantity))
	}
	return nil
}

func (c Customer) Validate() error {
	return firstError(
		required("id", c.ID, "customer id is required"),
		required("name", c.Name, "customer name is required"),
		nonNegative("creditValueCents", c.CreditValueCents),
	)
}

func (r CustomerCreateRequest) Validate() error {
	return firstError(
		required("name", r.Name, "Name is required"),
		required("phone", r.Phone, "Phone is required"),
	)
}

func (r CustomerUpdateRequest) Validate() error {
	if r.Name != nil {
		if err := required("name", *r.Name, "Name is required"); err != nil {
			return err
		}
	}
	if r.CreditValueCents != nil {
		return nonNegative("creditValueCents", *r.CreditValueCents)
	}
	return nil
}

func (e Employee) Validate() error {
	if !e.Position.Valid() {
		return NewValidationError("position", fmt.Sprintf("unknown position %q", e.Position))
	}
	return firstError(
		required("id", e.ID, "employee id is required"),
		required("username", e.Username, "username is required"),
	)
}

func (r EmployeeCreateRequest) Validate() error {
	if !r.Position.Valid() {
		return NewValidationError("position", "position must be ADMIN or CASHIER")
	}
	if len(r.Password) < 6 {
		return NewValidationError("password", "password must be at least 6 characters")
	}
	return required("username", r.Username, "username is required")
}

func (r EmployeeUpdateRequest) Validate() error {
	if r.Position != nil && !r.Position.Valid() {
		return NewValidationError("position", "position must be ADMIN or CASHIER")
	}
	if r.Password != nil && len(*r.Password) < 6 {
		return NewValidationError("password", "password must be at least 6 characters")
	}
	if r.Username != nil {
		return required("username", *r.Username, "username is required")
	}
	return nil
}

func validPercent(p int) error {
	if p < 0 || p > 100 {
		return NewValidationError("discountPercent", "discount percent must be between 0 and 100")
	}
	return nil
}

func (c Coupon) Validate() error {
	return firstError(
		required("id", c.ID, "coupon id is required"),
		required("code", c.Code, "coupon code is required"),
		validPercent(c.DiscountPercent),
	)
}

func (r CouponCreateRequest) Validate() error {
	return firstError(
		required("code", r.Code, "Coupon code is required"),
		validPercent(r.DiscountPercent),
	)
}

func (r CouponUpdateRequest) Validate() error {
	if r.Code != nil {
		if err := required("code", *r.Code, "Coupon code is required"); err != nil {
			return err
		}
	}
	if r.DiscountPercent != nil {
		return validPercent(*r.DiscountPercent)
	}
	return nil
}

func (l LineItem) Validate() error {
	if l.ItemID <= 0 {
		return NewValidationError("itemId", "item id must be positive")
	}
	if l.Quantity <= 0 {
		return NewValidationError("quantity", "line quantity must be positive")
	}
	if l.UnitPriceCents < 0 {
		return NewValidationError("unitPriceCents", "unit price must not be negative")
	}
	if l.LineTotalCents != l.UnitPriceCents*int64(l.Quantity) {
		return NewValidationError("lineTotalCents", "line total does not match quantity and unit price")
	}
	return nil
}

func validateLines(lines []LineItem) error {
	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r ReturnRecord) Validate() error {
	if err := required("id", r.ID, "return id is required"); err != nil {
		return err
	}
	switch r.Type {
	case ReturnSale:
		return required("saleId", r.SaleID, "sale return without sale id")
	case ReturnRental:
		return required("rentalId", r.RentalID, "rental return without rental id")
	}
	return NewValidationError("type", fmt.Sprintf("unknown return type %q", r.Type))
}

func (s Sale) Validate() error {
	if err := firstError(
		required("id", s.ID, "sale id is required"),
		nonNegative("subtotalCents", s.SubtotalCents),
		nonNegative("taxCents", s.TaxCents),
		nonNegative("discountCents", s.DiscountCents),
		nonNegative("totalCents", s.TotalCents),
	); err != nil {
		return err
	}
	if s.PaymentMethod != "" && !s.PaymentMethod.Valid() {
		return NewValidationError("paymentMethod", fmt.Sprintf("unknown payment method %q", s.PaymentMethod))
	}
	for _, rec := range s.ReturnRecords {
		if err := rec.Validate(); err != nil {
			return err
		}
	}
	return validateLines(s.Items)
}

func (r SaleCreateRequest) Validate() error {
	return required("employeeId", r.EmployeeID, "Not logged in")
}

func (r AddItemRequest) Validate() error {
	if r.ItemID <= 0 {
		return NewValidationError("itemId", "Select an item")
	}
	if r.Quantity <= 0 {
		return NewValidationError("quantity", "Quantity must be at least 1")
	}
	return nil
}

func (r SaleFinalizeRequest) Validate() error {
	if !r.PaymentMethod.Valid() {
		return NewValidationError("paymentMethod", "Select a payment method")
	}
	return nil
}

func (r Rental) Validate() error {
	if err := firstError(
		required("id", r.ID, "rental id is required"),
		required("userId", r.UserID, "rental without customer"),
		nonNegative("depositCents", r.DepositCents),
		nonNegative("totalCents", r.TotalCents),
	); err != nil {
		return err
	}
	if r.DueDate.IsZero() {
		return NewValidationError("dueDate", "rental without due date")
	}
	return validateLines(r.Items)
}

func (r RentalCreateRequest) Validate() error {
	if err := firstError(
		required("userId", r.UserID, "Select a customer"),
		required("employeeId", r.EmployeeID, "Not logged in"),
	); err != nil {
		return err
	}
	if r.DueDate.IsZero() {
		return NewValidationError("dueDate", "Select a due date")
	}
	return nonNegative("depositCents", r.DepositCents)
}

func (r RentalFinalizeRequest) Validate() error {
	return nonNegative("totalCents", r.TotalCents)
}

func (r SaleReturnRequest) Validate() error {
	return firstError(
		required("saleId", r.SaleID, "Select a sale"),
		nonNegative("amountCents", r.AmountCents),
	)
}

// Rental refunds may be negative when the late fee exceeds the deposit.
func (r RentalReturnRecordRequest) Validate() error {
	return required("rentalId", r.RentalID, "Select a rental")
}

func (q LateFeeQuote) Validate() error {
	if q.DaysLate < 0 {
		return NewValidationError("daysLate", "days late must not be negative")
	}
	return firstError(
		required("rentalId", q.RentalID, "quote without rental id"),
		nonNegative("lateFeeCents", q.LateFeeCents),
		nonNegative("lateFeePerDayCents", q.LateFeePerDayCents),
		nonNegative("depositCents", q.DepositCents),
	)
}

func (r LoginRequest) Validate() error {
	return firstError(
		required("username", r.Username, "Username is required"),
		required("password", r.Password, "Password is required"),
	)
}

func (r LoginResponse) Validate() error {
	if err := required("accessToken", r.AccessToken, "login response without token"); err != nil {
		return err
	}
	return r.Employee.Validate()
}

func (r SalesReport) Validate() error {
	return firstError(
		nonNegative("totalSales", int64(r.TotalSales)),
		nonNegative("totalRevenueCents", r.TotalRevenueCents),
		nonNegative("totalTaxCents", r.TotalTaxCents),
	)
}

func (r RentalReport) Validate() error {
	return firstError(
		nonNegative("totalRentals", int64(r.TotalRentals)),
		nonNegative("activeRentals", int64(r.ActiveRentals)),
	)
}

func (r InventoryReport) Validate() error {
	return firstError(
		nonNegative("totalItems", int64(r.TotalItems)),
		nonNegative("lowStock", int64(r.LowStock)),
		nonNegative("totalValueCents", r.TotalValueCents),
	)
}
