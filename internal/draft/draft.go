package draft

import (
	"fmt"
	"strings"
	"time"

	"storepos/internal/domain"
)

type Kind string

const (
	KindSale   Kind = "SALE"
	KindRental Kind = "RENTAL"
)

type Line struct {
	ItemID         int64
	Name           string
	Quantity       int
	UnitPriceCents int64
	LineTotalCents int64
}

// StockError reports a quantity above the last known stock of an item.
type StockError struct {
	ItemID    int64
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, %d available", e.Name, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == domain.ErrOutOfStock
}

// Draft is an unsubmitted sale or rental. It keeps one line per item,
// never lets a line exceed the item's known stock, and recomputes its
// totals after every mutation. A Draft is owned by one form and is not
// safe for concurrent use.
type Draft struct {
	kind    Kind
	pricing Pricing
	stock   map[int64]domain.Item
	lines   []Line
	coupon  string
	totals  Totals

	customerID   string
	depositCents int64
	dueDate      time.Time
}

func New(kind Kind, pricing Pricing, inventory []domain.Item) *Draft {
	d := &Draft{kind: kind, pricing: pricing}
	d.SetInventory(inventory)
	d.recompute()
	return d
}

// SetInventory replaces the stock snapshot. Lines keep their unit price
// and quantity; the ids of lines now above stock are returned.
func (d *Draft) SetInventory(items []domain.Item) []int64 {
	d.stock = make(map[int64]domain.Item, len(items))
	for _, item := range items {
		d.stock[item.ID] = item
	}
	var over []int64
	for _, line := range d.lines {
		if item, ok := d.stock[line.ItemID]; !ok || line.Quantity > item.Quantity {
			over = append(over, line.ItemID)
		}
	}
	return over
}

func (d *Draft) AddLine(itemID int64, quantity int) error {
	if quantity <= 0 {
		return domain.NewValidationError("quantity", "Quantity must be at least 1")
	}
	item, ok := d.stock[itemID]
	if !ok {
		return domain.NewValidationError("itemId", fmt.Sprintf("Unknown item %d", itemID))
	}

	idx := d.indexOf(itemID)
	merged := quantity
	if idx >= 0 {
		merged += d.lines[idx].Quantity
	}
	if merged > item.Quantity {
		return &StockError{ItemID: itemID, Name: item.Name, Requested: merged, Available: item.Quantity}
	}

	if idx >= 0 {
		d.lines[idx].Quantity = merged
		d.lines[idx].LineTotalCents = d.lines[idx].UnitPriceCents * int64(merged)
	} else {
		d.lines = append(d.lines, Line{
			ItemID:         itemID,
			Name:           item.Name,
			Quantity:       quantity,
			UnitPriceCents: item.PriceCents,
			LineTotalCents: item.PriceCents * int64(quantity),
		})
	}
	d.recompute()
	return nil
}

// UpdateLineQuantity sets the quantity of an existing line. Zero or less
// removes the line.
func (d *Draft) UpdateLineQuantity(itemID int64, quantity int) error {
	idx := d.indexOf(itemID)
	if quantity <= 0 {
		if idx >= 0 {
			d.removeAt(idx)
		}
		return nil
	}
	if idx < 0 {
		return fmt.Errorf("item %d is not in the draft: %w", itemID, domain.ErrNotFound)
	}
	if item, ok := d.stock[itemID]; !ok || quantity > item.Quantity {
		available := 0
		if ok {
			available = item.Quantity
		}
		return &StockError{ItemID: itemID, Name: d.lines[idx].Name, Requested: quantity, Available: available}
	}
	d.lines[idx].Quantity = quantity
	d.lines[idx].LineTotalCents = d.lines[idx].UnitPriceCents * int64(quantity)
	d.recompute()
	return nil
}

func (d *Draft) RemoveLine(itemID int64) bool {
	idx := d.indexOf(itemID)
	if idx < 0 {
		return false
	}
	d.removeAt(idx)
	return true
}

// ApplyCoupon sets the coupon code used at finalize. A blank code
// removes the coupon.
func (d *Draft) ApplyCoupon(code string) {
	d.coupon = strings.ToUpper(strings.TrimSpace(code))
	d.recompute()
}

func (d *Draft) Reset() {
	d.lines = nil
	d.coupon = ""
	d.customerID = ""
	d.depositCents = 0
	d.dueDate = time.Time{}
	d.recompute()
}

func (d *Draft) SetCustomer(id string) {
	d.customerID = strings.TrimSpace(id)
}

func (d *Draft) SetDeposit(cents int64) error {
	if cents < 0 {
		return domain.NewValidationError("depositCents", "Deposit must not be negative")
	}
	d.depositCents = cents
	return nil
}

func (d *Draft) SetDueDate(due time.Time) {
	d.dueDate = due
}

func (d *Draft) Kind() Kind           { return d.kind }
func (d *Draft) Coupon() string       { return d.coupon }
func (d *Draft) Totals() Totals       { return d.totals }
func (d *Draft) IsEmpty() bool        { return len(d.lines) == 0 }
func (d *Draft) CustomerID() string   { return d.customerID }
func (d *Draft) DepositCents() int64  { return d.depositCents }
func (d *Draft) DueDate() time.Time   { return d.dueDate }
func (d *Draft) TotalDueCents() int64 { return d.totals.TotalCents + d.depositCents }
func (d *Draft) Item(id int64) (domain.Item, bool) {
	item, ok := d.stock[id]
	return item, ok
}

func (d *Draft) Lines() []Line {
	out := make([]Line, len(d.lines))
	copy(out, d.lines)
	return out
}

func (d *Draft) indexOf(itemID int64) int {
	for i, line := range d.lines {
		if line.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (d *Draft) removeAt(idx int) {
	d.lines = append(d.lines[:idx], d.lines[idx+1:]...)
	d.recompute()
}

func (d *Draft) recompute() {
	var subtotal int64
	for _, line := range d.lines {
		subtotal += line.LineTotalCents
	}
	d.totals = d.pricing.Compute(subtotal, d.coupon != "")
}
