package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"storepos/internal/domain"
	"storepos/internal/store"
	"storepos/internal/xid"
)

const (
	ownerSale   = "SALE"
	ownerRental = "RENTAL"
)

type Store struct {
	db *sql.DB
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Migrate creates any missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price_cents, quantity, created_at
		FROM items
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.PriceCents, &item.Quantity, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	var item domain.Item
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price_cents, quantity, created_at
		FROM items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.PriceCents, &item.Quantity, &item.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, price_cents, quantity, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, item.ID, item.Name, item.PriceCents, item.Quantity, item.CreatedAt)
	if err != nil {
		return nil, duplicate(err)
	}
	return &item, nil
}

func (s *Store) UpdateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET name = $2, price_cents = $3, quantity = $4
		WHERE id = $1
	`, item.ID, item.Name, item.PriceCents, item.Quantity)
	if err := affected(res, err); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	return affected(res, err)
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, COALESCE(email, ''), has_credit, credit_value_cents, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.HasCredit, &c.CreditValueCents, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, COALESCE(email, ''), has_credit, credit_value_cents, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.HasCredit, &c.CreditValueCents, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, has_credit, credit_value_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, c.ID, c.Name, c.Phone, nullIfEmpty(c.Email), c.HasCredit, c.CreditValueCents, c.CreatedAt)
	if err != nil {
		return nil, duplicate(err)
	}
	return &c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers SET name = $2, phone = $3, email = $4, has_credit = $5, credit_value_cents = $6
		WHERE id = $1
	`, c.ID, c.Name, c.Phone, nullIfEmpty(c.Email), c.HasCredit, c.CreditValueCents)
	if err := affected(res, err); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	return affected(res, err)
}

func (s *Store) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, position, is_active, created_at
		FROM employees
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0, 16)
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.Username, &e.Position, &e.IsActive, &e.CreatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*store.EmployeeAccount, error) {
	return s.findEmployee(ctx, `id = $1`, id)
}

func (s *Store) GetEmployeeByUsername(ctx context.Context, username string) (*store.EmployeeAccount, error) {
	return s.findEmployee(ctx, `lower(username) = lower($1)`, username)
}

func (s *Store) findEmployee(ctx context.Context, where string, arg string) (*store.EmployeeAccount, error) {
	var a store.EmployeeAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, position, is_active, created_at
		FROM employees
		WHERE `+where, arg).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Position, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Store) CreateEmployee(ctx context.Context, a store.EmployeeAccount) (*domain.Employee, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, username, password_hash, position, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, a.ID, a.Username, a.PasswordHash, a.Position, a.IsActive, a.CreatedAt)
	if err != nil {
		return nil, duplicate(err)
	}
	return &a.Employee, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, a store.EmployeeAccount) (*domain.Employee, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE employees SET username = $2, password_hash = $3, position = $4, is_active = $5
		WHERE id = $1
	`, a.ID, a.Username, a.PasswordHash, a.Position, a.IsActive)
	if err != nil {
		return nil, duplicate(err)
	}
	if err := affected(res, nil); err != nil {
		return nil, err
	}
	return &a.Employee, nil
}

func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	return affected(res, err)
}

func (s *Store) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, discount_percent, is_active, created_at
		FROM coupons
		ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coupons := make([]domain.Coupon, 0, 16)
	for rows.Next() {
		var c domain.Coupon
		if err := rows.Scan(&c.ID, &c.Code, &c.DiscountPercent, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

func (s *Store) GetCoupon(ctx context.Context, id string) (*domain.Coupon, error) {
	return s.findCoupon(ctx, `id = $1`, id)
}

func (s *Store) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return s.findCoupon(ctx, `upper(code) = upper($1)`, code)
}

func (s *Store) findCoupon(ctx context.Context, where string, arg string) (*domain.Coupon, error) {
	var c domain.Coupon
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, discount_percent, is_active, created_at
		FROM coupons
		WHERE `+where, arg).Scan(&c.ID, &c.Code, &c.DiscountPercent, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CreateCoupon(ctx context.Context, c domain.Coupon) (*domain.Coupon, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coupons (id, code, discount_percent, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, c.ID, c.Code, c.DiscountPercent, c.IsActive, c.CreatedAt)
	if err != nil {
		return nil, duplicate(err)
	}
	return &c, nil
}

func (s *Store) UpdateCoupon(ctx context.Context, c domain.Coupon) (*domain.Coupon, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE coupons SET code = $2, discount_percent = $3, is_active = $4
		WHERE id = $1
	`, c.ID, c.Code, c.DiscountPercent, c.IsActive)
	if err != nil {
		return nil, duplicate(err)
	}
	if err := affected(res, nil); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) DeleteCoupon(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	return affected(res, err)
}

const saleColumns = `id, employee_id, status, subtotal_cents, tax_cents, discount_cents, total_cents,
	COALESCE(payment_method, ''), COALESCE(coupon_code, ''), created_at`

func scanSale(row interface{ Scan(...any) error }) (domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(&sale.ID, &sale.EmployeeID, &sale.Status, &sale.SubtotalCents, &sale.TaxCents,
		&sale.DiscountCents, &sale.TotalCents, &sale.PaymentMethod, &sale.CouponCode, &sale.CreatedAt)
	return sale, err
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range sales {
		if sales[i].Items, err = loadLines(ctx, s.db, ownerSale, sales[i].ID); err != nil {
			return nil, err
		}
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	if sale.Items, err = loadLines(ctx, s.db, ownerSale, id); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) SaveSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertSale(ctx, tx, sale); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) FinalizeSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := takeStock(ctx, tx, sale.Items); err != nil {
		return nil, err
	}
	if err := upsertSale(ctx, tx, sale); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func upsertSale(ctx context.Context, q queryer, sale domain.Sale) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sales (id, employee_id, status, subtotal_cents, tax_cents, discount_cents, total_cents, payment_method, coupon_code, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			subtotal_cents = EXCLUDED.subtotal_cents,
			tax_cents = EXCLUDED.tax_cents,
			discount_cents = EXCLUDED.discount_cents,
			total_cents = EXCLUDED.total_cents,
			payment_method = EXCLUDED.payment_method,
			coupon_code = EXCLUDED.coupon_code
	`, sale.ID, sale.EmployeeID, sale.Status, sale.SubtotalCents, sale.TaxCents, sale.DiscountCents,
		sale.TotalCents, nullIfEmpty(string(sale.PaymentMethod)), nullIfEmpty(sale.CouponCode), sale.CreatedAt)
	if err != nil {
		return err
	}
	return replaceLines(ctx, q, ownerSale, sale.ID, sale.Items)
}

const rentalColumns = `id, rental_number, user_id, employee_id, status, deposit_cents, total_cents, due_date, returned_at, created_at`

func scanRental(row interface{ Scan(...any) error }) (domain.Rental, error) {
	var r domain.Rental
	var returnedAt sql.NullTime
	err := row.Scan(&r.ID, &r.RentalNumber, &r.UserID, &r.EmployeeID, &r.Status, &r.DepositCents,
		&r.TotalCents, &r.DueDate, &returnedAt, &r.CreatedAt)
	if returnedAt.Valid {
		at := returnedAt.Time.UTC()
		r.ReturnedAt = &at
	}
	return r, err
}

func (s *Store) ListRentals(ctx context.Context) ([]domain.Rental, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+rentalColumns+` FROM rentals ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	rentals := make([]domain.Rental, 0, 64)
	for rows.Next() {
		r, err := scanRental(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		rentals = append(rentals, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range rentals {
		if rentals[i].Items, err = loadLines(ctx, s.db, ownerRental, rentals[i].ID); err != nil {
			return nil, err
		}
	}
	return rentals, nil
}

func (s *Store) GetRental(ctx context.Context, id string) (*domain.Rental, error) {
	return getRental(ctx, s.db, id, false)
}

func getRental(ctx context.Context, q queryer, id string, forUpdate bool) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	r, err := scanRental(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	if r.Items, err = loadLines(ctx, q, ownerRental, id); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SaveRental(ctx context.Context, rental domain.Rental) (*domain.Rental, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertRental(ctx, tx, rental); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &rental, nil
}

func (s *Store) FinalizeRental(ctx context.Context, rental domain.Rental) (*domain.Rental, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := takeStock(ctx, tx, rental.Items); err != nil {
		return nil, err
	}
	if err := upsertRental(ctx, tx, rental); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &rental, nil
}

func (s *Store) MarkRentalReturned(ctx context.Context, id string, at time.Time) (*domain.Rental, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rental, err := getRental(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if rental.Returned() {
		return nil, store.ErrAlreadyReturned
	}
	if err := markReturned(ctx, tx, rental, at); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rental, nil
}

func markReturned(ctx context.Context, q queryer, rental *domain.Rental, at time.Time) error {
	at = at.UTC()
	rental.ReturnedAt = &at
	rental.Status = domain.StatusReturned
	if _, err := q.ExecContext(ctx, `
		UPDATE rentals SET status = $2, returned_at = $3 WHERE id = $1
	`, rental.ID, rental.Status, at); err != nil {
		return err
	}
	return putBack(ctx, q, rental.Items)
}

func upsertRental(ctx context.Context, q queryer, r domain.Rental) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO rentals (id, rental_number, user_id, employee_id, status, deposit_cents, total_cents, due_date, returned_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			deposit_cents = EXCLUDED.deposit_cents,
			total_cents = EXCLUDED.total_cents,
			due_date = EXCLUDED.due_date,
			returned_at = EXCLUDED.returned_at
	`, r.ID, r.RentalNumber, r.UserID, r.EmployeeID, r.Status, r.DepositCents, r.TotalCents,
		r.DueDate, nullTime(r.ReturnedAt), r.CreatedAt)
	if err != nil {
		return err
	}
	return replaceLines(ctx, q, ownerRental, r.ID, r.Items)
}

func (s *Store) ListReturns(ctx context.Context) ([]domain.ReturnRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, COALESCE(sale_id, ''), COALESCE(rental_id, ''), amount_cents, COALESCE(reason, ''), created_at
		FROM return_records
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.ReturnRecord, 0, 32)
	for rows.Next() {
		var rec domain.ReturnRecord
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.SaleID, &rec.RentalID, &rec.AmountCents, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) RecordReturn(ctx context.Context, rec domain.ReturnRecord) (*domain.ReturnRecord, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	switch rec.Type {
	case domain.ReturnSale:
		sale, err := scanSale(tx.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, rec.SaleID))
		if err != nil {
			return nil, notFound(err)
		}
		if sale.Status == domain.StatusReturned {
			return nil, store.ErrAlreadyReturned
		}
		if sale.Status != domain.StatusFinalized {
			return nil, store.ErrInvalidTransaction
		}
		lines, err := loadLines(ctx, tx, ownerSale, sale.ID)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE sales SET status = $2 WHERE id = $1`, sale.ID, domain.StatusReturned); err != nil {
			return nil, err
		}
		if err := putBack(ctx, tx, lines); err != nil {
			return nil, err
		}
	case domain.ReturnRental:
		rental, err := getRental(ctx, tx, rec.RentalID, true)
		if err != nil {
			return nil, err
		}
		if rental.Status != domain.StatusFinalized && rental.Status != domain.StatusReturned {
			return nil, store.ErrInvalidTransaction
		}
		if !rental.Returned() {
			if err := markReturned(ctx, tx, rental, rec.CreatedAt); err != nil {
				return nil, err
			}
		}
	default:
		return nil, store.ErrInvalidTransaction
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO return_records (id, type, sale_id, rental_id, amount_cents, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, rec.ID, rec.Type, nullIfEmpty(rec.SaleID), nullIfEmpty(rec.RentalID), rec.AmountCents, nullIfEmpty(rec.Reason), rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyReturned
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func loadLines(ctx context.Context, q queryer, kind, ownerID string) ([]domain.LineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, item_id, quantity, unit_price_cents, line_total_cents
		FROM line_items
		WHERE owner_kind = $1 AND owner_id = $2
		ORDER BY item_id
	`, kind, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.LineItem, 0, 8)
	for rows.Next() {
		var l domain.LineItem
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Quantity, &l.UnitPriceCents, &l.LineTotalCents); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func replaceLines(ctx context.Context, q queryer, kind, ownerID string, lines []domain.LineItem) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM line_items WHERE owner_kind = $1 AND owner_id = $2`, kind, ownerID); err != nil {
		return err
	}
	for _, l := range lines {
		id := l.ID
		if id == "" {
			id = xid.New("line")
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO line_items (id, owner_kind, owner_id, item_id, quantity, unit_price_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, id, kind, ownerID, l.ItemID, l.Quantity, l.UnitPriceCents, l.LineTotalCents); err != nil {
			return err
		}
	}
	return nil
}

// takeStock locks the affected rows and fails before writing anything
// when a line cannot be covered.
func takeStock(ctx context.Context, q queryer, lines []domain.LineItem) error {
	wanted := make(map[int64]int, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, seen := wanted[l.ItemID]; !seen {
			ids = append(ids, l.ItemID)
		}
		wanted[l.ItemID] += l.Quantity
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, name, quantity FROM items WHERE id = ANY($1) FOR UPDATE
	`, ids)
	if err != nil {
		return err
	}
	found := 0
	for rows.Next() {
		var id int64
		var name string
		var qty int
		if err := rows.Scan(&id, &name, &qty); err != nil {
			_ = rows.Close()
			return err
		}
		found++
		if qty < wanted[id] {
			_ = rows.Close()
			return &store.StockError{ItemID: id, Name: name, Requested: wanted[id], Available: qty}
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()
	if found != len(ids) {
		return store.ErrNotFound
	}

	for id, qty := range wanted {
		if _, err := q.ExecContext(ctx, `UPDATE items SET quantity = quantity - $2 WHERE id = $1`, id, qty); err != nil {
			return err
		}
	}
	return nil
}

func putBack(ctx context.Context, q queryer, lines []domain.LineItem) error {
	for _, l := range lines {
		if _, err := q.ExecContext(ctx, `UPDATE items SET quantity = quantity + $2 WHERE id = $1`, l.ItemID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
