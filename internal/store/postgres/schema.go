package postgres

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id          BIGINT PRIMARY KEY,
	name        TEXT NOT NULL,
	price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
	quantity    INTEGER NOT NULL CHECK (quantity >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS customers (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	phone              TEXT NOT NULL,
	email              TEXT,
	has_credit         BOOLEAN NOT NULL DEFAULT false,
	credit_value_cents BIGINT NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS employees (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	position      TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT true,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS coupons (
	id               TEXT PRIMARY KEY,
	code             TEXT NOT NULL UNIQUE,
	discount_percent INTEGER NOT NULL,
	is_active        BOOLEAN NOT NULL DEFAULT true,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sales (
	id             TEXT PRIMARY KEY,
	employee_id    TEXT NOT NULL,
	status         TEXT NOT NULL,
	subtotal_cents BIGINT NOT NULL DEFAULT 0,
	tax_cents      BIGINT NOT NULL DEFAULT 0,
	discount_cents BIGINT NOT NULL DEFAULT 0,
	total_cents    BIGINT NOT NULL DEFAULT 0,
	payment_method TEXT,
	coupon_code    TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rentals (
	id            TEXT PRIMARY KEY,
	rental_number TEXT NOT NULL,
	user_id       TEXT NOT NULL,
	employee_id   TEXT NOT NULL,
	status        TEXT NOT NULL,
	deposit_cents BIGINT NOT NULL DEFAULT 0,
	total_cents   BIGINT NOT NULL DEFAULT 0,
	due_date      TIMESTAMPTZ NOT NULL,
	returned_at   TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS line_items (
	id               TEXT PRIMARY KEY,
	owner_kind       TEXT NOT NULL,
	owner_id         TEXT NOT NULL,
	item_id          BIGINT NOT NULL,
	quantity         INTEGER NOT NULL,
	unit_price_cents BIGINT NOT NULL,
	line_total_cents BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS line_items_owner_idx ON line_items (owner_kind, owner_id);

CREATE TABLE IF NOT EXISTS return_records (
	id           TEXT PRIMARY KEY,
	type         TEXT NOT NULL,
	sale_id      TEXT UNIQUE,
	rental_id    TEXT UNIQUE,
	amount_cents BIGINT NOT NULL,
	reason       TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
