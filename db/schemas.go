package db

var schema = `
CREATE TABLE IF NOT EXISTS event_nodes (
	event_id UUID PRIMARY KEY,
	kind VARCHAR(16) NOT NULL CHECK (kind IN ('owner', 'dependent')),
	parent_id UUID REFERENCES event_nodes (event_id),
	title VARCHAR(255) NOT NULL,
	starts_at TIMESTAMPTZ NOT NULL,
	ends_at TIMESTAMPTZ NOT NULL,
	price_amount NUMERIC(10, 2) NOT NULL DEFAULT 0,
	price_currency CHAR(3) NOT NULL DEFAULT '',
	is_free BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK ((kind = 'owner') = (parent_id IS NULL))
);

CREATE TABLE IF NOT EXISTS capacity_records (
	event_id UUID PRIMARY KEY REFERENCES event_nodes (event_id),
	total_capacity INT NOT NULL CHECK (total_capacity >= -1),
	tickets_left INT NOT NULL,
	sold_out BOOLEAN NOT NULL,
	CHECK (
		(total_capacity = -1 AND tickets_left = -1 AND NOT sold_out)
		OR (total_capacity >= 0 AND tickets_left BETWEEN 0 AND total_capacity AND sold_out = (tickets_left <= 0))
	)
);

CREATE TABLE IF NOT EXISTS orders (
	order_id UUID PRIMARY KEY,
	target_node_id UUID NOT NULL REFERENCES event_nodes (event_id),
	pool_owner_id UUID NOT NULL REFERENCES capacity_records (event_id),
	buyer_id UUID NOT NULL,
	ticket_count INT NOT NULL CHECK (ticket_count > 0),
	amount NUMERIC(10, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	payment_state VARCHAR(16) NOT NULL CHECK (payment_state IN ('free', 'pending', 'paid', 'cancelled')),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS orders_pending_idx ON orders (created_at) WHERE payment_state = 'pending';

CREATE TABLE IF NOT EXISTS tickets (
	ticket_id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders (order_id),
	seq INT NOT NULL,
	event_id UUID NOT NULL REFERENCES event_nodes (event_id),
	pool_owner_id UUID NOT NULL,
	user_id UUID NOT NULL,
	entry_code VARCHAR(16) NOT NULL,
	status VARCHAR(16) NOT NULL CHECK (status IN ('active', 'used', 'expired', 'cancelled')),
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	used_at TIMESTAMPTZ,
	CONSTRAINT tickets_order_id_seq_key UNIQUE (order_id, seq)
);

CREATE UNIQUE INDEX IF NOT EXISTS tickets_active_entry_code_idx ON tickets (pool_owner_id, entry_code) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS tickets_entry_code_idx ON tickets (pool_owner_id, entry_code, created_at);
`
