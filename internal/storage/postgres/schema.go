package postgres

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pools (
	chain_id      BIGINT      NOT NULL,
	pool_id       TEXT        NOT NULL,
	asset0        TEXT        NOT NULL,
	asset1        TEXT        NOT NULL,
	fee           INTEGER     NOT NULL,
	total_shares  NUMERIC(78) NOT NULL,
	reserve0      NUMERIC(78) NOT NULL,
	reserve1      NUMERIC(78) NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, pool_id)
);

CREATE TABLE IF NOT EXISTS pool_events (
	chain_id     BIGINT      NOT NULL,
	seq          BIGINT      NOT NULL,
	log_index    INTEGER     NOT NULL,
	call_hash    TEXT        NOT NULL,
	op           TEXT        NOT NULL,
	sender       TEXT        NOT NULL,
	topics       TEXT[]      NOT NULL,
	data         TEXT        NOT NULL,
	ts           BIGINT      NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, seq, log_index)
);

CREATE TABLE IF NOT EXISTS pool_window_metrics (
	chain_id            BIGINT      NOT NULL,
	pool_id             TEXT        NOT NULL,
	window_size_seconds BIGINT      NOT NULL,
	window_start_ts     TIMESTAMPTZ NOT NULL,
	window_end_ts       TIMESTAMPTZ NOT NULL,
	swap_count          BIGINT      NOT NULL,
	volume0             NUMERIC     NOT NULL,
	volume1             NUMERIC     NOT NULL,
	fee0                NUMERIC     NOT NULL,
	fee1                NUMERIC     NOT NULL,
	fee_rate0           TEXT,
	fee_rate1           TEXT,
	tvl0                TEXT,
	tvl1                TEXT,
	apr                 TEXT,
	fee_method          TEXT        NOT NULL,
	tvl_method          TEXT        NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, pool_id, window_size_seconds, window_start_ts)
);

CREATE TABLE IF NOT EXISTS processor_state (
	name              TEXT        PRIMARY KEY,
	last_processed_ts BIGINT      NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS engine_snapshots (
	chain_id   BIGINT      PRIMARY KEY,
	seq        BIGINT      NOT NULL,
	snapshot   JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
