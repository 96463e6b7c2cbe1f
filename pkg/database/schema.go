package database

import (
	"context"
	"fmt"
)

// schemaStatements are idempotent DDL executed in order. They create the
// full schema on an empty database and are no-ops on an initialized one.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS price_history_raw (
		id BIGSERIAL PRIMARY KEY,
		date DATE NOT NULL UNIQUE,
		sha256 VARCHAR(64) NOT NULL,
		payload JSONB NOT NULL,
		items_count INT NOT NULL DEFAULT 0,
		entries_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS price_history_entries (
		id BIGSERIAL PRIMARY KEY,
		date DATE NOT NULL,
		datetime TIMESTAMPTZ NOT NULL,
		item_name TEXT NOT NULL,
		order_type VARCHAR(10) NOT NULL,
		mod_rank INT NOT NULL,
		volume BIGINT,
		min_price BIGINT,
		max_price BIGINT,
		open_price BIGINT,
		closed_price BIGINT,
		avg_price DOUBLE PRECISION,
		wa_price DOUBLE PRECISION,
		median DOUBLE PRECISION,
		moving_avg DOUBLE PRECISION,
		donch_top BIGINT,
		donch_bot BIGINT,
		entry_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (date, datetime, item_name, order_type, mod_rank)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_closed_date
		ON price_history_entries (date) WHERE order_type = 'closed'`,
	`CREATE INDEX IF NOT EXISTS idx_entries_item
		ON price_history_entries (item_name, mod_rank)`,

	`CREATE TABLE IF NOT EXISTS ingestion_runs (
		id BIGSERIAL PRIMARY KEY,
		source TEXT NOT NULL,
		identifier TEXT NOT NULL,
		status VARCHAR(12) NOT NULL,
		started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ,
		metadata JSONB,
		sha256 VARCHAR(64),
		UNIQUE (source, identifier)
	)`,

	`CREATE TABLE IF NOT EXISTS flip_recommendations (
		id BIGSERIAL PRIMARY KEY,
		date DATE NOT NULL,
		item_name TEXT NOT NULL,
		mod_rank INT NOT NULL,
		rank INT NOT NULL,
		overall_score DOUBLE PRECISION NOT NULL,
		recommendation VARCHAR(8) NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		factors JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (date, item_name, mod_rank)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flips_date_rank
		ON flip_recommendations (date, rank)`,

	`CREATE TABLE IF NOT EXISTS market_trends (
		id BIGSERIAL PRIMARY KEY,
		date DATE NOT NULL,
		item_name TEXT NOT NULL,
		mod_rank INT NOT NULL,
		time_window VARCHAR(4) NOT NULL,
		trend_direction VARCHAR(10) NOT NULL,
		trend_strength DOUBLE PRECISION NOT NULL,
		price_change DOUBLE PRECISION NOT NULL,
		volume_change DOUBLE PRECISION NOT NULL,
		sma DOUBLE PRECISION NOT NULL,
		ema DOUBLE PRECISION,
		volatility DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (date, item_name, mod_rank, time_window)
	)`,

	`CREATE TABLE IF NOT EXISTS item_performance (
		id BIGSERIAL PRIMARY KEY,
		date DATE NOT NULL,
		item_name TEXT NOT NULL,
		mod_rank INT NOT NULL,
		price_change_percent DOUBLE PRECISION,
		volume_change_percent DOUBLE PRECISION NOT NULL,
		stability_score DOUBLE PRECISION NOT NULL,
		performance_rank DOUBLE PRECISION NOT NULL,
		liquidity_score DOUBLE PRECISION NOT NULL,
		volatility_score DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (date, item_name, mod_rank)
	)`,
}

// InitSchema applies the idempotent schema statements.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
