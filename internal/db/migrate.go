package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the full DDL. The service owns a small, stable schema, so
// it is applied idempotently at startup instead of through a migration
// tool.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS references_checked (
		id UUID PRIMARY KEY,
		url TEXT NOT NULL,
		domain TEXT,
		title TEXT,
		author TEXT,
		publication_date TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'processing',
		credibility_score INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_references_checked_status ON references_checked (status)`,
	`CREATE INDEX IF NOT EXISTS idx_references_checked_domain ON references_checked (domain)`,
	`CREATE INDEX IF NOT EXISTS idx_references_checked_created_at ON references_checked (created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS credibility_reports (
		id UUID PRIMARY KEY,
		reference_id UUID NOT NULL UNIQUE REFERENCES references_checked (id) ON DELETE CASCADE,
		domain_score INTEGER NOT NULL DEFAULT 0,
		metadata_score INTEGER NOT NULL DEFAULT 0,
		rag_score INTEGER NOT NULL DEFAULT 0,
		ai_score INTEGER NOT NULL DEFAULT 0,
		total_score INTEGER NOT NULL DEFAULT 0,
		domain_explanation TEXT,
		metadata_explanation TEXT,
		rag_explanation TEXT,
		ai_explanation TEXT,
		red_flags JSONB DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS domain_reputation (
		id UUID PRIMARY KEY,
		domain TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		base_score INTEGER NOT NULL,
		verified BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS trusted_sources (
		id UUID PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		content_text TEXT,
		embedding TEXT,
		domain TEXT,
		credibility_score INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema. Safe to run repeatedly.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for i, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
