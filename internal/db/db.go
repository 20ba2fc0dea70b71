package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the Postgres connection pool.
type DB struct {
	*sql.DB
}

func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{conn}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	id UUID PRIMARY KEY,
	topic TEXT NOT NULL,
	status TEXT NOT NULL,
	script_asset_id UUID,
	audio_asset_id UUID,
	stats JSONB,
	error_code TEXT,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS episodes_status_created_idx ON episodes (status, created_at DESC);

CREATE TABLE IF NOT EXISTS jobs (
	id UUID PRIMARY KEY,
	episode_id UUID NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	attempts INT NOT NULL DEFAULT 0,
	started_at TIMESTAMPTZ,
	finished_at TIMESTAMPTZ,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS jobs_episode_idx ON jobs (episode_id, created_at);

CREATE TABLE IF NOT EXISTS assets (
	id UUID PRIMARY KEY,
	episode_id UUID NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	storage_bucket TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	content_type TEXT,
	byte_size BIGINT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS assets_episode_idx ON assets (episode_id, created_at);
`

// Migrate creates the episodes, jobs and assets tables when missing.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
