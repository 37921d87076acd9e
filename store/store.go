package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TIANLI0/TissueKit/config"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

var ErrNotFound = sql.ErrNoRows

const schema = `
create table if not exists users (
  id            bigserial primary key,
  username      text not null unique,
  email         text not null unique,
  password_hash text not null,
  roles         jsonb not null default '["user"]',
  created_at    timestamptz not null default now(),
  last_login    timestamptz
);

create table if not exists cases (
  id         bigserial primary key,
  case_name  text not null unique,
  created_at timestamptz not null default now()
);

create table if not exists images (
  id                          bigserial primary key,
  case_id                     bigint not null references cases(id) on delete cascade,
  filename                    text not null,
  content_type                text not null default '',
  height                      integer not null,
  width                       integer not null,
  data                        bytea not null,
  uploaded_at                 timestamptz not null default now(),
  uploaded_by                 text not null,
  compressed_analysis_results text not null
);

create index if not exists images_case_id_idx on images (case_id);
`

// Open connects to Postgres through the pgx stdlib driver and tunes the pool.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
