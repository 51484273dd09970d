package repo

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema cria as tabelas do fade tracker. O índice único parcial em status='pending'
// é a fronteira de serialização do dedup de alertas.
const Schema = `
CREATE TABLE IF NOT EXISTS fade_alerts (
  id                  UUID PRIMARY KEY,
  game_id             TEXT NOT NULL,
  sport               TEXT NOT NULL,
  market              TEXT NOT NULL,
  faded_outcome_label TEXT NOT NULL,
  faded_value         DOUBLE PRECISION,
  odds                INTEGER NOT NULL,
  implied_probability DOUBLE PRECISION NOT NULL,
  tickets_percent     DOUBLE PRECISION NOT NULL,
  money_percent       DOUBLE PRECISION NOT NULL,
  rating              SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
  reason              TEXT NOT NULL DEFAULT '',
  date                CHAR(8) NOT NULL,
  status              TEXT NOT NULL DEFAULT 'pending'
                      CHECK (status IN ('pending','won','lost','error')),
  created_at          TIMESTAMPTZ NOT NULL,
  updated_at          TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS fade_alerts_pending_identity
  ON fade_alerts (game_id, market, faded_outcome_label, date)
  WHERE status = 'pending';

CREATE INDEX IF NOT EXISTS fade_alerts_status_idx ON fade_alerts (status);
CREATE INDEX IF NOT EXISTS fade_alerts_created_at_idx ON fade_alerts (created_at);
CREATE INDEX IF NOT EXISTS fade_alerts_date_idx ON fade_alerts (date);

CREATE TABLE IF NOT EXISTS games (
  game_id    TEXT PRIMARY KEY,
  sport      TEXT NOT NULL,
  date       CHAR(8) NOT NULL,
  status     TEXT NOT NULL,
  start_time TIMESTAMPTZ,
  payload    JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS games_sport_date_idx ON games (sport, date);

CREATE TABLE IF NOT EXISTS fade_performance (
  id           TEXT PRIMARY KEY,
  payload      JSONB NOT NULL,
  last_updated TIMESTAMPTZ NOT NULL
);
`

// Migrate aplica o Schema (idempotente)
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
