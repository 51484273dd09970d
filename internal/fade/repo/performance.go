package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
)

// PerformanceRepo guarda o snapshot único de performance (sobrescrito, não versionado)
type PerformanceRepo struct {
	db *sql.DB
}

func NewPerformanceRepo(db *sql.DB) *PerformanceRepo {
	return &PerformanceRepo{db: db}
}

func (r *PerformanceRepo) Save(ctx context.Context, s domain.PerformanceSnapshot) error {
	if s.ID == "" {
		s.ID = domain.PerformanceSnapshotID
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal performance: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO fade_performance (id, payload, last_updated)
		VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET
		  payload      = EXCLUDED.payload,
		  last_updated = EXCLUDED.last_updated`,
		s.ID, payload, s.LastUpdated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save performance: %w", err)
	}
	return nil
}

// Get lê o snapshot; ErrNotFound antes do primeiro cálculo
func (r *PerformanceRepo) Get(ctx context.Context) (domain.PerformanceSnapshot, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM fade_performance WHERE id=$1`, domain.PerformanceSnapshotID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PerformanceSnapshot{}, ErrNotFound
	}
	if err != nil {
		return domain.PerformanceSnapshot{}, fmt.Errorf("get performance: %w", err)
	}
	var s domain.PerformanceSnapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return domain.PerformanceSnapshot{}, fmt.Errorf("decode performance: %w", err)
	}
	return s, nil
}
