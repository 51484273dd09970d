package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
)

// GameRepo guarda o snapshot corrente de cada jogo normalizado
type GameRepo struct {
	db *sql.DB
}

func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

// Upsert grava o jogo; snapshots mais antigos que o gravado são ignorados.
// applied=false indica que o banco manteve a versão mais nova.
func (r *GameRepo) Upsert(ctx context.Context, g domain.NormalizedGame) (applied bool, err error) {
	payload, err := json.Marshal(g)
	if err != nil {
		return false, fmt.Errorf("marshal game %s: %w", g.GameID, err)
	}
	var start sql.NullTime
	if !g.StartTime.IsZero() {
		start = sql.NullTime{Time: g.StartTime, Valid: true}
	}

	const q = `
		INSERT INTO games (game_id, sport, date, status, start_time, payload, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (game_id) DO UPDATE SET
		  sport      = EXCLUDED.sport,
		  date       = EXCLUDED.date,
		  status     = EXCLUDED.status,
		  start_time = EXCLUDED.start_time,
		  payload    = EXCLUDED.payload,
		  updated_at = EXCLUDED.updated_at
		WHERE games.updated_at <= EXCLUDED.updated_at
	`
	res, err := r.db.ExecContext(ctx, q,
		g.GameID, string(g.Sport), g.Date, string(g.Status), start, payload, g.UpdatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("upsert game %s: %w", g.GameID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert game %s rows affected: %w", g.GameID, err)
	}
	return n > 0, nil
}

// Get retorna o jogo corrente; domain.ErrGameNotFound se não existir
func (r *GameRepo) Get(ctx context.Context, gameID string) (domain.NormalizedGame, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM games WHERE game_id=$1`, gameID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NormalizedGame{}, fmt.Errorf("%w: %s", domain.ErrGameNotFound, gameID)
	}
	if err != nil {
		return domain.NormalizedGame{}, fmt.Errorf("get game %s: %w", gameID, err)
	}
	return decodeGame(payload)
}

// ListActive lista os jogos não terminais de um esporte no slate
func (r *GameRepo) ListActive(ctx context.Context, sport domain.Sport, date string) ([]domain.NormalizedGame, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM games
		WHERE sport=$1 AND date=$2 AND status NOT IN ('complete','closed','final')
		ORDER BY start_time ASC NULLS LAST, game_id ASC`,
		string(sport), date,
	)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []domain.NormalizedGame
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g, err := decodeGame(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// PruneBefore remove jogos sem alerta pendente e sem atualização desde o corte
func (r *GameRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM games g
		WHERE g.updated_at < $1
		  AND NOT EXISTS (
		    SELECT 1 FROM fade_alerts a WHERE a.game_id = g.game_id AND a.status = 'pending'
		  )`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune games: %w", err)
	}
	return res.RowsAffected()
}

func decodeGame(payload []byte) (domain.NormalizedGame, error) {
	var g domain.NormalizedGame
	if err := json.Unmarshal(payload, &g); err != nil {
		return domain.NormalizedGame{}, fmt.Errorf("decode game payload: %w", err)
	}
	return g, nil
}
