package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidStatus   = errors.New("invalid resolution status")
	ErrUpsertContended = errors.New("alert identity contended")
)

// tentativas do ciclo insert/select quando o pendente some entre as duas queries
const upsertAttempts = 3

const alertColumns = `id, game_id, sport, market, faded_outcome_label, faded_value, odds,
  implied_probability, tickets_percent, money_percent, rating, reason, date, status,
  created_at, updated_at`

// AlertRepo é o dono exclusivo da tabela fade_alerts.
// Toda mutação passa por UpsertIfAbsent e MarkResolved.
type AlertRepo struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

func NewAlertRepo(db *sql.DB) *AlertRepo {
	return &AlertRepo{db: db, now: time.Now, newID: uuid.NewString}
}

// UpsertIfAbsent cria o alerta pendente se não houver outro pendente com a mesma identidade.
// O check-and-insert é atômico via índice único parcial: concorrentes caem no DO NOTHING
// e leem o pendente vencedor. Retorna (alerta, criado, erro).
func (r *AlertRepo) UpsertIfAbsent(ctx context.Context, opp domain.Opportunity, date string) (domain.Alert, bool, error) {
	const insertQ = `
		INSERT INTO fade_alerts
		  (id, game_id, sport, market, faded_outcome_label, faded_value, odds,
		   implied_probability, tickets_percent, money_percent, rating, reason, date, status,
		   created_at, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,'pending',$14,$14)
		ON CONFLICT (game_id, market, faded_outcome_label, date) WHERE status = 'pending'
		DO NOTHING
		RETURNING ` + alertColumns

	const selectQ = `
		SELECT ` + alertColumns + `
		FROM fade_alerts
		WHERE game_id=$1 AND market=$2 AND faded_outcome_label=$3 AND date=$4 AND status='pending'`

	for attempt := 1; attempt <= upsertAttempts; attempt++ {
		now := r.now().UTC()
		row := r.db.QueryRowContext(ctx, insertQ,
			r.newID(), opp.GameID, string(opp.Sport), string(opp.Market), string(opp.FadedOutcomeLabel),
			nullFloat(opp.FadedValue), opp.Odds, opp.ImpliedProbability, opp.TicketsPercent,
			opp.MoneyPercent, opp.Rating, opp.Reason, date, now,
		)
		a, err := scanAlert(row)
		if err == nil {
			return a, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return domain.Alert{}, false, fmt.Errorf("insert alert: %w", err)
		}

		// conflito: já existe pendente para a identidade
		existing, err := scanAlert(r.db.QueryRowContext(ctx, selectQ,
			opp.GameID, string(opp.Market), string(opp.FadedOutcomeLabel), date))
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return domain.Alert{}, false, fmt.Errorf("select pending alert: %w", err)
		}
		// o pendente foi resolvido entre as queries; tenta de novo
	}
	return domain.Alert{}, false, fmt.Errorf("%w: game=%s market=%s side=%s date=%s",
		ErrUpsertContended, opp.GameID, opp.Market, opp.FadedOutcomeLabel, date)
}

// MarkResolved move um alerta pendente para won/lost/error.
// Retorna false se o alerta não existe ou já é terminal.
func (r *AlertRepo) MarkResolved(ctx context.Context, id string, status domain.AlertStatus) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE fade_alerts SET status=$2, updated_at=$3 WHERE id=$1 AND status='pending'`,
		id, string(status), r.now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("mark alert %s %s: %w", id, status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Get busca um alerta pelo id
func (r *AlertRepo) Get(ctx context.Context, id string) (domain.Alert, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Alert{}, ErrNotFound
	}
	a, err := scanAlert(r.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM fade_alerts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Alert{}, ErrNotFound
	}
	if err != nil {
		return domain.Alert{}, fmt.Errorf("get alert %s: %w", id, err)
	}
	return a, nil
}

// ListPending lista todos os alertas pendentes, mais antigos primeiro
func (r *AlertRepo) ListPending(ctx context.Context) ([]domain.Alert, error) {
	return r.query(ctx, `SELECT `+alertColumns+` FROM fade_alerts WHERE status='pending' ORDER BY created_at ASC`)
}

// ListSince lista alertas com created_at >= since (usado na agregação de performance)
func (r *AlertRepo) ListSince(ctx context.Context, since time.Time) ([]domain.Alert, error) {
	return r.query(ctx, `SELECT `+alertColumns+` FROM fade_alerts WHERE created_at >= $1 ORDER BY created_at ASC`, since.UTC())
}

// ListByDate lista os alertas de um slate (qualquer status)
func (r *AlertRepo) ListByDate(ctx context.Context, date string, sport domain.Sport) ([]domain.Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM fade_alerts WHERE date=$1`
	args := []any{date}
	if sport != "" {
		q += ` AND sport=$2`
		args = append(args, string(sport))
	}
	q += ` ORDER BY rating DESC, created_at ASC`
	return r.query(ctx, q, args...)
}

// ListRecent lista os alertas resolvidos (won/lost) mais recentes, opcionalmente por esporte
func (r *AlertRepo) ListRecent(ctx context.Context, sport domain.Sport, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 10
	}
	var sb strings.Builder
	sb.WriteString(`SELECT ` + alertColumns + ` FROM fade_alerts WHERE status IN ('won','lost')`)
	args := []any{}
	if sport != "" {
		args = append(args, string(sport))
		sb.WriteString(fmt.Sprintf(` AND sport=$%d`, len(args)))
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(` ORDER BY updated_at DESC LIMIT $%d`, len(args)))
	return r.query(ctx, sb.String(), args...)
}

func (r *AlertRepo) query(ctx context.Context, q string, args ...any) ([]domain.Alert, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(s scanner) (domain.Alert, error) {
	var (
		a                            domain.Alert
		sport, market, label, status string
		fadedValue                   sql.NullFloat64
	)
	err := s.Scan(
		&a.ID, &a.GameID, &sport, &market, &label, &fadedValue, &a.Odds,
		&a.ImpliedProbability, &a.TicketsPercent, &a.MoneyPercent, &a.Rating, &a.Reason,
		&a.Date, &status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Alert{}, err
	}
	a.Sport = domain.Sport(sport)
	a.Market = domain.Market(market)
	a.FadedOutcomeLabel = domain.OutcomeLabel(label)
	a.Status = domain.AlertStatus(status)
	a.Date = strings.TrimSpace(a.Date)
	if fadedValue.Valid {
		v := fadedValue.Float64
		a.FadedValue = &v
	}
	return a, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
