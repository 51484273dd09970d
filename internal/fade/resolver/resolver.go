package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
)

// AlertStore é o subconjunto do repositório de alertas usado na resolução
type AlertStore interface {
	ListPending(ctx context.Context) ([]domain.Alert, error)
	MarkResolved(ctx context.Context, id string, status domain.AlertStatus) (bool, error)
	ListSince(ctx context.Context, since time.Time) ([]domain.Alert, error)
}

type GameStore interface {
	Get(ctx context.Context, gameID string) (domain.NormalizedGame, error)
}

type SnapshotStore interface {
	Save(ctx context.Context, s domain.PerformanceSnapshot) error
}

// Summary resume uma passada do resolver
type Summary struct {
	Checked      int
	Won          int
	Lost         int
	Errored      int
	Pushes       int
	StillPending int
	Resolved     []domain.Alert
}

// Absorb junta uma nova passada ao resumo. Transições (won/lost/error e
// Resolved) acumulam; Checked, Pushes e StillPending refletem a última passada.
func (s *Summary) Absorb(next Summary) {
	s.Checked = next.Checked
	s.Pushes = next.Pushes
	s.StillPending = next.StillPending
	s.Won += next.Won
	s.Lost += next.Lost
	s.Errored += next.Errored
	s.Resolved = append(s.Resolved, next.Resolved...)
}

// Resolver percorre os alertas pendentes e decide won/lost/error por mercado.
// Callbacks opcionais alimentam métricas e notificações.
type Resolver struct {
	Alerts    AlertStore
	Games     GameStore
	Snapshots SnapshotStore
	Log       *zap.Logger

	// GracePeriod: quanto tempo um alerta de jogo terminal sem placar espera antes de virar error
	GracePeriod time.Duration
	WindowDays  int
	Location    *time.Location
	Now         func() time.Time

	OnResolved func(domain.Alert) // alerta saiu de pending
	OnPush     func(domain.Alert)
	OnError    func(stage string)
}

// Run resolve os pendentes e recalcula o snapshot de performance
func (r *Resolver) Run(ctx context.Context) (Summary, error) {
	sum, err := r.ResolvePending(ctx)
	if err != nil {
		return sum, err
	}
	if _, err := r.RecomputePerformance(ctx); err != nil {
		return sum, err
	}
	return sum, nil
}

// ResolvePending processa cada alerta pendente uma vez.
// Falha de leitura de jogo (exceto not found) interrompe a passada; marcações já feitas valem.
func (r *Resolver) ResolvePending(ctx context.Context) (Summary, error) {
	var sum Summary
	pending, err := r.Alerts.ListPending(ctx)
	if err != nil {
		r.fail("list_pending")
		return sum, fmt.Errorf("list pending alerts: %w", err)
	}

	for _, a := range pending {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Checked++

		g, err := r.Games.Get(ctx, a.GameID)
		if errors.Is(err, domain.ErrGameNotFound) {
			r.log().Debug("game not found for pending alert",
				zap.String("alert_id", a.ID), zap.String("game_id", a.GameID))
			sum.StillPending++
			continue
		}
		if err != nil {
			r.fail("get_game")
			return sum, fmt.Errorf("get game %s: %w", a.GameID, err)
		}

		status, ok := r.statusFor(a, g, Decide(a, g), &sum)
		if !ok {
			sum.StillPending++
			continue
		}

		updated, err := r.Alerts.MarkResolved(ctx, a.ID, status)
		if err != nil {
			r.fail("mark_resolved")
			return sum, fmt.Errorf("mark alert %s: %w", a.ID, err)
		}
		if !updated {
			// resolvido por outra passada ou removido
			r.log().Debug("alert no longer pending", zap.String("alert_id", a.ID))
			continue
		}

		a.Status = status
		a.UpdatedAt = r.now()
		switch status {
		case domain.AlertWon:
			sum.Won++
		case domain.AlertLost:
			sum.Lost++
		case domain.AlertError:
			sum.Errored++
		}
		sum.Resolved = append(sum.Resolved, a)
		if r.OnResolved != nil {
			r.OnResolved(a)
		}
	}

	r.log().Info("resolver pass done",
		zap.Int("checked", sum.Checked),
		zap.Int("won", sum.Won),
		zap.Int("lost", sum.Lost),
		zap.Int("errored", sum.Errored),
		zap.Int("pushes", sum.Pushes),
		zap.Int("still_pending", sum.StillPending),
	)
	return sum, nil
}

// statusFor traduz a decisão em status terminal; ok=false mantém pending
func (r *Resolver) statusFor(a domain.Alert, g domain.NormalizedGame, d Decision, sum *Summary) (domain.AlertStatus, bool) {
	fields := []zap.Field{
		zap.String("alert_id", a.ID),
		zap.String("game_id", a.GameID),
		zap.String("market", string(a.Market)),
		zap.String("faded", string(a.FadedOutcomeLabel)),
		zap.String("detail", d.Detail),
	}

	switch d.Verdict {
	case VerdictWon:
		return domain.AlertWon, true
	case VerdictLost:
		return domain.AlertLost, true
	case VerdictError:
		r.log().Warn("alert cannot be resolved", fields...)
		return domain.AlertError, true
	case VerdictPush:
		sum.Pushes++
		r.log().Info("push, alert stays pending", fields...)
		if r.OnPush != nil {
			r.OnPush(a)
		}
		return "", false
	case VerdictNoData:
		if r.GracePeriod > 0 && r.now().Sub(a.CreatedAt) > r.GracePeriod {
			r.log().Warn("terminal game without result past grace period",
				append(fields, zap.String("status", string(g.Status)))...)
			return domain.AlertError, true
		}
		return "", false
	}
	return "", false
}

// RecomputePerformance agrega a janela móvel e sobrescreve o snapshot único
func (r *Resolver) RecomputePerformance(ctx context.Context) (domain.PerformanceSnapshot, error) {
	now := r.now()
	window := r.windowDays()
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	since := domain.StartOfDay(now.AddDate(0, 0, -window), loc)

	alerts, err := r.Alerts.ListSince(ctx, since)
	if err != nil {
		r.fail("list_since")
		return domain.PerformanceSnapshot{}, fmt.Errorf("list alerts since %s: %w", since.Format(time.RFC3339), err)
	}

	snap := Aggregate(alerts, now, window)
	if r.Snapshots != nil {
		if err := r.Snapshots.Save(ctx, snap); err != nil {
			r.fail("save_performance")
			return snap, fmt.Errorf("save performance: %w", err)
		}
	}
	return snap, nil
}

func (r *Resolver) windowDays() int {
	if r.WindowDays > 0 {
		return r.WindowDays
	}
	return 30
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Resolver) log() *zap.Logger {
	if r.Log != nil {
		return r.Log
	}
	return zap.NewNop()
}

func (r *Resolver) fail(stage string) {
	if r.OnError != nil {
		r.OnError(stage)
	}
}
