package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
)

type GamePruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type GameLister interface {
	ListActive(ctx context.Context, sport domain.Sport, date string) ([]domain.NormalizedGame, error)
}

type GameCacher interface {
	Set(ctx context.Context, g domain.NormalizedGame) error
}

// Jobs reúne as tarefas periódicas do fade-engine
type Jobs struct {
	Games     GamePruner
	Active    GameLister
	Cache     GameCacher
	Log       *zap.Logger
	Sports    []domain.Sport
	Retention time.Duration
	Location  *time.Location
	Now       func() time.Time
}

// PruneGames apaga jogos antigos sem alerta pendente
func (j *Jobs) PruneGames(ctx context.Context) error {
	if j.Retention <= 0 {
		return nil
	}
	cutoff := j.now().Add(-j.Retention)
	n, err := j.Games.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune games: %w", err)
	}
	if n > 0 {
		j.Log.Info("old games pruned", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
	return nil
}

// WarmCache recarrega no Redis os jogos ativos do slate de hoje
func (j *Jobs) WarmCache(ctx context.Context) error {
	date := domain.SlateDate(j.now(), j.Location)
	var errs []error
	warmed := 0
	for _, sport := range j.Sports {
		games, err := j.Active.ListActive(ctx, sport, date)
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s games: %w", sport, err))
			continue
		}
		for _, g := range games {
			if err := j.Cache.Set(ctx, g); err != nil {
				errs = append(errs, fmt.Errorf("cache game %s: %w", g.GameID, err))
				continue
			}
			warmed++
		}
	}
	j.Log.Debug("game cache warmed", zap.String("date", date), zap.Int("games", warmed))
	return errors.Join(errs...)
}

func (j *Jobs) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}
