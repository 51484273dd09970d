package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/internal/fade/finder"
	"github.com/radieske/public-fade-tracker/internal/fade/resolver"
	"github.com/radieske/public-fade-tracker/internal/fade/settings"
	"github.com/radieske/public-fade-tracker/internal/shared/retry"
)

// MinSleep é o piso entre ticks, mesmo quando o tick estoura o intervalo
const MinSleep = 10 * time.Second

type GameLister interface {
	ListActive(ctx context.Context, sport domain.Sport, date string) ([]domain.NormalizedGame, error)
}

type AlertStore interface {
	UpsertIfAbsent(ctx context.Context, opp domain.Opportunity, date string) (domain.Alert, bool, error)
}

type SettingsLoader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// ResolverRunner separa as duas etapas para que cada uma tenha seu próprio retry
type ResolverRunner interface {
	ResolvePending(ctx context.Context) (resolver.Summary, error)
	RecomputePerformance(ctx context.Context) (domain.PerformanceSnapshot, error)
}

// Notifier recebe os alertas para o colaborador de apresentação (bot, UI)
type Notifier interface {
	AlertCreated(ctx context.Context, a domain.Alert, g domain.NormalizedGame) error
	AlertResolved(ctx context.Context, a domain.Alert) error
}

// Engine conduz o ciclo detectar → gravar → resolver → agregar, um tick por vez.
// Ajustes de runtime são relidos no início de cada tick.
type Engine struct {
	Log      *zap.Logger
	Games    GameLister
	Alerts   AlertStore
	Settings SettingsLoader
	Defaults settings.Settings
	Resolver ResolverRunner
	Notifier Notifier // opcional

	Sports     []domain.Sport
	Location   *time.Location
	Now        func() time.Time
	RetryDelay time.Duration
	MinSleep   time.Duration

	OnOpportunity  func(domain.Opportunity)
	OnAlertCreated func(domain.Alert)
	OnSkipped      func(kind string) // "skip" | "invalid" | "invalid_game"
	OnTick         func(elapsed time.Duration, err error)
	OnError        func(stage string)
}

// DetectResult resume a detecção de um esporte num slate
type DetectResult struct {
	Sport         domain.Sport
	Date          string
	Games         int
	Opportunities int
	Skipped       int
	Invalid       int
	Created       []CreatedAlert
	Existing      []domain.Alert
}

// CreatedAlert leva o jogo junto para a notificação
type CreatedAlert struct {
	Alert domain.Alert
	Game  domain.NormalizedGame
}

// TickResult resume um tick completo
type TickResult struct {
	Settings    settings.Settings
	Maintenance bool
	Date        string
	Detection   []DetectResult
	Resolution  resolver.Summary
	Notified    int
}

// Tick executa uma passada. Falha de um esporte não impede os demais nem a resolução;
// os erros voltam agregados.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	st := e.loadSettings(ctx)
	res := TickResult{Settings: st}

	if st.MaintenanceMode {
		e.log().Info("maintenance mode on, tick skipped")
		res.Maintenance = true
		return res, nil
	}

	pol := e.policy(st)
	res.Date = domain.SlateDate(e.now(), e.Location)

	var errs []error
	for _, sport := range e.sports() {
		dr, err := e.detect(ctx, sport, res.Date, pol)
		res.Detection = append(res.Detection, dr)
		if err != nil {
			e.fail("detect")
			errs = append(errs, fmt.Errorf("detect %s: %w", sport, err))
		}
		res.Notified += e.notifyCreated(ctx, dr.Created, st.FadeRatingThreshold)
	}

	if e.Resolver != nil {
		sum, err := e.resolve(ctx, pol)
		res.Resolution = sum
		if err != nil {
			e.fail("resolve")
			errs = append(errs, fmt.Errorf("resolve: %w", err))
		}
		e.notifyResolved(ctx, sum.Resolved)
	}

	return res, errors.Join(errs...)
}

// resolve acumula as transições de todas as tentativas: uma tentativa que falhou
// depois de marcar alertas não pode perder esses alertas na notificação.
// A performance é recalculada mesmo se a resolução falhou, pois as marcações já valem.
func (e *Engine) resolve(ctx context.Context, pol *retry.Policy) (resolver.Summary, error) {
	var sum resolver.Summary
	resolveErr := pol.Do(ctx, func(ctx context.Context) error {
		pass, err := e.Resolver.ResolvePending(ctx)
		sum.Absorb(pass)
		return err
	})
	if resolveErr != nil {
		resolveErr = fmt.Errorf("resolve pending: %w", resolveErr)
	}

	perfErr := pol.Do(ctx, func(ctx context.Context) error {
		_, err := e.Resolver.RecomputePerformance(ctx)
		return err
	})
	if perfErr != nil {
		perfErr = fmt.Errorf("recompute performance: %w", perfErr)
	}
	return sum, errors.Join(resolveErr, perfErr)
}

// Detect roda a detecção de um esporte/slate com os ajustes default
func (e *Engine) Detect(ctx context.Context, sport domain.Sport, date string) (DetectResult, error) {
	return e.detect(ctx, sport, date, e.policy(e.Defaults))
}

func (e *Engine) detect(ctx context.Context, sport domain.Sport, date string, pol *retry.Policy) (DetectResult, error) {
	dr := DetectResult{Sport: sport, Date: date}

	var games []domain.NormalizedGame
	err := pol.Do(ctx, func(ctx context.Context) error {
		var err error
		games, err = e.Games.ListActive(ctx, sport, date)
		return err
	})
	if err != nil {
		return dr, fmt.Errorf("list games: %w", err)
	}
	dr.Games = len(games)

	for _, g := range games {
		if err := g.Validate(); err != nil {
			e.log().Warn("game skipped for detection", zap.String("game_id", g.GameID), zap.Error(err))
			e.skipped("invalid_game")
			continue
		}

		// ordem determinística: spread, total, moneyline
		for _, ev := range finder.Scan(g) {
			switch ev.Kind {
			case finder.KindSkip:
				dr.Skipped++
				e.skipped("skip")
				continue
			case finder.KindInvalid:
				dr.Invalid++
				e.skipped("invalid")
				e.log().Warn("invalid market outcome",
					zap.String("game_id", g.GameID),
					zap.String("market", string(ev.Market)),
					zap.String("side", string(ev.Side)),
					zap.String("detail", ev.Detail))
				continue
			}

			opp := ev.Opportunity
			dr.Opportunities++
			if e.OnOpportunity != nil {
				e.OnOpportunity(opp)
			}

			var (
				alert   domain.Alert
				created bool
			)
			err := pol.Do(ctx, func(ctx context.Context) error {
				var err error
				alert, created, err = e.Alerts.UpsertIfAbsent(ctx, opp, date)
				return err
			})
			if err != nil {
				return dr, fmt.Errorf("store alert game=%s market=%s: %w", opp.GameID, opp.Market, err)
			}

			if !created {
				dr.Existing = append(dr.Existing, alert)
				continue
			}
			dr.Created = append(dr.Created, CreatedAlert{Alert: alert, Game: g})
			if e.OnAlertCreated != nil {
				e.OnAlertCreated(alert)
			}
			e.log().Info("fade alert created",
				zap.String("alert_id", alert.ID),
				zap.String("game_id", alert.GameID),
				zap.String("market", string(alert.Market)),
				zap.String("faded", string(alert.FadedOutcomeLabel)),
				zap.Int("rating", alert.Rating))
		}
	}

	e.log().Info("detection pass done",
		zap.String("sport", string(sport)),
		zap.String("date", date),
		zap.Int("games", dr.Games),
		zap.Int("opportunities", dr.Opportunities),
		zap.Int("created", len(dr.Created)),
		zap.Int("existing", len(dr.Existing)))
	return dr, nil
}

// Run repete Tick até o contexto ser cancelado.
// Dorme max(MinSleep, intervalo - duração do tick).
func (e *Engine) Run(ctx context.Context) error {
	for {
		start := time.Now()
		res, err := e.Tick(ctx)
		elapsed := time.Since(start)
		if e.OnTick != nil {
			e.OnTick(elapsed, err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log().Error("tick failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		}

		wait := NextSleep(res.Settings.UpdateInterval, elapsed, e.minSleep())
		e.log().Debug("sleeping until next tick", zap.Duration("wait", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// NextSleep = max(min, interval - elapsed)
func NextSleep(interval, elapsed, min time.Duration) time.Duration {
	if d := interval - elapsed; d > min {
		return d
	}
	return min
}

func (e *Engine) notifyCreated(ctx context.Context, created []CreatedAlert, threshold int) int {
	if e.Notifier == nil {
		return 0
	}
	n := 0
	for _, c := range created {
		if c.Alert.Rating < threshold {
			continue
		}
		if err := e.Notifier.AlertCreated(ctx, c.Alert, c.Game); err != nil {
			e.log().Warn("alert notification failed", zap.String("alert_id", c.Alert.ID), zap.Error(err))
			e.fail("notify")
			continue
		}
		n++
	}
	return n
}

func (e *Engine) notifyResolved(ctx context.Context, resolved []domain.Alert) {
	if e.Notifier == nil {
		return
	}
	for _, a := range resolved {
		if err := e.Notifier.AlertResolved(ctx, a); err != nil {
			e.log().Warn("resolution notification failed", zap.String("alert_id", a.ID), zap.Error(err))
			e.fail("notify")
		}
	}
}

func (e *Engine) loadSettings(ctx context.Context) settings.Settings {
	if e.Settings == nil {
		return e.Defaults
	}
	st, err := e.Settings.Load(ctx)
	if err != nil {
		e.log().Warn("runtime settings not fully loaded, using defaults where needed", zap.Error(err))
		e.fail("settings")
		if errors.Is(err, settings.ErrInvalidSetting) {
			return st
		}
		return e.Defaults
	}
	return st
}

func (e *Engine) policy(st settings.Settings) *retry.Policy {
	delay := e.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	return retry.NewPolicy(st.MaxRetries, delay)
}

func (e *Engine) sports() []domain.Sport {
	if len(e.Sports) > 0 {
		return e.Sports
	}
	return domain.Sports
}

func (e *Engine) minSleep() time.Duration {
	if e.MinSleep > 0 {
		return e.MinSleep
	}
	return MinSleep
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) log() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}

func (e *Engine) fail(stage string) {
	if e.OnError != nil {
		e.OnError(stage)
	}
}

func (e *Engine) skipped(kind string) {
	if e.OnSkipped != nil {
		e.OnSkipped(kind)
	}
}
