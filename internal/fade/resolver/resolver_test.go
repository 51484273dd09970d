package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
)

var now = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

// memAlerts imita o contrato do AlertRepo: só pending transiciona
type memAlerts struct {
	mu      sync.Mutex
	alerts  map[string]domain.Alert
	order   []string
	listErr error
}

func newMemAlerts(as ...domain.Alert) *memAlerts {
	m := &memAlerts{alerts: map[string]domain.Alert{}}
	for _, a := range as {
		m.alerts[a.ID] = a
		m.order = append(m.order, a.ID)
	}
	return m
}

func (m *memAlerts) ListPending(context.Context) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Alert
	for _, id := range m.order {
		if a := m.alerts[id]; a.Status == domain.AlertPending {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAlerts) MarkResolved(_ context.Context, id string, st domain.AlertStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok || a.Status != domain.AlertPending {
		return false, nil
	}
	a.Status = st
	m.alerts[id] = a
	return true, nil
}

func (m *memAlerts) ListSince(_ context.Context, since time.Time) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Alert
	for _, id := range m.order {
		if a := m.alerts[id]; !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAlerts) status(id string) domain.AlertStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts[id].Status
}

type memGames struct {
	games map[string]domain.NormalizedGame
	err   error
}

func (m *memGames) Get(_ context.Context, id string) (domain.NormalizedGame, error) {
	if m.err != nil {
		return domain.NormalizedGame{}, m.err
	}
	g, ok := m.games[id]
	if !ok {
		return domain.NormalizedGame{}, domain.ErrGameNotFound
	}
	return g, nil
}

type memSnapshots struct{ saved []domain.PerformanceSnapshot }

func (m *memSnapshots) Save(_ context.Context, s domain.PerformanceSnapshot) error {
	m.saved = append(m.saved, s)
	return nil
}

func mkAlert(id, gameID string, m domain.Market, label domain.OutcomeLabel, line *float64, st domain.AlertStatus) domain.Alert {
	a := alert(m, label, line)
	a.ID = id
	a.GameID = gameID
	a.Status = st
	a.CreatedAt = now.Add(-3 * time.Hour)
	return a
}

func newResolver(alerts *memAlerts, games *memGames) (*Resolver, *memSnapshots) {
	snaps := &memSnapshots{}
	return &Resolver{
		Alerts:      alerts,
		Games:       games,
		Snapshots:   snaps,
		Log:         zap.NewNop(),
		GracePeriod: 48 * time.Hour,
		WindowDays:  30,
		Location:    time.UTC,
		Now:         func() time.Time { return now },
	}, snaps
}

func TestRun_ResolvesPerMarket(t *testing.T) {
	alerts := newMemAlerts(
		mkAlert("spread-lost", "g1", domain.MarketSpread, domain.LabelHome, fp(-5.5), domain.AlertPending),
		mkAlert("total-push", "g1", domain.MarketTotal, domain.LabelOver, fp(195), domain.AlertPending),
		mkAlert("ml-won", "g1", domain.MarketMoneyline, domain.LabelAway, nil, domain.AlertPending),
		mkAlert("spread-no-line", "g1", domain.MarketSpread, domain.LabelHome, nil, domain.AlertPending),
		mkAlert("live", "g2", domain.MarketSpread, domain.LabelHome, fp(-2), domain.AlertPending),
		mkAlert("unknown-game", "g404", domain.MarketSpread, domain.LabelHome, fp(-2), domain.AlertPending),
	)
	live := finalGame(50, 40)
	live.GameID = "g2"
	live.Status = domain.StatusInProgress
	games := &memGames{games: map[string]domain.NormalizedGame{"g1": finalGame(100, 95), "g2": live}}

	r, snaps := newResolver(alerts, games)
	var resolved []string
	var pushes int
	r.OnResolved = func(a domain.Alert) { resolved = append(resolved, a.ID) }
	r.OnPush = func(domain.Alert) { pushes++ }

	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, sum.Checked)
	assert.Equal(t, 1, sum.Won)
	assert.Equal(t, 1, sum.Lost)
	assert.Equal(t, 1, sum.Errored)
	assert.Equal(t, 1, sum.Pushes)
	assert.Equal(t, 3, sum.StillPending)
	assert.ElementsMatch(t, []string{"spread-lost", "ml-won", "spread-no-line"}, resolved)
	assert.Equal(t, 1, pushes)

	assert.Equal(t, domain.AlertLost, alerts.status("spread-lost"))
	assert.Equal(t, domain.AlertPending, alerts.status("total-push"))
	assert.Equal(t, domain.AlertWon, alerts.status("ml-won"))
	assert.Equal(t, domain.AlertError, alerts.status("spread-no-line"))
	assert.Equal(t, domain.AlertPending, alerts.status("live"))
	assert.Equal(t, domain.AlertPending, alerts.status("unknown-game"))

	require.Len(t, snaps.saved, 1)
	assert.Equal(t, 6, snaps.saved[0].Overall.Total)
	assert.Equal(t, 50.0, snaps.saved[0].Overall.WinRate)
}

// push no spread com jogo terminal continua pending após a passada
func TestRun_SpreadPushStaysPending(t *testing.T) {
	alerts := newMemAlerts(mkAlert("p", "g1", domain.MarketSpread, domain.LabelHome, fp(5), domain.AlertPending))
	games := &memGames{games: map[string]domain.NormalizedGame{"g1": finalGame(100, 95)}}
	r, _ := newResolver(alerts, games)

	for i := 0; i < 3; i++ {
		sum, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Pushes)
	}
	assert.Equal(t, domain.AlertPending, alerts.status("p"))
}

// alertas terminais nunca mudam, mesmo que o jogo diga outra coisa
func TestRun_TerminalAlertsAreImmutable(t *testing.T) {
	alerts := newMemAlerts(
		mkAlert("w", "g1", domain.MarketSpread, domain.LabelHome, fp(-5.5), domain.AlertWon),
		mkAlert("l", "g1", domain.MarketMoneyline, domain.LabelAway, nil, domain.AlertLost),
		mkAlert("e", "g1", domain.MarketTotal, domain.LabelOver, nil, domain.AlertError),
	)
	games := &memGames{games: map[string]domain.NormalizedGame{"g1": finalGame(100, 95)}}
	r, _ := newResolver(alerts, games)

	for i := 0; i < 2; i++ {
		sum, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, sum.Checked)
	}
	assert.Equal(t, domain.AlertWon, alerts.status("w"))
	assert.Equal(t, domain.AlertLost, alerts.status("l"))
	assert.Equal(t, domain.AlertError, alerts.status("e"))

	ok, err := alerts.MarkResolved(context.Background(), "w", domain.AlertLost)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_GracePeriodForMissingScores(t *testing.T) {
	fresh := mkAlert("fresh", "g1", domain.MarketMoneyline, domain.LabelHome, nil, domain.AlertPending)
	stale := mkAlert("stale", "g1", domain.MarketSpread, domain.LabelHome, fp(-3), domain.AlertPending)
	stale.CreatedAt = now.Add(-72 * time.Hour)

	g := finalGame(0, 0)
	g.Boxscore = nil
	alerts := newMemAlerts(fresh, stale)
	r, _ := newResolver(alerts, &memGames{games: map[string]domain.NormalizedGame{"g1": g}})

	sum, err := r.ResolvePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Errored)
	assert.Equal(t, domain.AlertPending, alerts.status("fresh"))
	assert.Equal(t, domain.AlertError, alerts.status("stale"))
}

func TestRun_PropagatesStoreErrors(t *testing.T) {
	alerts := newMemAlerts(mkAlert("a", "g1", domain.MarketSpread, domain.LabelHome, fp(-3), domain.AlertPending))
	r, snaps := newResolver(alerts, &memGames{err: errors.New("db down")})
	var stages []string
	r.OnError = func(s string) { stages = append(stages, s) }

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"get_game"}, stages)
	assert.Empty(t, snaps.saved)
	assert.Equal(t, domain.AlertPending, alerts.status("a"))

	alerts.listErr = errors.New("db down")
	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list pending")
}

func TestSummaryAbsorb(t *testing.T) {
	var sum Summary
	sum.Absorb(Summary{Checked: 3, Lost: 1, StillPending: 1, Resolved: []domain.Alert{{ID: "a"}}})
	sum.Absorb(Summary{Checked: 2, Won: 1, Pushes: 1, StillPending: 1, Resolved: []domain.Alert{{ID: "b"}}})

	assert.Equal(t, 2, sum.Checked)
	assert.Equal(t, 1, sum.Won)
	assert.Equal(t, 1, sum.Lost)
	assert.Equal(t, 1, sum.Pushes)
	assert.Equal(t, 1, sum.StillPending)
	require.Len(t, sum.Resolved, 2)
	assert.Equal(t, "a", sum.Resolved[0].ID)
	assert.Equal(t, "b", sum.Resolved[1].ID)
}
