package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/internal/fade/resolver"
	"github.com/radieske/public-fade-tracker/internal/fade/settings"
)

var tickTime = time.Date(2025, 2, 2, 17, 0, 0, 0, time.UTC)

func ip(v int) *int         { return &v }
func fp(v float64) *float64 { return &v }

type memGames struct {
	bySport map[domain.Sport][]domain.NormalizedGame
	errFor  map[domain.Sport]error
	calls   int
}

func (m *memGames) ListActive(_ context.Context, sport domain.Sport, _ string) ([]domain.NormalizedGame, error) {
	m.calls++
	if err := m.errFor[sport]; err != nil {
		return nil, err
	}
	return m.bySport[sport], nil
}

// memAlerts aplica o mesmo dedup por identidade+pending do repositório
type memAlerts struct {
	mu      sync.Mutex
	pending map[string]domain.Alert
	all     []domain.Alert
	failN   int
}

func newMemAlerts() *memAlerts { return &memAlerts{pending: map[string]domain.Alert{}} }

func (m *memAlerts) UpsertIfAbsent(_ context.Context, opp domain.Opportunity, date string) (domain.Alert, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failN > 0 {
		m.failN--
		return domain.Alert{}, false, errors.New("db unavailable")
	}
	k := fmt.Sprintf("%s|%s|%s|%s", opp.GameID, opp.Market, opp.FadedOutcomeLabel, date)
	if a, ok := m.pending[k]; ok {
		return a, false, nil
	}
	a := domain.Alert{ID: fmt.Sprintf("a%d", len(m.all)+1), Opportunity: opp, Date: date, Status: domain.AlertPending}
	m.pending[k] = a
	m.all = append(m.all, a)
	return a, true, nil
}

type staticSettings struct {
	st  settings.Settings
	err error
}

func (s *staticSettings) Load(context.Context) (settings.Settings, error) { return s.st, s.err }

type fakeResolver struct {
	runs int
	sum  resolver.Summary
	err  error
}

func (f *fakeResolver) ResolvePending(context.Context) (resolver.Summary, error) {
	f.runs++
	return f.sum, f.err
}

func (f *fakeResolver) RecomputePerformance(context.Context) (domain.PerformanceSnapshot, error) {
	return domain.PerformanceSnapshot{}, nil
}

type recordingNotifier struct {
	created  []domain.Alert
	resolved []domain.Alert
}

func (r *recordingNotifier) AlertCreated(_ context.Context, a domain.Alert, _ domain.NormalizedGame) error {
	r.created = append(r.created, a)
	return nil
}

func (r *recordingNotifier) AlertResolved(_ context.Context, a domain.Alert) error {
	r.resolved = append(r.resolved, a)
	return nil
}

var defaultSettings = settings.Settings{UpdateInterval: 5 * time.Minute, MaxRetries: 2, FadeRatingThreshold: 3}

// jogo com fade rating 4 no spread home e rating 1 no total over
func nbaGame(id string) domain.NormalizedGame {
	return domain.NormalizedGame{
		GameID: id, Sport: domain.SportNBA, Status: domain.StatusScheduled,
		HomeTeamID: 1, AwayTeamID: 2,
		Spread: []domain.MarketOutcome{
			{Side: domain.SideHome, Value: fp(-4.5), Odds: ip(-110), TicketsPct: fp(90), MoneyPct: fp(40)},
			{Side: domain.SideAway, Value: fp(4.5), Odds: ip(-110), TicketsPct: fp(10), MoneyPct: fp(60)},
		},
		Total: []domain.MarketOutcome{
			{Side: domain.SideOver, Value: fp(230), Odds: ip(-110), TicketsPct: fp(70), MoneyPct: fp(50)},
			{Side: domain.SideUnder, Value: fp(230), Odds: ip(0), TicketsPct: fp(30), MoneyPct: fp(50)},
		},
	}
}

func newEngine(games *memGames, alerts *memAlerts, res *fakeResolver, n *recordingNotifier) *Engine {
	e := &Engine{
		Log:        zap.NewNop(),
		Games:      games,
		Alerts:     alerts,
		Settings:   &staticSettings{st: defaultSettings},
		Defaults:   defaultSettings,
		Sports:     []domain.Sport{domain.SportNBA, domain.SportNCAAB},
		Location:   time.UTC,
		Now:        func() time.Time { return tickTime },
		RetryDelay: time.Millisecond,
	}
	// evita interface não-nil com ponteiro nil
	if res != nil {
		e.Resolver = res
	}
	if n != nil {
		e.Notifier = n
	}
	return e
}

func TestTick_DetectsStoresAndNotifiesAboveThreshold(t *testing.T) {
	games := &memGames{bySport: map[domain.Sport][]domain.NormalizedGame{domain.SportNBA: {nbaGame("g1")}}}
	alerts := newMemAlerts()
	n := &recordingNotifier{}
	res := &fakeResolver{}
	e := newEngine(games, alerts, res, n)

	var opps int
	skips := map[string]int{}
	e.OnOpportunity = func(domain.Opportunity) { opps++ }
	e.OnSkipped = func(k string) { skips[k]++ }

	out, err := e.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "20250202", out.Date)
	require.Len(t, out.Detection, 2)
	nba := out.Detection[0]
	assert.Equal(t, 1, nba.Games)
	assert.Equal(t, 2, nba.Opportunities)
	require.Len(t, nba.Created, 2)
	assert.Equal(t, domain.MarketSpread, nba.Created[0].Alert.Market)
	assert.Equal(t, domain.MarketTotal, nba.Created[1].Alert.Market)
	assert.Equal(t, 1, nba.Invalid)
	assert.Equal(t, 1, nba.Skipped)
	assert.Equal(t, 2, opps)
	assert.Equal(t, map[string]int{"skip": 1, "invalid": 1}, skips)

	// só o rating 4 passa do threshold 3
	require.Len(t, n.created, 1)
	assert.Equal(t, 4, n.created[0].Rating)
	assert.Equal(t, 1, out.Notified)
	assert.Len(t, alerts.all, 2)
	assert.Equal(t, 1, res.runs)
}

// detectar duas vezes o mesmo slate não cria nem notifica de novo
func TestTick_RepeatedDetectionIsIdempotent(t *testing.T) {
	games := &memGames{bySport: map[domain.Sport][]domain.NormalizedGame{domain.SportNBA: {nbaGame("g1")}}}
	alerts := newMemAlerts()
	n := &recordingNotifier{}
	e := newEngine(games, alerts, &fakeResolver{}, n)

	_, err := e.Tick(context.Background())
	require.NoError(t, err)
	out, err := e.Tick(context.Background())
	require.NoError(t, err)

	assert.Empty(t, out.Detection[0].Created)
	assert.Len(t, out.Detection[0].Existing, 2)
	assert.Len(t, alerts.all, 2)
	assert.Len(t, n.created, 1)
}

func TestTick_Maintenance(t *testing.T) {
	games := &memGames{}
	res := &fakeResolver{}
	e := newEngine(games, newMemAlerts(), res, nil)
	st := defaultSettings
	st.MaintenanceMode = true
	e.Settings = &staticSettings{st: st}

	out, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Maintenance)
	assert.Zero(t, games.calls)
	assert.Zero(t, res.runs)
}

func TestTick_SportFailureDoesNotBlockOthers(t *testing.T) {
	ncaab := nbaGame("c1")
	ncaab.Sport = domain.SportNCAAB
	games := &memGames{
		bySport: map[domain.Sport][]domain.NormalizedGame{domain.SportNCAAB: {ncaab}},
		errFor:  map[domain.Sport]error{domain.SportNBA: errors.New("pg timeout")},
	}
	res := &fakeResolver{}
	e := newEngine(games, newMemAlerts(), res, nil)
	var stages []string
	e.OnError = func(s string) { stages = append(stages, s) }

	out, err := e.Tick(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detect nba")
	assert.Len(t, out.Detection[1].Created, 2)
	assert.Equal(t, 1, res.runs)
	assert.Equal(t, []string{"detect"}, stages)
	// MaxRetries=2 → duas tentativas no nba + uma no ncaab
	assert.Equal(t, 3, games.calls)
}

func TestTick_RetriesAlertStore(t *testing.T) {
	games := &memGames{bySport: map[domain.Sport][]domain.NormalizedGame{domain.SportNBA: {nbaGame("g1")}}}
	alerts := newMemAlerts()
	alerts.failN = 1
	e := newEngine(games, alerts, &fakeResolver{}, nil)

	out, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, out.Detection[0].Created, 2)
}

func TestTick_NotifiesResolved(t *testing.T) {
	n := &recordingNotifier{}
	res := &fakeResolver{sum: resolver.Summary{Won: 1, Resolved: []domain.Alert{{ID: "x", Status: domain.AlertWon}}}}
	e := newEngine(&memGames{}, newMemAlerts(), res, n)

	out, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Resolution.Won)
	require.Len(t, n.resolved, 1)
	assert.Equal(t, "x", n.resolved[0].ID)
}

func TestTick_SettingsErrorFallsBackToDefaults(t *testing.T) {
	e := newEngine(&memGames{}, newMemAlerts(), &fakeResolver{}, nil)
	e.Settings = &staticSettings{err: errors.New("redis down")}

	out, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultSettings, out.Settings)
}

func TestDetect_SkipsInvalidGames(t *testing.T) {
	bad := nbaGame("")
	games := &memGames{bySport: map[domain.Sport][]domain.NormalizedGame{domain.SportNBA: {bad, nbaGame("g2")}}}
	e := newEngine(games, newMemAlerts(), nil, nil)

	dr, err := e.Detect(context.Background(), domain.SportNBA, "20250202")
	require.NoError(t, err)
	assert.Equal(t, 2, dr.Games)
	assert.Len(t, dr.Created, 2)
	for _, c := range dr.Created {
		assert.Equal(t, "g2", c.Alert.GameID)
		assert.Equal(t, "20250202", c.Alert.Date)
	}
}

func TestNextSleep(t *testing.T) {
	assert.Equal(t, 4*time.Minute, NextSleep(5*time.Minute, time.Minute, MinSleep))
	assert.Equal(t, MinSleep, NextSleep(5*time.Minute, 6*time.Minute, MinSleep))
	assert.Equal(t, MinSleep, NextSleep(0, 0, MinSleep))
}

func TestRun_StopsOnCancel(t *testing.T) {
	res := &fakeResolver{}
	e := newEngine(&memGames{}, newMemAlerts(), res, nil)
	e.MinSleep = time.Millisecond
	st := defaultSettings
	st.UpdateInterval = time.Millisecond
	e.Settings = &staticSettings{st: st}

	ctx, cancel := context.WithCancel(context.Background())
	ticks := 0
	e.OnTick = func(time.Duration, error) {
		ticks++
		if ticks == 3 {
			cancel()
		}
	}

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, 3, res.runs)
}
