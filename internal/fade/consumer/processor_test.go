package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/internal/fade/normalize"
	"github.com/radieske/public-fade-tracker/internal/shared/retry"
)

// fakeGames aplica a mesma regra do repositório: só grava se não for mais antigo
type fakeGames struct {
	saved  []domain.NormalizedGame
	latest map[string]time.Time
	fails  int
}

func (f *fakeGames) Upsert(_ context.Context, g domain.NormalizedGame) (bool, error) {
	if f.fails > 0 {
		f.fails--
		return false, errors.New("db down")
	}
	if f.latest == nil {
		f.latest = map[string]time.Time{}
	}
	if cur, ok := f.latest[g.GameID]; ok && g.UpdatedAt.Before(cur) {
		return false, nil
	}
	f.latest[g.GameID] = g.UpdatedAt
	f.saved = append(f.saved, g)
	return true, nil
}

type fakeCache struct{ set []string }

func (f *fakeCache) Set(_ context.Context, g domain.NormalizedGame) error {
	f.set = append(f.set, g.GameID)
	return nil
}

type fakeWriter struct{ msgs []kafka.Message }

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

// fakeReader entrega as mensagens e depois cancela o contexto
type fakeReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

const validGame = `{
	"id": 42, "sport": "ncaab", "status": "scheduled",
	"start_time": "2025-01-18T23:00:00Z",
	"home_team_id": 7, "away_team_id": 8,
	"teams": [{"id": 7, "display_name": "Duke"}, {"id": 8, "display_name": "UNC"}],
	"markets": {"15": {"event": {"spread": [
		{"side": "home", "value": -3.5, "odds": -110, "bet_info": {"tickets": {"percent": 80}, "money": {"percent": 45}}}
	]}}}
}`

func newProcessor(games *fakeGames, cache *fakeCache, dlq *fakeWriter) *Processor {
	return &Processor{
		Log:        zap.NewNop(),
		Normalizer: normalize.New("15", time.UTC),
		Games:      games,
		Cache:      cache,
		DLQ:        dlq,
	}
}

func TestHandle_PersistsAndCaches(t *testing.T) {
	games, cache, dlq := &fakeGames{}, &fakeCache{}, &fakeWriter{}
	p := newProcessor(games, cache, dlq)
	var after []string
	p.OnAfterPersist = func(g domain.NormalizedGame) { after = append(after, g.GameID) }

	require.NoError(t, p.Handle(context.Background(), kafka.Message{Key: []byte("42"), Value: []byte(validGame)}))

	require.Len(t, games.saved, 1)
	g := games.saved[0]
	assert.Equal(t, "42", g.GameID)
	assert.Equal(t, domain.SportNCAAB, g.Sport)
	assert.Equal(t, "20250118", g.Date)
	require.Len(t, g.Spread, 1)
	assert.Equal(t, 80.0, *g.Spread[0].TicketsPct)
	assert.Equal(t, []string{"42"}, cache.set)
	assert.Equal(t, []string{"42"}, after)
	assert.Empty(t, dlq.msgs)
}

// mensagem atrasada não pode sobrescrever no cache o estado mais novo
func TestHandle_StaleSnapshotSkipsCache(t *testing.T) {
	games, cache := &fakeGames{}, &fakeCache{}
	p := newProcessor(games, cache, nil)
	var after []string
	p.OnAfterPersist = func(g domain.NormalizedGame) { after = append(after, string(g.Status)) }

	withFetch := func(status, fetched string) kafka.Message {
		var raw map[string]any
		require.NoError(t, json.Unmarshal([]byte(validGame), &raw))
		raw["status"] = status
		raw["fetched_at"] = fetched
		b, err := json.Marshal(raw)
		require.NoError(t, err)
		return kafka.Message{Key: []byte("42"), Value: b}
	}

	require.NoError(t, p.Handle(context.Background(), withFetch("inprogress", "2025-01-19T00:30:00Z")))
	require.NoError(t, p.Handle(context.Background(), withFetch("scheduled", "2025-01-18T22:00:00Z")))

	require.Len(t, games.saved, 1)
	assert.Equal(t, domain.StatusInProgress, games.saved[0].Status)
	assert.Equal(t, []string{"42"}, cache.set)
	assert.Equal(t, []string{"in_progress"}, after)
}

func TestHandle_InvalidMessagesGoToDLQ(t *testing.T) {
	games, cache, dlq := &fakeGames{}, &fakeCache{}, &fakeWriter{}
	p := newProcessor(games, cache, dlq)
	var stages []string
	p.OnError = func(s string) { stages = append(stages, s) }

	require.NoError(t, p.Handle(context.Background(), kafka.Message{Value: []byte("{not json")}))

	var bad map[string]any
	require.NoError(t, json.Unmarshal([]byte(validGame), &bad))
	bad["away_team_id"] = 7
	b, _ := json.Marshal(bad)
	require.NoError(t, p.Handle(context.Background(), kafka.Message{Value: b}))

	assert.Empty(t, games.saved)
	require.Len(t, dlq.msgs, 2)
	assert.Equal(t, "decode", string(dlq.msgs[0].Headers[0].Value))
	assert.Equal(t, "normalize", string(dlq.msgs[1].Headers[0].Value))
	assert.Equal(t, []string{"decode", "normalize"}, stages)
}

func TestHandle_RetriesPersistence(t *testing.T) {
	games := &fakeGames{fails: 2}
	p := newProcessor(games, &fakeCache{}, nil)
	p.Retry = retry.NewPolicy(3, time.Millisecond)

	require.NoError(t, p.Handle(context.Background(), kafka.Message{Value: []byte(validGame)}))
	assert.Len(t, games.saved, 1)

	games.fails = 5
	err := p.Handle(context.Background(), kafka.Message{Value: []byte(validGame)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist game 42")
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	games := &fakeGames{}
	p := newProcessor(games, &fakeCache{}, nil)
	p.Reader = &fakeReader{
		msgs:   []kafka.Message{{Value: []byte(validGame)}, {Value: []byte(validGame)}},
		cancel: cancel,
	}
	consumed := 0
	p.OnConsumed = func() { consumed++ }

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, consumed)
	assert.Len(t, games.saved, 2)
}
