package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
)

// GameCache guarda o último snapshot normalizado de cada jogo no Redis
type GameCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewGameCache(c *redis.Client, ttl time.Duration) *GameCache {
	return &GameCache{Client: c, TTL: ttl}
}

func key(gameID string) string { return "fade:game:" + gameID }

// Set grava o jogo com TTL
func (c *GameCache) Set(ctx context.Context, g domain.NormalizedGame) error {
	b, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key(g.GameID), b, c.TTL).Err()
}

// Get devolve (jogo, encontrado, erro); miss não é erro
func (c *GameCache) Get(ctx context.Context, gameID string) (domain.NormalizedGame, bool, error) {
	b, err := c.Client.Get(ctx, key(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NormalizedGame{}, false, nil
	}
	if err != nil {
		return domain.NormalizedGame{}, false, err
	}
	var g domain.NormalizedGame
	if err := json.Unmarshal(b, &g); err != nil {
		return domain.NormalizedGame{}, false, err
	}
	return g, true, nil
}

// GameSource é a fonte durável de jogos (Postgres)
type GameSource interface {
	Get(ctx context.Context, gameID string) (domain.NormalizedGame, error)
}

// ReadThrough consulta o cache e cai para a fonte em caso de miss.
// Jogos terminais são cacheados também: o resolver lê cada um várias vezes.
type ReadThrough struct {
	Cache  *GameCache
	Source GameSource
}

func (r *ReadThrough) Get(ctx context.Context, gameID string) (domain.NormalizedGame, error) {
	if g, ok, err := r.Cache.Get(ctx, gameID); err == nil && ok {
		return g, nil
	}
	g, err := r.Source.Get(ctx, gameID)
	if err != nil {
		return domain.NormalizedGame{}, err
	}
	_ = r.Cache.Set(ctx, g) // cache é best-effort
	return g, nil
}
