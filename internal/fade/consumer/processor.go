package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/internal/fade/normalize"
	"github.com/radieske/public-fade-tracker/internal/shared/retry"
	"github.com/radieske/public-fade-tracker/pkg/contracts/events"
)

// MessageReader é o subconjunto de *kafka.Reader usado pelo Processor
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// GameWriter grava o jogo; applied=false quando o banco já tinha um snapshot mais novo
type GameWriter interface {
	Upsert(ctx context.Context, g domain.NormalizedGame) (applied bool, err error)
}

type GameCacher interface {
	Set(ctx context.Context, g domain.NormalizedGame) error
}

// Processor consome jogos crus do Kafka, normaliza, persiste no Postgres e atualiza o cache.
// Mensagens que não decodificam ou não validam vão para a DLQ.
type Processor struct {
	Log        *zap.Logger
	Reader     MessageReader
	Normalizer *normalize.Normalizer
	Games      GameWriter
	Cache      GameCacher
	DLQ        MessageWriter // opcional
	Retry      *retry.Policy // persistência; nil = uma tentativa

	OnConsumed     func()       // métricas (counter++)
	OnNormalized   func()       // métricas
	OnPersist      func()       // métricas
	OnError        func(string) // métricas por fase
	OnAfterPersist func(domain.NormalizedGame)
}

// Run inicia o loop de consumo até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.Handle(ctx, m); err != nil {
			p.Log.Warn("game message not processed", zap.ByteString("key", m.Key), zap.Error(err))
		}
	}
}

// Handle processa uma mensagem. Dados inválidos não são erro de processamento:
// vão para a DLQ e o consumo segue.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	var raw events.RawGame
	if err := json.Unmarshal(m.Value, &raw); err != nil {
		p.Log.Warn("invalid game message", zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, "decode", err)
		return nil
	}

	g, err := p.Normalizer.Normalize(raw)
	if err != nil {
		// problema de qualidade de dado, não falha dura
		p.Log.Warn("game skipped at ingestion",
			zap.String("game_id", string(raw.ID)), zap.String("sport", raw.Sport), zap.Error(err))
		p.fail("normalize")
		p.deadLetter(ctx, m, "normalize", err)
		return nil
	}
	if p.OnNormalized != nil {
		p.OnNormalized()
	}
	if len(g.Spread)+len(g.Total)+len(g.Moneyline) == 0 && !g.Status.IsTerminal() {
		p.Log.Debug("no designated book markets", zap.String("game_id", g.GameID))
	}

	var applied bool
	persist := func(ctx context.Context) error {
		var err error
		applied, err = p.Games.Upsert(ctx, g)
		return err
	}
	if p.Retry != nil {
		err = p.Retry.Do(ctx, persist)
	} else {
		err = persist(ctx)
	}
	if err != nil {
		p.fail("db_upsert")
		return fmt.Errorf("persist game %s: %w", g.GameID, err)
	}
	if !applied {
		// snapshot fora de ordem: cache e banco ficam com a versão mais nova
		p.Log.Debug("stale game snapshot ignored",
			zap.String("game_id", g.GameID), zap.Time("updated_at", g.UpdatedAt))
		return nil
	}

	// cache é best-effort: o Postgres continua sendo a fonte
	if p.Cache != nil {
		if err := p.Cache.Set(ctx, g); err != nil {
			p.Log.Warn("redis set failed", zap.String("game_id", g.GameID), zap.Error(err))
			p.fail("cache")
		}
	}

	if p.OnPersist != nil {
		p.OnPersist()
	}
	if p.OnAfterPersist != nil {
		p.OnAfterPersist(g)
	}
	return nil
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, stage string, cause error) {
	if p.DLQ == nil {
		return
	}
	dlq := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "stage", Value: []byte(stage)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	}
	if err := p.DLQ.WriteMessages(ctx, dlq); err != nil {
		p.Log.Error("dlq publish failed", zap.String("stage", stage), zap.Error(err))
		p.fail("dlq")
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
