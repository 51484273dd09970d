package publisher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/pkg/contracts/events"
)

type AlertPublisher interface {
	PublishCreated(ctx context.Context, a domain.Alert, matchup string) error
	PublishResolved(ctx context.Context, a domain.Alert) error
}

type Broadcaster interface {
	PublishJSON(ctx context.Context, v any) error
}

// Fanout entrega cada alerta no Kafka (durável) e no Redis Pub/Sub (stream ao vivo).
// Falha do broadcast só gera warning; falha do Kafka volta como erro.
type Fanout struct {
	Kafka     AlertPublisher
	Broadcast Broadcaster // opcional
	Log       *zap.Logger
}

func (f *Fanout) AlertCreated(ctx context.Context, a domain.Alert, g domain.NormalizedGame) error {
	matchup := g.Matchup()
	var err error
	if f.Kafka != nil {
		err = f.Kafka.PublishCreated(ctx, a, matchup)
	}
	f.broadcast(ctx, ToEvent(a, events.FadeAlertKindCreated, matchup))
	return err
}

func (f *Fanout) AlertResolved(ctx context.Context, a domain.Alert) error {
	var err error
	if f.Kafka != nil {
		err = f.Kafka.PublishResolved(ctx, a)
	}
	f.broadcast(ctx, ToEvent(a, events.FadeAlertKindResolved, ""))
	return err
}

func (f *Fanout) broadcast(ctx context.Context, ev events.FadeAlert) {
	if f.Broadcast == nil {
		return
	}
	if err := f.Broadcast.PublishJSON(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		f.Log.Warn("ws broadcast publish failed", zap.String("alert_id", ev.AlertID), zap.Error(err))
	}
}
