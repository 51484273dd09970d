package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	sharedkafka "github.com/radieske/public-fade-tracker/internal/shared/kafka"
	"github.com/radieske/public-fade-tracker/pkg/contracts/events"
)

// MessageWriter é o subconjunto de *kafka.Writer usado aqui (mockável nos testes)
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica eventos de alerta nos tópicos de criação e resolução
type KafkaPublisher struct {
	created  MessageWriter
	resolved MessageWriter
	log      *zap.Logger
}

// NewKafkaPublisher cria os writers dos dois tópicos de alerta
func NewKafkaPublisher(brokers []string, createdTopic, resolvedTopic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		created:  sharedkafka.NewWriter(brokers, createdTopic),
		resolved: sharedkafka.NewWriter(brokers, resolvedTopic),
		log:      log,
	}
}

// ToEvent converte o alerta no contrato publicado
func ToEvent(a domain.Alert, kind, matchup string) events.FadeAlert {
	return events.FadeAlert{
		Kind:               kind,
		AlertID:            a.ID,
		GameID:             a.GameID,
		Sport:              string(a.Sport),
		Market:             string(a.Market),
		FadedOutcomeLabel:  string(a.FadedOutcomeLabel),
		FadedValue:         a.FadedValue,
		Odds:               a.Odds,
		ImpliedProbability: a.ImpliedProbability,
		TicketsPercent:     a.TicketsPercent,
		MoneyPercent:       a.MoneyPercent,
		Rating:             a.Rating,
		Reason:             a.Reason,
		Date:               a.Date,
		Status:             string(a.Status),
		Matchup:            matchup,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

// PublishCreated publica um alerta recém-criado
func (p *KafkaPublisher) PublishCreated(ctx context.Context, a domain.Alert, matchup string) error {
	return p.publish(ctx, p.created, ToEvent(a, events.FadeAlertKindCreated, matchup))
}

// PublishResolved publica a transição para won/lost/error
func (p *KafkaPublisher) PublishResolved(ctx context.Context, a domain.Alert) error {
	return p.publish(ctx, p.resolved, ToEvent(a, events.FadeAlertKindResolved, ""))
}

// A chave é o game_id: eventos do mesmo jogo ficam na mesma partição, em ordem.
func (p *KafkaPublisher) publish(ctx context.Context, w MessageWriter, e events.FadeAlert) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(e.GameID),
		Value: value,
		Time:  time.Now(),
	}

	if err := w.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish fade alert",
			zap.String("kind", e.Kind), zap.String("alert_id", e.AlertID), zap.Error(err))
		return err
	}

	p.log.Debug("published fade alert", zap.String("kind", e.Kind), zap.String("alert_id", e.AlertID))
	return nil
}

// Close finaliza os writers
func (p *KafkaPublisher) Close() error {
	err1 := p.created.Close()
	err2 := p.resolved.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
