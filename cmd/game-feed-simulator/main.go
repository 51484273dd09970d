package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/simulator"
	"github.com/radieske/public-fade-tracker/internal/shared/config"
	"github.com/radieske/public-fade-tracker/internal/shared/kafka"
	"github.com/radieske/public-fade-tracker/internal/shared/logger"
	"github.com/radieske/public-fade-tracker/internal/shared/metrics"
)

var (
	// Métricas Prometheus do feed simulado
	gamesPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_games_published_total",
		Help: "Snapshots de jogos publicados em games_raw",
	}, []string{"sport", "status"})
	publishErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulator_publish_errors_total",
		Help: "Falhas ao publicar no Kafka",
	})
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config: %w", err))
	}
	log, err := logger.New(logger.Options{Service: cfg.ServiceName, Env: cfg.Env, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(gamesPublished, publishErrors)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	brokers := kafka.Brokers(cfg.KafkaBrokers)
	if err := kafka.EnsureTopics(ctx, brokers, log, cfg.TopicGamesRaw); err != nil {
		log.Warn("kafka ensure topics failed", zap.Error(err))
	}
	writer := kafka.NewWriter(brokers, cfg.TopicGamesRaw)
	defer writer.Close()

	srv := metrics.StartMetricsServer(cfg.MetricsPort, log, nil)
	defer srv.Close()

	feed := simulator.NewFeed(cfg.DesignatedBookID, cfg.SimulatorGames, time.Now().UnixNano(), time.Now)

	log.Info("game feed simulator running",
		zap.String("topic", cfg.TopicGamesRaw),
		zap.Duration("interval", cfg.SimulatorInterval),
		zap.Int("games", cfg.SimulatorGames),
	)

	// Gera e publica snapshots a cada intervalo
	ticker := time.NewTicker(cfg.SimulatorInterval)
	defer ticker.Stop()
	for {
		for _, g := range feed.Next() {
			b, err := json.Marshal(g)
			if err != nil {
				log.Warn("marshal raw game failed", zap.Error(err))
				continue
			}
			if err := kafka.WriteJSON(ctx, writer, string(g.ID), b); err != nil {
				if ctx.Err() != nil {
					break
				}
				publishErrors.Inc()
				log.Warn("publish raw game failed", zap.String("game_id", string(g.ID)), zap.Error(err))
				continue
			}
			gamesPublished.WithLabelValues(g.Sport, g.Status).Inc()
		}

		select {
		case <-ctx.Done():
			log.Info("game feed simulator stopped")
			return
		case <-ticker.C:
		}
	}
}
