package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/cache"
	"github.com/radieske/public-fade-tracker/internal/fade/consumer"
	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/internal/fade/normalize"
	"github.com/radieske/public-fade-tracker/internal/fade/repo"
	sharedcache "github.com/radieske/public-fade-tracker/internal/shared/cache"
	"github.com/radieske/public-fade-tracker/internal/shared/config"
	"github.com/radieske/public-fade-tracker/internal/shared/db"
	"github.com/radieske/public-fade-tracker/internal/shared/kafka"
	"github.com/radieske/public-fade-tracker/internal/shared/logger"
	"github.com/radieske/public-fade-tracker/internal/shared/metrics"
	"github.com/radieske/public-fade-tracker/internal/shared/retry"
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

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres e Redis
	startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
	defer startCancel()

	pg, err := db.ConnectPostgres(startCtx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := repo.Migrate(startCtx, pg); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	redisClient, err := sharedcache.ConnectRedis(startCtx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	brokers := kafka.Brokers(cfg.KafkaBrokers)
	if cfg.Env == "local" {
		if err := kafka.EnsureTopics(startCtx, brokers, log, cfg.TopicGamesRaw, cfg.TopicGamesRawDLQ); err != nil {
			log.Warn("kafka ensure topics failed", zap.Error(err))
		}
	}

	// Configura o consumer Kafka (consumer group fade-ingest)
	reader := kafka.NewReader(brokers, cfg.TopicGamesRaw, "fade-ingest")
	defer reader.Close()
	dlq := kafka.NewWriter(brokers, cfg.TopicGamesRawDLQ)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento da ingestão
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "fade_ingest_messages_consumed_total", Help: "mensagens consumidas"})
	normalized := prometheus.NewCounter(prometheus.CounterOpts{Name: "fade_ingest_games_normalized_total", Help: "jogos normalizados"})
	persisted := prometheus.NewCounter(prometheus.CounterOpts{Name: "fade_ingest_db_writes_total", Help: "upserts de jogos"})
	terminal := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fade_ingest_games_by_status_total", Help: "jogos gravados por status"}, []string{"sport", "status"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fade_ingest_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, normalized, persisted, terminal, errorsBy)

	scale, err := normalize.ParseScale(cfg.PercentScale)
	if err != nil {
		log.Fatal("invalid percent scale", zap.Error(err))
	}
	normalizer := normalize.New(cfg.DesignatedBookID, cfg.Location())
	normalizer.PercentScale = scale

	proc := &consumer.Processor{
		Log:          logger.Component(log, "consumer"),
		Reader:       reader,
		Normalizer:   normalizer,
		Games:        repo.NewGameRepo(pg),
		Cache:        cache.NewGameCache(redisClient, cfg.GameCacheTTL),
		DLQ:          dlq,
		Retry:        retry.NewPolicy(cfg.MaxRetries, 500*time.Millisecond),
		OnConsumed:   func() { consumed.Inc() },
		OnNormalized: func() { normalized.Inc() },
		OnPersist:    func() { persisted.Inc() },
		OnError:      func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
		OnAfterPersist: func(g domain.NormalizedGame) {
			terminal.WithLabelValues(string(g.Sport), string(g.Status)).Inc()
		},
	}

	// Servidor HTTP para métricas e health check
	srv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.All(db.Health(pg), sharedcache.Health(redisClient)))
	defer srv.Close()

	log.Info("fade-ingest-worker started",
		zap.String("topic", cfg.TopicGamesRaw),
		zap.String("book_id", cfg.DesignatedBookID),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("fade-ingest-worker stopped")
}
