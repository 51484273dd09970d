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
	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/internal/fade/housekeeping"
	"github.com/radieske/public-fade-tracker/internal/fade/orchestrator"
	"github.com/radieske/public-fade-tracker/internal/fade/publisher"
	"github.com/radieske/public-fade-tracker/internal/fade/pubsub"
	"github.com/radieske/public-fade-tracker/internal/fade/repo"
	"github.com/radieske/public-fade-tracker/internal/fade/resolver"
	"github.com/radieske/public-fade-tracker/internal/fade/settings"
	sharedcache "github.com/radieske/public-fade-tracker/internal/shared/cache"
	"github.com/radieske/public-fade-tracker/internal/shared/config"
	"github.com/radieske/public-fade-tracker/internal/shared/db"
	"github.com/radieske/public-fade-tracker/internal/shared/kafka"
	"github.com/radieske/public-fade-tracker/internal/shared/logger"
	"github.com/radieske/public-fade-tracker/internal/shared/metrics"
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

	sports, err := domain.ParseSports(cfg.Sports)
	if err != nil {
		log.Fatal("invalid sports", zap.Error(err))
	}
	loc := cfg.Location()
	defaults := settings.DefaultsFrom(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres, Redis e Kafka
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
		if err := kafka.EnsureTopics(startCtx, brokers, log, cfg.TopicFadeAlertCreated, cfg.TopicFadeAlertResolved); err != nil {
			log.Warn("kafka ensure topics failed", zap.Error(err))
		}
	}

	// Repositórios e cache de jogos
	alerts := repo.NewAlertRepo(pg)
	games := repo.NewGameRepo(pg)
	perf := repo.NewPerformanceRepo(pg)
	gameCache := cache.NewGameCache(redisClient, cfg.GameCacheTTL)

	// Métricas Prometheus do ciclo detectar/resolver
	opportunities := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fade_engine_opportunities_total", Help: "oportunidades encontradas"}, []string{"sport", "market"})
	created := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fade_engine_alerts_created_total", Help: "alertas criados"}, []string{"sport", "rating"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fade_engine_outcomes_skipped_total", Help: "outcomes descartados"}, []string{"kind"})
	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fade_engine_alerts_resolved_total", Help: "alertas resolvidos por status"}, []string{"status"})
	pushes := prometheus.NewCounter(prometheus.CounterOpts{Name: "fade_engine_pushes_total", Help: "pushes (alerta segue pendente)"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fade_engine_errors_total", Help: "erros por estágio"}, []string{"stage"})
	tickDuration := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "fade_engine_tick_duration_seconds", Help: "duração do tick", Buckets: prometheus.DefBuckets})
	prometheus.MustRegister(opportunities, created, skipped, resolved, pushes, errorsBy, tickDuration)

	onError := func(stage string) { errorsBy.WithLabelValues(stage).Inc() }

	res := &resolver.Resolver{
		Alerts:      alerts,
		Games:       &cache.ReadThrough{Cache: gameCache, Source: games},
		Snapshots:   perf,
		Log:         logger.Component(log, "resolver"),
		GracePeriod: cfg.ResolveGracePeriod,
		WindowDays:  cfg.PerformanceWindowDays,
		Location:    loc,
		Now:         time.Now,
		OnResolved:  func(a domain.Alert) { resolved.WithLabelValues(string(a.Status)).Inc() },
		OnPush:      func(domain.Alert) { pushes.Inc() },
		OnError:     onError,
	}

	// Notificações: Kafka (durável) + Redis Pub/Sub (stream do fade-api)
	kpub := publisher.NewKafkaPublisher(brokers, cfg.TopicFadeAlertCreated, cfg.TopicFadeAlertResolved, log)
	defer kpub.Close()
	fanout := &publisher.Fanout{
		Kafka:     kpub,
		Broadcast: pubsub.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel),
		Log:       log,
	}

	engine := &orchestrator.Engine{
		Log:        logger.Component(log, "engine"),
		Games:      games,
		Alerts:     alerts,
		Settings:   settings.NewStore(redisClient, defaults),
		Defaults:   defaults,
		Resolver:   res,
		Notifier:   fanout,
		Sports:     sports,
		Location:   loc,
		Now:        time.Now,
		RetryDelay: time.Second,
		MinSleep:   orchestrator.MinSleep,
		OnOpportunity: func(o domain.Opportunity) {
			opportunities.WithLabelValues(string(o.Sport), string(o.Market)).Inc()
		},
		OnAlertCreated: func(a domain.Alert) {
			created.WithLabelValues(string(a.Sport), fmt.Sprint(a.Rating)).Inc()
		},
		OnSkipped: func(kind string) { skipped.WithLabelValues(kind).Inc() },
		OnTick:    func(elapsed time.Duration, _ error) { tickDuration.Observe(elapsed.Seconds()) },
		OnError:   onError,
	}

	// Housekeeping: retenção de jogos e aquecimento do cache
	jobs := &housekeeping.Jobs{
		Games:     games,
		Active:    games,
		Cache:     gameCache,
		Log:       logger.Component(log, "housekeeping"),
		Sports:    sports,
		Retention: time.Duration(cfg.GameRetentionDays) * 24 * time.Hour,
		Location:  loc,
		Now:       time.Now,
	}
	cron := housekeeping.NewRunner(ctx, loc, log)
	if _, err := cron.Add("prune_games", cfg.HousekeepingSchedule, jobs.PruneGames); err != nil {
		log.Fatal("invalid housekeeping schedule", zap.String("schedule", cfg.HousekeepingSchedule), zap.Error(err))
	}
	if _, err := cron.Add("warm_cache", "@every 15m", jobs.WarmCache); err != nil {
		log.Fatal("cron add warm_cache", zap.Error(err))
	}
	cron.Start()
	defer cron.Stop()

	// Servidor HTTP para métricas e health check
	srv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.All(db.Health(pg), sharedcache.Health(redisClient)))
	defer srv.Close()

	log.Info("fade-engine started",
		zap.Strings("sports", cfg.Sports),
		zap.String("timezone", loc.String()),
		zap.Duration("update_interval", cfg.UpdateInterval),
		zap.Int("fade_rating_threshold", cfg.FadeRatingThreshold),
	)
	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("engine stopped with error", zap.Error(err))
	}
	log.Info("fade-engine stopped")
}
