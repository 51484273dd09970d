package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/httpapi"
	"github.com/radieske/public-fade-tracker/internal/fade/repo"
	"github.com/radieske/public-fade-tracker/internal/fade/settings"
	"github.com/radieske/public-fade-tracker/internal/fade/ws"
	sharedcache "github.com/radieske/public-fade-tracker/internal/shared/cache"
	"github.com/radieske/public-fade-tracker/internal/shared/config"
	"github.com/radieske/public-fade-tracker/internal/shared/db"
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
	defer startCancel()

	pg, err := db.ConnectPostgres(startCtx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(startCtx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Hub WebSocket alimentado pelo canal de alertas no Redis Pub/Sub
	allowed := make(map[string]struct{}, len(cfg.CORSAllowedOrigins))
	for _, o := range cfg.CORSAllowedOrigins {
		allowed[o] = struct{}{}
	}
	hub := ws.NewHub(func(r *http.Request) bool {
		if _, wildcard := allowed["*"]; wildcard {
			return true
		}
		_, ok := allowed[r.Header.Get("Origin")]
		return ok
	}, logger.Component(log, "ws"))
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	api := &httpapi.API{
		Alerts:      repo.NewAlertRepo(pg),
		Snapshots:   repo.NewPerformanceRepo(pg),
		Settings:    settings.NewStore(redisClient, settings.DefaultsFrom(cfg)),
		WS:          hub.HandleWS,
		Log:         logger.Component(log, "http"),
		Location:    cfg.Location(),
		WindowDays:  cfg.PerformanceWindowDays,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Now:         time.Now,
	}

	// Servidor HTTP para métricas e health check
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.All(db.Health(pg), sharedcache.Health(redisClient)))
	defer msrv.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("fade-api listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server failed", zap.Error(err))
	}
	log.Info("fade-api stopped")
}
