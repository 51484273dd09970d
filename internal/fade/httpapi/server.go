package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/internal/fade/settings"
)

type AlertReader interface {
	Get(ctx context.Context, id string) (domain.Alert, error)
	ListPending(ctx context.Context) ([]domain.Alert, error)
	ListByDate(ctx context.Context, date string, sport domain.Sport) ([]domain.Alert, error)
	ListRecent(ctx context.Context, sport domain.Sport, limit int) ([]domain.Alert, error)
	ListSince(ctx context.Context, since time.Time) ([]domain.Alert, error)
}

type SnapshotReader interface {
	Get(ctx context.Context) (domain.PerformanceSnapshot, error)
}

type SettingsStore interface {
	Load(ctx context.Context) (settings.Settings, error)
	Update(ctx context.Context, field, value string) error
}

// API expõe a leitura de alertas, performance e ajustes de runtime,
// além do stream WebSocket (WS) quando configurado
type API struct {
	Alerts      AlertReader
	Snapshots   SnapshotReader
	Settings    SettingsStore // opcional
	WS          http.HandlerFunc
	Log         *zap.Logger
	Location    *time.Location
	WindowDays  int
	CORSOrigins []string
	Now         func() time.Time
}

// Router retorna o roteador HTTP com middlewares e endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(chimiddleware.Recoverer)

	origins := a.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/fades", func(r chi.Router) {
			r.Use(chimiddleware.Timeout(10 * time.Second))
			r.Get("/recent", a.listRecent)   // últimos resolvidos
			r.Get("/stats", a.getStats)      // snapshot de performance
			r.Get("/pending", a.listPending) // pendentes
			r.Get("/today", a.listToday)     // slate do dia
			r.Get("/{id}", a.getAlert)
		})
		r.Get("/settings", a.getSettings)
		r.Put("/settings/{field}", a.updateSettings)
	})

	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger registra cada request com zap
func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

func (a *API) log() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *API) loc() *time.Location {
	if a.Location == nil {
		return time.UTC
	}
	return a.Location
}

func (a *API) windowDays() int {
	if a.WindowDays <= 0 {
		return 30
	}
	return a.WindowDays
}
