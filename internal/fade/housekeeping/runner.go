package housekeeping

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner agenda jobs de manutenção com robfig/cron no fuso do slate.
// Todos os jobs recebem o contexto base do serviço.
type Runner struct {
	cron    *cron.Cron
	log     *zap.Logger
	baseCtx context.Context
}

func NewRunner(baseCtx context.Context, loc *time.Location, log *zap.Logger) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Runner{
		cron:    cron.New(cron.WithLocation(loc)),
		log:     log,
		baseCtx: baseCtx,
	}
}

// Add registra um job; spec aceita 5 campos ou descritores (@hourly, @every 30m)
func (r *Runner) Add(name, spec string, job func(context.Context) error) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := job(r.baseCtx); err != nil {
			r.log.Warn("housekeeping job failed", zap.String("job", name), zap.Error(err))
			return
		}
		r.log.Debug("housekeeping job done", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
	})
}

// Entries expõe os agendamentos (usado em logs de startup e testes)
func (r *Runner) Entries() []cron.Entry {
	return r.cron.Entries()
}

func (r *Runner) Start() {
	r.log.Info("housekeeping cron started", zap.Int("jobs", len(r.cron.Entries())))
	r.cron.Start()
}

// Stop espera os jobs em andamento terminarem
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.log.Info("housekeeping cron stopped")
}
