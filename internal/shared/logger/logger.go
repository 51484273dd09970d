package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options descreve o logger base de um serviço
type Options struct {
	Service string
	Env     string   // "local" usa console colorido; o resto, JSON
	Level   string   // vazio = debug em local, info nos demais
	Outputs []string // vazio = stderr
}

// New monta o logger raiz do serviço. O nome do logger é o serviço e
// service/env vão como campos fixos em toda linha; Component deriva os filhos.
func New(opts Options) (*zap.Logger, error) {
	local := opts.Env == "local"

	cfg := zap.NewProductionConfig()
	if local {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	if lvl := strings.TrimSpace(opts.Level); lvl != "" {
		al, err := zap.ParseAtomicLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", lvl, err)
		}
		cfg.Level = al
	}
	if len(opts.Outputs) > 0 {
		cfg.OutputPaths = opts.Outputs
	}

	l, err := cfg.Build(zap.Fields(
		zap.String("service", opts.Service),
		zap.String("env", opts.Env),
	))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if opts.Service != "" {
		l = l.Named(opts.Service)
	}
	return l, nil
}

// Component deriva um logger nomeado para um componente (engine, resolver, consumer...)
func Component(l *zap.Logger, name string) *zap.Logger {
	return l.Named(name).With(zap.String("component", name))
}
