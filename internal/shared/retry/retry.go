package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy executa uma função com backoff exponencial (1.5x, teto em MaxDelay)
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NewPolicy cria uma política com multiplicador 1.5 e teto de 30s
func NewPolicy(maxAttempts int, initialDelay time.Duration) *Policy {
	return &Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: initialDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   1.5,
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marca um erro que não deve ser tentado de novo
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do roda fn até sucesso, erro permanente, fim das tentativas ou ctx cancelado
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		// sem espera depois da última tentativa
		if attempt == attempts {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, errors.Join(ctx.Err(), lastErr))
		case <-t.C:
		}
		delay = p.next(delay)
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (p *Policy) next(d time.Duration) time.Duration {
	m := p.Multiplier
	if m <= 1 {
		m = 1.5
	}
	d = time.Duration(float64(d) * m)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
