package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterFailures(t *testing.T) {
	p := NewPolicy(3, time.Millisecond)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	p := NewPolicy(2, time.Millisecond)
	boom := errors.New("db down")
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	p := NewPolicy(5, time.Millisecond)
	bad := errors.New("bad input")
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(bad)
	})
	assert.Equal(t, bad, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	p := NewPolicy(5, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNext_Capped(t *testing.T) {
	p := NewPolicy(3, 20*time.Second)
	assert.Equal(t, 30*time.Second, p.next(20*time.Second))
	assert.Equal(t, 15*time.Second, p.next(10*time.Second))
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	p := NewPolicy(0, time.Millisecond)
	calls := 0
	_ = p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("x")
	})
	assert.Equal(t, 1, calls)
}
