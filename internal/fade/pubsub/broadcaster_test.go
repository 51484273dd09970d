package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, ChannelFadeAlerts)
	defer sub.Close()
	_, err := sub.Receive(ctx) // confirmação da inscrição
	require.NoError(t, err)

	b := NewRedisBroadcaster(rdb, "")
	require.NoError(t, b.PublishJSON(ctx, map[string]string{"alert_id": "a1"}))

	select {
	case msg := <-sub.Channel():
		assert.JSONEq(t, `{"alert_id":"a1"}`, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
