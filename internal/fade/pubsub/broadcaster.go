package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// ChannelFadeAlerts é o canal Redis que alimenta o stream WebSocket do fade-api
const ChannelFadeAlerts = "fade_alerts_broadcast"

type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

// NewRedisBroadcaster publica em channel; vazio usa ChannelFadeAlerts
func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = ChannelFadeAlerts
	}
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.r.Publish(ctx, channel, payload).Err()
}

// PublishJSON serializa v e publica no canal de alertas
func (b *RedisBroadcaster) PublishJSON(ctx context.Context, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Publish(ctx, b.channel, payload)
}
