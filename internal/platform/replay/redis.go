package replay

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var firstUseDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "landlock_replay_first_use_duration_ms",
	Help:    "Latency of replay-guard checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const jtiKeyPrefix = "replay:jti:"

// Redis is the shared guard for deployments with more than one instance.
// SETNX with TTL is atomic, so concurrent presentations of the same token
// resolve to exactly one winner.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) FirstUse(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	start := time.Now()
	defer func() {
		firstUseDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if ttl <= 0 {
		ttl = time.Minute
	}
	return r.client.SetNX(ctx, jtiKeyPrefix+jti, "1", ttl).Result()
}
