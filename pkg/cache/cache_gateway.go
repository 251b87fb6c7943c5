package cache

import (
	"context"
	"time"

	"github.com/sepich/image-cache/pkg/metrics"
	"go.uber.org/zap"
)

// Gateway wraps a Store and never surfaces its errors: a failing Get is a miss
// and a failing Set is a no-op. Both are logged and counted.
type Gateway struct {
	store  Store
	logger *zap.Logger
}

func NewGateway(store Store, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{store: store, logger: logger}
}

func (g *Gateway) Get(ctx context.Context, key string) ([]byte, bool) {
	value, found, err := g.store.Get(ctx, key)
	if err != nil {
		metrics.CacheErrorCounterTotal.WithLabelValues(metrics.OpGet).Inc()
		g.logger.Warn("cache get failed, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	return value, true
}

func (g *Gateway) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := g.store.Set(ctx, key, value, ttl); err != nil {
		metrics.CacheErrorCounterTotal.WithLabelValues(metrics.OpSet).Inc()
		g.logger.Error("cache set failed", zap.String("key", key), zap.Error(err))
		return
	}
	g.logger.Debug("cached", zap.String("key", key), zap.Int("bytes", len(value)), zap.Duration("ttl", ttl))
}

func (g *Gateway) Close() error {
	return g.store.Close()
}
