package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/movecraft/choreo-backend/internal/platform/envutil"
	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/types"
)

// RenderQueue hands validated blueprints to the external execution worker.
type RenderQueue interface {
	Enqueue(ctx context.Context, bp *types.Blueprint) error
	Close() error
}

type redisRenderQueue struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
}

// NewRedisRenderQueue connects to the queue the render worker consumes.
// Callers should only construct it when REDIS_ADDR is configured.
func NewRedisRenderQueue(log *logger.Logger) (RenderQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(envutil.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := envutil.GetEnv("RENDER_QUEUE_KEY", "choreo:render:queue", log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisRenderQueue{
		log: log.With("service", "RedisRenderQueue"),
		rdb: rdb,
		key: key,
	}, nil
}

func (q *redisRenderQueue) Enqueue(ctx context.Context, bp *types.Blueprint) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("render queue not initialized")
	}
	raw, err := bp.MarshalWire()
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("render queue push: %w", err)
	}
	q.log.Debug("blueprint enqueued", "task_id", bp.TaskID, "key", q.key)
	return nil
}

func (q *redisRenderQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}
