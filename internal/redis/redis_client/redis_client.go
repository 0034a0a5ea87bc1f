package redis_client

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects the client backing the ranking boards and the
// ranking stream. It fails fast: an unreachable Redis at boot is a
// configuration problem, not something to retry into.
func NewRedisClient(host string, port int) (*redis.Client, error) {
	// Light traffic: board reads on the ranking endpoint plus a single
	// blocking stream consumer. A small per-CPU pool is plenty.
	poolSize := runtime.NumCPU() * 4
	if poolSize > 64 {
		poolSize = 64
	}

	rc := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		PoolSize:     poolSize,
		MinIdleConns: 2,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		zap.L().Error("redis-open", zap.String("addr", rc.Options().Addr), zap.Error(err))
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return rc, nil
}
