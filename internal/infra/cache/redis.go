package cache

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const maxRetries = 10

// Connect は Redis に接続し、応答するまで指数バックオフで待つ。
func Connect(ctx context.Context, addr string, db int, log logrus.FieldLogger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	for i := 0; i < maxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()

		if err == nil {
			log.WithFields(logrus.Fields{"addr": addr, "db": db}).Info("connected to redis")
			return rdb, nil
		}
		if i == maxRetries-1 {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis after %d retries: %w", maxRetries, err)
		}

		backoff := time.Duration(1<<i) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
		log.WithError(err).Warnf("redis not ready, retry in %v (%d/%d)", backoff, i+1, maxRetries)

		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return rdb, nil
}
