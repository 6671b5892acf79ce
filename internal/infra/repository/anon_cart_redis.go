package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	repo "storefront/internal/repository"

	redis "github.com/redis/go-redis/v9"
)

// 匿名カートの保持期間（書き込みのたびに延長）
const anonCartTTL = 30 * 24 * time.Hour

// 匿名カート。cart:a:<anon> の hash に variant_id -> qty
type AnonCartRedis struct {
	rdb *redis.Client
}

func NewAnonCartRedis(rdb *redis.Client) *AnonCartRedis {
	return &AnonCartRedis{rdb: rdb}
}

var _ repo.AnonCartRepository = (*AnonCartRedis)(nil)

func anonKey(anonID string) string {
	return fmt.Sprintf("cart:a:%s", anonID)
}

func (r *AnonCartRedis) Get(ctx context.Context, anonID string) (map[int64]int, error) {
	data, err := r.rdb.HGetAll(ctx, anonKey(anonID)).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[int64]int, len(data))
	for k, v := range data {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		q, err := strconv.Atoi(v)
		if err != nil || q <= 0 {
			continue
		}
		out[id] = q
	}
	return out, nil
}

func (r *AnonCartRedis) Set(ctx context.Context, anonID string, variantID int64, qty int) error {
	if qty <= 0 {
		return r.Delete(ctx, anonID, variantID)
	}

	key := anonKey(anonID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, strconv.FormatInt(variantID, 10), qty)
	pipe.Expire(ctx, key, anonCartTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *AnonCartRedis) Delete(ctx context.Context, anonID string, variantID int64) error {
	return r.rdb.HDel(ctx, anonKey(anonID), strconv.FormatInt(variantID, 10)).Err()
}

func (r *AnonCartRedis) Clear(ctx context.Context, anonID string) error {
	return r.rdb.Del(ctx, anonKey(anonID)).Err()
}
