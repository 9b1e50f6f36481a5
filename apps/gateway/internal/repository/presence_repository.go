package repository

import (
	"context"
	"strconv"
	"time"

	"HobbyChat/apps/gateway/internal/mq"
	rediskey "HobbyChat/consts/redisKey"

	"github.com/redis/go-redis/v9"
)

// presenceRepositoryImpl 最后在线时间（仅 Redis）
type presenceRepositoryImpl struct {
	rdb *redis.Client
}

// NewPresenceRepository 创建在线状态仓储实例，redisClient 为 nil 时不记录
func NewPresenceRepository(redisClient *redis.Client) IPresenceRepository {
	return &presenceRepositoryImpl{rdb: redisClient}
}

func (r *presenceRepositoryImpl) SetLastSeen(ctx context.Context, userID string, at time.Time) error {
	if r.rdb == nil {
		return nil
	}
	key := rediskey.PresenceLastSeenKey(userID)
	val := at.UnixMilli()
	if err := r.rdb.Set(ctx, key, val, rediskey.PresenceLastSeenTTL).Err(); err != nil {
		LogAndRetryRedisError(ctx, mq.BuildSetTask(key, val, rediskey.PresenceLastSeenTTL).WithSource("PresenceRepository.SetLastSeen"), err)
		return WrapRedisError(err)
	}
	return nil
}

func (r *presenceRepositoryImpl) GetLastSeen(ctx context.Context, userID string) (time.Time, error) {
	if r.rdb == nil {
		return time.Time{}, nil
	}
	val, err := r.rdb.Get(ctx, rediskey.PresenceLastSeenKey(userID)).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, WrapRedisError(err)
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms), nil
}
