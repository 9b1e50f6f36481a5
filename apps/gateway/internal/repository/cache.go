package repository

import (
	"context"
	"time"

	"HobbyChat/apps/gateway/internal/mq"
	rediskey "HobbyChat/consts/redisKey"

	"github.com/redis/go-redis/v9"
)

// setCache 关系集合的 Cache-Aside 读写。
// 空集合用 __EMPTY__ 占位，Key 存在即视为权威结果。
type setCache struct {
	rdb *redis.Client
}

// load 先读 Redis，未命中或 Redis 故障时回源 loader 并重建缓存
func (c setCache) load(ctx context.Context, key string, ttl time.Duration, source string, loader func() ([]string, error)) ([]string, error) {
	if c.rdb == nil {
		return loader()
	}

	pipe := c.rdb.Pipeline()
	existsCmd := pipe.Exists(ctx, key)
	membersCmd := pipe.SMembers(ctx, key)
	// 概率续期：1% 的读请求顺便续期热点 Key
	if getRandomBool(0.01) {
		pipe.Expire(ctx, key, getRandomExpireTime(ttl))
	}
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		LogRedisError(ctx, err)
	} else if err == nil && existsCmd.Val() > 0 {
		return stripEmpty(membersCmd.Val()), nil
	}

	members, err := loader()
	if err != nil {
		return nil, err
	}
	c.rebuild(ctx, key, members, ttl, source)
	return members, nil
}

// rebuild 用 members 覆盖集合
func (c setCache) rebuild(ctx context.Context, key string, members []string, ttl time.Duration, source string) {
	if c.rdb == nil {
		return
	}
	values := make([]interface{}, 0, len(members))
	for _, m := range members {
		values = append(values, m)
	}
	expire := getRandomExpireTime(ttl)
	if len(values) == 0 {
		values = append(values, rediskey.EmptyMember)
		expire = rediskey.RelationEmptyTTL
	}

	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, key)
	pipe.SAdd(ctx, key, values...)
	pipe.Expire(ctx, key, expire)
	if _, err := pipe.Exec(ctx); err != nil {
		cmds := []mq.RedisCmd{
			{Command: "del", Args: []interface{}{key}},
			{Command: "sadd", Args: append([]interface{}{key}, values...)},
			{Command: "expire", Args: []interface{}{key, int(expire.Seconds())}},
		}
		LogAndRetryRedisError(ctx, mq.BuildPipelineTask(cmds).WithSource(source), err)
	}
}

// addIfExists 集合存在时增量加入 member
func (c setCache) addIfExists(ctx context.Context, key, member string, ttl time.Duration, source string) {
	if c.rdb == nil {
		return
	}
	expireSeconds := int(getRandomExpireTime(ttl).Seconds())
	if err := redis.NewScript(luaAddToSetIfExists).Run(ctx, c.rdb, []string{key}, member, expireSeconds).Err(); err != nil && err != redis.Nil {
		task := mq.BuildLuaTask(luaAddToSetIfExists, []string{key}, member, expireSeconds).WithSource(source)
		LogAndRetryRedisError(ctx, task, err)
	}
}

// del 删除 Key，失败进入重试队列
func (c setCache) del(ctx context.Context, source string, keys ...string) {
	if c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		LogAndRetryRedisError(ctx, mq.BuildDelTask(keys...).WithSource(source), err)
	}
}
