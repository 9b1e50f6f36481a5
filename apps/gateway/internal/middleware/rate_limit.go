package middleware

import (
	"context"
	"net/http"
	"time"

	"HobbyChat/consts"
	rediskey "HobbyChat/consts/redisKey"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/result"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// ==================== Redis 令牌桶 Lua 脚本 ====================

// luaTokenBucket 原子性地补充令牌并尝试消耗
//
//	KEYS[1]: 限流 key
//	ARGV[1]: 当前时间戳 (毫秒)
//	ARGV[2]: 令牌桶容量
//	ARGV[3]: 每秒产生的令牌数
//	ARGV[4]: 本次消耗的令牌数
//
// 返回 1 允许通过，0 令牌不足
var luaTokenBucket = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local info = redis.call('HMGET', key, 'tokens', 'last_time')
local current_tokens = tonumber(info[1])
local last_time = tonumber(info[2])

if current_tokens == nil then
    current_tokens = capacity
end
if last_time == nil then
    last_time = now
end

local time_diff = math.max(0, now - last_time)
local new_tokens = math.floor((time_diff * rate) / 1000)
if new_tokens > 0 then
    current_tokens = math.min(capacity, current_tokens + new_tokens)
    last_time = now
end

local allowed = 0
if current_tokens >= requested then
    current_tokens = current_tokens - requested
    allowed = 1
end

redis.call('HSET', key, 'tokens', current_tokens, 'last_time', last_time)

local fill_time = math.ceil(capacity / rate)
redis.call('EXPIRE', key, math.max(60, fill_time * 2))

return allowed
`)

const (
	redisLimitTimeout = 50 * time.Millisecond
	localLimiterSize  = 10000
)

// ==================== 限流器 ====================

// RateLimiter 令牌桶限流器。
// 有 Redis 时多实例共享额度；Redis 不可用或超时时降级到进程内令牌桶，保证仍有基本保护
type RateLimiter struct {
	client *redis.Client
	rate   float64
	burst  int
	local  *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter 创建限流器，client 为 nil 时只使用进程内令牌桶
// rate: 每秒产生的令牌数；burst: 令牌桶容量
func NewRateLimiter(client *redis.Client, r float64, burst int) *RateLimiter {
	local, _ := lru.New[string, *rate.Limiter](localLimiterSize)
	if burst <= 0 {
		burst = max(int(r), 1)
	}
	return &RateLimiter{client: client, rate: r, burst: burst, local: local}
}

// Allow 检查 key 是否还有令牌
func (l *RateLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.rate <= 0 {
		return true
	}
	if l.client != nil {
		// 给 Redis 操作一个独立的短超时，防止 Redis 响应慢拖死网关
		redisCtx, cancel := context.WithTimeout(ctx, redisLimitTimeout)
		defer cancel()

		allowed, err := luaTokenBucket.Run(redisCtx, l.client, []string{key},
			time.Now().UnixMilli(), l.burst, l.rate, 1).Int64()
		if err == nil {
			return allowed == 1
		}
		logger.Warn(ctx, "Redis 限流检查失败，降级到本地令牌桶",
			logger.String("key", key),
			logger.ErrorField("error", err),
		)
	}
	return l.localLimiter(key).Allow()
}

func (l *RateLimiter) localLimiter(key string) *rate.Limiter {
	if lim, ok := l.local.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(l.rate), l.burst)
	if prev, ok, _ := l.local.PeekOrAdd(key, lim); ok {
		return prev
	}
	return lim
}

// ==================== 黑名单 ====================

// CheckBlacklist 检查 IP 是否在黑名单 Set 中；Redis 不可用时视为不在黑名单
func CheckBlacklist(ctx context.Context, client *redis.Client, blacklistKey, ip string) bool {
	if client == nil {
		return false
	}
	exists, err := client.SIsMember(ctx, blacklistKey, ip).Result()
	if err != nil {
		logger.Warn(ctx, "Redis 黑名单检查失败，降级放行",
			logger.String("ip", ip),
			logger.ErrorField("error", err),
		)
		return false
	}
	return exists
}

// ==================== 中间件 ====================

// IPRateLimitMiddleware IP 级别限流，先查黑名单再扣令牌
func IPRateLimitMiddleware(limiter *RateLimiter, blacklistKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := NewContextWithGin(c)

		ip, ok := GetClientIPSafe(c)
		if !ok {
			// 无法获取 IP，放行
			logger.Warn(ctx, "无法获取客户端 IP，跳过限流检查",
				logger.String("path", c.Request.URL.Path),
			)
			c.Next()
			return
		}

		if blacklistKey != "" && CheckBlacklist(ctx, limiter.client, blacklistKey, ip) {
			logger.Warn(ctx, "IP 在黑名单中，拒绝访问",
				logger.String("ip", ip),
				logger.String("path", c.Request.URL.Path),
			)
			result.Abort(c, http.StatusForbidden, consts.CodePermissionDeny)
			return
		}

		if !limiter.Allow(ctx, rediskey.GatewayIPRateLimitKey(ip)) {
			logger.Warn(ctx, "IP 请求被限流",
				logger.String("ip", ip),
				logger.String("path", c.Request.URL.Path),
				logger.String("method", c.Request.Method),
			)
			result.Abort(c, http.StatusTooManyRequests, consts.CodeTooManyRequests)
			return
		}

		c.Next()
	}
}

// UserRateLimitMiddleware 用户级别限流，需要在 JWTAuthMiddleware 之后使用
func UserRateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userUUID, ok := GetUserUUID(c)
		if !ok {
			c.Next()
			return
		}

		ctx := NewContextWithGin(c)
		if !limiter.Allow(ctx, rediskey.GatewayUserRateLimitKey(userUUID)) {
			logger.Warn(ctx, "用户请求被限流",
				logger.String("path", c.Request.URL.Path),
				logger.String("method", c.Request.Method),
			)
			result.Abort(c, http.StatusTooManyRequests, consts.CodeTooManyRequests)
			return
		}

		c.Next()
	}
}
