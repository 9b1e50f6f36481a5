package rediskey

import (
	"fmt"
	"time"
)

// ==================== TTL 常量 ====================

const (
	// RelationConnectedTTL 已连接用户集合缓存 TTL
	RelationConnectedTTL = 24 * time.Hour
	// RelationBlockedTTL 拉黑关系集合缓存 TTL
	RelationBlockedTTL = 24 * time.Hour
	// RelationEmptyTTL 关系集合空值缓存 TTL
	RelationEmptyTTL = 5 * time.Minute

	// NotificationUnreadTTL 通知未读计数 TTL
	NotificationUnreadTTL = 7 * 24 * time.Hour

	// PresenceLastSeenTTL 最后在线时间保留时长
	PresenceLastSeenTTL = 30 * 24 * time.Hour
)

// EmptyMember 空集合占位成员，区分“缓存未命中”和“确实为空”
const EmptyMember = "__EMPTY__"

// ==================== Key 构造函数 ====================

// ConnectedSetKey 已接受关注（双向生效）的对端集合: user:relation:connected:{user_uuid}
func ConnectedSetKey(userUUID string) string {
	return fmt.Sprintf("user:relation:connected:%s", userUUID)
}

// BlockedSetKey 任一方向存在拉黑关系的对端集合: user:relation:blocked:{user_uuid}
func BlockedSetKey(userUUID string) string {
	return fmt.Sprintf("user:relation:blocked:%s", userUUID)
}

// NotificationUnreadKey 通知未读计数: user:notify:unread:{user_uuid}
func NotificationUnreadKey(userUUID string) string {
	return fmt.Sprintf("user:notify:unread:%s", userUUID)
}

// PresenceLastSeenKey 最后在线时间（unix 毫秒）: presence:last_seen:{user_uuid}
func PresenceLastSeenKey(userUUID string) string {
	return fmt.Sprintf("presence:last_seen:%s", userUUID)
}

// ==================== Gateway Key 构造函数 ====================

// GatewayIPBlacklistKey 网关 IP 黑名单 Key: gateway:blacklist:ips
func GatewayIPBlacklistKey() string {
	return "gateway:blacklist:ips"
}

// GatewayUserRateLimitKey 网关用户限流 Key: gateway:rate:limit:user:{user_uuid}
func GatewayUserRateLimitKey(userUUID string) string {
	return fmt.Sprintf("gateway:rate:limit:user:%s", userUUID)
}

// GatewayIPRateLimitKey 网关 IP 限流 Key: rate:limit:ip:{ip}
func GatewayIPRateLimitKey(ip string) string {
	return fmt.Sprintf("rate:limit:ip:%s", ip)
}
