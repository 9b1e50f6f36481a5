package repository

import (
	"context"
	"strconv"

	"HobbyChat/apps/gateway/internal/mq"
	rediskey "HobbyChat/consts/redisKey"
	"HobbyChat/model"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// notificationRepositoryImpl 通知数据访问层实现
type notificationRepositoryImpl struct {
	db    *gorm.DB
	rdb   *redis.Client
	cache setCache
}

// NewNotificationRepository 创建通知仓储实例
func NewNotificationRepository(db *gorm.DB, redisClient *redis.Client) INotificationRepository {
	return &notificationRepositoryImpl{db: db, rdb: redisClient, cache: setCache{rdb: redisClient}}
}

func (r *notificationRepositoryImpl) Upsert(ctx context.Context, n *model.Notification) error {
	if err := upsertNotification(r.db.WithContext(ctx), n); err != nil {
		return WrapDBError(err)
	}
	r.invalidateUnread(ctx, n.UserID)
	return nil
}

func (r *notificationRepositoryImpl) Get(ctx context.Context, userID string, id int64) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return &n, nil
}

func (r *notificationRepositoryImpl) List(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	var list []*model.Notification
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}

// CountUnread 未读数 Cache-Aside：命中直接返回，未命中回源 MySQL 后回填
func (r *notificationRepositoryImpl) CountUnread(ctx context.Context, userID string) (int64, error) {
	key := rediskey.NotificationUnreadKey(userID)
	if r.rdb != nil {
		val, err := r.rdb.Get(ctx, key).Result()
		if err == nil {
			if n, convErr := strconv.ParseInt(val, 10, 64); convErr == nil {
				return n, nil
			}
		} else if err != redis.Nil {
			LogRedisError(ctx, err)
		}
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, WrapDBError(err)
	}

	if r.rdb != nil {
		ttl := getRandomExpireTime(rediskey.NotificationUnreadTTL)
		if err := r.rdb.Set(ctx, key, count, ttl).Err(); err != nil {
			LogAndRetryRedisError(ctx, mq.BuildSetTask(key, count, ttl).WithSource("NotificationRepository.CountUnread.RebuildCache"), err)
		}
	}
	return count, nil
}

func (r *notificationRepositoryImpl) MarkRead(ctx context.Context, userID string, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return false, WrapDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		// 已读状态下 RowsAffected 为 0，区分“不存在”
		if _, err := r.Get(ctx, userID, id); err != nil {
			if IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
	r.decrUnread(ctx, userID)
	return true, nil
}

func (r *notificationRepositoryImpl) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Notification{})
	if result.Error != nil {
		return false, WrapDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	r.invalidateUnread(ctx, userID)
	return true, nil
}

func (r *notificationRepositoryImpl) invalidateUnread(ctx context.Context, userID string) {
	r.cache.del(ctx, "NotificationRepository.InvalidateUnread", rediskey.NotificationUnreadKey(userID))
}

// decrUnread 计数器存在时减一，失败则直接删除 Key 等待回源
func (r *notificationRepositoryImpl) decrUnread(ctx context.Context, userID string) {
	if r.rdb == nil {
		return
	}
	key := rediskey.NotificationUnreadKey(userID)
	if err := redis.NewScript(luaIncrIfExists).Run(ctx, r.rdb, []string{key}, -1).Err(); err != nil && err != redis.Nil {
		LogRedisError(ctx, err)
		r.invalidateUnread(ctx, userID)
	}
}
