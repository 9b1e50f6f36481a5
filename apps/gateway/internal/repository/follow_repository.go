package repository

import (
	"context"
	"time"

	rediskey "HobbyChat/consts/redisKey"
	"HobbyChat/model"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// followRepositoryImpl 关注边数据访问层实现
type followRepositoryImpl struct {
	db    *gorm.DB
	cache setCache
}

// NewFollowRepository 创建关注仓储实例，redisClient 为 nil 时只用 MySQL
func NewFollowRepository(db *gorm.DB, redisClient *redis.Client) IFollowRepository {
	return &followRepositoryImpl{db: db, cache: setCache{rdb: redisClient}}
}

func (r *followRepositoryImpl) ListBetween(ctx context.Context, userA, userB string) ([]*model.Follow, error) {
	var list []*model.Follow
	err := r.db.WithContext(ctx).
		Where("(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)", userA, userB, userB, userA).
		Find(&list).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}

func (r *followRepositoryImpl) CreateRequest(ctx context.Context, follow *model.Follow, notification *model.Notification) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 唯一索引 (follower_id, following_id) 是并发重复申请的最终裁决
		if err := tx.Create(follow).Error; err != nil {
			return err
		}
		return upsertNotification(tx, notification)
	})
	if err != nil {
		return WrapDBError(err)
	}
	r.cache.del(ctx, "FollowRepository.CreateRequest.InvalidateUnread", rediskey.NotificationUnreadKey(notification.UserID))
	return nil
}

func (r *followRepositoryImpl) Accept(ctx context.Context, followerID, followingID string, accepted *model.Notification) (bool, error) {
	var ok bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. CAS：只有 pending 状态才能被接受
		result := tx.Model(&model.Follow{}).
			Where("follower_id = ? AND following_id = ? AND status = ?", followerID, followingID, model.FollowStatusPending).
			Updates(map[string]interface{}{
				"status":     model.FollowStatusAccepted,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		ok = true

		// 2. 删除原申请通知
		if err := tx.Where("user_id = ? AND actor_id = ? AND type = ?", followingID, followerID, model.NotificationTypeChatRequest).
			Delete(&model.Notification{}).Error; err != nil {
			return err
		}

		// 3. 通知申请方
		return upsertNotification(tx, accepted)
	})
	if err != nil {
		return false, WrapDBError(err)
	}
	if !ok {
		return false, nil
	}

	// 已连接集合增量更新，未命中的 Key 等下次回源
	r.cache.addIfExists(ctx, rediskey.ConnectedSetKey(followerID), followingID, rediskey.RelationConnectedTTL, "FollowRepository.Accept.AddConnected")
	r.cache.addIfExists(ctx, rediskey.ConnectedSetKey(followingID), followerID, rediskey.RelationConnectedTTL, "FollowRepository.Accept.AddConnected")
	r.cache.del(ctx, "FollowRepository.Accept.InvalidateUnread",
		rediskey.NotificationUnreadKey(followerID),
		rediskey.NotificationUnreadKey(followingID),
	)
	return true, nil
}

func (r *followRepositoryImpl) DeletePending(ctx context.Context, followerID, followingID string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("follower_id = ? AND following_id = ? AND status = ?", followerID, followingID, model.FollowStatusPending).
			Delete(&model.Follow{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return tx.Where("user_id = ? AND actor_id = ? AND type = ?", followingID, followerID, model.NotificationTypeChatRequest).
			Delete(&model.Notification{}).Error
	})
	if err != nil {
		return false, WrapDBError(err)
	}
	r.cache.del(ctx, "FollowRepository.DeletePending.InvalidateUnread", rediskey.NotificationUnreadKey(followingID))
	return deleted, nil
}

func (r *followRepositoryImpl) ConnectedIDs(ctx context.Context, userID string) ([]string, error) {
	return r.cache.load(ctx, rediskey.ConnectedSetKey(userID), rediskey.RelationConnectedTTL, "FollowRepository.ConnectedIDs.RebuildCache",
		func() ([]string, error) {
			var edges []*model.Follow
			err := r.db.WithContext(ctx).
				Where("(follower_id = ? OR following_id = ?) AND status = ?", userID, userID, model.FollowStatusAccepted).
				Find(&edges).Error
			if err != nil {
				return nil, WrapDBError(err)
			}
			ids := make([]string, 0, len(edges))
			for _, e := range edges {
				ids = append(ids, e.Counterpart(userID))
			}
			return uniqueStrings(ids), nil
		})
}

func (r *followRepositoryImpl) IsConnected(ctx context.Context, userA, userB string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("((follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)) AND status = ?",
			userA, userB, userB, userA, model.FollowStatusAccepted).
		Count(&count).Error
	if err != nil {
		return false, WrapDBError(err)
	}
	return count > 0, nil
}

func (r *followRepositoryImpl) ListFollowers(ctx context.Context, userID string) ([]*model.Follow, error) {
	return r.listAccepted(ctx, "following_id", userID)
}

func (r *followRepositoryImpl) ListFollowing(ctx context.Context, userID string) ([]*model.Follow, error) {
	return r.listAccepted(ctx, "follower_id", userID)
}

// listAccepted column 只取 follower_id / following_id 两个常量
func (r *followRepositoryImpl) listAccepted(ctx context.Context, column, userID string) ([]*model.Follow, error) {
	var list []*model.Follow
	err := r.db.WithContext(ctx).
		Where(column+" = ? AND status = ?", userID, model.FollowStatusAccepted).
		Order("updated_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}

func (r *followRepositoryImpl) ListIncomingPending(ctx context.Context, userID string) ([]*model.Follow, error) {
	var list []*model.Follow
	err := r.db.WithContext(ctx).
		Where("following_id = ? AND status = ?", userID, model.FollowStatusPending).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}

func (r *followRepositoryImpl) CountIncomingPending(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("following_id = ? AND status = ?", userID, model.FollowStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, WrapDBError(err)
	}
	return count, nil
}

func (r *followRepositoryImpl) ListInvolving(ctx context.Context, userID string, others []string) ([]*model.Follow, error) {
	if len(others) == 0 {
		return nil, nil
	}
	var list []*model.Follow
	err := r.db.WithContext(ctx).
		Where("(follower_id = ? AND following_id IN ?) OR (following_id = ? AND follower_id IN ?)", userID, others, userID, others).
		Find(&list).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}

// upsertNotification 按 (user_id, actor_id, type) 写入通知，已存在则刷新为未读
func upsertNotification(tx *gorm.DB, n *model.Notification) error {
	if n == nil {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "actor_id"}, {Name: "type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"message":    n.Message,
			"is_read":    false,
			"created_at": time.Now(),
		}),
	}).Create(n).Error
}
