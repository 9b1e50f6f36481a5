package repository

import (
	"context"

	rediskey "HobbyChat/consts/redisKey"
	"HobbyChat/model"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// blockRepositoryImpl 拉黑数据访问层实现
type blockRepositoryImpl struct {
	db    *gorm.DB
	cache setCache
}

// NewBlockRepository 创建拉黑仓储实例，redisClient 为 nil 时只用 MySQL
func NewBlockRepository(db *gorm.DB, redisClient *redis.Client) IBlockRepository {
	return &blockRepositoryImpl{db: db, cache: setCache{rdb: redisClient}}
}

// Block 拉黑并级联清理
// 事务内完成：写入拉黑边、删除双向关注边、删除双向 chat_request 通知。
// 事务提交后同步删除双方的已连接/拉黑集合缓存，保证客户端立即重新拉取时看不到旧关系。
func (r *blockRepositoryImpl) Block(ctx context.Context, blockerID, blockedID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model.Block{BlockerID: blockerID, BlockedID: blockedID}).Error; err != nil {
			return err
		}
		if err := tx.Where("(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)",
			blockerID, blockedID, blockedID, blockerID).
			Delete(&model.Follow{}).Error; err != nil {
			return err
		}
		return tx.Where("type = ? AND ((user_id = ? AND actor_id = ?) OR (user_id = ? AND actor_id = ?))",
			model.NotificationTypeChatRequest, blockerID, blockedID, blockedID, blockerID).
			Delete(&model.Notification{}).Error
	})
	if err != nil {
		return WrapDBError(err)
	}

	r.cache.del(ctx, "BlockRepository.Block.InvalidateCache",
		rediskey.ConnectedSetKey(blockerID),
		rediskey.ConnectedSetKey(blockedID),
		rediskey.BlockedSetKey(blockerID),
		rediskey.BlockedSetKey(blockedID),
		rediskey.NotificationUnreadKey(blockerID),
		rediskey.NotificationUnreadKey(blockedID),
	)
	return nil
}

func (r *blockRepositoryImpl) Unblock(ctx context.Context, blockerID, blockedID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.Block{})
	if result.Error != nil {
		return false, WrapDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	r.cache.del(ctx, "BlockRepository.Unblock.InvalidateCache",
		rediskey.BlockedSetKey(blockerID),
		rediskey.BlockedSetKey(blockedID),
	)
	return true, nil
}

func (r *blockRepositoryImpl) BlockedIDs(ctx context.Context, userID string) ([]string, error) {
	return r.cache.load(ctx, rediskey.BlockedSetKey(userID), rediskey.RelationBlockedTTL, "BlockRepository.BlockedIDs.RebuildCache",
		func() ([]string, error) {
			var edges []*model.Block
			err := r.db.WithContext(ctx).
				Where("blocker_id = ? OR blocked_id = ?", userID, userID).
				Find(&edges).Error
			if err != nil {
				return nil, WrapDBError(err)
			}
			ids := make([]string, 0, len(edges))
			for _, e := range edges {
				if e.BlockerID == userID {
					ids = append(ids, e.BlockedID)
				} else {
					ids = append(ids, e.BlockerID)
				}
			}
			return uniqueStrings(ids), nil
		})
}

func (r *blockRepositoryImpl) IsBlockedEither(ctx context.Context, userA, userB string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", userA, userB, userB, userA).
		Count(&count).Error
	if err != nil {
		return false, WrapDBError(err)
	}
	return count > 0, nil
}

func (r *blockRepositoryImpl) ListByBlocker(ctx context.Context, blockerID string) ([]*model.Block, error) {
	var list []*model.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id = ?", blockerID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}
