package repository

import (
	"context"

	"HobbyChat/model"

	"gorm.io/gorm"
)

// messageRepositoryImpl 私聊消息数据访问层实现
type messageRepositoryImpl struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息仓储实例
func NewMessageRepository(db *gorm.DB) IMessageRepository {
	return &messageRepositoryImpl{db: db}
}

func (r *messageRepositoryImpl) Create(ctx context.Context, m *model.Message) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return WrapDBError(err)
	}
	return nil
}

func (r *messageRepositoryImpl) Get(ctx context.Context, id int64) (*model.Message, error) {
	var m model.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return &m, nil
}

func (r *messageRepositoryImpl) BatchGet(ctx context.Context, ids []int64) ([]*model.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []*model.Message
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}

// UpdateText 编辑正文
// original_text 只在第一次编辑时写入，由 SQL 的 CASE 原子保证，并发编辑也不会覆盖快照。
func (r *messageRepositoryImpl) UpdateText(ctx context.Context, id int64, senderID, text, snapshot string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND sender_id = ?", id, senderID).
		Updates(map[string]interface{}{
			"text":   text,
			"edited": true,
			"original_text": gorm.Expr(
				"CASE WHEN original_text IS NULL OR original_text = '' THEN ? ELSE original_text END", snapshot),
		})
	if result.Error != nil {
		return false, WrapDBError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *messageRepositoryImpl) HideFor(ctx context.Context, id int64, userID string) error {
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND "+hiddenForClause, id, userID).
		Update("deleted_for", gorm.Expr("JSON_ARRAY_APPEND(COALESCE(deleted_for, JSON_ARRAY()), '$', ?)", userID)).Error
	if err != nil {
		return WrapDBError(err)
	}
	return nil
}

func (r *messageRepositoryImpl) HideConversationFor(ctx context.Context, userID, partnerID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)) AND "+hiddenForClause,
			userID, partnerID, partnerID, userID, userID).
		Update("deleted_for", gorm.Expr("JSON_ARRAY_APPEND(COALESCE(deleted_for, JSON_ARRAY()), '$', ?)", userID))
	if result.Error != nil {
		return 0, WrapDBError(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *messageRepositoryImpl) Delete(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Message{})
	if result.Error != nil {
		return 0, WrapDBError(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *messageRepositoryImpl) History(ctx context.Context, userID, partnerID string) ([]*model.Message, error) {
	var list []*model.Message
	err := r.db.WithContext(ctx).
		Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)) AND "+hiddenForClause,
			userID, partnerID, partnerID, userID, userID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}

func (r *messageRepositoryImpl) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", senderID, receiverID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, WrapDBError(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *messageRepositoryImpl) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("receiver_id = ? AND is_read = ? AND "+hiddenForClause, receiverID, false, receiverID).
		Count(&count).Error
	if err != nil {
		return 0, WrapDBError(err)
	}
	return count, nil
}

func (r *messageRepositoryImpl) CountUnreadFrom(ctx context.Context, receiverID, senderID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ? AND "+hiddenForClause, receiverID, senderID, false, receiverID).
		Count(&count).Error
	if err != nil {
		return 0, WrapDBError(err)
	}
	return count, nil
}

func (r *messageRepositoryImpl) UnreadBySender(ctx context.Context, receiverID string) (map[string]int64, error) {
	var rows []struct {
		SenderID string
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND is_read = ? AND "+hiddenForClause, receiverID, false, receiverID).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.SenderID] = row.Count
	}
	return out, nil
}

// LatestPerPartner 每个对端取 id 最大的一条（snowflake id 随时间递增）
func (r *messageRepositoryImpl) LatestPerPartner(ctx context.Context, userID string) ([]*model.Message, error) {
	latest := r.db.Model(&model.Message{}).
		Select("CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS partner_id, MAX(id) AS max_id", userID).
		Where("(sender_id = ? OR receiver_id = ?) AND "+hiddenForClause, userID, userID, userID).
		Group("partner_id")

	var list []*model.Message
	err := r.db.WithContext(ctx).
		Joins("JOIN (?) AS latest ON message.id = latest.max_id", latest).
		Order("message.id DESC").
		Find(&list).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}
