package repository

import (
	"context"
	"errors"
	"time"

	"HobbyChat/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// profileRepositoryImpl 用户资料数据访问层实现
type profileRepositoryImpl struct {
	db *gorm.DB
}

// NewProfileRepository 创建用户资料仓储实例
func NewProfileRepository(db *gorm.DB) IProfileRepository {
	return &profileRepositoryImpl{db: db}
}

func (r *profileRepositoryImpl) Get(ctx context.Context, userID string) (*model.UserProfile, error) {
	var p model.UserProfile
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&p).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return &p, nil
}

func (r *profileRepositoryImpl) Ensure(ctx context.Context, userID string) (*model.UserProfile, error) {
	p := &model.UserProfile{ID: userID}
	// 并发首次访问时依赖主键冲突兜底
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return r.Get(ctx, userID)
}

func (r *profileRepositoryImpl) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserProfile{}).Where("id = ?", userID).Limit(1).Count(&count).Error
	if err != nil {
		return false, WrapDBError(err)
	}
	return count > 0, nil
}

func (r *profileRepositoryImpl) BatchGet(ctx context.Context, userIDs []string) ([]*model.UserProfile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var list []*model.UserProfile
	if err := r.db.WithContext(ctx).Where("id IN ?", uniqueStrings(userIDs)).Find(&list).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}

func (r *profileRepositoryImpl) ListWithEmbedding(ctx context.Context, excludeID string) ([]*model.UserProfile, error) {
	var list []*model.UserProfile
	err := r.db.WithContext(ctx).
		Where("id <> ? AND embedding IS NOT NULL AND JSON_LENGTH(embedding) > 0", excludeID).
		Find(&list).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}

func (r *profileRepositoryImpl) ListMissingEmbedding(ctx context.Context, afterID string, limit int) ([]*model.UserProfile, error) {
	var list []*model.UserProfile
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Where("hobbies IS NOT NULL AND JSON_LENGTH(hobbies) > 0").
		Where("embedding IS NULL OR JSON_LENGTH(embedding) = 0").
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return list, nil
}

func (r *profileRepositoryImpl) UpdateBasic(ctx context.Context, userID string, basic ProfileBasic) error {
	return r.update(ctx, userID, map[string]interface{}{
		"name":       basic.Name,
		"bio":        basic.Bio,
		"location":   basic.Location,
		"occupation": basic.Occupation,
		"age":        basic.Age,
	})
}

func (r *profileRepositoryImpl) SaveHobbies(ctx context.Context, userID string, hobbies []string) error {
	updates := map[string]interface{}{
		"hobbies": model.JSONValue(hobbies),
	}
	if len(hobbies) == 0 {
		updates["hobbies"] = nil
		updates["embedding"] = nil
		updates["hobby_embeddings"] = nil
		updates["embedding_updated_at"] = nil
	}
	return r.update(ctx, userID, updates)
}

func (r *profileRepositoryImpl) UpdateEmbedding(ctx context.Context, userID string, vector []float32) error {
	now := time.Now()
	return r.update(ctx, userID, map[string]interface{}{
		"embedding":            model.JSONValue(vector),
		"embedding_updated_at": &now,
	})
}

func (r *profileRepositoryImpl) UpdateHobbyEmbeddings(ctx context.Context, userID string, items []model.HobbyEmbedding) error {
	return r.update(ctx, userID, map[string]interface{}{
		"hobby_embeddings": model.JSONValue(items),
	})
}

func (r *profileRepositoryImpl) update(ctx context.Context, userID string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.UserProfile{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return WrapDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		// MySQL 在值未变化时 RowsAffected 也为 0，再确认一次是否真的不存在
		exists, err := r.Exists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrRecordNotFound
		}
	}
	return nil
}

// IsNotFound 是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
