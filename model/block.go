package model

import "time"

// Block 拉黑边（拉黑方 -> 被拉黑方）。任一方向存在即双方互相不可见。
type Block struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement;comment:自增id"`
	BlockerID string    `gorm:"column:blocker_id;type:char(36);not null;uniqueIndex:uidx_blocker_blocked;comment:拉黑方uuid"`
	BlockedID string    `gorm:"column:blocked_id;type:char(36);not null;uniqueIndex:uidx_blocker_blocked;index;comment:被拉黑方uuid"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Block) TableName() string { return "user_block" }
