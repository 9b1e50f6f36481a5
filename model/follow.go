package model

import "time"

const (
	FollowStatusPending  = "pending"
	FollowStatusAccepted = "accepted"
)

// Follow 关注边（申请方 -> 目标方）。
// 拒绝/忽略直接删除记录，不保留 rejected 状态，便于重新申请。
// accepted 双向生效，但只存一条有向记录。
// 约束：uniqueIndex:uidx_follower_following 是并发重复申请的最终裁决。
type Follow struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement;comment:自增id"`
	FollowerID  string    `gorm:"column:follower_id;type:char(36);not null;uniqueIndex:uidx_follower_following;comment:申请方uuid"`
	FollowingID string    `gorm:"column:following_id;type:char(36);not null;uniqueIndex:uidx_follower_following;index;comment:目标方uuid"`
	Status      string    `gorm:"column:status;type:varchar(16);not null;default:'pending';index;comment:pending/accepted"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Follow) TableName() string { return "user_follow" }

// Counterpart 返回边上另一端的用户
func (f *Follow) Counterpart(userID string) string {
	if f.FollowerID == userID {
		return f.FollowingID
	}
	return f.FollowerID
}
