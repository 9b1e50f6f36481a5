package model

import "time"

// HobbyEmbedding 单个爱好的向量。
type HobbyEmbedding struct {
	Hobby  string    `json:"hobby"`
	Vector []float32 `json:"vector"`
}

// UserProfile 匹配相关的用户资料。
// 约束：Hobbies 为空时 Embedding/HobbyEmbeddings 必须为空，由仓储层在同一条 UPDATE 中保证。
// Embedding 只由向量缓存服务写入。
type UserProfile struct {
	ID                 string           `gorm:"column:id;type:char(36);primaryKey;comment:用户uuid"`
	Name               string           `gorm:"column:name;type:varchar(64);not null;default:'';comment:昵称"`
	Bio                string           `gorm:"column:bio;type:varchar(512);not null;default:'';comment:简介"`
	Location           string           `gorm:"column:location;type:varchar(128);not null;default:'';comment:所在地"`
	Occupation         string           `gorm:"column:occupation;type:varchar(128);not null;default:'';comment:职业"`
	Age                int              `gorm:"column:age;not null;default:0;comment:年龄"`
	Hobbies            []string         `gorm:"column:hobbies;type:json;serializer:json;comment:爱好列表"`
	Embedding          []float32        `gorm:"column:embedding;type:json;serializer:json;comment:爱好整体向量"`
	HobbyEmbeddings    []HobbyEmbedding `gorm:"column:hobby_embeddings;type:json;serializer:json;comment:单个爱好向量"`
	EmbeddingUpdatedAt *time.Time       `gorm:"column:embedding_updated_at;comment:向量更新时间"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserProfile) TableName() string { return "user_profile" }

// HasEmbedding 是否有可用的整体向量
func (p *UserProfile) HasEmbedding() bool {
	return p != nil && len(p.Embedding) > 0
}
