package dto

// ==================== 用户资料相关 DTO ====================

// UpdateProfileRequest 更新基础资料请求 DTO
type UpdateProfileRequest struct {
	Name       string `json:"name" binding:"omitempty,max=64"`        // 昵称
	Bio        string `json:"bio" binding:"omitempty,max=512"`        // 简介
	Location   string `json:"location" binding:"omitempty,max=128"`   // 所在地
	Occupation string `json:"occupation" binding:"omitempty,max=128"` // 职业
	Age        int    `json:"age" binding:"omitempty,min=0,max=150"`  // 年龄
}

// SaveHobbiesRequest 保存爱好请求 DTO（空列表表示清空）
type SaveHobbiesRequest struct {
	Hobbies []string `json:"hobbies" binding:"hobbies"` // 爱好列表
}

// ProfileResponse 自己的资料 DTO
type ProfileResponse struct {
	ID                 string   `json:"id"`                 // 用户UUID
	Name               string   `json:"name"`               // 昵称
	Bio                string   `json:"bio"`                // 简介
	Location           string   `json:"location"`           // 所在地
	Occupation         string   `json:"occupation"`         // 职业
	Age                int      `json:"age"`                // 年龄
	Hobbies            []string `json:"hobbies"`            // 爱好
	HasEmbedding       bool     `json:"hasEmbedding"`       // 是否已生成整体向量
	HobbyEmbeddings    int      `json:"hobbyEmbeddings"`    // 已生成向量的爱好数
	EmbeddingUpdatedAt int64    `json:"embeddingUpdatedAt"` // 向量更新时间（毫秒时间戳，0 表示无）
}

// PublicProfileResponse 他人资料 DTO（不包含向量）
type PublicProfileResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Bio          string   `json:"bio"`
	Location     string   `json:"location"`
	Occupation   string   `json:"occupation"`
	Age          int      `json:"age"`
	Hobbies      []string `json:"hobbies"`
	FollowStatus string   `json:"followStatus"` // none/pending/accepted/received
	Online       bool     `json:"online"`
}

// SaveHobbiesResponse 保存爱好响应 DTO
type SaveHobbiesResponse struct {
	Hobbies         []string `json:"hobbies"`
	Embedded        bool     `json:"embedded"`        // 整体向量是否生成成功
	HobbyEmbeddings int      `json:"hobbyEmbeddings"` // 成功生成向量的爱好数
	Message         string   `json:"message"`
}

// BackfillResponse 批量补全向量结果 DTO
type BackfillResponse struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}
