package dto

// ==================== 匹配推荐相关 DTO ====================

// Follow 状态（相对请求方）
const (
	FollowStatusNone     = "none"
	FollowStatusPending  = "pending"
	FollowStatusAccepted = "accepted"
	FollowStatusReceived = "received"
)

// MatchCandidate 推荐候选人 DTO
type MatchCandidate struct {
	UserID          string   `json:"userId"`
	Name            string   `json:"name"`
	Bio             string   `json:"bio"`
	Location        string   `json:"location"`
	Occupation      string   `json:"occupation"`
	Age             int      `json:"age"`
	Hobbies         []string `json:"hobbies"`
	MatchPercentage int      `json:"matchPercentage"`
	SharedHobbies   []string `json:"sharedHobbies"`
	ExactMatch      bool     `json:"exactMatch"` // 至少一个爱好完全一致
	FollowStatus    string   `json:"followStatus"`
}

// RecommendationsResponse 推荐列表 DTO
type RecommendationsResponse struct {
	Recommendations []*MatchCandidate `json:"recommendations"`
	Message         string            `json:"message,omitempty"`
}

// MatchPercentageResponse 两人匹配度 DTO
type MatchPercentageResponse struct {
	MatchPercentage int      `json:"matchPercentage"`
	SharedHobbies   []string `json:"sharedHobbies"`
}
