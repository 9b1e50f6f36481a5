package config

// MatchConfig 推荐排序参数。
type MatchConfig struct {
	TopK                 int `json:"topK" yaml:"topK"`                                 // 向量索引召回数
	IndexThreshold       int `json:"indexThreshold" yaml:"indexThreshold"`             // 索引召回路径的最低匹配度
	ScanThreshold        int `json:"scanThreshold" yaml:"scanThreshold"`               // 全量扫描路径的最低匹配度
	Limit                int `json:"limit" yaml:"limit"`                               // 返回条数
	HobbyAcceptThreshold int `json:"hobbyAcceptThreshold" yaml:"hobbyAcceptThreshold"` // 单个爱好最佳匹配的接受阈值
	DefaultScore         int `json:"defaultScore" yaml:"defaultScore"`                 // 无可用向量时的默认匹配度
}

// DefaultMatchConfig 返回默认推荐参数。
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		TopK:                 50,
		IndexThreshold:       80,
		ScanThreshold:        75,
		Limit:                10,
		HobbyAcceptThreshold: 70,
		DefaultScore:         60,
	}
}
