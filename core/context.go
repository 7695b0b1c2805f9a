package core

// RecommendContext 承载一次推荐请求的用户/候选/场景信息，贯穿打分与重排全程。
type RecommendContext struct {
	UserID string

	// SeedItems 是显式种子物品（可选），内容打分器优先使用
	SeedItems []string

	// Candidates 是候选池（由外部候选生成协作方提供）
	Candidates []string

	// Size 是期望返回的结果数量
	Size int

	// 请求时上下文信号，供重排规则使用
	HourOfDay             int    // 0-23 小时桶
	Device                string // 设备类型：mobile / desktop / tablet / tv
	SessionRecencySeconds int    // 距上次会话活动的秒数

	// Params 请求级扩展参数（经纬度、实验桶等）
	Params map[string]any
}
