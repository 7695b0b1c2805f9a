package core

import "time"

// UserProfile 是用户画像：所有打分器的共享输入，只由持续学习引擎写入。
//
// 维度说明：
//  维度              作用
//  CategoryWeights   内容召回 / 兴趣匹配
//  Embedding         深度打分器的用户侧输入
//  RecentItems       内容打分器的种子来源（无显式种子时）
//  UpdatedAt         新鲜度判断（超过窗口标记 Stale）
type UserProfile struct {
	ID string `json:"id"`

	// CategoryWeights 是类目到亲和度权重的映射（0-1），顺序无关
	CategoryWeights map[string]float64 `json:"category_weights"`

	// Embedding 是用户的稠密向量表示
	Embedding []float64 `json:"embedding"`

	// RecentItems 是最近交互的物品 ID（新 → 旧）
	RecentItems []string `json:"recent_items"`

	// UpdatedAt 是最后更新时间
	UpdatedAt time.Time `json:"updated_at"`

	// Missing 表示画像不存在，返回的是退化画像（冷启动）
	Missing bool `json:"-"`

	// Stale 表示画像超过新鲜度窗口，仍可用但质量降级
	Stale bool `json:"-"`
}

// NewUserProfile 创建一个新的用户画像。
func NewUserProfile(id string) *UserProfile {
	return &UserProfile{
		ID:              id,
		CategoryWeights: make(map[string]float64),
		Embedding:       nil,
		RecentItems:     make([]string, 0),
		UpdatedAt:       time.Now(),
	}
}

// DegenerateUserProfile 返回冷启动用的退化画像：零向量、空权重。
// 调用方必须把它当作合法的低信息输入，而不是错误。
func DegenerateUserProfile(id string) *UserProfile {
	p := NewUserProfile(id)
	p.Missing = true
	return p
}

// AddRecentItem 记录最近交互物品（去重，限制长度，新的在前）。
func (p *UserProfile) AddRecentItem(itemID string, maxSize int) {
	for _, id := range p.RecentItems {
		if id == itemID {
			return
		}
	}
	p.RecentItems = append([]string{itemID}, p.RecentItems...)
	if maxSize > 0 && len(p.RecentItems) > maxSize {
		p.RecentItems = p.RecentItems[:maxSize]
	}
	p.UpdatedAt = time.Now()
}

// UpdateCategoryWeight 更新类目亲和度权重。
func (p *UserProfile) UpdateCategoryWeight(category string, weight float64) {
	if p.CategoryWeights == nil {
		p.CategoryWeights = make(map[string]float64)
	}
	p.CategoryWeights[category] = weight
	p.UpdatedAt = time.Now()
}

// ItemProfile 是物品画像：内容特征、热度计数与向量表示。
type ItemProfile struct {
	ID string `json:"id"`

	// Features 是内容特征向量（类目 one-hot 或 TF/IDF 风格权重）
	Features map[string]float64 `json:"features"`

	// Popularity 是热度计数（曝光/点击累积），用于排序 tie-break 与兜底预筛
	Popularity float64 `json:"popularity"`

	// Embedding 是物品的稠密向量表示
	Embedding []float64 `json:"embedding"`

	// UpdatedAt 是最后更新时间
	UpdatedAt time.Time `json:"updated_at"`

	Missing bool `json:"-"`
	Stale   bool `json:"-"`
}

// NewItemProfile 创建一个新的物品画像。
func NewItemProfile(id string) *ItemProfile {
	return &ItemProfile{
		ID:        id,
		Features:  make(map[string]float64),
		UpdatedAt: time.Now(),
	}
}

// DegenerateItemProfile 返回冷启动用的退化物品画像。
func DegenerateItemProfile(id string) *ItemProfile {
	p := NewItemProfile(id)
	p.Missing = true
	return p
}
