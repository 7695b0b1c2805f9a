package core

import (
	"context"
	"time"
)

// ModelSnapshot 是不可变的、带版本号的模型参数包。
//
// 约束：
//   - 版本号单调递增，同一时刻只有一个快照处于 active 状态
//   - 打分器只读取当前 active 快照，绝不原地修改
//   - 换代通过发布新的不可变引用完成，读者不会看到半更新状态
//   - 请求以其开始时拿到的快照跑完全程（读一致性，非全局锁）
type ModelSnapshot struct {
	// Version 是单调递增的版本号
	Version uint64 `json:"version"`

	// CreatedAt 是快照生成时间
	CreatedAt time.Time `json:"created_at"`

	// UserFactors / ItemFactors 是协同过滤的隐因子矩阵
	UserFactors map[string][]float64 `json:"user_factors"`
	ItemFactors map[string][]float64 `json:"item_factors"`

	// UserInteractions 是训练时各用户的历史交互计数（CF 适用性判断依据）
	UserInteractions map[string]int `json:"user_interactions"`

	// ContentIndex 是物品内容特征索引（物品 ID → 特征向量）
	ContentIndex map[string]map[string]float64 `json:"content_index"`

	// UserEmbeddings / ItemEmbeddings 是深度打分器的嵌入表
	UserEmbeddings map[string][]float64 `json:"user_embeddings"`
	ItemEmbeddings map[string][]float64 `json:"item_embeddings"`

	// Popularity 是训练时刻的物品热度（tie-break 与预筛兜底）
	Popularity map[string]float64 `json:"popularity"`

	// Head 是深度打分器的前馈打分头参数
	Head *ScoringHead `json:"head,omitempty"`
}

// ScoringHead 是一个小前馈网络：输入 [用户嵌入 ‖ 物品嵌入]，输出未压缩的亲和度。
// 隐层 ReLU 激活，输出经 logistic 压缩到 [0,1]（由打分器完成）。
type ScoringHead struct {
	// W1[neuron][input]：隐层权重
	W1 [][]float64 `json:"w1"`
	// B1[neuron]：隐层偏置
	B1 []float64 `json:"b1"`
	// W2[neuron]：输出层权重
	W2 []float64 `json:"w2"`
	// B2：输出层偏置
	B2 float64 `json:"b2"`
}

// NewModelSnapshot 创建一个空快照（version 0 表示尚无训练产物，纯冷启动）。
func NewModelSnapshot(version uint64) *ModelSnapshot {
	return &ModelSnapshot{
		Version:          version,
		CreatedAt:        time.Now(),
		UserFactors:      make(map[string][]float64),
		ItemFactors:      make(map[string][]float64),
		UserInteractions: make(map[string]int),
		ContentIndex:     make(map[string]map[string]float64),
		UserEmbeddings:   make(map[string][]float64),
		ItemEmbeddings:   make(map[string][]float64),
		Popularity:       make(map[string]float64),
	}
}

// SnapshotStore 是快照持久化的领域接口，由外部存储协作方实现。
// 核心只要求 Publish 具备原子语义：读者要么看到旧快照，要么看到完整的新快照。
type SnapshotStore interface {
	// LoadActive 加载当前 active 快照；不存在时返回 ErrStoreNotFound
	LoadActive(ctx context.Context) (*ModelSnapshot, error)

	// Publish 原子地把候选快照发布为 active
	Publish(ctx context.Context, snapshot *ModelSnapshot) error

	// Archive 归档旧版本（实现可选择删除或转冷存储）
	Archive(ctx context.Context, version uint64) error
}
