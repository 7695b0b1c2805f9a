package core

import "time"

// EngineConfig 是核心消费的配置面，构造时传入编排器后不再修改（按值传递）。
//
// 每个选项的效果：
//   EnsembleWeights           各打分器的集成权重（按可用子集重归一化）
//   MinInteractionsForCF      CF 打分器的最小历史交互数，低于则 not-applicable
//   CandidateCapForDeepScorer 深度打分器的候选上限，超过先用廉价打分器预筛
//   DriftThreshold            漂移判定阈值（与基线的参与率偏离）
//   RetrainEventThreshold     自上次训练以来的事件数阈值，超过触发重训练
//   ProfileStalenessSeconds   画像新鲜度窗口（秒），超过标记 Stale 但仍可用
type EngineConfig struct {
	EnsembleWeights           map[string]float64
	MinInteractionsForCF      int
	CandidateCapForDeepScorer int
	DriftThreshold            float64
	RetrainEventThreshold     int
	ProfileStalenessSeconds   int

	// DriftWindowSize 是漂移统计的滚动窗口大小（事件数）
	DriftWindowSize int

	// ValidationTolerance 是候选快照校验的容忍度：
	// holdout 准确率相对上一快照的回退不得超过该值
	ValidationTolerance float64

	// TopKSeeds 是内容打分器聚合时取的 top-k 相似种子数
	TopKSeeds int

	// MaxLogEvents 是交互日志的内存上限（超过丢弃最旧事件）
	MaxLogEvents int
}

// DefaultEngineConfig 返回默认配置。
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		EnsembleWeights: map[string]float64{
			"cf":      0.4,
			"content": 0.3,
			"deep":    0.3,
		},
		MinInteractionsForCF:      5,
		CandidateCapForDeepScorer: 200,
		DriftThreshold:            0.2,
		RetrainEventThreshold:     10000,
		ProfileStalenessSeconds:   1800,
		DriftWindowSize:           500,
		ValidationTolerance:       0.05,
		TopKSeeds:                 5,
		MaxLogEvents:              100000,
	}
}

// Normalize 用默认值补齐零值字段，返回新配置（不修改原值）。
func (c EngineConfig) Normalize() EngineConfig {
	def := DefaultEngineConfig()
	if len(c.EnsembleWeights) == 0 {
		c.EnsembleWeights = def.EnsembleWeights
	}
	if c.MinInteractionsForCF <= 0 {
		c.MinInteractionsForCF = def.MinInteractionsForCF
	}
	if c.CandidateCapForDeepScorer <= 0 {
		c.CandidateCapForDeepScorer = def.CandidateCapForDeepScorer
	}
	if c.DriftThreshold <= 0 {
		c.DriftThreshold = def.DriftThreshold
	}
	if c.RetrainEventThreshold <= 0 {
		c.RetrainEventThreshold = def.RetrainEventThreshold
	}
	if c.ProfileStalenessSeconds <= 0 {
		c.ProfileStalenessSeconds = def.ProfileStalenessSeconds
	}
	if c.DriftWindowSize <= 0 {
		c.DriftWindowSize = def.DriftWindowSize
	}
	if c.ValidationTolerance <= 0 {
		c.ValidationTolerance = def.ValidationTolerance
	}
	if c.TopKSeeds <= 0 {
		c.TopKSeeds = def.TopKSeeds
	}
	if c.MaxLogEvents <= 0 {
		c.MaxLogEvents = def.MaxLogEvents
	}
	return c
}

// ProfileStaleness 返回新鲜度窗口的 time.Duration 形式。
func (c EngineConfig) ProfileStaleness() time.Duration {
	return time.Duration(c.ProfileStalenessSeconds) * time.Second
}
