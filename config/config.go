package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/recfuse/core"
	"github.com/rushteam/recfuse/rerank"
)

// Config 是引擎的文件配置结构（支持 YAML/JSON）。
//
// 示例（YAML）：
//
//	engine:
//	  ensemble_weights:
//	    cf: 0.4
//	    content: 0.3
//	    deep: 0.3
//	  min_interactions_for_cf: 5
//	  candidate_cap_for_deep: 200
//	rerank_rules:
//	  - name: late_night_boost
//	    when: "ctx.hour >= 22 || ctx.hour <= 5"
//	    scorer: content
//	    multiply: 1.2
type Config struct {
	Engine      EngineSection `yaml:"engine" json:"engine"`
	RerankRules []rerank.Rule `yaml:"rerank_rules" json:"rerank_rules"`
}

// EngineSection 映射 core.EngineConfig 的可调参数。
type EngineSection struct {
	EnsembleWeights         map[string]float64 `yaml:"ensemble_weights" json:"ensemble_weights"`
	MinInteractionsForCF    int                `yaml:"min_interactions_for_cf" json:"min_interactions_for_cf"`
	CandidateCapForDeep     int                `yaml:"candidate_cap_for_deep" json:"candidate_cap_for_deep"`
	DriftThreshold          float64            `yaml:"drift_threshold" json:"drift_threshold"`
	RetrainEventThreshold   int                `yaml:"retrain_event_threshold" json:"retrain_event_threshold"`
	ProfileStalenessSeconds int                `yaml:"profile_staleness_seconds" json:"profile_staleness_seconds"`
	DriftWindowSize         int                `yaml:"drift_window_size" json:"drift_window_size"`
	ValidationTolerance     float64            `yaml:"validation_tolerance" json:"validation_tolerance"`
	TopKSeeds               int                `yaml:"top_k_seeds" json:"top_k_seeds"`
	MaxLogEvents            int                `yaml:"max_log_events" json:"max_log_events"`
}

// LoadFromYAML 从 YAML 文件加载配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	return &cfg, nil
}

// EngineConfig 将文件配置转成领域配置（零值字段由 Normalize 补齐）。
func (c *Config) EngineConfig() core.EngineConfig {
	return core.EngineConfig{
		EnsembleWeights:           c.Engine.EnsembleWeights,
		MinInteractionsForCF:      c.Engine.MinInteractionsForCF,
		CandidateCapForDeepScorer: c.Engine.CandidateCapForDeep,
		DriftThreshold:            c.Engine.DriftThreshold,
		RetrainEventThreshold:     c.Engine.RetrainEventThreshold,
		ProfileStalenessSeconds:   c.Engine.ProfileStalenessSeconds,
		DriftWindowSize:           c.Engine.DriftWindowSize,
		ValidationTolerance:       c.Engine.ValidationTolerance,
		TopKSeeds:                 c.Engine.TopKSeeds,
		MaxLogEvents:              c.Engine.MaxLogEvents,
	}.Normalize()
}

// BuildReRanker 根据规则表构建上下文调权器；无规则时返回 nil。
func (c *Config) BuildReRanker() (*rerank.ContextReRanker, error) {
	if len(c.RerankRules) == 0 {
		return nil, nil
	}
	rr, err := rerank.NewContextReRanker(c.RerankRules)
	if err != nil {
		return nil, fmt.Errorf("build reranker: %w", err)
	}
	return rr, nil
}
