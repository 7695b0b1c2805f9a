// Package recfuse 是一个混合推荐决策引擎（Recommendation Fusion Engine）。
//
// 设计要点：
// - Snapshot-first: 打分全部走不可变模型快照，换代用原子指针切换，服务零阻塞
// - Degrade-first: 画像缺失用退化画像、打分器不适用就跳过并重归一化权重，尽量总有结果
// - 双流解耦: 服务流（请求 → 打分 → 合并）与学习流（反馈 → 漂移 → 重训练）只在快照换代处耦合
package recfuse

import (
	"github.com/rushteam/recfuse/core"
	"github.com/rushteam/recfuse/engine"
)

// 轻量 facade：便于用户直接 import "recfuse" 使用核心抽象。
type Engine = engine.Engine
type Ack = engine.Ack
type RecommendContext = core.RecommendContext
type RecommendationResult = core.RecommendationResult
type InteractionEvent = core.InteractionEvent
type EventKind = core.EventKind
type EngineConfig = core.EngineConfig
type ModelSnapshot = core.ModelSnapshot

const (
	EventKindView     = core.EventKindView
	EventKindClick    = core.EventKindClick
	EventKindDwell    = core.EventKindDwell
	EventKindShare    = core.EventKindShare
	EventKindNegative = core.EventKindNegative
)
