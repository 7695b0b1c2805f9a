package core

import (
	"fmt"
	"time"
)

// EventKind 是交互事件类型
type EventKind string

const (
	EventKindView     EventKind = "view"     // 浏览
	EventKindClick    EventKind = "click"    // 点击
	EventKindDwell    EventKind = "dwell"    // 停留（Strength 为归一化的停留时长）
	EventKindShare    EventKind = "share"    // 分享
	EventKindNegative EventKind = "negative" // 负反馈（不喜欢/举报）
)

// eventKindWeights 是各事件类型的参与度基准权重，负反馈为负值。
var eventKindWeights = map[EventKind]float64{
	EventKindView:     0.1,
	EventKindClick:    0.5,
	EventKindDwell:    0.6,
	EventKindShare:    1.0,
	EventKindNegative: -1.0,
}

// InteractionEvent 是持续学习引擎消费的最小单元，创建后不可变。
type InteractionEvent struct {
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Kind      EventKind `json:"kind"`
	Strength  float64   `json:"strength"` // 数值强度，归一化到 [0,1]（如停留秒数归一化）
	Timestamp time.Time `json:"timestamp"`
}

// Validate 校验事件形状；不合法的事件在入口被拒绝，不影响其他事件。
func (e *InteractionEvent) Validate() error {
	if e.UserID == "" {
		return NewDomainError(ModuleLearning, ErrorCodeInvalidInput, "event: empty user_id")
	}
	if e.ItemID == "" {
		return NewDomainError(ModuleLearning, ErrorCodeInvalidInput, "event: empty item_id")
	}
	if _, ok := eventKindWeights[e.Kind]; !ok {
		return NewDomainError(ModuleLearning, ErrorCodeInvalidInput, fmt.Sprintf("event: unknown kind %q", e.Kind))
	}
	if e.Strength < 0 || e.Strength > 1 {
		return NewDomainError(ModuleLearning, ErrorCodeInvalidInput, fmt.Sprintf("event: strength %v out of [0,1]", e.Strength))
	}
	if e.Timestamp.IsZero() {
		return NewDomainError(ModuleLearning, ErrorCodeInvalidInput, "event: zero timestamp")
	}
	return nil
}

// DedupKey 返回事件的复合去重键：同 (user, item, kind, timestamp) 只计一次。
func (e *InteractionEvent) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%d", e.UserID, e.ItemID, e.Kind, e.Timestamp.Unix())
}

// Engagement 返回事件的参与度贡献：类型基准权重 × 强度。
// 负反馈返回负值，用于压低在线统计中的亲和度。
func (e *InteractionEvent) Engagement() float64 {
	w := eventKindWeights[e.Kind]
	if e.Strength == 0 {
		return w
	}
	return w * e.Strength
}
