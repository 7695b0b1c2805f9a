package learning

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rushteam/recfuse/core"
)

const logKey = "learning:event_log"

// EventLog 是交互日志：重训练的输入，也是进程重启后恢复在线统计的依据。
//
// 写入按到达顺序追加，只要求并发提交安全，不保证跨事件的全局顺序。
// 内存中保留最近 maxEvents 条（有界），并定期刷写到 KV 存储。
type EventLog struct {
	mu        sync.Mutex
	events    []core.InteractionEvent
	maxEvents int

	kv         core.Store
	flushEvery int
	dirty      int
}

// NewEventLog 创建交互日志。kv 可为 nil（纯内存，不可重启恢复）。
func NewEventLog(kv core.Store, maxEvents int) *EventLog {
	if maxEvents <= 0 {
		maxEvents = 100000
	}
	return &EventLog{
		events:     make([]core.InteractionEvent, 0, 1024),
		maxEvents:  maxEvents,
		kv:         kv,
		flushEvery: 100,
	}
}

// Append 追加一条事件；超出上限时丢弃最旧事件（有界内存）。
func (l *EventLog) Append(ctx context.Context, e core.InteractionEvent) error {
	l.mu.Lock()
	l.events = append(l.events, e)
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}
	l.dirty++
	flush := l.kv != nil && l.dirty >= l.flushEvery
	if flush {
		l.dirty = 0
	}
	l.mu.Unlock()

	if flush {
		return l.Flush(ctx)
	}
	return nil
}

// Snapshot 返回当前日志的副本（训练输入，后续追加不影响它）。
func (l *EventLog) Snapshot() []core.InteractionEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.InteractionEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len 返回当前日志长度。
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Consume 移除日志头部的 n 条事件（已被训练消费），保留其后到达的事件。
func (l *EventLog) Consume(ctx context.Context, n int) error {
	l.mu.Lock()
	if n >= len(l.events) {
		l.events = l.events[:0]
	} else if n > 0 {
		l.events = append(l.events[:0], l.events[n:]...)
	}
	l.dirty = 0
	empty := len(l.events) == 0
	l.mu.Unlock()

	if l.kv == nil {
		return nil
	}
	if empty {
		return l.kv.Delete(ctx, logKey)
	}
	return l.Flush(ctx)
}

// Reset 清空日志（事件全部作废）。
func (l *EventLog) Reset(ctx context.Context) error {
	l.mu.Lock()
	l.events = l.events[:0]
	l.dirty = 0
	l.mu.Unlock()

	if l.kv != nil {
		return l.kv.Delete(ctx, logKey)
	}
	return nil
}

// Flush 把内存日志刷写到 KV 存储。
func (l *EventLog) Flush(ctx context.Context) error {
	if l.kv == nil {
		return nil
	}
	l.mu.Lock()
	data, err := json.Marshal(l.events)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.kv.Set(ctx, logKey, data)
}

// Load 从 KV 存储恢复日志（进程重启时调用）。
func (l *EventLog) Load(ctx context.Context) error {
	if l.kv == nil {
		return nil
	}
	data, err := l.kv.Get(ctx, logKey)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil
		}
		return err
	}

	var events []core.InteractionEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return core.NewDomainError(core.ModuleLearning, core.ErrorCodeInternalError, "event log: corrupt persisted log")
	}

	l.mu.Lock()
	l.events = events
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}
	l.mu.Unlock()
	return nil
}
