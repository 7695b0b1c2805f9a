package learning

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/recfuse/core"
	"github.com/rushteam/recfuse/profile"
)

// State 是持续学习引擎的状态。
type State string

const (
	// StateAccumulating 默认状态：反馈事件只更新在线计数器，不碰快照重参数
	StateAccumulating State = "accumulating"

	// StateDriftSuspected 漂移达阈值或事件数达阈值，已排期重训练
	StateDriftSuspected State = "drift_suspected"

	// StateSwapping 候选快照已产出，校验通过即原子换代
	StateSwapping State = "swapping"
)

// 在线计数器的 EMA 平滑系数
const emaAlpha = 0.2

// 用户最近交互历史的保留长度
const maxRecentItems = 50

// Options 是引擎的依赖注入面（零值字段用默认实现补齐）。
type Options struct {
	Profiles  *profile.Store     // 画像存储（nil 则不做画像回写）
	Snapshots core.SnapshotStore // 快照持久化协作方
	Log       *EventLog          // 交互日志
	Trainer   Trainer            // 重训练任务
	Validator Validator          // 候选快照校验
	Drift     DriftPolicy        // 漂移判定策略
	Logger    zerolog.Logger     // 日志（默认 Nop）
}

// Engine 是持续学习引擎：消费反馈事件流，维护在线统计，
// 检测概念漂移，并在后台触发产出新模型快照的重训练。
//
// 状态机（快照世系上的推进）：
//
//	Accumulating → Drift-Suspected → Swapping → Accumulating
//	                     ↓ 校验失败（Rollback）
//	               Accumulating（累积窗口不重置，反馈不丢失）
//
// 并发模型：
//   - Submit 可被多个调用方并发提交，只按到达顺序追加
//   - 换代 = 发布新的不可变快照引用（atomic.Pointer），读者绝不会看到撕裂状态
//   - 重训练在 Tick 的调用协程里执行（后台循环），绝不阻塞服务路径
type Engine struct {
	cfg       core.EngineConfig
	profiles  *profile.Store
	snapshots core.SnapshotStore
	log       *EventLog
	trainer   Trainer
	validator Validator
	drift     DriftPolicy
	logger    zerolog.Logger

	active atomic.Pointer[core.ModelSnapshot]

	mu                  sync.Mutex
	state               State
	pendingReason       string
	seen                map[string]struct{}
	seenOrder           []string
	userEngagement      map[string]float64
	itemEngagement      map[string]float64
	eventsSinceRetrain  int
	eventsAtLastAttempt int // 上次重训练排期时的事件数；同一触发条件、无新数据不重试
}

// NewEngine 创建持续学习引擎。
func NewEngine(cfg core.EngineConfig, opts Options) *Engine {
	cfg = cfg.Normalize()
	e := &Engine{
		cfg:                 cfg,
		profiles:            opts.Profiles,
		snapshots:           opts.Snapshots,
		log:                 opts.Log,
		trainer:             opts.Trainer,
		validator:           opts.Validator,
		drift:               opts.Drift,
		logger:              opts.Logger,
		state:               StateAccumulating,
		seen:                make(map[string]struct{}),
		userEngagement:      make(map[string]float64),
		itemEngagement:      make(map[string]float64),
		eventsAtLastAttempt: -1,
	}
	if e.log == nil {
		e.log = NewEventLog(nil, cfg.MaxLogEvents)
	}
	if e.trainer == nil {
		e.trainer = NewSimpleTrainer()
	}
	if e.validator == nil {
		e.validator = &HoldoutValidator{Tolerance: cfg.ValidationTolerance}
	}
	if e.drift == nil {
		e.drift = NewDriftStatistics(cfg.DriftWindowSize)
	}
	e.active.Store(core.NewModelSnapshot(0))
	return e
}

// Resume 从持久化的交互日志与最后提交的快照版本恢复引擎（进程重启后调用）。
func (e *Engine) Resume(ctx context.Context) error {
	if e.snapshots != nil {
		snap, err := e.snapshots.LoadActive(ctx)
		if err != nil && !core.IsStoreNotFound(err) {
			return err
		}
		if snap != nil {
			e.active.Store(snap)
		}
	}

	if err := e.log.Load(ctx); err != nil {
		return err
	}

	// 回放日志重建在线统计（不触发重训练，不回写画像）
	e.mu.Lock()
	for _, ev := range e.log.Snapshot() {
		key := ev.DedupKey()
		if _, dup := e.seen[key]; dup {
			continue
		}
		e.markSeenLocked(key)
		e.applyCountersLocked(&ev)
		e.eventsSinceRetrain++
	}
	e.mu.Unlock()

	// 重启后以当前窗口为基线，避免冷启动的假漂移
	e.drift.SetBaseline(e.drift.Mean())
	return nil
}

// Active 返回当前 active 快照。请求以开始时拿到的引用跑完全程（读一致性）。
func (e *Engine) Active() *core.ModelSnapshot {
	return e.active.Load()
}

// State 返回当前状态。
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// UserEngagement 返回某用户的参与度 EMA（在线统计）。
func (e *Engine) UserEngagement(userID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userEngagement[userID]
}

// ItemEngagement 返回某物品的参与度 EMA（在线统计）。
func (e *Engine) ItemEngagement(itemID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.itemEngagement[itemID]
}

// Submit 提交一条交互事件：校验 → 去重 → 追加日志 → 更新在线统计。
// 重复事件（相同复合键）幂等接受但不重复计数。永不阻塞在重训练上。
func (e *Engine) Submit(ctx context.Context, ev core.InteractionEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	key := ev.DedupKey()
	if _, dup := e.seen[key]; dup {
		e.mu.Unlock()
		return nil
	}
	e.markSeenLocked(key)
	e.applyCountersLocked(&ev)
	e.eventsSinceRetrain++
	e.evaluateTriggerLocked(false)
	e.mu.Unlock()

	if err := e.log.Append(ctx, ev); err != nil {
		return err
	}

	if e.profiles != nil {
		e.updateProfiles(ctx, &ev)
	}
	return nil
}

// Tick 是评估 tick：由后台循环周期性调用。
// 若已排期（或漂移条件在本 tick 仍然成立），在当前协程里执行重训练。
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()
	if e.state == StateAccumulating {
		// 漂移持续时允许在评估 tick 上重试（即便没有新数据）
		e.evaluateTriggerLocked(true)
	}
	if e.state != StateDriftSuspected {
		e.mu.Unlock()
		return
	}
	reason := e.pendingReason
	e.eventsAtLastAttempt = e.eventsSinceRetrain
	e.mu.Unlock()

	e.retrain(ctx, reason)
}

// Run 启动后台评估循环，直到 ctx 取消。重训练在此协程内执行，
// 与服务路径完全隔离。
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Close 刷写交互日志（优雅停机）。
func (e *Engine) Close(ctx context.Context) error {
	return e.log.Flush(ctx)
}

// evaluateTriggerLocked 评估是否进入 Drift-Suspected。调用方必须持有 e.mu。
// tick=false（Submit 路径）要求自上次排期以来有新数据，避免同一触发条件上的重试风暴。
func (e *Engine) evaluateTriggerLocked(tick bool) {
	if e.state != StateAccumulating {
		return
	}
	if !tick && e.eventsSinceRetrain <= e.eventsAtLastAttempt {
		return
	}
	switch {
	case e.eventsSinceRetrain >= e.cfg.RetrainEventThreshold:
		e.state = StateDriftSuspected
		e.pendingReason = "event_threshold"
	case e.drift.Divergence() > e.cfg.DriftThreshold:
		e.state = StateDriftSuspected
		e.pendingReason = "drift"
	}
}

// retrain 执行一次重训练尝试：训练 → 校验 → 原子换代；
// 任何失败都回到 Accumulating 且不重置累积窗口（反馈不丢失）。
func (e *Engine) retrain(ctx context.Context, reason string) {
	prev := e.Active()
	events := e.log.Snapshot()

	// 末尾 10% 留作 holdout 校验集
	holdoutN := len(events) / 10
	trainSet := events[:len(events)-holdoutN]
	holdout := events[len(events)-holdoutN:]

	e.logger.Info().
		Str("reason", reason).
		Uint64("prev_version", prev.Version).
		Int("events", len(events)).
		Msg("retraining scheduled")

	candidate, err := e.trainer.Train(ctx, trainSet, prev)
	if err != nil {
		// 重训练失败被隔离在引擎内：保留现役快照，等新数据或下个 tick 的漂移再试
		e.logger.Error().Err(err).Uint64("active_version", prev.Version).Msg("retraining failed")
		e.setState(StateAccumulating)
		return
	}

	e.setState(StateSwapping)
	if err := e.validator.Validate(ctx, candidate, prev, holdout); err != nil {
		// Rollback：丢弃候选、保留现役快照、累积窗口不重置
		e.logger.Warn().Err(err).
			Uint64("candidate_version", candidate.Version).
			Uint64("active_version", prev.Version).
			Msg("candidate snapshot rejected, rolling back")
		e.setState(StateAccumulating)
		return
	}

	if e.snapshots != nil {
		if err := e.snapshots.Publish(ctx, candidate); err != nil {
			e.logger.Error().Err(err).Msg("snapshot publish failed")
			e.setState(StateAccumulating)
			return
		}
	}
	e.active.Store(candidate)
	if e.snapshots != nil && prev.Version > 0 {
		_ = e.snapshots.Archive(ctx, prev.Version)
	}

	// 换代成功：以当前窗口重设漂移基线，只消费本次快照内的事件；
	// 训练期间新到达的反馈留在日志里，进入下一个累积窗口
	e.drift.SetBaseline(e.drift.Mean())
	consumed := len(events)
	_ = e.log.Consume(ctx, consumed)

	consumedKeys := make(map[string]struct{}, consumed)
	for i := range events {
		consumedKeys[events[i].DedupKey()] = struct{}{}
	}

	e.mu.Lock()
	kept := e.seenOrder[:0]
	for _, key := range e.seenOrder {
		if _, ok := consumedKeys[key]; ok {
			delete(e.seen, key)
			continue
		}
		kept = append(kept, key)
	}
	e.seenOrder = kept
	e.state = StateAccumulating
	e.pendingReason = ""
	if e.eventsSinceRetrain > consumed {
		e.eventsSinceRetrain -= consumed
	} else {
		e.eventsSinceRetrain = 0
	}
	e.eventsAtLastAttempt = -1
	e.mu.Unlock()

	e.logger.Info().
		Uint64("version", candidate.Version).
		Msg("snapshot swapped")
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// applyCountersLocked 更新参与度 EMA 与漂移观测。调用方必须持有 e.mu。
func (e *Engine) applyCountersLocked(ev *core.InteractionEvent) {
	eng := ev.Engagement()
	e.userEngagement[ev.UserID] = (1-emaAlpha)*e.userEngagement[ev.UserID] + emaAlpha*eng
	e.itemEngagement[ev.ItemID] = (1-emaAlpha)*e.itemEngagement[ev.ItemID] + emaAlpha*eng
	e.drift.Observe(eng)
}

// markSeenLocked 记录去重键，超过日志上限时淘汰最旧的键。
func (e *Engine) markSeenLocked(key string) {
	e.seen[key] = struct{}{}
	e.seenOrder = append(e.seenOrder, key)
	if len(e.seenOrder) > e.cfg.MaxLogEvents {
		oldest := e.seenOrder[0]
		e.seenOrder = e.seenOrder[1:]
		delete(e.seen, oldest)
	}
}

// updateProfiles 把事件回写到画像：学习引擎是画像的唯一写入方。
func (e *Engine) updateProfiles(ctx context.Context, ev *core.InteractionEvent) {
	eng := ev.Engagement()

	user, err := e.profiles.GetUserProfile(ctx, ev.UserID)
	if err == nil {
		if eng > 0 {
			user.AddRecentItem(ev.ItemID, maxRecentItems)
		}
		item, ierr := e.profiles.GetItemProfile(ctx, ev.ItemID)
		if ierr == nil && !item.Missing {
			// 类目权重随参与度做 EMA 融合，负反馈往下压
			for cat, fv := range item.Features {
				user.CategoryWeights[cat] = core.Clamp01(user.CategoryWeights[cat] + emaAlpha*eng*fv)
			}
		}
		user.UpdatedAt = ev.Timestamp
		if uerr := e.profiles.UpsertUserProfile(ctx, user); uerr != nil {
			e.logger.Warn().Err(uerr).Str("user_id", ev.UserID).Msg("user profile upsert failed")
		}
	}

	if eng > 0 {
		item, err := e.profiles.GetItemProfile(ctx, ev.ItemID)
		if err == nil {
			item.Popularity += eng
			item.UpdatedAt = ev.Timestamp
			if ierr := e.profiles.UpsertItemProfile(ctx, item); ierr != nil {
				e.logger.Warn().Err(ierr).Str("item_id", ev.ItemID).Msg("item profile upsert failed")
			}
		}
	}
}
