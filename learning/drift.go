package learning

import (
	"math"
	"sync"
)

// DriftPolicy 是概念漂移判定的可插拔策略。
// 引擎只依赖这三个操作；具体统计检验（均值偏离 / PSI / KS 等）由实现决定。
type DriftPolicy interface {
	Name() string

	// Observe 记录一次参与度观测
	Observe(engagement float64)

	// SetBaseline 重设基线（成功换代后用当前窗口重新校准）
	SetBaseline(rate float64)

	// Divergence 返回当前窗口与基线的偏离度；窗口样本不足时返回 0
	Divergence() float64

	// Mean 返回当前窗口均值（换代后用于重设基线）
	Mean() float64
}

// DriftStatistics 是默认漂移策略：参与率的滚动窗口均值对比基线。
//
// 判定：|窗口均值 - 基线| 超过阈值视为漂移。窗口未满（样本不足）时
// 不判定漂移，避免启动初期的噪声触发。
type DriftStatistics struct {
	mu       sync.Mutex
	window   []float64
	idx      int
	filled   bool
	sum      float64
	baseline float64
}

// NewDriftStatistics 创建滚动窗口漂移统计，windowSize 是窗口内的观测数。
func NewDriftStatistics(windowSize int) *DriftStatistics {
	if windowSize <= 0 {
		windowSize = 500
	}
	return &DriftStatistics{
		window: make([]float64, windowSize),
	}
}

func (d *DriftStatistics) Name() string { return "engagement_divergence" }

func (d *DriftStatistics) Observe(engagement float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sum -= d.window[d.idx]
	d.window[d.idx] = engagement
	d.sum += engagement
	d.idx++
	if d.idx == len(d.window) {
		d.idx = 0
		d.filled = true
	}
}

func (d *DriftStatistics) SetBaseline(rate float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baseline = rate
}

func (d *DriftStatistics) Divergence() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.filled {
		return 0
	}
	mean := d.sum / float64(len(d.window))
	return math.Abs(mean - d.baseline)
}

// Mean 返回当前窗口均值（换代后用于重设基线）。
func (d *DriftStatistics) Mean() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.window)
	if !d.filled {
		if d.idx == 0 {
			return 0
		}
		n = d.idx
	}
	return d.sum / float64(n)
}
