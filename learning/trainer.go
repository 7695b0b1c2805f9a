package learning

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/rushteam/recfuse/core"
)

// Trainer 是重训练任务的契约：给定累积的交互日志，
// 产出 version = 上一版本 + 1 的候选快照。离线/批式执行，不在服务临界路径上。
type Trainer interface {
	Name() string
	Train(ctx context.Context, events []core.InteractionEvent, prev *core.ModelSnapshot) (*core.ModelSnapshot, error)
}

// Validator 是候选快照的校验契约：不通过返回 VALIDATION_FAILED，
// 引擎据此回滚（丢弃候选、保留现役快照）。
type Validator interface {
	Validate(ctx context.Context, candidate, previous *core.ModelSnapshot, holdout []core.InteractionEvent) error
}

// SimpleTrainer 是可用的默认训练器：隐式反馈上的矩阵分解（SGD），
// 学到的隐向量同时充当嵌入表。生产环境可替换为外部训练系统，
// 只要满足 Trainer 契约。
//
// 确定性：隐向量用实体 ID 的 FNV 哈希初始化，事件按日志顺序遍历，
// 相同输入产出相同快照。
type SimpleTrainer struct {
	// Factors 是隐向量维度
	Factors int

	// Epochs 是 SGD 轮数
	Epochs int

	// LearningRate 是 SGD 步长
	LearningRate float64

	// Reg 是 L2 正则系数
	Reg float64
}

func NewSimpleTrainer() *SimpleTrainer {
	return &SimpleTrainer{
		Factors:      16,
		Epochs:       5,
		LearningRate: 0.05,
		Reg:          0.01,
	}
}

func (t *SimpleTrainer) Name() string { return "simple_mf" }

func (t *SimpleTrainer) Train(ctx context.Context, events []core.InteractionEvent, prev *core.ModelSnapshot) (*core.ModelSnapshot, error) {
	if len(events) == 0 {
		return nil, core.NewDomainError(core.ModuleLearning, core.ErrorCodeInvalidInput, "trainer: no events to train on")
	}

	k := t.Factors
	if k <= 0 {
		k = 16
	}

	userFactors := make(map[string][]float64)
	itemFactors := make(map[string][]float64)
	interactions := make(map[string]int)
	popularity := make(map[string]float64)
	if prev != nil {
		for id, p := range prev.Popularity {
			popularity[id] = p
		}
	}

	for _, e := range events {
		if _, ok := userFactors[e.UserID]; !ok {
			userFactors[e.UserID] = initVector(e.UserID, k)
		}
		if _, ok := itemFactors[e.ItemID]; !ok {
			itemFactors[e.ItemID] = initVector(e.ItemID, k)
		}
		interactions[e.UserID]++
		if eng := e.Engagement(); eng > 0 {
			popularity[e.ItemID] += eng
		}
	}

	// 隐式反馈 SGD：正参与 → label 1，负反馈 → label 0
	lr := t.LearningRate
	for epoch := 0; epoch < t.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, e := range events {
			label := 0.0
			if e.Engagement() > 0 {
				label = 1.0
			}
			u := userFactors[e.UserID]
			v := itemFactors[e.ItemID]
			pred := sigmoid(dot(u, v))
			grad := label - pred
			for i := 0; i < k; i++ {
				ui, vi := u[i], v[i]
				u[i] += lr * (grad*vi - t.Reg*ui)
				v[i] += lr * (grad*ui - t.Reg*vi)
			}
		}
	}

	var version uint64 = 1
	snap := core.NewModelSnapshot(version)
	if prev != nil {
		snap.Version = prev.Version + 1
		// 内容索引不由交互训练产出，从上一快照承接
		snap.ContentIndex = prev.ContentIndex
		snap.Head = prev.Head
	}
	snap.UserFactors = userFactors
	snap.ItemFactors = itemFactors
	snap.UserInteractions = interactions
	snap.Popularity = popularity
	snap.UserEmbeddings = userFactors
	snap.ItemEmbeddings = itemFactors
	if snap.Head == nil {
		snap.Head = NewDefaultHead(2 * k)
	}
	return snap, nil
}

// NewDefaultHead 构造确定性初始化的前馈打分头（隐层 8 神经元）。
func NewDefaultHead(inputDim int) *core.ScoringHead {
	const hidden = 8
	head := &core.ScoringHead{
		W1: make([][]float64, hidden),
		B1: make([]float64, hidden),
		W2: make([]float64, hidden),
	}
	scale := math.Sqrt(2.0 / float64(inputDim+hidden))
	for j := 0; j < hidden; j++ {
		head.W1[j] = make([]float64, inputDim)
		for i := 0; i < inputDim; i++ {
			head.W1[j][i] = scale * hashUnit(fmt.Sprintf("w1:%d:%d", j, i))
		}
		head.W2[j] = scale * hashUnit(fmt.Sprintf("w2:%d", j))
	}
	return head
}

// HoldoutValidator 是默认校验器：候选快照在 holdout 事件上的
// 命中准确率不得比上一快照回退超过 Tolerance。
// holdout 为空时放行（数据不足不阻塞换代）。
type HoldoutValidator struct {
	Tolerance float64
}

func (v *HoldoutValidator) Validate(_ context.Context, candidate, previous *core.ModelSnapshot, holdout []core.InteractionEvent) error {
	if len(holdout) == 0 {
		return nil
	}
	candAcc := holdoutAccuracy(candidate, holdout)
	prevAcc := holdoutAccuracy(previous, holdout)
	if candAcc+v.Tolerance < prevAcc {
		return core.NewDomainError(core.ModuleLearning, core.ErrorCodeValidationFailed,
			fmt.Sprintf("validator: holdout accuracy %.4f regressed below previous %.4f (tolerance %.4f)", candAcc, prevAcc, v.Tolerance))
	}
	return nil
}

// holdoutAccuracy 计算快照在 holdout 上的二分类准确率。
// 快照缺失因子的 (user, item) 按预测负例处理。
func holdoutAccuracy(snap *core.ModelSnapshot, holdout []core.InteractionEvent) float64 {
	if snap == nil {
		return 0
	}
	var correct int
	for _, e := range holdout {
		label := e.Engagement() > 0
		pred := false
		if u, ok := snap.UserFactors[e.UserID]; ok {
			if v, ok := snap.ItemFactors[e.ItemID]; ok {
				pred = sigmoid(dot(u, v)) >= 0.5
			}
		}
		if pred == label {
			correct++
		}
	}
	return float64(correct) / float64(len(holdout))
}

// initVector 用实体 ID 的哈希确定性初始化隐向量，分量在 [-0.1, 0.1]。
func initVector(id string, k int) []float64 {
	v := make([]float64, k)
	for i := 0; i < k; i++ {
		v[i] = 0.1 * hashUnit(fmt.Sprintf("%s:%d", id, i))
	}
	return v
}

// hashUnit 把字符串哈希映射到 [-1, 1]。
func hashUnit(s string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return float64(h.Sum64()%2001)/1000.0 - 1.0
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
