package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/recfuse/core"
)

// FeastLoader 从 Feast Feature Store 拉取在线特征，水合为用户画像。
//
// 约定的特征命名：
//   - 类目权重：<view>:cat_<category>  → CategoryWeights[category]
//   - 嵌入分量：<view>:emb_<index>     → Embedding[index]
//
// 使用场景：画像存储 miss 或 Stale 时的后台刷新来源。
// 画像的写回仍然走 Store.UpsertUserProfile，保持单一写入口。
type FeastLoader struct {
	client *feastsdk.GrpcClient

	// Project 是 Feast 项目名
	Project string

	// EntityKey 是用户实体的 join key，如 "user_id"
	EntityKey string

	// Features 是要拉取的特征全名列表（view:name 形式）
	Features []string
}

// NewFeastLoader 连接 Feast Feature Server（gRPC，默认端口 6565）。
func NewFeastLoader(host string, port int, project string, entityKey string, features []string) (*FeastLoader, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast grpc client: %w", err)
	}
	return &FeastLoader{
		client:    client,
		Project:   project,
		EntityKey: entityKey,
		Features:  features,
	}, nil
}

// LoadUserProfile 拉取单个用户的在线特征并构建画像。
// Feast 侧无任何特征时返回退化画像。
func (l *FeastLoader) LoadUserProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	resp, err := l.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: l.Features,
		Entities: []feastsdk.Row{
			{l.EntityKey: feastsdk.StrVal(userID)},
		},
		Project: l.Project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return core.DegenerateUserProfile(userID), nil
	}
	return profileFromRow(userID, l.Features, rows[0]), nil
}

// profileFromRow 按命名约定把一行在线特征映射为用户画像：
// cat_ 前缀进类目权重，emb_<index> 组装为稠密嵌入（缺口补零），
// 非数值与未知前缀的特征忽略。没有任何可用特征时返回退化画像。
func profileFromRow(userID string, features []string, row feastsdk.Row) *core.UserProfile {
	p := core.NewUserProfile(userID)
	embedding := make(map[int]float64)
	maxIdx := -1

	for _, name := range features {
		val, ok := row[name]
		if !ok || val == nil {
			continue
		}
		fv, ok := floatFromValue(val)
		if !ok {
			continue
		}
		// 去掉 feature view 前缀，只看特征短名
		short := name
		if i := strings.LastIndex(name, ":"); i >= 0 {
			short = name[i+1:]
		}
		switch {
		case strings.HasPrefix(short, "cat_"):
			p.CategoryWeights[strings.TrimPrefix(short, "cat_")] = fv
		case strings.HasPrefix(short, "emb_"):
			var idx int
			if _, err := fmt.Sscanf(strings.TrimPrefix(short, "emb_"), "%d", &idx); err == nil && idx >= 0 {
				embedding[idx] = fv
				if idx > maxIdx {
					maxIdx = idx
				}
			}
		}
	}

	if maxIdx >= 0 {
		p.Embedding = make([]float64, maxIdx+1)
		for idx, v := range embedding {
			p.Embedding[idx] = v
		}
	}
	if len(p.CategoryWeights) == 0 && len(p.Embedding) == 0 {
		return core.DegenerateUserProfile(userID)
	}
	p.UpdatedAt = time.Now()
	return p
}

// Refresh 拉取并写回一个用户画像（Stale 画像的后台刷新入口）。
func (l *FeastLoader) Refresh(ctx context.Context, store *Store, userID string) error {
	p, err := l.LoadUserProfile(ctx, userID)
	if err != nil {
		return err
	}
	if p.Missing {
		return nil
	}
	return store.UpsertUserProfile(ctx, p)
}

func (l *FeastLoader) Close() error {
	l.client = nil
	return nil
}

// floatFromValue 把 Feast SDK 的特征值转为 float64（只接受数值型 oneof）。
func floatFromValue(v *feasttypes.Value) (float64, bool) {
	switch val := v.GetVal().(type) {
	case *feasttypes.Value_DoubleVal:
		return val.DoubleVal, true
	case *feasttypes.Value_FloatVal:
		return float64(val.FloatVal), true
	case *feasttypes.Value_Int64Val:
		return float64(val.Int64Val), true
	case *feasttypes.Value_Int32Val:
		return float64(val.Int32Val), true
	default:
		return 0, false
	}
}
