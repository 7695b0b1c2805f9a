package profile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rushteam/recfuse/core"
)

const (
	userKeyPrefix = "profile:user:"
	itemKeyPrefix = "profile:item:"
)

// Store 是画像存储：在 core.Store 之上提供带新鲜度语义的读写。
//
// 行为约定：
//   - 画像不存在（冷启动）→ 返回退化画像（Missing=true），不是错误
//   - 画像超过新鲜度窗口 → 仍然返回（Stale=true），可用于打分但应触发后台刷新
//   - 画像只由持续学习引擎写入
type Store struct {
	kv        core.Store
	staleness time.Duration
}

// NewStore 创建画像存储，staleness 是新鲜度窗口（如 30 分钟）。
func NewStore(kv core.Store, staleness time.Duration) *Store {
	return &Store{kv: kv, staleness: staleness}
}

// GetUserProfile 读取用户画像。miss 返回退化画像而非错误，调用方按低信息输入处理。
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	data, err := s.kv.Get(ctx, userKeyPrefix+userID)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return core.DegenerateUserProfile(userID), nil
		}
		return nil, err
	}

	var p core.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		// 损坏的画像按缺失处理，不让单条脏数据阻断请求
		return core.DegenerateUserProfile(userID), nil
	}
	p.Stale = s.isStale(p.UpdatedAt)
	return &p, nil
}

// GetItemProfile 读取物品画像，语义与 GetUserProfile 一致。
func (s *Store) GetItemProfile(ctx context.Context, itemID string) (*core.ItemProfile, error) {
	data, err := s.kv.Get(ctx, itemKeyPrefix+itemID)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return core.DegenerateItemProfile(itemID), nil
		}
		return nil, err
	}

	var p core.ItemProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return core.DegenerateItemProfile(itemID), nil
	}
	p.Stale = s.isStale(p.UpdatedAt)
	return &p, nil
}

// BatchGetItemProfiles 批量读取物品画像；缺失的物品返回退化画像。
func (s *Store) BatchGetItemProfiles(ctx context.Context, itemIDs []string) (map[string]*core.ItemProfile, error) {
	keys := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		keys = append(keys, itemKeyPrefix+id)
	}
	kvs, err := s.kv.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*core.ItemProfile, len(itemIDs))
	for _, id := range itemIDs {
		data, ok := kvs[itemKeyPrefix+id]
		if !ok {
			result[id] = core.DegenerateItemProfile(id)
			continue
		}
		var p core.ItemProfile
		if err := json.Unmarshal(data, &p); err != nil {
			result[id] = core.DegenerateItemProfile(id)
			continue
		}
		p.Stale = s.isStale(p.UpdatedAt)
		result[id] = &p
	}
	return result, nil
}

// UpsertUserProfile 写入用户画像（只应由持续学习引擎调用）。
func (s *Store) UpsertUserProfile(ctx context.Context, p *core.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, userKeyPrefix+p.ID, data)
}

// UpsertItemProfile 写入物品画像。
func (s *Store) UpsertItemProfile(ctx context.Context, p *core.ItemProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, itemKeyPrefix+p.ID, data)
}

func (s *Store) isStale(updatedAt time.Time) bool {
	if s.staleness <= 0 || updatedAt.IsZero() {
		return false
	}
	return time.Since(updatedAt) > s.staleness
}
