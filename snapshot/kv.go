package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rushteam/recfuse/core"
)

const (
	activeKey      = "snapshot:active"
	versionKeyTmpl = "snapshot:v:%d"
)

// KVStore 是 core.Store 之上的 SnapshotStore：快照以 JSON 持久化，
// active 是一个单独的指针 key。发布顺序：先写版本化快照，再切指针；
// 指针写入是单 key 操作，在 Redis 等后端上天然原子。
type KVStore struct {
	kv core.Store
}

func NewKVStore(kv core.Store) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) LoadActive(ctx context.Context) (*core.ModelSnapshot, error) {
	data, err := s.kv.Get(ctx, activeKey)
	if err != nil {
		return nil, err
	}
	var version uint64
	if err := json.Unmarshal(data, &version); err != nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError, "snapshot: corrupt active pointer")
	}

	raw, err := s.kv.Get(ctx, fmt.Sprintf(versionKeyTmpl, version))
	if err != nil {
		return nil, err
	}
	var snap core.ModelSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError, "snapshot: corrupt snapshot payload")
	}
	return &snap, nil
}

func (s *KVStore) Publish(ctx context.Context, snap *core.ModelSnapshot) error {
	if snap == nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "snapshot: nil snapshot")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, fmt.Sprintf(versionKeyTmpl, snap.Version), raw); err != nil {
		return err
	}

	pointer, err := json.Marshal(snap.Version)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, activeKey, pointer)
}

func (s *KVStore) Archive(ctx context.Context, version uint64) error {
	return s.kv.Delete(ctx, fmt.Sprintf(versionKeyTmpl, version))
}

var _ core.SnapshotStore = (*KVStore)(nil)
