package snapshot

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rushteam/recfuse/core"
)

// MemoryStore 是内存实现的 SnapshotStore，用于测试/开发/原型。
// active 引用用 atomic.Pointer 发布：读者要么看到旧快照，要么看到完整的新快照。
type MemoryStore struct {
	active atomic.Pointer[core.ModelSnapshot]

	mu       sync.Mutex
	archived map[uint64]*core.ModelSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		archived: make(map[uint64]*core.ModelSnapshot),
	}
}

func (s *MemoryStore) LoadActive(_ context.Context) (*core.ModelSnapshot, error) {
	snap := s.active.Load()
	if snap == nil {
		return nil, core.ErrStoreNotFound
	}
	return snap, nil
}

// Publish 原子替换 active 引用，旧快照进入归档。
func (s *MemoryStore) Publish(_ context.Context, snap *core.ModelSnapshot) error {
	if snap == nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "snapshot: nil snapshot")
	}
	old := s.active.Swap(snap)
	if old != nil {
		s.mu.Lock()
		s.archived[old.Version] = old
		s.mu.Unlock()
	}
	return nil
}

func (s *MemoryStore) Archive(_ context.Context, version uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.archived, version)
	return nil
}

var _ core.SnapshotStore = (*MemoryStore)(nil)
