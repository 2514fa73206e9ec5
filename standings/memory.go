package standings

import (
	"context"
	"sort"
	"sync"

	"github.com/to404hanga/online_judge_pipeline/model"
)

// MemoryStore keeps standings in process memory. It also serves as the
// ProblemSource once SetProblems has been called for a contest.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[entryKey]*model.ContestUser
	problems map[uint64][]uint64
}

var (
	_ Store         = (*MemoryStore)(nil)
	_ ProblemSource = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[entryKey]*model.ContestUser),
		problems: make(map[uint64][]uint64),
	}
}

func (s *MemoryStore) SetProblems(contestID uint64, problemIDs ...uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems[contestID] = append([]uint64(nil), problemIDs...)
}

func (s *MemoryStore) ProblemIDs(_ context.Context, contestID uint64) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint64(nil), s.problems[contestID]...), nil
}

func (s *MemoryStore) Register(_ context.Context, contestID uint64, userIDs ...uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range userIDs {
		key := entryKey{contestID: contestID, userID: uid}
		if _, ok := s.entries[key]; ok {
			continue
		}
		s.entries[key] = model.NewContestUser(contestID, uid)
	}
	return nil
}

func (s *MemoryStore) Unregister(_ context.Context, contestID uint64, userIDs ...uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range userIDs {
		delete(s.entries, entryKey{contestID: contestID, userID: uid})
	}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, contestID, userID uint64, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[entryKey{contestID: contestID, userID: userID}]
	if !ok {
		return ErrNotRegistered
	}
	// 在副本上修改, fn 失败时原记录保持不变
	cp := entry.Clone()
	changed, err := fn(&cp)
	if err != nil {
		return err
	}
	if changed {
		*entry = cp
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, contestID, userID uint64) (*model.ContestUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[entryKey{contestID: contestID, userID: userID}]
	if !ok {
		return nil, ErrNotRegistered
	}
	cp := entry.Clone()
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, contestID uint64) ([]model.ContestUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]model.ContestUser, 0)
	for key, entry := range s.entries {
		if key.contestID == contestID {
			list = append(list, entry.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UserID < list[j].UserID
	})
	return list, nil
}
