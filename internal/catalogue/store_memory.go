package catalogue

import (
	"context"
	"sort"
	"sync"

	"sahaya/pkg/domain"
	"sahaya/pkg/platform/sentinel"
)

// MemoryStore keeps the append-only version sequence per scheme id in memory.
// Each id owns its own entry with its own lock, so writes to different ids
// never serialize against each other and readers of one scheme are never
// blocked by writers of another.
type MemoryStore struct {
	entries sync.Map // domain.SchemeID -> *schemeEntry
}

type schemeEntry struct {
	mu       sync.RWMutex
	versions []*SchemeRecord // index i holds version i+1; append-only
	flags    []Flag
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) entry(id domain.SchemeID, create bool) (*schemeEntry, bool) {
	if v, ok := s.entries.Load(id); ok {
		return v.(*schemeEntry), true
	}
	if !create {
		return nil, false
	}
	v, _ := s.entries.LoadOrStore(id, &schemeEntry{})
	return v.(*schemeEntry), true
}

func (s *MemoryStore) GetCurrent(_ context.Context, id domain.SchemeID, includeInactive bool) (*SchemeRecord, error) {
	e, ok := s.entry(id, false)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.versions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	current := e.versions[len(e.versions)-1]
	if current.Status == StatusInactive && !includeInactive {
		return nil, sentinel.ErrNotFound
	}
	return current.Clone(), nil
}

func (s *MemoryStore) GetVersion(_ context.Context, id domain.SchemeID, version int64) (*SchemeRecord, error) {
	e, ok := s.entry(id, false)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if version < 1 || version > int64(len(e.versions)) {
		return nil, sentinel.ErrNotFound
	}
	return e.versions[version-1].Clone(), nil
}

func (s *MemoryStore) ListActive(_ context.Context) ([]*SchemeRecord, error) {
	var records []*SchemeRecord
	s.entries.Range(func(_, v any) bool {
		e := v.(*schemeEntry)
		e.mu.RLock()
		if n := len(e.versions); n > 0 {
			current := e.versions[n-1]
			if current.Status == StatusActive {
				records = append(records, current.Clone())
			}
		}
		e.mu.RUnlock()
		return true
	})
	sortSchemes(records)
	return records, nil
}

func (s *MemoryStore) Append(_ context.Context, record *SchemeRecord) error {
	e, _ := s.entry(record.ID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if record.Version != int64(len(e.versions))+1 {
		return sentinel.ErrConflict
	}
	e.versions = append(e.versions, record.Clone())
	return nil
}

func (s *MemoryStore) AppendFlag(_ context.Context, id domain.SchemeID, flag Flag) error {
	e, ok := s.entry(id, false)
	if !ok {
		return sentinel.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.versions) == 0 {
		return sentinel.ErrNotFound
	}
	e.flags = append(e.flags, flag)
	return nil
}

func (s *MemoryStore) ListFlags(_ context.Context, id domain.SchemeID) ([]Flag, error) {
	e, ok := s.entry(id, false)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.versions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return append([]Flag(nil), e.flags...), nil
}

// sortSchemes orders by category then resolved English name then id, which
// keeps listActive stable and deterministic.
func sortSchemes(records []*SchemeRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Category != records[j].Category {
			return records[i].Category < records[j].Category
		}
		ni, nj := records[i].Name.Resolve("en"), records[j].Name.Resolve("en")
		if ni != nj {
			return ni < nj
		}
		return records[i].ID < records[j].ID
	})
}
