package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

type memoryEntry struct {
	finding model.SecurityFinding
	seq     uint64
}

// MemoryStore keeps findings in process. Bucket counters are adjusted on
// every upsert so Summary never scans the collection.
type MemoryStore struct {
	mu      sync.RWMutex
	ready   bool
	byUID   map[string]*memoryEntry
	nextSeq uint64
	counts  model.Summary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		s.byUID = map[string]*memoryEntry{}
		s.ready = true
	}
	return nil
}

func (s *MemoryStore) Kind() string { return "memory" }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Upsert(_ context.Context, findings []model.SecurityFinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotInitialized
	}
	for _, f := range findings {
		f = f.Clone()
		if e, ok := s.byUID[f.FindingUID]; ok {
			s.counts.Add(e.finding.SeverityID, -1)
			e.finding = f
		} else {
			s.nextSeq++
			s.byUID[f.FindingUID] = &memoryEntry{finding: f, seq: s.nextSeq}
		}
		s.counts.Add(f.SeverityID, 1)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]model.SecurityFinding, error) {
	if limit <= 0 {
		return []model.SecurityFinding{}, nil
	}
	s.mu.RLock()
	if !s.ready {
		s.mu.RUnlock()
		return nil, ErrNotInitialized
	}
	entries := make([]memoryEntry, 0, len(s.byUID))
	for _, e := range s.byUID {
		entries = append(entries, *e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		ti, tj := entries[i].finding.Time, entries[j].finding.Time
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return entries[i].seq > entries[j].seq
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]model.SecurityFinding, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.finding.Clone())
	}
	return out, nil
}

func (s *MemoryStore) Summary(context.Context) (model.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return model.Summary{}, ErrNotInitialized
	}
	return s.counts, nil
}
