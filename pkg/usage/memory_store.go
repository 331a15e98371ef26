package usage

import (
	"context"
	"sync"
)

type monthKey struct {
	userID    string
	yearMonth string
}

// MemoryStore is an in-process Store guarded by a single mutex.
// Counters are lost on restart; use it for tests and local development.
type MemoryStore struct {
	mu     sync.Mutex
	plans  map[string]Plan
	months map[monthKey]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plans:  make(map[string]Plan),
		months: make(map[monthKey]Record),
	}
}

// SetPlan stores a plan record as is, replacing any existing one.
// The service never mutates plans; this exists for seeding.
func (s *MemoryStore) SetPlan(p Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.UserID] = clonePlan(p)
}

func (s *MemoryStore) FindPlan(_ context.Context, userID string) (Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[userID]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return clonePlan(p), nil
}

func (s *MemoryStore) EnsurePlan(_ context.Context, userID string, tier Tier) (Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[userID]
	if !ok {
		p = Plan{UserID: userID, Tier: tier}
		s.plans[userID] = p
	}
	return clonePlan(p), nil
}

func (s *MemoryStore) EnsureUsage(_ context.Context, userID, yearMonth string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := monthKey{userID: userID, yearMonth: yearMonth}
	rec, ok := s.months[key]
	if !ok {
		rec = Record{UserID: userID, YearMonth: yearMonth}
		s.months[key] = rec
	}
	return rec, nil
}

func (s *MemoryStore) IncrementUsage(_ context.Context, userID, yearMonth string, kind Kind, amount int64) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := monthKey{userID: userID, yearMonth: yearMonth}
	rec, ok := s.months[key]
	if !ok {
		rec = Record{UserID: userID, YearMonth: yearMonth}
	}
	switch kind {
	case KindDrafts:
		rec.Drafts += amount
	case KindSends:
		rec.Sends += amount
	default:
		return Record{}, ErrInvalidKind
	}
	s.months[key] = rec
	return rec, nil
}

// Months returns the number of monthly records held for userID.
func (s *MemoryStore) Months(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.months {
		if k.userID == userID {
			n++
		}
	}
	return n
}

func clonePlan(p Plan) Plan {
	if p.DraftLimit != nil {
		v := *p.DraftLimit
		p.DraftLimit = &v
	}
	if p.SendLimit != nil {
		v := *p.SendLimit
		p.SendLimit = &v
	}
	return p
}
