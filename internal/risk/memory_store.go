package risk

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo mode and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	byTransaction map[string]*Assessment
	byUser        map[string][]*Assessment // append order = creation order
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byTransaction: make(map[string]*Assessment),
		byUser:        make(map[string][]*Assessment),
	}
}

func (s *MemoryStore) Record(ctx context.Context, assessment *Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := copyAssessment(assessment)
	s.byTransaction[a.TransactionID] = a
	s.byUser[a.UserID] = append(s.byUser[a.UserID], a)
	return nil
}

func (s *MemoryStore) GetByTransaction(ctx context.Context, transactionID string) (*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byTransaction[transactionID]
	if !ok {
		return nil, ErrAssessmentNotFound
	}
	return copyAssessment(a), nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.byUser[userID]
	if len(all) == 0 {
		return nil, nil
	}

	start := len(all) - limit
	if limit <= 0 || start < 0 {
		start = 0
	}

	// Most recent first.
	result := make([]*Assessment, 0, len(all)-start)
	for i := len(all) - 1; i >= start; i-- {
		result = append(result, copyAssessment(all[i]))
	}
	return result, nil
}

func copyAssessment(a *Assessment) *Assessment {
	c := *a
	c.Flags = append([]string(nil), a.Flags...)
	c.AnalysisDetails = make(map[string]float64, len(a.AnalysisDetails))
	for k, v := range a.AnalysisDetails {
		c.AnalysisDetails[k] = v
	}
	return &c
}
