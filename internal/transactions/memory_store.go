package transactions

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo mode and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Transaction
	byUser map[string][]*Transaction // append order = creation order
}

// NewMemoryStore creates an in-memory transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Transaction),
		byUser: make(map[string][]*Transaction),
	}
}

func (s *MemoryStore) Create(ctx context.Context, txn *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *txn
	s.byID[t.ID] = &t
	s.byUser[t.UserID] = append(s.byUser[t.UserID], &t)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	c := *t
	return &c, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
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

	// Newest first.
	result := make([]*Transaction, 0, len(all)-start)
	for i := len(all) - 1; i >= start; i-- {
		c := *all[i]
		result = append(result, &c)
	}
	return result, nil
}

func (s *MemoryStore) CountByUser(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser[userID]), nil
}
