package memory

import (
	"context"
	"sync"

	"franchise-quiz-service/internal/domain"
)

// LedgerStore is an in-memory implementation of app.LedgerStore. One entry
// per (player, session) is enforced on insert; MarkProcessed is a
// compare-and-set under the store mutex.
type LedgerStore struct {
	mu      sync.RWMutex
	entries map[string]*domain.XpLedgerEntry
	bySesh  map[string]map[string]string
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		entries: make(map[string]*domain.XpLedgerEntry),
		bySesh:  make(map[string]map[string]string),
	}
}

func (s *LedgerStore) Insert(_ context.Context, entry *domain.XpLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	players, ok := s.bySesh[entry.SessionID]
	if !ok {
		players = make(map[string]string)
		s.bySesh[entry.SessionID] = players
	}
	if _, exists := players[entry.PlayerID]; exists {
		return domain.ErrLedgerEntryExists
	}

	stored := *entry
	s.entries[entry.ID] = &stored
	players[entry.PlayerID] = entry.ID
	return nil
}

func (s *LedgerStore) MarkProcessed(_ context.Context, entryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return false, domain.ErrLedgerEntryNotFound
	}
	if entry.Processed {
		return false, nil
	}
	entry.Processed = true
	return true, nil
}

func (s *LedgerStore) ListUnprocessed(_ context.Context) ([]domain.XpLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []domain.XpLedgerEntry
	for _, entry := range s.entries {
		if !entry.Processed {
			pending = append(pending, *entry)
		}
	}
	return pending, nil
}

// Get returns a copy of a stored entry; test helper.
func (s *LedgerStore) Get(entryID string) (domain.XpLedgerEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return domain.XpLedgerEntry{}, false
	}
	return *entry, true
}
