package memory

import (
	"context"
	"sync"

	"franchise-quiz-service/internal/domain"
)

type scopeKey struct {
	scope       domain.LeaderboardScope
	playerID    string
	franchiseID string
}

type accumulator struct {
	totalXp    int64
	games      int64
	firstWins  int64
	secondWins int64
	thirdWins  int64
}

type playerStat struct {
	totalXp    int64
	games      int64
	franchises map[string]*domain.FranchiseXp
	categories map[string]*domain.CategoryStat
}

// LeaderboardStore is an in-memory implementation of app.LeaderboardStore.
// A single mutex serializes ApplyEntry, so the whole increment set plus the
// applied marker land as one unit; a repeated entry ID is a no-op.
type LeaderboardStore struct {
	mu      sync.RWMutex
	applied map[string]struct{}
	boards  map[scopeKey]*accumulator
	stats   map[string]*playerStat
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{
		applied: make(map[string]struct{}),
		boards:  make(map[scopeKey]*accumulator),
		stats:   make(map[string]*playerStat),
	}
}

func (s *LeaderboardStore) ApplyEntry(_ context.Context, entry domain.XpLedgerEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.applied[entry.ID]; done {
		return false, nil
	}
	s.applied[entry.ID] = struct{}{}

	s.incrementLocked(scopeKey{scope: domain.ScopeLocal, playerID: entry.PlayerID}, entry)
	if entry.QuizType == domain.QuizTypeNational {
		s.incrementLocked(scopeKey{scope: domain.ScopeNational, playerID: entry.PlayerID}, entry)
	}
	s.incrementLocked(scopeKey{scope: domain.ScopeFranchisee, playerID: entry.PlayerID, franchiseID: entry.FranchiseID}, entry)
	s.updateStatLocked(entry)
	return true, nil
}

func (s *LeaderboardStore) incrementLocked(key scopeKey, entry domain.XpLedgerEntry) {
	acc, ok := s.boards[key]
	if !ok {
		acc = &accumulator{}
		s.boards[key] = acc
	}
	acc.totalXp += int64(entry.TotalEarnedXP)
	acc.games++
	switch entry.FinalRank {
	case 1:
		acc.firstWins++
	case 2:
		acc.secondWins++
	case 3:
		acc.thirdWins++
	}
}

func (s *LeaderboardStore) updateStatLocked(entry domain.XpLedgerEntry) {
	stat, ok := s.stats[entry.PlayerID]
	if !ok {
		stat = &playerStat{
			franchises: make(map[string]*domain.FranchiseXp),
			categories: make(map[string]*domain.CategoryStat),
		}
		s.stats[entry.PlayerID] = stat
	}
	stat.totalXp += int64(entry.TotalEarnedXP)
	stat.games++

	fr, ok := stat.franchises[entry.FranchiseID]
	if !ok {
		fr = &domain.FranchiseXp{FranchiseID: entry.FranchiseID}
		stat.franchises[entry.FranchiseID] = fr
	}
	fr.Xp += int64(entry.TotalEarnedXP)
	fr.GamesPlayed++

	if entry.Category != "" {
		cat, ok := stat.categories[entry.Category]
		if !ok {
			cat = &domain.CategoryStat{Category: entry.Category}
			stat.categories[entry.Category] = cat
		}
		cat.Questions += int64(entry.QuestionCount)
		cat.Correct += int64(entry.CorrectAnswers)
	}
}

func (s *LeaderboardStore) GetLocal(_ context.Context, playerID string) (domain.LeaderboardAccumulator, error) {
	return s.read(scopeKey{scope: domain.ScopeLocal, playerID: playerID}), nil
}

func (s *LeaderboardStore) GetNational(_ context.Context, playerID string) (domain.LeaderboardAccumulator, error) {
	return s.read(scopeKey{scope: domain.ScopeNational, playerID: playerID}), nil
}

func (s *LeaderboardStore) GetFranchisee(_ context.Context, playerID, franchiseID string) (domain.LeaderboardAccumulator, error) {
	return s.read(scopeKey{scope: domain.ScopeFranchisee, playerID: playerID, franchiseID: franchiseID}), nil
}

func (s *LeaderboardStore) read(key scopeKey) domain.LeaderboardAccumulator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := domain.LeaderboardAccumulator{
		PlayerID:    key.playerID,
		FranchiseID: key.franchiseID,
	}
	if acc, ok := s.boards[key]; ok {
		result.TotalXp = acc.totalXp
		result.TotalGamesPlayed = acc.games
		result.TotalFirstPlaceWins = acc.firstWins
		result.TotalSecondPlaceWins = acc.secondWins
		result.TotalThirdPlaceWins = acc.thirdWins
		result.IsActive = true
	}
	return result
}

func (s *LeaderboardStore) GetPlayerStat(_ context.Context, playerID string) (domain.PlayerCumulativeStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := domain.PlayerCumulativeStat{
		PlayerID:   playerID,
		Categories: make(map[string]domain.CategoryStat),
	}
	stat, ok := s.stats[playerID]
	if !ok {
		return result, nil
	}
	result.TotalXp = stat.totalXp
	result.TotalGamesPlayed = stat.games
	for _, fr := range stat.franchises {
		result.XpByFranchise = append(result.XpByFranchise, *fr)
	}
	for name, cat := range stat.categories {
		result.Categories[name] = *cat
	}
	return result, nil
}
