package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"franchise-quiz-service/internal/domain"
)

// Accumulator hash fields shared by all three scopes.
const (
	fieldTotalXp     = "total_xp"
	fieldGamesPlayed = "games_played"
	fieldFirstWins   = "first_place_wins"
	fieldSecondWins  = "second_place_wins"
	fieldThirdWins   = "third_place_wins"
)

// applyScript performs the whole aggregation unit atomically: if the
// per-entry marker is already set the script is a no-op, otherwise every
// affected accumulator hash and the cumulative stat hash are incremented
// together with the marker. Redis runs the script serially, which gives the
// increment-in-place semantics the accumulators need under concurrent
// session completions.
//
// KEYS: 1=marker 2=local 3=national 4=franchisee 5=stat
// ARGV: 1=xp 2=winField('' if off-podium) 3=national('1'/'0') 4=franchiseID
//
//	5=category('' if none) 6=questionCount 7=correctAnswers
var applyScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], '1') == 0 then
  return 0
end
local xp = tonumber(ARGV[1])
local function bump(key)
  redis.call('HINCRBY', key, 'total_xp', xp)
  redis.call('HINCRBY', key, 'games_played', 1)
  if ARGV[2] ~= '' then
    redis.call('HINCRBY', key, ARGV[2], 1)
  end
end
bump(KEYS[2])
if ARGV[3] == '1' then
  bump(KEYS[3])
end
bump(KEYS[4])
redis.call('HINCRBY', KEYS[5], 'total_xp', xp)
redis.call('HINCRBY', KEYS[5], 'games_played', 1)
redis.call('HINCRBY', KEYS[5], 'fr:'..ARGV[4]..':xp', xp)
redis.call('HINCRBY', KEYS[5], 'fr:'..ARGV[4]..':games', 1)
if ARGV[5] ~= '' then
  redis.call('HINCRBY', KEYS[5], 'cat:'..ARGV[5]..':questions', ARGV[6])
  redis.call('HINCRBY', KEYS[5], 'cat:'..ARGV[5]..':correct', ARGV[7])
end
return 1
`)

// LeaderboardStore is a Redis implementation of app.LeaderboardStore. Each
// accumulator is a hash; increments happen in a Lua script guarded by a
// per-entry applied marker, so replaying an entry can never double-count.
type LeaderboardStore struct {
	client *redis.Client
}

func NewLeaderboardStore(client *redis.Client) *LeaderboardStore {
	return &LeaderboardStore{client: client}
}

func (s *LeaderboardStore) ApplyEntry(ctx context.Context, entry domain.XpLedgerEntry) (bool, error) {
	winField := ""
	switch entry.FinalRank {
	case 1:
		winField = fieldFirstWins
	case 2:
		winField = fieldSecondWins
	case 3:
		winField = fieldThirdWins
	}
	national := "0"
	if entry.QuizType == domain.QuizTypeNational {
		national = "1"
	}

	keys := []string{
		s.markerKey(entry.ID),
		s.localKey(entry.PlayerID),
		s.nationalKey(entry.PlayerID),
		s.franchiseeKey(entry.PlayerID, entry.FranchiseID),
		s.statKey(entry.PlayerID),
	}
	applied, err := applyScript.Run(ctx, s.client, keys,
		entry.TotalEarnedXP, winField, national, entry.FranchiseID,
		entry.Category, entry.QuestionCount, entry.CorrectAnswers,
	).Int()
	if err != nil {
		return false, fmt.Errorf("apply ledger entry: %w", err)
	}
	return applied == 1, nil
}

func (s *LeaderboardStore) GetLocal(ctx context.Context, playerID string) (domain.LeaderboardAccumulator, error) {
	return s.readAccumulator(ctx, s.localKey(playerID), playerID, "")
}

func (s *LeaderboardStore) GetNational(ctx context.Context, playerID string) (domain.LeaderboardAccumulator, error) {
	return s.readAccumulator(ctx, s.nationalKey(playerID), playerID, "")
}

func (s *LeaderboardStore) GetFranchisee(ctx context.Context, playerID, franchiseID string) (domain.LeaderboardAccumulator, error) {
	return s.readAccumulator(ctx, s.franchiseeKey(playerID, franchiseID), playerID, franchiseID)
}

func (s *LeaderboardStore) readAccumulator(ctx context.Context, key, playerID, franchiseID string) (domain.LeaderboardAccumulator, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.LeaderboardAccumulator{}, fmt.Errorf("read accumulator: %w", err)
	}
	acc := domain.LeaderboardAccumulator{
		PlayerID:    playerID,
		FranchiseID: franchiseID,
		IsActive:    len(fields) > 0,
	}
	acc.TotalXp = parseInt(fields[fieldTotalXp])
	acc.TotalGamesPlayed = parseInt(fields[fieldGamesPlayed])
	acc.TotalFirstPlaceWins = parseInt(fields[fieldFirstWins])
	acc.TotalSecondPlaceWins = parseInt(fields[fieldSecondWins])
	acc.TotalThirdPlaceWins = parseInt(fields[fieldThirdWins])
	return acc, nil
}

func (s *LeaderboardStore) GetPlayerStat(ctx context.Context, playerID string) (domain.PlayerCumulativeStat, error) {
	fields, err := s.client.HGetAll(ctx, s.statKey(playerID)).Result()
	if err != nil {
		return domain.PlayerCumulativeStat{}, fmt.Errorf("read player stat: %w", err)
	}

	stat := domain.PlayerCumulativeStat{
		PlayerID:   playerID,
		Categories: make(map[string]domain.CategoryStat),
	}
	stat.TotalXp = parseInt(fields[fieldTotalXp])
	stat.TotalGamesPlayed = parseInt(fields[fieldGamesPlayed])

	franchises := make(map[string]*domain.FranchiseXp)
	for field, raw := range fields {
		value := parseInt(raw)
		switch {
		case strings.HasPrefix(field, "fr:"):
			name, metric, ok := splitMetricField(strings.TrimPrefix(field, "fr:"))
			if !ok {
				continue
			}
			fr, exists := franchises[name]
			if !exists {
				fr = &domain.FranchiseXp{FranchiseID: name}
				franchises[name] = fr
			}
			if metric == "xp" {
				fr.Xp = value
			} else if metric == "games" {
				fr.GamesPlayed = value
			}
		case strings.HasPrefix(field, "cat:"):
			name, metric, ok := splitMetricField(strings.TrimPrefix(field, "cat:"))
			if !ok {
				continue
			}
			cat := stat.Categories[name]
			cat.Category = name
			if metric == "questions" {
				cat.Questions = value
			} else if metric == "correct" {
				cat.Correct = value
			}
			stat.Categories[name] = cat
		}
	}
	for _, fr := range franchises {
		stat.XpByFranchise = append(stat.XpByFranchise, *fr)
	}
	return stat, nil
}

// splitMetricField separates "name:metric" on the last colon.
func splitMetricField(field string) (name, metric string, ok bool) {
	idx := strings.LastIndex(field, ":")
	if idx <= 0 || idx == len(field)-1 {
		return "", "", false
	}
	return field[:idx], field[idx+1:], true
}

func parseInt(raw string) int64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (s *LeaderboardStore) markerKey(entryID string) string {
	return "xp:applied:" + entryID
}

func (s *LeaderboardStore) localKey(playerID string) string {
	return "lb:local:" + playerID
}

func (s *LeaderboardStore) nationalKey(playerID string) string {
	return "lb:national:" + playerID
}

func (s *LeaderboardStore) franchiseeKey(playerID, franchiseID string) string {
	return "lb:franchisee:" + playerID + ":" + franchiseID
}

func (s *LeaderboardStore) statKey(playerID string) string {
	return "stat:player:" + playerID
}
