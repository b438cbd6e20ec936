package app

import (
	"sort"
	"time"

	"franchise-quiz-service/internal/domain"
)

// ResolveRanks computes the final ordering, podium and awards for a
// completed session. Ordering: descending total score, ties broken by
// ascending total answer time (faster aggregate wins), residual ties by
// earlier join time. Awards are independent of rank and shared on exact
// ties rather than picking one winner arbitrarily.
func ResolveRanks(sessionID string, players []domain.SessionPlayer, completedAt time.Time) domain.SessionResult {
	ordered := make([]domain.SessionPlayer, len(players))
	copy(ordered, players)

	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].TotalScore != ordered[j].TotalScore {
			return ordered[i].TotalScore > ordered[j].TotalScore
		}
		ti, tj := ordered[i].TotalAnswerSeconds(), ordered[j].TotalAnswerSeconds()
		if ti != tj {
			return ti < tj
		}
		return ordered[i].JoinedAt.Before(ordered[j].JoinedAt)
	})

	ranked := make([]domain.RankedPlayer, len(ordered))
	for i, p := range ordered {
		ranked[i] = domain.RankedPlayer{
			PlayerID:   p.PlayerID,
			Rank:       i + 1,
			TotalScore: p.TotalScore,
		}
	}

	podiumLen := len(ranked)
	if podiumLen > 3 {
		podiumLen = 3
	}

	return domain.SessionResult{
		SessionID:   sessionID,
		Ranked:      ranked,
		Podium:      ranked[:podiumLen],
		Awards:      resolveAwards(ordered),
		CompletedAt: completedAt,
	}
}

func resolveAwards(players []domain.SessionPlayer) []domain.Award {
	var awards []domain.Award

	// Fastest Overall: lowest average answer time among correct answers.
	bestAvg := 0.0
	var fastest []string
	for _, p := range players {
		correct := 0
		totalTime := 0.0
		for _, a := range p.Answers {
			if a.IsCorrect {
				correct++
				totalTime += a.TimeTakenSeconds
			}
		}
		if correct == 0 {
			continue
		}
		avg := totalTime / float64(correct)
		switch {
		case fastest == nil || avg < bestAvg:
			bestAvg = avg
			fastest = []string{p.PlayerID}
		case avg == bestAvg:
			fastest = append(fastest, p.PlayerID)
		}
	}
	if len(fastest) > 0 {
		sort.Strings(fastest)
		awards = append(awards, domain.Award{Name: domain.AwardFastestOverall, PlayerIDs: fastest, Value: bestAvg})
	}

	// Highest Streak: max streak observed at session end.
	bestStreak := 0
	var streakers []string
	for _, p := range players {
		switch {
		case p.CurrentStreak > bestStreak:
			bestStreak = p.CurrentStreak
			streakers = []string{p.PlayerID}
		case p.CurrentStreak == bestStreak && bestStreak > 0:
			streakers = append(streakers, p.PlayerID)
		}
	}
	if len(streakers) > 0 {
		sort.Strings(streakers)
		awards = append(awards, domain.Award{Name: domain.AwardHighestStreak, PlayerIDs: streakers, Value: float64(bestStreak)})
	}

	return awards
}
