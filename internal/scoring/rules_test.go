package scoring

import (
	"testing"

	"franchise-quiz-service/internal/domain"
)

func TestRuleTableLookup(t *testing.T) {
	table := NewRuleTable(1, DefaultRules())

	xp, err := table.Lookup(RankFirstPlace, domain.QuizTypeNational)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if xp != 250 {
		t.Fatalf("expected 250, got %d", xp)
	}

	if _, err := table.Lookup("grandmaster", domain.QuizTypeLocal); err != domain.ErrRuleNotFound {
		t.Fatalf("expected rule miss, got %v", err)
	}
}

func TestSnapshotIsImmuneToLaterEdits(t *testing.T) {
	table := NewRuleTable(1, DefaultRules())
	snapshot := table.Snapshot()

	// Simulate an admin edit to the live table.
	table.rules[ruleKey{rank: RankFirstPlace, quizType: domain.QuizTypeLocal}] = 9999

	xp, err := snapshot.Lookup(RankFirstPlace, domain.QuizTypeLocal)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if xp != 100 {
		t.Fatalf("snapshot leaked a later edit: got %d", xp)
	}
}

func TestRankName(t *testing.T) {
	cases := map[int]string{1: RankFirstPlace, 2: RankSecondPlace, 3: RankThirdPlace, 4: RankParticipation, 17: RankParticipation}
	for rank, want := range cases {
		if got := RankName(rank); got != want {
			t.Fatalf("rank %d: expected %s, got %s", rank, want, got)
		}
	}
}

func TestLevelTable(t *testing.T) {
	levels := DefaultLevels()

	level, name := levels.ForXp(0)
	if level != 1 || name != "Rookie" {
		t.Fatalf("expected level 1 Rookie at 0 xp, got %d %s", level, name)
	}
	level, name = levels.ForXp(1500)
	if level != 3 || name != "Pro" {
		t.Fatalf("expected level 3 Pro at 1500 xp, got %d %s", level, name)
	}

	badges := levels.BadgesForXp(600)
	if len(badges) != 2 || badges[1] != "Regular" {
		t.Fatalf("expected Rookie+Regular badges, got %v", badges)
	}
}
