package app

import (
	"testing"
	"time"

	"franchise-quiz-service/internal/domain"
	"franchise-quiz-service/internal/scoring"
)

func newFixedBuilder() *LedgerBuilder {
	b := NewLedgerBuilder(scoring.DefaultLevels())
	b.newID = func() string { return "entry-fixed" }
	b.clock = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:          "quiz-1",
		FranchiseID: "fr-1",
		Type:        domain.QuizTypeLocal,
		Category:    "menu",
		Questions:   []domain.Question{{ID: "q1"}, {ID: "q2"}},
	}
}

func TestBuildResolvesFullBreakdown(t *testing.T) {
	builder := newFixedBuilder()
	rules := scoring.NewRuleTable(7, scoring.DefaultRules())

	player := domain.SessionPlayer{
		SessionID: "sess-1",
		PlayerID:  "p1",
		Answers: []domain.AnswerRecord{
			{QuestionID: "q1", IsCorrect: true, BaseXP: 3, SpeedBonusXP: 7, SpeedMultiplier: 1.0},
			{QuestionID: "q2", IsCorrect: true, BaseXP: 6, SpeedBonusXP: 8, StreakBonusXP: 5, SpeedMultiplier: 0.5},
		},
	}

	entry, err := builder.Build(twoQuestionQuiz(), player, 1, rules, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if entry.ID != "entry-fixed" || entry.SessionID != "sess-1" || entry.PlayerID != "p1" {
		t.Fatalf("unexpected identity fields: %+v", entry)
	}
	if entry.BaseXP != 9 || entry.SpeedBonusXP != 15 || entry.StreakBonusXP != 5 || entry.RankBonusXP != 100 {
		t.Fatalf("unexpected breakdown: %+v", entry)
	}
	if entry.TotalEarnedXP != 129 {
		t.Fatalf("expected total 129, got %d", entry.TotalEarnedXP)
	}
	if entry.MultiplierUsed != 0.75 {
		t.Fatalf("expected averaged multiplier 0.75, got %f", entry.MultiplierUsed)
	}
	if entry.RuleVersion != 7 || entry.FinalRank != 1 {
		t.Fatalf("unexpected rule metadata: %+v", entry)
	}
	if entry.QuestionCount != 2 || entry.CorrectAnswers != 2 || entry.AccuracyRate != 100 {
		t.Fatalf("unexpected accuracy fields: %+v", entry)
	}
	if entry.Processed {
		t.Fatal("new entries must start unprocessed")
	}
}

func TestBuildTracksLevelCrossing(t *testing.T) {
	builder := newFixedBuilder()
	rules := scoring.NewRuleTable(1, scoring.DefaultRules())

	player := domain.SessionPlayer{
		SessionID: "sess-1",
		PlayerID:  "p1",
		Answers: []domain.AnswerRecord{
			{QuestionID: "q1", IsCorrect: true, BaseXP: 3, SpeedBonusXP: 7, SpeedMultiplier: 1.0},
		},
	}

	// 480 current + 10 earned + 100 first place crosses the 500 threshold.
	entry, err := builder.Build(twoQuestionQuiz(), player, 1, rules, 480)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if entry.XpLevelBefore != 1 || entry.XpLevelAfter != 2 {
		t.Fatalf("expected level 1 -> 2, got %d -> %d", entry.XpLevelBefore, entry.XpLevelAfter)
	}
}

func TestBuildWithNoCorrectAnswers(t *testing.T) {
	builder := newFixedBuilder()
	rules := scoring.NewRuleTable(1, scoring.DefaultRules())

	player := domain.SessionPlayer{
		SessionID: "sess-1",
		PlayerID:  "p1",
		Answers: []domain.AnswerRecord{
			{QuestionID: "q1", IsCorrect: false, SpeedMultiplier: 0.9},
		},
	}

	entry, err := builder.Build(twoQuestionQuiz(), player, 4, rules, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if entry.MultiplierUsed != 0 {
		t.Fatalf("multiplier must ignore incorrect answers, got %f", entry.MultiplierUsed)
	}
	if entry.AccuracyRate != 0 || entry.CorrectAnswers != 0 {
		t.Fatalf("unexpected accuracy: %+v", entry)
	}
	if entry.RankBonusXP != 10 || entry.TotalEarnedXP != 10 {
		t.Fatalf("expected participation bonus only, got %+v", entry)
	}
}

func TestBuildFailsOnMissingRule(t *testing.T) {
	builder := newFixedBuilder()
	rules := scoring.NewRuleTable(1, nil)

	_, err := builder.Build(twoQuestionQuiz(), domain.SessionPlayer{PlayerID: "p1"}, 1, rules, 0)
	if err != domain.ErrRuleNotFound {
		t.Fatalf("expected ErrRuleNotFound, got %v", err)
	}
}
