package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"franchise-quiz-service/internal/domain"
	"franchise-quiz-service/internal/scoring"
)

// LedgerStore persists XP ledger entries. MarkProcessed is a compare-and-set:
// it flips processed false->true at most once and reports whether this call
// did the flip.
type LedgerStore interface {
	Insert(ctx context.Context, entry *domain.XpLedgerEntry) error
	MarkProcessed(ctx context.Context, entryID string) (bool, error)
	ListUnprocessed(ctx context.Context) ([]domain.XpLedgerEntry, error)
}

// LedgerBuilder turns a finalized SessionPlayer plus its resolved rank into
// an XpLedgerEntry. Every numeric component is resolved here, at creation
// time, against a rule-table snapshot; later rule edits cannot alter the
// entry.
type LedgerBuilder struct {
	levels scoring.LevelTable
	newID  func() string
	clock  func() time.Time
}

func NewLedgerBuilder(levels scoring.LevelTable) *LedgerBuilder {
	return &LedgerBuilder{levels: levels, newID: uuid.NewString, clock: time.Now}
}

// Build computes the full XP breakdown for one player in one completed
// session. currentXp is the player's Local accumulator total before this
// entry is applied; it anchors the level-before/after pair.
func (b *LedgerBuilder) Build(quiz domain.Quiz, player domain.SessionPlayer, rank int, rules *scoring.RuleTable, currentXp int64) (domain.XpLedgerEntry, error) {
	rankBonus, err := rules.Lookup(scoring.RankName(rank), quiz.Type)
	if err != nil {
		return domain.XpLedgerEntry{}, err
	}

	baseXP, speedXP, streakXP := 0, 0, 0
	correct := 0
	multiplierSum := 0.0
	for _, a := range player.Answers {
		baseXP += a.BaseXP
		speedXP += a.SpeedBonusXP
		streakXP += a.StreakBonusXP
		if a.IsCorrect {
			correct++
			multiplierSum += a.SpeedMultiplier
		}
	}

	multiplierUsed := 0.0
	if correct > 0 {
		multiplierUsed = multiplierSum / float64(correct)
	}

	questionCount := len(quiz.Questions)
	accuracy := 0.0
	if questionCount > 0 {
		accuracy = float64(correct) / float64(questionCount) * 100
	}

	total := baseXP + speedXP + streakXP + rankBonus
	levelBefore, _ := b.levels.ForXp(currentXp)
	levelAfter, _ := b.levels.ForXp(currentXp + int64(total))

	return domain.XpLedgerEntry{
		ID:             b.newID(),
		SessionID:      player.SessionID,
		PlayerID:       player.PlayerID,
		QuizID:         quiz.ID,
		FranchiseID:    quiz.FranchiseID,
		QuizType:       quiz.Type,
		Category:       quiz.Category,
		BaseXP:         baseXP,
		SpeedBonusXP:   speedXP,
		StreakBonusXP:  streakXP,
		RankBonusXP:    rankBonus,
		TotalEarnedXP:  total,
		MultiplierUsed: multiplierUsed,
		RuleVersion:    rules.Version(),
		QuestionCount:  questionCount,
		CorrectAnswers: correct,
		AccuracyRate:   accuracy,
		FinalRank:      rank,
		XpLevelBefore:  levelBefore,
		XpLevelAfter:   levelAfter,
		Processed:      false,
		CreatedAt:      b.clock(),
	}, nil
}
