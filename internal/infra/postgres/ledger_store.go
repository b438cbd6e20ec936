package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"franchise-quiz-service/internal/domain"
)

type ledgerRow struct {
	bun.BaseModel `bun:"table:xp_ledger_entries,alias:xl"`

	ID             string    `bun:"id,pk"`
	SessionID      string    `bun:"session_id,notnull"`
	PlayerID       string    `bun:"player_id,notnull"`
	QuizID         string    `bun:"quiz_id,notnull"`
	FranchiseID    string    `bun:"franchise_id,notnull"`
	QuizType       string    `bun:"quiz_type,notnull"`
	Category       string    `bun:"category"`
	BaseXp         int       `bun:"base_xp"`
	SpeedBonusXp   int       `bun:"speed_bonus_xp"`
	StreakBonusXp  int       `bun:"streak_bonus_xp"`
	RankBonusXp    int       `bun:"rank_bonus_xp"`
	TotalEarnedXp  int       `bun:"total_earned_xp"`
	MultiplierUsed float64   `bun:"multiplier_used"`
	RuleVersion    int       `bun:"rule_version"`
	QuestionCount  int       `bun:"question_count"`
	CorrectAnswers int       `bun:"correct_answers"`
	AccuracyRate   float64   `bun:"accuracy_rate"`
	FinalRank      int       `bun:"final_rank"`
	XpLevelBefore  int       `bun:"xp_level_before"`
	XpLevelAfter   int       `bun:"xp_level_after"`
	Processed      bool      `bun:"processed"`
	CreatedAt      time.Time `bun:"created_at"`
}

// LedgerStore is the Postgres implementation of app.LedgerStore. The
// (session_id, player_id) unique constraint backs the one-entry-per-player
// invariant; the processed CAS is an UPDATE guarded by processed = FALSE.
type LedgerStore struct {
	db *bun.DB
}

func NewLedgerStore(db *bun.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Insert(ctx context.Context, entry *domain.XpLedgerEntry) error {
	row := toRow(entry)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrLedgerEntryExists
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (s *LedgerStore) MarkProcessed(ctx context.Context, entryID string) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*ledgerRow)(nil)).
		Set("processed = TRUE").
		Where("id = ?", entryID).
		Where("processed = FALSE").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("mark processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark processed: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	exists, err := s.db.NewSelect().
		Model((*ledgerRow)(nil)).
		Where("id = ?", entryID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check ledger entry: %w", err)
	}
	if !exists {
		return false, domain.ErrLedgerEntryNotFound
	}
	return false, nil
}

func (s *LedgerStore) ListUnprocessed(ctx context.Context) ([]domain.XpLedgerEntry, error) {
	var rows []ledgerRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("processed = FALSE").
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed: %w", err)
	}

	entries := make([]domain.XpLedgerEntry, len(rows))
	for i := range rows {
		entries[i] = fromRow(&rows[i])
	}
	return entries, nil
}

func toRow(e *domain.XpLedgerEntry) *ledgerRow {
	return &ledgerRow{
		ID:             e.ID,
		SessionID:      e.SessionID,
		PlayerID:       e.PlayerID,
		QuizID:         e.QuizID,
		FranchiseID:    e.FranchiseID,
		QuizType:       string(e.QuizType),
		Category:       e.Category,
		BaseXp:         e.BaseXP,
		SpeedBonusXp:   e.SpeedBonusXP,
		StreakBonusXp:  e.StreakBonusXP,
		RankBonusXp:    e.RankBonusXP,
		TotalEarnedXp:  e.TotalEarnedXP,
		MultiplierUsed: e.MultiplierUsed,
		RuleVersion:    e.RuleVersion,
		QuestionCount:  e.QuestionCount,
		CorrectAnswers: e.CorrectAnswers,
		AccuracyRate:   e.AccuracyRate,
		FinalRank:      e.FinalRank,
		XpLevelBefore:  e.XpLevelBefore,
		XpLevelAfter:   e.XpLevelAfter,
		Processed:      e.Processed,
		CreatedAt:      e.CreatedAt,
	}
}

func fromRow(r *ledgerRow) domain.XpLedgerEntry {
	return domain.XpLedgerEntry{
		ID:             r.ID,
		SessionID:      r.SessionID,
		PlayerID:       r.PlayerID,
		QuizID:         r.QuizID,
		FranchiseID:    r.FranchiseID,
		QuizType:       domain.QuizType(r.QuizType),
		Category:       r.Category,
		BaseXP:         r.BaseXp,
		SpeedBonusXP:   r.SpeedBonusXp,
		StreakBonusXP:  r.StreakBonusXp,
		RankBonusXP:    r.RankBonusXp,
		TotalEarnedXP:  r.TotalEarnedXp,
		MultiplierUsed: r.MultiplierUsed,
		RuleVersion:    r.RuleVersion,
		QuestionCount:  r.QuestionCount,
		CorrectAnswers: r.CorrectAnswers,
		AccuracyRate:   r.AccuracyRate,
		FinalRank:      r.FinalRank,
		XpLevelBefore:  r.XpLevelBefore,
		XpLevelAfter:   r.XpLevelAfter,
		Processed:      r.Processed,
		CreatedAt:      r.CreatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return false
}
