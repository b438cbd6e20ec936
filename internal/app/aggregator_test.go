package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"franchise-quiz-service/internal/app"
	"franchise-quiz-service/internal/domain"
	"franchise-quiz-service/internal/infra/memory"
)

// crashingLedger fails MarkProcessed a fixed number of times, mimicking a
// crash after the accumulator write but before the processed flip.
type crashingLedger struct {
	*memory.LedgerStore
	failures int
}

func (l *crashingLedger) MarkProcessed(ctx context.Context, entryID string) (bool, error) {
	if l.failures > 0 {
		l.failures--
		return false, errors.New("ledger write failed")
	}
	return l.LedgerStore.MarkProcessed(ctx, entryID)
}

func ledgerEntry(id string) domain.XpLedgerEntry {
	return domain.XpLedgerEntry{
		ID:             id,
		SessionID:      "sess-1",
		PlayerID:       "p1",
		QuizID:         "quiz-burger",
		FranchiseID:    "fr-1",
		QuizType:       domain.QuizTypeLocal,
		Category:       "menu",
		BaseXP:         18,
		SpeedBonusXP:   42,
		StreakBonusXP:  5,
		RankBonusXP:    100,
		TotalEarnedXP:  165,
		QuestionCount:  3,
		CorrectAnswers: 3,
		AccuracyRate:   100,
		FinalRank:      1,
		RuleVersion:    1,
		CreatedAt:      time.Now(),
	}
}

func TestApplyIsIdempotentPerEntry(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedgerStore()
	boards := memory.NewLeaderboardStore()
	aggregator := app.NewAggregator(ledger, boards)

	entry := ledgerEntry("entry-1")
	if err := ledger.Insert(ctx, &entry); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := aggregator.Apply(ctx, entry); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := aggregator.Apply(ctx, entry); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	acc, err := boards.GetLocal(ctx, "p1")
	if err != nil {
		t.Fatalf("get local: %v", err)
	}
	if acc.TotalXp != 165 || acc.TotalGamesPlayed != 1 || acc.TotalFirstPlaceWins != 1 {
		t.Fatalf("double apply leaked into the accumulator: %+v", acc)
	}

	stored, ok := ledger.Get("entry-1")
	if !ok || !stored.Processed {
		t.Fatalf("expected entry processed after apply, got %+v", stored)
	}
}

func TestApplySkipsProcessedEntries(t *testing.T) {
	ctx := context.Background()
	boards := memory.NewLeaderboardStore()
	aggregator := app.NewAggregator(memory.NewLedgerStore(), boards)

	entry := ledgerEntry("entry-1")
	entry.Processed = true
	if err := aggregator.Apply(ctx, entry); err != nil {
		t.Fatalf("apply processed entry: %v", err)
	}

	acc, _ := boards.GetLocal(ctx, "p1")
	if acc.IsActive {
		t.Fatalf("processed entry must be a no-op, got %+v", acc)
	}
}

func TestCrashBetweenApplyAndMarkIsRecovered(t *testing.T) {
	ctx := context.Background()
	ledger := &crashingLedger{LedgerStore: memory.NewLedgerStore(), failures: 1}
	boards := memory.NewLeaderboardStore()
	aggregator := app.NewAggregator(ledger, boards)

	entry := ledgerEntry("entry-1")
	if err := ledger.Insert(ctx, &entry); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Accumulators are written, the processed flip fails.
	if err := aggregator.Apply(ctx, entry); err == nil {
		t.Fatal("expected apply to fail on the processed flip")
	}

	pending, err := ledger.ListUnprocessed(ctx)
	if err != nil {
		t.Fatalf("list unprocessed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected the entry to stay pending, got %d", len(pending))
	}

	count, err := aggregator.ReconcileUnprocessed(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reconciled entry, got %d", count)
	}

	// The replay must not double the increments from the first attempt.
	acc, _ := boards.GetLocal(ctx, "p1")
	if acc.TotalXp != 165 || acc.TotalGamesPlayed != 1 {
		t.Fatalf("reconcile double-counted the entry: %+v", acc)
	}
	stored, _ := ledger.Get("entry-1")
	if !stored.Processed {
		t.Fatalf("expected entry processed after reconcile, got %+v", stored)
	}
}

func TestReconcileKeepsFailingEntriesPending(t *testing.T) {
	ctx := context.Background()
	ledger := &crashingLedger{LedgerStore: memory.NewLedgerStore(), failures: 2}
	boards := memory.NewLeaderboardStore()
	aggregator := app.NewAggregator(ledger, boards)

	entry := ledgerEntry("entry-1")
	if err := ledger.Insert(ctx, &entry); err != nil {
		t.Fatalf("insert: %v", err)
	}

	count, err := aggregator.ReconcileUnprocessed(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 reconciled with a failing ledger, got %d", count)
	}
	pending, _ := ledger.ListUnprocessed(ctx)
	if len(pending) != 1 {
		t.Fatalf("failing entry must stay pending, got %d", len(pending))
	}
}
