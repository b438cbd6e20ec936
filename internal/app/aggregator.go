package app

import (
	"context"
	"fmt"
	"log"

	"franchise-quiz-service/internal/domain"
)

// LeaderboardStore holds the three accumulator scopes plus the per-player
// cumulative stat counters. ApplyEntry must be atomic and idempotent per
// entry: it increments every affected accumulator exactly once for a given
// entry ID no matter how many times it is called, and reports whether this
// call did the increments.
type LeaderboardStore interface {
	ApplyEntry(ctx context.Context, entry domain.XpLedgerEntry) (bool, error)
	GetLocal(ctx context.Context, playerID string) (domain.LeaderboardAccumulator, error)
	GetNational(ctx context.Context, playerID string) (domain.LeaderboardAccumulator, error)
	GetFranchisee(ctx context.Context, playerID, franchiseID string) (domain.LeaderboardAccumulator, error)
	GetPlayerStat(ctx context.Context, playerID string) (domain.PlayerCumulativeStat, error)
}

// Aggregator consumes finalized ledger entries exactly once. The exactly-once
// contract is split across two steps: the store's idempotent ApplyEntry, then
// the ledger's processed CAS. A crash between the two leaves processed=false;
// ReconcileUnprocessed replays the entry, ApplyEntry recognizes it and skips
// the increments, and the CAS then lands.
type Aggregator struct {
	ledger LedgerStore
	boards LeaderboardStore
}

func NewAggregator(ledger LedgerStore, boards LeaderboardStore) *Aggregator {
	return &Aggregator{ledger: ledger, boards: boards}
}

// Apply pushes one ledger entry into the Local, National (national quizzes
// only) and Franchisee accumulators and the cumulative stat record, then
// flips the processed flag. Calling it on an already-processed entry is a
// no-op.
func (a *Aggregator) Apply(ctx context.Context, entry domain.XpLedgerEntry) error {
	if entry.Processed {
		return nil
	}
	if _, err := a.boards.ApplyEntry(ctx, entry); err != nil {
		return fmt.Errorf("apply accumulators for entry %s: %w", entry.ID, err)
	}
	if _, err := a.ledger.MarkProcessed(ctx, entry.ID); err != nil {
		return fmt.Errorf("mark entry %s processed: %w", entry.ID, err)
	}
	return nil
}

// ReconcileUnprocessed replays every pending ledger entry and returns how
// many were aggregated. Safe to call repeatedly; entries whose store writes
// keep failing stay pending and are logged.
func (a *Aggregator) ReconcileUnprocessed(ctx context.Context) (int, error) {
	entries, err := a.ledger.ListUnprocessed(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unprocessed entries: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if err := a.Apply(ctx, entry); err != nil {
			log.Printf("reconcile: entry %s left pending: %v", entry.ID, err)
			continue
		}
		count++
	}
	return count, nil
}
