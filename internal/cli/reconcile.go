package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"franchise-quiz-service/internal/app"
	"franchise-quiz-service/internal/config"
	pgstore "franchise-quiz-service/internal/infra/postgres"
	redisstore "franchise-quiz-service/internal/infra/redis"
)

// NewReconcileCmd replays all pending ledger entries into the leaderboards.
// Useful after an aggregation outage; safe to run repeatedly.
func NewReconcileCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Replay unprocessed XP ledger entries into the leaderboards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), *configPath)
		},
	}
}

func runReconcile(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	aggregator := app.NewAggregator(pgstore.NewLedgerStore(db), redisstore.NewLeaderboardStore(redisClient))
	count, err := aggregator.ReconcileUnprocessed(ctx)
	if err != nil {
		return err
	}
	log.Printf("reconciled %d ledger entries", count)
	return nil
}
