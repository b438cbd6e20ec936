package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"franchise-quiz-service/internal/app"
	"franchise-quiz-service/internal/config"
	"franchise-quiz-service/internal/domain"
	"franchise-quiz-service/internal/infra/memory"
	pgstore "franchise-quiz-service/internal/infra/postgres"
	redisstore "franchise-quiz-service/internal/infra/redis"
	"franchise-quiz-service/internal/scoring"
	transport "franchise-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.CatalogRepository
	if redisClient != nil {
		catalog = redisstore.NewCatalogRepository(redisClient, loader, catalogTTL)
	} else {
		catalog = memory.NewCatalogRepository(loader, catalogTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var ledger app.LedgerStore = memory.NewLedgerStore()
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		ledger = pgstore.NewLedgerStore(db)
	}

	var boards app.LeaderboardStore = memory.NewLeaderboardStore()
	if redisClient != nil {
		boards = redisstore.NewLeaderboardStore(redisClient)
	}

	scorer := scoring.NewScorer(cfg.ScoringConfig())
	service := app.NewGameService(sessions, catalog, scorer, cfg.RuleTable(), cfg.LevelTable(), ledger, boards)
	wsHandler := transport.NewWSHandler(service)
	restHandler := transport.NewRESTHandler(service)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.HandleFunc("/ws", wsHandler.ServeWS)
	restHandler.Register(router)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting franchise quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides minimal quiz data for running without Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:          "quiz-1",
			FranchiseID: "franchise-1",
			Type:        domain.QuizTypeLocal,
			Category:    "menu-knowledge",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "Which sauce goes on the signature burger?",
					Options: []domain.Option{
						{ID: "o1", Text: "House aioli", Correct: true},
						{ID: "o2", Text: "Ketchup", Correct: false},
						{ID: "o3", Text: "Ranch", Correct: false},
					},
					Difficulty:       domain.DifficultyEasy,
					TimeLimitSeconds: 30,
					MaxScore:         50,
				},
				{
					ID:     "q2",
					Prompt: "How long does the brioche bun proof?",
					Options: []domain.Option{
						{ID: "o1", Text: "45 minutes", Correct: false},
						{ID: "o2", Text: "90 minutes", Correct: true},
					},
					Difficulty:       domain.DifficultyHard,
					TimeLimitSeconds: 45,
					MaxScore:         60,
				},
			},
		},
	}
}
