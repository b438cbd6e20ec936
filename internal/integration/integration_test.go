package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"franchise-quiz-service/internal/app"
	"franchise-quiz-service/internal/domain"
	pgstore "franchise-quiz-service/internal/infra/postgres"
	pgmigrations "franchise-quiz-service/internal/infra/postgres/migrations"
	infraredis "franchise-quiz-service/internal/infra/redis"
	"franchise-quiz-service/internal/scoring"
)

func TestSessionLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, pgURL)
	defer db.Close()
	runMigrations(t, ctx, db)
	seedQuiz(t, ctx, db, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	catalog := infraredis.NewCatalogRepository(redisClient, pgstore.NewQuizLoader(pool), 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	ledger := pgstore.NewLedgerStore(db)
	boards := infraredis.NewLeaderboardStore(redisClient)
	service := app.NewGameService(
		sessions,
		catalog,
		scoring.NewScorer(scoring.DefaultConfig()),
		scoring.NewRuleTable(1, scoring.DefaultRules()),
		scoring.DefaultLevels(),
		ledger,
		boards,
	)

	if _, err := service.Join(ctx, "sess-1", "quiz-1", "p1", "Alice"); err != nil {
		t.Fatalf("join p1: %v", err)
	}
	if _, err := service.Join(ctx, "sess-1", "quiz-1", "p2", "Bob"); err != nil {
		t.Fatalf("join p2: %v", err)
	}

	lb, record, err := service.SubmitAnswer(ctx, "sess-1", "p1", domain.AnswerSubmission{
		QuestionID: "q1", OptionID: "o2", TimeTakenSeconds: 0,
	})
	if err != nil {
		t.Fatalf("submit p1: %v", err)
	}
	if !record.IsCorrect || record.ScoreAwarded != 10 {
		t.Fatalf("expected 10 points for an instant correct easy answer, got %+v", record)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].PlayerID != "p1" {
		t.Fatalf("expected p1 leading, got %+v", lb.Entries)
	}
	if _, _, err := service.SubmitAnswer(ctx, "sess-1", "p2", domain.AnswerSubmission{
		QuestionID: "q1", OptionID: "o1", TimeTakenSeconds: 2,
	}); err != nil {
		t.Fatalf("submit p2: %v", err)
	}

	result, err := service.CompleteSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(result.Ranked) != 2 || result.Ranked[0].PlayerID != "p1" {
		t.Fatalf("unexpected ranking: %+v", result.Ranked)
	}

	// 10 in-session points + 100 first place bonus, aggregated into Redis.
	local, err := boards.GetLocal(ctx, "p1")
	if err != nil {
		t.Fatalf("get local: %v", err)
	}
	if local.TotalXp != 110 || local.TotalGamesPlayed != 1 || local.TotalFirstPlaceWins != 1 {
		t.Fatalf("unexpected p1 accumulator: %+v", local)
	}

	franchisee, err := boards.GetFranchisee(ctx, "p1", "fr-1")
	if err != nil {
		t.Fatalf("get franchisee: %v", err)
	}
	if franchisee.TotalXp != 110 {
		t.Fatalf("unexpected franchisee accumulator: %+v", franchisee)
	}

	// Both ledger rows are processed in Postgres.
	var pendingCount int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM xp_ledger_entries WHERE processed = FALSE`).Scan(&pendingCount); err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pendingCount != 0 {
		t.Fatalf("expected no pending entries, got %d", pendingCount)
	}

	count, err := service.ReconcileUnprocessed(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected idle reconcile, got %d", count)
	}

	// Completing the same session twice is rejected; accumulators stay put.
	if _, err := service.CompleteSession(ctx, "sess-1"); err == nil {
		t.Fatal("expected double completion to fail")
	}
	local, _ = boards.GetLocal(ctx, "p1")
	if local.TotalXp != 110 {
		t.Fatalf("double completion changed the accumulator: %+v", local)
	}
}

func openBun(t *testing.T, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func runMigrations(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, db *bun.DB, quiz domain.Quiz) {
	t.Helper()
	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:          "quiz-1",
		FranchiseID: "fr-1",
		Type:        domain.QuizTypeLocal,
		Category:    "menu",
		Questions: []domain.Question{
			{
				ID:         "q1",
				Prompt:     "Which bun is used for the classic burger?",
				Difficulty: domain.DifficultyEasy,
				Options: []domain.Option{
					{ID: "o1", Text: "Sesame", Correct: false},
					{ID: "o2", Text: "Brioche", Correct: true},
					{ID: "o3", Text: "Potato", Correct: false},
				},
				TimeLimitSeconds: 30,
				MaxScore:         50,
			},
		},
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
