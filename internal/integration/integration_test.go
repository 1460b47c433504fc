package integration

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"party-trivia-service/internal/app"
	"party-trivia-service/internal/domain"
	pgsource "party-trivia-service/internal/infra/postgres"
	pgmigrations "party-trivia-service/internal/infra/postgres/migrations"
	infraredis "party-trivia-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestGameRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	source := pgsource.NewQuestionSource(pool, 2)
	revealer := infraredis.NewRevealCache(redisClient, source, 5*time.Minute)
	store := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewGameServiceWithRand(store, source, revealer, rand.New(rand.NewSource(1)))

	snap, err := service.StartSession(ctx, "device-1", []string{"Ana", "Bruno"})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if snap.TotalQuestions != 2 {
		t.Fatalf("expected a batch of 2, got %d", snap.TotalQuestions)
	}

	// Everyone picks the correct option; the batch is shuffled so we look
	// the index up by text.
	correct := correctOptionIndex(t, snap.Question)
	for snap.Phase == domain.PhaseWaitingTurn {
		if snap, err = service.BeginTurn(ctx, "device-1"); err != nil {
			t.Fatalf("begin turn: %v", err)
		}
		if snap, err = service.SelectOption(ctx, "device-1", correct); err != nil {
			t.Fatalf("select option: %v", err)
		}
		if snap, err = service.ConfirmVote(ctx, "device-1"); err != nil {
			t.Fatalf("confirm vote: %v", err)
		}
	}

	snap, err = service.RevealAnswer(ctx, "device-1")
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if snap.Answer == nil || snap.Answer.Explanation == "" {
		t.Fatalf("expected explanation from the database, got %+v", snap.Answer)
	}
	for _, p := range snap.Participants {
		if p.Score != 1 || p.Streak != 1 {
			t.Fatalf("expected everyone to score, got %+v", p)
		}
	}

	// A second reveal of the same question should come from the cache.
	if _, err := revealer.Reveal(ctx, snap.Question.ID); err != nil {
		t.Fatalf("cached reveal: %v", err)
	}

	if snap, err = service.NextQuestion(ctx, "device-1"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if snap.QuestionNumber != 2 {
		t.Fatalf("expected second question, got %d", snap.QuestionNumber)
	}

	// A fresh service resuming from Redis sees the same progress.
	reloaded := app.NewGameServiceWithRand(store, source, revealer, rand.New(rand.NewSource(2)))
	resumed, err := reloaded.ResumeSession(ctx, "device-1")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.QuestionNumber != 2 || len(resumed.Participants) != 2 {
		t.Fatalf("expected resumed progress, got %+v", resumed)
	}
	for _, p := range resumed.Participants {
		if p.Score != 1 {
			t.Fatalf("expected scores to survive the reload, got %+v", p)
		}
	}
}

func correctOptionIndex(t *testing.T, question *domain.Question) int {
	t.Helper()
	if question == nil {
		t.Fatalf("no current question in snapshot")
	}
	for i, opt := range question.Options {
		if opt == "It happened" {
			return i
		}
	}
	t.Fatalf("correct option missing from %v", question.Options)
	return -1
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
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
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
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

func seedQuestions(t *testing.T, ctx context.Context, dsn string) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	rows := [][]string{
		{"q1", "A town elected a dog as honorary mayor. Did it happen?", "It happened", "It never happened", "It was a cat", "The dog held the post for three terms."},
		{"q2", "A rain of small fish fell over a rural village. Did it happen?", "It happened", "It never happened", "It was frogs", "Waterspouts can carry fish inland."},
	}
	for _, row := range rows {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO questions (id, prompt, correct_text, alt_1, alt_2, explanation) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
			row[0], row[1], row[2], row[3], row[4], row[5]); err != nil {
			t.Fatalf("insert question %s: %v", row[0], err)
		}
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
