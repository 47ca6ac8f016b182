package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"
	pginfra "trivia-quiz-service/internal/infra/postgres"
	pgmigrations "trivia-quiz-service/internal/infra/postgres/migrations"
	redisinfra "trivia-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestResultStoreEndToEnd(t *testing.T) {
	ctx := context.Background()

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisAddr, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migrateDB(t, ctx, pgURL)
	defer db.Close()

	results := pginfra.NewResultStore(db)
	redisClient := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	cache := redisinfra.NewLeaderboardCache(redisClient, results, 5*time.Minute)

	seed := []domain.ResultRecord{
		{Name: "Slow", Score: 10, ElapsedSeconds: 12.4, DeviceID: "d1", CompletedAt: time.Now()},
		{Name: "Fast", Score: 10, ElapsedSeconds: 9.1, DeviceID: "d2", CompletedAt: time.Now()},
		{Name: "Partial", Score: 7, ElapsedSeconds: 3.0, DeviceID: "d3", CompletedAt: time.Now()},
	}
	for _, r := range seed {
		if err := results.Record(ctx, r); err != nil {
			t.Fatalf("record %s: %v", r.Name, err)
		}
	}

	if err := results.Record(ctx, seed[0]); !errors.Is(err, domain.ErrDuplicateParticipant) {
		t.Fatalf("expected ErrDuplicateParticipant, got %v", err)
	}

	top, err := cache.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 3 || top[0].Name != "Fast" || top[1].Name != "Slow" {
		t.Fatalf("unexpected board %+v", top)
	}

	// Second read must come from redis, not postgres.
	if _, err := cache.Top(ctx, 10); err != nil {
		t.Fatalf("cached top: %v", err)
	}

	fastest, err := results.QueryFastestPerfect(ctx, 2)
	if err != nil {
		t.Fatalf("fastest perfect: %v", err)
	}
	if len(fastest) != 2 || fastest[0].Name != "Fast" {
		t.Fatalf("expected Fast first, got %+v", fastest)
	}
}

func TestBankStoreEndToEnd(t *testing.T) {
	ctx := context.Background()

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := migrateDB(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pginfra.NewBankStore(pool)
	q1 := domain.Question{Text: "What is 2 + 2?", Options: []string{"3", "4"}, Answer: "4"}
	q2 := domain.Question{Text: "Capital of France?", Options: []string{"Paris", "Lyon"}, Answer: "Paris"}
	if err := store.Add(ctx, q1); err != nil {
		t.Fatalf("add q1: %v", err)
	}
	if err := store.Add(ctx, q2); err != nil {
		t.Fatalf("add q2: %v", err)
	}

	if err := store.Add(ctx, domain.Question{Text: "Broken?", Options: []string{"a", "b"}, Answer: "c"}); !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Fatalf("expected ErrInvalidQuestion, got %v", err)
	}

	questions, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 2 || questions[0].Text != q1.Text || questions[1].Text != q2.Text {
		t.Fatalf("unexpected bank %+v", questions)
	}

	if err := store.Remove(ctx, 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	questions, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(questions) != 1 || questions[0].Text != q2.Text {
		t.Fatalf("expected only q2 left, got %+v", questions)
	}
}

func migrateDB(t *testing.T, ctx context.Context, pgURL string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(pgURL)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("init migrations: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
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
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}
