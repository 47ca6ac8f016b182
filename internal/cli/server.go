package cli

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/bank"
	"trivia-quiz-service/internal/infra/memory"
	pginfra "trivia-quiz-service/internal/infra/postgres"
	redisinfra "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/infra/sqlite"
	"trivia-quiz-service/internal/logging"
	"trivia-quiz-service/internal/metrics"
	transport "trivia-quiz-service/internal/transport/http"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	log := logging.New(cfg.Log.Level)

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

	var pool *pgxpool.Pool
	if cfg.Bank.Backend == "postgres" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Question bank: a load/validation failure here halts quiz
	// availability instead of serving a partial set.
	var bankStore bank.Store
	switch cfg.Bank.Backend {
	case "file":
		bankStore = bank.NewFileStore(cfg.Bank.Path)
	case "postgres":
		bankStore = pginfra.NewBankStore(pool)
	default:
		bankStore = bank.NewMemoryStore(sampleQuestions())
	}
	questions, err := bankStore.Load(ctx)
	if err != nil {
		return err
	}
	log.WithField("questions", len(questions)).Info("question bank loaded")

	var results app.ResultStore
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		results = pginfra.NewResultStore(db)
	} else {
		path := cfg.SQLite.Path
		if path == "" {
			path = "quiz.db"
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		results = store
	}

	leaderboardTTL := config.TTLDuration(cfg.Leaderboard.TTL, 10*time.Second)
	var top app.LeaderboardProvider
	if redisClient != nil {
		top = redisinfra.NewLeaderboardCache(redisClient, results, leaderboardTTL)
	} else {
		top = memory.NewLeaderboardCache(results, leaderboardTTL)
	}

	var devices app.DeviceRegistry
	var auditor transport.DeviceAuditor
	if redisClient != nil {
		registry := redisinfra.NewDeviceRegistry(redisClient, 24*time.Hour)
		devices = registry
		auditor = registry
	}

	settings := app.Settings{
		QuestionTime: config.TTLDuration(cfg.Quiz.QuestionTime, 30*time.Second),
		Points:       cfg.Quiz.Points,
	}
	sessionStore := memory.NewSessionStore(settings)
	service := app.NewQuizService(sessionStore, bankStore, results, top, devices, settings)

	cookieKey := os.Getenv("SESSION_KEY")
	if cookieKey == "" {
		cookieKey = uuid.NewString()
	}
	cookies := sessions.NewCookieStore([]byte(cookieKey))

	wsHandler := transport.NewWSHandler(service, log, cookies, cfg.Leaderboard.Size)
	boardHandler := transport.NewLeaderboardHandler(service, log, cfg.Leaderboard.Size)
	adminHandler := transport.NewAdminHandler(bankStore, auditor, log, cfg.Admin.Token)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/leaderboard", boardHandler.ServeTop)
	mux.HandleFunc("/leaderboard/fastest", boardHandler.ServeFastestPerfect)
	adminHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions backs the demo bank used when no backend is configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Text:    "What is 2 + 2?",
			Options: []string{"3", "4", "5"},
			Answer:  "4",
		},
		{
			Text:    "Which planet is known as the Red Planet?",
			Options: []string{"Venus", "Mars", "Jupiter", "Saturn"},
			Answer:  "Mars",
			Info:    "Iron oxide dust gives Mars its color.",
		},
		{
			Text:    "How many players are on a cricket team?",
			Options: []string{"9", "10", "11", "12"},
			Answer:  "11",
		},
	}
}
