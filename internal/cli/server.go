package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"party-trivia-service/internal/app"
	"party-trivia-service/internal/config"
	"party-trivia-service/internal/domain"
	"party-trivia-service/internal/infra/memory"
	pgsource "party-trivia-service/internal/infra/postgres"
	redisinfra "party-trivia-service/internal/infra/redis"
	transport "party-trivia-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia host server",
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
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	demo := memory.NewStaticQuestionSource(sampleQuestions())
	var questions app.QuestionSource = demo
	var revealer app.AnswerRevealer = demo
	if pool != nil {
		source := pgsource.NewQuestionSource(pool, cfg.Game.BatchSize)
		questions = source
		revealer = source
	}

	revealTTL := config.TTLDuration(cfg.Reveal.TTL, time.Hour)
	if redisClient != nil {
		revealer = redisinfra.NewRevealCache(redisClient, revealer, revealTTL)
	} else {
		revealer = memory.NewRevealCache(revealer, revealTTL)
	}

	var store app.SessionStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		store = memory.NewSessionStore()
	}

	service := app.NewGameService(store, questions, revealer)
	wsHandler := transport.NewWSHandler(service)
	qrHandler := transport.NewQRHandler(cfg.Server.BaseURL)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/join-qr", qrHandler.ServeQR)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
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

// sampleQuestions provides a small demo batch; swap in the Postgres source
// for real content.
func sampleQuestions() ([]domain.Question, map[string]domain.RevealedAnswer) {
	questions := []domain.Question{
		{
			ID:       "q1",
			Prompt:   "A town elected a dog as honorary mayor. Did it happen?",
			Options:  []string{"It happened", "It never happened", "It was a cat"},
			Category: "politics",
		},
		{
			ID:       "q2",
			Prompt:   "A rain of small fish fell over a rural village. Did it happen?",
			Options:  []string{"It was frogs", "It happened", "It never happened"},
			Category: "weather",
		},
	}
	answers := map[string]domain.RevealedAnswer{
		"q1": {CorrectText: "It happened", Explanation: "The dog held the post for three terms."},
		"q2": {CorrectText: "It happened", Explanation: "Waterspouts can carry fish inland."},
	}
	return questions, answers
}
