package cli

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"voice-quiz/internal/app"
	"voice-quiz/internal/config"
	"voice-quiz/internal/domain"
	"voice-quiz/internal/infra/memory"
	pgstore "voice-quiz/internal/infra/postgres"
	redisstore "voice-quiz/internal/infra/redis"
	"voice-quiz/internal/infra/sqlite"
	transport "voice-quiz/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string, envPort string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", envPort, "HTTP port (overrides config)")
	return cmd
}

// backends groups the stores picked from config. closers run in reverse on
// shutdown.
type backends struct {
	quizzes  app.QuizRepository
	sessions app.SessionRepository
	scores   app.ScoreStore
	closers  []io.Closer
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			log.Printf("close backend: %v", err)
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
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

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	service := app.NewQuizService(b.sessions, b.quizzes, config.NewSessionConfigLoader(cfg), b.scores)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting voice quiz service on :%s", finalPort)
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

// openBackends prefers redis for caching and live sessions, postgres for
// quizzes and scores, and falls back to local storage when neither is set.
func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, redisClient)
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, closerFunc(func() error { pool.Close(); return nil }))
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	switch {
	case pool != nil:
		loader = pgstore.NewQuizLoader(pool)
	case cfg.Quiz.Dir != "":
		loader = memory.NewFileQuizLoader(cfg.Quiz.Dir)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		b.quizzes = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		b.sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		b.quizzes = memory.NewQuizRepository(loader, quizTTL)
		b.sessions = memory.NewSessionStore()
	}

	switch {
	case cfg.Postgres.URL != "":
		db := pgstore.OpenDB(cfg.Postgres.URL)
		b.closers = append(b.closers, db)
		b.scores = pgstore.NewScoreStore(db)
	case redisClient != nil:
		b.scores = redisstore.NewScoreStore(redisClient, cfg.History.Limit)
	case cfg.History.SQLitePath != "":
		history, err := sqlite.Open(cfg.History.SQLitePath)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, history)
		b.scores = history
	default:
		b.scores = memory.NewScoreStore(cfg.History.Limit)
	}
	return b, nil
}

// sampleQuizzes is served when no quiz source is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm up",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{Key: "a", Text: "3"},
						{Key: "b", Text: "4", Correct: true},
						{Key: "c", Text: "5"},
					},
					Correction: "Two plus two is four.",
					Assets: domain.QuestionAssets{
						Question:   "audio/quiz-1/q1.mp3",
						Correction: "audio/quiz-1/q1-correction.mp3",
					},
				},
			},
		},
	}
}
