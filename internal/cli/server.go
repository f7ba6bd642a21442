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

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"trivia-live-service/internal/app"
	"trivia-live-service/internal/catalog"
	"trivia-live-service/internal/config"
	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/infra/memory"
	infrapg "trivia-live-service/internal/infra/postgres"
	infraredis "trivia-live-service/internal/infra/redis"
	"trivia-live-service/internal/ranking"
	transport "trivia-live-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
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

	// Shared state store: real Redis when configured, otherwise an embedded
	// in-process store with identical semantics.
	redisAddr := cfg.Redis.Addr
	if redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return err
		}
		defer mr.Close()
		redisAddr = mr.Addr()
		log.Printf("no redis configured, using embedded state store at %s", redisAddr)
	}
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     redisAddr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	roundTTL := config.TTLDuration(cfg.Game.RoundTTL, time.Hour)
	stateStore := infraredis.NewStateStore(redisClient, roundTTL)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader catalog.Loader = catalog.NewStaticLoader(sampleQuestions())
	var responseStore app.ResponseStore = memory.NewResponseStore()
	if pool != nil {
		loader = infrapg.NewCatalogLoader(pool)

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		responseStore = infrapg.NewStore(db)
	}

	catalogTTL := config.TTLDuration(cfg.Game.CatalogTTL, 10*time.Minute)
	questions := catalog.New(loader, catalogTTL)

	engine := ranking.NewEngine(cfg.Game.MaxRoundDurationMs)
	hub := transport.NewHub()
	service := app.NewGameService(stateStore, stateStore, responseStore, questions, engine, hub)
	wsHandler := transport.NewWSHandler(service, hub, cfg.Server.IdleNoticeOnConnect)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

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

// sampleQuestions provides a minimal question bank for running without Postgres.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:     1,
			Prompt: "Which planet is closest to the sun?",
			Options: []domain.Option{
				{Key: "A", Text: "Venus"},
				{Key: "B", Text: "Mercury"},
				{Key: "C", Text: "Mars"},
				{Key: "D", Text: "Earth"},
			},
			Correct: "B",
		},
		{
			ID:     2,
			Prompt: "What year did the first person walk on the moon?",
			Options: []domain.Option{
				{Key: "A", Text: "1967"},
				{Key: "B", Text: "1971"},
				{Key: "C", Text: "1969"},
				{Key: "D", Text: "1973"},
			},
			Correct: "C",
		},
	}
}
