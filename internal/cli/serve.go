package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-quiz/internal/config"
	"trivia-quiz/internal/infra/memory"
	infraredis "trivia-quiz/internal/infra/redis"
	"trivia-quiz/internal/logger"
	"trivia-quiz/internal/normalize"
	"trivia-quiz/internal/session"
	"trivia-quiz/internal/source/opentdb"
	pgsource "trivia-quiz/internal/source/postgres"
	transport "trivia-quiz/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the websocket server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve quiz sessions over websockets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath, *port)
		},
	}
}

func runServe(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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

	src, cleanup, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Cache.TTL != "" {
		cacheTTL := config.TTLDuration(cfg.Cache.TTL, 5*time.Minute)
		if redisClient != nil {
			src = infraredis.NewBatchCache(redisClient, src, cacheTTL)
		} else {
			src = memory.NewBatchCache(src, cacheTTL)
		}
	}

	var registry session.Registry
	if redisClient != nil {
		registry = infraredis.NewRegistry(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		registry = memory.NewRegistry()
	}

	quizCfg := session.Config{
		Count:     cfg.Quiz.Count,
		AllowSkip: cfg.Quiz.AllowSkip,
	}
	norm := normalize.New(nil)
	factory := func(id string) *session.Session {
		s := session.New(id, quizCfg, src, norm, log)
		go func() { _ = s.LoadInitial(context.Background()) }()
		return s
	}
	wsHandler := transport.NewWSHandler(registry, factory, log)

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
		log.Info().Str("port", finalPort).Msg("starting trivia quiz server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildSource picks the question source: the local Postgres bank when
// configured, the upstream trivia API otherwise.
func buildSource(ctx context.Context, cfg config.Config) (session.Source, func(), error) {
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return pgsource.NewBank(pool, cfg.Quiz.Category), pool.Close, nil
	}

	timeout := config.TTLDuration(cfg.Source.Timeout, 15*time.Second)
	client := opentdb.NewClient(cfg.Source.Endpoint, cfg.Quiz.Category, &http.Client{Timeout: timeout})
	return client, func() {}, nil
}
