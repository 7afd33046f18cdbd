package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/peachytask/peachytask-go/internal/config"
	"github.com/peachytask/peachytask-go/internal/crypto"
	"github.com/peachytask/peachytask-go/internal/handler"
	"github.com/peachytask/peachytask-go/internal/middleware"
	"github.com/peachytask/peachytask-go/internal/repository"
	"github.com/peachytask/peachytask-go/internal/repository/mongodb"
	"github.com/peachytask/peachytask-go/internal/server"
	"github.com/peachytask/peachytask-go/internal/service"
	"github.com/peachytask/peachytask-go/internal/session"
)

// stores is the backend-neutral view of whichever store STORE_DRIVER selects.
type stores struct {
	users  service.UserStore
	tasks  service.TaskStore
	labels service.LabelStore
	pinger handler.Pinger
	close  server.ShutdownFunc
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("store ready", "driver", cfg.StoreDriver)

	tokens, err := crypto.NewTokenService(cfg.TokenConfig())
	if err != nil {
		st.close(ctx)
		return fmt.Errorf("token service: %w", err)
	}
	hasher := crypto.NewHasher(cfg.HashParams())

	authService, err := service.NewAuthService(st.users, hasher, tokens, time.Now)
	if err != nil {
		st.close(ctx)
		return fmt.Errorf("auth service: %w", err)
	}
	taskService := service.NewTaskService(st.tasks, st.labels, time.Now)
	labelService := service.NewLabelService(st.labels, st.tasks, time.Now)

	handlers := server.Handlers{
		Auth:   handler.NewAuthHandler(authService, cfg.CookieSecure),
		Tasks:  handler.NewTaskHandler(taskService),
		Labels: handler.NewLabelHandler(labelService),
		Health: handler.NewHealthHandler(st.pinger, cfg.StoreDriver),
	}
	resolver := session.NewResolver(tokens, st.users, time.Now)
	router := server.NewRouter(handlers, resolver, middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins), logger)

	srv := server.New(router, cfg.Port, cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout, logger)
	srv.OnShutdown(cfg.StoreDriver, st.close)

	logger.Info("starting", "env", cfg.AppEnv, "addr", srv.Addr())
	return srv.Run(ctx)
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.StoreMongoDB:
		store, err := mongodb.Open(openCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:  store.Users,
			tasks:  store.Tasks,
			labels: store.Labels,
			pinger: store,
			close:  store.Close,
		}, nil
	default:
		store, err := repository.Open(openCtx, cfg.StoreDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:  store.Users,
			tasks:  store.Tasks,
			labels: store.Labels,
			pinger: store,
			close:  func(context.Context) error { return store.Close() },
		}, nil
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
