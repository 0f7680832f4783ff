package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yukikurage/task-tracker-api/internal/auth"
	"github.com/yukikurage/task-tracker-api/internal/cache"
	"github.com/yukikurage/task-tracker-api/internal/config"
	"github.com/yukikurage/task-tracker-api/internal/database"
	"github.com/yukikurage/task-tracker-api/internal/handlers"
	"github.com/yukikurage/task-tracker-api/internal/live"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"github.com/yukikurage/task-tracker-api/internal/router"
	"github.com/yukikurage/task-tracker-api/internal/services"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "Task Tracker API server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := serveCmd()
	rootCmd.RunE = serve.RunE
	rootCmd.Flags().AddFlagSet(serve.Flags())

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetString("port"); port != "" {
				cfg.Port = port
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")

	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			return database.MigrateDatabase(db)
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func serve(cfg *config.Config) error {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	if err := database.MigrateDatabase(db); err != nil {
		return err
	}

	// Redis is optional; without it revocation is a no-op and events stay local
	var redisClient *cache.Client
	if cfg.RedisEnabled() {
		redisClient = cache.New(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
		if err := redisClient.Ping(context.Background()); err != nil {
			slog.Warn("redis unavailable at startup, events stay local until it is reachable", "addr", cfg.RedisAddr(), "error", err)
		}
	}

	policies, err := services.ParsePolicies(cfg.EditPolicy, cfg.StatusPolicy)
	if err != nil {
		return err
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	revocations := auth.NewRedisRevocationStore(redisClient)

	hub := live.NewHub()
	var notifier services.Notifier = hub
	var relay *live.RedisRelay
	if redisClient != nil {
		relay = live.NewRedisRelay(hub, redisClient)
		notifier = relay
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	taskService := services.NewTaskService(taskRepo, userRepo, notifier, policies)
	authService := services.NewAuthService(userRepo)

	r := gin.New()
	router.Register(r, cfg, router.Deps{
		Auth:        handlers.NewAuthHandler(authService, taskService, issuer, revocations, cfg.IsProduction()),
		Tasks:       handlers.NewTaskHandler(taskService),
		Live:        live.NewHandler(hub, issuer, revocations, cfg.ClientURL),
		Hub:         hub,
		Verifier:    issuer,
		Revocations: revocations,
	})

	liveCtx, stopLive := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(liveCtx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
			"live": func(ctx context.Context) error {
				stopLive()
				err := g.Wait()
				hub.Wait()
				return err
			},
			"redis": func(ctx context.Context) error {
				return redisClient.Close()
			},
			"database": func(ctx context.Context) error {
				return closeDatabase(db)
			},
		},
	)

	exitCode := <-wait
	slog.Info("server exited", "code", exitCode)
	os.Exit(exitCode)
	return nil
}

func closeDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
