package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	httpAdapter "github.com/vkarpenko/slotbot/internal/adapters/http"
	"github.com/vkarpenko/slotbot/internal/adapters/telegram"
	"github.com/vkarpenko/slotbot/internal/config"
	"github.com/vkarpenko/slotbot/internal/engine"
	"github.com/vkarpenko/slotbot/internal/logging"
	"github.com/vkarpenko/slotbot/internal/observability"
	"github.com/vkarpenko/slotbot/pkg/adapters/backend"
	"github.com/vkarpenko/slotbot/pkg/adapters/file"
	"github.com/vkarpenko/slotbot/pkg/adapters/memory"
	redisadapter "github.com/vkarpenko/slotbot/pkg/adapters/redis"
	"github.com/vkarpenko/slotbot/pkg/persistence/middleware"
	"github.com/vkarpenko/slotbot/pkg/ports"
	"github.com/vkarpenko/slotbot/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long:  `Starts the slotbot webhook server, handling Telegram updates and driving conversational sessions against the backend service.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(cfgPath)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}

		logger := logging.New(parseLevel(cfg.LogLevel))

		var store ports.SessionStore
		var ledger ports.LedgerStore
		var sessionOpts []session.Option

		if cfg.Redis.Addr != "" {
			rdb := goredis.NewClient(&goredis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			store = redisadapter.NewFromClient(rdb,
				redisadapter.WithPrefix(cfg.Redis.Prefix+"session:"),
				redisadapter.WithTTL(cfg.Redis.SessionTTL),
			)
			ledger = redisadapter.NewLedger(rdb, cfg.Redis.Prefix+"ledger:")
			if cfg.Redis.Locking {
				locker := redisadapter.NewLocker(rdb, cfg.Redis.Prefix+"lock:")
				sessionOpts = append(sessionOpts, session.WithLocker(locker))
			}
			logger.Info("using redis session store", "addr", cfg.Redis.Addr)
		} else if cfg.SessionDir != "" {
			store = file.New(cfg.SessionDir)
			ledger = memory.NewLedger()
			logger.Info("using file session store", "dir", cfg.SessionDir)
		} else {
			store = memory.NewStore()
			ledger = memory.NewLedger()
			logger.Info("using in-memory session store")
		}

		var middlewares []middleware.Middleware
		if len(cfg.Security.MaskKeys) > 0 {
			middlewares = append(middlewares, middleware.NewPIIMiddleware(cfg.Security.MaskKeys))
		}
		activeKey, fallbackKeys, err := cfg.Security.EncryptionKeys()
		if err != nil {
			fmt.Printf("Error in security configuration: %v\n", err)
			os.Exit(1)
		}
		if activeKey != nil {
			middlewares = append(middlewares, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
				ActiveKey:    activeKey,
				FallbackKeys: fallbackKeys,
			}))
		}
		store = middleware.Wrap(store, middlewares...)

		sessionOpts = append(sessionOpts, session.WithLogger(logger))
		sessions := session.NewManager(store, sessionOpts...)

		gateway := backend.New(cfg.Backend.BaseURL, backend.WithLogger(logger))
		transport := telegram.New(cfg.Telegram.Token, telegram.WithLogger(logger))
		metrics := observability.New()

		eng := engine.New(sessions, ledger, transport, gateway,
			engine.WithLogger(logger),
			engine.WithMetrics(metrics),
		)

		handler := httpAdapter.NewHandler(eng,
			httpAdapter.WithSecret(cfg.Telegram.WebhookSecret),
			httpAdapter.WithCallbackAnswerer(transport),
			httpAdapter.WithMetricsHandler(metrics.Handler()),
			httpAdapter.WithLogger(logger),
		)

		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting slotbot server", "addr", srv.Addr, "backend", cfg.Backend.BaseURL)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			logger.Error("server error", "err", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("starting shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("error killing server", "err", err)
				}
			}
			logger.Info("slotbot server stopped")
		}
	},
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
