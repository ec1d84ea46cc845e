package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/showtime-allocator/internal/config"
	"github.com/iliyamo/showtime-allocator/internal/database"
	"github.com/iliyamo/showtime-allocator/internal/engine"
	"github.com/iliyamo/showtime-allocator/internal/handler"
	"github.com/iliyamo/showtime-allocator/internal/memstore"
	"github.com/iliyamo/showtime-allocator/internal/model"
	"github.com/iliyamo/showtime-allocator/internal/queue"
	"github.com/iliyamo/showtime-allocator/internal/repository"
	"github.com/iliyamo/showtime-allocator/internal/router"
)

const shutdownTimeout = 10 * time.Second

// seededStore is an engine store that can also insert the configured rooms.
type seededStore interface {
	engine.Store
	EnsureRooms(ctx context.Context, rooms []model.Room) error
}

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	booking := config.LoadBookingConfig()
	queueCfg := config.LoadQueueConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}
	if err := store.EnsureRooms(ctx, booking.Rooms); err != nil {
		logger.Error("seed rooms", "err", err)
		os.Exit(1)
	}

	eng, err := engine.New(store, booking.Limits)
	if err != nil {
		logger.Error("build engine", "err", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn("redis unavailable; caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var events handler.EventPublisher
	if queueCfg.URL != "" {
		pub := queue.NewPublisher(queueCfg.URL, queueCfg.Queue, logger)
		defer pub.Close()
		events = pub
		if queueCfg.ConsumerEnabled {
			consumer := queue.NewAuditConsumer(queueCfg.URL, queueCfg.Queue, queueCfg.AuditLogDir, logger)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", "err", err)
				}
			}()
		}
	} else {
		logger.Info("RABBITMQ_URL not set; domain events disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "remote_ip", v.RemoteIP}
			if v.Error != nil {
				logger.Warn("request", append(attrs, "err", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	}))

	deps := router.Deps{
		Handler:   handler.NewHandler(eng, events, logger),
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
	}
	if db != nil {
		deps.DB = db
	}
	router.RegisterRoutes(e, deps)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- e.Start(addr)
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown", "err", err)
	}
	logger.Info("server stopped")
}

// newLogger returns a JSON logger in production and a text logger
// otherwise.
func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// openStore selects the MySQL or in-memory store.  db is nil for the
// in-memory store.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (seededStore, *sql.DB, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nil, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return repository.New(db), db, nil
}
