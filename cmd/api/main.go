// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stockledger/internal/adapters/db"
	"github.com/ammerola/stockledger/internal/adapters/memory"
	"github.com/ammerola/stockledger/internal/adapters/queue"
	redis_a "github.com/ammerola/stockledger/internal/adapters/redis_adapter"
	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/core/services"
	"github.com/ammerola/stockledger/internal/handlers"
	"github.com/ammerola/stockledger/internal/handlers/middleware"
	"github.com/ammerola/stockledger/internal/pkg/config"
	"github.com/ammerola/stockledger/internal/pkg/logger"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

const requestTimeout = 10 * time.Second

func main() {
	slogger := logger.SetupLogger("info", "json")

	slogger.Info("starting stock ledger api",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.App.Version == "dev" {
		cfg.App.Version = Version
	}

	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("store_driver", cfg.App.StoreDriver),
		slog.String("log_level", cfg.App.LogLevel),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := initializeDependencies(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	go pruneRateLimiter(ctx, deps.rateLimiter, cfg.Security.RateLimitDuration)

	server := setupHTTPServer(cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server", slog.String("address", cfg.GetServerAddress()))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		// in-flight adjustments finish before the store and queue close
		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	database      *db.Database
	redisClient   *redis.Client
	asynqClient   *asynq.Client
	inspector     *asynq.Inspector
	ledger        *services.LedgerService
	stockHandler  *handlers.StockHandler
	healthHandler *handlers.HealthHandler
	rateLimiter   *middleware.RateLimiter
	proxies       []netip.Prefix
}

func (d *dependencies) cleanup() {
	if d.asynqClient != nil {
		d.asynqClient.Close()
	}
	if d.inspector != nil {
		d.inspector.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.database != nil {
		d.database.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	store, err := initStore(ctx, cfg, deps, logger)
	if err != nil {
		deps.cleanup()
		return nil, err
	}

	var cache ports.CacheRepository
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.GetRedisAddress(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		deps.redisClient = client

		// the ledger reads through to the store when the cache is down
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, quantity reads will hit the store",
				slog.String("address", cfg.GetRedisAddress()),
				slog.String("error", err.Error()))
		}
		cache = redis_a.NewCache(client, cfg.Redis.TTL, logger)
	}

	var (
		tasks  ports.TaskPublisher
		queues handlers.QueueInspector
	)
	if cfg.Asynq.Enabled {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Asynq.RedisAddr,
			Password: cfg.Asynq.RedisPassword,
			DB:       cfg.Asynq.RedisDB,
		}
		deps.asynqClient = asynq.NewClient(redisOpt)
		deps.inspector = asynq.NewInspector(redisOpt)
		tasks = queue.NewPublisher(deps.asynqClient, cfg.Asynq.RetryMax, logger)
		queues = queue.NewInspector(deps.inspector)
	}

	deps.ledger = services.NewLedgerService(store, cache, tasks, services.LedgerOptions{
		MaxAttempts:      cfg.Ledger.MaxAttempts,
		RetryBaseDelay:   cfg.Ledger.RetryBaseDelay,
		RetryMaxDelay:    cfg.Ledger.RetryMaxDelay,
		HistoryPageSize:  cfg.Ledger.HistoryPageSize,
		QuantityCacheTTL: cfg.Ledger.QuantityCacheTTL,
		LowStockAlerts:   cfg.Ledger.LowStockAlerts,
		BatchConcurrency: cfg.Ledger.BatchConcurrency,
	}, logger)

	var database ports.Database
	if deps.database != nil {
		database = deps.database
	}

	deps.stockHandler = handlers.NewStockHandler(deps.ledger, cfg.Ledger.MaxBatchSize, logger)
	deps.healthHandler = handlers.NewHealthHandler(database, cache, queues, cfg, logger)

	proxies, err := middleware.ParseTrustedProxies(cfg.Security.TrustedProxies)
	if err != nil {
		deps.cleanup()
		return nil, fmt.Errorf("failed to parse trusted proxies: %w", err)
	}
	deps.proxies = proxies
	deps.rateLimiter = middleware.NewRateLimiter(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration, proxies...)

	logger.Info("all dependencies initialized",
		slog.Bool("cache", cache != nil),
		slog.Bool("queue", tasks != nil))
	return deps, nil
}

func initStore(ctx context.Context, cfg *config.Config, deps *dependencies, logger *slog.Logger) (ports.ItemStore, error) {
	if cfg.App.StoreDriver == "memory" {
		logger.Warn("using in-memory item store, data is lost on restart")
		return memory.NewItemStore(logger), nil
	}

	logger.Info("connecting to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
	)

	dbConfig := &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}

	database, err := db.NewDatabase(ctx, dbConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.database = database

	if cfg.Database.RunMigrations {
		if err := db.RunMigrationsWithRetry(ctx, &db.MigrationConfig{DatabaseURL: dbConfig.URL()}, logger, 3); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return db.NewItemStore(database, cfg.Database.LockTimeout, logger), nil
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	deps.healthHandler.RegisterRoutes(mux)
	deps.stockHandler.RegisterRoutes(mux)

	handler := middleware.Chain(mux,
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logger(logger, deps.proxies...),
		middleware.CORS(cfg.Security.AllowedOrigins),
		middleware.SecureHeaders,
		deps.rateLimiter.Middleware,
		middleware.Timeout(requestTimeout),
	)

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}

// pruneRateLimiter drops idle clients so the limiter's map stays bounded
func pruneRateLimiter(ctx context.Context, rl *middleware.RateLimiter, window time.Duration) {
	if window <= 0 {
		window = time.Minute
	}
	ticker := time.NewTicker(window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Prune(2 * window); n > 0 {
				slog.Debug("rate limiter pruned", slog.Int("clients", n))
			}
		}
	}
}
