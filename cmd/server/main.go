// ============================================================================
// smallurl server
// ============================================================================
// Startup order: config -> logger -> store -> codec -> service -> HTTP.
// Shutdown drains in-flight requests, then closes the store.
// ============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"smallurl/internal/codec"
	"smallurl/internal/config"
	"smallurl/internal/domain"
	httpHandler "smallurl/internal/handler/http"
	"smallurl/internal/repository"
	"smallurl/internal/repository/memory"
	"smallurl/internal/repository/postgres"
	redisRepo "smallurl/internal/repository/redis"
	"smallurl/internal/service"
	"smallurl/pkg/logger"
)

func main() {
	// ========================================================================
	// STEP 1: CONFIGURATION
	// ========================================================================
	// Read once; the codec salt and min length are fixed for the life of the
	// process.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// ========================================================================
	// STEP 2: STRUCTURED LOGGER
	// ========================================================================
	appLogger := logger.New(cfg.App.LogLevel)
	appLogger.Info("Starting smallurl",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
	)

	// ========================================================================
	// STEP 3: MAPPING STORE
	// ========================================================================
	ctx := context.Background()
	repo, closeStore, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// ========================================================================
	// STEP 4: CODEC, SERVICE, HANDLER
	// ========================================================================
	shortCodes, err := codec.New(cfg.Codec.ToCodec())
	if err != nil {
		appLogger.Error("Invalid codec configuration", "error", err)
		os.Exit(1)
	}

	urlService := service.NewURLService(repo, shortCodes, domain.RealClock{}, appLogger)
	handler := httpHandler.NewHandler(urlService, appLogger, cfg.Server.PublicBaseURL)

	// ========================================================================
	// STEP 5: ROUTES AND MIDDLEWARE
	// ========================================================================
	// Outermost first: Recovery -> Logging -> RequestID -> router.
	// Metrics run inside the router so they see the matched route.
	router := httpHandler.NewRouter(handler, cfg.App.EnableMetrics)
	finalHandler := httpHandler.Chain(
		httpHandler.RecoveryMiddleware(appLogger.Logger),
		httpHandler.LoggingMiddleware(appLogger.Logger),
		httpHandler.RequestIDMiddleware,
	)(router)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// ========================================================================
	// STEP 6: SERVE UNTIL SIGNALLED
	// ========================================================================
	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		appLogger.Error("Server failed", "error", err)
		closeStore()
		os.Exit(1)
	case sig := <-quit:
		appLogger.Info("Shutting down server...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited gracefully")
}

// openStore builds the configured mapping repository and returns a function
// releasing its connections.
func openStore(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (repository.MappingRepository, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.InitDB(
			ctx,
			cfg.Database.DatabaseDSN(),
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		appLogger.Info("Database connection established")
		return postgres.NewMappingRepository(db), db.Close, nil

	case config.BackendRedis:
		client, err := redisRepo.InitRedis(ctx, cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		appLogger.Info("Redis connection established", "addr", cfg.Redis.RedisAddr())
		return redisRepo.NewMappingRepository(client), func() { _ = client.Close() }, nil

	case config.BackendMemory:
		appLogger.Warn("Using in-memory store; mappings are lost on restart")
		return memory.NewMappingRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
