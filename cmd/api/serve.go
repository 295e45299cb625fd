package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justsurfingit/jobboard-gateway/internal/cache"
	"github.com/justsurfingit/jobboard-gateway/internal/config"
	"github.com/justsurfingit/jobboard-gateway/internal/database"
	"github.com/justsurfingit/jobboard-gateway/internal/dtos"
	"github.com/justsurfingit/jobboard-gateway/internal/handlers"
	"github.com/justsurfingit/jobboard-gateway/internal/logging"
	"github.com/justsurfingit/jobboard-gateway/internal/proxy"
	"github.com/justsurfingit/jobboard-gateway/internal/services"
	"github.com/justsurfingit/jobboard-gateway/internal/session"
	"github.com/justsurfingit/jobboard-gateway/internal/storage"
	"github.com/justsurfingit/jobboard-gateway/internal/telemetry"
	"github.com/justsurfingit/jobboard-gateway/internal/upstream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}

	// 2. Logging & Tracing
	logger, err := logging.New(cfg.Production(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// 3. Session Store
	serializer := storage.NewSerializer(storage.NewCipher(cfg.StoragePassphrase))
	if cfg.StoragePassphrase == "" {
		logger.Warn("STORAGE_PASSPHRASE not set, using the built-in passphrase")
	}
	store, err := newSessionStore(ctx, cfg, serializer, logger)
	if err != nil {
		return err
	}

	// 4. Job Cache
	jobCache, err := newJobCache(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// 5. Initialize Core Services (Dependencies)
	client, err := upstream.NewClient(cfg.APIBaseURL, cfg.UpstreamTimeout)
	if err != nil {
		return err
	}
	client.Retries = cfg.UpstreamRetries
	apiProxy := proxy.New(client, logger)
	authService := services.NewAuthService(apiProxy)
	userService := services.NewUserService(apiProxy)
	jobService := services.NewJobService(apiProxy, jobCache, logger)

	// 6. Initialize Handlers
	dtos.UseJSONFieldNames()
	sessionHandler := handlers.NewSessionHandler(jobService)
	storeHandler := handlers.NewStoreHandler(authService, userService, jobService, logger)
	pageHandler, err := handlers.NewPageHandler(cfg.StaticDir)
	if err != nil {
		return err
	}

	// 7. Setup Router & CORS
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logging.Requests(logger), logging.Recovery(logger))
	r.Use(cors.New(corsConfig(cfg)))
	r.Use(session.Middleware(store, logger))

	// 8. Define Routes
	r.GET("/api/v1/health", handlers.HealthCheck)
	apiProxy.Register(r, proxy.Routes())
	sessionHandler.Register(r)
	storeHandler.Register(r)
	pageHandler.Register(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", srv.Addr), zap.String("session_driver", cfg.SessionDriver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newSessionStore(ctx context.Context, cfg config.Config, serializer *storage.Serializer, logger *zap.Logger) (session.Store, error) {
	opts := session.CookieOptions{
		Name:   cfg.SessionCookie,
		MaxAge: cfg.SessionTTL,
		Secure: cfg.Production(),
	}

	switch cfg.SessionDriver {
	case config.DriverPostgres:
		db, err := database.Connect(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		backend := session.NewGormBackend(db)
		session.StartSweeper(ctx, backend, cfg.SessionSweepEvery, cfg.SessionTTL, logger)
		return session.NewServerStore(opts, backend, serializer), nil
	case config.DriverMemory:
		backend := session.NewMemoryBackend()
		session.StartSweeper(ctx, backend, cfg.SessionSweepEvery, cfg.SessionTTL, logger)
		return session.NewServerStore(opts, backend, serializer), nil
	default:
		return session.NewCookieStore(opts, serializer), nil
	}
}

func newJobCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.JobCache, error) {
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		go func() {
			<-ctx.Done()
			_ = rc.Close()
		}()
		logger.Info("Job cache backed by redis")
		return rc, nil
	}
	mem := cache.NewMemory(cfg.CacheTTL)
	mem.StartPruner(ctx, cfg.CacheTTL, logger)
	return mem, nil
}

// corsConfig allows every origin in development. With explicit origins the
// session cookie is allowed through as well.
func corsConfig(cfg config.Config) cors.Config {
	c := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	return c
}
