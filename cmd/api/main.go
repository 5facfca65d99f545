package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/bookshelf/internal/app/migrate"
	httpx "github.com/splax/bookshelf/internal/http"
	"github.com/splax/bookshelf/internal/repository/postgres"
	"github.com/splax/bookshelf/internal/service/auth"
	"github.com/splax/bookshelf/internal/service/catalog"
	"github.com/splax/bookshelf/pkg/config"
	jwtpkg "github.com/splax/bookshelf/pkg/jwt"
	"github.com/splax/bookshelf/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		runner, err := migrate.New(cfg.DatabaseURL, cfg.MigrationsDir, log)
		if err != nil {
			log.Error("failed to configure migrations", "error", err)
			os.Exit(1)
		}
		if err := runner.Ensure(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	issuer, err := jwtpkg.NewIssuer(cfg.JWTSecret, jwtpkg.WithIssuerName(cfg.JWTIssuer))
	if err != nil {
		log.Error("failed to configure token issuer", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	authSvc := auth.New(repo, issuer, cfg.AccessTokenTTL, log, auth.WithHashConcurrency(cfg.HashConcurrency))
	authorSvc := catalog.NewAuthorService(repo, log)
	bookSvc := catalog.NewBookService(repo, log)

	if path := strings.TrimSpace(cfg.SeedUsersPath); path != "" {
		if err := seedUsers(ctx, authSvc, path, log); err != nil {
			log.Error("user seeding failed", "error", err, "path", path)
			os.Exit(1)
		}
	}

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	// Validate already rejected malformed entries.
	trustedProxies, _ := cfg.TrustedProxyPrefixes()

	router := httpx.NewRouter(httpx.Deps{
		Logger:   log,
		Auth:     authSvc,
		Authors:  authorSvc,
		Books:    bookSvc,
		Limiter:  limiter,
		Metrics:  httpx.NewMetrics(),
		DBHealth: pool.Ping,

		TrustedProxies: trustedProxies,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func seedUsers(ctx context.Context, svc *auth.Service, path string, log *slog.Logger) error {
	users, err := auth.LoadSeedFile(path)
	if err != nil {
		return err
	}
	created, err := svc.Seed(ctx, users)
	if err != nil {
		return err
	}
	log.Info("seed users processed", "path", path, "total", len(users), "created", created)
	return nil
}
