// Command authgate starts the authentication/session HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/authgate/internal/cache"
	"github.com/and161185/authgate/internal/config"
	pkgcrypto "github.com/and161185/authgate/internal/crypto"
	"github.com/and161185/authgate/internal/limiter"
	"github.com/and161185/authgate/internal/migrate"
	"github.com/and161185/authgate/internal/oauth"
	"github.com/and161185/authgate/internal/repository/postgres"
	httpserver "github.com/and161185/authgate/internal/server/http"
	"github.com/and161185/authgate/internal/service"
	"github.com/and161185/authgate/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations and starts the HTTP server.
// Every client (pool, redis, services) is constructed here and closed on
// shutdown; nothing lives as a package-level singleton.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.ListenAddr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	// Redis client shared by the session cache and both rate-limit gates
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()

	sessions, err := cache.NewRedis(ctx, rdb)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	ledger := postgres.NewRefreshTokenRepo(db)
	providerTokens := postgres.NewProviderTokenRepo(db)

	// Crypto
	encKey, err := cfg.EncryptionKey()
	if err != nil {
		logger.Fatal("encryption key", zap.Error(err))
	}
	cipher, err := pkgcrypto.NewTokenCipher(encKey)
	if err != nil {
		logger.Fatal("token cipher", zap.Error(err))
	}
	signer, err := token.NewSigner([]byte(cfg.JWTSecret), cfg.AccessTTL)
	if err != nil {
		logger.Fatal("token signer", zap.Error(err))
	}

	// Services
	keepAlive := service.NewKeepAlive(ctx, cfg.KeepAliveInterval(), logger)
	defer keepAlive.Close()

	authSvc := service.NewAuthService(userRepo, ledger, sessions, signer, cfg.RefreshTTL(), keepAlive, logger)

	provider := oauth.NewProvider(oauth.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
		AuthURL:      cfg.OAuthAuthURL,
		TokenURL:     cfg.OAuthTokenURL,
		UserInfoURL:  cfg.OAuthUserInfoURL,
		Scopes:       cfg.OAuthScopes,
	})
	oauthSvc := service.NewOAuthService(provider, userRepo, providerTokens, sessions, cipher, authSvc, keepAlive, logger)

	go authSvc.RunLedgerSweep(ctx, cfg.SweepInterval)

	// Admission control
	globalGate := limiter.NewRedis(rdb, "ratelimit:global", cfg.GlobalRateLimit, cfg.GlobalRateWindow)
	sensitiveGate := limiter.NewRedis(rdb, "ratelimit:sensitive", cfg.SensitiveRateLimit, cfg.SensitiveRateWindow)

	handlers := httpserver.NewHandlers(authSvc, oauthSvc, cfg.FrontendURL, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpserver.New(handlers, globalGate, sensitiveGate, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
