package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nikhilbhutani/promptlab/internal/api"
	"github.com/nikhilbhutani/promptlab/internal/config"
	"github.com/nikhilbhutani/promptlab/internal/crypto"
	"github.com/nikhilbhutani/promptlab/internal/database"
	"github.com/nikhilbhutani/promptlab/internal/llm"
	"github.com/nikhilbhutani/promptlab/internal/store"
	"github.com/nikhilbhutani/promptlab/pkg/tokenizer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger depends on config; fall back to a bare production logger.
		zap.Must(zap.NewProduction()).Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPool(ctx, cfg.Database, logger.Named("db"))
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db, logger); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	cipher, err := crypto.New(cfg.CredentialsKey)
	if err != nil {
		logger.Fatal("invalid credentials key", zap.Error(err))
	}
	if cfg.CredentialsKey == "" {
		logger.Warn("CREDENTIALS_KEY not set, model credentials are stored unencrypted")
	}

	var tokens tokenizer.Counter
	bpe, err := tokenizer.NewBPE(cfg.Tokenizer.Encoding)
	if err != nil {
		logger.Warn("tokenizer unavailable, using estimate",
			zap.String("encoding", cfg.Tokenizer.Encoding), zap.Error(err))
		tokens = tokenizer.Estimate{}
	} else {
		tokens = bpe
	}

	gateway := llm.NewGateway(cfg.Inference, logger.Named("llm"))

	router := api.NewRouter(store.NewPostgres(db), gateway, cipher, tokens, cfg, logger)
	handler := router.Setup(ctx)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting API server", zap.String("addr", cfg.Addr()), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var zc zap.Config
	if cfg.IsLocal() {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zap.Must(zc.Build())
}
