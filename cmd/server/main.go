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
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gwi.com/knsystem/internal/api"
	"gwi.com/knsystem/internal/auth"
	"gwi.com/knsystem/internal/config"
	"gwi.com/knsystem/internal/core"
	"gwi.com/knsystem/internal/store"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) (err error) {
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbStore.Close()) }()

	llmService, err := core.NewLLMService(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, llmService.Close()) }()

	tokens := auth.NewTokenManager(cfg.JWTSecret, auth.TokenTTL)
	authService := core.NewAuthService(dbStore, tokens, logger)
	if cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("failed to seed admin account: %w", err)
		}
	}

	settings := core.NewSettingsService(dbStore, logger)
	proxy := core.NewProxyService(core.ProxyConfig{
		RetrieveURL:    cfg.RAGRetrieveURL,
		ChatbotDevURL:  cfg.RAGChatbotDevURL,
		ChatbotProdURL: cfg.RAGChatbotProdURL,
	}, settings, llmService, logger)

	services := api.Services{
		Auth:          authService,
		Knowledge:     core.NewKnowledgeService(dbStore, logger),
		Conversations: core.NewConversationService(dbStore),
		Notes:         core.NewNotesService(dbStore, logger),
		Tags:          core.NewTagsService(dbStore),
		Feedback:      core.NewFeedbackService(dbStore, logger),
		Chat:          core.NewChatService(dbStore),
		Transfer:      core.NewTransferService(dbStore, logger),
		Proxy:         proxy,
		Settings:      settings,
	}

	apiHandler := api.NewAPIHandler(services, tokens, logger, api.HandlerOptions{
		DevMode:        cfg.IsDevelopment(),
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	router := api.NewRouter(apiHandler, cfg.CORSAllowedOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // upstream chatbot calls may take up to 90s
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", serverAddr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exiting gracefully")
	return nil
}
