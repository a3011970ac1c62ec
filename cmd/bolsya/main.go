package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"bolsya/internal/advisor"
	"bolsya/internal/amqp"
	"bolsya/internal/auth"
	"bolsya/internal/cache"
	"bolsya/internal/cli"
	"bolsya/internal/config"
	"bolsya/internal/core"
	apphttp "bolsya/internal/http"
	"bolsya/internal/log"
	"bolsya/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp, (*config.Config).Validate)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	statsCache := cache.NewLRUCache[core.DashboardStats](cfg.StatsCacheSize, cfg.StatsCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(statsCache)
	cacheManager.StartCleanup(cfg.CacheCleanupInterval)
	defer cacheManager.Stop()

	// Ledger events are optional on the API side; without a broker the
	// export worker simply has nothing to consume.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var adv advisor.Advisor = advisor.Unavailable{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := advisor.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini advisor", log.FieldError, err.Error())
			os.Exit(1)
		}
		adv = gemini
		logger.Info("Gemini advisor initialized", "model", cfg.GeminiModel)
	} else {
		logger.Info("Chat advisor disabled - no GEMINI_API_KEY provided")
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	stats := services.NewStatsService(repo, statsCache)
	svc := apphttp.Services{
		Auth:         services.NewAuthService(repo, issuer),
		Categories:   services.NewCategoryService(repo, stats),
		Transactions: services.NewTransactionService(repo, stats, publisher),
		Stats:        stats,
		Chat:         services.NewChatService(repo, stats, adv, cfg.RecentTransactionsLimit, cfg.ChatHistoryLimit),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Issuer:                issuer,
		Logger:                logger,
		Ready:                 repo.Ping,
		RecentLimit:           cfg.RecentTransactionsLimit,
		ChatRequestsPerMinute: cfg.ChatRequestsPerMinute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-cli.ShutdownSignals()
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("Starting bolsya server", "port", cfg.Port, log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
