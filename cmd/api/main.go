package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/semaphore"

	"github.com/Mo-420/Yacht-SEO/internal/batch"
	"github.com/Mo-420/Yacht-SEO/internal/groq"
	"github.com/Mo-420/Yacht-SEO/internal/http/handlers"
	"github.com/Mo-420/Yacht-SEO/internal/http/httpapi"
	"github.com/Mo-420/Yacht-SEO/internal/infra"
	"github.com/Mo-420/Yacht-SEO/internal/jobs"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := groq.NewClient(groq.Options{
		APIKey:      cfg.GroqAPIKey,
		Model:       cfg.GroqModel,
		BaseURL:     cfg.GroqBaseURL,
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure groq client")
	}

	gate := semaphore.NewWeighted(int64(cfg.GlobalConcurrency))
	runner := batch.NewRunner(client, cfg.BatchWorkers, gate, logger)

	manager := jobs.NewManager(jobs.Options{
		Runner:        runner,
		Retention:     cfg.JobRetention,
		Timeout:       cfg.JobTimeout,
		SweepInterval: cfg.SweepInterval,
		Logger:        logger,
	})
	defer manager.Close()

	app := handlers.NewApp(cfg, logger, runner, manager, client)
	srv := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	go func() {
		logger.Info().Str("port", cfg.Port).Str("model", client.Model()).Msg("api: listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}

	prompts, completions := client.Usage().Totals()
	logger.Info().
		Int64("prompt_tokens", prompts).
		Int64("completion_tokens", completions).
		Float64("cost_usd", client.Usage().Cost()).
		Msg("api: stopped")
}
