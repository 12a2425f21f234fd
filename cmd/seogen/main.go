// seogen reads a yacht CSV, generates one description per row, and writes
// the enriched CSV.
//
// Usage: seogen [-model id] [-temperature t] input.csv output.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/semaphore"

	"github.com/Mo-420/Yacht-SEO/internal/batch"
	"github.com/Mo-420/Yacht-SEO/internal/domain"
	"github.com/Mo-420/Yacht-SEO/internal/groq"
	"github.com/Mo-420/Yacht-SEO/internal/infra"
	"github.com/Mo-420/Yacht-SEO/internal/ingest"
)

func main() {
	_ = godotenv.Load()

	model := flag.String("model", "", "completion model id (defaults to GROQ_MODEL)")
	temperature := flag.Float64("temperature", 0, "sampling temperature (defaults to GROQ_TEMPERATURE)")
	flag.Parse()
	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: seogen [-model id] [-temperature t] input.csv output.csv")
		os.Exit(2)
	}
	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "seogen: %v\n", err)
		os.Exit(1)
	}
	if *model != "" {
		cfg.GroqModel = *model
	}
	if *temperature != 0 {
		cfg.GroqTemperature = *temperature
	}
	logger := infra.NewLogger(cfg.AppEnv, "seogen")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(inputPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", inputPath).Msg("seogen: cannot read input")
	}
	records, err := ingest.Parse(data, ingest.FormatCSV)
	if err != nil {
		logger.Fatal().Err(err).Msg("seogen: invalid input")
	}
	logger.Info().Int("records", len(records)).Str("model", cfg.GroqModel).Msg("seogen: starting")

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
		logger.Fatal().Err(err).Msg("seogen: failed to configure groq client")
	}

	gate := semaphore.NewWeighted(int64(cfg.GlobalConcurrency))
	runner := batch.NewRunner(client, cfg.BatchWorkers, gate, logger)

	promptCfg := domain.PromptConfig{}.Normalize(cfg.GroqTemperature, cfg.GroqMaxTokens)
	outcomes, err := runner.Run(ctx, records, promptCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("seogen: batch aborted")
	}

	for i, out := range outcomes {
		name := records[i].GetOr("name", "Unknown")
		if out.OK() {
			logger.Info().Str("name", name).Int("chars", len(out.Text)).Msg("seogen: described")
		} else {
			logger.Error().Str("name", name).Str("kind", string(out.Kind)).Str("error", out.Message).Msg("seogen: failed")
		}
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", outputPath).Msg("seogen: cannot create output")
	}
	defer func() {
		_ = outFile.Close()
	}()
	if err := ingest.MergeCSV(outFile, records, outcomes); err != nil {
		logger.Fatal().Err(err).Msg("seogen: writing output failed")
	}

	prompts, completions := client.Usage().Totals()
	logger.Info().
		Int64("prompt_tokens", prompts).
		Int64("completion_tokens", completions).
		Float64("cost_usd", client.Usage().Cost()).
		Str("output", outputPath).
		Msg("seogen: done")
}
