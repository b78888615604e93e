package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/casefile/internal/cache"
	"github.com/ppiankov/casefile/internal/extract"
	"github.com/ppiankov/casefile/internal/llm"
	"github.com/ppiankov/casefile/internal/logging"
	"github.com/ppiankov/casefile/internal/metrics"
	"github.com/ppiankov/casefile/internal/model"
	"github.com/ppiankov/casefile/internal/parse"
	"github.com/ppiankov/casefile/internal/source"
	"github.com/ppiankov/casefile/internal/store"
	"github.com/ppiankov/casefile/internal/worker"
)

var noProgress bool

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [dir]",
	Short: "Extract case fields from every document in a directory",
	Long: `Extract processes documents one at a time, in name order:
- Convert each document to text (.pdf via pdftotext, .html, .txt, .md)
- Ask the language model for district, city, year, month and occurrence
- Retry failed calls with a linearly growing delay
- Pause for the cooldown between documents
- Write one record per document to the output JSON file

A document that cannot be read or answered is recorded as failed; the run
continues. Only a missing input directory or an empty one stops the run.

Example:
  casefile extract ./docs
  casefile extract ./docs --out cases.json --sqlite cases.db
  casefile extract ./docs --provider openai --model gpt-4o-mini --max-attempts 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	f := extractCmd.Flags()

	// Input/output flags
	f.StringSlice("ext", nil, "document extensions to include (default .pdf)")
	f.StringP("out", "o", "", "output JSON path")
	f.String("sqlite", "", "also write results to this SQLite database")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile")

	// LLM flags
	f.String("provider", "", "LLM provider (ollama, openai, anthropic)")
	f.String("model", "", "LLM model name")
	f.String("base-url", "", "LLM API base URL")
	f.Float64("rps", 0, "max remote calls per second, retries included (0 = unlimited)")

	// Retry and pacing flags
	f.Int("max-attempts", 0, "attempts per document")
	f.Duration("base-delay", 0, "retry delay unit; retry n waits n times this")
	f.Duration("call-timeout", 0, "timeout for a single remote call")
	f.Duration("cooldown", 0, "pause between documents")
	f.Bool("dedupe", false, "reuse results for documents with identical text")
	f.String("cache-dir", "", "persist dedupe results in this directory across runs (implies --dedupe)")
	f.Bool("clear-cache", false, "remove --cache-dir entries before the run")
	f.Bool("strict", false, "reject responses whose fields fail the case schema")

	f.BoolVar(&noProgress, "no-progress", false, "disable the progress line")

	bind := map[string]string{
		"input.extensions":        "ext",
		"output.path":             "out",
		"output.sqlite":           "sqlite",
		"metrics.file":            "metrics-file",
		"llm.provider":            "provider",
		"llm.model":               "model",
		"llm.base_url":            "base-url",
		"llm.requests_per_second": "rps",
		"retry.max_attempts":      "max-attempts",
		"retry.base_delay":        "base-delay",
		"retry.call_timeout":      "call-timeout",
		"batch.cooldown":          "cooldown",
		"batch.dedupe":            "dedupe",
		"batch.strict_schema":     "strict",
		"batch.cache_dir":         "cache-dir",
		"batch.clear_cache":       "clear-cache",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		viper.Set("input.dir", args[0])
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress worker.Progress = worker.NopProgress{}
	if !noProgress {
		progress = worker.NewLineProgress(cmd.OutOrStdout())
	}

	started := time.Now()
	records, err := runBatch(ctx, cfg, progress, logging.WithComponent("batch"))
	if err != nil {
		return err
	}

	if err := store.WriteJSON(cfg.Output.Path, records); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Results written to %s\n", cfg.Output.Path)

	if cfg.Output.SQLite != "" {
		run := store.NewRun(started)
		if err := store.WriteSQLite(ctx, cfg.Output.SQLite, run, records, logging.WithComponent("store")); err != nil {
			return fmt.Errorf("write sqlite: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Run %s mirrored to %s\n", run.ID, cfg.Output.SQLite)
	}

	return nil
}

// runBatch wires the pipeline from cfg and processes every document.
// The metrics textfile is written even when the run is interrupted.
func runBatch(ctx context.Context, cfg *model.Config, progress worker.Progress, logger *slog.Logger) ([]model.CaseRecord, error) {
	items, err := source.Enumerate(cfg.Input.Dir, cfg.Input.Extensions)
	if err != nil {
		return nil, err
	}

	registry := extract.NewDefaultRegistry(cfg.Extract.Pdftotext, cfg.Extract.MaxBytes)
	for _, ext := range cfg.Input.Extensions {
		if !registry.Supports("document." + strings.TrimPrefix(ext, ".")) {
			return nil, fmt.Errorf("no extractor for extension %q (supported: .pdf, .html, .htm, .txt, .text, .md)", ext)
		}
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.Retry.CallTimeout))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	checkProvider(ctx, provider, logger)

	m := metrics.New()
	limiter := worker.NewLimiter(cfg.Batch.Cooldown, cfg.LLM.RequestsPerSecond)

	opts := worker.ControllerOptions{
		Limiter: limiter,
		Metrics: m,
		Logger:  logger,
	}
	switch {
	case cfg.Batch.CacheDir != "":
		layered := cache.NewLayeredCache(cfg.Batch.CacheDir, cfg.Batch.CacheTTL, logger)
		if cfg.Batch.ClearCache {
			if err := layered.Clear(); err != nil {
				return nil, fmt.Errorf("clear cache: %w", err)
			}
			logger.Info("cache.cleared", "dir", cfg.Batch.CacheDir)
		}
		opts.Cache = layered
	case cfg.Batch.Dedupe:
		opts.Cache = cache.NewMemoryCache()
	}
	opts.CacheScope = cache.Scope(provider.Name(), cfg.LLM.Model, llm.PromptVersion)
	if cfg.Batch.StrictSchema {
		validator, err := parse.NewSchemaValidator()
		if err != nil {
			return nil, fmt.Errorf("compile case schema: %w", err)
		}
		opts.Validator = validator
	}

	controller := worker.NewController(provider, cfg.Retry, opts)
	driver := worker.NewDriver(registry, controller, limiter, progress, m, logger)

	logger.Info("extract.start",
		"dir", cfg.Input.Dir,
		"documents", len(items),
		"provider", provider.Name(),
		"model", cfg.LLM.Model,
		"max_attempts", cfg.Retry.MaxAttempts,
	)

	records, runErr := driver.Run(ctx, items)

	if cfg.Metrics.File != "" {
		if err := m.WriteTextfile(cfg.Metrics.File); err != nil {
			logger.Error("metrics.write_failed", "path", cfg.Metrics.File, "error", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return nil, fmt.Errorf("interrupted, no results written: %w", runErr)
		}
		return nil, runErr
	}
	return records, nil
}

// checkProvider warns early when the backend cannot be reached. The run
// still proceeds; each call then fails as a transport error.
func checkProvider(ctx context.Context, p llm.Provider, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if !p.IsAvailable(ctx) {
		logger.Warn("llm.unavailable", "provider", p.Name())
	}
}
