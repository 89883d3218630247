package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarcoAigner/prisma-review-app-scraper/catalog"
	"github.com/MarcoAigner/prisma-review-app-scraper/config"
	"github.com/MarcoAigner/prisma-review-app-scraper/export"
	"github.com/MarcoAigner/prisma-review-app-scraper/merge"
	"github.com/MarcoAigner/prisma-review-app-scraper/models"
	"github.com/MarcoAigner/prisma-review-app-scraper/terms"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()
	resultsDefault := defaultCfg.MaxResults
	if value, ok, err := config.EnvInt("SCRAPER_RESULTS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_RESULTS: %v\n", err)
		os.Exit(1)
	} else if ok {
		resultsDefault = value
	}
	parallelDefault := defaultCfg.Parallelism
	if value, ok, err := config.EnvInt("SCRAPER_PARALLEL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PARALLEL: %v\n", err)
		os.Exit(1)
	} else if ok {
		parallelDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	termsFile := flag.String("terms", "", "File with search terms, one per line (prompts interactively when empty)")
	maxResults := flag.Int("results", resultsDefault, "Maximum results per search term per store")
	parallelism := flag.Int("parallel", parallelDefault, "Number of concurrent store requests")
	country := flag.String("country", defaultCfg.Country, "Store country code")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout.Seconds()), "Request timeout (seconds)")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Maximum retry attempts per request")
	retryBackoffMs := flag.Int("retry-backoff", 200, "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", 2000, "Maximum retry backoff (milliseconds)")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", "csv", "Output format: csv, json, or dual")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.TermsFile = *termsFile
	cfg.MaxResults = *maxResults
	cfg.Parallelism = *parallelism
	cfg.Country = *country
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.MaxRetries = *maxRetries
	cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	searchTerms, err := collectTerms(cfg, flag.Args())
	if err != nil {
		slog.Error("collecting search terms", slog.Any("error", err))
		os.Exit(1)
	}
	if len(searchTerms) == 0 {
		slog.Error("no search terms provided")
		os.Exit(1)
	}

	google, err := catalog.NewGoogleClient(cfg)
	if err != nil {
		slog.Error("initialising google play client", slog.Any("error", err))
		os.Exit(1)
	}
	apple, err := catalog.NewAppleClient(cfg)
	if err != nil {
		slog.Error("initialising app store client", slog.Any("error", err))
		os.Exit(1)
	}
	fetcher, err := catalog.NewFetcher(google, apple, cfg)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight requests to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(fetcher.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting scrape",
		slog.Int("terms", len(searchTerms)),
		slog.Int("results_per_term", cfg.MaxResults),
		slog.Int("workers", cfg.Parallelism),
	)

	result := fetcher.FetchAll(ctx, searchTerms)

	_, googleStats := merge.Deduplicate(result.Google)
	_, appleStats := merge.Deduplicate(result.Apple)
	slog.Info("per-store duplicates removed",
		slog.Int("google_in", googleStats.Input),
		slog.Int("google_out", googleStats.Distinct),
		slog.Int("apple_in", appleStats.Input),
		slog.Int("apple_out", appleStats.Distinct),
	)

	apps := merge.Merge(result.Google, result.Apple)

	if err := writer.Write(apps); err != nil {
		slog.Error("export failed", slog.Any("error", err))
		writer.Close()
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, googleStats, appleStats, apps, cfg.OutputFile)
}

// collectTerms gathers search terms from the terms file (or interactively
// when none is given), merged with any extra terms passed as arguments.
func collectTerms(cfg *config.Config, args []string) ([]string, error) {
	var fromInput []string
	var err error
	if cfg.TermsFile != "" {
		fromInput, err = terms.FromFile(cfg.TermsFile)
	} else if len(args) == 0 {
		fromInput, err = terms.FromReader(os.Stdin, os.Stdout)
	}
	if err != nil {
		return nil, err
	}
	return terms.Combine(fromInput, args), nil
}

func createWriter(format, filename string) (export.Writer, error) {
	switch format {
	case "json":
		return export.NewJSONWriter(filename)
	case "csv":
		return export.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return export.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.FetchResult, googleStats, appleStats merge.DedupStats, apps []*models.CombinedApp, outputFile string) {
	both := 0
	for _, app := range apps {
		if app.BothAppStores {
			both++
		}
	}

	duration := result.EndTime.Sub(result.StartTime)
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Google Play:     %d records (%d duplicates removed)\n", googleStats.Input, googleStats.Duplicates)
	fmt.Printf("  App Store:       %d records (%d duplicates removed)\n", appleStats.Input, appleStats.Duplicates)
	fmt.Printf("  Combined apps:   %d\n", len(apps))
	fmt.Printf("  In both stores:  %d\n", both)
	fmt.Printf("  Requests:        %d\n", result.RequestCount)
	fmt.Printf("  Errors:          %d\n", result.ErrorCount)
	fmt.Printf("  Retries:         %d\n", result.RetryCount)
	if len(result.FailedTerms) > 0 {
		fmt.Printf("  Failed pairs:    %v\n", result.FailedTerms)
	}
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:     %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:        %v\n", duration)
	fmt.Printf("  Output file:     %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
