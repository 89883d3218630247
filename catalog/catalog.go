// Package catalog retrieves raw app records from the two store catalogs.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MarcoAigner/prisma-review-app-scraper/config"
	"github.com/MarcoAigner/prisma-review-app-scraper/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Client searches a single store catalog. Both clients (Google Play, App
// Store) implement this interface; each is responsible for fetching its own
// wire format and mapping hits into tagged AppRecords.
type Client interface {
	Name() string
	Search(ctx context.Context, term string) ([]models.AppRecord, error)
}

// Fetcher fans search terms out to both store clients and reassembles the
// results in a fixed source-then-term-then-result order, so repeated runs
// over the same inputs feed the merge step identically no matter how the
// concurrent requests complete.
//
// A failed (source, term) pair contributes zero records and is logged; it
// never aborts the run.
type Fetcher struct {
	Metrics *Metrics

	google Client
	apple  Client
	cfg    *config.Config
	cache  *lru.Cache[string, []models.AppRecord]

	mu           sync.Mutex
	failedTerms  []string
	errorsByType map[string]int
	retryCount   int
	requestCount int
	errorCount   int
}

// NewFetcher builds a fetcher over the two store clients.
func NewFetcher(google, apple Client, cfg *config.Config) (*Fetcher, error) {
	cache, err := lru.New[string, []models.AppRecord](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	return &Fetcher{
		Metrics:      NewMetrics(),
		google:       google,
		apple:        apple,
		cfg:          cfg,
		cache:        cache,
		errorsByType: make(map[string]int),
	}, nil
}

// FetchAll retrieves records for every (source, term) pair with bounded
// parallelism and returns both raw streams plus run statistics.
func (f *Fetcher) FetchAll(ctx context.Context, terms []string) *models.FetchResult {
	start := time.Now()

	clients := []Client{f.google, f.apple}
	perClient := make([][][]models.AppRecord, len(clients))
	for i := range perClient {
		perClient[i] = make([][]models.AppRecord, len(terms))
	}

	type job struct {
		client    int
		termIndex int
	}

	jobs := make(chan job)
	var wg sync.WaitGroup

	workers := f.cfg.Parallelism
	if workers > len(clients)*len(terms) {
		workers = len(clients) * len(terms)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				client := clients[j.client]
				term := terms[j.termIndex]
				perClient[j.client][j.termIndex] = f.fetchOne(ctx, client, term)
			}
		}()
	}

	for c := range clients {
		for t := range terms {
			select {
			case <-ctx.Done():
			case jobs <- job{client: c, termIndex: t}:
			}
		}
	}
	close(jobs)
	wg.Wait()

	flatten := func(chunks [][]models.AppRecord) []models.AppRecord {
		var out []models.AppRecord
		for _, chunk := range chunks {
			out = append(out, chunk...)
		}
		return out
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.FetchResult{
		Google:       flatten(perClient[0]),
		Apple:        flatten(perClient[1]),
		StartTime:    start,
		EndTime:      time.Now(),
		RequestCount: f.requestCount,
		ErrorCount:   f.errorCount,
		RetryCount:   f.retryCount,
		FailedTerms:  append([]string(nil), f.failedTerms...),
		ErrorsByType: snapshotCounts(f.errorsByType),
	}
}

// fetchOne serves a single (source, term) pair from the cache or the client,
// retrying transient failures with capped exponential backoff.
func (f *Fetcher) fetchOne(ctx context.Context, client Client, term string) []models.AppRecord {
	cacheKey := client.Name() + "\x00" + term
	if records, ok := f.cache.Get(cacheKey); ok {
		f.Metrics.IncCacheHit()
		return records
	}

	records, err := f.searchWithRetry(ctx, client, term)
	if err != nil {
		category := errorTypeLabel(err)
		f.mu.Lock()
		f.errorCount++
		f.errorsByType[category]++
		f.failedTerms = append(f.failedTerms, client.Name()+": "+term)
		f.mu.Unlock()
		f.Metrics.IncError(client.Name(), category)

		slog.Error("catalog search failed",
			slog.String("source", client.Name()),
			slog.String("term", term),
			slog.String("category", category),
			slog.Any("error", err),
		)
		return nil
	}

	f.cache.Add(cacheKey, records)
	f.Metrics.AddRecords(client.Name(), len(records))
	slog.Debug("catalog search done",
		slog.String("source", client.Name()),
		slog.String("term", term),
		slog.Int("records", len(records)),
	)
	return records
}

func (f *Fetcher) searchWithRetry(ctx context.Context, client Client, term string) ([]models.AppRecord, error) {
	backoff := f.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		f.mu.Lock()
		f.requestCount++
		f.mu.Unlock()
		f.Metrics.IncRequest(client.Name())

		requestStart := time.Now()
		records, err := client.Search(ctx, term)
		f.Metrics.ObserveDuration(client.Name(), time.Since(requestStart))
		if err == nil {
			return records, nil
		}
		if attempt >= f.cfg.MaxRetries || ctx.Err() != nil {
			return nil, err
		}

		f.mu.Lock()
		f.retryCount++
		f.mu.Unlock()
		f.Metrics.IncRetries(client.Name())
		slog.Debug("retrying catalog search",
			slog.String("source", client.Name()),
			slog.String("term", term),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if max := f.cfg.RetryBackoffMax; max > 0 && backoff > max {
			backoff = max
		}
	}
}

func snapshotCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
