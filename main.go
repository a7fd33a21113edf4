package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"aidid-house/config"
	"aidid-house/models"
	"aidid-house/services"
	"aidid-house/storage"
	"aidid-house/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Aidid House reconciliation starting ===")
	logger.Info("Config — feed: %s | concurrency: %d | sweep guard: %.2f",
		cfg.FeedPath, cfg.MaxConcurrency, cfg.SweepGuardRatio)

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		logger.Error("Failed to load source registry: %v", err)
		os.Exit(1)
	}

	records, err := readFeed(cfg.FeedPath, logger)
	if err != nil {
		logger.Error("Failed to read feed: %v", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		logger.Error("Feed contained no records. Exiting.")
		os.Exit(1)
	}

	audit, err := storage.NewAuditWriter(cfg.AuditPath)
	if err != nil {
		logger.Error("Failed to create audit writer: %v", err)
		os.Exit(1)
	}
	defer audit.Close()

	listingStore, err := storage.NewPostgresStore(cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer listingStore.Close()

	tradeStore, err := storage.NewPostgresTradeStore(cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to open trade store: %v", err)
		os.Exit(1)
	}
	defer tradeStore.Close()

	bySource := groupBySource(records)

	var (
		mu        sync.Mutex
		summaries []services.RunSummary
		observed  []*models.CanonicalListing
	)

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(cfg.MaxConcurrency)

	for _, src := range sources {
		src := src
		items := bySource[src.Name]
		if len(items) == 0 {
			logger.Debug("[main] no feed records for %s, skipping", src.Name)
			continue
		}

		g.Go(func() error {
			var store storage.RecordStore = listingStore
			if src.Kind == config.KindTrade {
				store = tradeStore
			}

			summary, listings, err := processSource(ctx, cfg, src, items, store, audit, logger)
			if err != nil {
				logger.Error("[main] run for %s failed: %v", src.Name, err)
				return nil // a degraded source must not abort the others
			}

			mu.Lock()
			summaries = append(summaries, summary)
			observed = append(observed, listings...)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	reportSvc := services.NewReportService(logger)
	reportSvc.Print(reportSvc.Generate(observed), summaries)

	fmt.Printf("  Done. Failed writes (if any) → %s\n\n", cfg.AuditPath)
}

// processSource drives one source's full reconciliation run: open the run,
// fan feed items out to a worker pool, then close and sweep.
func processSource(
	ctx context.Context,
	cfg *config.Config,
	src config.Source,
	items []models.RawRecord,
	store storage.RecordStore,
	audit storage.FailureLog,
	logger *utils.Logger,
) (services.RunSummary, []*models.CanonicalListing, error) {
	reconciler := services.NewReconciler(store, audit, logger, services.ReconcilerConfig{
		VanishedStatus:  models.DataStatus(src.VanishedStatus),
		SweepGuardRatio: cfg.SweepGuardRatio,
	})

	run, err := reconciler.StartRun(ctx, src.Name)
	if err != nil {
		return services.RunSummary{}, nil, err
	}

	merger := services.NewMerger(logger)
	pool := utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs)

	var (
		mu       sync.Mutex
		listings []*models.CanonicalListing
	)

	for _, item := range items {
		item := item
		pool.Submit(func() {
			switch item.Kind {
			case models.KindTouch:
				run.Touch(ctx, item.URL)
			case models.KindRecord:
				merged := merger.MergePayloads(item.Summary, item.Detail)
				if merged == nil {
					logger.Warn("[main] record for %s carried no payload, dropped", item.URL)
					return
				}
				if src.Kind == config.KindTrade {
					run.Observe(ctx, services.BuildTrade(merged))
					return
				}
				l := services.BuildListing(src.Name, item.URL, merged)
				services.CleanListing(l)
				run.Observe(ctx, l)
				mu.Lock()
				listings = append(listings, l)
				mu.Unlock()
			default:
				logger.Warn("[main] unknown record kind %q for %s, dropped", item.Kind, item.URL)
			}
		})
	}

	// The close step may only run after all in-flight items have drained.
	pool.Wait()

	summary, err := run.Close(ctx)
	if err != nil {
		return summary, listings, err
	}
	return summary, listings, nil
}

// readFeed decodes the newline-delimited JSON record feed. "-" reads stdin.
// Malformed lines are logged and skipped, matching the fail-soft policy for
// uncontrolled upstream data.
func readFeed(path string, logger *utils.Logger) ([]models.RawRecord, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("feed: open %q: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var records []models.RawRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec models.RawRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("[feed] line %d: bad JSON, skipped: %v", line, err)
			continue
		}
		if rec.Source == "" || rec.URL == "" {
			logger.Warn("[feed] line %d: missing source or url, skipped", line)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("feed: scan: %w", err)
	}
	return records, nil
}

func groupBySource(records []models.RawRecord) map[string][]models.RawRecord {
	grouped := make(map[string][]models.RawRecord)
	for _, r := range records {
		grouped[r.Source] = append(grouped[r.Source], r)
	}
	return grouped
}
