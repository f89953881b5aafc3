// Command faadb harvests the current FAA aeronautical datasets and writes
// them as JSON artifacts to the output directory.
//
// Usage:
//
//	go run ./cmd/faadb -variant all
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
	"sort"
	"syscall"
	"time"

	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/faa"
	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/httpadapter"
	kafkaadapter "github.com/cwmauze/genesys-waypoint-tools/internal/adapter/kafka"
	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/nms"
	"github.com/cwmauze/genesys-waypoint-tools/internal/adapter/store"
	"github.com/cwmauze/genesys-waypoint-tools/internal/config"
	"github.com/cwmauze/genesys-waypoint-tools/internal/fixedwidth"
	"github.com/cwmauze/genesys-waypoint-tools/internal/observability"
	"github.com/cwmauze/genesys-waypoint-tools/internal/pipeline"

	"github.com/dustin/go-humanize"
)

func main() {
	os.Exit(run())
}

func run() int {
	variantFlag := flag.String("variant", string(pipeline.VariantAll), "datasets to produce: master, split, or all")
	flag.Parse()

	variant, err := pipeline.ParseVariant(*variantFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := faa.NewClient(cfg, logger, metrics)
	stages := pipeline.Stages{
		Locator: faa.NewLocator(client, cfg.PublisherHost, cfg.PageTimeout),
		Fetcher: faa.NewFetcher(client, cfg.DownloadTimeout, logger),
		Store:   store.New(cfg.OutputDir, logger),
		Catalog: fixedwidth.DefaultCatalog(),
	}

	// Notice harvest is feature-flagged via FAA_CLIENT_ID / FAA_CLIENT_SECRET.
	notices, err := nms.NewClient(cfg, logger)
	switch {
	case errors.Is(err, nms.ErrMissingCredentials):
		logger.Info("notice harvest disabled, credentials not configured")
	case err != nil:
		logger.Error("notice client init failed", "error", err)
	default:
		stages.Notices = notices
	}

	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		stages.Publisher = publisher
		logger.Info("dataset events enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(pipeline.OptionsFromConfig(cfg), stages, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, metrics.Gatherer(), logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	report, runErr := p.Run(ctx, variant)
	if runErr != nil {
		logger.Warn("harvest interrupted", "error", runErr)
	}
	printSummary(report)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(shutdownCtx, cfg.PushgatewayURL, report.RunID); err != nil {
			logger.Error("metrics push failed", "error", err)
		}
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	if runErr != nil || report.AllFailed() {
		return 1
	}
	return 0
}

func printSummary(r pipeline.Report) {
	fmt.Printf("Run %s (%s) cycle %s [%s]\n", r.RunID, r.Variant, r.Cycle, r.CycleID)

	keys := make([]string, 0, len(r.Families))
	for k := range r.Families {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f := r.Families[k]
		if f.Error != "" {
			fmt.Printf("  %-16s FAILED  %s\n", k, f.Error)
			continue
		}
		fmt.Printf("  %-16s %s records\n", k, humanize.Comma(int64(f.Records)))
	}
	if r.Notices != nil {
		fmt.Printf("  %-16s %s (%s of %s matched)\n", "notices", r.Notices.State,
			humanize.Comma(int64(r.Notices.Matched)), humanize.Comma(int64(r.Notices.Received)))
	}
	for _, u := range r.Updates {
		state := "written"
		if u.Held {
			state = "held"
		}
		fmt.Printf("  %-16s %s, %s entries\n", u.Artifact, state, humanize.Comma(int64(u.Records)))
	}
	if !r.FinishedAt.IsZero() {
		fmt.Printf("Finished in %s with %d failure(s)\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), len(r.Failures))
	}
}
