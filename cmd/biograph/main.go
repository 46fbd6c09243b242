// Package main implements the biograph command, which resolves configured
// ontology sources through the local cache, projects each loaded graph into
// node and edge streams, and routes every record through the shared
// schema-driven typing path into the output sink.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rejuve-bio/biograph/config"
	"github.com/rejuve-bio/biograph/metric"
	"github.com/rejuve-bio/biograph/ontology"
	"github.com/rejuve-bio/biograph/pipeline"
	"github.com/rejuve-bio/biograph/schema"
	"github.com/rejuve-bio/biograph/sourcecache"
	"github.com/rejuve-bio/biograph/storage/filestore"
)

const (
	Version = "0.1.0"
	appName = "biograph"
)

// dryRunSampleLimit bounds each projection pass during a dry run when the
// configuration sets no limit of its own.
const dryRunSampleLimit = 1000

func main() {
	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	if cliCfg.SchemaPath != "" {
		cfg.Schema.Path = cliCfg.SchemaPath
	}

	logger := cfg.Logging.NewLogger().With(
		"service", appName,
		"version", Version,
		"run_id", uuid.NewString(),
	)
	slog.SetDefault(logger)

	reg, err := schema.Load(cfg.Schema.Path)
	if err != nil {
		return err
	}
	logger.Info("schema loaded",
		"path", cfg.Schema.Path,
		"node_types", len(reg.NodeLabels()),
		"edge_types", len(reg.EdgeLabels()))

	if cliCfg.Validate {
		logger.Info("configuration and schema are valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := metric.NewRegistry()
	if cfg.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Metrics.Listen, metrics, logger)
	}

	store, err := filestore.New(cfg.Cache.Dir)
	if err != nil {
		return err
	}
	cache, err := sourcecache.New(store, cacheConfig(cfg.Cache), logger, sourcecache.WithMetrics(metrics.Metrics))
	if err != nil {
		return err
	}

	sink, closeSink, err := openSink(cliCfg)
	if err != nil {
		return err
	}
	defer closeSink()

	sampleLimit := cfg.Projection.SampleLimit
	if cliCfg.DryRun && sampleLimit == 0 {
		sampleLimit = dryRunSampleLimit
	}

	router := pipeline.NewRouter(reg, logger, pipeline.WithMetrics(metrics.Metrics))

	var (
		mu     sync.Mutex
		totals pipeline.RunStats
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range cfg.Sources {
		g.Go(func() error {
			stats, err := processSource(gctx, src, cache, router, sink, sampleLimit, metrics.Metrics, logger)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.ID, err)
			}
			mu.Lock()
			totals.Nodes += stats.Nodes
			totals.Edges += stats.Edges
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("all sources processed",
		"sources", len(cfg.Sources),
		"nodes", totals.Nodes,
		"edges", totals.Edges,
		"dry_run", cliCfg.DryRun)
	return nil
}

// cacheConfig maps the cache section onto the source cache settings. It
// starts from the package defaults so unset knobs, the retry policy in
// particular, keep their defaults instead of collapsing to zero values.
func cacheConfig(c config.CacheConfig) sourcecache.Config {
	cfg := sourcecache.DefaultConfig()
	cfg.MaxAge = c.MaxAge.Std()
	cfg.FetchTimeout = c.FetchTimeout.Std()
	if c.ProbeBytes > 0 {
		cfg.ProbeBytes = c.ProbeBytes
	}
	return cfg
}

// processSource resolves one ontology source and routes its projection into
// the sink.
func processSource(
	ctx context.Context,
	src config.SourceConfig,
	cache *sourcecache.Cache,
	router *pipeline.Router,
	sink pipeline.Sink,
	sampleLimit int,
	metrics *metric.Metrics,
	logger *slog.Logger,
) (pipeline.RunStats, error) {
	log := logger.With("source", src.ID)

	graph, version, err := cache.Resolve(ctx, sourcecache.Source{ID: src.ID, URL: src.URL})
	if err != nil {
		return pipeline.RunStats{}, err
	}
	log.Info("ontology resolved", "version", version, "statements", graph.Len())

	projector := ontology.NewProjector(graph, ontology.Config{
		Source:      src.ID,
		SampleLimit: sampleLimit,
	}, log)
	defer projector.Close()

	stats, err := router.Run(ctx, pipeline.RunConfig{Source: src.ID}, projector, sink)
	if err != nil {
		return stats, err
	}

	pstats := projector.Stats()
	for reason, count := range pstats.Dropped {
		metrics.TriplesDropped.WithLabelValues(src.ID, reason).Add(float64(count))
	}
	log.Info("projection complete",
		"version", version,
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"dropped", pstats.Dropped)
	return stats, nil
}

// openSink picks the record sink: discard for dry runs, a JSONL file when
// --out is set, stdout otherwise.
func openSink(cliCfg *CLIConfig) (pipeline.Sink, func(), error) {
	if cliCfg.DryRun {
		return pipeline.DiscardSink{}, func() {}, nil
	}
	if cliCfg.OutputPath == "" {
		return pipeline.NewJSONLSink(os.Stdout), func() {}, nil
	}
	f, err := os.Create(cliCfg.OutputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open output file: %w", err)
	}
	return pipeline.NewJSONLSink(f), func() { f.Close() }, nil
}

// startMetricsServer exposes the metrics registry over HTTP for the
// lifetime of the run.
func startMetricsServer(ctx context.Context, listen string, metrics *metric.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: listen, Handler: mux}

	go func() {
		logger.Info("metrics endpoint listening", "addr", listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics endpoint failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
