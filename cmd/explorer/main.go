// Command explorer serves the parking ticket dashboard API. It loads the
// tickets export and neighborhood lookup at startup, then answers interaction
// events per session with freshly computed linked views.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/parking-ticket-explorer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/parking-ticket-explorer/internal/adapter/kafka"
	"github.com/couchcryptid/parking-ticket-explorer/internal/config"
	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
	"github.com/couchcryptid/parking-ticket-explorer/internal/ingest"
	"github.com/couchcryptid/parking-ticket-explorer/internal/observability"
	"github.com/couchcryptid/parking-ticket-explorer/internal/pipeline"
	"github.com/couchcryptid/parking-ticket-explorer/internal/session"
	"github.com/jonboulle/clockwork"
)

const sessionSweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	geojson, err := ingest.LoadGeoJSONFile(cfg.GeoJSONPath)
	if err != nil {
		logger.Error("failed to load zip polygons", "error", err, "path", cfg.GeoJSONPath)
		os.Exit(1)
	}

	// Interaction publishing (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("interaction publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("interaction publishing disabled")
	}

	clock := clockwork.NewRealClock()
	sessions := session.NewStore(cfg.SessionTTL, clock)
	p := pipeline.New(sessions, publisher, logger, metrics, pipeline.Options{
		CacheSize:     cfg.DashboardCacheSize,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.BatchFlushInterval,
		Clock:         clock,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, geojson, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server. /readyz reports 503 until the table is loaded.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	table, err := loadTable(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to load tickets", "error", err, "path", cfg.TicketsPath)
		os.Exit(1)
	}
	p.Load(table)

	go p.RunJanitor(ctx, sessionSweepInterval)

	// The publisher outlives the signal so requests still in flight during
	// server shutdown get their interactions queued before the final drain.
	pubCtx, stopPublisher := context.WithCancel(context.Background())
	defer stopPublisher()
	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		if err := p.Run(pubCtx); err != nil {
			logger.Error("interaction publisher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	stopPublisher()
	select {
	case <-publisherDone:
	case <-shutdownCtx.Done():
		logger.Warn("interaction publisher did not drain before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func loadTable(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*domain.Table, error) {
	start := time.Now()
	res, err := ingest.LoadTicketsFile(cfg.TicketsPath, logger)
	if err != nil {
		return nil, err
	}
	for reason, n := range res.DroppedBy {
		metrics.TicketsDropped.WithLabelValues(reason).Add(float64(n))
	}

	lookup, err := ingest.LoadNeighborhoodsFile(cfg.NeighborhoodsPath)
	if err != nil {
		return nil, err
	}

	table, err := domain.NewTable(res.Tickets, lookup)
	if err != nil {
		return nil, err
	}
	logger.Info("tickets loaded",
		"rows", res.Rows,
		"loaded", table.Len(),
		"dropped", res.Dropped(),
		"neighborhood_zips", len(lookup),
		"duration", time.Since(start),
	)
	return table, nil
}
