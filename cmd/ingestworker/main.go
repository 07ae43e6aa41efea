// Command ingestworker runs the C11 ingest worker: a Kafka consumer-group
// pull loop that turns queued document/codebase ingest jobs into documents
// forwarded to the external preprocessor.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"memgate/internal/config"
	"memgate/internal/ingestworker"
	"memgate/internal/jobqueue"
	"memgate/internal/objectstore"
	"memgate/internal/observability"
	"memgate/internal/persistence"
)

const (
	otelServiceName    = "memgate-ingestworker"
	otelServiceVersion = "0.1.0"

	kafkaBrokerCheckTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("ingestworker")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.OTelEndpoint != "" {
		shutdown, err := observability.InitOTel(ctx, cfg.OTelEndpoint, observability.ServiceInfo{
			Name:    otelServiceName,
			Version: otelServiceVersion,
		})
		if err != nil {
			log.Warn().Err(err).Msg("ingestworker: otel init failed, continuing without observability")
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	pool, err := persistence.OpenPool(ctx, cfg.Database.DSN, cfg.Database.MinConns, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("open database pool: %w", err)
	}
	defer pool.Close()

	jobs := persistence.NewJobStore(pool)
	blobs, err := newBlobStore(ctx, cfg, pool)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	httpClient := observability.NewHTTPClient(&http.Client{
		Timeout: 300 * time.Second,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 7 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        200,
			MaxIdleConnsPerHost: 50,
			MaxConnsPerHost:     200,
			IdleConnTimeout:     90 * time.Second,
		},
	})

	handler := &ingestworker.Handler{
		Blobs:        blobs,
		Preprocessor: ingestworker.NewPreprocessorClient(cfg.Upstream.PreprocessorURL, httpClient),
		BatchSize:    cfg.Thresholds.BatchSize,
	}

	if err := jobqueue.CheckBrokers(ctx, cfg.Kafka.Brokers, kafkaBrokerCheckTimeout); err != nil {
		return fmt.Errorf("reach kafka brokers: %w", err)
	}
	topics := []string{cfg.Kafka.DocumentTopic, cfg.Kafka.CodebaseTopic}
	if err := jobqueue.EnsureTopics(ctx, cfg.Kafka.Brokers, topics, 1, 1); err != nil {
		return fmt.Errorf("ensure kafka topics: %w", err)
	}

	consumer := jobqueue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, topics, jobs, handler, cfg.Kafka.WorkerCount, cfg.Thresholds.MaxRedeliveries)

	log.Info().Strs("topics", topics).Str("group_id", cfg.Kafka.GroupID).Int("workers", cfg.Kafka.WorkerCount).Msg("ingestworker: consuming")
	if err := consumer.Run(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("consumer stopped: %w", err)
	}
	log.Info().Msg("ingestworker: stopped")
	return nil
}

// newBlobStore selects the document blob backend per BLOB_BACKEND, mirroring
// cmd/gateway's selection so both binaries agree on where document bytes live.
func newBlobStore(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (persistence.BlobStore, error) {
	switch cfg.Blob.Backend {
	case "s3":
		store, err := objectstore.NewS3Store(ctx, cfg.Blob.S3)
		if err != nil {
			return nil, fmt.Errorf("new s3 store: %w", err)
		}
		return persistence.NewS3BlobStore(store), nil
	default:
		return persistence.NewPostgresBlobStore(pool), nil
	}
}
