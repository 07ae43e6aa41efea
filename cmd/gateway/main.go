// Command gateway serves the OpenAI-compatible chat endpoint, memory
// composition, and document/codebase ingest acceptance described by the
// internal/httpapi package, wiring every collaborator package together at
// process startup the way the teacher's cmd/orchestrator entrypoint does.
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

	"memgate/internal/background"
	"memgate/internal/config"
	"memgate/internal/httpapi"
	"memgate/internal/jobqueue"
	"memgate/internal/kgclient"
	"memgate/internal/llmproxy"
	"memgate/internal/memory"
	"memgate/internal/objectstore"
	"memgate/internal/observability"
	"memgate/internal/persistence"
	"memgate/internal/promote"
	"memgate/internal/rag/embedder"
	"memgate/internal/router"
	"memgate/internal/shortterm"
)

const (
	otelServiceName    = "memgate-gateway"
	otelServiceVersion = "0.1.0"

	backgroundWorkers   = 4
	backgroundQueueSize = 1000

	kafkaBrokerCheckTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("gateway")
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
			log.Warn().Err(err).Msg("gateway: otel init failed, continuing without observability")
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	pool, err := persistence.OpenPool(ctx, cfg.Database.DSN, cfg.Database.MinConns, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("open database pool: %w", err)
	}
	defer pool.Close()
	if err := persistence.EnsureSchema(ctx, pool, cfg.Database.VectorDim); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	sessions := persistence.NewSessionStore(pool)
	jobs := persistence.NewJobStore(pool)
	blobs, err := newBlobStore(ctx, cfg, pool)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}
	recall, recallCloser, err := newRecallStore(ctx, cfg, sessions)
	if err != nil {
		return fmt.Errorf("init recall store: %w", err)
	}
	if recallCloser != nil {
		defer recallCloser()
	}

	shortTerm := shortterm.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Thresholds.SessionTTL)
	defer func() { _ = shortTerm.Close() }()

	mdl, err := router.Load(cfg.ModelRouterFile)
	if err != nil {
		return fmt.Errorf("load model router table: %w", err)
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
	proxy := llmproxy.New(httpClient)

	embed := embedder.NewClient(cfg.Upstream.Embedding(), cfg.Database.VectorDim)

	var kg *kgclient.Client
	if cfg.Upstream.KGBaseURL != "" {
		kg = kgclient.New(cfg.Upstream.KGBaseURL, httpClient)
	}

	composer := &memory.Composer{
		ShortTerm:    shortTerm,
		Recall:       recall,
		KG:           kg,
		Embedder:     embed,
		RecallTopK:   cfg.Thresholds.RecallTopK,
		ArchivalTopK: cfg.Thresholds.ArchivalTopK,
	}

	bgQueue := background.NewQueue(ctx, backgroundWorkers, backgroundQueueSize)

	var vectors promote.VectorStore = sessions
	if qdrant, ok := recall.(*persistence.QdrantRecallStore); ok {
		vectors = qdrant
	}
	promoter := &promote.Promoter{
		Sessions:           sessions,
		Vectors:            vectors,
		Embedder:           embed,
		Summarizer:         promote.NewSummarizer(proxy, cfg.Upstream.SummarizerURL, cfg.Upstream.SummarizerModel),
		KG:                 kg,
		Queue:              bgQueue,
		PromoteAfterTurns:  cfg.Thresholds.PromoteAfterTurns,
		ArchivalAfterTurns: cfg.Thresholds.ArchivalAfterTurns,
	}

	if err := jobqueue.CheckBrokers(ctx, cfg.Kafka.Brokers, kafkaBrokerCheckTimeout); err != nil {
		return fmt.Errorf("reach kafka brokers: %w", err)
	}
	if err := jobqueue.EnsureTopics(ctx, cfg.Kafka.Brokers, []string{cfg.Kafka.DocumentTopic, cfg.Kafka.CodebaseTopic}, 1, 1); err != nil {
		return fmt.Errorf("ensure kafka topics: %w", err)
	}
	producer := jobqueue.NewProducer(cfg.Kafka.Brokers)
	defer func() {
		if err := producer.Close(); err != nil {
			log.Error().Err(err).Msg("gateway: error closing kafka producer")
		}
	}()

	server := httpapi.NewServer(&httpapi.Server{
		Router:        mdl,
		Proxy:         proxy,
		Composer:      composer,
		Promoter:      promoter,
		Sessions:      sessions,
		ShortTerm:     shortTerm,
		Blobs:         blobs,
		Jobs:          jobs,
		Producer:      producer,
		DocumentTopic: cfg.Kafka.DocumentTopic,
		CodebaseTopic: cfg.Kafka.CodebaseTopic,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("gateway: listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("gateway: shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("gateway: graceful shutdown failed")
		}
		return nil
	case err := <-serveErr:
		return err
	}
}

// newBlobStore selects the document blob backend per BLOB_BACKEND.
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

// newRecallStore selects the recall-memory vector backend per
// RECALL_VECTOR_BACKEND. The returned persistence.RecallStore is nil-safe:
// SessionStore is always usable even when pgvector isn't the active choice,
// but only one of the two is wired into the composer's Recall field.
func newRecallStore(ctx context.Context, cfg config.Config, sessions *persistence.SessionStore) (persistence.RecallStore, func(), error) {
	switch cfg.Recall.VectorBackend {
	case "qdrant":
		store, err := persistence.NewQdrantRecallStore(ctx, cfg.Recall.QdrantAddr, cfg.Recall.QdrantAPIKey, "", cfg.Database.VectorDim)
		if err != nil {
			return nil, nil, fmt.Errorf("new qdrant recall store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return sessions, nil, nil
	}
}
