// Package config loads gateway and worker configuration from the process
// environment (with optional .env overlay), following the same env-driven
// idiom across both binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig configures the Postgres connection pool.
type DatabaseConfig struct {
	DSN         string
	MinConns    int32
	MaxConns    int32
	VectorDim   int
}

// RedisConfig configures the short-term buffer client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig configures the job-queue substrate.
type KafkaConfig struct {
	Brokers           []string
	GroupID           string
	DocumentTopic     string
	CodebaseTopic     string
	DLQSuffix         string
	WorkerCount       int
}

// BlobConfig selects and configures the blob storage backend.
type BlobConfig struct {
	Backend string // "postgres" | "s3"
	S3      S3Config
}

// S3Config configures the optional S3-compatible blob backend.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// UpstreamConfig holds endpoints for out-of-process collaborators.
type UpstreamConfig struct {
	EmbedderURL     string
	EmbedderModel   string
	SummarizerURL   string
	SummarizerModel string
	KGBaseURL       string
	PreprocessorURL string
}

// EmbeddingConfig configures a single HTTP embeddings endpoint call.
type EmbeddingConfig struct {
	BaseURL   string
	Path      string
	Model     string
	Timeout   int // seconds
	APIHeader string
	APIKey    string
	Headers   map[string]string
}

// Embedding derives the embedder HTTP client config from the upstream
// section, following the same Ollama-compatible /api/embed shape used by the
// rest of the gateway's backend calls.
func (u UpstreamConfig) Embedding() EmbeddingConfig {
	return EmbeddingConfig{
		BaseURL: u.EmbedderURL,
		Path:    "/api/embed",
		Model:   u.EmbedderModel,
		Timeout: 60,
	}
}

// RecallConfig selects and configures the recall-memory vector backend.
type RecallConfig struct {
	VectorBackend string // "pgvector" | "qdrant"
	QdrantAddr    string
	QdrantAPIKey  string
}

// Thresholds holds the tunable numeric knobs from spec §6.
type Thresholds struct {
	PromoteAfterTurns  int
	ArchivalAfterTurns int
	RecallTopK         int
	ArchivalTopK       int
	SessionTTL         time.Duration
	BatchSize          int
	MaxRedeliveries    int
	AckWaitSeconds     int
}

// Config is the top-level, fully-resolved configuration for both the
// gateway and the ingest worker binaries.
type Config struct {
	LogLevel string
	LogPath  string

	HTTPAddr string

	ModelRouterFile string

	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Blob       BlobConfig
	Recall     RecallConfig
	Upstream   UpstreamConfig
	Thresholds Thresholds

	OTelEndpoint string
}

// Load resolves Config from the environment, overlaying a local .env file
// when present (godotenv.Overload semantics: .env wins over a pre-set OS
// environment variable, so repo-local configuration is deterministic in
// development).
func Load() (Config, error) {
	overloadDotenv()

	cfg := Config{
		LogLevel:        firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		LogPath:         os.Getenv("LOG_PATH"),
		HTTPAddr:        firstNonEmpty(os.Getenv("HTTP_ADDR"), ":8080"),
		ModelRouterFile: firstNonEmpty(os.Getenv("MODEL_ROUTER_FILE"), "models.yaml"),
		OTelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	cfg.Database = DatabaseConfig{
		DSN:       os.Getenv("DATABASE_DSN"),
		MinConns:  int32(intFromEnv("DB_MIN_CONNS", 2)),
		MaxConns:  int32(intFromEnv("DB_MAX_CONNS", 10)),
		VectorDim: intFromEnv("SUMMARY_VECTOR_DIM", 1024),
	}
	if cfg.Database.DSN == "" {
		return cfg, fmt.Errorf("config: DATABASE_DSN is required")
	}

	cfg.Redis = RedisConfig{
		Addr:     firstNonEmpty(os.Getenv("REDIS_ADDR"), "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       intFromEnv("REDIS_DB", 0),
	}

	brokersCSV := firstNonEmpty(os.Getenv("KAFKA_BROKERS"), "localhost:9092")
	cfg.Kafka = KafkaConfig{
		Brokers:       parseCommaSeparatedList(brokersCSV),
		GroupID:       firstNonEmpty(os.Getenv("KAFKA_GROUP_ID"), "ingest-worker"),
		DocumentTopic: firstNonEmpty(os.Getenv("KAFKA_DOCUMENT_TOPIC"), "ingest.document"),
		CodebaseTopic: firstNonEmpty(os.Getenv("KAFKA_CODEBASE_TOPIC"), "ingest.codebase"),
		DLQSuffix:     firstNonEmpty(os.Getenv("KAFKA_DLQ_SUFFIX"), ".dlq"),
		WorkerCount:   intFromEnv("INGEST_WORKER_COUNT", 4),
	}

	cfg.Blob = BlobConfig{
		Backend: firstNonEmpty(strings.ToLower(os.Getenv("BLOB_BACKEND")), "postgres"),
		S3: S3Config{
			Bucket:          os.Getenv("BLOB_S3_BUCKET"),
			Region:          os.Getenv("BLOB_S3_REGION"),
			Endpoint:        os.Getenv("BLOB_S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("BLOB_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("BLOB_S3_SECRET_ACCESS_KEY"),
			UsePathStyle:    boolFromEnv("BLOB_S3_USE_PATH_STYLE", false),
		},
	}

	cfg.Recall = RecallConfig{
		VectorBackend: firstNonEmpty(strings.ToLower(os.Getenv("RECALL_VECTOR_BACKEND")), "pgvector"),
		QdrantAddr:    os.Getenv("QDRANT_ADDR"),
		QdrantAPIKey:  os.Getenv("QDRANT_API_KEY"),
	}

	cfg.Upstream = UpstreamConfig{
		EmbedderURL:     os.Getenv("EMBEDDER_URL"),
		EmbedderModel:   firstNonEmpty(os.Getenv("EMBEDDER_MODEL"), "nomic-embed-text"),
		SummarizerURL:   os.Getenv("SUMMARIZER_URL"),
		SummarizerModel: os.Getenv("SUMMARIZER_MODEL"),
		KGBaseURL:       os.Getenv("KG_BASE_URL"),
		PreprocessorURL: os.Getenv("PREPROCESSOR_URL"),
	}

	cfg.Thresholds = Thresholds{
		PromoteAfterTurns:  intFromEnv("PROMOTE_AFTER_TURNS", 10),
		ArchivalAfterTurns: intFromEnv("ARCHIVAL_AFTER_TURNS", 20),
		RecallTopK:         intFromEnv("RECALL_TOP_K", 3),
		ArchivalTopK:       intFromEnv("ARCHIVAL_TOP_K", 3),
		SessionTTL:         time.Duration(intFromEnv("SESSION_TTL_SECONDS", 7200)) * time.Second,
		BatchSize:          intFromEnv("BATCH_SIZE", 20),
		MaxRedeliveries:    intFromEnv("MAX_REDELIVERIES", 3),
		AckWaitSeconds:     intFromEnv("ACK_WAIT_SECONDS", 600),
	}

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func parseCommaSeparatedList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intFromEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
	}
	return def
}
