package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseDSN(t *testing.T) {
	os.Unsetenv("DATABASE_DSN")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://localhost/test")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("BLOB_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "postgres", cfg.Blob.Backend)
	require.Equal(t, 10, cfg.Thresholds.PromoteAfterTurns)
	require.Equal(t, 20, cfg.Thresholds.ArchivalAfterTurns)
	require.Equal(t, 3, cfg.Thresholds.MaxRedeliveries)
}

func TestLoadParsesCommaSeparatedBrokers(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://localhost/test")
	t.Setenv("KAFKA_BROKERS", " broker-a:9092 , broker-b:9092,")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"broker-a:9092", "broker-b:9092"}, cfg.Kafka.Brokers)
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	require.Equal(t, "", firstNonEmpty("", "  "))
}
