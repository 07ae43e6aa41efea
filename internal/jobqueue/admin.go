package jobqueue

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/segmentio/kafka-go"
)

// CheckBrokers dials each broker until one succeeds or timeout elapses,
// used at startup so the worker fails fast on a misconfigured cluster.
func CheckBrokers(ctx context.Context, brokers []string, timeout time.Duration) error {
	if len(brokers) == 0 {
		return fmt.Errorf("jobqueue: no brokers configured")
	}
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		for _, b := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", b)
			if err == nil {
				_ = conn.Close()
				return nil
			}
			lastErr = err
		}
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("jobqueue: failed to reach any broker within %s: %w", timeout, lastErr)
}

// EnsureTopics creates the ingest.document/ingest.codebase topics (and any
// others passed) if they do not already exist.
func EnsureTopics(ctx context.Context, brokers []string, topics []string, partitions, replicationFactor int) error {
	if len(brokers) == 0 {
		return fmt.Errorf("jobqueue: no brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("jobqueue: dial broker %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("jobqueue: get controller: %w", err)
	}
	controllerAddr := net.JoinHostPort(controller.Host, fmt.Sprint(controller.Port))

	ctrlConn, err := kafka.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("jobqueue: dial controller %s: %w", controllerAddr, err)
	}
	defer ctrlConn.Close()

	for _, topic := range topics {
		parts, err := ctrlConn.ReadPartitions(topic)
		if err == nil && len(parts) > 0 {
			continue
		}
		cfg := kafka.TopicConfig{Topic: topic, NumPartitions: partitions, ReplicationFactor: replicationFactor}
		if err := ctrlConn.CreateTopics(cfg); err != nil {
			return fmt.Errorf("jobqueue: create topic %s: %w", topic, err)
		}
	}
	return nil
}
