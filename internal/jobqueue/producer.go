// Package jobqueue re-expresses the ingest job queue's at-least-once,
// work-queue-semantics contract on Kafka: ingest.document/ingest.codebase
// become topics, the durable pull-subscriber becomes a consumer-group
// reader, and the job row's attempts column (not a broker redelivery
// counter) is the source of truth for max_redeliveries.
package jobqueue

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// Job types carried in the wire envelope.
const (
	TypeDocument = "document"
	TypeCodebase = "codebase"
)

// Message is the wire envelope published to ingest.document/ingest.codebase.
type Message struct {
	JobID string `json:"job_id"`
	Type  string `json:"type"`
}

// Producer publishes job envelopes after the job row has been durably
// written in state queued.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish writes {job_id, type} to topic, keyed by job id so redeliveries
// of the same job stay on one partition.
func (p *Producer) Publish(ctx context.Context, topic, jobID, jobType string) error {
	payload, err := json.Marshal(Message{JobID: jobID, Type: jobType})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(jobID),
		Value: payload,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
