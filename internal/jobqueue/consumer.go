package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"memgate/internal/observability"
	"memgate/internal/persistence"
)

// Handler performs the actual ingest work for a job once the state machine
// has transitioned it to processing (C11 step 5); Consumer owns parsing,
// lookup, idempotence, attempts bookkeeping, and the commit/redeliver
// decision around it.
type Handler interface {
	HandleDocument(ctx context.Context, job persistence.Job) (result map[string]any, err error)
	HandleCodebase(ctx context.Context, job persistence.Job) (result map[string]any, err error)
}

// Consumer runs the ingest worker's pull loop: a fixed pool of workers
// draining one reader per topic, each message driven through the job state
// machine before being committed or left uncommitted for consumer-group
// redelivery, grounded on the teacher's Kafka command-worker-pool shape.
type Consumer struct {
	readers         []*kafka.Reader
	jobs            *persistence.JobStore
	handler         Handler
	workerCount     int
	maxRedeliveries int
}

func NewConsumer(brokers []string, groupID string, topics []string, jobs *persistence.JobStore, handler Handler, workerCount, maxRedeliveries int) *Consumer {
	readers := make([]*kafka.Reader, 0, len(topics))
	for _, topic := range topics {
		readers = append(readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}))
	}
	if workerCount <= 0 {
		workerCount = 4
	}
	if maxRedeliveries <= 0 {
		maxRedeliveries = 3
	}
	return &Consumer{readers: readers, jobs: jobs, handler: handler, workerCount: workerCount, maxRedeliveries: maxRedeliveries}
}

type readerMsg struct {
	reader *kafka.Reader
	msg    kafka.Message
}

// Run fetches from every topic's reader into a shared worker pool until ctx
// is canceled, then drains in-flight work before returning.
func (c *Consumer) Run(ctx context.Context) error {
	bufSize := c.workerCount * 4
	if bufSize < 64 {
		bufSize = 64
	}
	msgs := make(chan readerMsg, bufSize)

	var fetchWG sync.WaitGroup
	for _, r := range c.readers {
		fetchWG.Add(1)
		go func(r *kafka.Reader) {
			defer fetchWG.Done()
			c.fetchLoop(ctx, r, msgs)
		}(r)
	}

	var workerWG sync.WaitGroup
	workerWG.Add(c.workerCount)
	for i := 0; i < c.workerCount; i++ {
		go func() {
			defer workerWG.Done()
			for m := range msgs {
				c.process(ctx, m)
			}
		}()
	}

	fetchWG.Wait()
	close(msgs)
	workerWG.Wait()

	for _, r := range c.readers {
		_ = r.Close()
	}
	return ctx.Err()
}

func (c *Consumer) fetchLoop(ctx context.Context, r *kafka.Reader, out chan<- readerMsg) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("jobqueue: fetch error")
			continue
		}
		select {
		case out <- readerMsg{reader: r, msg: m}:
		case <-ctx.Done():
			return
		}
	}
}

// process drives one message through the queued -> processing ->
// completed/failed state machine described in the ingest worker spec.
func (c *Consumer) process(ctx context.Context, rm readerMsg) {
	log := observability.LoggerWithTrace(ctx)

	var envelope Message
	if err := json.Unmarshal(rm.msg.Value, &envelope); err != nil {
		log.Warn().Err(err).Msg("jobqueue: malformed payload, dropping")
		c.commit(ctx, rm)
		return
	}

	job, err := c.jobs.GetByID(ctx, envelope.JobID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			log.Warn().Str("job_id", envelope.JobID).Msg("jobqueue: job row missing, dropping")
			c.commit(ctx, rm)
			return
		}
		log.Error().Err(err).Str("job_id", envelope.JobID).Msg("jobqueue: lookup failed, leaving uncommitted")
		return
	}

	if job.Status == persistence.JobCompleted {
		c.commit(ctx, rm)
		return
	}

	attempts, err := c.jobs.MarkProcessing(ctx, job.ID)
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("jobqueue: mark processing failed, leaving uncommitted")
		return
	}
	job.Attempts = attempts
	job.Status = persistence.JobProcessing

	result, dispatchErr := c.dispatch(ctx, job)
	if dispatchErr == nil {
		if err := c.jobs.MarkCompleted(ctx, job.ID, result); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("jobqueue: mark completed failed, leaving uncommitted")
			return
		}
		c.commit(ctx, rm)
		return
	}

	log.Warn().Err(dispatchErr).Str("job_id", job.ID).Int("attempts", attempts).Msg("jobqueue: job failed")
	if err := c.jobs.MarkFailed(ctx, job.ID, dispatchErr.Error()); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("jobqueue: mark failed failed, leaving uncommitted")
		return
	}

	if attempts < c.maxRedeliveries {
		if err := c.jobs.Requeue(ctx, job.ID); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("jobqueue: requeue failed, leaving uncommitted")
			return
		}
		// Leave uncommitted: the consumer group redelivers this message, and
		// step 4 (MarkProcessing) will bump attempts again on re-entry.
		return
	}

	// attempts exhausted: terminal failure, commit so it is never retried again.
	c.commit(ctx, rm)
}

func (c *Consumer) dispatch(ctx context.Context, job persistence.Job) (map[string]any, error) {
	switch job.JobType {
	case TypeDocument:
		return c.handler.HandleDocument(ctx, job)
	case TypeCodebase:
		return c.handler.HandleCodebase(ctx, job)
	default:
		return nil, fmt.Errorf("jobqueue: unknown job type %q", job.JobType)
	}
}

func (c *Consumer) commit(ctx context.Context, rm readerMsg) {
	if err := rm.reader.CommitMessages(ctx, rm.msg); err != nil {
		observability.LoggerWithTrace(ctx).Error().Err(err).Msg("jobqueue: commit failed")
	}
}
