package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AttemptBatchSize    = 50
	AttemptBatchTimeout = 2 * time.Second
	AttemptPollTimeout  = 1 * time.Second
	// AttemptMaxRetries is how many failed flushes a record survives before
	// it is parked on the dead-letter queue.
	AttemptMaxRetries = 5
)

// queuedAttempt is the queue payload: the record plus its failed flush count.
// Fresh records are enqueued without the counter.
type queuedAttempt struct {
	*model.AttemptRecord
	Retries int `json:"retries,omitempty"`
}

// AttemptWriter persists attempt records. Inserts must ignore ids that
// already exist so a requeued record is stored once.
type AttemptWriter interface {
	InsertBatch(ctx context.Context, attempts []*model.AttemptRecord) error
	Insert(ctx context.Context, a *model.AttemptRecord) error
}

// AttemptWorker drains the attempt queue into Postgres.
type AttemptWorker struct {
	store AttemptWriter
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewAttemptWorker(store AttemptWriter, rdb *redis.Client, log zerolog.Logger) *AttemptWorker {
	return &AttemptWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "attempt_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *AttemptWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AttemptWorker started")

	batch := make([]*queuedAttempt, 0, AttemptBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AttemptBatchSize || time.Since(lastFlush) >= AttemptBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AttemptPollTimeout, config.WorkerKey.PersistAttemptsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			if q := w.decode(ctx, item[1]); q != nil {
				batch = append(batch, q)
			}
		}
	}
}

// decode parses a queued payload. Unreadable payloads go to the dead-letter
// queue instead of blocking the batch.
func (w *AttemptWorker) decode(ctx context.Context, raw string) *queuedAttempt {
	var q queuedAttempt
	err := json.Unmarshal([]byte(raw), &q)
	if err == nil && q.AttemptRecord == nil {
		err = errors.New("empty attempt payload")
	}
	if err != nil {
		w.log.Error().Err(err).Msg("Invalid attempt payload, moving to dead-letter queue")
		w.rdb.RPush(ctx, config.WorkerKey.DeadAttemptsQueue, raw)
		return nil
	}
	return &q
}

// ----------------------------------------------------------------
// Batch insert with single-row fallback
// ----------------------------------------------------------------

func (w *AttemptWorker) flushSafe(ctx context.Context, batch []*queuedAttempt) {
	if len(batch) == 0 {
		return
	}

	records := make([]*model.AttemptRecord, len(batch))
	for i, q := range batch {
		records[i] = q.AttemptRecord
	}

	if err := w.store.InsertBatch(ctx, records); err != nil {
		w.log.Warn().Err(err).Int("size", len(batch)).Msg("bulk attempt insert failed, using fallback")

		for _, q := range batch {
			if err := w.store.Insert(ctx, q.AttemptRecord); err != nil {
				w.retry(ctx, q, err)
			}
		}
		return
	}

	w.log.Debug().Int("size", len(batch)).Msg("Attempts persisted")
}

// retry requeues a failed record, or dead-letters it once it has used up
// AttemptMaxRetries.
func (w *AttemptWorker) retry(ctx context.Context, q *queuedAttempt, cause error) {
	q.Retries++
	raw, _ := json.Marshal(q)

	if q.Retries >= AttemptMaxRetries {
		w.log.Error().Err(cause).
			Str("attempt_id", q.ID.String()).
			Int("retries", q.Retries).
			Msg("attempt insert keeps failing, moving to dead-letter queue")
		w.rdb.RPush(ctx, config.WorkerKey.DeadAttemptsQueue, string(raw))
		return
	}

	w.log.Error().Err(cause).
		Str("attempt_id", q.ID.String()).
		Int("retries", q.Retries).
		Msg("attempt insert failed, requeueing")
	w.rdb.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, string(raw))
}
