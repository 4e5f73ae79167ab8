package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail = "jobs:email"

	JobResumenCambios = "resumen_cambios"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP. Without Redis, jobs run inline
// in a goroutine on the given EmailWorker.
type Dispatcher struct {
	rdb   *redis.Client
	email *EmailWorker
}

func NewDispatcher(rdb *redis.Client, email *EmailWorker) *Dispatcher {
	return &Dispatcher{rdb: rdb, email: email}
}

// EnqueueEmail pushes an email job.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if d.rdb == nil {
		go d.email.Process(context.Background(), data)
		return nil
	}
	job := Job{Type: JobResumenCambios, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueEmail, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming the email queue.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, email *EmailWorker) {
	if rdb == nil {
		log.Info().Msg("worker pool disabled: no redis, jobs run inline")
		return
	}
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, email)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, email *EmailWorker) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueEmail).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, result[0], result[1], email)
		}
	}
}

func processJob(ctx context.Context, queue, raw string, email *EmailWorker) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	switch job.Type {
	case JobResumenCambios:
		email.Process(ctx, job.Payload)
	default:
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("unknown job type, dropping")
	}
}
