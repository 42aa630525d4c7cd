// Package queue distributes recording analysis jobs over Redis lists.
package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"demostats/internal/logging"
)

const (
	retrySuffix        = ":retry"
	dlqSuffix          = ":dlq"
	retryCounterSuffix = ":retry-count:"
	maxRetryAttempts   = 3
	retryCounterTTL    = 24 * time.Hour
	brPopBlock         = 5 * time.Second
)

// Handler processes one job payload.
type Handler func(payload []byte) error

// DemoQueue is a job queue on a Redis list with a retry list and a dead
// letter list beside it.
type DemoQueue struct {
	client *redis.Client
	name   string
	log    logging.Interface
}

// New returns a queue on the list named name.
func New(client *redis.Client, name string) *DemoQueue {
	return &DemoQueue{client: client, name: name, log: logging.Logger()}
}

// RetryKey names the list of jobs awaiting another attempt.
func (q *DemoQueue) RetryKey() string { return q.name + retrySuffix }

// DLQKey names the list of jobs that exhausted their attempts.
func (q *DemoQueue) DLQKey() string { return q.name + dlqSuffix }

// Enqueue pushes a JSON-encoded job.
func (q *DemoQueue) Enqueue(ctx context.Context, job any) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Consume runs handler on jobs one at a time until ctx is cancelled.
func (q *DemoQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		payload, err := q.pop(ctx)
		if err != nil {
			return err
		}
		if payload != nil {
			q.run(ctx, handler, payload, "consumer")
		}
	}
}

// ConsumeConcurrent feeds jobs to workerCount goroutines until ctx is cancelled.
func (q *DemoQueue) ConsumeConcurrent(ctx context.Context, workerCount, bufferSize int, handler Handler) error {
	jobs := make(chan []byte, bufferSize)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			name := fmt.Sprintf("worker %d", workerID)
			for payload := range jobs {
				q.run(ctx, handler, payload, name)
			}
			q.log.Infof("%s: exiting", name)
		}(i)
	}
	q.log.Infof("started %d workers for queue %s", workerCount, q.name)

	defer func() {
		close(jobs)
		wg.Wait()
	}()
	for {
		payload, err := q.pop(ctx)
		if err != nil {
			return err
		}
		if payload == nil {
			continue
		}
		select {
		case jobs <- payload:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pop blocks for the next job, retries first. A nil payload with a nil
// error means nothing arrived in time.
func (q *DemoQueue) pop(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		q.log.Warnf("redis consumer exiting: %v", err)
		return nil, err
	}
	result, err := q.client.BRPop(ctx, brPopBlock, q.RetryKey(), q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctx.Err() != nil {
			q.log.Warnf("redis BRPOP canceled: %v", ctx.Err())
			return nil, ctx.Err()
		}
		q.log.Warnf("redis BRPOP error: %v", err)
		return nil, nil
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

func (q *DemoQueue) run(ctx context.Context, handler Handler, payload []byte, who string) {
	if err := handler(payload); err != nil {
		q.log.Warnf("%s: handler error, scheduling retry: %v", who, err)
		if err := q.retry(ctx, payload); err != nil {
			q.log.Errorf("%s: retry handling failed: %v", who, err)
		}
		return
	}
	_ = q.clearRetryCounter(ctx, payload)
}

func (q *DemoQueue) retry(ctx context.Context, payload []byte) error {
	attempt, err := q.client.Incr(ctx, q.retryCounterKey(payload)).Result()
	if err != nil {
		return err
	}
	_ = q.client.Expire(ctx, q.retryCounterKey(payload), retryCounterTTL).Err()

	if attempt > maxRetryAttempts {
		q.log.Warnf("moving job to DLQ after %d attempts", attempt-1)
		_ = q.client.LPush(ctx, q.DLQKey(), payload).Err()
		return q.clearRetryCounter(ctx, payload)
	}
	return q.client.LPush(ctx, q.RetryKey(), payload).Err()
}

func (q *DemoQueue) clearRetryCounter(ctx context.Context, payload []byte) error {
	return q.client.Del(ctx, q.retryCounterKey(payload)).Err()
}

func (q *DemoQueue) retryCounterKey(payload []byte) string {
	sum := sha256.Sum256(payload)
	return q.name + retryCounterSuffix + hex.EncodeToString(sum[:])
}
