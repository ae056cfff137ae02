package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ThreadForge/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue is a Redis-list backed work queue. Producers LPUSH envelopes,
// workers BRPOP and dispatch to registered jobs by message type. Failed
// messages are re-queued until the retry limit is hit.
type RedisQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	client    *redis.Client
	jobs      map[string]Job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	cancel    context.CancelFunc
	ctx       context.Context
	keyPrefix string
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets custom key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keyPrefix = prefix
	}
}

// NewRedisQueue creates a new Redis queue.
func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	rq := &RedisQueue{
		logger:    lgr,
		config:    config,
		client:    client,
		jobs:      make(map[string]Job),
		ctx:       ctx,
		cancel:    cancel,
		keyPrefix: "threadforge:queue",
	}

	for _, opt := range opts {
		opt(rq)
	}

	return rq
}

// RegisterJobs registers multiple jobs.
func (r *RedisQueue) RegisterJobs(jobs []Job) {
	for _, job := range jobs {
		r.RegisterJob(job)
	}
}

// RegisterJob registers a single job.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.Type()] = job
}

// PublishMessage enqueues a message for asynchronous processing.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	msg := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}

	return r.client.LPush(ctx, r.listKey(), data).Err()
}

// Start launches worker goroutines.
func (r *RedisQueue) Start() {
	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.logger.Info("queue workers started", logger.Int("workers", r.config.Workers))
}

// Stop signals workers and waits for them to drain.
func (r *RedisQueue) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		res, err := r.client.BRPop(r.ctx, 2*time.Second, r.listKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			r.logger.Warn("queue pop error", logger.Error(err), logger.Int("worker", id))
			time.Sleep(time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.logger.Error("queue message decode failed", logger.Error(err))
			continue
		}

		r.dispatch(&msg)
	}
}

func (r *RedisQueue) dispatch(msg *Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("no job registered for message type", logger.String("type", msg.Type))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := job.Handle(ctx, msg.Payload); err != nil {
		msg.Attempts++
		if msg.Attempts >= r.config.RetryLimit {
			r.logger.Error("queue message dropped after retries",
				logger.String("type", msg.Type),
				logger.String("id", msg.ID),
				logger.Int("attempts", msg.Attempts),
				logger.Error(err),
			)
			return
		}

		r.logger.Warn("queue job failed, requeueing",
			logger.String("type", msg.Type),
			logger.Int("attempt", msg.Attempts),
			logger.Error(err),
		)

		time.Sleep(r.config.RetryDelay)
		data, merr := json.Marshal(msg)
		if merr != nil {
			return
		}
		_ = r.client.LPush(context.Background(), r.listKey(), data).Err()
	}
}

func (r *RedisQueue) listKey() string {
	return r.keyPrefix + ":messages"
}
