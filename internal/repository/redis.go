package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coachsync/internal/config"
	"coachsync/internal/models"

	"github.com/redis/go-redis/v9"
)

const jobRunKeyPrefix = "coachsync:job_runs:"

// RedisJobRunRepository keeps the newest runs of each job in a capped Redis list.
type RedisJobRunRepository struct {
	client *redis.Client
	size   int
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// NewRedisJobRunRepository keeps up to size runs per job. A zero ttl keeps
// the lists forever.
func NewRedisJobRunRepository(client *redis.Client, size int, ttl time.Duration) *RedisJobRunRepository {
	if size <= 0 {
		size = models.JobHistorySize
	}
	return &RedisJobRunRepository{
		client: client,
		size:   size,
		ttl:    ttl,
	}
}

func (r *RedisJobRunRepository) RecordRun(ctx context.Context, run models.JobRun) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal job run: %w", err)
	}

	key := jobRunKeyPrefix + run.Job
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(r.size-1))
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record job run in redis: %w", err)
	}
	return nil
}

// LastRun returns nil, nil when the job has never run.
func (r *RedisJobRunRepository) LastRun(ctx context.Context, job string) (*models.JobRun, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.LIndex(ctx, jobRunKeyPrefix+job, 0).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last job run from redis: %w", err)
	}

	var run models.JobRun
	if err := json.Unmarshal([]byte(val), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job run: %w", err)
	}
	return &run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (r *RedisJobRunRepository) RecentRuns(ctx context.Context, job string, limit int) ([]models.JobRun, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if limit <= 0 || limit > r.size {
		limit = r.size
	}
	vals, err := r.client.LRange(ctx, jobRunKeyPrefix+job, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list job runs from redis: %w", err)
	}

	runs := make([]models.JobRun, 0, len(vals))
	for _, val := range vals {
		var run models.JobRun
		if err := json.Unmarshal([]byte(val), &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
