package repository

import (
	"context"
	"testing"
	"time"

	"coachsync/internal/config"
	"coachsync/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisJobRunRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	repo := NewRedisJobRunRepository(client, 3, time.Hour)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("LastRunEmpty", func(t *testing.T) {
		got, err := repo.LastRun(ctx, models.JobSessionReminders)
		require.NoError(t, err)
		assert.Nil(t, got)

		runs, err := repo.RecentRuns(ctx, models.JobSessionReminders, 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("RecordAndRead", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			run := models.JobRun{
				Job:       models.JobSessionReminders,
				StartedAt: base.Add(time.Duration(i) * time.Minute),
				Duration:  time.Second,
			}
			if i == 4 {
				run.Error = "boom"
			}
			require.NoError(t, repo.RecordRun(ctx, run))
		}

		last, err := repo.LastRun(ctx, models.JobSessionReminders)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.True(t, last.StartedAt.Equal(base.Add(4*time.Minute)))
		assert.True(t, last.Failed())

		runs, err := repo.RecentRuns(ctx, models.JobSessionReminders, 0)
		require.NoError(t, err)
		require.Len(t, runs, 3, "history is capped")
		assert.True(t, runs[2].StartedAt.Equal(base.Add(2*time.Minute)))

		runs, err = repo.RecentRuns(ctx, models.JobSessionReminders, 1)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("JobsAreSeparate", func(t *testing.T) {
		require.NoError(t, repo.RecordRun(ctx, models.JobRun{Job: models.JobDatabaseBackup, StartedAt: base}))

		runs, err := repo.RecentRuns(ctx, models.JobDatabaseBackup, 10)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("TTL", func(t *testing.T) {
		assert.Equal(t, time.Hour, s.TTL(jobRunKeyPrefix+models.JobDatabaseBackup))
		s.FastForward(time.Hour + time.Second)

		got, err := repo.LastRun(ctx, models.JobDatabaseBackup)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CorruptEntry", func(t *testing.T) {
		_, err := s.Lpush(jobRunKeyPrefix+"broken", "{not json")
		require.NoError(t, err)

		_, err = repo.LastRun(ctx, "broken")
		assert.Error(t, err)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisJobRunRepository(nil, 0, 0)
		_, err := repo.LastRun(ctx, models.JobSessionReminders)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
		assert.Error(t, repo.RecordRun(ctx, models.JobRun{Job: "x"}))
	})

	t.Run("ServerDown", func(t *testing.T) {
		s.SetError("LOADING")
		defer s.SetError("")

		err := repo.RecordRun(ctx, models.JobRun{Job: models.JobSessionReminders})
		assert.Error(t, err)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("Close", func(t *testing.T) {
		other := NewRedisClient(config.RedisConfig{Address: s.Addr()})
		assert.NoError(t, Close(other))
		assert.NoError(t, Close(nil))
	})
}

func TestMemoryJobRunRepository(t *testing.T) {
	repo := NewMemoryJobRunRepository(2)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	got, err := repo.LastRun(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordRun(ctx, models.JobRun{Job: "a", StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	got, err = repo.LastRun(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, base.Add(2*time.Minute), got.StartedAt)

	runs, err := repo.RecentRuns(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, base.Add(time.Minute), runs[1].StartedAt)

	runs[0].Error = "mutated"
	again, _ := repo.RecentRuns(ctx, "a", 1)
	assert.Empty(t, again[0].Error, "callers get a copy")
}
