package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSyncJob_Lifecycle(t *testing.T) {
	job := NewSyncJob()
	assert.Equal(t, SyncJobStatusPending, job.Status)
	assert.Nil(t, job.StartedAt)

	job.Start()
	assert.Equal(t, SyncJobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)

	job.Complete(42)
	assert.Equal(t, SyncJobStatusSuccess, job.Status)
	assert.Equal(t, 42, job.OrderCount)
	require.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.Error)
}

func TestSyncJob_Fail(t *testing.T) {
	job := NewSyncJob()
	job.Start()
	job.Fail("upstream unavailable")

	assert.Equal(t, SyncJobStatusFailed, job.Status)
	assert.Equal(t, "upstream unavailable", job.Error)
	require.NotNil(t, job.CompletedAt)
}

func TestSyncScheduler_TriggerNow(t *testing.T) {
	sched := NewSyncScheduler(time.Hour, SyncExecutorFunc(func(ctx context.Context) (int, error) {
		return 7, nil
	}), zap.NewNop())

	job := sched.TriggerNow(context.Background())
	assert.Equal(t, SyncJobStatusSuccess, job.Status)
	assert.Equal(t, 7, job.OrderCount)

	history := sched.GetJobHistory(10)
	require.Len(t, history, 1)
	assert.Equal(t, job.ID, history[0].ID)
}

func TestSyncScheduler_TriggerNowFailure(t *testing.T) {
	sched := NewSyncScheduler(time.Hour, SyncExecutorFunc(func(ctx context.Context) (int, error) {
		return 0, errors.New("fetch failed")
	}), zap.NewNop())

	job := sched.TriggerNow(context.Background())
	assert.Equal(t, SyncJobStatusFailed, job.Status)
	assert.Equal(t, "fetch failed", job.Error)
}

func TestSyncScheduler_HistoryNewestFirst(t *testing.T) {
	var runs atomic.Int32
	sched := NewSyncScheduler(time.Hour, SyncExecutorFunc(func(ctx context.Context) (int, error) {
		return int(runs.Add(1)), nil
	}), zap.NewNop())

	sched.TriggerNow(context.Background())
	sched.TriggerNow(context.Background())
	sched.TriggerNow(context.Background())

	history := sched.GetJobHistory(2)
	require.Len(t, history, 2)
	assert.Equal(t, 3, history[0].OrderCount)
	assert.Equal(t, 2, history[1].OrderCount)
}

func TestSyncScheduler_PeriodicRuns(t *testing.T) {
	var runs atomic.Int32
	sched := NewSyncScheduler(20*time.Millisecond, SyncExecutorFunc(func(ctx context.Context) (int, error) {
		runs.Add(1)
		return 0, nil
	}), zap.NewNop())

	sched.Start(context.Background())
	defer sched.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncScheduler_StartIsIdempotent(t *testing.T) {
	sched := NewSyncScheduler(time.Hour, SyncExecutorFunc(func(ctx context.Context) (int, error) {
		return 0, nil
	}), zap.NewNop())

	sched.Start(context.Background())
	sched.Start(context.Background())

	require.NoError(t, sched.Stop(context.Background()))
	// stopping twice is a no-op
	require.NoError(t, sched.Stop(context.Background()))
}
