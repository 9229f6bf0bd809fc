package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncJobStatus represents the status of a commerce sync run
type SyncJobStatus string

const (
	SyncJobStatusPending SyncJobStatus = "PENDING"
	SyncJobStatusRunning SyncJobStatus = "RUNNING"
	SyncJobStatusSuccess SyncJobStatus = "SUCCESS"
	SyncJobStatusFailed  SyncJobStatus = "FAILED"
)

// SyncJob records one commerce sync run for monitoring
type SyncJob struct {
	ID          uuid.UUID
	Status      SyncJobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time

	// Number of orders reconciled into the store
	OrderCount int
}

// NewSyncJob creates a pending sync job
func NewSyncJob() *SyncJob {
	return &SyncJob{
		ID:     uuid.New(),
		Status: SyncJobStatusPending,
	}
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *SyncJob) Complete(orderCount int) {
	now := time.Now()
	j.Status = SyncJobStatusSuccess
	j.OrderCount = orderCount
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *SyncJob) Fail(err string) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// SyncExecutor runs one commerce sync and reports how many orders it
// reconciled.
type SyncExecutor interface {
	Execute(ctx context.Context) (int, error)
}

// SyncExecutorFunc adapts a function to the SyncExecutor interface
type SyncExecutorFunc func(ctx context.Context) (int, error)

// Execute implements SyncExecutor
func (f SyncExecutorFunc) Execute(ctx context.Context) (int, error) {
	return f(ctx)
}

// SyncScheduler triggers a commerce sync on a fixed interval. Runs never
// overlap: the next tick waits for the previous run to finish.
type SyncScheduler struct {
	interval time.Duration
	timeout  time.Duration
	executor SyncExecutor
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Job history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*SyncJob
	maxHistory int
}

// NewSyncScheduler creates a new scheduler. The timeout bounds a single run;
// zero means a quarter of the interval.
func NewSyncScheduler(interval time.Duration, executor SyncExecutor, logger *zap.Logger) *SyncScheduler {
	timeout := interval / 4
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &SyncScheduler{
		interval:   interval,
		timeout:    timeout,
		executor:   executor,
		logger:     logger,
		history:    make([]*SyncJob, 0, 50),
		maxHistory: 50,
	}
}

// Start starts the periodic loop
func (s *SyncScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Commerce sync scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("run_timeout", s.timeout),
	)
}

// Stop gracefully stops the scheduler, waiting for an in-flight run
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Commerce sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Commerce sync scheduler stop timed out")
		return ctx.Err()
	}
}

// TriggerNow runs a sync outside the regular schedule and returns its job
// record.
func (s *SyncScheduler) TriggerNow(ctx context.Context) *SyncJob {
	return s.runOnce(ctx)
}

// GetJobHistory returns recent runs, newest first
func (s *SyncScheduler) GetJobHistory(limit int) []*SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]*SyncJob, limit)
	copy(result, s.history[:limit])
	return result
}

func (s *SyncScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SyncScheduler) runOnce(ctx context.Context) *SyncJob {
	job := NewSyncJob()
	job.Start()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	count, err := s.executor.Execute(runCtx)
	if err != nil {
		job.Fail(err.Error())
		s.logger.Error("Commerce sync run failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	} else {
		job.Complete(count)
		s.logger.Info("Commerce sync run completed",
			zap.String("job_id", job.ID.String()),
			zap.Int("order_count", count),
		)
	}

	s.addToHistory(job)
	return job
}

func (s *SyncScheduler) addToHistory(job *SyncJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*SyncJob{job}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}
