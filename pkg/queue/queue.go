// Package queue runs background jobs with retries.
//
// Jobs are serialised to JSON with their Go type name, pushed to a Driver
// (in-memory or Redis) and decoded again by a registered factory on the
// worker side:
//
//	m := queue.NewManager(queue.NewMemoryDriver(1000))
//	m.Register(func() queue.Job { return &jobs.LowStockAlert{} })
//	go m.Work(ctx, 2)
//	_ = m.Dispatch(ctx, &jobs.LowStockAlert{ProductID: 7})
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// Job is a unit of background work. Returning an error schedules a retry.
type Job interface {
	Handle(ctx context.Context) error
}

// Driver stores serialised jobs.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is ready. A nil payload with a nil error
	// means the wait timed out.
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver can hold a payload until a point in time.
type DelayedDriver interface {
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

// FailedJob is a job that exhausted its retries.
type FailedJob struct {
	Type     string
	Payload  []byte
	Err      error
	Attempts int
	FailedAt time.Time
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var ErrUnregistered = errors.New("queue: job type is not registered")

// Manager dispatches jobs to its driver and runs workers against it.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	db       *gorm.DB

	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// NewManager returns a manager with three attempts and linear backoff.
func NewManager(d Driver) *Manager {
	return &Manager{
		driver:      d,
		registry:    make(map[string]func() Job),
		MaxAttempts: 3,
		Backoff:     func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
	}
}

// UseDB persists exhausted jobs to the failed_jobs table.
func (m *Manager) UseDB(db *gorm.DB) {
	m.mu.Lock()
	m.db = db
	m.mu.Unlock()
}

// Register makes the job type built by factory decodable by workers.
func (m *Manager) Register(factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[typeName(factory())] = factory
}

// Dispatch queues job for immediate processing.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	raw, err := encode(job)
	if err != nil {
		return err
	}
	return m.driver.Push(ctx, raw)
}

// DispatchAfter queues job to run after delay. Drivers without delayed
// support hold the job in a timer until ctx ends.
func (m *Manager) DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	raw, err := encode(job)
	if err != nil {
		return err
	}
	if dd, ok := m.driver.(DelayedDriver); ok {
		return dd.PushDelayed(ctx, raw, delay)
	}

	go func() {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			if err := m.driver.Push(ctx, raw); err != nil {
				logger.Error("queue: delayed dispatch failed", "type", typeName(job), "error", err)
			}
		}
	}()
	return nil
}

// Work runs n workers and blocks until ctx is done and they have stopped.
func (m *Manager) Work(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	logger.Info("queue: workers started", "count", n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.work(ctx)
		}()
	}
	wg.Wait()
	logger.Info("queue: workers stopped")
}

// FailedJobs returns the failures recorded by this process.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]FailedJob(nil), m.failed...)
}

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		raw, err := m.driver.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}
		m.process(ctx, raw)
	}
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		m.fail(ctx, env, ErrUnregistered, 0)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		m.fail(ctx, env, fmt.Errorf("queue: decode %s: %w", env.Type, err), 0)
		return
	}

	m.runWithRetry(ctx, job, env)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, env envelope) {
	log := logger.WithCtx(ctx).With("type", env.Type)
	start := time.Now()

	var lastErr error
	attempts := max(m.MaxAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = handle(ctx, job)
		if lastErr == nil {
			metrics.RecordQueueJob(env.Type, "success", start)
			log.Debug("queue: job processed", "attempt", attempt)
			return
		}
		log.Warn("queue: job failed", "attempt", attempt, "error", lastErr)
		if attempt < attempts && m.Backoff != nil {
			if !sleep(ctx, m.Backoff(attempt)) {
				break
			}
		}
	}

	metrics.RecordQueueJob(env.Type, "failed", start)
	m.fail(ctx, env, lastErr, attempts)
}

// handle runs the job, turning a panic into an error.
func handle(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queue: job panicked: %v", r)
		}
	}()
	return job.Handle(ctx)
}

func (m *Manager) fail(ctx context.Context, env envelope, err error, attempts int) {
	logger.WithCtx(ctx).Error("queue: job failed permanently", "type", env.Type, "attempts", attempts, "error", err)

	m.mu.Lock()
	m.failed = append(m.failed, FailedJob{
		Type: env.Type, Payload: env.Payload, Err: err, Attempts: attempts, FailedAt: time.Now(),
	})
	db := m.db
	m.mu.Unlock()

	if db != nil {
		persistFailed(ctx, db, env, err, attempts)
	}
}

func encode(job Job) ([]byte, error) {
	name := typeName(job)
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal %s: %w", name, err)
	}
	return json.Marshal(envelope{Type: name, Payload: payload})
}

func typeName(job Job) string { return fmt.Sprintf("%T", job) }

// sleep waits d or until ctx ends; it reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
