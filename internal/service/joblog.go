package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/mealbyme/backend/internal/types"
)

const (
	jobAttemptsTTL = time.Hour
	jobClaimTTL    = 2 * time.Minute
	jobDoneTTL     = 24 * time.Hour
)

// GenerationJob is what Submit records about a run: the thread it lives on,
// the plan it fills and, for a swap, the slot it replaces.
type GenerationJob struct {
	ThreadID   string          `json:"threadId"`
	MealPlanID uuid.UUID       `json:"mealPlanId"`
	Swap       *types.SwapMeal `json:"swap,omitempty"`
}

// JobLedger tracks poll attempts and materialization ownership per run so
// that concurrent or repeated polls materialize a run at most once.
type JobLedger interface {
	// Bind records the job a run was started for.
	Bind(ctx context.Context, runID string, job GenerationJob) error
	// Lookup returns the job bound to a run, or nil if none is known.
	Lookup(ctx context.Context, runID string) (*GenerationJob, error)
	// RecordAttempt increments and returns the poll attempt count of a run.
	RecordAttempt(ctx context.Context, runID string) (int, error)
	// Claim reports whether the caller now owns materialization of the run.
	Claim(ctx context.Context, runID string) (bool, error)
	Release(ctx context.Context, runID string) error
	MarkDone(ctx context.Context, runID string) error
	IsDone(ctx context.Context, runID string) (bool, error)
	// Forget drops everything known about a run that ended without output.
	Forget(ctx context.Context, runID string) error
}

// RedisJobLedger keeps the ledger in Redis so every API instance shares it.
type RedisJobLedger struct {
	client *redis.Client
}

func NewRedisJobLedger(client *redis.Client) *RedisJobLedger {
	return &RedisJobLedger{client: client}
}

func jobKey(runID, suffix string) string {
	return fmt.Sprintf("generation:run:%s:%s", runID, suffix)
}

func (l *RedisJobLedger) Bind(ctx context.Context, runID string, job GenerationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := l.client.Set(ctx, jobKey(runID, "job"), data, jobDoneTTL).Err(); err != nil {
		return fmt.Errorf("failed to bind run: %w", err)
	}
	return nil
}

func (l *RedisJobLedger) Lookup(ctx context.Context, runID string) (*GenerationJob, error) {
	data, err := l.client.Get(ctx, jobKey(runID, "job")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job: %w", err)
	}
	var job GenerationJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

func (l *RedisJobLedger) RecordAttempt(ctx context.Context, runID string) (int, error) {
	key := jobKey(runID, "attempts")
	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, jobAttemptsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to record poll attempt: %w", err)
	}
	return int(incr.Val()), nil
}

func (l *RedisJobLedger) Claim(ctx context.Context, runID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, jobKey(runID, "claim"), time.Now().UTC().Format(time.RFC3339), jobClaimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim run: %w", err)
	}
	return ok, nil
}

func (l *RedisJobLedger) Release(ctx context.Context, runID string) error {
	return l.client.Del(ctx, jobKey(runID, "claim")).Err()
}

func (l *RedisJobLedger) MarkDone(ctx context.Context, runID string) error {
	pipe := l.client.TxPipeline()
	pipe.Set(ctx, jobKey(runID, "done"), "1", jobDoneTTL)
	pipe.Expire(ctx, jobKey(runID, "job"), jobDoneTTL)
	pipe.Del(ctx, jobKey(runID, "attempts"))
	_, err := pipe.Exec(ctx)
	return err
}

func (l *RedisJobLedger) IsDone(ctx context.Context, runID string) (bool, error) {
	n, err := l.client.Exists(ctx, jobKey(runID, "done")).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read run state: %w", err)
	}
	return n > 0, nil
}

func (l *RedisJobLedger) Forget(ctx context.Context, runID string) error {
	return l.client.Del(ctx,
		jobKey(runID, "job"),
		jobKey(runID, "attempts"),
		jobKey(runID, "claim"),
	).Err()
}

type memoryRun struct {
	job      *GenerationJob
	attempts int
	claimed  bool
	done     bool
	touched  time.Time
}

// MemoryJobLedger is the single-process ledger used when Redis is not
// configured, and in tests. Runs untouched for a day are dropped.
type MemoryJobLedger struct {
	mu   sync.Mutex
	runs map[string]*memoryRun
	now  func() time.Time
}

func NewMemoryJobLedger() *MemoryJobLedger {
	return &MemoryJobLedger{
		runs: make(map[string]*memoryRun),
		now:  time.Now,
	}
}

// run returns the entry for runID, creating it when create is set. Callers
// hold l.mu.
func (l *MemoryJobLedger) run(runID string, create bool) *memoryRun {
	now := l.now()
	for id, r := range l.runs {
		if now.Sub(r.touched) > jobDoneTTL {
			delete(l.runs, id)
		}
	}
	r, ok := l.runs[runID]
	if !ok {
		if !create {
			return nil
		}
		r = &memoryRun{}
		l.runs[runID] = r
	}
	r.touched = now
	return r
}

func (l *MemoryJobLedger) Bind(_ context.Context, runID string, job GenerationJob) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if job.Swap != nil {
		swap := *job.Swap
		job.Swap = &swap
	}
	l.run(runID, true).job = &job
	return nil
}

func (l *MemoryJobLedger) Lookup(_ context.Context, runID string) (*GenerationJob, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.run(runID, false)
	if r == nil || r.job == nil {
		return nil, nil
	}
	job := *r.job
	return &job, nil
}

func (l *MemoryJobLedger) RecordAttempt(_ context.Context, runID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.run(runID, true)
	r.attempts++
	return r.attempts, nil
}

func (l *MemoryJobLedger) Claim(_ context.Context, runID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.run(runID, true)
	if r.claimed {
		return false, nil
	}
	r.claimed = true
	return true, nil
}

func (l *MemoryJobLedger) Release(_ context.Context, runID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r := l.run(runID, false); r != nil {
		r.claimed = false
	}
	return nil
}

func (l *MemoryJobLedger) MarkDone(_ context.Context, runID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.run(runID, true)
	r.done = true
	r.attempts = 0
	return nil
}

func (l *MemoryJobLedger) IsDone(_ context.Context, runID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.run(runID, false)
	return r != nil && r.done, nil
}

func (l *MemoryJobLedger) Forget(_ context.Context, runID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.runs, runID)
	return nil
}
