package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryJobLedgerForgetDropsRun(t *testing.T) {
	ledger := NewMemoryJobLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Bind(ctx, "run_1", GenerationJob{ThreadID: "thread_1", MealPlanID: uuid.New()}))
	_, err := ledger.RecordAttempt(ctx, "run_1")
	require.NoError(t, err)
	_, err = ledger.Claim(ctx, "run_1")
	require.NoError(t, err)

	require.NoError(t, ledger.Forget(ctx, "run_1"))

	assert.Empty(t, ledger.runs)
	job, err := ledger.Lookup(ctx, "run_1")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestMemoryJobLedgerPrunesAbandonedRuns(t *testing.T) {
	ledger := NewMemoryJobLedger()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	require.NoError(t, ledger.Bind(ctx, "run_old", GenerationJob{ThreadID: "thread_1", MealPlanID: uuid.New()}))
	_, err := ledger.RecordAttempt(ctx, "run_old")
	require.NoError(t, err)

	now = now.Add(jobDoneTTL + time.Minute)
	require.NoError(t, ledger.Bind(ctx, "run_new", GenerationJob{ThreadID: "thread_2", MealPlanID: uuid.New()}))

	assert.Len(t, ledger.runs, 1)
	assert.Contains(t, ledger.runs, "run_new")
}

func TestMemoryJobLedgerLookupReturnsCopy(t *testing.T) {
	ledger := NewMemoryJobLedger()
	ctx := context.Background()
	require.NoError(t, ledger.Bind(ctx, "run_1", GenerationJob{ThreadID: "thread_1"}))

	job, err := ledger.Lookup(ctx, "run_1")
	require.NoError(t, err)
	job.ThreadID = "changed"

	again, err := ledger.Lookup(ctx, "run_1")
	require.NoError(t, err)
	assert.Equal(t, "thread_1", again.ThreadID)
}
