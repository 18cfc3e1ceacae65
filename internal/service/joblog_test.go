package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/mealbyme/backend/internal/service"
)

func TestMemoryJobLedger(t *testing.T) {
	ledger := service.NewMemoryJobLedger()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		n, err := ledger.RecordAttempt(ctx, "run_1")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	ok, err := ledger.Claim(ctx, "run_1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = ledger.Claim(ctx, "run_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Release(ctx, "run_1"))
	ok, err = ledger.Claim(ctx, "run_1")
	require.NoError(t, err)
	assert.True(t, ok)

	done, err := ledger.IsDone(ctx, "run_1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, ledger.MarkDone(ctx, "run_1"))
	done, err = ledger.IsDone(ctx, "run_1")
	require.NoError(t, err)
	assert.True(t, done)

	n, err := ledger.RecordAttempt(ctx, "run_1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryJobLedgerSingleClaimUnderContention(t *testing.T) {
	ledger := service.NewMemoryJobLedger()
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := ledger.Claim(context.Background(), "run_x"); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)
}
