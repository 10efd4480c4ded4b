package license

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreReadBeforeInit(t *testing.T) {
	s := NewMemoryStore()
	rec, err := s.Read(context.Background())
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMemoryStoreReplaceSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	trialExpiry := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	first := &Record{State: StateTrial, TrialExpiresAt: trialExpiry}
	require.NoError(t, s.Replace(ctx, 0, first))
	assert.Equal(t, int64(1), first.Revision)

	// Creating again must conflict: exactly one record per deployment.
	dup := &Record{State: StateTrial, TrialExpiresAt: trialExpiry}
	assert.ErrorIs(t, s.Replace(ctx, 0, dup), ErrRevisionConflict)

	// Stale revision must conflict.
	stale := first.Clone()
	stale.State = StateExpired
	assert.ErrorIs(t, s.Replace(ctx, 99, stale), ErrRevisionConflict)

	// Matching revision wins and bumps.
	next := first.Clone()
	next.State = StateExpired
	require.NoError(t, s.Replace(ctx, 1, next))
	assert.Equal(t, int64(2), next.Revision)

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateExpired, got.State)
	assert.Equal(t, int64(2), got.Revision)
}

func TestMemoryStoreReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Replace(ctx, 0, &Record{State: StateTrial}))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	got.State = StateRevoked

	again, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateTrial, again.State)
}

func TestMemoryStoreConcurrentReplaceSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Replace(ctx, 0, &Record{State: StateTrial}))

	const writers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := &Record{State: StateActivated, Customer: "st-mary-parish"}
			if err := s.Replace(ctx, 1, rec); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count)
}
