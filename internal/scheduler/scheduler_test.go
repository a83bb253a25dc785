package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentpool-backend/internal/logging"
)

type fakeResetter struct {
	calls atomic.Int32
	err   error
}

func (f *fakeResetter) ResetPeriod(_ context.Context, _ time.Time) (int, error) {
	f.calls.Add(1)
	return 1, f.err
}

type fakeCleaner struct{ calls atomic.Int32 }

func (f *fakeCleaner) CleanUpExpired() { f.calls.Add(1) }

func TestStartRunsResetImmediately(t *testing.T) {
	r := &fakeResetter{}
	s := New(r, &fakeCleaner{}, "@monthly", logging.Discard())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Equal(t, 2, s.Entries())
	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStartWithoutCleaner(t *testing.T) {
	s := New(&fakeResetter{}, nil, "", logging.Discard())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Equal(t, 1, s.Entries())
}

func TestStartInvalidSpec(t *testing.T) {
	s := New(&fakeResetter{}, nil, "every now and then", logging.Discard())
	assert.Error(t, s.Start(context.Background()))
}

func TestJobsFire(t *testing.T) {
	r := &fakeResetter{err: errors.New("db down")}
	s := New(r, nil, "@every 1s", logging.Discard())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
}
