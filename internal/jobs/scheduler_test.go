package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingSweeper struct {
	runs    atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
	hold    time.Duration
}

func (s *countingSweeper) Run(context.Context) error {
	if s.running.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.running.Add(-1)
	s.runs.Add(1)
	time.Sleep(s.hold)
	return nil
}

func TestSchedulerRunsSweep(t *testing.T) {
	defer goleak.VerifyNone(t)

	sw := &countingSweeper{hold: 2500 * time.Millisecond}
	s := NewScheduler(sw, "@every 1s", time.UTC)
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return sw.runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(1500 * time.Millisecond)
	s.Stop()

	// Проход дольше интервала: следующие запуски пропускаются
	assert.False(t, sw.overlap.Load())
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(&countingSweeper{}, "every minute", time.UTC)
	assert.Error(t, s.Start(context.Background()))
}
