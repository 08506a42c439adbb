package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalTaskRunsRepeatedly(t *testing.T) {
	s := New(WithTick(5 * time.Millisecond))
	var runs atomic.Int32
	require.NoError(t, s.Every(10*time.Millisecond).Name("count").Run(func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestFailingAndPanickingTasksKeepSchedulerAlive(t *testing.T) {
	s := New(WithTick(5 * time.Millisecond))
	var ok atomic.Int32
	require.NoError(t, s.Every(5*time.Millisecond).Run(func(context.Context) error { panic("boom") }))
	require.NoError(t, s.Every(5*time.Millisecond).Run(func(context.Context) error { return errors.New("nope") }))
	require.NoError(t, s.Every(5*time.Millisecond).Run(func(context.Context) error {
		ok.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	assert.Eventually(t, func() bool { return ok.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestWithoutOverlappingSkipsBusyTask(t *testing.T) {
	s := New(WithTick(2 * time.Millisecond))
	var started atomic.Int32
	release := make(chan struct{})
	require.NoError(t, s.Every(time.Millisecond).WithoutOverlapping().Run(func(context.Context) error {
		started.Add(1)
		<-release
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, started.Load())
	close(release)
	cancel()
	<-done
}

func TestRunRejectsBadSchedules(t *testing.T) {
	s := New()
	noop := func(context.Context) error { return nil }
	assert.Error(t, s.Every(0).Run(noop))
	assert.Error(t, s.Cron("* * *").Run(noop))
	assert.Error(t, s.Cron("*/0 * * * *").Run(noop))
	assert.Error(t, s.Cron("5-1 * * * *").Run(noop))
	assert.NoError(t, s.Cron("0,30 2 * * 1-5").Name("nightly").Run(noop))
	assert.Equal(t, []string{"nightly [0,30 2 * * 1-5]"}, s.List())
}

func TestMatchCron(t *testing.T) {
	mon := time.Date(2026, 3, 2, 2, 30, 0, 0, time.UTC) // a Monday
	assert.True(t, matchCron("30 2 * * 1", mon))
	assert.True(t, matchCron("*/15 * * * *", mon))
	assert.True(t, matchCron("0,30 1-3 2 3 *", mon))
	assert.False(t, matchCron("31 2 * * *", mon))
	assert.False(t, matchCron("30 2 * * 0", mon))
}

func TestCronFiresOncePerMinute(t *testing.T) {
	e := &entry{cronExpr: "* * * * *"}
	now := time.Date(2026, 3, 2, 2, 30, 5, 0, time.UTC)
	assert.True(t, e.due(now))

	e.lastRun = now
	assert.False(t, e.due(now.Add(30*time.Second)))
	assert.True(t, e.due(now.Add(time.Minute)))
}
