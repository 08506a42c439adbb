package server

import (
	"context"
	"testing"
	"time"

	"github.com/shashiranjanraj/billbook/internal/testdb"
	"github.com/shashiranjanraj/billbook/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneFailedJobsKeepsRecentFailures(t *testing.T) {
	db := testdb.Open(t)
	require.NoError(t, db.AutoMigrate(&queue.FailedJobRecord{}))

	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&[]queue.FailedJobRecord{
		{JobType: "refresh_dashboard", Payload: "{}", FailedAt: now.Add(-10 * 24 * time.Hour)},
		{JobType: "refresh_dashboard", Payload: "{}", FailedAt: now.Add(-time.Hour)},
	}).Error)

	task := pruneFailedJobs(db, 7*24*time.Hour, func() time.Time { return now })
	require.NoError(t, task(context.Background()))

	var left []queue.FailedJobRecord
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.WithinDuration(t, now.Add(-time.Hour), left[0].FailedAt, time.Second)
}

func TestSchedulerRegistersMaintenanceTasks(t *testing.T) {
	s, err := Scheduler(testdb.Open(t), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"prune_failed_jobs [1h0m0s]"}, s.List())
}
