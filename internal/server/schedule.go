package server

import (
	"context"
	"time"

	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/queue"
	"github.com/shashiranjanraj/billbook/pkg/schedule"
	"gorm.io/gorm"
)

// Scheduler registers the recurring maintenance tasks.
func Scheduler(db *gorm.DB, failedJobRetention time.Duration) (*schedule.Scheduler, error) {
	s := schedule.New()
	err := s.Hourly().
		Name("prune_failed_jobs").
		WithoutOverlapping().
		Run(pruneFailedJobs(db, failedJobRetention, time.Now))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func pruneFailedJobs(db *gorm.DB, retention time.Duration, now func() time.Time) schedule.Task {
	return func(ctx context.Context) error {
		n, err := queue.PruneFailed(ctx, db, now().Add(-retention))
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("pruned failed jobs", "count", n)
		}
		return nil
	}
}
