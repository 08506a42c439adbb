package queue

import (
	"context"
	"time"

	"github.com/shashiranjanraj/billbook/pkg/logger"
	"gorm.io/gorm"
)

// FailedJobRecord is a job that exhausted its retries, kept for inspection.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"not null"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

// PersistFailures writes every exhausted job of m to db. The failed_jobs
// table is created by the migrations.
func PersistFailures(m *Manager, db *gorm.DB) {
	m.OnFailure(func(ctx context.Context, f FailedJob, payload []byte) {
		rec := FailedJobRecord{
			JobType:  f.Type,
			Payload:  string(payload),
			Attempts: f.Attempts,
			FailedAt: f.FailedAt,
		}
		if f.Err != nil {
			rec.Error = f.Err.Error()
		}
		if err := db.WithContext(context.WithoutCancel(ctx)).Create(&rec).Error; err != nil {
			logger.Error("queue: could not persist failed job", "type", f.Type, "error", err)
		}
	})
}

// PruneFailed deletes failed jobs recorded before cutoff and returns how
// many were removed.
func PruneFailed(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("failed_at < ?", cutoff).Delete(&FailedJobRecord{})
	return res.RowsAffected, res.Error
}
