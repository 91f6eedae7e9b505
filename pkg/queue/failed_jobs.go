package queue

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// FailedJobRecord is a row in failed_jobs.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"autoCreateTime"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

func persistFailed(ctx context.Context, db *gorm.DB, env envelope, err error, attempts int) {
	rec := FailedJobRecord{
		JobType:  env.Type,
		Payload:  string(env.Payload),
		Attempts: attempts,
		FailedAt: time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if dbErr := db.WithContext(ctx).Create(&rec).Error; dbErr != nil {
		logger.WithCtx(ctx).Error("queue: persist failed job", "type", env.Type, "error", dbErr)
	}
}
