package repository

import (
	"context"
	"time"

	"cp360/internal/domain/model"
	repo "cp360/internal/repository"

	"gorm.io/gorm"
)

type VideoJobGormRepository struct {
	db *gorm.DB
}

// DI
func NewVideoJobGormRepository(db *gorm.DB) *VideoJobGormRepository {
	return &VideoJobGormRepository{db: db}
}

func (r *VideoJobGormRepository) Create(ctx context.Context, job model.VideoJob) error {
	return r.db.WithContext(ctx).Create(&job).Error
}

// pendingを古い順で返す（dispatcherのポーリング用）。
func (r *VideoJobGormRepository) ListPending(ctx context.Context, limit int) ([]model.VideoJob, error) {
	if limit <= 0 {
		limit = 50
	}

	var jobs []model.VideoJob
	err := r.db.WithContext(ctx).
		Where("status = ?", model.VideoJobPending).
		Order("created_at asc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *VideoJobGormRepository) MarkDispatched(ctx context.Context, jobID string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.VideoJob{}).
		Where("id = ? AND status = ?", jobID, model.VideoJobPending).
		Updates(map[string]interface{}{
			"status":        model.VideoJobDispatched,
			"dispatched_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
