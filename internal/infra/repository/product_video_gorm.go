package repository

import (
	"context"
	"errors"
	"time"

	"cp360/internal/domain/model"
	repo "cp360/internal/repository"

	"gorm.io/gorm"
)

type ProductVideoGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductVideoGormRepository(db *gorm.DB) *ProductVideoGormRepository {
	return &ProductVideoGormRepository{db: db}
}

func (r *ProductVideoGormRepository) Create(ctx context.Context, v model.ProductVideo) (model.ProductVideo, error) {
	if err := r.db.WithContext(ctx).Create(&v).Error; err != nil {
		return model.ProductVideo{}, err
	}
	return v, nil
}

func (r *ProductVideoGormRepository) FindByID(ctx context.Context, id int64) (model.ProductVideo, error) {
	var v model.ProductVideo
	err := r.db.WithContext(ctx).First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductVideo{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductVideo{}, err
	}
	return v, nil
}

// 未削除の動画を古い順で返す。
func (r *ProductVideoGormRepository) ListActiveByProduct(ctx context.Context, productID int64) ([]model.ProductVideo, error) {
	var videos []model.ProductVideo
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_deleted = ?", productID, false).
		Order("id asc").
		Find(&videos).Error
	if err != nil {
		return nil, err
	}
	return videos, nil
}

// 未削除動画の合計サイズ。
func (r *ProductVideoGormRepository) SumActiveSizeByProduct(ctx context.Context, productID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.ProductVideo{}).
		Where("product_id = ? AND is_deleted = ?", productID, false).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	return total, err
}

func (r *ProductVideoGormRepository) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.ProductVideo{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
