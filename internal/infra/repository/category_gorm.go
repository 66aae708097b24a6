package repository

import (
	"context"
	"errors"
	"time"

	"cp360/internal/domain/model"
	repo "cp360/internal/repository"

	"gorm.io/gorm"
)

type CategoryGormRepository struct {
	db *gorm.DB
}

// DI
func NewCategoryGormRepository(db *gorm.DB) *CategoryGormRepository {
	return &CategoryGormRepository{db: db}
}

// 未削除カテゴリを新しい順で返す。
func (r *CategoryGormRepository) ListActive(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	err := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("created_at desc").Order("id desc").
		Find(&cats).Error
	if err != nil {
		return nil, err
	}
	return cats, nil
}

// IDでカテゴリを取得（削除済みも含む。restoreで使う）。
func (r *CategoryGormRepository) FindByID(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Category{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Category{}, err
	}
	return c, nil
}

// カテゴリの作成
func (r *CategoryGormRepository) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Category{}, err
	}
	return c, nil
}

// カテゴリの更新
func (r *CategoryGormRepository) Update(ctx context.Context, c model.Category) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"name":       c.Name,
		"updated_by": c.UpdatedBy,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// カテゴリと配下の未削除商品をまとめて論理削除する（単段カスケード）。
func (r *CategoryGormRepository) SoftDeleteCascade(ctx context.Context, id int64, actorID int64, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Category{}).
			Where("id = ? AND is_deleted = ?", id, false).
			Updates(map[string]interface{}{
				"is_deleted": true,
				"deleted_at": now,
				"updated_by": actorID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		//配下の未削除商品も論理削除
		err := tx.Model(&model.Product{}).
			Where("category_id = ? AND is_deleted = ?", id, false).
			Updates(map[string]interface{}{
				"is_deleted": true,
				"deleted_at": now,
				"updated_by": actorID,
			}).Error
		return err
	})
}

// 物理削除。先に配下の商品と動画を消す。
func (r *CategoryGormRepository) HardDeleteCascade(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var productIDs []int64
		if err := tx.Model(&model.Product{}).
			Where("category_id = ?", id).
			Pluck("id", &productIDs).Error; err != nil {
			return err
		}

		if len(productIDs) > 0 {
			if err := tx.Where("product_id IN ?", productIDs).
				Delete(&model.ProductVideo{}).Error; err != nil {
				return err
			}
			if err := tx.Where("category_id = ?", id).
				Delete(&model.Product{}).Error; err != nil {
				return err
			}
		}

		res := tx.Delete(&model.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

// 論理削除を解除する。配下の商品は触らない。
func (r *CategoryGormRepository) Restore(ctx context.Context, id int64, actorID int64) (model.Category, error) {
	res := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_deleted": false,
			"deleted_at": nil,
			"updated_by": actorID,
		})
	if res.Error != nil {
		return model.Category{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Category{}, repo.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// 未削除の商品数（導出値）。
func (r *CategoryGormRepository) CountActiveProducts(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("category_id = ? AND is_deleted = ?", categoryID, false).
		Count(&n).Error
	return n, err
}
