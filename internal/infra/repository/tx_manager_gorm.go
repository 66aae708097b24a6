package repository

import (
	"context"

	repo "cp360/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	products   repo.ProductRepository
	videos     repo.ProductVideoRepository
	videoJobs  repo.VideoJobRepository
	categories repo.CategoryRepository
}

func (r *txReposGorm) Products() repo.ProductRepository    { return r.products }
func (r *txReposGorm) Videos() repo.ProductVideoRepository { return r.videos }
func (r *txReposGorm) VideoJobs() repo.VideoJobRepository  { return r.videoJobs }
func (r *txReposGorm) Categories() repo.CategoryRepository { return r.categories }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			products:   NewProductGormRepository(tx),
			videos:     NewProductVideoGormRepository(tx),
			videoJobs:  NewVideoJobGormRepository(tx),
			categories: NewCategoryGormRepository(tx),
		}
		return fn(r)
	})
}
