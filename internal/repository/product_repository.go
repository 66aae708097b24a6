package repository

import (
	"context"
	"errors"
	"time"

	"cp360/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	CategoryID *int64
	Status     *model.ProductStatus
	IDs        []int64
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	//削除されていない商品を新しい順で返す。
	ListActive(ctx context.Context, q ProductListQuery) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	//approve/rejectで使う。遷移ガードは置かない（上書き）。
	UpdateStatus(ctx context.Context, id int64, status model.ProductStatus, actorID int64) error

	SoftDelete(ctx context.Context, id int64, actorID int64, now time.Time) error
	HardDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64, actorID int64) (model.Product, error)
}
