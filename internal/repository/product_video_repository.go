package repository

import (
	"context"
	"time"

	"cp360/internal/domain/model"
)

// 商品動画の永続化を約束。
type ProductVideoRepository interface {
	Create(ctx context.Context, v model.ProductVideo) (model.ProductVideo, error)
	FindByID(ctx context.Context, id int64) (model.ProductVideo, error)
	ListActiveByProduct(ctx context.Context, productID int64) ([]model.ProductVideo, error)
	//未削除動画の合計サイズ（20MB上限チェック用）。
	SumActiveSizeByProduct(ctx context.Context, productID int64) (int64, error)
	SoftDelete(ctx context.Context, id int64, now time.Time) error
}
