package repository

import (
	"context"
	"time"

	"cp360/internal/domain/model"
)

// カテゴリの永続化（保存・取得）だけを約束。
// 論理削除は明示メソッドに分ける（一括deleteのデフォルトはソフト側）。
type CategoryRepository interface {
	//削除されていないカテゴリを新しい順で返す。
	ListActive(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)

	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error

	//カテゴリと配下の未削除商品をまとめて論理削除する（単段カスケード）。
	SoftDeleteCascade(ctx context.Context, id int64, actorID int64, now time.Time) error
	//物理削除。先に配下の商品（と動画）を物理削除する。
	HardDeleteCascade(ctx context.Context, id int64) error
	//論理削除を解除する。配下の商品はそのまま。
	Restore(ctx context.Context, id int64, actorID int64) (model.Category, error)

	//未削除の商品数（導出値。保存はしない）。
	CountActiveProducts(ctx context.Context, categoryID int64) (int64, error)
}
