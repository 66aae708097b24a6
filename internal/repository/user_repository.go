package repository

import (
	"context"

	"cp360/internal/domain/model"
)

// ユーザーの保存・取得を約束。Find系は見つからなければ (nil, nil)。
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールから1件取得（大文字小文字を無視）。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//ユーザー名から1件取得（大文字小文字を無視）。
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	//電話番号から1件取得（完全一致）。
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	// ユーザー情報の更新=>プロフィール変更・ロール変更・最終ログイン更新など
	Update(ctx context.Context, user *model.User) error
}
