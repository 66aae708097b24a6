package middleware

import (
	"cp360/internal/config"
	"cp360/internal/repository"

	"github.com/labstack/echo/v4"
)

// 匿名でも通すJWTミドルウェア。
// ヘッダが無ければそのまま先へ、あれば通常どおり検証する（不正なtokenは401）。
// 会員登録エンドポイントで使う。匿名はend_user固定、admin認証済みならrole指定可。
func OptionalAuthJWT(cfg config.Config, users repository.UserRepository) echo.MiddlewareFunc {
	required := AuthJWT(cfg, users)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := required(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			return withAuth(c)
		}
	}
}
