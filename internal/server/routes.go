package server

import (
	"cp360/internal/config"
	"cp360/internal/handler"
	"cp360/internal/middleware"
	"cp360/internal/repository"

	"github.com/labstack/echo/v4"
)

// /api 配下のルート登録。
func registerRoutes(
	e *echo.Echo,
	cfg config.Config,
	users repository.UserRepository,
	authH *handler.AuthHandler,
	adminUserH *handler.AdminUserHandler,
	categoryH *handler.CategoryHandler,
	productH *handler.ProductHandler,
) {
	authRequired := middleware.AuthJWT(cfg, users)
	authOptional := middleware.OptionalAuthJWT(cfg, users)

	api := e.Group("/api")

	//認証・プロフィール
	userG := api.Group("/users")
	userG.POST("/register/", authH.Register, authOptional)
	userG.POST("/login/", authH.Login)
	userG.GET("/profile/", authH.Profile, authRequired)
	userG.PATCH("/profile/", authH.UpdateProfile, authRequired)
	userG.POST("/profile/password/", authH.ChangePassword, authRequired)

	//ユーザー管理（admin専用）
	adminG := api.Group("/users", authRequired, middleware.AdminRoleGuard())
	adminG.GET("/audit-logs/", adminUserH.ListAuditLogs)
	adminG.GET("/:id/", adminUserH.Get)
	adminG.PATCH("/:id/", adminUserH.Update)
	adminG.PUT("/:id/", adminUserH.Update)
	adminG.PATCH("/:id/status/", adminUserH.SetStatus)
	adminG.PUT("/:id/status/", adminUserH.SetStatus)

	//カテゴリ
	catG := api.Group("/categories", authRequired)
	catG.GET("/", categoryH.List)
	catG.POST("/", categoryH.Create)
	catG.GET("/export/", categoryH.ExportCSV)
	catG.GET("/:id/", categoryH.Get)
	catG.PATCH("/:id/", categoryH.Update)
	catG.DELETE("/:id/", categoryH.Delete)
	catG.POST("/:id/restore/", categoryH.Restore)

	//商品
	prodG := api.Group("/products", authRequired)
	prodG.GET("/", productH.List)
	prodG.POST("/", productH.Create)
	prodG.GET("/export/", productH.ExportCSV)
	prodG.GET("/:id/", productH.Get)
	prodG.PATCH("/:id/", productH.Update)
	prodG.DELETE("/:id/", productH.Delete)
	prodG.POST("/:id/restore/", productH.Restore)
	prodG.POST("/:id/approve/", productH.Approve, middleware.StaffRoleGuard())
	prodG.POST("/:id/reject/", productH.Reject, middleware.StaffRoleGuard())
	prodG.DELETE("/:id/videos/:video_id/", productH.DeleteVideo)
}
