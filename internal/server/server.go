package server

import (
	"net/http"

	"cp360/internal/config"
	"cp360/internal/handler"
	"cp360/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// APIサーバーの組み立てと起動。
type Server struct {
	echo *echo.Echo
	cfg  config.Config
}

func New(
	cfg config.Config,
	users repository.UserRepository,
	authH *handler.AuthHandler,
	adminUserH *handler.AdminUserHandler,
	categoryH *handler.CategoryHandler,
	productH *handler.ProductHandler,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	registerRoutes(e, cfg, users, authH, adminUserH, categoryH, productH)

	return &Server{echo: e, cfg: cfg}
}

func (s *Server) Start() error {
	return s.echo.Start(":" + s.cfg.Port)
}
