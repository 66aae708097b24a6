package handler

import (
	"net/http"

	"cp360/internal/middleware"
	"cp360/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /api/users/ 配下の認証・プロフィールAPI。
type AuthHandler struct {
	uc *usecase.AuthUsecase
}

// DI
func NewAuthHandler(uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// POST /api/users/register/
// 匿名でも叩ける。adminの認証付きならrole指定を受け付ける。
func (h *AuthHandler) Register(c echo.Context) error {
	var req usecase.RegisterInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	actor := middleware.CurrentUser(c)
	out, err := h.uc.Register(c.Request().Context(), actor, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// POST /api/users/login/
func (h *AuthHandler) Login(c echo.Context) error {
	var req usecase.LoginInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	out, err := h.uc.Login(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/users/profile/
func (h *AuthHandler) Profile(c echo.Context) error {
	actor := middleware.CurrentUser(c)
	out, err := h.uc.Profile(c.Request().Context(), actor.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// PATCH /api/users/profile/（部分更新）
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req usecase.UpdateProfileInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	actor := middleware.CurrentUser(c)
	out, err := h.uc.UpdateProfile(c.Request().Context(), actor.ID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/users/profile/password/
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req usecase.ChangePasswordInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	actor := middleware.CurrentUser(c)
	if err := h.uc.ChangePassword(c.Request().Context(), actor.ID, req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password updated successfully."})
}
