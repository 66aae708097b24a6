package handler

import (
	"bytes"
	"net/http"

	"cp360/internal/middleware"
	"cp360/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /api/categories/ 配下のカテゴリAPI。
type CategoryHandler struct {
	uc *usecase.CategoryUsecase
}

// DI
func NewCategoryHandler(uc *usecase.CategoryUsecase) *CategoryHandler {
	return &CategoryHandler{uc: uc}
}

// GET /api/categories/
func (h *CategoryHandler) List(c echo.Context) error {
	actor := middleware.CurrentUser(c)
	out, err := h.uc.List(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/categories/:id/
func (h *CategoryHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	actor := middleware.CurrentUser(c)
	out, err := h.uc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/categories/
func (h *CategoryHandler) Create(c echo.Context) error {
	var req usecase.CategoryInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	actor := middleware.CurrentUser(c)
	out, err := h.uc.Create(c.Request().Context(), actor, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// PATCH /api/categories/:id/
func (h *CategoryHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req usecase.CategoryInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	actor := middleware.CurrentUser(c)
	out, err := h.uc.Update(c.Request().Context(), actor, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /api/categories/:id/（論理削除、配下の商品も連動）
func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	actor := middleware.CurrentUser(c)
	if err := h.uc.Delete(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /api/categories/:id/restore/
func (h *CategoryHandler) Restore(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	actor := middleware.CurrentUser(c)
	out, err := h.uc.Restore(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/categories/export/?include_products=true&product_ids=1,2
func (h *CategoryHandler) ExportCSV(c echo.Context) error {
	includeProducts := c.QueryParam("include_products") == "true"

	productIDs, err := parseIDList(c.QueryParam("product_ids"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_ids"})
	}

	actor := middleware.CurrentUser(c)

	//エラー時にヘッダを汚さないよう、いったんバッファへ書き出す
	var buf bytes.Buffer
	if err := h.uc.ExportCSV(c.Request().Context(), actor, &buf, includeProducts, productIDs); err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="categories.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
