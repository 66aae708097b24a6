package handler

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"cp360/internal/middleware"
	"cp360/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /api/products/ 配下の商品API。
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// GET /api/products/?category=1&status=uploaded
func (h *ProductHandler) List(c echo.Context) error {
	in := usecase.ProductListInput{Status: c.QueryParam("status")}

	if v := c.QueryParam("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid category"})
		}
		in.CategoryID = &id
	}

	actor := middleware.CurrentUser(c)
	out, err := h.uc.List(c.Request().Context(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/products/:id/
func (h *ProductHandler) Get(c echo.Context) error {
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

// POST /api/products/（multipart。video_filesで動画を添付できる）
func (h *ProductHandler) Create(c echo.Context) error {
	in, files, err := bindProductForm(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	actor := middleware.CurrentUser(c)
	out, err := h.uc.Create(c.Request().Context(), actor, in, files)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// PATCH /api/products/:id/（multipart。動画の追加もここで受ける）
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	in, files, err := bindProductForm(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	actor := middleware.CurrentUser(c)
	out, err := h.uc.Update(c.Request().Context(), actor, id, in, files)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /api/products/:id/（論理削除）
func (h *ProductHandler) Delete(c echo.Context) error {
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

// POST /api/products/:id/restore/
func (h *ProductHandler) Restore(c echo.Context) error {
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

// POST /api/products/:id/approve/
func (h *ProductHandler) Approve(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	actor := middleware.CurrentUser(c)
	out, err := h.uc.Approve(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/products/:id/reject/
func (h *ProductHandler) Reject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	actor := middleware.CurrentUser(c)
	out, err := h.uc.Reject(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /api/products/:id/videos/:video_id/
func (h *ProductHandler) DeleteVideo(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	videoID, err := pathID(c, "video_id")
	if err != nil {
		return err
	}

	actor := middleware.CurrentUser(c)
	if err := h.uc.DeleteVideo(c.Request().Context(), actor, id, videoID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /api/products/export/?product_ids=1,2
func (h *ProductHandler) ExportCSV(c echo.Context) error {
	productIDs, err := parseIDList(c.QueryParam("product_ids"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_ids"})
	}

	actor := middleware.CurrentUser(c)

	//エラー時にヘッダを汚さないよう、いったんバッファへ書き出す
	var buf bytes.Buffer
	if err := h.uc.ExportCSV(c.Request().Context(), actor, &buf, productIDs); err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

// multipartフォームから商品フィールドとvideo_filesを取り出す。
// multipartでないリクエスト（JSONのみ）はBindにフォールバック。
func bindProductForm(c echo.Context) (usecase.ProductInput, []usecase.VideoFile, error) {
	var in usecase.ProductInput

	form, err := c.MultipartForm()
	if err != nil {
		//JSONボディ
		if bindErr := c.Bind(&in); bindErr != nil {
			return in, nil, bindErr
		}
		return in, nil, nil
	}

	in.Title = c.FormValue("title")
	in.Description = c.FormValue("description")
	in.Price = c.FormValue("price")
	in.Status = c.FormValue("status")
	if v := c.FormValue("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return in, nil, err
		}
		in.Category = id
	}

	headers := form.File["video_files"]
	files := make([]usecase.VideoFile, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, usecase.VideoFile{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return in, files, nil
}
