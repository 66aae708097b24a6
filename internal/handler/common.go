package handler

import (
	"net/http"
	"strconv"
	"strings"

	"cp360/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type FieldErrorResponse struct {
	Errors map[string]string `json:"errors"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// usecaseのエラーをHTTPレスポンスへ変換する。
// バリデーションエラーはフィールド別のmapで返す。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if len(he.Fields) > 0 {
			return c.JSON(he.Status, FieldErrorResponse{Errors: he.Fields})
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// pathパラメータのIDをint64で取り出す。
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// "1,2,3" 形式のクエリをint64リストへ。空なら nil。
func parseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
