package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"cp360/internal/validation"
)

type HTTPError struct {
	Status  int
	Message string
	//validation失敗のときだけ入る（field→message）
	Fields validation.FieldErrors
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// 400 + フィールド別メッセージ。
func NewValidationError(fields validation.FieldErrors) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: "validation error",
		Fields:  fields,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}
