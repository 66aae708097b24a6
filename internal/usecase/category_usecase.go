package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cp360/internal/authz"
	"cp360/internal/domain/model"
	"cp360/internal/repository"
	"cp360/internal/validation"

	"github.com/google/uuid"
)

type CategoryUsecase struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	users        repository.UserRepository
}

// DI
func NewCategoryUsecase(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	users repository.UserRepository,
) *CategoryUsecase {
	return &CategoryUsecase{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		users:        users,
	}
}

type CategoryDTO struct {
	ID            int64     `json:"id"`
	CategoryID    string    `json:"category_id"`
	Name          string    `json:"name"`
	User          int64     `json:"user"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CreatedBy     *string   `json:"created_by"`
	UpdatedBy     *string   `json:"updated_by"`
	ProductsCount int64     `json:"products_count"`
	IsDeleted     bool      `json:"is_deleted"`
}

type CategoryInput struct {
	Name string `json:"name"`
}

// 未削除カテゴリの一覧（新しい順）。
func (u *CategoryUsecase) List(ctx context.Context, actor *model.User) ([]CategoryDTO, error) {
	if !authz.Authorize(actor, authz.ActionView, "category") {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	cats, err := u.categoryRepo.ListActive(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	emails := newEmailResolver(u.users)
	out := make([]CategoryDTO, 0, len(cats))
	for _, c := range cats {
		dto, err := u.toDTO(ctx, c, emails)
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}

func (u *CategoryUsecase) Get(ctx context.Context, actor *model.User, id int64) (*CategoryDTO, error) {
	if !authz.Authorize(actor, authz.ActionView, "category") {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	c, err := u.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	dto, err := u.toDTO(ctx, c, newEmailResolver(u.users))
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// カテゴリ作成。所有者はトークンのユーザー。
func (u *CategoryUsecase) Create(ctx context.Context, actor *model.User, in CategoryInput) (*CategoryDTO, error) {
	if !authz.Authorize(actor, authz.ActionCreate, "category") {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	if errs := validateCategoryName(in.Name); errs != nil {
		return nil, NewValidationError(errs)
	}

	c := model.Category{
		CategoryID: uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		UserID:     actor.ID,
	}
	c.CreatedBy = &actor.ID
	c.UpdatedBy = &actor.ID

	created, err := u.categoryRepo.Create(ctx, c)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	dto, err := u.toDTO(ctx, created, newEmailResolver(u.users))
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (u *CategoryUsecase) Update(ctx context.Context, actor *model.User, id int64, in CategoryInput) (*CategoryDTO, error) {
	if !authz.Authorize(actor, authz.ActionModify, "category") {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	c, err := u.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	if errs := validateCategoryName(in.Name); errs != nil {
		return nil, NewValidationError(errs)
	}

	c.Name = strings.TrimSpace(in.Name)
	c.UpdatedBy = &actor.ID
	if err := u.categoryRepo.Update(ctx, c); err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	updated, err := u.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	dto, err := u.toDTO(ctx, updated, newEmailResolver(u.users))
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// 論理削除。配下の未削除商品もまとめて論理削除される。
func (u *CategoryUsecase) Delete(ctx context.Context, actor *model.User, id int64) error {
	if !authz.Authorize(actor, authz.ActionDelete, "category") {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}

	if _, err := u.findActive(ctx, id); err != nil {
		return err
	}

	err := u.categoryRepo.SoftDeleteCascade(ctx, id, actor.ID, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 復元。配下の商品はそのまま。
func (u *CategoryUsecase) Restore(ctx context.Context, actor *model.User, id int64) (*CategoryDTO, error) {
	if !authz.Authorize(actor, authz.ActionRestore, "category") {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	restored, err := u.categoryRepo.Restore(ctx, id, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	dto, err := u.toDTO(ctx, restored, newEmailResolver(u.users))
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// CSVエクスポート。include_products=trueなら未削除商品を1行ずつ結合する。
// 商品が無いカテゴリは商品列が空の1行になる。
func (u *CategoryUsecase) ExportCSV(ctx context.Context, actor *model.User, w io.Writer, includeProducts bool, productIDs []int64) error {
	if !authz.Authorize(actor, authz.ActionExport, "category") {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}

	cats, err := u.categoryRepo.ListActive(ctx)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	cw := csv.NewWriter(w)

	header := []string{"category_id", "name", "user_email", "created_at", "updated_at"}
	if includeProducts {
		header = append(header, "product_id", "product_title", "product_price", "product_status")
	}
	if err := cw.Write(header); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "export error")
	}

	emails := newEmailResolver(u.users)

	for _, c := range cats {
		ownerEmail := ""
		if e, err := emails.resolve(ctx, &c.UserID); err == nil && e != nil {
			ownerEmail = *e
		}

		base := []string{
			c.CategoryID,
			c.Name,
			ownerEmail,
			c.CreatedAt.Format(time.RFC3339),
			c.UpdatedAt.Format(time.RFC3339),
		}

		if !includeProducts {
			if err := cw.Write(base); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "export error")
			}
			continue
		}

		products, err := u.productRepo.ListActive(ctx, repository.ProductListQuery{
			CategoryID: &c.ID,
			IDs:        productIDs,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if len(products) == 0 {
			row := append(append([]string{}, base...), "", "", "", "")
			if err := cw.Write(row); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "export error")
			}
			continue
		}

		for _, p := range products {
			row := append(append([]string{}, base...),
				strconv.FormatInt(p.ID, 10),
				p.Title,
				p.PriceString(),
				string(p.Status),
			)
			if err := cw.Write(row); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "export error")
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "export error")
	}
	return nil
}

// 未削除のカテゴリだけを対象にする。
func (u *CategoryUsecase) findActive(ctx context.Context, id int64) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid category id")
	}

	c, err := u.categoryRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Category{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if c.IsDeleted {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return c, nil
}

func (u *CategoryUsecase) toDTO(ctx context.Context, c model.Category, emails *emailResolver) (CategoryDTO, error) {
	count, err := u.categoryRepo.CountActiveProducts(ctx, c.ID)
	if err != nil {
		return CategoryDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	createdBy, err := emails.resolve(ctx, c.CreatedBy)
	if err != nil {
		return CategoryDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	updatedBy, err := emails.resolve(ctx, c.UpdatedBy)
	if err != nil {
		return CategoryDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return CategoryDTO{
		ID:            c.ID,
		CategoryID:    c.CategoryID,
		Name:          c.Name,
		User:          c.UserID,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		CreatedBy:     createdBy,
		UpdatedBy:     updatedBy,
		ProductsCount: count,
		IsDeleted:     c.IsDeleted,
	}, nil
}

func validateCategoryName(name string) validation.FieldErrors {
	name = strings.TrimSpace(name)
	if name == "" {
		return validation.FieldErrors{"name": "Name is required"}
	}
	if len(name) > 50 {
		return validation.FieldErrors{"name": "Name must be <= 50 characters"}
	}
	return nil
}

// created_by/updated_byのIDをemailに引く。同じIDは1回だけ引く。
type emailResolver struct {
	users repository.UserRepository
	cache map[int64]*string
}

func newEmailResolver(users repository.UserRepository) *emailResolver {
	return &emailResolver{users: users, cache: map[int64]*string{}}
}

func (r *emailResolver) resolve(ctx context.Context, userID *int64) (*string, error) {
	if userID == nil {
		return nil, nil
	}
	if e, ok := r.cache[*userID]; ok {
		return e, nil
	}

	u, err := r.users.FindByID(ctx, *userID)
	if err != nil {
		return nil, err
	}

	var email *string
	if u != nil {
		email = &u.Email
	}
	r.cache[*userID] = email
	return email, nil
}
