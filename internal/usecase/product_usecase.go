package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"cp360/internal/authz"
	"cp360/internal/domain/model"
	"cp360/internal/repository"
	"cp360/internal/validation"

	"github.com/google/uuid"
)

// 動画ファイルの保存先。実体はS3互換ストア。
type BlobStorage interface {
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	// 保存済みkeyの参照用URL。
	PublicURL(key string) string
}

// multipartで受け取った1ファイル分。
type VideoFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type ProductUsecase struct {
	productRepo  repository.ProductRepository
	videoRepo    repository.ProductVideoRepository
	categoryRepo repository.CategoryRepository
	users        repository.UserRepository
	auditRepo    repository.AuditLogRepository
	tx           repository.TransactionManager
	blobs        BlobStorage
}

// DI
func NewProductUsecase(
	productRepo repository.ProductRepository,
	videoRepo repository.ProductVideoRepository,
	categoryRepo repository.CategoryRepository,
	users repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	tx repository.TransactionManager,
	blobs BlobStorage,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:  productRepo,
		videoRepo:    videoRepo,
		categoryRepo: categoryRepo,
		users:        users,
		auditRepo:    auditRepo,
		tx:           tx,
		blobs:        blobs,
	}
}

type ProductVideoDTO struct {
	ID         int64     `json:"id"`
	File       string    `json:"file"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type ProductDTO struct {
	ID          int64             `json:"id"`
	Category    int64             `json:"category"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Price       string            `json:"price"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CreatedBy   *string           `json:"created_by"`
	UpdatedBy   *string           `json:"updated_by"`
	Videos      []ProductVideoDTO `json:"videos"`
	IsDeleted   bool              `json:"is_deleted"`
}

type ProductInput struct {
	Category    int64  `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Status      string `json:"status"`
}

type ProductListInput struct {
	CategoryID *int64
	Status     string
}

// 未削除商品の一覧（新しい順）。
func (u *ProductUsecase) List(ctx context.Context, actor *model.User, in ProductListInput) ([]ProductDTO, error) {
	if !authz.Authorize(actor, authz.ActionView, "product") {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	q := repository.ProductListQuery{CategoryID: in.CategoryID}
	if in.Status != "" {
		st := model.ProductStatus(in.Status)
		if !st.Valid() {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		q.Status = &st
	}

	products, err := u.productRepo.ListActive(ctx, q)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	emails := newEmailResolver(u.users)
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dto, err := u.toDTO(ctx, p, emails)
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}

func (u *ProductUsecase) Get(ctx context.Context, actor *model.User, id int64) (*ProductDTO, error) {
	if !authz.Authorize(actor, authz.ActionView, "product") {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	p, err := u.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	dto, err := u.toDTO(ctx, p, newEmailResolver(u.users))
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// 商品作成。動画ファイルがあれば保存してジョブをoutboxに積む。
func (u *ProductUsecase) Create(ctx context.Context, actor *model.User, in ProductInput, files []VideoFile) (*ProductDTO, error) {
	if !authz.Authorize(actor, authz.ActionCreate, "product") {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	priceCents, fieldErrs := validateProductInput(in, false)
	if fieldErrs != nil {
		return nil, NewValidationError(fieldErrs)
	}

	//カテゴリは未削除のものだけ
	cat, err := u.categoryRepo.FindByID(ctx, in.Category)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewValidationError(validation.FieldErrors{"category": "category not found"})
	}
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if cat.IsDeleted {
		return nil, NewValidationError(validation.FieldErrors{"category": "category not found"})
	}

	//動画サイズの上限チェック（既存は無いので新規分だけ）
	if errs := checkVideoBudget(files, 0); errs != nil {
		return nil, NewValidationError(errs)
	}

	status := model.ProductStatusUploaded
	if in.Status != "" {
		status = model.ProductStatus(in.Status)
	}

	p := model.Product{
		CategoryID:  in.Category,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		PriceCents:  priceCents,
		Status:      status,
	}
	p.CreatedBy = &actor.ID
	p.UpdatedBy = &actor.ID

	created, err := u.productRepo.Create(ctx, p)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.attachVideos(ctx, created.ID, files); err != nil {
		return nil, err
	}

	dto, err := u.toDTO(ctx, created, newEmailResolver(u.users))
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// 商品更新（部分更新）。追加の動画も受け付ける。
func (u *ProductUsecase) Update(ctx context.Context, actor *model.User, id int64, in ProductInput, files []VideoFile) (*ProductDTO, error) {
	if !authz.Authorize(actor, authz.ActionModify, "product") {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	p, err := u.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	priceCents, fieldErrs := validateProductInput(in, true)
	if fieldErrs != nil {
		return nil, NewValidationError(fieldErrs)
	}

	//既存の未削除動画との合計で上限チェック
	existing, err := u.videoRepo.SumActiveSizeByProduct(ctx, id)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if errs := checkVideoBudget(files, existing); errs != nil {
		return nil, NewValidationError(errs)
	}

	if in.Category != 0 {
		cat, err := u.categoryRepo.FindByID(ctx, in.Category)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewValidationError(validation.FieldErrors{"category": "category not found"})
		}
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if cat.IsDeleted {
			return nil, NewValidationError(validation.FieldErrors{"category": "category not found"})
		}
		p.CategoryID = in.Category
	}
	if in.Title != "" {
		p.Title = strings.TrimSpace(in.Title)
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Price != "" {
		p.PriceCents = priceCents
	}
	if in.Status != "" {
		p.Status = model.ProductStatus(in.Status)
	}
	p.UpdatedBy = &actor.ID

	if err := u.productRepo.Update(ctx, p); err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.attachVideos(ctx, p.ID, files); err != nil {
		return nil, err
	}

	updated, err := u.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	dto, err := u.toDTO(ctx, updated, newEmailResolver(u.users))
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// 論理削除。
func (u *ProductUsecase) Delete(ctx context.Context, actor *model.User, id int64) error {
	if !authz.Authorize(actor, authz.ActionDelete, "product") {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}

	if _, err := u.findActive(ctx, id); err != nil {
		return err
	}

	err := u.productRepo.SoftDelete(ctx, id, actor.ID, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 復元。
func (u *ProductUsecase) Restore(ctx context.Context, actor *model.User, id int64) (*ProductDTO, error) {
	if !authz.Authorize(actor, authz.ActionRestore, "product") {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	restored, err := u.productRepo.Restore(ctx, id, actor.ID)
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

// 承認 → status=success。
func (u *ProductUsecase) Approve(ctx context.Context, actor *model.User, id int64) (*ProductDTO, error) {
	return u.setStatus(ctx, actor, id, model.ProductStatusSuccess, model.AuditActionApproveProduct)
}

// 却下 → status=rejected。
func (u *ProductUsecase) Reject(ctx context.Context, actor *model.User, id int64) (*ProductDTO, error) {
	return u.setStatus(ctx, actor, id, model.ProductStatusRejected, model.AuditActionRejectProduct)
}

// approve/reject 本体。
// view層の許可とは別に、ここでrole∈{staff,admin}を再チェックする。
// 遷移ガードは置かない（rejected済みをapproveし直すのも通る）。
func (u *ProductUsecase) setStatus(ctx context.Context, actor *model.User, id int64, status model.ProductStatus, action model.AuditAction) (*ProductDTO, error) {
	if !authz.CanApproveReject(actor) {
		return nil, NewHTTPError(http.StatusForbidden, "Not authorized")
	}

	p, err := u.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	before := p.Status
	if err := u.productRepo.UpdateStatus(ctx, id, status, actor.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewHTTPError(http.StatusNotFound, "not found")
		}
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actor.ID,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   id,
		BeforeJSON:   fmt.Sprintf(`{"status":%q}`, before),
		AfterJSON:    fmt.Sprintf(`{"status":%q}`, status),
		CreatedAt:    time.Now(),
	})

	updated, err := u.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	dto, err := u.toDTO(ctx, updated, newEmailResolver(u.users))
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// 動画1本の論理削除（商品とは独立）。
func (u *ProductUsecase) DeleteVideo(ctx context.Context, actor *model.User, productID int64, videoID int64) error {
	if !authz.Authorize(actor, authz.ActionDelete, "product") {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}

	v, err := u.videoRepo.FindByID(ctx, videoID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if v.ProductID != productID || v.IsDeleted {
		return NewHTTPError(http.StatusNotFound, "not found")
	}

	if err := u.videoRepo.SoftDelete(ctx, videoID, time.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// CSVエクスポート。IDリストで絞り込める。
func (u *ProductUsecase) ExportCSV(ctx context.Context, actor *model.User, w io.Writer, productIDs []int64) error {
	if !authz.Authorize(actor, authz.ActionExport, "product") {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}

	products, err := u.productRepo.ListActive(ctx, repository.ProductListQuery{IDs: productIDs})
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	cw := csv.NewWriter(w)

	header := []string{"id", "category_id", "title", "description", "price", "status", "created_at", "updated_at"}
	if err := cw.Write(header); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "export error")
	}

	//category_id（UUID）は1カテゴリ1回だけ引く
	catUUIDs := map[int64]string{}

	for _, p := range products {
		catUUID, ok := catUUIDs[p.CategoryID]
		if !ok {
			c, err := u.categoryRepo.FindByID(ctx, p.CategoryID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			catUUID = c.CategoryID
			catUUIDs[p.CategoryID] = catUUID
		}

		row := []string{
			strconv.FormatInt(p.ID, 10),
			catUUID,
			p.Title,
			p.Description,
			p.PriceString(),
			string(p.Status),
			p.CreatedAt.Format(time.RFC3339),
			p.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "export error")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "export error")
	}
	return nil
}

// blobへ保存してからDBに動画行とoutbox行を同一トランザクションで書く。
// queueへの投入はdispatcher任せなので、ここでは待たない（fire-and-forget）。
func (u *ProductUsecase) attachVideos(ctx context.Context, productID int64, files []VideoFile) error {
	for _, f := range files {
		rc, err := f.Open()
		if err != nil {
			return NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
		}

		key := fmt.Sprintf("products/%d/videos/%s", productID, path.Base(f.Name))
		savedKey, err := u.blobs.Save(ctx, key, rc)
		rc.Close()
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "upload error")
		}

		err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
			v, err := r.Videos().Create(ctx, model.ProductVideo{
				ProductID: productID,
				FileKey:   savedKey,
				SizeBytes: f.Size,
			})
			if err != nil {
				return err
			}
			return r.VideoJobs().Create(ctx, model.VideoJob{
				ID:             uuid.NewString(),
				ProductVideoID: v.ID,
				Status:         model.VideoJobPending,
			})
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}
	return nil
}

// 未削除の商品だけを対象にする。
func (u *ProductUsecase) findActive(ctx context.Context, id int64) (model.Product, error) {
	if id <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if p.IsDeleted {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return p, nil
}

func (u *ProductUsecase) toDTO(ctx context.Context, p model.Product, emails *emailResolver) (ProductDTO, error) {
	createdBy, err := emails.resolve(ctx, p.CreatedBy)
	if err != nil {
		return ProductDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	updatedBy, err := emails.resolve(ctx, p.UpdatedBy)
	if err != nil {
		return ProductDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	videos, err := u.videoRepo.ListActiveByProduct(ctx, p.ID)
	if err != nil {
		return ProductDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	videoDTOs := make([]ProductVideoDTO, 0, len(videos))
	for _, v := range videos {
		videoDTOs = append(videoDTOs, ProductVideoDTO{
			ID:         v.ID,
			File:       u.blobs.PublicURL(v.FileKey),
			SizeBytes:  v.SizeBytes,
			UploadedAt: v.UploadedAt,
		})
	}

	return ProductDTO{
		ID:          p.ID,
		Category:    p.CategoryID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.PriceString(),
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		CreatedBy:   createdBy,
		UpdatedBy:   updatedBy,
		Videos:      videoDTOs,
		IsDeleted:   p.IsDeleted,
	}, nil
}

// 入力検証。partial=trueなら空フィールドはスキップ（PATCH用）。
// 戻り値はパース済み価格（centsに変換）。
func validateProductInput(in ProductInput, partial bool) (int64, validation.FieldErrors) {
	errs := validation.FieldErrors{}

	if !partial || in.Title != "" {
		title := strings.TrimSpace(in.Title)
		if title == "" {
			errs["title"] = "Title is required"
		} else if len(title) > 50 {
			errs["title"] = "Title must be <= 50 characters"
		}
	}

	if len(in.Description) > 251 {
		errs["description"] = "Description must be <= 251 characters"
	}

	var priceCents int64
	if !partial || in.Price != "" {
		var err error
		priceCents, err = parsePrice(in.Price)
		if err != nil {
			errs["price"] = err.Error()
		}
	}

	if in.Status != "" && !model.ProductStatus(in.Status).Valid() {
		errs["status"] = "Invalid status"
	}

	if !partial && in.Category <= 0 {
		errs["category"] = "Category is required"
	}

	if len(errs) == 0 {
		return priceCents, nil
	}
	return priceCents, errs
}

// "10.00" 形式の価格をcentsへ。負値と3桁以上の小数は不可。
func parsePrice(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("Price must be >= 0")
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole = s[:i]
		frac = s[i+1:]
	}
	// ".50" 形式も通す
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("Ensure that there are no more than 2 decimal places.")
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("Price must be a decimal number")
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("Price must be a decimal number")
	}

	return w*100 + f, nil
}

// 動画サイズの上限チェック。1本ごと、および既存未削除分との合計。
func checkVideoBudget(files []VideoFile, existingBytes int64) validation.FieldErrors {
	total := existingBytes
	for _, f := range files {
		if f.Size > model.MaxVideoBytes {
			return validation.FieldErrors{"video_files": "Single video must be <= 20 MB"}
		}
		total += f.Size
	}
	if total > model.MaxVideoBytes {
		return validation.FieldErrors{"video_files": "Total videos size for this product must be <= 20 MB"}
	}
	return nil
}
