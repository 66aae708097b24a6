package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"cp360/internal/domain/model"
	"cp360/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type productVideoRepoMock struct{ mock.Mock }

func (m *productVideoRepoMock) Create(ctx context.Context, v model.ProductVideo) (model.ProductVideo, error) {
	args := m.Called(ctx, v)
	created, _ := args.Get(0).(model.ProductVideo)
	return created, args.Error(1)
}

func (m *productVideoRepoMock) FindByID(ctx context.Context, id int64) (model.ProductVideo, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(model.ProductVideo)
	return v, args.Error(1)
}

func (m *productVideoRepoMock) ListActiveByProduct(ctx context.Context, productID int64) ([]model.ProductVideo, error) {
	args := m.Called(ctx, productID)
	items, _ := args.Get(0).([]model.ProductVideo)
	return items, args.Error(1)
}

func (m *productVideoRepoMock) SumActiveSizeByProduct(ctx context.Context, productID int64) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *productVideoRepoMock) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

type videoJobRepoMock struct{ mock.Mock }

func (m *videoJobRepoMock) Create(ctx context.Context, job model.VideoJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *videoJobRepoMock) ListPending(ctx context.Context, limit int) ([]model.VideoJob, error) {
	args := m.Called(ctx, limit)
	jobs, _ := args.Get(0).([]model.VideoJob)
	return jobs, args.Error(1)
}

func (m *videoJobRepoMock) MarkDispatched(ctx context.Context, jobID string, now time.Time) error {
	args := m.Called(ctx, jobID, now)
	return args.Error(0)
}

// WithinTxをそのまま実行するTransactionManager。
type txManagerStub struct {
	videos    repository.ProductVideoRepository
	videoJobs repository.VideoJobRepository
}

func (t *txManagerStub) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	return fn(t)
}

func (t *txManagerStub) Products() repository.ProductRepository    { return nil }
func (t *txManagerStub) Videos() repository.ProductVideoRepository { return t.videos }
func (t *txManagerStub) VideoJobs() repository.VideoJobRepository  { return t.videoJobs }
func (t *txManagerStub) Categories() repository.CategoryRepository { return nil }

type blobStorageMock struct{ mock.Mock }

func (m *blobStorageMock) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	args := m.Called(ctx, key, r)
	return args.String(0), args.Error(1)
}

func (m *blobStorageMock) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type productFixture struct {
	products  *productRepoMock
	videos    *productVideoRepoMock
	cats      *categoryRepoMock
	users     *userRepoMock
	audit     *auditRepoMock
	videoJobs *videoJobRepoMock
	blobs     *blobStorageMock
	uc        *ProductUsecase
}

func newProductFixture() *productFixture {
	f := &productFixture{
		products:  new(productRepoMock),
		videos:    new(productVideoRepoMock),
		cats:      new(categoryRepoMock),
		users:     new(userRepoMock),
		audit:     new(auditRepoMock),
		videoJobs: new(videoJobRepoMock),
		blobs:     new(blobStorageMock),
	}
	tx := &txManagerStub{videos: f.videos, videoJobs: f.videoJobs}
	f.uc = NewProductUsecase(f.products, f.videos, f.cats, f.users, f.audit, tx, f.blobs)
	return f
}

func videoFile(name string, size int64) VideoFile {
	return VideoFile{
		Name: name,
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("data")), nil
		},
	}
}

func staffActor(id int64) *model.User {
	return &model.User{ID: id, Role: model.RoleStaff, IsActive: true}
}

// =====================
// 入力検証
// =====================

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"10.00", 1000, true},
		{"10", 1000, true},
		{"0.5", 50, true},
		{".50", 50, true},
		{"19.99", 1999, true},
		{"", 0, true},
		{"10.999", 0, false},
		{"-1.00", 0, false},
		{"-.50", 0, false},
		{"abc", 0, false},
	}
	for _, c := range cases {
		got, err := parsePrice(c.in)
		if c.ok {
			assert.NoError(t, err, c.in)
			assert.Equal(t, c.cents, got, c.in)
		} else {
			assert.Error(t, err, c.in)
		}
	}
}

func TestCheckVideoBudget(t *testing.T) {
	okFile := videoFile("a.mp4", 5*1024*1024)

	assert.Nil(t, checkVideoBudget([]VideoFile{okFile}, 0))

	//1本で20MB超
	tooBig := videoFile("big.mp4", model.MaxVideoBytes+1)
	errs := checkVideoBudget([]VideoFile{tooBig}, 0)
	assert.Contains(t, errs, "video_files")

	//合計で20MB超（既存分を含む）
	errs = checkVideoBudget([]VideoFile{okFile}, model.MaxVideoBytes-1024)
	assert.Contains(t, errs, "video_files")

	//ちょうど20MBは通る
	exact := videoFile("exact.mp4", model.MaxVideoBytes)
	assert.Nil(t, checkVideoBudget([]VideoFile{exact}, 0))
}

// =====================
// Create
// =====================

func TestProductUsecase_Create_EnqueuesOutboxRowPerVideo(t *testing.T) {
	f := newProductFixture()
	actor := endUserActor(3)

	f.cats.On("FindByID", mock.Anything, int64(1)).Return(model.Category{ID: 1, Name: "Toys"}, nil)
	f.products.On("Create", mock.Anything, mock.MatchedBy(func(p model.Product) bool {
		return p.Title == "Robot" && p.PriceCents == int64(1050) && p.Status == model.ProductStatusUploaded
	})).Return(model.Product{ID: 10, CategoryID: 1, Title: "Robot", PriceCents: 1050, Status: model.ProductStatusUploaded}, nil)

	f.blobs.On("Save", mock.Anything, "products/10/videos/demo.mp4", mock.Anything).Return("products/10/videos/demo.mp4", nil)
	f.videos.On("Create", mock.Anything, mock.MatchedBy(func(v model.ProductVideo) bool {
		return v.ProductID == int64(10) && v.FileKey == "products/10/videos/demo.mp4" && v.SizeBytes == int64(1024)
	})).Return(model.ProductVideo{ID: 99, ProductID: 10, FileKey: "products/10/videos/demo.mp4", SizeBytes: 1024}, nil)
	f.videoJobs.On("Create", mock.Anything, mock.MatchedBy(func(j model.VideoJob) bool {
		return j.ProductVideoID == int64(99) && j.Status == model.VideoJobPending && j.ID != ""
	})).Return(nil)

	f.videos.On("ListActiveByProduct", mock.Anything, int64(10)).Return([]model.ProductVideo{{ID: 99, ProductID: 10}}, nil)

	in := ProductInput{Category: 1, Title: "Robot", Price: "10.50"}
	out, err := f.uc.Create(context.Background(), actor, in, []VideoFile{videoFile("demo.mp4", 1024)})
	assert.NoError(t, err)
	assert.Equal(t, "10.50", out.Price)
	assert.Len(t, out.Videos, 1)

	f.videoJobs.AssertExpectations(t)
	f.blobs.AssertExpectations(t)
}

func TestProductUsecase_Create_UnknownCategory(t *testing.T) {
	f := newProductFixture()

	f.cats.On("FindByID", mock.Anything, int64(7)).Return(model.Category{}, repository.ErrNotFound)

	in := ProductInput{Category: 7, Title: "Robot", Price: "10.00"}
	_, err := f.uc.Create(context.Background(), endUserActor(1), in, nil)
	he := assertStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, he.Fields, "category")
}

func TestProductUsecase_Create_DeletedCategoryRejected(t *testing.T) {
	f := newProductFixture()

	deleted := model.Category{ID: 7, Name: "Gone"}
	deleted.IsDeleted = true
	f.cats.On("FindByID", mock.Anything, int64(7)).Return(deleted, nil)

	in := ProductInput{Category: 7, Title: "Robot", Price: "10.00"}
	_, err := f.uc.Create(context.Background(), endUserActor(1), in, nil)
	he := assertStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, he.Fields, "category")
}

func TestProductUsecase_Create_OversizedVideoRejected(t *testing.T) {
	f := newProductFixture()

	f.cats.On("FindByID", mock.Anything, int64(1)).Return(model.Category{ID: 1}, nil)

	in := ProductInput{Category: 1, Title: "Robot", Price: "10.00"}
	files := []VideoFile{videoFile("huge.mp4", model.MaxVideoBytes+1)}

	_, err := f.uc.Create(context.Background(), endUserActor(1), in, files)
	he := assertStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, he.Fields, "video_files")
}

// =====================
// Update
// =====================

func TestProductUsecase_Update_TotalVideoBudgetCountsExisting(t *testing.T) {
	f := newProductFixture()

	f.products.On("FindByID", mock.Anything, int64(10)).Return(model.Product{ID: 10, CategoryID: 1, Title: "Robot", Status: model.ProductStatusUploaded}, nil)
	//既存で19MB使っている
	f.videos.On("SumActiveSizeByProduct", mock.Anything, int64(10)).Return(int64(19*1024*1024), nil)

	files := []VideoFile{videoFile("more.mp4", 2*1024*1024)}
	_, err := f.uc.Update(context.Background(), endUserActor(1), 10, ProductInput{}, files)
	he := assertStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, he.Fields, "video_files")
}

// =====================
// Approve / Reject
// =====================

func TestProductUsecase_Approve_RequiresStaffRole(t *testing.T) {
	f := newProductFixture()

	// is_staffフラグだけのend_userでは不可
	agent := endUserActor(1)
	agent.IsStaff = true

	_, err := f.uc.Approve(context.Background(), agent, 10)
	he := assertStatus(t, err, http.StatusForbidden)
	assert.Equal(t, "Not authorized", he.Message)
}

func TestProductUsecase_Approve_SetsSuccessAndAudits(t *testing.T) {
	f := newProductFixture()
	actor := staffActor(2)

	p := model.Product{ID: 10, CategoryID: 1, Title: "Robot", Status: model.ProductStatusUploaded}
	f.products.On("FindByID", mock.Anything, int64(10)).Return(p, nil).Once()
	f.products.On("UpdateStatus", mock.Anything, int64(10), model.ProductStatusSuccess, int64(2)).Return(nil)
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionApproveProduct &&
			l.ResourceID == int64(10) &&
			l.BeforeJSON == `{"status":"uploaded"}` &&
			l.AfterJSON == `{"status":"success"}`
	})).Return(nil)

	approved := p
	approved.Status = model.ProductStatusSuccess
	f.products.On("FindByID", mock.Anything, int64(10)).Return(approved, nil)
	f.videos.On("ListActiveByProduct", mock.Anything, int64(10)).Return(nil, nil)

	out, err := f.uc.Approve(context.Background(), actor, 10)
	assert.NoError(t, err)
	assert.Equal(t, "success", out.Status)

	f.audit.AssertExpectations(t)
}

func TestProductUsecase_Reject_IsIdempotentOverwrite(t *testing.T) {
	f := newProductFixture()
	actor := staffActor(2)

	//すでにsuccessでもrejectは通る（遷移ガード無し）
	p := model.Product{ID: 10, Status: model.ProductStatusSuccess}
	f.products.On("FindByID", mock.Anything, int64(10)).Return(p, nil).Once()
	f.products.On("UpdateStatus", mock.Anything, int64(10), model.ProductStatusRejected, int64(2)).Return(nil)
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	rejected := p
	rejected.Status = model.ProductStatusRejected
	f.products.On("FindByID", mock.Anything, int64(10)).Return(rejected, nil)
	f.videos.On("ListActiveByProduct", mock.Anything, int64(10)).Return(nil, nil)

	out, err := f.uc.Reject(context.Background(), actor, 10)
	assert.NoError(t, err)
	assert.Equal(t, "rejected", out.Status)
}

// =====================
// DeleteVideo / ExportCSV
// =====================

func TestProductUsecase_DeleteVideo_WrongProductIsNotFound(t *testing.T) {
	f := newProductFixture()

	v := model.ProductVideo{ID: 99, ProductID: 11}
	f.videos.On("FindByID", mock.Anything, int64(99)).Return(v, nil)

	err := f.uc.DeleteVideo(context.Background(), endUserActor(1), 10, 99)
	assertStatus(t, err, http.StatusNotFound)
}

func TestProductUsecase_ExportCSV(t *testing.T) {
	f := newProductFixture()

	p := model.Product{ID: 10, CategoryID: 1, Title: "Robot", Description: "toy", PriceCents: 1050, Status: model.ProductStatusUploaded}
	f.products.On("ListActive", mock.Anything, mock.MatchedBy(func(q repository.ProductListQuery) bool {
		return len(q.IDs) == 1 && q.IDs[0] == int64(10)
	})).Return([]model.Product{p}, nil)
	f.cats.On("FindByID", mock.Anything, int64(1)).Return(model.Category{ID: 1, CategoryID: "uuid-1"}, nil)

	var buf bytes.Buffer
	err := f.uc.ExportCSV(context.Background(), endUserActor(1), &buf, []int64{10})
	assert.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, []string{"id", "category_id", "title", "description", "price", "status", "created_at", "updated_at"}, rows[0])
	assert.Equal(t, "10", rows[1][0])
	assert.Equal(t, "uuid-1", rows[1][1])
	assert.Equal(t, "10.50", rows[1][4])
}

func TestProductUsecase_Get_RendersVideoURL(t *testing.T) {
	f := newProductFixture()

	p := model.Product{ID: 10, CategoryID: 1, Title: "Robot", Status: model.ProductStatusUploaded}
	f.products.On("FindByID", mock.Anything, int64(10)).Return(p, nil)
	f.videos.On("ListActiveByProduct", mock.Anything, int64(10)).Return([]model.ProductVideo{
		{ID: 5, ProductID: 10, FileKey: "products/10/videos/demo.mp4", SizeBytes: 1024},
	}, nil)

	out, err := f.uc.Get(context.Background(), staffActor(2), 10)
	assert.NoError(t, err)
	assert.Len(t, out.Videos, 1)
	assert.Equal(t, "https://cdn.example.com/products/10/videos/demo.mp4", out.Videos[0].File)
}
