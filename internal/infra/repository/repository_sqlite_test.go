package repository

import (
	"context"
	"testing"
	"time"

	"cp360/internal/domain/model"
	repo "cp360/internal/repository"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	//テストごとに独立したin-memory DB（コネクションプール間で共有する）
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)

	err = db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.ProductVideo{},
		&model.VideoJob{},
		&model.AuditLog{},
	)
	assert.NoError(t, err)
	return db
}

func seedCategory(t *testing.T, db *gorm.DB, name string) model.Category {
	t.Helper()
	c := model.Category{CategoryID: "uuid-" + name, Name: name, UserID: 1}
	assert.NoError(t, db.Create(&c).Error)
	return c
}

func seedProduct(t *testing.T, db *gorm.DB, categoryID int64, title string) model.Product {
	t.Helper()
	p := model.Product{CategoryID: categoryID, Title: title, PriceCents: 1000, Status: model.ProductStatusUploaded}
	assert.NoError(t, db.Create(&p).Error)
	return p
}

// =====================
// Category
// =====================

func TestCategoryGorm_SoftDeleteCascade(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cats := NewCategoryGormRepository(db)
	products := NewProductGormRepository(db)

	c := seedCategory(t, db, "Toys")
	p1 := seedProduct(t, db, c.ID, "Robot")
	p2 := seedProduct(t, db, c.ID, "Ball")

	err := cats.SoftDeleteCascade(ctx, c.ID, 9, time.Now())
	assert.NoError(t, err)

	//カテゴリは論理削除済み
	got, err := cats.FindByID(ctx, c.ID)
	assert.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.NotNil(t, got.DeletedAt)

	//配下の商品もまとめて論理削除
	for _, id := range []int64{p1.ID, p2.ID} {
		gp, err := products.FindByID(ctx, id)
		assert.NoError(t, err)
		assert.True(t, gp.IsDeleted)
		assert.NotNil(t, gp.UpdatedBy)
		assert.Equal(t, int64(9), *gp.UpdatedBy)
	}

	//一覧からは消える
	active, err := cats.ListActive(ctx)
	assert.NoError(t, err)
	assert.Empty(t, active)

	n, err := cats.CountActiveProducts(ctx, c.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCategoryGorm_SoftDeleteCascade_AlreadyDeleted(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cats := NewCategoryGormRepository(db)

	c := seedCategory(t, db, "Toys")
	assert.NoError(t, cats.SoftDeleteCascade(ctx, c.ID, 9, time.Now()))

	//2回目はnot found（is_deleted=falseガード）
	err := cats.SoftDeleteCascade(ctx, c.ID, 9, time.Now())
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestCategoryGorm_Restore_LeavesProductsDeleted(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cats := NewCategoryGormRepository(db)
	products := NewProductGormRepository(db)

	c := seedCategory(t, db, "Toys")
	p := seedProduct(t, db, c.ID, "Robot")

	assert.NoError(t, cats.SoftDeleteCascade(ctx, c.ID, 9, time.Now()))

	restored, err := cats.Restore(ctx, c.ID, 9)
	assert.NoError(t, err)
	assert.False(t, restored.IsDeleted)
	assert.Nil(t, restored.DeletedAt)

	//商品は削除されたまま（復元は単段）
	gp, err := products.FindByID(ctx, p.ID)
	assert.NoError(t, err)
	assert.True(t, gp.IsDeleted)
}

func TestCategoryGorm_HardDeleteCascade(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cats := NewCategoryGormRepository(db)
	products := NewProductGormRepository(db)
	videos := NewProductVideoGormRepository(db)

	c := seedCategory(t, db, "Toys")
	p := seedProduct(t, db, c.ID, "Robot")
	v, err := videos.Create(ctx, model.ProductVideo{ProductID: p.ID, FileKey: "k", SizeBytes: 10})
	assert.NoError(t, err)

	assert.NoError(t, cats.HardDeleteCascade(ctx, c.ID))

	_, err = cats.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	_, err = products.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	_, err = videos.FindByID(ctx, v.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

// =====================
// Product
// =====================

func TestProductGorm_ListActiveFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	products := NewProductGormRepository(db)

	c1 := seedCategory(t, db, "Toys")
	c2 := seedCategory(t, db, "Books")
	p1 := seedProduct(t, db, c1.ID, "Robot")
	seedProduct(t, db, c2.ID, "Novel")

	deleted := seedProduct(t, db, c1.ID, "Hidden")
	assert.NoError(t, products.SoftDelete(ctx, deleted.ID, 1, time.Now()))

	//カテゴリで絞る
	got, err := products.ListActive(ctx, repo.ProductListQuery{CategoryID: &c1.ID})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, p1.ID, got[0].ID)

	//statusで絞る
	st := model.ProductStatusSuccess
	got, err = products.ListActive(ctx, repo.ProductListQuery{Status: &st})
	assert.NoError(t, err)
	assert.Empty(t, got)

	//IDリストで絞る
	got, err = products.ListActive(ctx, repo.ProductListQuery{IDs: []int64{p1.ID, deleted.ID}})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestProductGorm_SoftDeleteAndRestore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	products := NewProductGormRepository(db)

	c := seedCategory(t, db, "Toys")
	p := seedProduct(t, db, c.ID, "Robot")

	assert.NoError(t, products.SoftDelete(ctx, p.ID, 9, time.Now()))

	//2回目はnot found
	err := products.SoftDelete(ctx, p.ID, 9, time.Now())
	assert.ErrorIs(t, err, repo.ErrNotFound)

	restored, err := products.Restore(ctx, p.ID, 9)
	assert.NoError(t, err)
	assert.False(t, restored.IsDeleted)
	assert.Nil(t, restored.DeletedAt)
}

func TestProductGorm_UpdateStatusOverwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	products := NewProductGormRepository(db)

	c := seedCategory(t, db, "Toys")
	p := seedProduct(t, db, c.ID, "Robot")

	assert.NoError(t, products.UpdateStatus(ctx, p.ID, model.ProductStatusSuccess, 2))

	// rejected済みへの上書きも通る
	assert.NoError(t, products.UpdateStatus(ctx, p.ID, model.ProductStatusRejected, 2))

	got, err := products.FindByID(ctx, p.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.ProductStatusRejected, got.Status)
}

// =====================
// ProductVideo
// =====================

func TestProductVideoGorm_SumActiveSize(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	videos := NewProductVideoGormRepository(db)

	c := seedCategory(t, db, "Toys")
	p := seedProduct(t, db, c.ID, "Robot")

	v1, err := videos.Create(ctx, model.ProductVideo{ProductID: p.ID, FileKey: "a", SizeBytes: 100})
	assert.NoError(t, err)
	_, err = videos.Create(ctx, model.ProductVideo{ProductID: p.ID, FileKey: "b", SizeBytes: 200})
	assert.NoError(t, err)

	total, err := videos.SumActiveSizeByProduct(ctx, p.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(300), total)

	//論理削除した分は合計から外れる
	assert.NoError(t, videos.SoftDelete(ctx, v1.ID, time.Now()))

	total, err = videos.SumActiveSizeByProduct(ctx, p.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(200), total)

	//動画の無い商品は0
	total, err = videos.SumActiveSizeByProduct(ctx, p.ID+100)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

// =====================
// VideoJob（outbox）
// =====================

func TestVideoJobGorm_PendingLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	jobs := NewVideoJobGormRepository(db)

	assert.NoError(t, jobs.Create(ctx, model.VideoJob{ID: "job-1", ProductVideoID: 1, Status: model.VideoJobPending}))
	assert.NoError(t, jobs.Create(ctx, model.VideoJob{ID: "job-2", ProductVideoID: 2, Status: model.VideoJobPending}))

	pending, err := jobs.ListPending(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, pending, 2)

	assert.NoError(t, jobs.MarkDispatched(ctx, "job-1", time.Now()))

	pending, err = jobs.ListPending(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, "job-2", pending[0].ID)

	//dispatched済みをもう一度markするとnot found
	err = jobs.MarkDispatched(ctx, "job-1", time.Now())
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

// =====================
// User
// =====================

func TestUserGorm_CaseInsensitiveLookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserGormRepository(db)

	u := &model.User{
		Email:        "Alice@Example.com",
		Username:     "Alice",
		Phone:        "09012345678",
		PasswordHash: "x",
		Role:         model.RoleEndUser,
		IsActive:     true,
	}
	assert.NoError(t, users.Create(ctx, u))

	found, err := users.FindByEmail(ctx, "alice@example.COM")
	assert.NoError(t, err)
	assert.NotNil(t, found)
	assert.Equal(t, u.ID, found.ID)

	found, err = users.FindByUsername(ctx, "ALICE")
	assert.NoError(t, err)
	assert.NotNil(t, found)

	//phoneは完全一致のみ
	found, err = users.FindByPhone(ctx, "09012345678")
	assert.NoError(t, err)
	assert.NotNil(t, found)

	missing, err := users.FindByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserGorm_CreateNormalizesNames(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserGormRepository(db)

	u := &model.User{
		Email:        "bob@example.com",
		Username:     "bob",
		Phone:        "09011112222",
		PasswordHash: "x",
		Role:         model.RoleEndUser,
		FirstName:    "tARO",
		LastName:     "yamada",
	}
	assert.NoError(t, users.Create(ctx, u))

	found, err := users.FindByID(ctx, u.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Taro", found.FirstName)
	assert.Equal(t, "Yamada", found.LastName)
}

// =====================
// TxManager
// =====================

func TestTxManagerGorm_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tm := NewTxManagerGorm(db)
	videos := NewProductVideoGormRepository(db)

	c := seedCategory(t, db, "Toys")
	p := seedProduct(t, db, c.ID, "Robot")

	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.Videos().Create(ctx, model.ProductVideo{ProductID: p.ID, FileKey: "k", SizeBytes: 10})
		assert.NoError(t, err)
		return assert.AnError
	})
	assert.Error(t, err)

	//動画行は残っていない
	got, err := videos.ListActiveByProduct(ctx, p.ID)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestTxManagerGorm_CommitsVideoAndOutboxTogether(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tm := NewTxManagerGorm(db)
	videos := NewProductVideoGormRepository(db)
	jobs := NewVideoJobGormRepository(db)

	c := seedCategory(t, db, "Toys")
	p := seedProduct(t, db, c.ID, "Robot")

	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		v, err := r.Videos().Create(ctx, model.ProductVideo{ProductID: p.ID, FileKey: "k", SizeBytes: 10})
		if err != nil {
			return err
		}
		return r.VideoJobs().Create(ctx, model.VideoJob{ID: "job-1", ProductVideoID: v.ID, Status: model.VideoJobPending})
	})
	assert.NoError(t, err)

	got, err := videos.ListActiveByProduct(ctx, p.ID)
	assert.NoError(t, err)
	assert.Len(t, got, 1)

	pending, err := jobs.ListPending(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, got[0].ID, pending[0].ProductVideoID)
}

// =====================
// AuditLog
// =====================

func TestAuditLogGorm_ListLimitClamp(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	audits := NewAuditLogGormRepository(db)

	for i := 0; i < 60; i++ {
		err := audits.Create(ctx, model.AuditLog{
			ActorUserID:  1,
			Action:       model.AuditActionApproveProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   int64(i + 1),
			CreatedAt:    time.Now(),
		})
		assert.NoError(t, err)
	}

	//未指定はデフォルト50件
	logs, err := audits.List(ctx, repo.AuditLogFilter{})
	assert.NoError(t, err)
	assert.Len(t, logs, 50)

	//上限超えは200へクランプ（50へ落とさない）
	logs, err = audits.List(ctx, repo.AuditLogFilter{Limit: 500})
	assert.NoError(t, err)
	assert.Len(t, logs, 60)

	//新しい順
	assert.Equal(t, int64(60), logs[0].ResourceID)
}
