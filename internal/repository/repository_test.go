package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fyerfyer/penalty-amount/internal/database"
	"github.com/fyerfyer/penalty-amount/internal/models"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	// 使用唯一的内存数据库标识符
	dbName := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err, "Failed to open in-memory database")
	require.NoError(t, database.AutoMigrate(db), "Failed to run migrations")

	originalDB := database.DB
	database.DB = db

	cleanup := func() {
		database.DB = originalDB
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup
}

func TestDocumentRepository_SaveAndGet(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewDocumentRepository()

	doc := &models.PenaltyDocument{ID: "doc-1", Content: "罚款50万元", Source: "test.csv"}
	require.NoError(t, repo.SaveBatch(ctx, []*models.PenaltyDocument{doc}))

	saved, err := repo.GetByID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "罚款50万元", saved.Content)
	assert.False(t, saved.CreatedAt.IsZero())

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)

	assert.ErrorIs(t, repo.SaveBatch(ctx, []*models.PenaltyDocument{{Content: "x"}}), models.ErrEmptyID)
}

func TestDocumentRepository_SaveBatchAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewDocumentRepositoryWithDB(db)

	docs := []*models.PenaltyDocument{
		{ID: "c", Content: "罚款1万元"},
		{ID: "a", Content: "罚款2万元"},
		{ID: "b", Content: "罚款3万元"},
	}
	require.NoError(t, repo.SaveBatch(ctx, docs))

	// 覆盖已有文书不改变顺序
	require.NoError(t, repo.SaveBatch(ctx, []*models.PenaltyDocument{{ID: "a", Content: "没收5万元"}}))

	list, total, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "没收5万元", list[1].Content)

	page, _, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)
}

func TestAmountRepository(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewAmountRepositoryWithDB(db)

	ok := &models.PenaltyAmount{ID: "1", RunID: "run-1", FineAmount: 300000, ConfiscateAmount: 150000, Amount: 450000, Status: models.AmountStatusOK}
	require.NoError(t, ok.SetDiagnostics(map[string]models.Diagnostic{"fine": {Outcome: "amount"}}))
	failed := &models.PenaltyAmount{ID: "2", RunID: "run-1", Status: models.AmountStatusFailed}
	other := &models.PenaltyAmount{ID: "3", RunID: "run-2", FineAmount: 10, Amount: 10, Status: models.AmountStatusOK}

	require.NoError(t, repo.SaveBatch(ctx, []*models.PenaltyAmount{ok, failed, other}))

	saved, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 450000.0, saved.Amount)
	diags, err := saved.GetDiagnostics()
	require.NoError(t, err)
	assert.Equal(t, "amount", diags["fine"].Outcome)

	_, err = repo.GetByID(ctx, "404")
	assert.ErrorIs(t, err, models.ErrAmountNotFound)

	rows, total, err := repo.List(ctx, 0, 10, map[string]interface{}{"status": models.AmountStatusFailed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "2", rows[0].ID)

	totals, err := repo.Totals(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Count)
	assert.Equal(t, int64(1), totals.Failed)
	assert.Equal(t, 450000.0, totals.Amount)

	// 重新计算覆盖旧结果
	updated := &models.PenaltyAmount{ID: "2", RunID: "run-3", FineAmount: 5, Amount: 5, Status: models.AmountStatusOK}
	require.NoError(t, repo.SaveBatch(ctx, []*models.PenaltyAmount{updated}))

	all, err := repo.Totals(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Count)
	assert.Equal(t, int64(0), all.Failed)
	assert.Equal(t, 450015.0, all.Amount)
}
