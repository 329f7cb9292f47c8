package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fyerfyer/penalty-amount/internal/database"
	"github.com/fyerfyer/penalty-amount/internal/models"
)

// amountRepository 金额结果仓储实现
type amountRepository struct {
	db *gorm.DB
}

// NewAmountRepository 使用全局数据库连接创建结果仓储
func NewAmountRepository() AmountRepository {
	return &amountRepository{db: database.MustDB()}
}

// NewAmountRepositoryWithDB 使用指定的数据库连接创建结果仓储
func NewAmountRepositoryWithDB(db *gorm.DB) AmountRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &amountRepository{db: db}
}

// SaveBatch 批量保存结果，同一文书重复计算时覆盖旧结果
func (r *amountRepository) SaveBatch(ctx context.Context, rows []*models.PenaltyAmount) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.ID == "" {
			return models.ErrEmptyID
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"run_id", "fine_amount", "confiscate_amount", "amount", "status", "diagnostics", "processed_at",
			}),
		}).CreateInBatches(rows, batchInsertSize).Error
	})
}

// GetByID 根据文书ID获取结果
func (r *amountRepository) GetByID(ctx context.Context, id string) (*models.PenaltyAmount, error) {
	var row models.PenaltyAmount
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrAmountNotFound, id)
		}
		return nil, err
	}
	return &row, nil
}

// List 列出结果
func (r *amountRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.PenaltyAmount, int64, error) {
	var (
		rows  []*models.PenaltyAmount
		total int64
	)

	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.PenaltyAmount{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("processed_at ASC, id ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// totalsColumns 汇总查询的列，占位符为失败状态
const totalsColumns = "COUNT(*) AS count, " +
	"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS failed, " +
	"COALESCE(SUM(fine_amount), 0) AS fine_amount, " +
	"COALESCE(SUM(confiscate_amount), 0) AS confiscate_amount, " +
	"COALESCE(SUM(amount), 0) AS amount"

// Totals 汇总金额
func (r *amountRepository) Totals(ctx context.Context, runID string) (*Totals, error) {
	filters := map[string]interface{}{}
	if runID != "" {
		filters["run_id"] = runID
	}

	var totals Totals
	err := r.applyFilters(r.db.WithContext(ctx).Model(&models.PenaltyAmount{}), filters).
		Select(totalsColumns, models.AmountStatusFailed).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// applyFilters 应用筛选条件
func (r *amountRepository) applyFilters(query *gorm.DB, filters map[string]interface{}) *gorm.DB {
	if runID, ok := filters["run_id"].(string); ok && runID != "" {
		query = query.Where("run_id = ?", runID)
	}

	switch s := filters["status"].(type) {
	case models.AmountStatus:
		query = query.Where("status = ?", string(s))
	case string:
		if s != "" {
			query = query.Where("status = ?", s)
		}
	}
	return query
}
