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

// 批量写入时每条 INSERT 的记录数
const batchInsertSize = 200

// docRepository 文书仓储实现
type docRepository struct {
	db *gorm.DB // 数据库连接
}

// NewDocumentRepository 使用全局数据库连接创建文书仓储
func NewDocumentRepository() DocumentRepository {
	return &docRepository{db: database.MustDB()}
}

// NewDocumentRepositoryWithDB 使用指定的数据库连接创建文书仓储
func NewDocumentRepositoryWithDB(db *gorm.DB) DocumentRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &docRepository{db: db}
}

// SaveBatch 批量保存文书
func (r *docRepository) SaveBatch(ctx context.Context, docs []*models.PenaltyDocument) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if doc.ID == "" {
			return models.ErrEmptyID
		}
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "source", "metadata", "updated_at"}),
		}).
		CreateInBatches(docs, batchInsertSize).Error
}

// GetByID 根据ID获取文书
func (r *docRepository) GetByID(ctx context.Context, id string) (*models.PenaltyDocument, error) {
	var doc models.PenaltyDocument
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
		}
		return nil, err
	}
	return &doc, nil
}

// List 按导入顺序（sqlite rowid）分页列出文书，limit <= 0 时不分页
func (r *docRepository) List(ctx context.Context, offset, limit int) ([]*models.PenaltyDocument, int64, error) {
	var (
		docs  []*models.PenaltyDocument
		total int64
	)

	query := r.db.WithContext(ctx).Model(&models.PenaltyDocument{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("rowid ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}
