package repository

import (
	"context"

	"github.com/fyerfyer/penalty-amount/internal/models"
)

// DocumentRepository 处罚文书仓储接口
// 负责待处理文书的存储和按导入顺序读取
type DocumentRepository interface {
	// SaveBatch 批量保存文书，ID已存在时覆盖内容
	SaveBatch(ctx context.Context, docs []*models.PenaltyDocument) error

	// GetByID 根据ID获取文书
	GetByID(ctx context.Context, id string) (*models.PenaltyDocument, error)

	// List 按导入顺序分页列出文书
	List(ctx context.Context, offset, limit int) ([]*models.PenaltyDocument, int64, error)
}

// AmountRepository 金额结果仓储接口
type AmountRepository interface {
	// SaveBatch 批量保存结果，ID已存在时覆盖
	SaveBatch(ctx context.Context, rows []*models.PenaltyAmount) error

	// GetByID 根据文书ID获取结果
	GetByID(ctx context.Context, id string) (*models.PenaltyAmount, error)

	// List 列出结果，支持按 run_id、status 筛选
	List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.PenaltyAmount, int64, error)

	// Totals 汇总某次运行的金额，runID 为空时汇总全部
	Totals(ctx context.Context, runID string) (*Totals, error)
}

// Totals 金额汇总
type Totals struct {
	Count            int64   // 结果数量
	Failed           int64   // 计算失败的数量
	FineAmount       float64 // 罚款合计
	ConfiscateAmount float64 // 没收合计
	Amount           float64 // 罚没合计
}
