package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PenaltyDocument 处罚文书模型
// 用于存储待计算金额的原始文书
type PenaltyDocument struct {
	ID        string         `gorm:"primaryKey"`         // 文书ID，主键
	Content   string         `gorm:"type:text;not null"` // 文书原文
	Source    string         `gorm:"size:255;index"`     // 来源，例如导入的文件名
	CreatedAt time.Time      `gorm:"not null;index"`     // 创建时间
	UpdatedAt time.Time      `gorm:"not null"`           // 更新时间
	Metadata  datatypes.JSON `gorm:"type:json"`          // 元数据，JSON格式
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (d *PenaltyDocument) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	return nil
}

// TableName 明确指定表名
func (PenaltyDocument) TableName() string {
	return "penalty_documents"
}

// AmountStatus 金额计算状态
type AmountStatus string

const (
	// AmountStatusOK 两个类别都计算成功
	AmountStatusOK AmountStatus = "ok"
	// AmountStatusFailed 至少一个类别计算失败，失败的类别按 0 计入
	AmountStatusFailed AmountStatus = "failed"
)

// PenaltyAmount 文书金额计算结果
type PenaltyAmount struct {
	ID               string         `gorm:"primaryKey"`             // 文书ID
	RunID            string         `gorm:"size:50;index"`          // 批处理运行ID
	FineAmount       float64        `gorm:"not null;default:0"`     // 罚款金额
	ConfiscateAmount float64        `gorm:"not null;default:0"`     // 没收金额
	Amount           float64        `gorm:"not null;default:0"`     // 罚没金额合计
	Status           AmountStatus   `gorm:"size:20;not null;index"` // 计算状态
	Diagnostics      datatypes.JSON `gorm:"type:json"`              // 各类别的计算诊断信息
	ProcessedAt      time.Time      `gorm:"not null;index"`         // 计算时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (a *PenaltyAmount) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ProcessedAt.IsZero() {
		a.ProcessedAt = time.Now()
	}
	return nil
}

// TableName 明确指定表名
func (PenaltyAmount) TableName() string {
	return "penalty_amounts"
}

// Diagnostic 单个类别的计算诊断
type Diagnostic struct {
	Outcome string `json:"outcome"`         // 结果类型：amount, none, failed
	Error   string `json:"error,omitempty"` // 失败原因
}

// SetDiagnostics 以JSON格式保存诊断信息
func (a *PenaltyAmount) SetDiagnostics(diags map[string]Diagnostic) error {
	data, err := json.Marshal(diags)
	if err != nil {
		return err
	}
	a.Diagnostics = datatypes.JSON(data)
	return nil
}

// GetDiagnostics 解析诊断信息
func (a *PenaltyAmount) GetDiagnostics() (map[string]Diagnostic, error) {
	diags := map[string]Diagnostic{}
	if len(a.Diagnostics) == 0 {
		return diags, nil
	}
	if err := json.Unmarshal(a.Diagnostics, &diags); err != nil {
		return nil, err
	}
	return diags, nil
}
