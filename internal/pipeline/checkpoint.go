package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/fyerfyer/penalty-amount/internal/amount"
	"github.com/fyerfyer/penalty-amount/pkg/storage"
)

// 结果表的列，检查点与最终结果表共用
var tableHeader = []string{"id", "fine_amount", "confiscate_amount", "amount"}

// ErrCheckpointMismatch 检查点不是当前输入的前缀
var ErrCheckpointMismatch = errors.New("checkpoint does not match input")

// Row 结果表中的一行
type Row struct {
	ID               string
	FineAmount       float64
	ConfiscateAmount float64
	Amount           float64
}

// RowFromRecord 将计算结果转换为结果行，失败的类别按 0 计入
func RowFromRecord(r amount.Record) Row {
	return Row{
		ID:               r.ID,
		FineAmount:       amount.Round(r.Fine.Value),
		ConfiscateAmount: amount.Round(r.Confiscation.Value),
		Amount:           r.Amount(),
	}
}

// WriteTable 以带表头的 CSV 写出结果行
func WriteTable(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.ID,
			formatAmount(row.FineAmount),
			formatAmount(row.ConfiscateAmount),
			formatAmount(row.Amount),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable 读取 WriteTable 写出的结果表
func ReadTable(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(tableHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table header: %w", err)
	}
	for i, col := range tableHeader {
		if trimBOM(header[i]) != col {
			return nil, fmt.Errorf("unexpected table column %q at %d", header[i], i)
		}
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read table row: %w", err)
		}

		row := Row{ID: record[0]}
		values := []*float64{&row.FineAmount, &row.ConfiscateAmount, &row.Amount}
		for i, dst := range values {
			v, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s for %s: %w", tableHeader[i+1], row.ID, err)
			}
			*dst = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Checkpoint 检查点存储
// 每次保存写入截至目前全部已提交的行，整体替换上一个快照
type Checkpoint struct {
	store storage.Storage
	name  string
}

// NewCheckpoint 创建检查点
func NewCheckpoint(store storage.Storage, name string) *Checkpoint {
	return &Checkpoint{store: store, name: name}
}

// Name 返回检查点对象名
func (c *Checkpoint) Name() string {
	return c.name
}

// Save 保存检查点快照
func (c *Checkpoint) Save(ctx context.Context, rows []Row) error {
	var buf bytes.Buffer
	if err := WriteTable(&buf, rows); err != nil {
		return errors.Wrap(err, "failed to encode checkpoint")
	}
	if _, err := c.store.Put(ctx, c.name, &buf); err != nil {
		return errors.Wrapf(err, "failed to save checkpoint %s", c.name)
	}
	return nil
}

// Load 读取检查点，不存在时返回空
func (c *Checkpoint) Load(ctx context.Context) ([]Row, error) {
	rc, err := c.store.Get(ctx, c.name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open checkpoint %s", c.name)
	}
	defer rc.Close()

	rows, err := ReadTable(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load checkpoint %s", c.name)
	}
	return rows, nil
}
