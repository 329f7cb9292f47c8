package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fyerfyer/penalty-amount/internal/amount"
	"github.com/fyerfyer/penalty-amount/internal/repository"
)

// Source 文书来源，按输入顺序返回全部文书
type Source interface {
	Documents(ctx context.Context) ([]amount.Document, error)
}

// CSVSource 从 UTF-8 CSV 文件读取文书，表头需包含 id 与 content 列
type CSVSource struct {
	path string
}

// NewCSVSource 创建 CSV 文书来源
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Documents 实现 Source 接口
func (s *CSVSource) Documents(ctx context.Context) ([]amount.Document, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()
	return ReadDocuments(f)
}

// ReadDocuments 读取带表头的文书 CSV，其他列被忽略
func ReadDocuments(r io.Reader) ([]amount.Document, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idCol, contentCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(trimBOM(name))) {
		case "id":
			idCol = i
		case "content":
			contentCol = i
		}
	}
	if idCol < 0 || contentCol < 0 {
		return nil, fmt.Errorf("input must have id and content columns, got %v", header)
	}

	var docs []amount.Document
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if idCol >= len(record) {
			return nil, fmt.Errorf("line %d: missing id", line)
		}
		doc := amount.Document{ID: record[idCol]}
		if contentCol < len(record) {
			doc.Content = record[contentCol]
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

// RepositorySource 从文书仓储按导入顺序读取
type RepositorySource struct {
	repo     repository.DocumentRepository
	pageSize int
}

// NewRepositorySource 创建仓储文书来源
func NewRepositorySource(repo repository.DocumentRepository, pageSize int) *RepositorySource {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &RepositorySource{repo: repo, pageSize: pageSize}
}

// Documents 实现 Source 接口
func (s *RepositorySource) Documents(ctx context.Context) ([]amount.Document, error) {
	var docs []amount.Document
	for offset := 0; ; offset += s.pageSize {
		page, total, err := s.repo.List(ctx, offset, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		for _, d := range page {
			docs = append(docs, amount.Document{ID: d.ID, Content: d.Content})
		}
		if len(page) < s.pageSize || int64(offset+len(page)) >= total {
			break
		}
	}
	return docs, nil
}

// SliceSource 内存中的文书来源
type SliceSource []amount.Document

// Documents 实现 Source 接口
func (s SliceSource) Documents(context.Context) ([]amount.Document, error) {
	out := make([]amount.Document, len(s))
	copy(out, s)
	return out, nil
}
