// Package extractor 定位文本中的罚没金额短语
// 对外统一为 Extractor 接口：可以是本地规则抽取，也可以是远程模型服务。
package extractor

import (
	"context"
	"errors"

	"github.com/fyerfyer/penalty-amount/internal/span"
)

// Label 抽取标签
type Label string

const (
	// LabelFine 罚款金额
	LabelFine Label = "罚款"
	// LabelConfiscation 没收金额
	LabelConfiscation Label = "没收金额"
)

// DefaultLabels 默认同时抽取的标签
var DefaultLabels = []Label{LabelFine, LabelConfiscation}

// DefaultBatchSize 单次调用抽取器的默认文本数量
const DefaultBatchSize = 14

var (
	// ErrNoLabels 未指定抽取标签
	ErrNoLabels = errors.New("no labels requested")
	// ErrResultMismatch 返回结果数量与输入文本数量不一致
	ErrResultMismatch = errors.New("extractor returned mismatched result count")
)

// Result 单个文本的抽取结果，按标签分组，组内按位置排序
type Result map[Label][]span.TextSpan

// Spans 返回指定标签的区间，未抽取到时返回 nil
func (r Result) Spans(label Label) []span.TextSpan {
	if r == nil {
		return nil
	}
	return r[label]
}

// Extractor 金额短语抽取接口
// 返回值与 texts 一一对应；某个文本没有结果时对应空 Result
type Extractor interface {
	Extract(ctx context.Context, texts []string, labels []Label) ([]Result, error)
}

// Func 函数适配为 Extractor
type Func func(ctx context.Context, texts []string, labels []Label) ([]Result, error)

// Extract 实现 Extractor 接口
func (f Func) Extract(ctx context.Context, texts []string, labels []Label) ([]Result, error) {
	return f(ctx, texts, labels)
}

// Batch 将文本按 size 切分为多组
func Batch(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var batches [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[start:end])
	}
	return batches
}

// ExtractAll 按批次调用抽取器，合并后的结果与 texts 一一对应
func ExtractAll(ctx context.Context, ex Extractor, texts []string, labels []Label, size int) ([]Result, error) {
	results := make([]Result, 0, len(texts))
	for _, batch := range Batch(texts, size) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := ex.Extract(ctx, batch, labels)
		if err != nil {
			return nil, err
		}
		if len(out) != len(batch) {
			return nil, ErrResultMismatch
		}
		results = append(results, out...)
	}
	return results, nil
}
