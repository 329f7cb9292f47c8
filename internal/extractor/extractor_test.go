package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBatch 测试按批切分
func TestBatch(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e"}

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, Batch(in, 2))
	assert.Equal(t, [][]string{in}, Batch(in, 0))
	assert.Nil(t, Batch(nil, 3))
}

// TestExtractAll 测试分批调用并合并结果
func TestExtractAll(t *testing.T) {
	var calls [][]string
	ex := Func(func(ctx context.Context, texts []string, labels []Label) ([]Result, error) {
		calls = append(calls, texts)
		out := make([]Result, len(texts))
		for i := range texts {
			out[i] = Result{}
		}
		return out, nil
	})

	res, err := ExtractAll(context.Background(), ex, []string{"a", "b", "c"}, DefaultLabels, 2)
	require.NoError(t, err)
	assert.Len(t, res, 3)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, calls)
}

// TestExtractAllMismatch 测试结果数量不一致
func TestExtractAllMismatch(t *testing.T) {
	ex := Func(func(ctx context.Context, texts []string, labels []Label) ([]Result, error) {
		return []Result{{}}, nil
	})

	_, err := ExtractAll(context.Background(), ex, []string{"a", "b"}, DefaultLabels, 14)
	assert.ErrorIs(t, err, ErrResultMismatch)
}
