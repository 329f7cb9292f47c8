package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/penalty-amount/internal/cache"
	"github.com/fyerfyer/penalty-amount/internal/span"
)

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, texts []string, labels []Label) ([]Result, error) {
	args := m.Called(ctx, texts, labels)
	res, _ := args.Get(0).([]Result)
	return res, args.Error(1)
}

func fineResult(start, end int, text string) Result {
	return Result{LabelFine: {{Start: start, End: end, Text: text}}}
}

func testCachedExtractor(t *testing.T, c cache.Cache) {
	ctx := context.Background()
	inner := new(mockExtractor)
	ex := NewCachedExtractor(inner, c, time.Hour, quietLogger())

	inner.On("Extract", mock.Anything, []string{"罚款1万元。", "没有金额。"}, DefaultLabels).
		Return([]Result{fineResult(2, 5, "1万元"), {}}, nil).Once()
	inner.On("Extract", mock.Anything, []string{"罚款2万元。"}, DefaultLabels).
		Return([]Result{fineResult(2, 5, "2万元")}, nil).Once()

	first, err := ex.Extract(ctx, []string{"罚款1万元。", "没有金额。"}, DefaultLabels)
	require.NoError(t, err)
	assert.Equal(t, []Result{fineResult(2, 5, "1万元"), {}}, first)

	// 第二次只有未缓存的文本交给内部抽取器
	second, err := ex.Extract(ctx, []string{"没有金额。", "罚款2万元。", "罚款1万元。"}, DefaultLabels)
	require.NoError(t, err)
	assert.Equal(t, []Result{{}, fineResult(2, 5, "2万元"), fineResult(2, 5, "1万元")}, second)

	// 标签顺序不影响缓存命中
	third, err := ex.Extract(ctx, []string{"罚款1万元。"}, []Label{LabelConfiscation, LabelFine})
	require.NoError(t, err)
	assert.Equal(t, []span.TextSpan{{Start: 2, End: 5, Text: "1万元"}}, third[0].Spans(LabelFine))

	inner.AssertExpectations(t)
}

// TestCachedExtractorMemory 测试内存缓存
func TestCachedExtractorMemory(t *testing.T) {
	c, err := cache.New(cache.DefaultConfig())
	require.NoError(t, err)
	testCachedExtractor(t, c)
}

// TestCachedExtractorRedis 测试Redis缓存
func TestCachedExtractorRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.New(cache.Config{Type: cache.TypeRedis, RedisAddr: mr.Addr(), Namespace: "test"})
	require.NoError(t, err)
	defer c.Close()
	testCachedExtractor(t, c)
}

// TestCachedExtractorError 测试内部抽取失败时不写缓存
func TestCachedExtractorError(t *testing.T) {
	ctx := context.Background()
	c, err := cache.New(cache.DefaultConfig())
	require.NoError(t, err)

	inner := new(mockExtractor)
	inner.On("Extract", mock.Anything, []string{"x"}, DefaultLabels).
		Return(nil, errors.New("model unavailable")).Once()
	inner.On("Extract", mock.Anything, []string{"x"}, DefaultLabels).
		Return([]Result{{}}, nil).Once()

	ex := NewCachedExtractor(inner, c, 0, quietLogger())
	_, err = ex.Extract(ctx, []string{"x"}, DefaultLabels)
	assert.Error(t, err)

	res, err := ex.Extract(ctx, []string{"x"}, DefaultLabels)
	require.NoError(t, err)
	assert.Equal(t, []Result{{}}, res)
	inner.AssertExpectations(t)
}
