package extractor

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/penalty-amount/internal/span"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func texts(spans []span.TextSpan) []string {
	var out []string
	for _, s := range spans {
		out = append(out, s.Text)
	}
	return out
}

// TestRuleExtractor 测试关键词归类
func TestRuleExtractor(t *testing.T) {
	ex := NewRuleExtractor(WithRuleLogger(quietLogger()))

	tests := []struct {
		name         string
		text         string
		fine         []string
		confiscation []string
	}{
		{"fine only", "罚款50万元。", []string{"50万元"}, nil},
		{"fine and confiscation", "罚款30万元，没收15万元。", []string{"30万元"}, []string{"15万元"}},
		{"inherit within sentence", "罚款100万元，其中30万元用于退缴。", []string{"100万元", "30万元"}, nil},
		{"party list", "对甲&乙分别处以50万元罚款。", []string{"50万元"}, nil},
		{"following keyword", "决定：处5万元罚款。", []string{"5万元"}, nil},
		{"nearest preceding keyword", "没收违法所得5万元并处罚款10万元。", []string{"10万元"}, []string{"5万元"}},
		{"unlabelled dropped", "经查，涉案金额10万元。罚款5万元。", []string{"5万元"}, nil},
		{"no inheritance across sentences", "罚款5万元。10万元。", []string{"5万元"}, nil},
		{"no amounts", "当事人于2020年成立。", nil, nil},
		{"empty", "", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ex.Extract(context.Background(), []string{tt.text}, DefaultLabels)
			require.NoError(t, err)
			require.Len(t, res, 1)
			assert.Equal(t, tt.fine, texts(res[0].Spans(LabelFine)))
			assert.Equal(t, tt.confiscation, texts(res[0].Spans(LabelConfiscation)))
		})
	}
}

// TestRuleExtractorPositions 测试返回的区间为字符位置
func TestRuleExtractorPositions(t *testing.T) {
	ex := NewRuleExtractor(WithRuleLogger(quietLogger()))
	res, err := ex.Extract(context.Background(), []string{"罚款30万元，没收15万元。"}, DefaultLabels)
	require.NoError(t, err)

	assert.Equal(t, []span.TextSpan{{Start: 2, End: 6, Text: "30万元"}}, res[0].Spans(LabelFine))
	assert.Equal(t, []span.TextSpan{{Start: 9, End: 13, Text: "15万元"}}, res[0].Spans(LabelConfiscation))
}

// TestRuleExtractorLabels 测试只返回请求的标签
func TestRuleExtractorLabels(t *testing.T) {
	ex := NewRuleExtractor(WithRuleLogger(quietLogger()))
	ctx := context.Background()

	res, err := ex.Extract(ctx, []string{"罚款30万元，没收15万元。"}, []Label{LabelConfiscation})
	require.NoError(t, err)
	assert.Nil(t, res[0].Spans(LabelFine))
	assert.Len(t, res[0].Spans(LabelConfiscation), 1)

	_, err = ex.Extract(ctx, []string{"罚款30万元。"}, nil)
	assert.ErrorIs(t, err, ErrNoLabels)
}

// TestRuleExtractorCustomKeywords 测试自定义关键词
func TestRuleExtractorCustomKeywords(t *testing.T) {
	ex := NewRuleExtractor(
		WithRuleLogger(quietLogger()),
		WithKeywords(map[string]Label{"责令退赔": LabelConfiscation}),
	)
	res, err := ex.Extract(context.Background(), []string{"责令退赔8万元。罚款2万元。"}, DefaultLabels)
	require.NoError(t, err)
	assert.Equal(t, []string{"8万元"}, texts(res[0].Spans(LabelConfiscation)))
	assert.Nil(t, res[0].Spans(LabelFine))
}

// TestRuleExtractorCanceled 测试上下文取消
func TestRuleExtractorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRuleExtractor().Extract(ctx, []string{"罚款1万元。"}, DefaultLabels)
	assert.ErrorIs(t, err, context.Canceled)
}
