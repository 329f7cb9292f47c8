package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/penalty-amount/internal/normalize"
)

// TestConvert 测试金额单位换算
func TestConvert(t *testing.T) {
	tests := []struct {
		literal string
		want    float64
	}{
		{"50万元", 500000},
		{"10.0万元", 100000},
		{"1.5亿元", 150000000},
		{"3千万元", 30000000},
		{"100元", 100},
		{"5万", 50000},
		{"人民币10万元", 100000},
		{"的2万元", 20000},
		{"1234.567元", 1234.57},
		{"五十万元", 500000},
		{"800", 800},
	}

	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			got, err := Convert(tt.literal, normalize.ChineseNumeral{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestConvertUnparsable 测试无法解析的金额
func TestConvertUnparsable(t *testing.T) {
	_, err := Convert("abc元", normalize.ChineseNumeral{})
	assert.ErrorIs(t, err, ErrUnparsable)

	_, err = Convert("五十万元", nil)
	assert.ErrorIs(t, err, ErrUnparsable)
}

// TestRecord 测试合计金额
func TestRecord(t *testing.T) {
	r := Record{
		ID:           "1",
		Fine:         amountResult(Fine, 0.1),
		Confiscation: amountResult(Confiscation, 0.2),
	}
	assert.Equal(t, 0.3, r.Amount())
	assert.False(t, r.Failed())
	assert.Equal(t, Confiscation, r.Result(Confiscation).Flag)
	assert.Equal(t, Fine.Label(), r.Result(Fine).Flag.Label())
}
