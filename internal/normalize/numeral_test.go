package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestChineseNumeralConvert 测试中文数字转换
func TestChineseNumeralConvert(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"五十万", "500000"},
		{"十五", "15"},
		{"十", "10"},
		{"二十万", "200000"},
		{"一百零五", "105"},
		{"两千", "2000"},
		{"伍拾", "50"},
		{"壹佰", "100"},
		{"一百二十三万四千", "1234000"},
		{"一亿五千万", "150000000"},
		{"二〇二〇", "2020"},
		{"零五", "05"},
	}

	c := ChineseNumeral{}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := c.Convert(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestChineseNumeralInvalid 测试无法转换的输入
func TestChineseNumeralInvalid(t *testing.T) {
	c := ChineseNumeral{}

	_, err := c.Convert("")
	assert.ErrorIs(t, err, ErrEmptyNumeral)

	for _, in := range []string{"千万", "万一", "百万", "十十", "五十x"} {
		_, err := c.Convert(in)
		assert.ErrorIs(t, err, ErrInvalidNumeral, in)
		assert.Contains(t, err.Error(), in)
	}
}

// TestConverterFunc 测试函数适配器
func TestConverterFunc(t *testing.T) {
	var c NumeralConverter = ConverterFunc(func(s string) (string, error) {
		return "42", nil
	})
	got, err := c.Convert("四十二")
	require.NoError(t, err)
	assert.Equal(t, "42", got)

	assert.True(t, IsNumeralRune('亿'))
	assert.False(t, IsNumeralRune('元'))
}
