package amount

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fyerfyer/penalty-amount/internal/normalize"
)

// ErrUnparsable 金额数字部分无法解析
var ErrUnparsable = errors.New("unparsable amount")

// 货币单位及倍数，按顺序匹配：较短的单位是较长单位的子串
var units = []struct {
	suffix     string
	multiplier float64
}{
	{"亿元", 1e8},
	{"千万元", 1e7},
	{"万元", 1e4},
	{"元", 1},
	{"万", 1e4},
}

var literalCleaner = strings.NewReplacer("人民币", "", "的", "")

// Convert 将金额字面量换算为以元为单位的数值，保留两位小数
// 数字部分无法直接解析时交给中文数字转换器再试一次
func Convert(literal string, conv normalize.NumeralConverter) (float64, error) {
	s := strings.TrimSpace(literalCleaner.Replace(literal))

	number, multiplier := s, 1.0
	for _, u := range units {
		if i := strings.Index(s, u.suffix); i >= 0 {
			number, multiplier = s[:i], u.multiplier
			break
		}
	}
	number = strings.TrimSpace(number)

	v, err := strconv.ParseFloat(number, 64)
	if err != nil && conv != nil {
		if converted, cerr := conv.Convert(number); cerr == nil {
			v, err = strconv.ParseFloat(converted, 64)
		}
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparsable, literal)
	}
	return Round(v * multiplier), nil
}
