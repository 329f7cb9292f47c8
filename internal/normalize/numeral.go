package normalize

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NumeralConverter 中文数字转换接口
// 输入一段中文数字，返回阿拉伯数字字符串
type NumeralConverter interface {
	Convert(s string) (string, error)
}

// ConverterFunc 函数适配为 NumeralConverter
type ConverterFunc func(s string) (string, error)

// Convert 实现 NumeralConverter 接口
func (f ConverterFunc) Convert(s string) (string, error) {
	return f(s)
}

var (
	// ErrEmptyNumeral 空输入
	ErrEmptyNumeral = errors.New("empty numeral")
	// ErrInvalidNumeral 无法解析的中文数字
	ErrInvalidNumeral = errors.New("invalid chinese numeral")
	// ErrNumeralOverflow 数值超出范围
	ErrNumeralOverflow = errors.New("chinese numeral overflow")
)

// 中文数字到数值的映射
var chineseDigits = map[rune]int64{
	'〇': 0, '零': 0,
	'一': 1, '壹': 1,
	'二': 2, '贰': 2, '两': 2,
	'三': 3, '叁': 3,
	'四': 4, '肆': 4,
	'五': 5, '伍': 5,
	'六': 6, '陆': 6,
	'七': 7, '柒': 7,
	'八': 8, '捌': 8,
	'九': 9, '玖': 9,
}

// 节内单位
var sectionUnits = map[rune]int64{
	'十': 10, '拾': 10,
	'百': 100, '佰': 100,
	'千': 1000, '仟': 1000,
}

// 节单位
var magnitudeUnits = map[rune]int64{
	'万': 10000,
	'亿': 100000000,
}

const maxNumeral = int64(1) << 60

// NumeralCharset 参与数字替换的全部字符
const NumeralCharset = "〇零壹贰叁肆伍陆柒捌玖拾佰仟一二两三四五六七八九十百千万亿"

// IsNumeralRune 判断字符是否为中文数字或数量级字符
func IsNumeralRune(r rune) bool {
	return strings.ContainsRune(NumeralCharset, r)
}

// ChineseNumeral 默认的中文数字转换器
// 支持“一百二十三万四千”这样的标准写法、大写数字，以及“二〇二〇”这样的逐位写法
type ChineseNumeral struct{}

// Convert 将中文数字转换为阿拉伯数字字符串
func (ChineseNumeral) Convert(s string) (string, error) {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) == 0 {
		return "", ErrEmptyNumeral
	}

	if allDigits(runes) {
		var b strings.Builder
		for _, r := range runes {
			b.WriteString(strconv.FormatInt(chineseDigits[r], 10))
		}
		return b.String(), nil
	}

	v, err := parseChinese(runes)
	if err != nil {
		return "", errors.Wrapf(err, "convert %q", s)
	}
	return strconv.FormatInt(v, 10), nil
}

func allDigits(runes []rune) bool {
	for _, r := range runes {
		if _, ok := chineseDigits[r]; !ok {
			return false
		}
	}
	return true
}

// parseChinese 按“节”解析带单位的中文数字
func parseChinese(runes []rune) (int64, error) {
	var (
		total   int64
		section int64
		number  int64
		pending bool // 是否有尚未乘以单位的数字
		prevNum bool // 上一个字符是否为非零数字
		atStart = true
	)

	for _, r := range runes {
		if d, ok := chineseDigits[r]; ok {
			if prevNum && d != 0 {
				return 0, ErrInvalidNumeral
			}
			number = d
			pending = d != 0
			prevNum = d != 0
			atStart = false
			continue
		}
		prevNum = false

		if u, ok := sectionUnits[r]; ok {
			if !pending {
				// 只有“十”可以省略前面的“一”，且只能出现在开头或节单位之后
				if u != 10 || !atStart {
					return 0, ErrInvalidNumeral
				}
				number = 1
			}
			section += number * u
			number, pending, atStart = 0, false, false
			continue
		}

		if u, ok := magnitudeUnits[r]; ok {
			section += number
			if u == 100000000 {
				if total+section == 0 {
					return 0, ErrInvalidNumeral
				}
				if total+section > maxNumeral/u {
					return 0, ErrNumeralOverflow
				}
				total = (total + section) * u
			} else {
				if section == 0 {
					return 0, ErrInvalidNumeral
				}
				if section > maxNumeral/u {
					return 0, ErrNumeralOverflow
				}
				total += section * u
			}
			if total > maxNumeral || total < 0 {
				return 0, ErrNumeralOverflow
			}
			section, number, pending = 0, 0, false
			atStart = true
			continue
		}

		return 0, ErrInvalidNumeral
	}

	result := total + section + number
	if result > maxNumeral || result < 0 {
		return 0, ErrNumeralOverflow
	}
	return result, nil
}
