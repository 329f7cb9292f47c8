package span

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// TextSpan 文本中的一个半开区间 [Start, End)
// 位置按字符（rune）计数，而非字节
type TextSpan struct {
	Start int    `json:"start"` // 起始位置（包含）
	End   int    `json:"end"`   // 结束位置（不包含）
	Text  string `json:"text"`  // 区间覆盖的文本
}

// New 创建文本区间，Start/End 非法时会被修正为合法区间
func New(start, end int, text string) TextSpan {
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	return TextSpan{Start: start, End: end, Text: text}
}

// Len 返回区间长度（字符数）
func (s TextSpan) Len() int {
	return s.End - s.Start
}

// Last 返回区间最后一个字符的位置（包含）
// 关系判断统一使用该值
func (s TextSpan) Last() int {
	return s.End - 1
}

// IsZero 判断是否为零值区间
func (s TextSpan) IsZero() bool {
	return s.Start == 0 && s.End == 0 && s.Text == ""
}

// Sort 按起始位置排序，起点相同时短区间在前
func Sort(spans []TextSpan) []TextSpan {
	out := make([]TextSpan, len(spans))
	copy(out, spans)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Start != out[b].Start {
			return out[a].Start < out[b].Start
		}
		return out[a].End < out[b].End
	})
	return out
}

// Locate 在文本中查找正则的所有匹配，按出现顺序返回
func Locate(re *regexp.Regexp, text string) []TextSpan {
	if re == nil || text == "" {
		return nil
	}
	return NewIndex(text).Locate(re)
}

// LocateLiteral 查找一个或多个固定短语的所有出现位置
// 多个短语的结果合并后按位置排序
func LocateLiteral(text string, needles ...string) []TextSpan {
	idx := NewIndex(text)
	var spans []TextSpan
	for _, needle := range needles {
		if needle == "" {
			continue
		}
		spans = append(spans, idx.Locate(regexp.MustCompile(regexp.QuoteMeta(needle)))...)
	}
	return Sort(spans)
}

// Slice 按字符位置截取文本
func Slice(text string, start, end int) string {
	return NewIndex(text).Slice(start, end)
}

// Cover 返回覆盖 [start, end) 的新区间，文本取自原文
func Cover(text string, start, end int) TextSpan {
	return NewIndex(text).Cover(start, end)
}

// Count 统计区间文本中某个子串的出现次数
func Count(s TextSpan, substr string) int {
	if substr == "" {
		return 0
	}
	return strings.Count(s.Text, substr)
}

// FromByteOffsets 将字节偏移转换为字符偏移的区间
func FromByteOffsets(text string, start, end int) TextSpan {
	return NewIndex(text).Span(start, end)
}

// Index 文本的字符位置表，同一文本上的多次查找与截取共用一张表
type Index struct {
	text    string
	offsets []int // offsets[k] 为第 k 个字符的字节偏移，末尾为 len(text)
}

// NewIndex 为文本构建字符位置表
func NewIndex(text string) *Index {
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for b := range text {
		offsets = append(offsets, b)
	}
	offsets = append(offsets, len(text))
	return &Index{text: text, offsets: offsets}
}

// Text 返回建表的原文
func (x *Index) Text() string {
	return x.text
}

// Len 返回字符数
func (x *Index) Len() int {
	return len(x.offsets) - 1
}

// Rune 返回字节偏移 b 之前的字符数
func (x *Index) Rune(b int) int {
	if b <= 0 {
		return 0
	}
	if b >= len(x.text) {
		return x.Len()
	}
	return sort.SearchInts(x.offsets, b)
}

// Span 按字节偏移创建区间
func (x *Index) Span(start, end int) TextSpan {
	return TextSpan{Start: x.Rune(start), End: x.Rune(end), Text: x.text[start:end]}
}

// Slice 按字符位置截取文本
func (x *Index) Slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > x.Len() {
		end = x.Len()
	}
	if start >= end {
		return ""
	}
	return x.text[x.offsets[start]:x.offsets[end]]
}

// Cover 返回覆盖 [start, end) 的新区间
func (x *Index) Cover(start, end int) TextSpan {
	s := New(start, end, "")
	s.Text = x.Slice(s.Start, s.End)
	return s
}

// Locate 查找正则的所有非空匹配
func (x *Index) Locate(re *regexp.Regexp) []TextSpan {
	if re == nil {
		return nil
	}
	matches := re.FindAllStringIndex(x.text, -1)
	if len(matches) == 0 {
		return nil
	}

	spans := make([]TextSpan, 0, len(matches))
	for _, m := range matches {
		if m[0] == m[1] {
			continue
		}
		spans = append(spans, x.Span(m[0], m[1]))
	}
	return spans
}
