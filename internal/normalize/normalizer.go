package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

var (
	// 带千分位的数字
	groupedNumber = regexp.MustCompile(`\d{1,3}(?:[,，]\d{3})*(?:\.\d+)?`)
	// 以非零数字开头的数字串
	numberRun = regexp.MustCompile(`[1-9]\d*\.?\d*`)
	// 连续两个及以上的中文数字字符
	numeralRun = regexp.MustCompile(`[` + NumeralCharset + `]{2,}`)

	currencyReplacer = strings.NewReplacer(
		"人民币", "",
		"美元", "",
		"罚金", "罚款",
	)

	paddingReplacer = strings.NewReplacer(
		".万元", "万元",
		".元", "元",
	)
)

// 反复执行直到文本稳定的最大轮数
const maxPasses = 8

// Normalizer 文本规范化器
// 负责清理原始处罚文书文本，使数字与关键词匹配结果稳定
type Normalizer struct {
	converter NumeralConverter // 中文数字转换器
	logger    *logrus.Logger   // 日志记录器
}

// Option 规范化器配置选项
type Option func(*Normalizer)

// WithConverter 设置中文数字转换器
func WithConverter(c NumeralConverter) Option {
	return func(n *Normalizer) {
		if c != nil {
			n.converter = c
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// New 创建规范化器
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		converter: ChineseNumeral{},
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize 规范化文本，不会返回错误
// 重复执行单轮规范化直到结果不再变化，保证 Normalize(Normalize(x)) == Normalize(x)
func (n *Normalizer) Normalize(text string) string {
	cur := text
	for i := 0; i < maxPasses; i++ {
		next := n.pass(cur)
		if next == cur {
			return cur
		}
		cur = next
	}
	return cur
}

// pass 执行一轮完整的规范化步骤
// 任一步骤出现异常时，返回已完成部分并补齐句末标点
func (n *Normalizer) pass(text string) (out string) {
	out = text
	defer func() {
		if r := recover(); r != nil {
			n.logger.WithFields(logrus.Fields{
				"panic": fmt.Sprint(r),
			}).Warn("Normalization step failed, returning partial result")
			out = normalizeTerminators(out)
		}
	}()

	out = stripThousands(out)
	out = protectEnumeration(out)
	out = currencyReplacer.Replace(out)
	out = padDuplicates(out)
	out = n.convertNumerals(out)
	out = normalizeTerminators(out)
	return out
}

// stripThousands 去掉数字中的千分位分隔符
// 按匹配长度从长到短替换，避免短匹配破坏长匹配
func stripThousands(text string) string {
	seen := make(map[string]bool)
	var candidates []string
	for _, m := range groupedNumber.FindAllString(text, -1) {
		if !strings.ContainsAny(m, ",，") || seen[m] {
			continue
		}
		seen[m] = true
		candidates = append(candidates, m)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return utf8.RuneCountInString(candidates[i]) > utf8.RuneCountInString(candidates[j])
	})

	sep := strings.NewReplacer(",", "", "，", "")
	for _, c := range candidates {
		text = strings.ReplaceAll(text, c, sep.Replace(c))
	}
	return text
}

// protectEnumeration 将紧跟在数字后的顿号替换为 &，避免被当作并列分隔
func protectEnumeration(text string) string {
	if !strings.Contains(text, "、") {
		return text
	}
	runes := []rune(text)
	for i := 1; i < len(runes); i++ {
		if runes[i] != '、' {
			continue
		}
		prev := runes[i-1]
		if prev == '元' {
			continue
		}
		if (prev >= '0' && prev <= '9') || IsNumeralRune(prev) {
			runes[i] = '&'
		}
	}
	return string(runes)
}

// padDuplicates 为重复出现的数字追加 0，使每个数字字面量在文本中唯一
// 从后往前处理，每个数字追加的 0 的个数等于它前面尚未处理的同值数字个数
func padDuplicates(text string) string {
	locs := numberRun.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return text
	}

	values := make([]string, len(locs))
	for i, loc := range locs {
		values[i] = text[loc[0]:loc[1]]
	}

	changed := false
	for k := len(locs) - 1; k >= 0; k-- {
		count := 0
		for p := 0; p < k; p++ {
			if values[p] == values[k] {
				count++
			}
		}
		if count == 0 {
			continue
		}

		v := values[k]
		if !strings.Contains(v, ".") {
			v += "."
		}
		v += strings.Repeat("0", count)
		for collides(values, k, v) {
			v += "0"
		}
		values[k] = v
		changed = true
	}
	if !changed {
		return text
	}

	var b strings.Builder
	last := 0
	for i, loc := range locs {
		b.WriteString(text[last:loc[0]])
		b.WriteString(values[i])
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func collides(values []string, k int, v string) bool {
	for i, other := range values {
		if i != k && other == v {
			return true
		}
	}
	return false
}

// convertNumerals 将连续的中文数字替换为阿拉伯数字
// 转换失败的片段保持原样
func (n *Normalizer) convertNumerals(text string) string {
	locs := numeralRun.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	// 先按长度从长到短完成转换，再按位置回填
	unique := make([]string, 0, len(locs))
	seen := make(map[string]bool)
	for _, loc := range locs {
		run := text[loc[0]:loc[1]]
		if !seen[run] {
			seen[run] = true
			unique = append(unique, run)
		}
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return utf8.RuneCountInString(unique[i]) > utf8.RuneCountInString(unique[j])
	})

	converted := make(map[string]string, len(unique))
	for _, run := range unique {
		v, err := n.converter.Convert(run)
		if err != nil || v == "" {
			n.logger.WithFields(logrus.Fields{
				"numeral": run,
				"error":   err,
			}).Debug("Failed to convert chinese numeral, keeping original")
			continue
		}
		converted[run] = v
	}
	if len(converted) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		run := text[loc[0]:loc[1]]
		v, ok := converted[run]
		if !ok {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(v)
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// normalizeTerminators 句末补句号，“决定”后补冒号，并清理补零留下的多余小数点
func normalizeTerminators(text string) string {
	if !strings.HasSuffix(text, "。") {
		text += "。"
	}

	if strings.Contains(text, "决定") {
		var b strings.Builder
		rest := text
		for {
			i := strings.Index(rest, "决定")
			if i < 0 {
				b.WriteString(rest)
				break
			}
			end := i + len("决定")
			b.WriteString(rest[:end])
			rest = rest[end:]
			if !strings.HasPrefix(rest, ":") && !strings.HasPrefix(rest, "：") {
				b.WriteString("：")
			}
		}
		text = b.String()
	}

	return paddingReplacer.Replace(text)
}
