package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/penalty-amount/internal/span"
)

// 金额字面量：数字加货币单位
var moneyPattern = regexp.MustCompile(`\d+(?:\.\d+)?(?:亿元|千万元|万元|元|万)`)

// 分句与分小句的标点
const (
	sentenceBreaks = "；;。：:"
	clauseBreaks   = "，," + sentenceBreaks
)

// DefaultKeywords 默认的关键词到标签映射
func DefaultKeywords() map[string]Label {
	return map[string]Label{
		"没收":   LabelConfiscation,
		"违法所得": LabelConfiscation,
		"追缴":   LabelConfiscation,
		"罚款":   LabelFine,
		"处以":   LabelFine,
		"并处":   LabelFine,
	}
}

// RuleExtractor 基于关键词的本地金额抽取器
// 每个金额取所在小句中最近的前置关键词决定标签，没有前置关键词时取最近的后置关键词，
// 仍无法判断时沿用同一句中上一个金额的标签，最终无法归类的金额被丢弃。
type RuleExtractor struct {
	keywords map[string]Label
	needles  []string
	logger   *logrus.Logger
}

// RuleOption 规则抽取器配置选项
type RuleOption func(*RuleExtractor)

// WithKeywords 替换关键词映射
func WithKeywords(keywords map[string]Label) RuleOption {
	return func(r *RuleExtractor) {
		if len(keywords) > 0 {
			r.keywords = keywords
		}
	}
}

// WithRuleLogger 设置日志记录器
func WithRuleLogger(logger *logrus.Logger) RuleOption {
	return func(r *RuleExtractor) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRuleExtractor 创建规则抽取器
func NewRuleExtractor(opts ...RuleOption) *RuleExtractor {
	r := &RuleExtractor{
		keywords: DefaultKeywords(),
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for k := range r.keywords {
		r.needles = append(r.needles, k)
	}
	return r
}

// Extract 实现 Extractor 接口
func (r *RuleExtractor) Extract(ctx context.Context, texts []string, labels []Label) ([]Result, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	wanted := make(map[Label]bool, len(labels))
	for _, l := range labels {
		wanted[l] = true
	}

	results := make([]Result, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := Result{}
		for _, item := range r.classify(text) {
			if wanted[item.label] {
				res[item.label] = append(res[item.label], item.span)
			}
		}
		results[i] = res

		r.logger.WithFields(logrus.Fields{
			"fine":         len(res[LabelFine]),
			"confiscation": len(res[LabelConfiscation]),
		}).Debug("Rule extraction finished")
	}
	return results, nil
}

type labelled struct {
	span  span.TextSpan
	label Label
}

// classify 为文本中的每个金额字面量判定标签
func (r *RuleExtractor) classify(text string) []labelled {
	amounts := span.Locate(moneyPattern, text)
	if len(amounts) == 0 {
		return nil
	}
	keywords := span.LocateLiteral(text, r.needles...)
	runes := []rune(text)
	sentences := sentenceIDs(runes)

	var (
		out          []labelled
		prevLabel    Label
		prevSentence = -1
	)
	for _, a := range amounts {
		cs, ce := clauseBounds(runes, a)

		label := r.preceding(keywords, cs, a.Start)
		if label == "" {
			label = r.following(keywords, a.End, ce)
		}
		if label == "" && prevLabel != "" && sentences[a.Start] == prevSentence {
			label = prevLabel
		}
		if label == "" {
			continue
		}

		out = append(out, labelled{span: a, label: label})
		prevLabel, prevSentence = label, sentences[a.Start]
	}
	return out
}

// preceding 返回 [from, to) 内结束位置最靠后的关键词标签
func (r *RuleExtractor) preceding(keywords []span.TextSpan, from, to int) Label {
	best, bestEnd := Label(""), -1
	for _, kw := range keywords {
		if kw.Start >= from && kw.End <= to && kw.End > bestEnd {
			best, bestEnd = r.keywords[kw.Text], kw.End
		}
	}
	return best
}

// following 返回 [from, to) 内起始位置最靠前的关键词标签
func (r *RuleExtractor) following(keywords []span.TextSpan, from, to int) Label {
	for _, kw := range keywords {
		if kw.Start >= from && kw.End <= to {
			return r.keywords[kw.Text]
		}
	}
	return ""
}

// clauseBounds 返回金额所在小句的范围 [start, end)
func clauseBounds(runes []rune, a span.TextSpan) (int, int) {
	start := a.Start
	for start > 0 && !strings.ContainsRune(clauseBreaks, runes[start-1]) {
		start--
	}
	end := a.End
	for end < len(runes) && !strings.ContainsRune(clauseBreaks, runes[end]) {
		end++
	}
	return start, end
}

// sentenceIDs 为每个字符标注所在句子的序号
func sentenceIDs(runes []rune) []int {
	ids := make([]int, len(runes)+1)
	id := 0
	for i, r := range runes {
		ids[i] = id
		if strings.ContainsRune(sentenceBreaks, r) {
			id++
		}
	}
	ids[len(runes)] = id
	return ids
}
