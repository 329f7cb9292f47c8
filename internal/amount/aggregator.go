// Package amount 根据抽取出的候选金额计算每个文书的罚款与没收金额
package amount

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/penalty-amount/internal/extractor"
	"github.com/fyerfyer/penalty-amount/internal/normalize"
	"github.com/fyerfyer/penalty-amount/internal/span"
)

// 决定部分开始的标志短语，取最早出现的一个，之前的案情描述被丢弃
var boundaryPhrases = []string{
	"局决定", "会决定", "现对", "鉴于", ",决定：", "，决定：", "的规定", "的要求",
}

var (
	conclusionPattern = regexp.MustCompile(`综上|综合上述`)
	subtotalPattern   = regexp.MustCompile(`合计`)
	breakdownPattern  = regexp.MustCompile(`其中|[(（]作为`)
	sentencePattern   = regexp.MustCompile(`[\s\S]*?[：:；;。]`)
)

// Aggregator 金额汇总器
type Aggregator struct {
	normalizer *normalize.Normalizer
	extractor  extractor.Extractor
	converter  normalize.NumeralConverter
	batchSize  int
	logger     *logrus.Logger
}

// Option 汇总器配置选项
type Option func(*Aggregator)

// WithExtractor 设置金额抽取器
func WithExtractor(ex extractor.Extractor) Option {
	return func(a *Aggregator) {
		if ex != nil {
			a.extractor = ex
		}
	}
}

// WithNormalizer 设置文本规范化器
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(a *Aggregator) {
		if n != nil {
			a.normalizer = n
		}
	}
}

// WithConverter 设置金额换算时使用的中文数字转换器
func WithConverter(c normalize.NumeralConverter) Option {
	return func(a *Aggregator) {
		if c != nil {
			a.converter = c
		}
	}
}

// WithBatchSize 设置单次调用抽取器的文书数量
func WithBatchSize(size int) Option {
	return func(a *Aggregator) {
		if size > 0 {
			a.batchSize = size
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New 创建汇总器，默认使用规则抽取器
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		converter: normalize.ChineseNumeral{},
		batchSize: extractor.DefaultBatchSize,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.normalizer == nil {
		a.normalizer = normalize.New(normalize.WithConverter(a.converter), normalize.WithLogger(a.logger))
	}
	if a.extractor == nil {
		a.extractor = extractor.NewRuleExtractor(extractor.WithRuleLogger(a.logger))
	}
	return a
}

// Cut 丢弃最早的决定标志短语之前的内容
func Cut(raw string) string {
	first := -1
	for _, phrase := range boundaryPhrases {
		if i := strings.Index(raw, phrase); i >= 0 && (first < 0 || i < first) {
			first = i
		}
	}
	if first < 0 {
		return raw
	}
	return raw[first:]
}

// Prepare 截取决定部分并规范化
func (a *Aggregator) Prepare(raw string) string {
	return a.normalizer.Normalize(Cut(raw))
}

// Compute 计算单个文书的罚款与没收金额
func (a *Aggregator) Compute(ctx context.Context, doc Document) Record {
	return a.ComputeBatch(ctx, []Document{doc})[0]
}

// ComputeBatch 计算一批文书，整批只调用一次抽取器（超过批大小时分批调用）
// 单个文书的失败不会影响其他文书，返回值与 docs 一一对应
func (a *Aggregator) ComputeBatch(ctx context.Context, docs []Document) []Record {
	records := make([]Record, len(docs))
	if len(docs) == 0 {
		return records
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = a.safePrepare(doc)
	}

	extracted, err := extractor.ExtractAll(ctx, a.extractor, texts, extractor.DefaultLabels, a.batchSize)
	if err != nil {
		err = errors.Wrap(err, "amount extraction failed")
		a.logger.WithFields(logrus.Fields{
			"documents": len(docs),
			"error":     err,
		}).Error("Extractor failed for batch, amounts default to zero")
		for i, doc := range docs {
			records[i] = Record{
				ID:           doc.ID,
				Fine:         failedResult(Fine, err),
				Confiscation: failedResult(Confiscation, err),
			}
		}
		return records
	}

	for i, doc := range docs {
		records[i] = Record{
			ID:           doc.ID,
			Fine:         a.compute(doc, Fine, texts[i], extracted[i].Spans(Fine.Label())),
			Confiscation: a.compute(doc, Confiscation, texts[i], extracted[i].Spans(Confiscation.Label())),
		}
	}
	return records
}

func (a *Aggregator) safePrepare(doc Document) (text string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.WithFields(logrus.Fields{
				"id":      doc.ID,
				"content": doc.Content,
				"panic":   fmt.Sprint(r),
			}).Error("Failed to prepare document text")
			text = "。"
		}
	}()
	return a.Prepare(doc.Content)
}

// compute 计算一个类别，异常与错误都转为 OutcomeFailed
func (a *Aggregator) compute(doc Document, flag Flag, text string, amounts []span.TextSpan) Result {
	if len(amounts) == 0 {
		return noneResult(flag)
	}

	v, err := a.Aggregate(text, amounts)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"id":      doc.ID,
			"flag":    flag,
			"content": doc.Content,
			"error":   err,
		}).Error("Failed to aggregate amount, defaulting to zero")
		return failedResult(flag, err)
	}
	return amountResult(flag, v)
}

// Aggregate 根据规范化文本与候选金额区间计算总金额
// 过程中的异常会被恢复并作为错误返回
func (a *Aggregator) Aggregate(text string, amounts []span.TextSpan) (total float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			total, err = 0, fmt.Errorf("aggregation panic: %v", r)
		}
	}()

	if len(amounts) == 0 {
		return 0, nil
	}
	amounts = span.Sort(amounts)
	idx := span.NewIndex(text)
	sentences := idx.Locate(sentencePattern)

	// 存在“综上”时只计算其后的结论部分
	if cutoff, ok := conclusionCutoff(idx, amounts); ok {
		amounts = after(amounts, cutoff)
		sentences = trimStart(idx, sentences, cutoff)
	}

	for _, sentence := range span.Big(sentences, amounts) {
		sentence = restateSubtotal(idx, sentence, amounts)
		sentence = excludeBreakdown(idx, sentence, amounts)
		total += a.sentenceTotal(sentence, amounts)
	}
	return Round(total), nil
}

// conclusionCutoff 返回最后一个右侧仍有金额的“综上”位置
func conclusionCutoff(idx *span.Index, amounts []span.TextSpan) (int, bool) {
	anchors := idx.Locate(conclusionPattern)
	for k := len(anchors) - 1; k >= 0; k-- {
		anchor := []span.TextSpan{anchors[k]}
		if !span.NewSet(amounts).Apply(span.DirectedDistance(-1), anchor).Empty() {
			return anchors[k].Start, true
		}
	}
	return 0, false
}

// restateSubtotal 句中“合计”之后还有金额时，从最后一个这样的“合计”开始截取
func restateSubtotal(idx *span.Index, sentence span.TextSpan, amounts []span.TextSpan) span.TextSpan {
	inSentence := within(amounts, sentence)
	markers := span.Small(idx.Locate(subtotalPattern), []span.TextSpan{sentence})
	for k := len(markers) - 1; k >= 0; k-- {
		marker := []span.TextSpan{markers[k]}
		if !span.NewSet(inSentence).Apply(span.DirectedDistance(-1), marker).Empty() {
			return idx.Cover(markers[k].Start, sentence.End)
		}
	}
	return sentence
}

// excludeBreakdown 句中“其中”之前已有金额时，截断到第一个这样的“其中”之前
func excludeBreakdown(idx *span.Index, sentence span.TextSpan, amounts []span.TextSpan) span.TextSpan {
	inSentence := within(amounts, sentence)
	markers := span.Small(idx.Locate(breakdownPattern), []span.TextSpan{sentence})
	for _, m := range markers {
		if !span.NewSet(inSentence).Apply(span.DirectedDistance(1), []span.TextSpan{m}).Empty() {
			return idx.Cover(sentence.Start, m.Start)
		}
	}
	return sentence
}

// sentenceTotal 计算一句内的金额
// 只有一个金额且出现“分别”或“各”时，按顿号分隔的当事人数量倍乘
func (a *Aggregator) sentenceTotal(sentence span.TextSpan, amounts []span.TextSpan) float64 {
	inSentence := within(amounts, sentence)
	if len(inSentence) == 0 {
		return 0
	}

	if len(inSentence) == 1 && (strings.Contains(sentence.Text, "分别") || strings.Contains(sentence.Text, "各")) {
		return a.value(inSentence[0]) * float64(span.Count(sentence, "、")+1)
	}

	var sum float64
	for _, s := range inSentence {
		sum += a.value(s)
	}
	return sum
}

// value 换算单个金额，失败时记 0
func (a *Aggregator) value(s span.TextSpan) float64 {
	v, err := Convert(s.Text, a.converter)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"literal": s.Text,
			"error":   err,
		}).Warn("Failed to convert amount literal")
		return 0
	}
	return v
}

func within(amounts []span.TextSpan, sentence span.TextSpan) []span.TextSpan {
	return span.NewSet(amounts).Apply(span.Small, []span.TextSpan{sentence}).Spans()
}

func after(spans []span.TextSpan, pos int) []span.TextSpan {
	var out []span.TextSpan
	for _, s := range spans {
		if s.Start >= pos {
			out = append(out, s)
		}
	}
	return out
}

// trimStart 丢弃 pos 之前的句子，跨越 pos 的句子从 pos 开始截取
func trimStart(idx *span.Index, sentences []span.TextSpan, pos int) []span.TextSpan {
	var out []span.TextSpan
	for _, s := range sentences {
		switch {
		case s.End <= pos:
			continue
		case s.Start < pos:
			out = append(out, idx.Cover(pos, s.End))
		default:
			out = append(out, s)
		}
	}
	return out
}
