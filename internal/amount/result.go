package amount

import (
	"math"

	"github.com/fyerfyer/penalty-amount/internal/extractor"
)

// Flag 金额类别
type Flag string

const (
	// Fine 罚款
	Fine Flag = "fine"
	// Confiscation 没收
	Confiscation Flag = "confiscation"
)

// Flags 每个文书需要计算的全部类别
var Flags = []Flag{Fine, Confiscation}

// Label 返回类别对应的抽取标签
func (f Flag) Label() extractor.Label {
	if f == Confiscation {
		return extractor.LabelConfiscation
	}
	return extractor.LabelFine
}

// Outcome 单个类别的计算结果类型
type Outcome string

const (
	// OutcomeAmount 成功得到金额
	OutcomeAmount Outcome = "amount"
	// OutcomeNone 没有候选金额，金额为 0
	OutcomeNone Outcome = "none"
	// OutcomeFailed 抽取或计算失败，金额按 0 处理
	OutcomeFailed Outcome = "failed"
)

// Result 单个类别的计算结果
type Result struct {
	Flag    Flag
	Value   float64
	Outcome Outcome
	Err     error
}

// Failed 判断是否计算失败
func (r Result) Failed() bool {
	return r.Outcome == OutcomeFailed
}

func amountResult(flag Flag, v float64) Result {
	return Result{Flag: flag, Value: v, Outcome: OutcomeAmount}
}

func noneResult(flag Flag) Result {
	return Result{Flag: flag, Outcome: OutcomeNone}
}

func failedResult(flag Flag, err error) Result {
	return Result{Flag: flag, Outcome: OutcomeFailed, Err: err}
}

// Document 待处理的文书
type Document struct {
	ID      string
	Content string
}

// Record 单个文书的计算结果
type Record struct {
	ID           string
	Fine         Result
	Confiscation Result
}

// Amount 罚没金额合计
func (r Record) Amount() float64 {
	return Round(r.Fine.Value + r.Confiscation.Value)
}

// Failed 任一类别计算失败
func (r Record) Failed() bool {
	return r.Fine.Failed() || r.Confiscation.Failed()
}

// Result 返回指定类别的结果
func (r Record) Result(flag Flag) Result {
	if flag == Confiscation {
		return r.Confiscation
	}
	return r.Fine
}

// Round 保留两位小数
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}
