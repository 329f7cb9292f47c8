package span

import "fmt"

// Kind 两个区间之间的几何关系类型
type Kind int

const (
	// Overlaps 部分重叠
	Overlaps Kind = iota
	// ContainedBy 参照区间包含主体区间
	ContainedBy
	// Contains 主体区间包含参照区间
	Contains
	// Equal 两个区间完全相同
	Equal
	// Distance 互不相交，带符号距离
	Distance
)

// String 返回关系类型名称
func (k Kind) String() string {
	switch k {
	case Overlaps:
		return "overlaps"
	case ContainedBy:
		return "contained_by"
	case Contains:
		return "contains"
	case Equal:
		return "equal"
	case Distance:
		return "distance"
	default:
		return "unknown"
	}
}

// Relation 主体区间 i 相对参照区间 j 的关系
// Kind 为 Distance 时 Value 有效：正数表示参照区间在右侧，负数表示在左侧
type Relation struct {
	Kind  Kind
	Value int
}

// Touching 判断是否为接触类关系（重叠、包含、被包含、相等）
func (r Relation) Touching() bool {
	return r.Kind != Distance
}

// Abs 返回距离的绝对值，接触类关系返回 0
func (r Relation) Abs() int {
	if r.Kind != Distance {
		return 0
	}
	if r.Value < 0 {
		return -r.Value
	}
	return r.Value
}

// Inverse 返回从参照区间视角看的关系
func (r Relation) Inverse() Relation {
	switch r.Kind {
	case Contains:
		return Relation{Kind: ContainedBy}
	case ContainedBy:
		return Relation{Kind: Contains}
	case Distance:
		return Relation{Kind: Distance, Value: -r.Value}
	default:
		return r
	}
}

func (r Relation) String() string {
	if r.Kind == Distance {
		return fmt.Sprintf("distance(%d)", r.Value)
	}
	return r.Kind.String()
}

// Relate 判断区间 i 与区间 j 的关系
// 判断顺序与边界公式不可调整：下游过滤器依赖边界情况下的具体分类。
// 相同区间在第二条规则即被判为 ContainedBy，Equal 分支保留但不会命中。
func Relate(i, j TextSpan) Relation {
	i0, e1 := i.Start, i.Last()
	j0, f1 := j.Start, j.Last()

	switch {
	case (j0 <= e1 && f1 > e1 && i0 < j0) || (f1 >= i0 && j0 < i0 && e1 > f1):
		return Relation{Kind: Overlaps}
	case j0 <= i0 && f1 >= e1:
		return Relation{Kind: ContainedBy}
	case f1 <= e1 && j0 >= i0:
		return Relation{Kind: Contains}
	case f1 == e1 && j0 == i0:
		return Relation{Kind: Equal}
	case j0 > e1:
		return Relation{Kind: Distance, Value: j0 - e1}
	case f1 < i0:
		return Relation{Kind: Distance, Value: f1 - i0}
	}
	return Relation{Kind: Distance}
}

// Row 关系表中的一行
type Row struct {
	Subject   int      // 主体区间下标
	Reference int      // 参照区间下标
	Relation  Relation // 主体相对参照的关系
}

// Table 构建主体区间相对参照区间的关系表
// 每个主体保留全部接触关系，以及绝对距离最小的距离关系（并列全部保留）。
// strict 为 true 时每个主体只保留第一行。
func Table(subjects, refs []TextSpan, strict bool) []Row {
	var rows []Row
	for si, s := range subjects {
		group := relate(si, s, refs)
		if strict && len(group) > 0 {
			group = group[:1]
		}
		rows = append(rows, group...)
	}
	return rows
}

// relate 计算单个主体的关系行：接触行在前，最近距离行在后
func relate(si int, s TextSpan, refs []TextSpan) []Row {
	var touching, distant []Row
	for ri, r := range refs {
		rel := Relate(s, r)
		row := Row{Subject: si, Reference: ri, Relation: rel}
		if rel.Touching() {
			touching = append(touching, row)
		} else {
			distant = append(distant, row)
		}
	}

	if len(distant) == 0 {
		return touching
	}

	minAbs := distant[0].Relation.Abs()
	for _, row := range distant[1:] {
		if a := row.Relation.Abs(); a < minAbs {
			minAbs = a
		}
	}

	out := touching
	for _, row := range distant {
		if row.Relation.Abs() == minAbs {
			out = append(out, row)
		}
	}
	return out
}
