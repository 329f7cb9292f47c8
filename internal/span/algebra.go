package span

// Operator 区间集合过滤算子：根据主体与参照的关系表筛选主体
type Operator func(subject, reference []TextSpan) []TextSpan

// Small 保留被参照区间包含的主体
func Small(subject, reference []TextSpan) []TextSpan {
	if len(subject) == 0 || len(reference) == 0 {
		return nil
	}
	return filterByGroup(subject, reference, func(group []Row) bool {
		return dominant(group).Kind == ContainedBy
	})
}

// Big 保留包含参照区间的主体
func Big(subject, reference []TextSpan) []TextSpan {
	if len(subject) == 0 || len(reference) == 0 {
		return nil
	}
	return filterByGroup(subject, reference, func(group []Row) bool {
		return dominant(group).Kind == Contains
	})
}

// Split 保留与所有参照区间都不相交的主体
// 参照为空时原样返回主体
func Split(subject, reference []TextSpan) []TextSpan {
	if len(subject) == 0 {
		return nil
	}
	if len(reference) == 0 {
		return clone(subject)
	}
	return filterByGroup(subject, reference, disjoint)
}

// AbsDistance 在 Split 的基础上要求最近距离的绝对值不超过 n
func AbsDistance(n int) Operator {
	return func(subject, reference []TextSpan) []TextSpan {
		if len(subject) == 0 {
			return nil
		}
		if len(reference) == 0 {
			return clone(subject)
		}
		return filterByGroup(subject, reference, func(group []Row) bool {
			if !disjoint(group) {
				return false
			}
			for _, row := range group {
				if row.Relation.Abs() > n {
					return false
				}
			}
			return true
		})
	}
}

// DirectedDistance 在 Split 的基础上要求最近参照位于指定方向
// sign > 0 表示参照在主体右侧，sign < 0 表示参照在主体左侧
func DirectedDistance(sign int) Operator {
	return func(subject, reference []TextSpan) []TextSpan {
		if len(subject) == 0 {
			return nil
		}
		if len(reference) == 0 {
			return clone(subject)
		}
		return filterByGroup(subject, reference, func(group []Row) bool {
			if !disjoint(group) {
				return false
			}
			for _, row := range group {
				if sameSign(row.Relation.Value, sign) {
					return true
				}
			}
			return false
		})
	}
}

// SpanSet 可链式组合的区间集合
type SpanSet struct {
	spans []TextSpan
}

// NewSet 创建区间集合
func NewSet(spans []TextSpan) SpanSet {
	return SpanSet{spans: clone(spans)}
}

// Apply 以 reference 为参照应用算子，返回新的集合
func (s SpanSet) Apply(op Operator, reference []TextSpan) SpanSet {
	return SpanSet{spans: op(s.spans, reference)}
}

// Spans 返回集合中的区间副本
func (s SpanSet) Spans() []TextSpan {
	return clone(s.spans)
}

// Len 返回集合大小
func (s SpanSet) Len() int {
	return len(s.spans)
}

// Empty 判断集合是否为空
func (s SpanSet) Empty() bool {
	return len(s.spans) == 0
}

// dominant 返回主体的主导关系：第一条接触关系，否则第一条最近距离关系
func dominant(group []Row) Relation {
	for _, row := range group {
		if row.Relation.Touching() {
			return row.Relation
		}
	}
	if len(group) > 0 {
		return group[0].Relation
	}
	return Relation{Kind: Distance}
}

// disjoint 判断关系组中是否全部为距离关系
func disjoint(group []Row) bool {
	for _, row := range group {
		if row.Relation.Touching() {
			return false
		}
	}
	return true
}

// filterByGroup 按主体分组关系表，保留 keep 返回 true 的主体
func filterByGroup(subject, reference []TextSpan, keep func([]Row) bool) []TextSpan {
	var out []TextSpan
	for si, s := range subject {
		if keep(relate(si, s, reference)) {
			out = append(out, s)
		}
	}
	return out
}

func sameSign(v, sign int) bool {
	switch {
	case sign > 0:
		return v > 0
	case sign < 0:
		return v < 0
	default:
		return v == 0
	}
}

func clone(spans []TextSpan) []TextSpan {
	if spans == nil {
		return nil
	}
	out := make([]TextSpan, len(spans))
	copy(out, spans)
	return out
}
