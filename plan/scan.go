package plan

import (
	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/types"
)

// Source produces the row set a query reads from: a bare table scan, a
// derived subquery, or a join of two sources.
type Source interface {
	Rows() ([]catalog.Row, error)
}

// TableScan reads a catalog table's rows, qualifying every column both under
// its bare name and under "alias.name" so a compiled ColumnRef can use
// whichever key the compiler decided was unambiguous at the call site.
type TableScan struct {
	Alias string
	Table *catalog.Table
}

func (t TableScan) Rows() ([]catalog.Row, error) {
	rows, err := t.Table.Rows()
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Row, len(rows))
	for i, r := range rows {
		out[i] = qualify(t.Alias, r)
	}
	return out, nil
}

func qualify(alias string, row catalog.Row) catalog.Row {
	out := make(catalog.Row, len(row)*2)
	for k, v := range row {
		out[k] = v
		if alias != "" {
			out[alias+"."+k] = v
		}
	}
	return out
}

// SubquerySource runs a derived-table SelectPlan and qualifies its output
// columns the same way a base table scan does, so a query joining against a
// subquery or CTE compiles identically to one joining a real table (spec
// §4.3 step 2).
type SubquerySource struct {
	Alias string
	Inner RowsResolver
}

func (s SubquerySource) Rows() ([]catalog.Row, error) {
	cols, rows, err := s.Inner.ResolveRows(nil)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Row, len(rows))
	for i, vals := range rows {
		base := make(catalog.Row, len(cols))
		for j, c := range cols {
			base[c] = vals[j]
		}
		out[i] = qualify(s.Alias, base)
	}
	return out, nil
}

// JoinKind mirrors ast.JoinType, kept as plan's own copy for the same reason
// Frame is: the evaluator shouldn't need to know AST shapes.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
	JoinAnti
)

func mergeRows(l, r catalog.Row) catalog.Row {
	out := make(catalog.Row, len(l)+len(r))
	for k, v := range l {
		out[k] = v
	}
	for k, v := range r {
		out[k] = v
	}
	return out
}

// NestedLoopJoin evaluates On against every left×right pair; the
// general-purpose fallback for a join condition the compiler couldn't
// recognize as a pure equi-join.
type NestedLoopJoin struct {
	Left, Right Source
	Kind        JoinKind
	On          Node // nil for CROSS with no ON
}

func (j NestedLoopJoin) Rows() ([]catalog.Row, error) {
	lrows, err := j.Left.Rows()
	if err != nil {
		return nil, err
	}
	rrows, err := j.Right.Rows()
	if err != nil {
		return nil, err
	}

	var out []catalog.Row
	matchedRight := make([]bool, len(rrows))
	for _, l := range lrows {
		matched := false
		for ri, r := range rrows {
			merged := mergeRows(l, r)
			ok := true
			if j.On != nil {
				v, err := j.On.Eval(merged)
				if err != nil {
					return nil, err
				}
				ok = v.Truthy()
			}
			if !ok {
				continue
			}
			matched = true
			matchedRight[ri] = true
			if j.Kind != JoinAnti {
				out = append(out, merged)
			}
		}
		if !matched && (j.Kind == JoinLeft || j.Kind == JoinFull || j.Kind == JoinAnti) {
			out = append(out, l)
		}
	}
	if j.Kind == JoinRight || j.Kind == JoinFull {
		for ri, r := range rrows {
			if !matchedRight[ri] {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// HashJoin implements the equi-join fast path: On was decomposed by the
// compiler into paired left/right key expressions, hashed once per row
// instead of compared pairwise. Residual holds any remaining non-equi
// conjuncts still needing per-pair evaluation.
type HashJoin struct {
	Left, Right         Source
	Kind                JoinKind
	LeftKeys, RightKeys []Node
	Residual            Node
}

func (j HashJoin) Rows() ([]catalog.Row, error) {
	lrows, err := j.Left.Rows()
	if err != nil {
		return nil, err
	}
	rrows, err := j.Right.Rows()
	if err != nil {
		return nil, err
	}

	index := make(map[string][]int)
	for ri, r := range rrows {
		keyVals := make([]types.Value, len(j.RightKeys))
		null := false
		for i, k := range j.RightKeys {
			v, err := k.Eval(r)
			if err != nil {
				return nil, err
			}
			if v.IsNull() {
				null = true
				break
			}
			keyVals[i] = v
		}
		if null {
			continue
		}
		key := tupleKey(keyVals)
		index[key] = append(index[key], ri)
	}

	var out []catalog.Row
	matchedRight := make([]bool, len(rrows))
	for _, l := range lrows {
		keyVals := make([]types.Value, len(j.LeftKeys))
		skip := false
		for i, k := range j.LeftKeys {
			v, err := k.Eval(l)
			if err != nil {
				return nil, err
			}
			if v.IsNull() {
				skip = true
				break
			}
			keyVals[i] = v
		}
		matched := false
		if !skip {
			for _, ri := range index[tupleKey(keyVals)] {
				merged := mergeRows(l, rrows[ri])
				if j.Residual != nil {
					v, err := j.Residual.Eval(merged)
					if err != nil {
						return nil, err
					}
					if !v.Truthy() {
						continue
					}
				}
				matched = true
				matchedRight[ri] = true
				if j.Kind != JoinAnti {
					out = append(out, merged)
				}
			}
		}
		if !matched && (j.Kind == JoinLeft || j.Kind == JoinFull || j.Kind == JoinAnti) {
			out = append(out, l)
		}
	}
	if j.Kind == JoinRight || j.Kind == JoinFull {
		for ri, r := range rrows {
			if !matchedRight[ri] {
				out = append(out, r)
			}
		}
	}
	return out, nil
}
