package plan

import (
	"fmt"
	"sort"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/types"
)

// PivotSpec transforms a grouped result's rows into a wide layout: the
// unique values of AxisB become new columns, holding each remaining value
// column's value at that (AxisA, AxisB) cross. AxisB must be a GROUP BY key
// and the two axes must differ, enforced by the compiler before a
// PivotSpec is ever built.
type PivotSpec struct {
	AxisA  Node
	AxisB  Node
	Values []PivotValue
}

type PivotValue struct {
	Name string
	Node Node
}

// applyPivot runs the pivot transform over already-grouped rows, returning
// the pivoted column names ("axis" for AxisA's own column, then
// "<bValue>_<valueColumnName>" per (b value, value column) pair in
// first-seen b-value order) and one output row per distinct AxisA value,
// sorted by AxisA.
func applyPivot(rows []catalog.Row, p PivotSpec) ([]string, [][]types.Value, error) {
	type cell struct {
		aVal, bVal types.Value
		vals       []types.Value
	}
	var cells []cell
	bSeen := make(map[string]bool)
	var bKeys []string
	aValByKey := make(map[string]types.Value)
	var aKeys []string

	for _, row := range rows {
		a, err := p.AxisA.Eval(row)
		if err != nil {
			return nil, nil, err
		}
		b, err := p.AxisB.Eval(row)
		if err != nil {
			return nil, nil, err
		}
		vals := make([]types.Value, len(p.Values))
		for i, v := range p.Values {
			vv, err := v.Node.Eval(row)
			if err != nil {
				return nil, nil, err
			}
			vals[i] = vv
		}
		ak, bk := a.String(), b.String()
		if _, ok := aValByKey[ak]; !ok {
			aValByKey[ak] = a
			aKeys = append(aKeys, ak)
		}
		if !bSeen[bk] {
			bSeen[bk] = true
			bKeys = append(bKeys, bk)
		}
		cells = append(cells, cell{aVal: a, bVal: b, vals: vals})
	}

	sort.SliceStable(aKeys, func(i, j int) bool {
		vi, vj := aValByKey[aKeys[i]], aValByKey[aKeys[j]]
		if c, ok := types.Compare(vi, vj); ok {
			return c < 0
		}
		return aKeys[i] < aKeys[j]
	})

	byAB := make(map[string]cell, len(cells))
	for _, c := range cells {
		byAB[c.aVal.String()+"\x1f"+c.bVal.String()] = c
	}

	cols := []string{"axis"}
	for _, bk := range bKeys {
		for _, v := range p.Values {
			cols = append(cols, fmt.Sprintf("%s_%s", bk, v.Name))
		}
	}

	rowsOut := make([][]types.Value, 0, len(aKeys))
	for _, ak := range aKeys {
		out := make([]types.Value, len(cols))
		out[0] = aValByKey[ak]
		col := 1
		for _, bk := range bKeys {
			c, ok := byAB[ak+"\x1f"+bk]
			for vi := range p.Values {
				if ok {
					out[col] = c.vals[vi]
				} else {
					out[col] = types.Nil
				}
				col++
			}
		}
		rowsOut = append(rowsOut, out)
	}
	return cols, rowsOut, nil
}
