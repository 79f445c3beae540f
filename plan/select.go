package plan

import (
	"sort"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/types"
)

// Target is one compiled SELECT-list entry, including hidden targets
// synthesized for GROUP BY / ORDER BY / PARTITION BY / PIVOT references that
// don't appear in the visible column list.
type Target struct {
	Node   Node
	Name   string
	Hidden bool
}

// Result is the output of executing any plan root: an ordered column vector
// plus rows in output order. AffectedRows is set instead of Columns/Rows for
// a plain DML statement with no RETURNING clause.
type Result struct {
	Columns         []string
	Rows            [][]types.Value
	AffectedRows    int
	HasAffectedRows bool
}

// Plan is any compiled, executable statement root: Select, Insert, Update,
// CreateTable, or a Statements sequence.
type Plan interface {
	Execute(cat *catalog.Catalog) (*Result, error)
}

// SelectPlan is a compiled SELECT. Grouping, windowing, and pivot are each
// optional stages; a plain `SELECT expr` with no FROM leaves From nil and
// evaluates every Target against a single empty row.
type SelectPlan struct {
	From    Source
	Where   Node
	Targets []Target

	Grouped bool
	Group   GroupSpec
	Having  Node

	Windows []WindowSlot
	Pivot   *PivotSpec

	OrderBy  []OrderSpec
	Distinct bool
	Limit    Node
	Offset   Node
}

func (p *SelectPlan) Execute(cat *catalog.Catalog) (*Result, error) {
	cols, rows, err := p.ResolveRows(nil)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: cols, Rows: rows}, nil
}

// ResolveRows runs the full select pipeline: scan/filter, group/aggregate,
// window, pivot, order/distinct/limit, project. outer is the enclosing row
// for a correlated subquery, merged into every base row before WHERE runs;
// nil for a top-level query.
func (p *SelectPlan) ResolveRows(outer catalog.Row) ([]string, [][]types.Value, error) {
	base, err := p.baseRows(outer)
	if err != nil {
		return nil, nil, err
	}

	if p.Where != nil {
		filtered := base[:0:0]
		for _, r := range base {
			v, err := p.Where.Eval(r)
			if err != nil {
				return nil, nil, err
			}
			if v.Truthy() {
				filtered = append(filtered, r)
			}
		}
		base = filtered
	}

	intermediate := base
	if p.Grouped {
		groups, err := evalGroups(base, p.Group)
		if err != nil {
			return nil, nil, err
		}
		intermediate = make([]catalog.Row, len(groups))
		for i, g := range groups {
			intermediate[i] = g.row
		}
		if p.Having != nil {
			filtered := intermediate[:0:0]
			for _, r := range intermediate {
				v, err := p.Having.Eval(r)
				if err != nil {
					return nil, nil, err
				}
				if v.Truthy() {
					filtered = append(filtered, r)
				}
			}
			intermediate = filtered
		}
	}

	if len(p.Windows) > 0 {
		w, err := evalWindows(intermediate, p.Windows)
		if err != nil {
			return nil, nil, err
		}
		intermediate = w
	}

	if p.Pivot != nil {
		cols, rows, err := applyPivot(intermediate, *p.Pivot)
		if err != nil {
			return nil, nil, err
		}
		rows, err = p.distinctLimit(rows)
		if err != nil {
			return nil, nil, err
		}
		return cols, rows, nil
	}

	n := len(intermediate)
	projected := make([][]types.Value, n)
	for i, row := range intermediate {
		vals := make([]types.Value, len(p.Targets))
		for j, t := range p.Targets {
			v, err := t.Node.Eval(row)
			if err != nil {
				return nil, nil, err
			}
			vals[j] = v
		}
		projected[i] = vals
	}

	if len(p.OrderBy) > 0 {
		orderVals := make([][]types.Value, n)
		for i, row := range intermediate {
			ov := make([]types.Value, len(p.OrderBy))
			for k, o := range p.OrderBy {
				v, err := o.Node.Eval(row)
				if err != nil {
					return nil, nil, err
				}
				ov[k] = v
			}
			orderVals[i] = ov
		}
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return orderLess(orderVals[idx[a]], orderVals[idx[b]], p.OrderBy)
		})
		reordered := make([][]types.Value, n)
		for pos, i := range idx {
			reordered[pos] = projected[i]
		}
		projected = reordered
	}

	rows, err := p.distinctLimit(projected)
	if err != nil {
		return nil, nil, err
	}

	cols := make([]string, 0, len(p.Targets))
	visIdx := make([]int, 0, len(p.Targets))
	for i, t := range p.Targets {
		if t.Hidden {
			continue
		}
		cols = append(cols, t.Name)
		visIdx = append(visIdx, i)
	}
	out := make([][]types.Value, len(rows))
	for i, r := range rows {
		vis := make([]types.Value, len(visIdx))
		for j, ti := range visIdx {
			vis[j] = r[ti]
		}
		out[i] = vis
	}
	return cols, out, nil
}

// baseRows produces the query's scanned+joined rows, merging outer into each
// one so a correlated subquery's WHERE/targets can reference the enclosing
// row's columns.
func (p *SelectPlan) baseRows(outer catalog.Row) ([]catalog.Row, error) {
	if p.From == nil {
		r := catalog.Row{}
		if outer != nil {
			r = mergeRows(outer, r)
		}
		return []catalog.Row{r}, nil
	}
	rows, err := p.From.Rows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 && p.scalarOnEmptyScan() {
		r := catalog.Row{}
		if outer != nil {
			r = mergeRows(outer, r)
		}
		return []catalog.Row{r}, nil
	}
	if outer == nil {
		return rows, nil
	}
	out := make([]catalog.Row, len(rows))
	for i, r := range rows {
		out[i] = mergeRows(outer, r)
	}
	return out, nil
}

// scalarOnEmptyScan reports whether an empty FROM-table scan should still
// produce a single row, matching SQL scalar-SELECT semantics for a
// non-grouped query whose targets don't depend on any scanned row: a plain
// `SELECT 1 FROM empty_table` emits one row, the same as `SELECT 1`. Grouped
// queries already get their empty-input row from evalGroups; windowed and
// pivoted queries have nothing to project over an empty partition, so they
// keep returning zero rows.
func (p *SelectPlan) scalarOnEmptyScan() bool {
	if p.Grouped || p.Pivot != nil || len(p.Windows) > 0 || p.Where != nil {
		return false
	}
	for _, t := range p.Targets {
		if !isRowIndependent(t.Node) {
			return false
		}
	}
	return true
}

// isRowIndependent reports whether n's value cannot vary across rows: it
// contains no column reference, aggregate/window slot, or subquery.
func isRowIndependent(n Node) bool {
	switch v := n.(type) {
	case Const:
		return true
	case ColumnRef, SlotRef, Exists, ScalarSubquery, ListSubquery:
		return false
	case Unary:
		return isRowIndependent(v.Operand)
	case Binary:
		return isRowIndependent(v.Left) && isRowIndependent(v.Right)
	case And:
		return isRowIndependent(v.Left) && isRowIndependent(v.Right)
	case Or:
		return isRowIndependent(v.Left) && isRowIndependent(v.Right)
	case Call:
		for _, a := range v.Args {
			if !isRowIndependent(a) {
				return false
			}
		}
		return true
	case Between:
		return isRowIndependent(v.Target) && isRowIndependent(v.Low) && isRowIndependent(v.High)
	case Case:
		for _, w := range v.Whens {
			if !isRowIndependent(w.Cond) || !isRowIndependent(w.Result) {
				return false
			}
		}
		return v.Else == nil || isRowIndependent(v.Else)
	case Collection:
		for _, item := range v.Items {
			if !isRowIndependent(item) {
				return false
			}
		}
		return true
	case Subscript:
		return isRowIndependent(v.Target) && isRowIndependent(v.Key)
	default:
		return false
	}
}

// distinctLimit applies DISTINCT (over every emitted column, pivoted or
// not), then LIMIT/OFFSET, matching the pipeline's order/distinct/limit
// sequencing.
func (p *SelectPlan) distinctLimit(rows [][]types.Value) ([][]types.Value, error) {
	if p.Distinct {
		seen := make(map[string]bool, len(rows))
		out := rows[:0:0]
		for _, r := range rows {
			k := tupleKey(r)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, r)
		}
		rows = out
	}

	offset := 0
	if p.Offset != nil {
		v, err := p.Offset.Eval(catalog.Row{})
		if err != nil {
			return nil, err
		}
		if !v.IsNull() {
			if f, ok := v.AsFloat64(); ok {
				offset = int(f)
			}
		}
	}
	if offset > len(rows) {
		offset = len(rows)
	}
	if offset < 0 {
		offset = 0
	}
	rows = rows[offset:]

	if p.Limit != nil {
		v, err := p.Limit.Eval(catalog.Row{})
		if err != nil {
			return nil, err
		}
		if !v.IsNull() {
			limit := len(rows)
			if f, ok := v.AsFloat64(); ok {
				limit = int(f)
			}
			if limit < 0 {
				limit = 0
			}
			if limit < len(rows) {
				rows = rows[:limit]
			}
		}
	}
	return rows, nil
}

// ResolveCorrelated runs the select against outer and repacks its output
// into Row values keyed by output column name, for EXISTS/scalar/list
// subquery evaluation.
func (p *SelectPlan) ResolveCorrelated(outer catalog.Row) ([]catalog.Row, error) {
	cols, rows, err := p.ResolveRows(outer)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Row, len(rows))
	for i, vals := range rows {
		r := make(catalog.Row, len(cols))
		for j, c := range cols {
			r[c] = vals[j]
		}
		out[i] = r
	}
	return out, nil
}
