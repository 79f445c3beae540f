package plan

import (
	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/types"
)

// RowsResolver is satisfied by SelectPlan and SetOpPlan alike, letting a
// UNION/INTERSECT/EXCEPT chain nest arbitrarily and letting a set operation
// itself be used as a FROM subquery source.
type RowsResolver interface {
	ResolveRows(outer catalog.Row) ([]string, [][]types.Value, error)
}

// SetOpPlan combines two queries' row bags via UNION/INTERSECT/EXCEPT [ALL].
// Columns are taken from Left; the compiler is responsible for giving Left
// and Right the same output arity.
type SetOpPlan struct {
	Op    string // "UNION", "INTERSECT", "EXCEPT"; ALL is carried in All, not appended here
	All   bool
	Left  RowsResolver
	Right RowsResolver
}

func (s *SetOpPlan) Execute(cat *catalog.Catalog) (*Result, error) {
	cols, rows, err := s.ResolveRows(nil)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: cols, Rows: rows}, nil
}

func (s *SetOpPlan) ResolveRows(outer catalog.Row) ([]string, [][]types.Value, error) {
	cols, lrows, err := s.Left.ResolveRows(outer)
	if err != nil {
		return nil, nil, err
	}
	_, rrows, err := s.Right.ResolveRows(outer)
	if err != nil {
		return nil, nil, err
	}

	switch s.Op {
	case "UNION":
		out := append(append([][]types.Value{}, lrows...), rrows...)
		if !s.All {
			out = dedupeRows(out)
		}
		return cols, out, nil
	case "INTERSECT":
		count := make(map[string]int, len(rrows))
		for _, r := range rrows {
			count[tupleKey(r)]++
		}
		var out [][]types.Value
		seen := make(map[string]bool)
		for _, r := range lrows {
			k := tupleKey(r)
			if count[k] <= 0 {
				continue
			}
			if !s.All && seen[k] {
				continue
			}
			out = append(out, r)
			seen[k] = true
			if s.All {
				count[k]--
			}
		}
		return cols, out, nil
	case "EXCEPT":
		exclude := make(map[string]bool, len(rrows))
		for _, r := range rrows {
			exclude[tupleKey(r)] = true
		}
		var out [][]types.Value
		seen := make(map[string]bool)
		for _, r := range lrows {
			k := tupleKey(r)
			if exclude[k] {
				continue
			}
			if !s.All && seen[k] {
				continue
			}
			out = append(out, r)
			seen[k] = true
		}
		return cols, out, nil
	default:
		return cols, append(lrows, rrows...), nil
	}
}

func dedupeRows(rows [][]types.Value) [][]types.Value {
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
	return out
}
