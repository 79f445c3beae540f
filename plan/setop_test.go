package plan

import (
	"testing"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/types"
)

type constRows struct {
	cols []string
	rows [][]types.Value
}

func (c constRows) ResolveRows(catalog.Row) ([]string, [][]types.Value, error) {
	return c.cols, c.rows, nil
}

func TestSetOpUnionDedupesByDefault(t *testing.T) {
	left := constRows{cols: []string{"n"}, rows: [][]types.Value{{types.NewInteger(1)}, {types.NewInteger(2)}}}
	right := constRows{cols: []string{"n"}, rows: [][]types.Value{{types.NewInteger(2)}, {types.NewInteger(3)}}}
	op := &SetOpPlan{Op: "UNION", Left: left, Right: right}
	_, rows, err := op.ResolveRows(nil)
	if err != nil {
		t.Fatalf("ResolveRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (1,2,3 deduplicated): %+v", len(rows), rows)
	}
}

func TestSetOpUnionAllKeepsDuplicates(t *testing.T) {
	left := constRows{cols: []string{"n"}, rows: [][]types.Value{{types.NewInteger(1)}, {types.NewInteger(2)}}}
	right := constRows{cols: []string{"n"}, rows: [][]types.Value{{types.NewInteger(2)}, {types.NewInteger(3)}}}
	op := &SetOpPlan{Op: "UNION", All: true, Left: left, Right: right}
	_, rows, err := op.ResolveRows(nil)
	if err != nil {
		t.Fatalf("ResolveRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4 (no dedup with ALL): %+v", len(rows), rows)
	}
}

func TestSetOpIntersect(t *testing.T) {
	left := constRows{cols: []string{"n"}, rows: [][]types.Value{{types.NewInteger(1)}, {types.NewInteger(2)}, {types.NewInteger(2)}}}
	right := constRows{cols: []string{"n"}, rows: [][]types.Value{{types.NewInteger(2)}, {types.NewInteger(3)}}}
	op := &SetOpPlan{Op: "INTERSECT", Left: left, Right: right}
	_, rows, err := op.ResolveRows(nil)
	if err != nil {
		t.Fatalf("ResolveRows: %v", err)
	}
	if len(rows) != 1 || rows[0][0].I != 2 {
		t.Fatalf("got %+v, want a single row [2]", rows)
	}
}

func TestSetOpExcept(t *testing.T) {
	left := constRows{cols: []string{"n"}, rows: [][]types.Value{{types.NewInteger(1)}, {types.NewInteger(2)}, {types.NewInteger(3)}}}
	right := constRows{cols: []string{"n"}, rows: [][]types.Value{{types.NewInteger(2)}}}
	op := &SetOpPlan{Op: "EXCEPT", Left: left, Right: right}
	_, rows, err := op.ResolveRows(nil)
	if err != nil {
		t.Fatalf("ResolveRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (1 and 3, 2 excluded): %+v", len(rows), rows)
	}
}
