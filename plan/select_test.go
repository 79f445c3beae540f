package plan

import (
	"testing"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

func numbersTable(t *testing.T) *catalog.Table {
	t.Helper()
	tbl := catalog.NewTable("nums")
	if err := tbl.AddColumn(catalog.NewBaseColumn("n", types.Integer)); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	for _, n := range []int64{3, 1, 2, 2} {
		if err := tbl.Append(catalog.Row{"n": types.NewInteger(n)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return tbl
}

func gtSig(t *testing.T) *registry.Signature {
	t.Helper()
	sig, _, err := registry.Default.Lookup(">", []types.DType{types.Integer, types.Integer})
	if err != nil {
		t.Fatalf("registry.Lookup(>): %v", err)
	}
	return sig
}

func TestSelectPlanAppliesWhereFilter(t *testing.T) {
	tbl := numbersTable(t)
	p := &SelectPlan{
		From:  TableScan{Table: tbl},
		Where: Binary{Sig: gtSig(t), ResType: types.Boolean, Left: ColumnRef{Key: "n", DType: types.Integer}, Right: Const{Value: types.NewInteger(1), DType: types.Integer}},
		Targets: []Target{
			{Node: ColumnRef{Key: "n", DType: types.Integer}, Name: "n"},
		},
	}
	cols, rows, err := p.ResolveRows(nil)
	if err != nil {
		t.Fatalf("ResolveRows: %v", err)
	}
	if len(cols) != 1 || cols[0] != "n" {
		t.Fatalf("got columns %+v, want [n]", cols)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (n > 1 excludes the single 1): %+v", len(rows), rows)
	}
}

func TestSelectPlanDistinctDeduplicates(t *testing.T) {
	tbl := numbersTable(t)
	p := &SelectPlan{
		From:     TableScan{Table: tbl},
		Targets:  []Target{{Node: ColumnRef{Key: "n", DType: types.Integer}, Name: "n"}},
		Distinct: true,
	}
	_, rows, err := p.ResolveRows(nil)
	if err != nil {
		t.Fatalf("ResolveRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 distinct values (3, 1, 2): %+v", len(rows), rows)
	}
}

func TestSelectPlanOrderByThenLimitOffset(t *testing.T) {
	tbl := numbersTable(t)
	p := &SelectPlan{
		From:    TableScan{Table: tbl},
		Targets: []Target{{Node: ColumnRef{Key: "n", DType: types.Integer}, Name: "n"}},
		OrderBy: []OrderSpec{{Node: ColumnRef{Key: "n", DType: types.Integer}, Desc: false}},
		Limit:   Const{Value: types.NewInteger(2), DType: types.Integer},
		Offset:  Const{Value: types.NewInteger(1), DType: types.Integer},
	}
	_, rows, err := p.ResolveRows(nil)
	if err != nil {
		t.Fatalf("ResolveRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 after LIMIT 2 OFFSET 1: %+v", len(rows), rows)
	}
	if rows[0][0].I != 2 || rows[1][0].I != 2 {
		t.Fatalf("sorted order should be [1,2,2,3]; OFFSET 1 LIMIT 2 should give [2,2], got %+v", rows)
	}
}

func TestSelectPlanLimitOffsetAcceptRealTypedValues(t *testing.T) {
	tbl := numbersTable(t)
	p := &SelectPlan{
		From:    TableScan{Table: tbl},
		Targets: []Target{{Node: ColumnRef{Key: "n", DType: types.Integer}, Name: "n"}},
		OrderBy: []OrderSpec{{Node: ColumnRef{Key: "n", DType: types.Integer}, Desc: false}},
		Limit:   Const{Value: types.NewReal(2), DType: types.Real},
		Offset:  Const{Value: types.NewReal(1), DType: types.Real},
	}
	_, rows, err := p.ResolveRows(nil)
	if err != nil {
		t.Fatalf("ResolveRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 after LIMIT 2.0 OFFSET 1.0: %+v", len(rows), rows)
	}
	if rows[0][0].I != 2 || rows[1][0].I != 2 {
		t.Fatalf("sorted order should be [1,2,2,3]; OFFSET 1 LIMIT 2 should give [2,2], got %+v", rows)
	}
}

func TestSelectPlanNoFromEvaluatesSingleEmptyRow(t *testing.T) {
	p := &SelectPlan{
		Targets: []Target{{Node: Const{Value: types.NewInteger(42), DType: types.Integer}, Name: "answer"}},
	}
	cols, rows, err := p.ResolveRows(nil)
	if err != nil {
		t.Fatalf("ResolveRows: %v", err)
	}
	if len(cols) != 1 || cols[0] != "answer" {
		t.Fatalf("got columns %+v", cols)
	}
	if len(rows) != 1 || rows[0][0].I != 42 {
		t.Fatalf("got %+v, want a single row [42]", rows)
	}
}

func TestSelectPlanHiddenTargetsAreExcludedFromOutput(t *testing.T) {
	tbl := numbersTable(t)
	p := &SelectPlan{
		From: TableScan{Table: tbl},
		Targets: []Target{
			{Node: ColumnRef{Key: "n", DType: types.Integer}, Name: "n"},
			{Node: ColumnRef{Key: "n", DType: types.Integer}, Name: "\x00sort0", Hidden: true},
		},
	}
	cols, rows, err := p.ResolveRows(nil)
	if err != nil {
		t.Fatalf("ResolveRows: %v", err)
	}
	if len(cols) != 1 {
		t.Fatalf("got columns %+v, want only the visible target", cols)
	}
	for _, r := range rows {
		if len(r) != 1 {
			t.Fatalf("got row %+v, want a single visible value", r)
		}
	}
}
