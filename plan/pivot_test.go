package plan

import (
	"testing"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/types"
)

func TestApplyPivotBuildsWideColumnsPerAxisBValue(t *testing.T) {
	rows := []catalog.Row{
		{"region": types.NewString("east"), "quarter": types.NewString("q1"), "total": types.NewInteger(10)},
		{"region": types.NewString("east"), "quarter": types.NewString("q2"), "total": types.NewInteger(20)},
		{"region": types.NewString("west"), "quarter": types.NewString("q1"), "total": types.NewInteger(5)},
	}
	spec := PivotSpec{
		AxisA:  ColumnRef{Key: "region", DType: types.String},
		AxisB:  ColumnRef{Key: "quarter", DType: types.String},
		Values: []PivotValue{{Name: "total", Node: ColumnRef{Key: "total", DType: types.Integer}}},
	}
	cols, out, err := applyPivot(rows, spec)
	if err != nil {
		t.Fatalf("applyPivot: %v", err)
	}
	wantCols := []string{"axis", "q1_total", "q2_total"}
	if len(cols) != len(wantCols) {
		t.Fatalf("got columns %+v, want %+v", cols, wantCols)
	}
	for i, c := range wantCols {
		if cols[i] != c {
			t.Fatalf("got columns %+v, want %+v", cols, wantCols)
		}
	}
	if len(out) != 2 {
		t.Fatalf("got %d rows, want 2 (one per distinct region): %+v", len(out), out)
	}
	// east sorts before west; east has both quarters, west is missing q2.
	if out[0][0].String() != "east" || out[0][1].I != 10 || out[0][2].I != 20 {
		t.Fatalf("unexpected east row: %+v", out[0])
	}
	if out[1][0].String() != "west" || out[1][1].I != 5 || !out[1][2].IsNull() {
		t.Fatalf("unexpected west row (missing q2 should be NULL): %+v", out[1])
	}
}
