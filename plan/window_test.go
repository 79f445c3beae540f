package plan

import (
	"testing"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

func sumFactory(t *testing.T) registry.AggregatorFactory {
	t.Helper()
	factory, _, ok := registry.Default.LookupAggregate("sum", []types.DType{types.Integer})
	if !ok {
		t.Fatal("registry.LookupAggregate(sum, Integer): not found")
	}
	return factory
}

func TestWindowExcludeCurrentRowMasksInteriorFrameRow(t *testing.T) {
	rows := make([]catalog.Row, 5)
	for i, n := range []int64{10, 20, 30, 40, 50} {
		rows[i] = catalog.Row{"n": types.NewInteger(n)}
	}
	slot := WindowSlot{
		Handle:     1,
		OrderBy:    []OrderSpec{{Node: ColumnRef{Key: "n", DType: types.Integer}}},
		Args:       []Node{ColumnRef{Key: "n", DType: types.Integer}},
		ArgTypes:   []types.DType{types.Integer},
		AggFactory: sumFactory(t),
		Frame: Frame{
			Type:      FrameRows,
			Preceding: FrameBound{Offset: 1},
			Following: FrameBound{Offset: 1},
			Exclude:   ExcludeCurrentRow,
		},
	}
	out, err := evalWindows(rows, []WindowSlot{slot})
	if err != nil {
		t.Fatalf("evalWindows: %v", err)
	}
	key := windowSlotKey(slot.Handle)

	// Interior row (n=30): frame is [20,30,40], current row excluded -> 20+40=60.
	got := out[2][key]
	if got.String() != "60" {
		t.Fatalf("row n=30: got sum %s, want 60 (20+40, current row excluded)", got.String())
	}

	// Edge row (n=10): frame is [10,20], current row excluded -> 20.
	got = out[0][key]
	if got.String() != "20" {
		t.Fatalf("row n=10: got sum %s, want 20 (20, current row excluded)", got.String())
	}

	// Edge row (n=50): frame is [40,50], current row excluded -> 40.
	got = out[4][key]
	if got.String() != "40" {
		t.Fatalf("row n=50: got sum %s, want 40 (40, current row excluded)", got.String())
	}

	// Interior row (n=20): frame is [10,20,30], current row excluded -> 10+30=40.
	got = out[1][key]
	if got.String() != "40" {
		t.Fatalf("row n=20: got sum %s, want 40 (10+30, current row excluded)", got.String())
	}
}
