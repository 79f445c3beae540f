package plan

import (
	"testing"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

func ordersAndCustomers(t *testing.T) (Source, Source) {
	t.Helper()
	customers := catalog.NewTable("customers")
	if err := customers.AddColumn(catalog.NewBaseColumn("id", types.Integer)); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if err := customers.AddColumn(catalog.NewBaseColumn("name", types.String)); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	for _, r := range []catalog.Row{
		{"id": types.NewInteger(1), "name": types.NewString("ada")},
		{"id": types.NewInteger(2), "name": types.NewString("bob")},
	} {
		if err := customers.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	orders := catalog.NewTable("orders")
	if err := orders.AddColumn(catalog.NewBaseColumn("customer_id", types.Integer)); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if err := orders.AddColumn(catalog.NewBaseColumn("total", types.Integer)); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	for _, r := range []catalog.Row{
		{"customer_id": types.NewInteger(1), "total": types.NewInteger(100)},
		{"customer_id": types.NewInteger(1), "total": types.NewInteger(50)},
	} {
		if err := orders.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return TableScan{Alias: "c", Table: customers}, TableScan{Alias: "o", Table: orders}
}

func eqSig(t *testing.T) *registry.Signature {
	t.Helper()
	sig, _, err := registry.Default.Lookup("=", []types.DType{types.Integer, types.Integer})
	if err != nil {
		t.Fatalf("registry.Lookup(=): %v", err)
	}
	return sig
}

func TestHashJoinInnerOnlyEmitsMatches(t *testing.T) {
	customers, orders := ordersAndCustomers(t)
	j := HashJoin{
		Left: customers, Right: orders, Kind: JoinInner,
		LeftKeys:  []Node{ColumnRef{Key: "id", DType: types.Integer}},
		RightKeys: []Node{ColumnRef{Key: "customer_id", DType: types.Integer}},
	}
	rows, err := j.Rows()
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (ada's two orders, bob has none): %+v", len(rows), rows)
	}
	for _, r := range rows {
		if r["name"].String() != "ada" {
			t.Fatalf("expected only ada's orders to match, got %+v", r)
		}
	}
}

func TestHashJoinLeftKeepsUnmatchedLeftRows(t *testing.T) {
	customers, orders := ordersAndCustomers(t)
	j := HashJoin{
		Left: customers, Right: orders, Kind: JoinLeft,
		LeftKeys:  []Node{ColumnRef{Key: "id", DType: types.Integer}},
		RightKeys: []Node{ColumnRef{Key: "customer_id", DType: types.Integer}},
	}
	rows, err := j.Rows()
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (ada's 2 orders + bob's unmatched row): %+v", len(rows), rows)
	}
	sawBob := false
	for _, r := range rows {
		if r["name"].String() == "bob" {
			sawBob = true
			if _, ok := r["total"]; ok && !r["total"].IsNull() {
				t.Fatalf("bob's unmatched row shouldn't carry a joined total: %+v", r)
			}
		}
	}
	if !sawBob {
		t.Fatal("expected bob to appear once with no matching order")
	}
}

func TestNestedLoopJoinMatchesEqualSignature(t *testing.T) {
	customers, orders := ordersAndCustomers(t)
	on := Binary{
		Sig: eqSig(t), ResType: types.Boolean,
		Left:  ColumnRef{Key: "id", DType: types.Integer},
		Right: ColumnRef{Key: "customer_id", DType: types.Integer},
	}
	j := NestedLoopJoin{Left: customers, Right: orders, Kind: JoinInner, On: on}
	rows, err := j.Rows()
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(rows), rows)
	}
}
