package catalog

import (
	"testing"

	"github.com/peaql/peaql/types"
)

type columnPositive struct{ column string }

func (c columnPositive) Eval(row Row) (types.Value, error) {
	v := row[c.column]
	return types.NewBoolean(v.Tag == types.TagInteger && v.I > 0), nil
}

func TestAddColumnRejectsDuplicateName(t *testing.T) {
	tbl := NewTable("t")
	if err := tbl.AddColumn(NewBaseColumn("id", types.Integer)); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddColumn(NewBaseColumn("id", types.String)); err == nil {
		t.Fatal("expected duplicate column error")
	}
}

func TestAppendAndReplaceRows(t *testing.T) {
	tbl := NewTable("t")
	_ = tbl.AddColumn(NewBaseColumn("id", types.Integer))
	if err := tbl.Append(Row{"id": types.NewInteger(1)}); err != nil {
		t.Fatal(err)
	}
	rows, _ := tbl.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	tbl.ReplaceRows([]Row{{"id": types.NewInteger(2)}, {"id": types.NewInteger(3)}})
	rows, _ = tbl.Rows()
	if len(rows) != 2 {
		t.Fatalf("got %d rows after replace, want 2", len(rows))
	}
}

func TestCatalogCloneIsShallowAndIndependent(t *testing.T) {
	c := New()
	c.CreateTable(NewTable("t"))
	clone := c.Clone()
	clone.CreateTable(NewTable("only_in_clone"))
	if c.TableExists("only_in_clone") {
		t.Fatal("mutating clone's table map affected the original catalog")
	}
	if !clone.TableExists("t") {
		t.Fatal("clone should share tables registered before cloning")
	}
}

func TestFromObjectInfersColumnTypes(t *testing.T) {
	records := []map[string]interface{}{
		{"id": float64(1), "name": "a", "active": true},
		{"id": float64(2), "name": "b", "active": false},
	}
	tbl := FromObject("people", records)
	idCol, ok := tbl.Column("id")
	if !ok || idCol.Type.Tag != types.TagInteger {
		t.Fatalf("id column = %+v, want integer", idCol)
	}
	nameCol, ok := tbl.Column("name")
	if !ok || nameCol.Type.Tag != types.TagString {
		t.Fatalf("name column = %+v, want string", nameCol)
	}
	rows, _ := tbl.Rows()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
}

func TestFromJSONRoundTripsAndEnforcesConstraints(t *testing.T) {
	model := TableModel{
		Name:    "accounts",
		Columns: []ColumnModel{{Name: "balance", Type: "integer"}},
		Constraints: []ConstraintModel{
			{Name: "accounts_balance_check", Column: "balance", Expr: "balance > 0"},
		},
		Data: []map[string]interface{}{{"balance": float64(10)}},
	}
	compile := func(exprText string, tbl *Table) (CompiledExpr, error) {
		return columnPositive{column: "balance"}, nil
	}
	tbl, err := FromJSON(model, compile)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	rows, _ := tbl.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	badModel := model
	badModel.Data = []map[string]interface{}{{"balance": float64(-5)}}
	if _, err := FromJSON(badModel, compile); err == nil {
		t.Fatal("expected constraint violation error for negative balance")
	}
}

func TestToJSONRendersRowsBackToGoValues(t *testing.T) {
	tbl := NewTable("t")
	_ = tbl.AddColumn(NewBaseColumn("id", types.Integer))
	_ = tbl.AddColumn(NewBaseColumn("label", types.String))
	_ = tbl.Append(Row{"id": types.NewInteger(7), "label": types.NewString("x")})

	model, err := tbl.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	if len(model.Data) != 1 || model.Data[0]["label"] != "x" {
		t.Fatalf("model.Data = %+v", model.Data)
	}
}

func TestLookupTypeNameIsCaseInsensitive(t *testing.T) {
	if _, ok := LookupTypeName("INTEGER"); !ok {
		t.Fatal("expected INTEGER to resolve")
	}
	if _, ok := LookupTypeName("not-a-type"); ok {
		t.Fatal("expected unknown type name to fail")
	}
}
