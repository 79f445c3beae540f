package compiler

import (
	"testing"

	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/parser"
	"github.com/peaql/peaql/types"
)

func parseOneCreate(t *testing.T, src string) *ast.CreateStmt {
	t.Helper()
	stmts, _, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	if len(stmts.Stmts) != 1 {
		t.Fatalf("Parse(%q): got %d statements, want 1", src, len(stmts.Stmts))
	}
	create, ok := stmts.Stmts[0].(*ast.CreateStmt)
	if !ok {
		t.Fatalf("Parse(%q): statement is %T, want *ast.CreateStmt", src, stmts.Stmts[0])
	}
	return create
}

func TestCompileCreateNamesSingleColumnTableLevelCheckAfterItsColumn(t *testing.T) {
	create := parseOneCreate(t, "CREATE TABLE t1 (a STRING, b INTEGER, CHECK(b > 100))")
	cat := catalog.New()
	c := New(cat)
	plan, err := c.compileCreate(create, newRootScope(cat), Params{})
	if err != nil {
		t.Fatalf("compileCreate: %v", err)
	}
	if len(plan.Table.Constraints) != 1 {
		t.Fatalf("got %d constraints, want 1: %+v", len(plan.Table.Constraints), plan.Table.Constraints)
	}
	got := plan.Table.Constraints[0]
	if got.Name != "t1_b_check" {
		t.Fatalf("got constraint name %q, want %q", got.Name, "t1_b_check")
	}
	if got.Column != "b" {
		t.Fatalf("got constraint column %q, want %q", got.Column, "b")
	}
}

func TestCompileCreateFallsBackToNumberedNameForMultiColumnTableLevelCheck(t *testing.T) {
	create := parseOneCreate(t, "CREATE TABLE t1 (a INTEGER, b INTEGER, CHECK(a < b))")
	cat := catalog.New()
	c := New(cat)
	plan, err := c.compileCreate(create, newRootScope(cat), Params{})
	if err != nil {
		t.Fatalf("compileCreate: %v", err)
	}
	if len(plan.Table.Constraints) != 1 {
		t.Fatalf("got %d constraints, want 1: %+v", len(plan.Table.Constraints), plan.Table.Constraints)
	}
	got := plan.Table.Constraints[0]
	if got.Name != "t1_check_0" {
		t.Fatalf("got constraint name %q, want %q", got.Name, "t1_check_0")
	}
}

func TestRenderExprRoundTripsSimpleComparison(t *testing.T) {
	sel := parseOneSelect(t, "SELECT balance > 0 FROM t")
	got := renderExpr(sel.Targets[0].Expr)
	want := "(balance > 0)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderExprFuncCall(t *testing.T) {
	sel := parseOneSelect(t, "SELECT upper(name) FROM t")
	got := renderExpr(sel.Targets[0].Expr)
	want := "upper(name)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderExprQualifiedIdent(t *testing.T) {
	sel := parseOneSelect(t, "SELECT t.a FROM t")
	got := renderExpr(sel.Targets[0].Expr)
	want := "t.a"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCompileTableExprAgainstTableColumns(t *testing.T) {
	tbl := catalog.NewTable("accounts")
	if err := tbl.AddColumn(catalog.NewBaseColumn("balance", types.Integer)); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	c := New(catalog.New())
	node, err := c.CompileTableExpr("balance > 0", tbl)
	if err != nil {
		t.Fatalf("CompileTableExpr: %v", err)
	}
	row := catalog.Row{"balance": types.NewInteger(5)}
	v, err := node.Eval(row)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !v.Truthy() {
		t.Fatal("expected balance=5 > 0 to be true")
	}

	row = catalog.Row{"balance": types.NewInteger(-1)}
	v, err = node.Eval(row)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.Truthy() {
		t.Fatal("expected balance=-1 > 0 to be false")
	}
}

func TestCompileTableExprRejectsUnknownColumn(t *testing.T) {
	tbl := catalog.NewTable("accounts")
	if err := tbl.AddColumn(catalog.NewBaseColumn("balance", types.Integer)); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	c := New(catalog.New())
	if _, err := c.CompileTableExpr("ghost > 0", tbl); err == nil {
		t.Fatal("expected an error compiling an expression referencing an unknown column")
	}
}
