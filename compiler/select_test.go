package compiler

import (
	"testing"

	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/parser"
)

func parseOneSelect(t *testing.T, src string) *ast.SelectStmt {
	t.Helper()
	stmts, _, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	if len(stmts.Stmts) != 1 {
		t.Fatalf("Parse(%q): got %d statements, want 1", src, len(stmts.Stmts))
	}
	sel, ok := stmts.Stmts[0].(*ast.SelectStmt)
	if !ok {
		t.Fatalf("Parse(%q): statement is %T, want *ast.SelectStmt", src, stmts.Stmts[0])
	}
	return sel
}

func TestGroupingNeededExplicitGroupBy(t *testing.T) {
	sel := parseOneSelect(t, "SELECT a FROM t GROUP BY a")
	if !groupingNeeded(sel) {
		t.Fatal("expected an explicit GROUP BY to force grouping")
	}
}

func TestGroupingNeededAggregateInTargets(t *testing.T) {
	sel := parseOneSelect(t, "SELECT count(*) FROM t")
	if !groupingNeeded(sel) {
		t.Fatal("expected an aggregate call in the target list to force grouping")
	}
}

func TestGroupingNeededAggregateInHaving(t *testing.T) {
	sel := parseOneSelect(t, "SELECT a FROM t HAVING count(*) > 1")
	if !groupingNeeded(sel) {
		t.Fatal("expected an aggregate call in HAVING to force grouping")
	}
}

func TestGroupingNeededWindowedAggregateDoesNotForceGrouping(t *testing.T) {
	sel := parseOneSelect(t, "SELECT sum(a) OVER (PARTITION BY b) FROM t")
	if groupingNeeded(sel) {
		t.Fatal("a windowed aggregate call should not force outer grouping")
	}
}

func TestGroupingNeededAggregateInsideSubqueryDoesNotForceGrouping(t *testing.T) {
	sel := parseOneSelect(t, "SELECT a FROM t WHERE a = (SELECT count(*) FROM u)")
	if groupingNeeded(sel) {
		t.Fatal("an aggregate inside a scalar subquery belongs to that subquery's own scope")
	}
}

func TestGroupingNeededPlainSelectFalse(t *testing.T) {
	sel := parseOneSelect(t, "SELECT a, b FROM t WHERE a > 1")
	if groupingNeeded(sel) {
		t.Fatal("a plain projection with no aggregate or GROUP BY shouldn't force grouping")
	}
}

func TestDefaultTargetNameBareIdent(t *testing.T) {
	sel := parseOneSelect(t, "SELECT a FROM t")
	name := defaultTargetName(sel.Targets[0].Expr, 0)
	if name != "a" {
		t.Fatalf("got %q, want %q", name, "a")
	}
}

func TestDefaultTargetNamePositionalFallback(t *testing.T) {
	sel := parseOneSelect(t, "SELECT a + 1 FROM t")
	name := defaultTargetName(sel.Targets[0].Expr, 2)
	if name != "col3" {
		t.Fatalf("got %q, want %q", name, "col3")
	}
}
