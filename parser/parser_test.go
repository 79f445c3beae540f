package parser

import (
	"testing"

	"github.com/peaql/peaql/ast"
)

func mustParseOne(t *testing.T, sql string) ast.Stmt {
	t.Helper()
	stmts, _, err := Parse(sql)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", sql, err)
	}
	if len(stmts.Stmts) != 1 {
		t.Fatalf("Parse(%q) = %d statements, want 1", sql, len(stmts.Stmts))
	}
	return stmts.Stmts[0]
}

func TestParseSimpleSelect(t *testing.T) {
	s := mustParseOne(t, "SELECT a, b FROM t WHERE a > 1")
	sel, ok := s.(*ast.SelectStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.SelectStmt", s)
	}
	if len(sel.Targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(sel.Targets))
	}
	tr, ok := sel.From.(*ast.TableRef)
	if !ok || tr.Name != "t" {
		t.Fatalf("From = %#v", sel.From)
	}
	if sel.Where == nil {
		t.Fatal("expected WHERE clause")
	}
}

func TestParseJoinChain(t *testing.T) {
	s := mustParseOne(t, `
		SELECT playlist.name, count(pt.track_id) FROM playlist
		  JOIN playlist_track pt ON pt.playlist_id = playlist.playlist_id
		  JOIN track ON track.track_id = pt.track_id
		GROUP BY 1 ORDER BY 2 DESC LIMIT 10`)
	sel := s.(*ast.SelectStmt)
	outer, ok := sel.From.(*ast.Join)
	if !ok {
		t.Fatalf("From = %#v, want *ast.Join", sel.From)
	}
	if outer.Type != ast.JoinInner {
		t.Fatalf("outer join type = %v, want inner", outer.Type)
	}
	inner, ok := outer.Left.(*ast.Join)
	if !ok {
		t.Fatalf("outer.Left = %#v, want *ast.Join", outer.Left)
	}
	if _, ok := inner.Left.(*ast.TableRef); !ok {
		t.Fatalf("innermost left = %#v, want *ast.TableRef", inner.Left)
	}
	if len(sel.GroupBy) != 1 || sel.GroupBy[0].Index != 1 {
		t.Fatalf("GroupBy = %#v", sel.GroupBy)
	}
	if len(sel.OrderBy) != 1 || !sel.OrderBy[0].Desc || sel.OrderBy[0].Index != 2 {
		t.Fatalf("OrderBy = %#v", sel.OrderBy)
	}
	lit, ok := sel.Limit.(*ast.Literal)
	if !ok || lit.Text != "10" {
		t.Fatalf("Limit = %#v", sel.Limit)
	}
}

func TestParseWindowFunction(t *testing.T) {
	s := mustParseOne(t, `SELECT c, group_concat(b, '.') OVER (
		PARTITION BY c ORDER BY a RANGE BETWEEN CURRENT ROW AND UNBOUNDED FOLLOWING
	) FROM t1`)
	sel := s.(*ast.SelectStmt)
	call, ok := sel.Targets[1].Expr.(*ast.FuncCall)
	if !ok || call.Over == nil {
		t.Fatalf("targets[1] = %#v, want windowed FuncCall", sel.Targets[1].Expr)
	}
	if call.Over.Frame.Type != ast.FrameRange {
		t.Fatalf("frame type = %v, want RANGE", call.Over.Frame.Type)
	}
	if !call.Over.Frame.Preceding.Current {
		t.Fatal("expected CURRENT ROW as preceding bound")
	}
	if !call.Over.Frame.Following.Unbounded {
		t.Fatal("expected UNBOUNDED FOLLOWING")
	}
}

func TestParseCreateTableWithCheck(t *testing.T) {
	s := mustParseOne(t, "CREATE TABLE t1(a STRING, b INTEGER, CHECK(b > 100))")
	c := s.(*ast.CreateStmt)
	if len(c.Columns) != 2 {
		t.Fatalf("columns = %#v", c.Columns)
	}
	if len(c.Constraints) != 1 || c.Constraints[0].Kind != "check" {
		t.Fatalf("constraints = %#v", c.Constraints)
	}
}

func TestParseInsertMultiRow(t *testing.T) {
	s := mustParseOne(t, "INSERT INTO t1 VALUES('peter',1),('pan',2)")
	ins := s.(*ast.InsertStmt)
	if len(ins.Rows) != 2 || len(ins.Rows[0]) != 2 {
		t.Fatalf("rows = %#v", ins.Rows)
	}
}

func TestParseStatementsBlock(t *testing.T) {
	stmts, _, err := Parse(`
		CREATE TABLE t1(a STRING, b INTEGER);
		INSERT INTO t1 VALUES('peter',1),('pan',2);
		SELECT * FROM t1;`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts.Stmts) != 3 {
		t.Fatalf("got %d statements, want 3", len(stmts.Stmts))
	}
}

func TestParseSetStatement(t *testing.T) {
	_, settings, err := Parse(`SET identifier_quoting = 'bracket'; SELECT 1`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings["identifier_quoting"] != "bracket" {
		t.Fatalf("settings = %#v", settings)
	}
}

func TestParseMixedPlaceholdersIsProgrammingError(t *testing.T) {
	_, _, err := Parse("SELECT * FROM t WHERE a = ? AND b = :name")
	if err == nil {
		t.Fatal("expected an error for mixed placeholder styles")
	}
}

func TestParseAttributeMethodCall(t *testing.T) {
	s := mustParseOne(t, "SELECT x.toFixed(3) FROM t")
	sel := s.(*ast.SelectStmt)
	attr, ok := sel.Targets[0].Expr.(*ast.Attribute)
	if !ok || !attr.IsCall || attr.Name != "toFixed" || len(attr.Args) != 1 {
		t.Fatalf("targets[0] = %#v", sel.Targets[0].Expr)
	}
}

func TestParseCastSuffix(t *testing.T) {
	s := mustParseOne(t, "SELECT a::integer FROM t")
	sel := s.(*ast.SelectStmt)
	c, ok := sel.Targets[0].Expr.(*ast.Cast)
	if !ok || c.TypeName != "integer" {
		t.Fatalf("targets[0] = %#v", sel.Targets[0].Expr)
	}
}

func TestParseCTE(t *testing.T) {
	s := mustParseOne(t, "WITH x AS (SELECT 1 AS a) SELECT a FROM x")
	sel := s.(*ast.SelectStmt)
	if len(sel.With) != 1 || sel.With[0].Name != "x" {
		t.Fatalf("With = %#v", sel.With)
	}
}

func TestParsePivotBy(t *testing.T) {
	s := mustParseOne(t, "SELECT a, b, c FROM t GROUP BY b PIVOT BY (a, b)")
	sel := s.(*ast.SelectStmt)
	if sel.Pivot == nil {
		t.Fatal("expected pivot clause")
	}
}
