package peaql

import (
	"strings"
	"testing"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/types"
)

func peopleTable() *catalog.Table {
	tbl := catalog.NewTable("people")
	_ = tbl.AddColumn(catalog.NewBaseColumn("id", types.Integer))
	_ = tbl.AddColumn(catalog.NewBaseColumn("name", types.String))
	_ = tbl.AddColumn(catalog.NewBaseColumn("age", types.Integer))
	_ = tbl.Append(catalog.Row{"id": types.NewInteger(1), "name": types.NewString("ada"), "age": types.NewInteger(30)})
	_ = tbl.Append(catalog.Row{"id": types.NewInteger(2), "name": types.NewString("bob"), "age": types.NewInteger(25)})
	_ = tbl.Append(catalog.Row{"id": types.NewInteger(3), "name": types.NewString("cy"), "age": types.NewInteger(30)})
	return tbl
}

func TestSelectFiltersAndOrders(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute("SELECT name FROM people WHERE age > 26 ORDER BY name", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(res.Rows), res.Rows)
	}
	if res.Rows[0][0].String() != "ada" || res.Rows[1][0].String() != "cy" {
		t.Fatalf("unexpected order: %+v", res.Rows)
	}
}

func TestImplicitGroupingFromAggregateWithoutGroupBy(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute("SELECT count(*) AS n FROM people", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0][0].String() != "3" {
		t.Fatalf("got %+v, want a single row with n=3", res.Rows)
	}
}

func TestGroupByWithHaving(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute("SELECT age, count(*) AS n FROM people GROUP BY age HAVING count(*) > 1 ORDER BY age", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0][0].String() != "30" || res.Rows[0][1].String() != "2" {
		t.Fatalf("got %+v, want one group (age=30, n=2)", res.Rows)
	}
}

func TestInsertReturnsAffectedRows(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute("INSERT INTO people (id, name, age) VALUES (4, 'dee', 40)", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.HasAffectedRows || res.AffectedRows != 1 {
		t.Fatalf("got %+v, want AffectedRows=1", res)
	}
	tbl, _ := ctx.GetTable("people")
	rows, _ := tbl.Rows()
	if len(rows) != 4 {
		t.Fatalf("table has %d rows after insert, want 4", len(rows))
	}
}

func TestInsertWithReturning(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute("INSERT INTO people (id, name, age) VALUES (4, 'dee', 40) RETURNING id, name", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.HasAffectedRows {
		t.Fatalf("RETURNING clause should not set HasAffectedRows")
	}
	if len(res.Rows) != 1 || res.Rows[0][1].String() != "dee" {
		t.Fatalf("got %+v", res.Rows)
	}
}

func TestUpdateCountsOnlyMatchedRows(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute("UPDATE people SET age = age + 1 WHERE age = 30", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.HasAffectedRows || res.AffectedRows != 2 {
		t.Fatalf("got %+v, want AffectedRows=2 (two people aged 30)", res)
	}
}

func TestCreateTableNotNullConstraint(t *testing.T) {
	ctx := New()
	if _, err := ctx.Execute("CREATE TABLE t (id INTEGER NOT NULL)", Params{}); err != nil {
		t.Fatalf("CREATE TABLE: %v", err)
	}
	if _, err := ctx.Execute("INSERT INTO t (id) VALUES (NULL)", Params{}); err == nil {
		t.Fatal("expected a constraint violation inserting NULL into a NOT NULL column")
	}
	if _, err := ctx.Execute("INSERT INTO t (id) VALUES (1)", Params{}); err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}
}

func TestCreateTableCheckConstraintReferencesEarlierColumn(t *testing.T) {
	ctx := New()
	if _, err := ctx.Execute("CREATE TABLE t (a INTEGER, b INTEGER CHECK (b > a))", Params{}); err != nil {
		t.Fatalf("CREATE TABLE: %v", err)
	}
	if _, err := ctx.Execute("INSERT INTO t (a, b) VALUES (5, 1)", Params{}); err == nil {
		t.Fatal("expected CHECK violation, b <= a")
	}
	if _, err := ctx.Execute("INSERT INTO t (a, b) VALUES (5, 10)", Params{}); err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}
}

func TestCreateTableTableLevelCheckIsNamedAfterItsSoleColumn(t *testing.T) {
	ctx := New()
	if _, err := ctx.Execute("CREATE TABLE t1 (a STRING, b INTEGER, CHECK(b > 100))", Params{}); err != nil {
		t.Fatalf("CREATE TABLE: %v", err)
	}
	_, err := ctx.Execute("INSERT INTO t1 (a, b) VALUES ('x', 1)", Params{})
	if err == nil {
		t.Fatal("expected CHECK violation, b <= 100")
	}
	if !strings.Contains(err.Error(), `"t1_b_check"`) {
		t.Fatalf("got error %q, want it to name constraint \"t1_b_check\"", err.Error())
	}
	if _, err := ctx.Execute("INSERT INTO t1 (a, b) VALUES ('x', 200)", Params{}); err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}
}

func TestImplicitGroupByAddsMissingNonAggregateTargetAsGroupKey(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute("SELECT name, count(*) AS n FROM people ORDER BY name", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("got %d rows, want 3 (one per distinct name): %+v", len(res.Rows), res.Rows)
	}
	want := []string{"ada", "bob", "cy"}
	for i, w := range want {
		if res.Rows[i][0].String() != w || res.Rows[i][1].String() != "1" {
			t.Fatalf("row %d = %+v, want (%s, 1)", i, res.Rows[i], w)
		}
	}
}

func TestImplicitGroupByOffRejectsUngroupedNonAggregateTarget(t *testing.T) {
	ctx := Create(peopleTable())
	_, err := ctx.Execute("SET implicit_group_by = 'off'; SELECT name, count(*) AS n FROM people", Params{})
	if err == nil {
		t.Fatal("expected a compile error with implicit_group_by off")
	}
}

func TestUnionDeduplicatesRows(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute(
		"SELECT name FROM people WHERE age = 30 UNION SELECT name FROM people WHERE id = 1", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2 (ada deduplicated): %+v", len(res.Rows), res.Rows)
	}
}

func TestUnionAllKeepsDuplicates(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute(
		"SELECT name FROM people WHERE age = 30 UNION ALL SELECT name FROM people WHERE id = 1", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("got %d rows, want 3 (no dedup with ALL): %+v", len(res.Rows), res.Rows)
	}
}

func TestCTEReferencedByMainQuery(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute(
		"WITH older AS (SELECT name, age FROM people WHERE age > 26) SELECT name FROM older ORDER BY name", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %+v", res.Rows)
	}
}

func TestCTESelfReferenceIsRejected(t *testing.T) {
	ctx := Create(peopleTable())
	_, err := ctx.Execute("WITH x AS (SELECT * FROM x) SELECT * FROM x", Params{})
	if err == nil {
		t.Fatal("expected a compile error for a self-referencing CTE")
	}
}

func TestCorrelatedSubqueryInWhere(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute(
		`SELECT p.name FROM people p WHERE p.age = (SELECT max(o.age) FROM people o WHERE o.id != p.id OR o.id = p.id)`,
		Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Rows) == 0 {
		t.Fatal("expected at least one matching row")
	}
}

func TestSelectStarExpandsColumns(t *testing.T) {
	ctx := Create(peopleTable())
	res, err := ctx.Execute("SELECT * FROM people WHERE id = 1", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Columns) != 3 {
		t.Fatalf("got columns %+v, want 3", res.Columns)
	}
}

func TestUnknownTableRaisesCompileError(t *testing.T) {
	ctx := New()
	if _, err := ctx.Execute("SELECT * FROM ghosts", Params{}); err == nil {
		t.Fatal("expected an unknown-table compile error")
	}
}

func TestCreateTableAsQuery(t *testing.T) {
	ctx := Create(peopleTable())
	if _, err := ctx.Execute("CREATE TABLE adults AS SELECT name, age FROM people WHERE age >= 30", Params{}); err != nil {
		t.Fatalf("CREATE TABLE AS: %v", err)
	}
	res, err := ctx.Execute("SELECT count(*) AS n FROM adults", Params{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Rows[0][0].String() != "2" {
		t.Fatalf("got %+v, want n=2", res.Rows)
	}
}

func TestPivotRejectsOrderBy(t *testing.T) {
	ctx := Create(peopleTable())
	_, err := ctx.Execute(
		"SELECT age, name, count(*) FROM people GROUP BY age, name PIVOT BY (age, name) ORDER BY age", Params{})
	if err == nil {
		t.Fatal("expected PIVOT BY combined with ORDER BY to be rejected at compile time")
	}
}

func TestCreateDatabaseRecompilesPersistedConstraint(t *testing.T) {
	models := map[string]catalog.TableModel{
		"accounts": {
			Columns:     []catalog.ColumnModel{{Name: "balance", Type: "integer"}},
			Constraints: []catalog.ConstraintModel{{Name: "accounts_balance_check", Column: "balance", Expr: "balance > 0"}},
			Data:        []map[string]interface{}{{"balance": float64(10)}},
		},
	}
	ctx, err := CreateDatabase(models)
	if err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	if _, err := ctx.Execute("INSERT INTO accounts (balance) VALUES (-5)", Params{}); err == nil {
		t.Fatal("expected the recompiled CHECK constraint to reject a negative balance")
	}
	if _, err := ctx.Execute("INSERT INTO accounts (balance) VALUES (5)", Params{}); err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}
}

func TestPrepareThenExecutePreparedWithParams(t *testing.T) {
	ctx := Create(peopleTable())
	prepared, err := ctx.Prepare("SELECT name FROM people WHERE age = ?")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if prepared.ID.String() == "" {
		t.Fatal("expected Prepare to assign a non-empty ID")
	}
	res, err := ctx.ExecutePrepared(prepared, Params{Positional: []types.Value{types.NewInteger(25)}})
	if err != nil {
		t.Fatalf("ExecutePrepared: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0][0].String() != "bob" {
		t.Fatalf("got %+v, want bob", res.Rows)
	}
}
