// Package catalog implements PeaQL's persistent table model: Table, Column,
// Constraint, and the Catalog that owns a named set of tables. It
// generalizes the teacher's reader.SchemaInfo type-inference (a Parquet
// field walked into a flat name/type list, reader/schema.go) into
// InferColumns, which does the same job over decoded JSON/Go values instead
// of Parquet fields, since PeaQL's tables are in-memory and JSON-persisted
// rather than file-backed.
package catalog

import (
	"fmt"

	"github.com/peaql/peaql/types"
)

// Row is one materialized record: column name to value. Base columns read a
// field directly out of Row; attribute columns compute from a structured
// parent column's value.
type Row map[string]types.Value

// CompiledExpr is a boolean or scalar expression already resolved against a
// table's columns. Defined here (rather than imported from the plan package)
// so catalog can hold compiled constraint/column expressions without
// depending on the package that builds them. The plan package's node type
// satisfies this interface structurally.
type CompiledExpr interface {
	Eval(row Row) (types.Value, error)
}

// Column is a named resolver over a Row plus its declared DType.
type Column struct {
	Name string
	Type types.DType
	// Get resolves this column's value from a row. Base columns index the
	// row directly; attribute columns (e.g. a DateTime column's ".year")
	// compute from a parent column's value.
	Get func(row Row) (types.Value, error)
}

func baseColumnGet(name string) func(Row) (types.Value, error) {
	return func(row Row) (types.Value, error) {
		if v, ok := row[name]; ok {
			return v, nil
		}
		return types.Nil, nil
	}
}

// NewBaseColumn builds a Column that reads field name directly out of a row.
func NewBaseColumn(name string, t types.DType) Column {
	return Column{Name: name, Type: t, Get: baseColumnGet(name)}
}

// Constraint is `{name, column?, expr}`. Column is non-empty for not-null
// constraints, carried for error messages; expr is evaluated per row and
// must be truthy for the row to be accepted.
type Constraint struct {
	Name   string
	Column string
	Expr   CompiledExpr
	// Text is the constraint expression's original source, kept so it can be
	// re-parsed and recompiled when a persisted table is loaded from JSON.
	Text string
}

// RowSource is a table's lazy data source: either an already-materialized
// vector of rows or a thunk producing one.
type RowSource interface {
	Rows() ([]Row, error)
}

// MaterializedRows is a RowSource that already holds its rows in memory, the
// common case for a base table populated by INSERT or FromObject.
type MaterializedRows []Row

func (m MaterializedRows) Rows() ([]Row, error) { return []Row(m), nil }

// ThunkSource is a RowSource that computes its rows on demand, used for
// subquery-derived and join-derived tables built during compilation.
type ThunkSource func() ([]Row, error)

func (f ThunkSource) Rows() ([]Row, error) { return f() }

// Table is PeaQL's unified relation shape: base tables registered on a
// Catalog and derived tables (subqueries, joins) built by the compiler share
// this same structure.
type Table struct {
	Name string

	columns  []Column
	colIndex map[string]int
	// Wildcard lists the columns `*` expands to; defaults to every declared
	// column in order.
	Wildcard []string

	Constraints []Constraint
	Source      RowSource
	// Defaults holds a compiled DEFAULT expression per column name, consulted
	// by INSERT when a column is left out of its explicit column list.
	Defaults map[string]CompiledExpr

	// Parent is set for subquery-derived tables, letting a correlated
	// subquery's inner context resolve the outer row by table name.
	Parent *Table
	// Joins maps aliases introduced by JOIN to the tables they name, so a
	// compiled column reference can resolve `alias.col` against the right
	// side of a join tree.
	Joins map[string]*Table
}

// NewTable builds an empty table with no columns or rows; call AddColumn to
// populate its schema before use.
func NewTable(name string) *Table {
	return &Table{
		Name:     name,
		colIndex: make(map[string]int),
		Source:   MaterializedRows(nil),
		Joins:    make(map[string]*Table),
		Defaults: make(map[string]CompiledExpr),
	}
}

// AddColumn appends a column, preserving declaration order: a table's
// column vector stays stable and ordered. It is an error to add a
// duplicate name.
func (t *Table) AddColumn(c Column) error {
	if _, exists := t.colIndex[c.Name]; exists {
		return fmt.Errorf("catalog: table %q already has a column named %q", t.Name, c.Name)
	}
	t.colIndex[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
	t.Wildcard = append(t.Wildcard, c.Name)
	return nil
}

// Columns returns the table's declared columns in order.
func (t *Table) Columns() []Column { return t.columns }

// Column looks up a column by name, ok=false if it doesn't exist.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.colIndex[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// HasColumn reports whether name is a declared column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIndex[name]
	return ok
}

// Rows materializes the table's row source.
func (t *Table) Rows() ([]Row, error) {
	if t.Source == nil {
		return nil, nil
	}
	return t.Source.Rows()
}

// Append adds a single row directly to a materialized source, used by
// INSERT to append a row to the table's backing vector. It is a programming
// error to Append to a table backed by a ThunkSource.
func (t *Table) Append(row Row) error {
	mat, ok := t.Source.(MaterializedRows)
	if !ok {
		return fmt.Errorf("catalog: table %q is not append-backed", t.Name)
	}
	t.Source = append(mat, row)
	return nil
}

// ReplaceRows overwrites the table's entire row set in place, used by
// UPDATE to mutate matching rows.
func (t *Table) ReplaceRows(rows []Row) {
	t.Source = MaterializedRows(rows)
}
