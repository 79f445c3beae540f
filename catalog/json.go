package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/peaql/peaql/errs"
	"github.com/peaql/peaql/types"
)

// ColumnModel/ConstraintModel/TableModel mirror a table's persisted JSON
// shape:
//
//	{ name, columns: [{name, type}], constraints: [{name, column?, expr}],
//	  data: [row-as-object, …] }
type ColumnModel struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ConstraintModel struct {
	Name   string `json:"name"`
	Column string `json:"column,omitempty"`
	Expr   string `json:"expr"`
}

type TableModel struct {
	Name        string                   `json:"name"`
	Columns     []ColumnModel            `json:"columns"`
	Constraints []ConstraintModel        `json:"constraints,omitempty"`
	Data        []map[string]interface{} `json:"data"`
}

// ExprCompiler compiles a constraint's source text into a CompiledExpr
// evaluated against tbl's columns. Injected by the caller (the top-level
// Context) rather than imported directly, since compiling an expression
// needs the compiler package and catalog must not depend on it.
type ExprCompiler func(exprText string, tbl *Table) (CompiledExpr, error)

// ToJSON renders t into its persisted-model shape. Row values are rendered
// through their Go-native equivalents so encoding/json produces the same
// shape FromJSON expects back.
func (t *Table) ToJSON() (TableModel, error) {
	model := TableModel{Name: t.Name}
	for _, c := range t.columns {
		model.Columns = append(model.Columns, ColumnModel{Name: c.Name, Type: TypeName(c.Type)})
	}
	for _, c := range t.Constraints {
		model.Constraints = append(model.Constraints, ConstraintModel{Name: c.Name, Column: c.Column, Expr: c.Text})
	}
	rows, err := t.Rows()
	if err != nil {
		return model, err
	}
	for _, row := range rows {
		rec := make(map[string]interface{}, len(t.columns))
		for _, c := range t.columns {
			v, err := c.Get(row)
			if err != nil {
				return model, err
			}
			rec[c.Name] = encodeScalar(v)
		}
		model.Data = append(model.Data, rec)
	}
	return model, nil
}

// FromJSON builds a Table from a persisted model, validating and coercing
// each row against its declared column types and re-compiling every
// constraint expression against the loaded row set.
func FromJSON(model TableModel, compile ExprCompiler) (*Table, error) {
	tbl := NewTable(model.Name)
	for _, cm := range model.Columns {
		dtype, ok := LookupTypeName(cm.Type)
		if !ok {
			return nil, fmt.Errorf("catalog: table %q column %q has unknown type %q", model.Name, cm.Name, cm.Type)
		}
		if err := tbl.AddColumn(NewBaseColumn(cm.Name, dtype)); err != nil {
			return nil, err
		}
	}

	var rows []Row
	for _, rec := range model.Data {
		rows = append(rows, DecodeRow(tbl.columns, rec))
	}
	tbl.Source = MaterializedRows(rows)

	for _, cm := range model.Constraints {
		compiled, err := compile(cm.Expr, tbl)
		if err != nil {
			return nil, fmt.Errorf("catalog: table %q constraint %q: %w", model.Name, cm.Name, err)
		}
		tbl.Constraints = append(tbl.Constraints, Constraint{Name: cm.Name, Column: cm.Column, Expr: compiled, Text: cm.Expr})
	}

	for _, row := range rows {
		if err := checkConstraints(tbl, row); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// FromObject builds a Table from already-decoded record objects, inferring
// column types from the data via InferColumns.
func FromObject(name string, records []map[string]interface{}) *Table {
	tbl := NewTable(name)
	cols := InferColumns(records)
	for _, c := range cols {
		_ = tbl.AddColumn(c)
	}
	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = DecodeRow(tbl.columns, rec)
	}
	tbl.Source = MaterializedRows(rows)
	return tbl
}

// checkConstraints evaluates every constraint against row, raising a
// *errs.DataError with the row's rendered values on the first violation.
func checkConstraints(tbl *Table, row Row) error {
	for _, c := range tbl.Constraints {
		v, err := c.Expr.Eval(row)
		if err != nil {
			return err
		}
		if !v.Truthy() {
			vals := make([]string, len(tbl.columns))
			for i, col := range tbl.columns {
				cv, _ := col.Get(row)
				vals[i] = cv.String()
			}
			return &errs.DataError{Table: tbl.Name, Constraint: c.Name, Row: vals}
		}
	}
	return nil
}

// CheckConstraints evaluates every one of t's constraints against row,
// exported so the plan package's INSERT/UPDATE execution can reuse the same
// violation-reporting logic FromJSON uses when validating persisted data.
func (t *Table) CheckConstraints(row Row) error { return checkConstraints(t, row) }

// TypeName renders t as the persisted-model/cast-registry type name: the
// JSON column type strings double as registry.RegisterCast keys, so the
// plan package's INSERT/UPDATE coercion path reuses this instead of keeping
// a second name table.
func TypeName(t types.DType) string {
	switch t.Tag {
	case types.TagInteger:
		return "integer"
	case types.TagReal:
		return "real"
	case types.TagDecimal:
		return "decimal"
	case types.TagBoolean:
		return "boolean"
	case types.TagString:
		return "text"
	case types.TagDateTime:
		return "datetime"
	case types.TagDuration:
		return "interval"
	default:
		return "object"
	}
}

func encodeScalar(v types.Value) interface{} {
	switch v.Tag {
	case types.TagNull:
		return nil
	case types.TagInteger:
		return v.I
	case types.TagReal:
		return v.R
	case types.TagDecimal:
		f, _ := v.Dec.Float64()
		return f
	case types.TagBoolean:
		return v.B
	case types.TagList, types.TagSet:
		out := make([]interface{}, len(v.List))
		for i, e := range v.List {
			out[i] = encodeScalar(e)
		}
		return out
	default:
		return v.String()
	}
}

// MarshalTableModel/UnmarshalTableModel are thin json.Marshal/Unmarshal
// wrappers kept alongside the model types so callers persisting a whole
// database don't need to import encoding/json themselves.
func MarshalTableModel(m TableModel) ([]byte, error)   { return json.MarshalIndent(m, "", "  ") }
func UnmarshalTableModel(data []byte) (TableModel, error) {
	var m TableModel
	err := json.Unmarshal(data, &m)
	return m, err
}
