package plan

import (
	"fmt"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/errs"
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// coerceForColumn casts v to a column's declared type when it doesn't
// already match, raising a *errs.DataError on a failed cast rather than
// silently producing Null: unlike a plain expression-evaluation cast, an
// INSERT/UPDATE value that can't become its column's type is a data error.
func coerceForColumn(v types.Value, colType types.DType, tableName, colName string) (types.Value, error) {
	if v.IsNull() || v.DType().Equal(colType) {
		return v, nil
	}
	sig, ok := registry.Default.LookupCast(catalog.TypeName(colType))
	if !ok {
		return v, nil
	}
	out, err := sig.Eval([]types.Value{v})
	if err != nil {
		return types.Nil, err
	}
	if out.IsNull() {
		return types.Nil, &errs.DataError{
			Table:   tableName,
			Message: fmt.Sprintf("value %q cannot be cast to column %q's declared type %s", v.String(), colName, colType),
		}
	}
	return out, nil
}

// InsertPlan is a compiled INSERT that appends rows to a table's backing
// vector. Columns holds the resolved column order (every declared column,
// in declaration order, when the statement omitted an explicit list); each
// Rows entry has one compiled expression per column.
type InsertPlan struct {
	Table     *catalog.Table
	Columns   []string
	Rows      [][]Node
	Returning []Target
}

func (ip *InsertPlan) Execute(cat *catalog.Catalog) (*Result, error) {
	var retRows [][]types.Value
	for _, exprs := range ip.Rows {
		row := catalog.Row{}
		for i, expr := range exprs {
			v, err := expr.Eval(catalog.Row{})
			if err != nil {
				return nil, err
			}
			col, ok := ip.Table.Column(ip.Columns[i])
			if !ok {
				return nil, fmt.Errorf("plan: table %q has no column %q", ip.Table.Name, ip.Columns[i])
			}
			cv, err := coerceForColumn(v, col.Type, ip.Table.Name, col.Name)
			if err != nil {
				return nil, err
			}
			row[ip.Columns[i]] = cv
		}
		if err := ip.Table.CheckConstraints(row); err != nil {
			return nil, err
		}
		if err := ip.Table.Append(row); err != nil {
			return nil, err
		}
		if ip.Returning != nil {
			vals := make([]types.Value, len(ip.Returning))
			for i, t := range ip.Returning {
				v, err := t.Node.Eval(row)
				if err != nil {
					return nil, err
				}
				vals[i] = v
			}
			retRows = append(retRows, vals)
		}
	}
	if ip.Returning == nil {
		return &Result{AffectedRows: len(ip.Rows), HasAffectedRows: true}, nil
	}
	cols := make([]string, len(ip.Returning))
	for i, t := range ip.Returning {
		cols[i] = t.Name
	}
	return &Result{Columns: cols, Rows: retRows}, nil
}

// UpdatePlan is a compiled UPDATE that mutates matching rows in place: every
// row is re-evaluated against Where, and matching rows have each
// assignment's expression evaluated against the row's pre-update values
// before being written back as a single replacement pass.
type UpdatePlan struct {
	Table     *catalog.Table
	Where     Node
	Set       []Assignment
	Returning []Target
}

type Assignment struct {
	Column string
	Expr   Node
}

func (up *UpdatePlan) Execute(cat *catalog.Catalog) (*Result, error) {
	rows, err := up.Table.Rows()
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Row, len(rows))
	var retRows [][]types.Value
	matched := 0
	for i, row := range rows {
		match := true
		if up.Where != nil {
			v, err := up.Where.Eval(row)
			if err != nil {
				return nil, err
			}
			match = v.Truthy()
		}
		if !match {
			out[i] = row
			continue
		}
		updated := make(catalog.Row, len(row))
		for k, v := range row {
			updated[k] = v
		}
		for _, a := range up.Set {
			v, err := a.Expr.Eval(row)
			if err != nil {
				return nil, err
			}
			col, ok := up.Table.Column(a.Column)
			if !ok {
				return nil, fmt.Errorf("plan: table %q has no column %q", up.Table.Name, a.Column)
			}
			cv, err := coerceForColumn(v, col.Type, up.Table.Name, col.Name)
			if err != nil {
				return nil, err
			}
			updated[a.Column] = cv
		}
		if err := up.Table.CheckConstraints(updated); err != nil {
			return nil, err
		}
		out[i] = updated
		matched++
		if up.Returning != nil {
			vals := make([]types.Value, len(up.Returning))
			for j, t := range up.Returning {
				v, err := t.Node.Eval(updated)
				if err != nil {
					return nil, err
				}
				vals[j] = v
			}
			retRows = append(retRows, vals)
		}
	}
	up.Table.ReplaceRows(out)
	if up.Returning == nil {
		return &Result{AffectedRows: matched, HasAffectedRows: true}, nil
	}
	cols := make([]string, len(up.Returning))
	for i, t := range up.Returning {
		cols[i] = t.Name
	}
	return &Result{Columns: cols, Rows: retRows}, nil
}
