package plan

import (
	"fmt"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/types"
)

// CreateTablePlan is a compiled CREATE TABLE, with or without `AS query`.
// Table already carries its declared columns and compiled constraints;
// AsQuery, when set, seeds the table's rows and (since `AS query` tables
// have no declared columns of their own) its column list from the query's
// own output shape.
type CreateTablePlan struct {
	TableName   string
	IfNotExists bool
	Table       *catalog.Table
	AsQuery     *SelectPlan
}

func (c *CreateTablePlan) Execute(cat *catalog.Catalog) (*Result, error) {
	if cat.TableExists(c.TableName) {
		if c.IfNotExists {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("plan: table %q already exists", c.TableName)
	}

	tbl := c.Table
	if c.AsQuery != nil {
		cols, rows, err := c.AsQuery.ResolveRows(nil)
		if err != nil {
			return nil, err
		}
		for i, name := range cols {
			dtype := colTypeFromSample(rows, i)
			if err := tbl.AddColumn(catalog.NewBaseColumn(name, dtype)); err != nil {
				return nil, err
			}
		}
		catRows := make([]catalog.Row, len(rows))
		for i, vals := range rows {
			row := make(catalog.Row, len(cols))
			for j, name := range cols {
				row[name] = vals[j]
			}
			catRows[i] = row
		}
		tbl.ReplaceRows(catRows)
	}

	cat.CreateTable(tbl)
	return &Result{}, nil
}

// colTypeFromSample infers a CREATE TABLE ... AS query column's declared
// type from its first row's runtime value, since the query's target
// expressions carry no separate column-type declaration of their own.
func colTypeFromSample(rows [][]types.Value, col int) types.DType {
	if len(rows) == 0 {
		return types.Object
	}
	return rows[0][col].DType()
}
