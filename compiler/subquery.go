package compiler

import (
	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/plan"
	"github.com/peaql/peaql/types"
)

// subqueryResult carries a compiled nested SELECT's row-producing plan
// together with its output schema and whether it referenced anything in an
// enclosing scope, so every call site (EXISTS, scalar subquery, IN
// subquery, FROM subquery, CTE) can decide independently whether to cache
// it: an uncorrelated subquery evaluates once and memoizes; a correlated
// one re-evaluates per outer row.
type subqueryResult struct {
	rr         plan.RowsResolver
	columns    []string
	types      []types.DType
	correlated bool
}

// runner adapts the subquery into the Runner shape plan.Exists/
// ScalarSubquery/ListSubquery expect, memoizing it when it carries no
// reference to an outer row.
func (s *subqueryResult) runner() func(catalog.Row) ([]catalog.Row, error) {
	fn := rowsResolverRunner(s.rr)
	if !s.correlated {
		fn = memoize(fn)
	}
	return fn
}

func rowsResolverRunner(rr plan.RowsResolver) func(catalog.Row) ([]catalog.Row, error) {
	return func(outer catalog.Row) ([]catalog.Row, error) {
		cols, rows, err := rr.ResolveRows(outer)
		if err != nil {
			return nil, err
		}
		out := make([]catalog.Row, len(rows))
		for i, vals := range rows {
			row := make(catalog.Row, len(cols))
			for j, col := range cols {
				row[col] = vals[j]
			}
			out[i] = row
		}
		return out, nil
	}
}

// compileSubquery compiles sub in a fresh child scope of ec.sc, so it can
// resolve its own FROM independently while still reaching ec.sc's columns
// for correlation.
func (c *Compiler) compileSubquery(sub *ast.SelectStmt, ec *exprCtx) (*subqueryResult, error) {
	child := ec.sc.child()
	rr, cols, colTypes, err := c.compileSelectChainSchema(sub, child, ec.params)
	if err != nil {
		return nil, err
	}
	return &subqueryResult{rr: rr, columns: cols, types: colTypes, correlated: child.correlated}, nil
}
