package compiler

import (
	"fmt"

	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/errs"
	"github.com/peaql/peaql/plan"
)

// compileFrom lowers a FROM clause into a plan.Source, registering every
// table or derived relation it introduces as a binding in sc so later
// clauses resolve columns against it.
func (c *Compiler) compileFrom(fc ast.FromClause, sc *Scope, params Params) (plan.Source, error) {
	switch n := fc.(type) {
	case *ast.TableRef:
		tbl, ok := sc.lookupTable(n.Name)
		if !ok {
			return nil, &errs.CompileError{Node: n.Name, Message: fmt.Sprintf("unknown table %q", n.Name)}
		}
		alias := n.Alias
		if alias == "" {
			alias = n.Name
		}
		sc.addBinding(alias, tbl)
		return plan.TableScan{Alias: alias, Table: tbl}, nil

	case *ast.SubqueryRef:
		child := sc.child()
		rr, cols, colTypes, err := c.compileSelectChainSchema(n.Query, child, params)
		if err != nil {
			return nil, err
		}
		tbl := catalog.NewTable(n.Alias)
		for i, name := range cols {
			if err := tbl.AddColumn(catalog.NewBaseColumn(name, colTypes[i])); err != nil {
				return nil, err
			}
		}
		sc.addBinding(n.Alias, tbl)
		return plan.SubquerySource{Alias: n.Alias, Inner: rr}, nil

	case *ast.Join:
		return c.compileJoin(n, sc, params)

	default:
		return nil, &errs.InternalError{Message: fmt.Sprintf("compiler: unhandled FROM clause type %T", fc)}
	}
}

// compileJoin lowers one JOIN node. It snapshots sc.bindings before and
// after compiling each side so a multi-way join chain (each nested Join
// contributing its own bindings before the outer join's second side
// compiles) still classifies ON-clause conjuncts against exactly this
// join's own two sides, feeding the equi-join hash-fast-path detection
// below.
func (c *Compiler) compileJoin(n *ast.Join, sc *Scope, params Params) (plan.Source, error) {
	startIdx := len(sc.bindings)
	left, err := c.compileFrom(n.Left, sc, params)
	if err != nil {
		return nil, err
	}
	midIdx := len(sc.bindings)
	right, err := c.compileFrom(n.Right, sc, params)
	if err != nil {
		return nil, err
	}
	endIdx := len(sc.bindings)

	leftBindings := sc.bindings[startIdx:midIdx]
	rightBindings := sc.bindings[midIdx:endIdx]
	kind := plan.JoinKind(n.Type)

	if len(n.Using) > 0 {
		return c.compileUsingJoin(left, right, kind, n.Using, leftBindings, rightBindings)
	}

	if n.On == nil {
		return plan.NestedLoopJoin{Left: left, Right: right, Kind: kind}, nil
	}

	ec := &exprCtx{sc: sc, params: params}

	var leftKeys, rightKeys []plan.Node
	var residualParts []ast.Expr
	for _, cj := range flattenAnd(n.On) {
		be, ok := cj.(*ast.BinaryExpr)
		if !ok || be.Op != "=" {
			residualParts = append(residualParts, cj)
			continue
		}
		lID, lOK := be.Left.(*ast.Ident)
		rID, rOK := be.Right.(*ast.Ident)
		if !lOK || !rOK {
			residualParts = append(residualParts, cj)
			continue
		}
		switch {
		case classifySide(lID, leftBindings) && classifySide(rID, rightBindings):
			lNode, lerr := c.compileExpr(lID, ec)
			rNode, rerr := c.compileExpr(rID, ec)
			if lerr != nil {
				return nil, lerr
			}
			if rerr != nil {
				return nil, rerr
			}
			leftKeys = append(leftKeys, lNode)
			rightKeys = append(rightKeys, rNode)
		case classifySide(rID, leftBindings) && classifySide(lID, rightBindings):
			lNode, lerr := c.compileExpr(rID, ec)
			rNode, rerr := c.compileExpr(lID, ec)
			if lerr != nil {
				return nil, lerr
			}
			if rerr != nil {
				return nil, rerr
			}
			leftKeys = append(leftKeys, lNode)
			rightKeys = append(rightKeys, rNode)
		default:
			residualParts = append(residualParts, cj)
		}
	}

	if len(leftKeys) == 0 {
		onNode, err := c.compileExpr(n.On, ec)
		if err != nil {
			return nil, err
		}
		return plan.NestedLoopJoin{Left: left, Right: right, Kind: kind, On: onNode}, nil
	}

	var residual plan.Node
	if len(residualParts) > 0 {
		residual, err = c.compileConjuncts(residualParts, ec)
		if err != nil {
			return nil, err
		}
	}
	return plan.HashJoin{Left: left, Right: right, Kind: kind, LeftKeys: leftKeys, RightKeys: rightKeys, Residual: residual}, nil
}

// compileUsingJoin rewrites `USING (cols)` directly into a HashJoin, one key
// pair per named column. The joined row still carries both sides' copies of
// each USING column under their own qualified keys; only the bare,
// unqualified key picks up whichever side HashJoin's row merge writes
// last.
func (c *Compiler) compileUsingJoin(left, right plan.Source, kind plan.JoinKind, cols []string, leftBindings, rightBindings []binding) (plan.Source, error) {
	leftKeys := make([]plan.Node, len(cols))
	rightKeys := make([]plan.Node, len(cols))
	for i, name := range cols {
		lb, lcol, err := findColumnBinding(leftBindings, name)
		if err != nil {
			return nil, err
		}
		rb, rcol, err := findColumnBinding(rightBindings, name)
		if err != nil {
			return nil, err
		}
		leftKeys[i] = plan.ColumnRef{Key: columnKey(lb, name), DType: lcol.Type}
		rightKeys[i] = plan.ColumnRef{Key: columnKey(rb, name), DType: rcol.Type}
	}
	return plan.HashJoin{Left: left, Right: right, Kind: kind, LeftKeys: leftKeys, RightKeys: rightKeys}, nil
}

// flattenAnd splits a conjunction into its top-level AND-separated operands,
// so each can be independently classified as an equi-join key pair or a
// residual predicate.
func flattenAnd(e ast.Expr) []ast.Expr {
	if be, ok := e.(*ast.BinaryExpr); ok && be.Op == "AND" {
		return append(flattenAnd(be.Left), flattenAnd(be.Right)...)
	}
	return []ast.Expr{e}
}

// classifySide reports whether id could plausibly resolve against one side
// of a join: a qualified identifier matches by alias, a bare one matches any
// binding declaring that column name.
func classifySide(id *ast.Ident, bindings []binding) bool {
	if id.Table != "" {
		return bindingHasAlias(bindings, id.Table)
	}
	for _, b := range bindings {
		if b.table.HasColumn(id.Name) {
			return true
		}
	}
	return false
}

func bindingHasAlias(bindings []binding, alias string) bool {
	for _, b := range bindings {
		if b.alias == alias || b.table.Name == alias {
			return true
		}
	}
	return false
}

// compileConjuncts compiles a list of AND-separated predicates and folds
// them back into a single plan.And chain, used for a join's residual
// (non-equi) predicates once its equi-join keys have been pulled out.
func (c *Compiler) compileConjuncts(parts []ast.Expr, ec *exprCtx) (plan.Node, error) {
	var result plan.Node
	for _, p := range parts {
		node, err := c.compileExpr(p, ec)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = node
		} else {
			result = plan.And{Left: result, Right: node}
		}
	}
	return result, nil
}
