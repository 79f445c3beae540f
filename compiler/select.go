package compiler

import (
	"fmt"
	"strings"

	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/errs"
	"github.com/peaql/peaql/plan"
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// compileSelectChain compiles a SelectStmt (and any UNION/INTERSECT/EXCEPT
// chain rooted at it) down to a RowsResolver, discarding the output schema
// callers other than compileFrom/compileSubquery don't need.
func (c *Compiler) compileSelectChain(stmt *ast.SelectStmt, sc *Scope, params Params) (plan.RowsResolver, error) {
	rr, _, _, err := c.compileSelectChainSchema(stmt, sc, params)
	return rr, err
}

// compileSelectChainSchema compiles stmt and, if it chains via UNION/
// INTERSECT/EXCEPT, folds every SetNext link into nested plan.SetOpPlan
// nodes. It also returns the resulting output column names and types,
// needed by a FROM subquery, a CTE, or a nested set-op sibling to build the
// synthetic table its own scope resolves columns against.
func (c *Compiler) compileSelectChainSchema(stmt *ast.SelectStmt, sc *Scope, params Params) (plan.RowsResolver, []string, []types.DType, error) {
	rr, cols, colTypes, err := c.compileSingleSelect(stmt, sc, params)
	if err != nil {
		return nil, nil, nil, err
	}
	if stmt.SetNext == nil {
		return rr, cols, colTypes, nil
	}

	nextRR, nextCols, _, err := c.compileSelectChainSchema(stmt.SetNext, sc.sibling(), params)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(nextCols) != len(cols) {
		return nil, nil, nil, &errs.CompileError{
			Message: fmt.Sprintf("%s: left side has %d columns, right side has %d", stmt.SetOp, len(cols), len(nextCols)),
		}
	}

	// ast.SelectStmt.SetOp bakes the ALL modifier into the string itself
	// ("UNION ALL", "INTERSECT ALL", "EXCEPT ALL"; the suffix strip is a
	// no-op when absent); plan.SetOpPlan wants the two apart.
	op := strings.TrimSuffix(stmt.SetOp, " ALL")
	all := strings.HasSuffix(stmt.SetOp, " ALL")
	return &plan.SetOpPlan{Op: op, All: all, Left: rr, Right: nextRR}, cols, colTypes, nil
}

// compileWith registers every WITH binding into sc in textual order, so a
// later CTE may reference an earlier one but never itself or one defined
// after it, the same forward-reference/circularity rule the teacher's
// executor enforces via an in-progress name set (Vegasq-parcat
// query/executor.go), obtained here for free since lookupTable simply won't
// find a not-yet-registered name.
func (c *Compiler) compileWith(ctes []ast.CTE, sc *Scope, params Params) error {
	seen := make(map[string]bool, len(ctes))
	for _, cte := range ctes {
		if seen[cte.Name] {
			return &errs.CompileError{Node: cte.Name, Message: fmt.Sprintf("duplicate CTE name %q", cte.Name)}
		}
		seen[cte.Name] = true

		rr, cols, colTypes, err := c.compileSelectChainSchema(cte.Query, sc.child(), params)
		if err != nil {
			return err
		}
		tbl := catalog.NewTable(cte.Name)
		for i, name := range cols {
			if err := tbl.AddColumn(catalog.NewBaseColumn(name, colTypes[i])); err != nil {
				return err
			}
		}
		run := memoize(rowsResolverRunner(rr))
		tbl.Source = catalog.ThunkSource(func() ([]catalog.Row, error) { return run(nil) })
		sc.registerCTE(cte.Name, tbl)
	}
	return nil
}

// compileSingleSelect lowers one SelectStmt (its own FROM/WHERE/GROUP BY/
// HAVING/windows/PIVOT/ORDER BY/DISTINCT/LIMIT/OFFSET, ignoring SetNext) to
// a *plan.SelectPlan plus its output schema.
func (c *Compiler) compileSingleSelect(stmt *ast.SelectStmt, sc *Scope, params Params) (*plan.SelectPlan, []string, []types.DType, error) {
	if len(stmt.With) > 0 {
		if err := c.compileWith(stmt.With, sc, params); err != nil {
			return nil, nil, nil, err
		}
	}

	var source plan.Source
	if stmt.From != nil {
		s, err := c.compileFrom(stmt.From, sc, params)
		if err != nil {
			return nil, nil, nil, err
		}
		source = s
	}

	plainEc := &exprCtx{sc: sc, params: params}

	var where plan.Node
	if stmt.Where != nil {
		w, err := c.compileExpr(stmt.Where, plainEc)
		if err != nil {
			return nil, nil, nil, err
		}
		where = w
	}

	expanded, err := c.expandTargets(stmt.Targets, sc)
	if err != nil {
		return nil, nil, nil, err
	}

	grouped := groupingNeeded(stmt)
	var aggs *aggCollector
	if grouped {
		aggs = &aggCollector{}
	}
	wins := &windowCollector{}
	targetEc := &exprCtx{sc: sc, params: params, aggs: aggs, wins: wins, namedWindows: stmt.Windows}

	targetNodes := make([]plan.Node, len(expanded))
	targets := make([]plan.Target, len(expanded))
	aliases := make(map[string]plan.Node, len(expanded))
	for i, et := range expanded {
		node, err := c.compileExpr(et.expr, targetEc)
		if err != nil {
			return nil, nil, nil, err
		}
		targetNodes[i] = node
		targets[i] = plan.Target{Node: node, Name: et.name}
		if _, exists := aliases[et.name]; !exists {
			aliases[et.name] = node
		}
	}
	// GROUP/HAVING/ORDER/PIVOT resolve target-list aliases by name in
	// addition to position, once every target has a compiled node to point
	// at.
	groupEc := &exprCtx{sc: sc, params: params, aliases: aliases, aggs: aggs, wins: wins, namedWindows: stmt.Windows}

	var groupKeys []plan.Node
	covered := make(map[int]bool, len(stmt.GroupBy)) // target-list positions (0-based) an explicit GROUP BY key already accounts for
	if len(stmt.GroupBy) > 0 {
		groupKeys = make([]plan.Node, len(stmt.GroupBy))
		for i, k := range stmt.GroupBy {
			node, err := c.resolveKeyNode(k.Index, k.Expr, targetNodes, groupEc)
			if err != nil {
				return nil, nil, nil, err
			}
			groupKeys[i] = node
			if k.Index > 0 {
				covered[k.Index-1] = true
			}
		}
	}

	// When grouped, every non-aggregate target must be a GROUP BY key. The
	// default "implicit group-by" mode silently adds any target the explicit
	// clause missed instead of erroring (an arbitrary-expression GROUP BY
	// key, Index == 0, is never recognized as already covering a target here
	// since this compiler has no structural-equality pass, the same
	// limitation documented on compilePivot's AxisB check, so it can add a
	// harmless duplicate key rather than a missing one).
	if grouped {
		for i, et := range expanded {
			if covered[i] || exprContainsAggregate(et.expr) {
				continue
			}
			if !sc.cat.ImplicitGroupBy() {
				return nil, nil, nil, &errs.CompileError{
					Message: fmt.Sprintf("column %q must appear in GROUP BY or be used in an aggregate function", et.name),
				}
			}
			groupKeys = append(groupKeys, targetNodes[i])
		}
	}

	var having plan.Node
	if stmt.Having != nil {
		h, err := c.compileExpr(stmt.Having, groupEc)
		if err != nil {
			return nil, nil, nil, err
		}
		having = h
	}

	var pivot *plan.PivotSpec
	if stmt.Pivot != nil {
		if !grouped {
			return nil, nil, nil, &errs.CompileError{Message: "PIVOT BY requires GROUP BY"}
		}
		pivot, err = c.compilePivot(stmt.Pivot, stmt.GroupBy, targetNodes, targets, groupEc)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	var orderBy []plan.OrderSpec
	if len(stmt.OrderBy) > 0 {
		// plan.SelectPlan.ResolveRows takes applyPivot's rows straight to
		// distinctLimit without ever consulting OrderBy, so a PIVOT BY query's own
		// ordering (by axis a) can't be overridden; reject the combination
		// here instead of silently ignoring it at execution time.
		if pivot != nil {
			return nil, nil, nil, &errs.CompileError{Message: "ORDER BY is not supported together with PIVOT BY"}
		}
		orderBy, err = c.compileOrderKeys(stmt.OrderBy, targetNodes, groupEc)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	var limit, offset plan.Node
	if stmt.Limit != nil {
		limit, err = c.compileExpr(stmt.Limit, plainEc)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	if stmt.Offset != nil {
		offset, err = c.compileExpr(stmt.Offset, plainEc)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	p := &plan.SelectPlan{
		From:     source,
		Where:    where,
		Targets:  targets,
		Grouped:  grouped,
		Having:   having,
		Windows:  wins.slots,
		Pivot:    pivot,
		OrderBy:  orderBy,
		Distinct: stmt.Distinct,
		Limit:    limit,
		Offset:   offset,
	}
	if grouped {
		p.Group = plan.GroupSpec{Keys: groupKeys, Aggs: aggs.slots}
	}

	cols := make([]string, 0, len(targets))
	colTypes := make([]types.DType, 0, len(targets))
	for i, t := range targets {
		if t.Hidden {
			continue
		}
		cols = append(cols, t.Name)
		colTypes = append(colTypes, targetNodes[i].Type())
	}
	return p, cols, colTypes, nil
}

// compilePivot lowers a PIVOT BY clause. AxisB is required to name a GROUP
// BY key when it's given positionally; an expression-form axis can't be
// checked against GROUP BY's own key list without a structural AST-equality
// pass this compiler doesn't have, so that case is accepted unchecked.
func (c *Compiler) compilePivot(pv *ast.PivotClause, groupBy []ast.GroupKey, targetNodes []plan.Node, targets []plan.Target, ec *exprCtx) (*plan.PivotSpec, error) {
	if pv.AxisA.Index != 0 && pv.AxisA.Index == pv.AxisB.Index {
		return nil, &errs.CompileError{Message: "PIVOT BY axes must reference different columns"}
	}
	if pv.AxisB.Index > 0 {
		ok := false
		for _, k := range groupBy {
			if k.Index == pv.AxisB.Index {
				ok = true
				break
			}
		}
		if !ok {
			return nil, &errs.CompileError{Message: "PIVOT BY's second axis must be a GROUP BY key"}
		}
	}

	axisA, err := c.resolveKeyNode(pv.AxisA.Index, pv.AxisA.Expr, targetNodes, ec)
	if err != nil {
		return nil, err
	}
	axisB, err := c.resolveKeyNode(pv.AxisB.Index, pv.AxisB.Expr, targetNodes, ec)
	if err != nil {
		return nil, err
	}

	excluded := map[int]bool{}
	if pv.AxisA.Index > 0 {
		excluded[pv.AxisA.Index-1] = true
	}
	if pv.AxisB.Index > 0 {
		excluded[pv.AxisB.Index-1] = true
	}
	var values []plan.PivotValue
	for i, t := range targets {
		if excluded[i] {
			continue
		}
		values = append(values, plan.PivotValue{Name: t.Name, Node: t.Node})
	}
	return &plan.PivotSpec{AxisA: axisA, AxisB: axisB, Values: values}, nil
}

// expandedTarget is one resolved SELECT-list entry after `*`/`t.*`
// expansion.
type expandedTarget struct {
	expr ast.Expr
	name string
}

func (c *Compiler) expandTargets(targets []ast.Target, sc *Scope) ([]expandedTarget, error) {
	var out []expandedTarget
	for _, t := range targets {
		switch {
		case t.All:
			if len(sc.bindings) == 0 {
				return nil, &errs.CompileError{Message: "SELECT * requires a FROM clause"}
			}
			for i := range sc.bindings {
				b := &sc.bindings[i]
				for _, col := range b.table.Wildcard {
					out = append(out, expandedTarget{expr: &ast.Ident{Table: b.alias, Name: col}, name: col})
				}
			}
		case t.AllTable != "":
			b, err := findBindingByAlias(sc.bindings, t.AllTable)
			if err != nil {
				return nil, err
			}
			for _, col := range b.table.Wildcard {
				out = append(out, expandedTarget{expr: &ast.Ident{Table: b.alias, Name: col}, name: col})
			}
		default:
			name := t.Alias
			if name == "" {
				name = defaultTargetName(t.Expr, len(out))
			}
			out = append(out, expandedTarget{expr: t.Expr, name: name})
		}
	}
	return out, nil
}

func findBindingByAlias(bindings []binding, alias string) (*binding, error) {
	for i := range bindings {
		if bindings[i].alias == alias || bindings[i].table.Name == alias {
			return &bindings[i], nil
		}
	}
	return nil, &errs.CompileError{Node: alias, Message: fmt.Sprintf("unknown table or alias %q", alias)}
}

// defaultTargetName picks an unaliased target's output column name: the
// identifier's own name for a bare column reference, else a positional
// fallback.
func defaultTargetName(e ast.Expr, pos int) string {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}
	return fmt.Sprintf("col%d", pos+1)
}

// groupingNeeded reports whether a SELECT must run its rows through
// GROUP BY/aggregate evaluation: an explicit GROUP BY, or an aggregate call
// anywhere in the targets, HAVING, or an ORDER BY that isn't a target
// position reference.
func groupingNeeded(stmt *ast.SelectStmt) bool {
	if len(stmt.GroupBy) > 0 {
		return true
	}
	for _, t := range stmt.Targets {
		if exprContainsAggregate(t.Expr) {
			return true
		}
	}
	if exprContainsAggregate(stmt.Having) {
		return true
	}
	for _, ok := range stmt.OrderBy {
		if ok.Index == 0 && exprContainsAggregate(ok.Expr) {
			return true
		}
	}
	return false
}

// exprContainsAggregate walks e looking for a non-windowed aggregate call.
// It never descends into a subquery (EXISTS/scalar/IN) or a windowed
// aggregate call (`sum(x) OVER (...)` doesn't force outer grouping) since
// both belong to a separate evaluation scope.
func exprContainsAggregate(e ast.Expr) bool {
	switch n := e.(type) {
	case nil:
		return false
	case *ast.FuncCall:
		if n.Over == nil && registry.Default.HasAggregate(n.Name) {
			return true
		}
		for _, a := range n.Args {
			if exprContainsAggregate(a) {
				return true
			}
		}
		return exprContainsAggregate(n.Filter)
	case *ast.BinaryExpr:
		return exprContainsAggregate(n.Left) || exprContainsAggregate(n.Right)
	case *ast.UnaryExpr:
		return exprContainsAggregate(n.Operand)
	case *ast.Between:
		return exprContainsAggregate(n.Target) || exprContainsAggregate(n.Low) || exprContainsAggregate(n.High)
	case *ast.InExpr:
		if exprContainsAggregate(n.Target) {
			return true
		}
		for _, it := range n.List {
			if exprContainsAggregate(it) {
				return true
			}
		}
		return false
	case *ast.CaseExpr:
		if exprContainsAggregate(n.Operand) {
			return true
		}
		for _, w := range n.Whens {
			if exprContainsAggregate(w.Cond) || exprContainsAggregate(w.Result) {
				return true
			}
		}
		return exprContainsAggregate(n.Else)
	case *ast.CollectionLit:
		for _, it := range n.Items {
			if exprContainsAggregate(it) {
				return true
			}
		}
		return false
	case *ast.Attribute:
		if exprContainsAggregate(n.Target) {
			return true
		}
		for _, a := range n.Args {
			if exprContainsAggregate(a) {
				return true
			}
		}
		return false
	case *ast.Subscript:
		return exprContainsAggregate(n.Target) || exprContainsAggregate(n.Key)
	case *ast.Cast:
		return exprContainsAggregate(n.Target)
	default:
		return false
	}
}
