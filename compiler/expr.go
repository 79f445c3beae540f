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

// aggCollector accumulates the aggregate calls found while compiling one
// grouped SELECT's targets/HAVING, assigning each a stable integer handle.
// Its presence on an exprCtx is what tells compileExpr an aggregate call
// site is legal.
type aggCollector struct {
	slots []plan.AggregateSlot
}

func (g *aggCollector) allocate(factory registry.AggregatorFactory, argTypes []types.DType, args []plan.Node, filter plan.Node, distinct bool) int {
	handle := len(g.slots)
	g.slots = append(g.slots, plan.AggregateSlot{
		Handle: handle, Args: args, Filter: filter, Distinct: distinct,
		Factory: factory, ArgTypes: argTypes,
	})
	return handle
}

// windowCollector accumulates OVER(...) call sites the same way aggCollector
// accumulates plain aggregate calls.
type windowCollector struct {
	slots []plan.WindowSlot
}

func (w *windowCollector) allocate(slot plan.WindowSlot) int {
	handle := len(w.slots)
	slot.Handle = handle
	w.slots = append(w.slots, slot)
	return handle
}

// exprCtx threads everything expression compilation needs beyond the plain
// AST node: the identifier scope, bound parameters, an optional target-alias
// map (for resolving ORDER BY/GROUP BY by name), and the aggregate/window
// collectors a grouped or windowed SELECT compiles its targets with.
type exprCtx struct {
	sc      *Scope
	params  Params
	aliases map[string]plan.Node
	aggs    *aggCollector
	wins    *windowCollector
	// namedWindows holds a SELECT's WINDOW clause bindings, consulted by
	// compileWindowCall when an OVER(...) references one by name.
	namedWindows map[string]*ast.WindowSpec
}

func (c *Compiler) compileExpr(e ast.Expr, ec *exprCtx) (plan.Node, error) {
	switch n := e.(type) {
	case *ast.Literal:
		v, err := literalValue(n)
		if err != nil {
			return nil, err
		}
		return plan.Const{Value: v, DType: v.DType()}, nil

	case *ast.Placeholder:
		v, err := ec.params.resolve(n)
		if err != nil {
			return nil, err
		}
		return plan.Const{Value: v, DType: v.DType()}, nil

	case *ast.Ident:
		if n.Table == "" && ec.aliases != nil {
			if node, ok := ec.aliases[n.Name]; ok {
				return node, nil
			}
		}
		return c.resolveIdent(n, ec.sc)

	case *ast.UnaryExpr:
		return c.compileUnary(n, ec)

	case *ast.BinaryExpr:
		return c.compileBinary(n, ec)

	case *ast.Between:
		return c.compileBetween(n, ec)

	case *ast.InExpr:
		return c.compileIn(n, ec)

	case *ast.FuncCall:
		return c.compileFuncCall(n, ec)

	case *ast.CaseExpr:
		return c.compileCase(n, ec)

	case *ast.CollectionLit:
		return c.compileCollection(n, ec)

	case *ast.Attribute:
		return c.compileAttribute(n, ec)

	case *ast.Subscript:
		target, err := c.compileExpr(n.Target, ec)
		if err != nil {
			return nil, err
		}
		key, err := c.compileExpr(n.Key, ec)
		if err != nil {
			return nil, err
		}
		resType := types.Object
		if target.Type().Tag == types.TagList && target.Type().Elem != nil {
			resType = *target.Type().Elem
		}
		return fold(plan.Subscript{Target: target, Key: key, ResType: resType}), nil

	case *ast.Cast:
		target, err := c.compileExpr(n.Target, ec)
		if err != nil {
			return nil, err
		}
		sig, ok := registry.Default.LookupCast(n.TypeName)
		if !ok {
			return nil, &errs.CompileError{Node: n.TypeName, Message: fmt.Sprintf("unknown type %q", n.TypeName)}
		}
		return fold(plan.Call{Name: n.TypeName, Sig: sig, ResType: sig.Result, Args: []plan.Node{target}}), nil

	case *ast.ExistsExpr:
		sub, err := c.compileSubquery(n.Query, ec)
		if err != nil {
			return nil, err
		}
		return plan.Exists{Not: n.Not, Runner: sub.runner()}, nil

	case *ast.ScalarSubquery:
		sub, err := c.compileSubquery(n.Query, ec)
		if err != nil {
			return nil, err
		}
		if len(sub.columns) != 1 {
			return nil, &errs.CompileError{Message: "scalar subquery must return exactly one column"}
		}
		return plan.ScalarSubquery{ResType: sub.types[0], Runner: sub.runner(), Column: sub.columns[0]}, nil

	default:
		return nil, &errs.InternalError{Message: fmt.Sprintf("compiler: unhandled expression type %T", e)}
	}
}

// resolveIdent turns a parsed identifier into a compiled column reference.
func (c *Compiler) resolveIdent(id *ast.Ident, sc *Scope) (plan.Node, error) {
	ref, err := sc.resolveColumn(id.Table, id.Name)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (c *Compiler) compileUnary(n *ast.UnaryExpr, ec *exprCtx) (plan.Node, error) {
	operand, err := c.compileExpr(n.Operand, ec)
	if err != nil {
		return nil, err
	}
	name := n.Op
	if name == "-" {
		name = "NEG"
	}
	sig, resType, err := registry.Default.Lookup(name, []types.DType{operand.Type()})
	if err != nil {
		return nil, notSupported(n.Op, err)
	}
	return fold(plan.Unary{Sig: sig, ResType: resType, Operand: operand}), nil
}

func (c *Compiler) compileBinary(n *ast.BinaryExpr, ec *exprCtx) (plan.Node, error) {
	if n.Op == "AND" || n.Op == "OR" {
		left, err := c.compileExpr(n.Left, ec)
		if err != nil {
			return nil, err
		}
		right, err := c.compileExpr(n.Right, ec)
		if err != nil {
			return nil, err
		}
		if n.Op == "AND" {
			return fold(plan.And{Left: left, Right: right}), nil
		}
		return fold(plan.Or{Left: left, Right: right}), nil
	}

	left, err := c.compileExpr(n.Left, ec)
	if err != nil {
		return nil, err
	}
	right, err := c.compileExpr(n.Right, ec)
	if err != nil {
		return nil, err
	}
	sig, resType, err := registry.Default.Lookup(n.Op, []types.DType{left.Type(), right.Type()})
	if err != nil {
		return nil, notSupported(n.Op, err)
	}
	return fold(plan.Binary{Sig: sig, ResType: resType, Left: left, Right: right}), nil
}

func (c *Compiler) compileBetween(n *ast.Between, ec *exprCtx) (plan.Node, error) {
	target, err := c.compileExpr(n.Target, ec)
	if err != nil {
		return nil, err
	}
	low, err := c.compileExpr(n.Low, ec)
	if err != nil {
		return nil, err
	}
	high, err := c.compileExpr(n.High, ec)
	if err != nil {
		return nil, err
	}
	geSig, _, err := registry.Default.Lookup(">=", []types.DType{target.Type(), low.Type()})
	if err != nil {
		return nil, notSupported(">=", err)
	}
	leSig, _, err := registry.Default.Lookup("<=", []types.DType{target.Type(), high.Type()})
	if err != nil {
		return nil, notSupported("<=", err)
	}
	return plan.Between{Not: n.Not, Target: target, Low: low, High: high, GeSig: geSig, LeSig: leSig}, nil
}

// compileIn lowers both `IN (a, b, c)` (materialized as a List value) and
// `IN (SELECT ...)` (a correlated ListSubquery) to the same IN/NOTIN
// registry signature.
func (c *Compiler) compileIn(n *ast.InExpr, ec *exprCtx) (plan.Node, error) {
	target, err := c.compileExpr(n.Target, ec)
	if err != nil {
		return nil, err
	}

	var list plan.Node
	if n.SubList != nil {
		sub, err := c.compileSubquery(n.SubList, ec)
		if err != nil {
			return nil, err
		}
		if len(sub.columns) != 1 {
			return nil, &errs.CompileError{Message: "IN subquery must return exactly one column"}
		}
		list = plan.ListSubquery{Elem: sub.types[0], Runner: sub.runner(), Column: sub.columns[0]}
	} else {
		items := make([]plan.Node, len(n.List))
		elem := types.Object
		for i, it := range n.List {
			node, err := c.compileExpr(it, ec)
			if err != nil {
				return nil, err
			}
			items[i] = node
			if i == 0 {
				elem = node.Type()
			}
		}
		list = fold(plan.Collection{Items: items, Elem: elem})
	}

	name := "IN"
	if n.Not {
		name = "NOTIN"
	}
	sig, resType, err := registry.Default.Lookup(name, []types.DType{target.Type(), list.Type()})
	if err != nil {
		return nil, notSupported(name, err)
	}
	return plan.Binary{Sig: sig, ResType: resType, Left: target, Right: list}, nil
}

func (c *Compiler) compileCase(n *ast.CaseExpr, ec *exprCtx) (plan.Node, error) {
	var operand plan.Node
	if n.Operand != nil {
		v, err := c.compileExpr(n.Operand, ec)
		if err != nil {
			return nil, err
		}
		operand = v
	}

	whens := make([]plan.CaseWhen, len(n.Whens))
	var resType types.DType
	for i, w := range n.Whens {
		var cond plan.Node
		var err error
		if operand != nil {
			// Operand form: `CASE x WHEN v THEN ...` lowers to per-branch
			// equality against x.
			condVal, cerr := c.compileExpr(w.Cond, ec)
			if cerr != nil {
				return nil, cerr
			}
			sig, resT, lerr := registry.Default.Lookup("=", []types.DType{operand.Type(), condVal.Type()})
			if lerr != nil {
				return nil, notSupported("=", lerr)
			}
			cond = plan.Binary{Sig: sig, ResType: resT, Left: operand, Right: condVal}
		} else {
			cond, err = c.compileExpr(w.Cond, ec)
			if err != nil {
				return nil, err
			}
		}
		result, err := c.compileExpr(w.Result, ec)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			resType = result.Type()
		}
		whens[i] = plan.CaseWhen{Cond: cond, Result: result}
	}

	var elseNode plan.Node
	if n.Else != nil {
		v, err := c.compileExpr(n.Else, ec)
		if err != nil {
			return nil, err
		}
		elseNode = v
	}
	return plan.Case{Whens: whens, Else: elseNode, ResType: resType}, nil
}

func (c *Compiler) compileCollection(n *ast.CollectionLit, ec *exprCtx) (plan.Node, error) {
	items := make([]plan.Node, len(n.Items))
	elem := types.Object
	for i, it := range n.Items {
		node, err := c.compileExpr(it, ec)
		if err != nil {
			return nil, err
		}
		items[i] = node
		if i == 0 {
			elem = node.Type()
		}
	}
	// Tuple literals `(a, b)` and array literals `[a, b]` both compile to a
	// List value; only PIVOT BY and set-membership tell them apart at the
	// AST level, so plan evaluation doesn't need to.
	return fold(plan.Collection{Items: items, AsSet: false, Elem: elem}), nil
}

// compileAttribute rewrites both `op.name` and `op.f(args...)` into a single
// function application `f(op, args...)`, since a structured attribute (e.g.
// DateTime.year) is registered under its own name taking the structured
// value as its sole argument, the same shape a zero-extra-arg dotted method
// call would produce.
func (c *Compiler) compileAttribute(n *ast.Attribute, ec *exprCtx) (plan.Node, error) {
	target, err := c.compileExpr(n.Target, ec)
	if err != nil {
		return nil, err
	}
	args := make([]plan.Node, 0, len(n.Args)+1)
	args = append(args, target)
	for _, a := range n.Args {
		node, err := c.compileExpr(a, ec)
		if err != nil {
			return nil, err
		}
		args = append(args, node)
	}
	return c.buildCall(n.Name, args)
}

func (c *Compiler) buildCall(name string, args []plan.Node) (plan.Node, error) {
	argTypes := make([]types.DType, len(args))
	for i, a := range args {
		argTypes[i] = a.Type()
	}
	sig, resType, err := registry.Default.Lookup(name, argTypes)
	if err != nil {
		return nil, notSupported(name, err)
	}
	return fold(plan.Call{Name: name, Sig: sig, ResType: resType, Args: args}), nil
}

// compileFuncCall handles ordinary scalar functions, aggregate calls
// (plain or windowed), and window-only functions, dispatching on whether
// the name is registered as an aggregate/window function and whether an
// OVER clause is present.
func (c *Compiler) compileFuncCall(n *ast.FuncCall, ec *exprCtx) (plan.Node, error) {
	if strings.EqualFold(n.Name, "count") && len(n.Args) == 1 {
		if id, ok := n.Args[0].(*ast.Ident); ok && id.Name == "*" && id.Table == "" {
			n = &ast.FuncCall{Name: n.Name, Args: nil, Distinct: n.Distinct, Filter: n.Filter, Over: n.Over}
		}
	}

	if n.Over != nil {
		return c.compileWindowCall(n, ec)
	}
	if registry.Default.HasAggregate(n.Name) {
		return c.compileAggCall(n, ec)
	}

	args := make([]plan.Node, len(n.Args))
	for i, a := range n.Args {
		node, err := c.compileExpr(a, ec)
		if err != nil {
			return nil, err
		}
		args[i] = node
	}
	return c.buildCall(n.Name, args)
}

func (c *Compiler) compileAggCall(n *ast.FuncCall, ec *exprCtx) (plan.Node, error) {
	if ec.aggs == nil {
		return nil, &errs.CompileError{Node: n.Name, Message: "aggregate function not allowed here"}
	}
	args, argTypes, err := c.compileCallArgs(n.Args, ec)
	if err != nil {
		return nil, err
	}
	factory, resType, ok := registry.Default.LookupAggregate(n.Name, argTypes)
	if !ok {
		return nil, &errs.NotSupportedError{Name: n.Name, Signature: renderTypes(argTypes)}
	}
	var filter plan.Node
	if n.Filter != nil {
		filter, err = c.compileExpr(n.Filter, ec)
		if err != nil {
			return nil, err
		}
	}
	handle := ec.aggs.allocate(factory, argTypes, args, filter, n.Distinct)
	return plan.AggSlotRef(handle, resType), nil
}

func (c *Compiler) compileCallArgs(exprs []ast.Expr, ec *exprCtx) ([]plan.Node, []types.DType, error) {
	args := make([]plan.Node, len(exprs))
	types_ := make([]types.DType, len(exprs))
	for i, a := range exprs {
		node, err := c.compileExpr(a, ec)
		if err != nil {
			return nil, nil, err
		}
		args[i] = node
		types_[i] = node.Type()
	}
	return args, types_, nil
}

func notSupported(name string, err error) error {
	if registry.NotFound(err) {
		return &errs.CompileError{Node: name, Message: fmt.Sprintf("unknown function or operator %q", name)}
	}
	return &errs.NotSupportedError{Name: name, Signature: err.Error()}
}

func renderTypes(ts []types.DType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// fold replaces a node whose entire subtree is compile-time constant with
// its evaluated plan.Const. A node that errors when evaluated with an empty
// row is left unfolded so the error still surfaces normally at execution
// time.
func fold(n plan.Node) plan.Node {
	if _, ok := n.(plan.Const); ok {
		return n
	}
	if !isConstNode(n) {
		return n
	}
	v, err := n.Eval(catalog.Row{})
	if err != nil {
		return n
	}
	return plan.Const{Value: v, DType: n.Type()}
}

func isConstNode(n plan.Node) bool {
	switch v := n.(type) {
	case plan.Const:
		return true
	case plan.Unary:
		return isConstNode(v.Operand)
	case plan.Binary:
		return isConstNode(v.Left) && isConstNode(v.Right)
	case plan.And:
		return isConstNode(v.Left) && isConstNode(v.Right)
	case plan.Or:
		return isConstNode(v.Left) && isConstNode(v.Right)
	case plan.Call:
		for _, a := range v.Args {
			if !isConstNode(a) {
				return false
			}
		}
		return true
	case plan.Collection:
		for _, a := range v.Items {
			if !isConstNode(a) {
				return false
			}
		}
		return true
	case plan.Subscript:
		return isConstNode(v.Target) && isConstNode(v.Key)
	default:
		return false
	}
}

// memoize wraps a subquery Runner so a non-correlated subquery is executed
// at most once per compiled plan, regardless of how many rows evaluate the
// expression that embeds it: scalar/list/EXISTS subqueries with no outer
// reference are cached for the plan's lifetime rather than re-run per
// row.
func memoize(fn func(catalog.Row) ([]catalog.Row, error)) func(catalog.Row) ([]catalog.Row, error) {
	var rows []catalog.Row
	var runErr error
	var done bool
	return func(outer catalog.Row) ([]catalog.Row, error) {
		if !done {
			rows, runErr = fn(outer)
			done = true
		}
		return rows, runErr
	}
}
