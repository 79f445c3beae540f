// Package plan implements PeaQL's executable plan tree and evaluator: the
// typed node graph the compiler builds from the AST, and the
// resolve()/execute() logic that walks it against catalog rows. A
// plan.Node's Eval method has the same shape as catalog.CompiledExpr's, so
// every expression node doubles as a compiled column/constraint expression
// without catalog importing this package; see catalog/context.go.
package plan

import (
	"fmt"

	"github.com/peaql/peaql/builtins"
	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// Node is any compiled expression: constants, column references, operator
// and function calls, and the aggregate/window slot references a grouped or
// windowed SELECT target re-resolves against once its group/partition has
// been materialized.
type Node interface {
	Eval(row catalog.Row) (types.Value, error)
	// Type reports the node's static result type, computed once at compile
	// time.
	Type() types.DType
}

// Const is a literal or a folded constant sub-expression.
type Const struct {
	Value types.Value
	DType types.DType
}

func (c Const) Eval(catalog.Row) (types.Value, error) { return c.Value, nil }
func (c Const) Type() types.DType                      { return c.DType }

// ColumnRef reads a single key out of the evaluation row. Key is the fully
// resolved lookup name the compiler picked for this reference: either a
// bare column name or an "alias.column" qualifier disambiguating a joined
// row.
type ColumnRef struct {
	Key   string
	DType types.DType
}

func (c ColumnRef) Eval(row catalog.Row) (types.Value, error) {
	if v, ok := row[c.Key]; ok {
		return v, nil
	}
	return types.Nil, nil
}
func (c ColumnRef) Type() types.DType { return c.DType }

// SlotRef reads a value an earlier evaluation phase stashed into the row
// under a reserved key: an aggregator's finalized value or a window
// function's per-row result. Group/window finalization writes these keys
// before re-resolving any target Node that references them, so by the time
// SlotRef.Eval runs the key is always present.
type SlotRef struct {
	Key   string
	DType types.DType
}

func (s SlotRef) Eval(row catalog.Row) (types.Value, error) {
	if v, ok := row[s.Key]; ok {
		return v, nil
	}
	return types.Nil, nil
}
func (s SlotRef) Type() types.DType { return s.DType }

func aggSlotKey(handle int) string    { return fmt.Sprintf("\x00agg:%d", handle) }
func windowSlotKey(handle int) string { return fmt.Sprintf("\x00win:%d", handle) }

// AggSlotRef and WindowSlotRef build the SlotRef a compiled target expression
// embeds at an aggregate/window call site, so the compiler never needs to
// know the reserved key format itself; only the plan package that both
// writes and reads these slots does.
func AggSlotRef(handle int, dtype types.DType) SlotRef {
	return SlotRef{Key: aggSlotKey(handle), DType: dtype}
}

func WindowSlotRef(handle int, dtype types.DType) SlotRef {
	return SlotRef{Key: windowSlotKey(handle), DType: dtype}
}

// Unary applies a registered single-argument signature (-, NOT, ISNULL,
// ISNOTNULL). Non-NullSafe signatures short-circuit to Null before Eval
// runs, matching every scalar function's default null handling.
type Unary struct {
	Sig     *registry.Signature
	ResType types.DType
	Operand Node
}

func (u Unary) Eval(row catalog.Row) (types.Value, error) {
	v, err := u.Operand.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	if v.IsNull() && !u.Sig.NullSafe {
		return types.Nil, nil
	}
	return u.Sig.Eval([]types.Value{v})
}
func (u Unary) Type() types.DType { return u.ResType }

// Binary applies a registered two-argument signature. Covers every
// arithmetic, comparison, and IN/NOTIN operator except AND/OR, which need
// real short-circuit evaluation and are their own node types.
type Binary struct {
	Sig     *registry.Signature
	ResType types.DType
	Left    Node
	Right   Node
}

func (b Binary) Eval(row catalog.Row) (types.Value, error) {
	l, err := b.Left.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	if l.IsNull() && !b.Sig.NullSafe {
		return types.Nil, nil
	}
	r, err := b.Right.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	if r.IsNull() && !b.Sig.NullSafe {
		return types.Nil, nil
	}
	return b.Sig.Eval([]types.Value{l, r})
}
func (b Binary) Type() types.DType { return b.ResType }

// And/Or implement Kleene's 3-valued logic with true short-circuit
// evaluation: AND stops at a FALSE left operand, OR stops at a TRUE one,
// without evaluating (or erroring on) the untaken branch.
type And struct{ Left, Right Node }

func (a And) Eval(row catalog.Row) (types.Value, error) {
	l, err := a.Left.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	if !l.IsNull() && !l.B {
		return types.NewBoolean(false), nil
	}
	r, err := a.Right.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	return builtins.KleeneAnd(l, r), nil
}
func (a And) Type() types.DType { return types.Boolean }

type Or struct{ Left, Right Node }

func (o Or) Eval(row catalog.Row) (types.Value, error) {
	l, err := o.Left.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	if !l.IsNull() && l.B {
		return types.NewBoolean(true), nil
	}
	r, err := o.Right.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	return builtins.KleeneOr(l, r), nil
}
func (o Or) Type() types.DType { return types.Boolean }

// Call applies a registered scalar function to N evaluated arguments,
// covering ordinary built-ins, casts (looked up by target type name), and
// the `expr.f(args)`/`expr::type` rewrites the compiler performs at
// resolution time.
type Call struct {
	Name    string
	Sig     *registry.Signature
	ResType types.DType
	Args    []Node
}

func (c Call) Eval(row catalog.Row) (types.Value, error) {
	vals := make([]types.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := a.Eval(row)
		if err != nil {
			return types.Nil, err
		}
		if v.IsNull() && !c.Sig.NullSafe {
			return types.Nil, nil
		}
		vals[i] = v
	}
	return c.Sig.Eval(vals)
}
func (c Call) Type() types.DType { return c.ResType }

// Between implements BETWEEN/NOT BETWEEN as the Kleene AND of target >= low
// and target <= high, the target evaluated once. A Null target yields Null;
// a Null bound makes its own comparison Null, so the result is Null unless
// the other comparison is false. NOT negates, leaving Null as Null.
type Between struct {
	Not          bool
	Target       Node
	Low, High    Node
	GeSig, LeSig *registry.Signature
}

func (b Between) Eval(row catalog.Row) (types.Value, error) {
	t, err := b.Target.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	if t.IsNull() {
		return types.Nil, nil
	}
	lo, err := b.Low.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	hi, err := b.High.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	var geVal, leVal types.Value
	if lo.IsNull() {
		geVal = types.Nil
	} else if geVal, err = b.GeSig.Eval([]types.Value{t, lo}); err != nil {
		return types.Nil, err
	}
	if hi.IsNull() {
		leVal = types.Nil
	} else if leVal, err = b.LeSig.Eval([]types.Value{t, hi}); err != nil {
		return types.Nil, err
	}
	result := builtins.KleeneAnd(geVal, leVal)
	if b.Not {
		result = builtins.KleeneNot(result)
	}
	return result, nil
}
func (b Between) Type() types.DType { return types.Boolean }

// Case implements CASE/WHEN/ELSE: the operand form (`CASE x WHEN v THEN
// ...`) is lowered by the compiler into an equality comparison per branch,
// so this node only ever sees the searched form.
type Case struct {
	Whens   []CaseWhen
	Else    Node // nil means implicit ELSE NULL
	ResType types.DType
}

type CaseWhen struct {
	Cond   Node
	Result Node
}

func (c Case) Eval(row catalog.Row) (types.Value, error) {
	for _, w := range c.Whens {
		cond, err := w.Cond.Eval(row)
		if err != nil {
			return types.Nil, err
		}
		if cond.Truthy() {
			return w.Result.Eval(row)
		}
	}
	if c.Else == nil {
		return types.Nil, nil
	}
	return c.Else.Eval(row)
}
func (c Case) Type() types.DType { return c.ResType }

// Collection builds a List value from evaluated items, backing both `[...]`
// literals and the materialized right-hand side of an `IN (a, b, c)` list: a
// bare list of expressions is lowered to a List value passed to the same IN
// signature a subquery-sourced list would use.
type Collection struct {
	Items []Node
	AsSet bool
	Elem  types.DType
}

func (c Collection) Eval(row catalog.Row) (types.Value, error) {
	vals := make([]types.Value, len(c.Items))
	for i, item := range c.Items {
		v, err := item.Eval(row)
		if err != nil {
			return types.Nil, err
		}
		vals[i] = v
	}
	if c.AsSet {
		return types.NewSet(vals), nil
	}
	return types.NewList(vals), nil
}
func (c Collection) Type() types.DType {
	if c.AsSet {
		return types.Set(c.Elem)
	}
	return types.List(c.Elem)
}

// Subscript indexes a List/Set value positionally (0-based). Indexing a
// value shorter than the requested position, or indexing Null, yields Null
// rather than an error, matching every other out-of-domain scalar
// operation's default null-propagation behavior.
type Subscript struct {
	Target Node
	Key    Node
	ResType types.DType
}

func (s Subscript) Eval(row catalog.Row) (types.Value, error) {
	target, err := s.Target.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	key, err := s.Key.Eval(row)
	if err != nil {
		return types.Nil, err
	}
	if target.IsNull() || key.IsNull() || key.Tag != types.TagInteger {
		return types.Nil, nil
	}
	idx := int(key.I)
	if idx < 0 || idx >= len(target.List) {
		return types.Nil, nil
	}
	return target.List[idx], nil
}
func (s Subscript) Type() types.DType { return s.ResType }

// Exists evaluates a correlated subquery for row existence. Runner executes
// the subquery's plan against the current row merged as outer context
// (built by the compiler's correlated-subquery lowering).
type Exists struct {
	Not    bool
	Runner func(outer catalog.Row) ([]catalog.Row, error)
}

func (e Exists) Eval(row catalog.Row) (types.Value, error) {
	rows, err := e.Runner(row)
	if err != nil {
		return types.Nil, err
	}
	found := len(rows) > 0
	if e.Not {
		found = !found
	}
	return types.NewBoolean(found), nil
}
func (e Exists) Type() types.DType { return types.Boolean }

// ScalarSubquery evaluates a correlated subquery expected to produce exactly
// one row and one column. More than one row is an evaluation error; zero
// rows yields Null.
type ScalarSubquery struct {
	ResType types.DType
	Runner  func(outer catalog.Row) ([]catalog.Row, error)
	Column  string
}

func (s ScalarSubquery) Eval(row catalog.Row) (types.Value, error) {
	rows, err := s.Runner(row)
	if err != nil {
		return types.Nil, err
	}
	switch len(rows) {
	case 0:
		return types.Nil, nil
	case 1:
		return rows[0][s.Column], nil
	default:
		return types.Nil, fmt.Errorf("plan: scalar subquery returned %d rows, expected at most 1", len(rows))
	}
}
func (s ScalarSubquery) Type() types.DType { return s.ResType }

// ListSubquery evaluates a correlated subquery's single column into a List
// value, backing `expr IN (SELECT ...)`.
type ListSubquery struct {
	Elem   types.DType
	Runner func(outer catalog.Row) ([]catalog.Row, error)
	Column string
}

func (s ListSubquery) Eval(row catalog.Row) (types.Value, error) {
	rows, err := s.Runner(row)
	if err != nil {
		return types.Nil, err
	}
	vals := make([]types.Value, len(rows))
	for i, r := range rows {
		vals[i] = r[s.Column]
	}
	return types.NewList(vals), nil
}
func (s ListSubquery) Type() types.DType { return types.List(s.Elem) }
