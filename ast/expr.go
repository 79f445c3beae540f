package ast

// Expr is any expression node: constant, column reference, attribute
// access, subscript, unary/binary operator, function call, aggregator,
// window, CASE, COALESCE, collection literal, subquery value/list.
type Expr interface{ exprNode() }

type Literal struct {
	// Kind is one of "null", "integer", "real", "decimal", "boolean",
	// "string". The lexer/parser never produce DateTime/Duration literals
	// directly -- those come from casts or functions.
	Kind string
	Text string // raw literal text, parsed by the compiler against Kind
}

func (*Literal) exprNode() {}

// Ident is a bare identifier before the compiler decides whether it names a
// column, a table-qualified column, or (post-rewrite) something else.
type Ident struct {
	Table  string // "" unless written as table.column
	Name   string
	Quoted bool // true if it came from a quoted identifier ("x" or `x`);
	// no later stage reads it.
}

func (*Ident) exprNode() {}

// Attribute is `expr.name` (IsCall false) or the method-call sugar
// `expr.f(args...)` (IsCall true), which the compiler rewrites to
// `f(expr, args...)`.
type Attribute struct {
	Target Expr
	Name   string
	IsCall bool
	Args   []Expr
}

func (*Attribute) exprNode() {}

// Subscript is `expr[key]`.
type Subscript struct {
	Target Expr
	Key    Expr
}

func (*Subscript) exprNode() {}

// Cast is `expr::type`, rewritten by the parser into a plain function call
// but kept as its own node so the compiler can give a clearer diagnostic
// when the cast function is unknown.
type Cast struct {
	Target   Expr
	TypeName string
}

func (*Cast) exprNode() {}

type UnaryExpr struct {
	Op      string // "-", "NOT", "ISNULL", "ISNOTNULL"
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// Between is BETWEEN / NOT BETWEEN with 3-way null propagation.
type Between struct {
	Not    bool
	Target Expr
	Low    Expr
	High   Expr
}

func (*Between) exprNode() {}

// InExpr is `target [NOT] IN (list...)` or against a subquery list.
type InExpr struct {
	Not     bool
	Target  Expr
	List    []Expr
	SubList *SelectStmt // non-nil for `IN (SELECT ...)`
}

func (*InExpr) exprNode() {}

type FuncCall struct {
	Name     string
	Args     []Expr
	Distinct bool     // DISTINCT modifier, aggregates only
	Filter   Expr     // FILTER (WHERE ...), aggregates only
	Over     *WindowSpec // non-nil marks this as a window function call
}

func (*FuncCall) exprNode() {}

type CaseExpr struct {
	Operand  Expr // non-nil for `CASE x WHEN ...`
	Whens    []WhenClause
	Else     Expr
}

func (*CaseExpr) exprNode() {}

type WhenClause struct {
	Cond   Expr
	Result Expr
}

type CollectionLit struct {
	IsTuple bool // true for (...), false for [...]
	Items   []Expr
}

func (*CollectionLit) exprNode() {}

// ScalarSubquery is a `(SELECT ...)` used where a single scalar value is
// expected (1x1 result). ListSubquery is used where a list is expected
// (right-hand side of IN).
type ScalarSubquery struct {
	Query *SelectStmt
}

func (*ScalarSubquery) exprNode() {}

type ExistsExpr struct {
	Not   bool
	Query *SelectStmt
}

func (*ExistsExpr) exprNode() {}

// Placeholder is `?` (Position holds 1-based ordinal) or `:name`.
type Placeholder struct {
	Style    PlaceholderStyle
	Position int
	Name     string
}

func (*Placeholder) exprNode() {}
