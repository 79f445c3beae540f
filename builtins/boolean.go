package builtins

import (
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// registerBoolean wires AND/OR/NOT with Kleene 3-valued semantics and the
// null-safe ISNULL/ISNOTNULL predicates. AND/OR are registered here for
// completeness and for any caller that dispatches through the registry
// directly, but the compiler's own AND/OR lowering short-circuits without
// evaluating the untaken branch, since these Eval bodies assume both
// operands are already materialized.
func registerBoolean(r *registry.Registry) {
	r.Register("AND", &registry.Signature{
		Params:   []types.DType{types.Boolean, types.Boolean},
		Result:   types.Boolean,
		NullSafe: true,
		Eval: func(args []types.Value) (types.Value, error) {
			return kleeneAnd(args[0], args[1]), nil
		},
	})
	r.Register("OR", &registry.Signature{
		Params:   []types.DType{types.Boolean, types.Boolean},
		Result:   types.Boolean,
		NullSafe: true,
		Eval: func(args []types.Value) (types.Value, error) {
			return kleeneOr(args[0], args[1]), nil
		},
	})
	r.Register("NOT", &registry.Signature{
		Params:   []types.DType{types.Boolean},
		Result:   types.Boolean,
		NullSafe: true,
		Eval: func(args []types.Value) (types.Value, error) {
			if args[0].IsNull() {
				return types.Nil, nil
			}
			return types.NewBoolean(!args[0].B), nil
		},
	})
	r.Register("ISNULL", &registry.Signature{
		Params:   []types.DType{types.Object},
		Result:   types.Boolean,
		NullSafe: true,
		Eval:     func(args []types.Value) (types.Value, error) { return types.NewBoolean(args[0].IsNull()), nil },
	})
	r.Register("ISNOTNULL", &registry.Signature{
		Params:   []types.DType{types.Object},
		Result:   types.Boolean,
		NullSafe: true,
		Eval:     func(args []types.Value) (types.Value, error) { return types.NewBoolean(!args[0].IsNull()), nil },
	})
}

// KleeneAnd/KleeneOr/KleeneNot expose the Kleene 3-valued operators to the
// plan package, which needs the same short-circuiting logic to compile
// AND/OR/BETWEEN without going through a per-row registry lookup.
func KleeneAnd(a, b types.Value) types.Value { return kleeneAnd(a, b) }
func KleeneOr(a, b types.Value) types.Value  { return kleeneOr(a, b) }
func KleeneNot(a types.Value) types.Value {
	if a.IsNull() {
		return types.Nil
	}
	return types.NewBoolean(!a.B)
}

// InList exposes the shared IN-list membership test, with its "found /
// not-found / unknown-because-of-a-null" 3-way result, to callers outside
// this package without a registry round trip.
func InList(target, list types.Value) types.Value { return inList(target, list) }

// kleeneAnd implements Kleene's strong conjunction: FALSE dominates Null.
func kleeneAnd(a, b types.Value) types.Value {
	if (!a.IsNull() && !a.B) || (!b.IsNull() && !b.B) {
		return types.NewBoolean(false)
	}
	if a.IsNull() || b.IsNull() {
		return types.Nil
	}
	return types.NewBoolean(true)
}

// kleeneOr implements Kleene's strong disjunction: TRUE dominates Null.
func kleeneOr(a, b types.Value) types.Value {
	if (!a.IsNull() && a.B) || (!b.IsNull() && b.B) {
		return types.NewBoolean(true)
	}
	if a.IsNull() || b.IsNull() {
		return types.Nil
	}
	return types.NewBoolean(false)
}
