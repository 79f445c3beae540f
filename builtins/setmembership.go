package builtins

import (
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// registerSetMembership wires IN/NOTIN over (Value, List|Set). The
// `IN (SELECT ...)` and bare `IN (a, b, c)` list-literal forms are
// lowered by the compiler into a List value passed to this same signature,
// so plan evaluation never special-cases the subquery vs literal-list
// distinction once compiled.
func registerSetMembership(r *registry.Registry) {
	for _, elemHolder := range []types.DType{types.List(types.Object), types.Set(types.Object)} {
		elemHolder := elemHolder
		r.Register("IN", &registry.Signature{
			Params: []types.DType{types.Object, elemHolder},
			Result: types.Boolean,
			Eval: func(args []types.Value) (types.Value, error) {
				return inList(args[0], args[1]), nil
			},
		})
		r.Register("NOTIN", &registry.Signature{
			Params: []types.DType{types.Object, elemHolder},
			Result: types.Boolean,
			Eval: func(args []types.Value) (types.Value, error) {
				v := inList(args[0], args[1])
				if v.IsNull() {
					return v, nil
				}
				return types.NewBoolean(!v.B), nil
			},
		})
	}
}

// inList implements 3-valued IN: true if a member equals target, false if
// every member is non-null and unequal, null if no match was found but the
// list contains a null (SQL's "unknown" IN semantics).
func inList(target types.Value, list types.Value) types.Value {
	sawNull := false
	for _, item := range list.List {
		if item.IsNull() {
			sawNull = true
			continue
		}
		if types.Equal(target, item) {
			return types.NewBoolean(true)
		}
	}
	if sawNull {
		return types.Nil
	}
	return types.NewBoolean(false)
}
