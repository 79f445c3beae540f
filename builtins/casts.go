package builtins

import (
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// registerCasts wires the explicit coercion functions, each registered both
// as a function and as a `::type` cast under the type names int/integer,
// real/number, boolean, text/string, numeric/decimal, datetime/timestamp,
// interval, and timestamptz (which also takes an optional zone). A cast that
// cannot convert its argument yields Null rather than an error at plain
// expression-evaluation sites, matching the engine's general rule that type
// mismatches at evaluation time yield NULL rather than aborting the query;
// the catalog's INSERT/UPDATE path additionally raises errs.DataError when a
// column-typed cast fails, since a value that can't fit its declared column
// type is a data error, not a silently-dropped value.
func registerCasts(r *registry.Registry) {
	simple := func(names []string, target types.DType, fn func(types.Value) (types.Value, bool)) {
		sig := &registry.Signature{
			Params: []types.DType{types.Object},
			Result: target,
			Eval: func(args []types.Value) (types.Value, error) {
				v, ok := fn(args[0])
				if !ok {
					return types.Nil, nil
				}
				return v, nil
			},
		}
		for _, name := range names {
			r.Register(name, sig)
			r.RegisterCast(name, sig)
		}
	}

	simple([]string{"int", "integer"}, types.Integer, types.CastInteger)
	simple([]string{"real", "number"}, types.Real, types.CastNumber)
	simple([]string{"boolean"}, types.Boolean, types.CastBoolean)
	simple([]string{"text", "string"}, types.String, types.CastString)
	simple([]string{"numeric", "decimal"}, types.Decimal, types.CastDecimal)
	simple([]string{"datetime", "timestamp"}, types.DateTime, types.CastDateTime)
	simple([]string{"interval"}, types.Duration, types.CastDuration)

	tzSig := &registry.Signature{
		Params: []types.DType{types.Object, types.VarargOf(types.String)},
		Result: types.DateTime,
		Eval: func(args []types.Value) (types.Value, error) {
			zone := ""
			if len(args) > 1 {
				zone = args[1].S
			}
			v, ok := types.CastTimestampTz(args[0], zone)
			if !ok {
				return types.Nil, nil
			}
			return v, nil
		},
	}
	r.Register("timestamptz", tzSig)
	r.RegisterCast("timestamptz", tzSig)
}
