// Package builtins registers PeaQL's standard library of operators,
// functions, casts, aggregators, and window-only functions into
// registry.Default, grounded on the teacher's per-function-struct style
// (Vegasq-parcat query/function.go: AbsFunc, RoundFunc, ModFunc, ...) and
// per-aggregate switch (query/aggregate.go), but registered as
// registry.Signatures instead of Function interface implementations so
// overload dispatch and null-propagation come from the registry for free.
package builtins

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

func init() {
	registerArithmetic(registry.Default)
	registerComparison(registry.Default)
	registerPattern(registry.Default)
	registerSetMembership(registry.Default)
	registerBoolean(registry.Default)
	registerCasts(registry.Default)
	registerStrings(registry.Default)
	registerTemporal(registry.Default)
	registerNumeric(registry.Default)
	registerAggregates(registry.Default)
	registerWindowFuncs(registry.Default)
}

// numericPromote is the result DType for arithmetic between two numeric
// operands: Decimal beats Real beats Integer.
func numericPromote(a, b types.DType) types.DType {
	if a.Tag == types.TagDecimal || b.Tag == types.TagDecimal {
		return types.Decimal
	}
	if a.Tag == types.TagReal || b.Tag == types.TagReal {
		return types.Real
	}
	return types.Integer
}

func toDecimalPair(a, b types.Value) (decimal.Decimal, decimal.Decimal) {
	da, _ := a.AsDecimal()
	db, _ := b.AsDecimal()
	return da, db
}

func registerArithmetic(r *registry.Registry) {
	numTypes := []types.DType{types.Integer, types.Real, types.Decimal}

	for _, a := range numTypes {
		for _, b := range numTypes {
			a, b := a, b
			r.Register("+", &registry.Signature{
				Params:   []types.DType{a, b},
				ResultFn: func(argTypes []types.DType) types.DType { return numericPromote(a, b) },
				Eval:     func(args []types.Value) (types.Value, error) { return numericAdd(args[0], args[1]) },
			})
			r.Register("-", &registry.Signature{
				Params:   []types.DType{a, b},
				ResultFn: func(argTypes []types.DType) types.DType { return numericPromote(a, b) },
				Eval:     func(args []types.Value) (types.Value, error) { return numericSub(args[0], args[1]) },
			})
			r.Register("*", &registry.Signature{
				Params:   []types.DType{a, b},
				ResultFn: func(argTypes []types.DType) types.DType { return numericPromote(a, b) },
				Eval:     func(args []types.Value) (types.Value, error) { return numericMul(args[0], args[1]) },
			})
			r.Register("/", &registry.Signature{
				Params:   []types.DType{a, b},
				ResultFn: func(argTypes []types.DType) types.DType { return numericPromote(a, b) },
				Eval: func(args []types.Value) (types.Value, error) {
					return numericDiv(args[0], args[1], a.Tag == types.TagInteger && b.Tag == types.TagInteger)
				},
			})
			r.Register("%", &registry.Signature{
				Params:   []types.DType{a, b},
				ResultFn: func(argTypes []types.DType) types.DType { return numericPromote(a, b) },
				Eval:     func(args []types.Value) (types.Value, error) { return numericMod(args[0], args[1]) },
			})
		}
	}

	// Unary minus, one overload per numeric type.
	for _, t := range numTypes {
		t := t
		r.Register("NEG", &registry.Signature{
			Params: []types.DType{t},
			Result: t,
			Eval:   func(args []types.Value) (types.Value, error) { return numericNeg(args[0]), nil },
		})
	}

	// (Number, String) concatenation.
	r.Register("+", &registry.Signature{
		Params: []types.DType{types.Object, types.String},
		Result: types.String,
		Eval: func(args []types.Value) (types.Value, error) {
			if !types.IsNumber(args[0].DType()) {
				return types.Nil, nil
			}
			return types.NewString(args[0].String() + args[1].S), nil
		},
	})
	r.Register("+", &registry.Signature{
		Params: []types.DType{types.String, types.Object},
		Result: types.String,
		Eval: func(args []types.Value) (types.Value, error) {
			if !types.IsNumber(args[1].DType()) {
				return types.Nil, nil
			}
			return types.NewString(args[0].S + args[1].String()), nil
		},
	})

	// DateTime +/- Number treats Number as days; DateTime +/- Duration and
	// Duration +/- Duration are calendar arithmetic.
	r.Register("+", &registry.Signature{
		Params: []types.DType{types.DateTime, types.Real},
		Result: types.DateTime,
		Eval:   func(args []types.Value) (types.Value, error) { return dateTimeAddDays(args[0], args[1]) },
	})
	r.Register("+", &registry.Signature{
		Params: []types.DType{types.Real, types.DateTime},
		Result: types.DateTime,
		Eval:   func(args []types.Value) (types.Value, error) { return dateTimeAddDays(args[1], args[0]) },
	})
	r.Register("-", &registry.Signature{
		Params: []types.DType{types.DateTime, types.Real},
		Result: types.DateTime,
		Eval: func(args []types.Value) (types.Value, error) {
			neg, _ := args[1].AsFloat64()
			return dateTimeAddDays(args[0], types.NewReal(-neg))
		},
	})
	r.Register("+", &registry.Signature{
		Params: []types.DType{types.DateTime, types.Duration},
		Result: types.DateTime,
		Eval:   func(args []types.Value) (types.Value, error) { return dateTimeAddDuration(args[0], args[1], 1), nil },
	})
	r.Register("-", &registry.Signature{
		Params: []types.DType{types.DateTime, types.Duration},
		Result: types.DateTime,
		Eval:   func(args []types.Value) (types.Value, error) { return dateTimeAddDuration(args[0], args[1], -1), nil },
	})
	r.Register("+", &registry.Signature{
		Params: []types.DType{types.Duration, types.Duration},
		Result: types.Duration,
		Eval: func(args []types.Value) (types.Value, error) {
			a, b := args[0].Dur, args[1].Dur
			return types.NewDuration(types.DurationVal{Months: a.Months + b.Months, Millis: a.Millis + b.Millis}), nil
		},
	})
	r.Register("-", &registry.Signature{
		Params: []types.DType{types.Duration, types.Duration},
		Result: types.Duration,
		Eval: func(args []types.Value) (types.Value, error) {
			a, b := args[0].Dur, args[1].Dur
			return types.NewDuration(types.DurationVal{Months: a.Months - b.Months, Millis: a.Millis - b.Millis}), nil
		},
	})
}

func numericAdd(a, b types.Value) (types.Value, error) {
	if a.Tag == types.TagDecimal || b.Tag == types.TagDecimal {
		da, db := toDecimalPair(a, b)
		return types.NewDecimal(da.Add(db)), nil
	}
	if a.Tag == types.TagReal || b.Tag == types.TagReal {
		fa, _ := a.AsFloat64()
		fb, _ := b.AsFloat64()
		return types.NewReal(fa + fb), nil
	}
	return types.NewInteger(a.I + b.I), nil
}

func numericSub(a, b types.Value) (types.Value, error) {
	if a.Tag == types.TagDecimal || b.Tag == types.TagDecimal {
		da, db := toDecimalPair(a, b)
		return types.NewDecimal(da.Sub(db)), nil
	}
	if a.Tag == types.TagReal || b.Tag == types.TagReal {
		fa, _ := a.AsFloat64()
		fb, _ := b.AsFloat64()
		return types.NewReal(fa - fb), nil
	}
	return types.NewInteger(a.I - b.I), nil
}

func numericMul(a, b types.Value) (types.Value, error) {
	if a.Tag == types.TagDecimal || b.Tag == types.TagDecimal {
		da, db := toDecimalPair(a, b)
		return types.NewDecimal(da.Mul(db)), nil
	}
	if a.Tag == types.TagReal || b.Tag == types.TagReal {
		fa, _ := a.AsFloat64()
		fb, _ := b.AsFloat64()
		return types.NewReal(fa * fb), nil
	}
	return types.NewInteger(a.I * b.I), nil
}

// numericDiv implements `/`: integer division truncates toward zero;
// division by zero yields Null rather than erroring.
func numericDiv(a, b types.Value, bothInteger bool) (types.Value, error) {
	if bothInteger {
		if b.I == 0 {
			return types.Nil, nil
		}
		return types.NewInteger(a.I / b.I), nil
	}
	if a.Tag == types.TagDecimal || b.Tag == types.TagDecimal {
		da, db := toDecimalPair(a, b)
		if db.IsZero() {
			return types.Nil, nil
		}
		return types.NewDecimal(da.Div(db)), nil
	}
	fa, _ := a.AsFloat64()
	fb, _ := b.AsFloat64()
	if fb == 0 {
		return types.Nil, nil
	}
	return types.NewReal(fa / fb), nil
}

// numericMod implements `%`, truncating toward zero like Go's native
// operator.
func numericMod(a, b types.Value) (types.Value, error) {
	if a.Tag == types.TagInteger && b.Tag == types.TagInteger {
		if b.I == 0 {
			return types.Nil, nil
		}
		return types.NewInteger(a.I % b.I), nil
	}
	if a.Tag == types.TagDecimal || b.Tag == types.TagDecimal {
		return decimalMod(a, b)
	}
	fa, _ := a.AsFloat64()
	fb, _ := b.AsFloat64()
	if fb == 0 {
		return types.Nil, nil
	}
	return types.NewReal(math.Mod(fa, fb)), nil
}

func decimalMod(a, b types.Value) (types.Value, error) {
	da, db := toDecimalPair(a, b)
	if db.IsZero() {
		return types.Nil, nil
	}
	return types.NewDecimal(da.Mod(db)), nil
}

func numericNeg(v types.Value) types.Value {
	switch v.Tag {
	case types.TagInteger:
		return types.NewInteger(-v.I)
	case types.TagReal:
		return types.NewReal(-v.R)
	case types.TagDecimal:
		return types.NewDecimal(v.Dec.Neg())
	default:
		return v
	}
}

func dateTimeAddDays(dt, days types.Value) (types.Value, error) {
	f, _ := days.AsFloat64()
	d := dt.DT
	d.T = d.T.Add(timeDurationFromDays(f))
	return types.NewDateTime(d), nil
}

func dateTimeAddDuration(dt, dur types.Value, sign int) types.Value {
	d := dt.DT
	months := int(dur.Dur.Months) * sign
	millis := dur.Dur.Millis * int64(sign)
	d.T = d.T.AddDate(0, months, 0).Add(timeDurationFromMillis(millis))
	return types.NewDateTime(d)
}
