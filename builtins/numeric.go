package builtins

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

func registerNumeric(r *registry.Registry) {
	for _, t := range []types.DType{types.Integer, types.Real, types.Decimal} {
		t := t
		r.Register("abs", &registry.Signature{
			Params: []types.DType{t},
			Result: t,
			Eval:   func(args []types.Value) (types.Value, error) { return numericAbs(args[0]), nil },
		})
	}

	roundEval := func(args []types.Value) (types.Value, error) {
		digits := int32(2)
		if len(args) > 1 {
			digits = int32(args[1].I)
		}
		return numericRound(args[0], digits), nil
	}
	r.Register("round", &registry.Signature{Params: []types.DType{types.Real}, Result: types.Real, Eval: roundEval})
	r.Register("round", &registry.Signature{Params: []types.DType{types.Real, types.Integer}, Result: types.Real, Eval: roundEval})
	r.Register("round", &registry.Signature{Params: []types.DType{types.Decimal}, Result: types.Decimal, Eval: roundEval})
	r.Register("round", &registry.Signature{Params: []types.DType{types.Decimal, types.Integer}, Result: types.Decimal, Eval: roundEval})

	r.Register("toFixed", &registry.Signature{
		Params: []types.DType{types.Object, types.Integer},
		Result: types.String,
		Eval: func(args []types.Value) (types.Value, error) {
			d, _ := args[0].AsDecimal()
			return types.NewString(d.StringFixed(int32(args[1].I))), nil
		},
	})

	r.Register("safediv", &registry.Signature{
		Params: []types.DType{types.Real, types.Real},
		Result: types.Real,
		Eval: func(args []types.Value) (types.Value, error) {
			a, _ := args[0].AsFloat64()
			b, _ := args[1].AsFloat64()
			if b == 0 {
				return types.NewReal(0), nil
			}
			return types.NewReal(a / b), nil
		},
	})

	r.Register("floor", &registry.Signature{
		Params: []types.DType{types.Real}, Result: types.Real,
		Eval: func(args []types.Value) (types.Value, error) { f, _ := args[0].AsFloat64(); return types.NewReal(math.Floor(f)), nil },
	})
	r.Register("ceil", &registry.Signature{
		Params: []types.DType{types.Real}, Result: types.Real,
		Eval: func(args []types.Value) (types.Value, error) { f, _ := args[0].AsFloat64(); return types.NewReal(math.Ceil(f)), nil },
	})
	r.Register("sqrt", &registry.Signature{
		Params: []types.DType{types.Real}, Result: types.Real,
		Eval: func(args []types.Value) (types.Value, error) { f, _ := args[0].AsFloat64(); return types.NewReal(math.Sqrt(f)), nil },
	})
	r.Register("pow", &registry.Signature{
		Params: []types.DType{types.Real, types.Real}, Result: types.Real,
		Eval: func(args []types.Value) (types.Value, error) {
			a, _ := args[0].AsFloat64()
			b, _ := args[1].AsFloat64()
			return types.NewReal(math.Pow(a, b)), nil
		},
	})
	r.Register("sign", &registry.Signature{
		Params: []types.DType{types.Real}, Result: types.Integer,
		Eval: func(args []types.Value) (types.Value, error) {
			f, _ := args[0].AsFloat64()
			switch {
			case f > 0:
				return types.NewInteger(1), nil
			case f < 0:
				return types.NewInteger(-1), nil
			default:
				return types.NewInteger(0), nil
			}
		},
	})

	r.Register("coalesce", &registry.Signature{
		Params:   []types.DType{types.VarargOf(types.Object)},
		Result:   types.Object,
		NullSafe: true,
		Eval: func(args []types.Value) (types.Value, error) {
			for _, a := range args {
				if !a.IsNull() {
					return a, nil
				}
			}
			return types.Nil, nil
		},
	})
	r.Register("nullif", &registry.Signature{
		Params: []types.DType{types.Object, types.Object},
		Result: types.Object,
		Eval: func(args []types.Value) (types.Value, error) {
			if types.Equal(args[0], args[1]) {
				return types.Nil, nil
			}
			return args[0], nil
		},
	})
}

func numericAbs(v types.Value) types.Value {
	switch v.Tag {
	case types.TagInteger:
		if v.I < 0 {
			return types.NewInteger(-v.I)
		}
		return v
	case types.TagReal:
		return types.NewReal(math.Abs(v.R))
	case types.TagDecimal:
		return types.NewDecimal(v.Dec.Abs())
	default:
		return v
	}
}

func numericRound(v types.Value, digits int32) types.Value {
	switch v.Tag {
	case types.TagDecimal:
		return types.NewDecimal(v.Dec.Round(digits))
	default:
		f, _ := v.AsFloat64()
		d := decimal.NewFromFloat(f).Round(digits)
		out, _ := d.Float64()
		return types.NewReal(out)
	}
}
