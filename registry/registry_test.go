package registry

import (
	"testing"

	"github.com/peaql/peaql/types"
)

func TestLookupPicksExactOverOveObjectOverload(t *testing.T) {
	r := New()
	r.Register("f", &Signature{
		Params: []types.DType{types.Object},
		Result: types.String,
		Eval: func(args []types.Value) (types.Value, error) {
			return types.NewString("generic"), nil
		},
	})
	r.Register("f", &Signature{
		Params: []types.DType{types.Integer},
		Result: types.Integer,
		Eval: func(args []types.Value) (types.Value, error) {
			return types.NewInteger(1), nil
		},
	})

	sig, result, err := r.Lookup("f", []types.DType{types.Integer})
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if !result.Equal(types.Integer) {
		t.Fatalf("result = %v, want integer", result)
	}
	v, _ := sig.Eval(nil)
	if v.S != "" || v.I != 1 {
		t.Fatalf("picked wrong overload: %#v", v)
	}
}

func TestLookupIntegerExtendsReal(t *testing.T) {
	r := New()
	r.Register("plus", &Signature{
		Params: []types.DType{types.Real, types.Real},
		Result: types.Real,
		Eval: func(args []types.Value) (types.Value, error) {
			a, _ := args[0].AsFloat64()
			b, _ := args[1].AsFloat64()
			return types.NewReal(a + b), nil
		},
	})
	_, result, err := r.Lookup("plus", []types.DType{types.Integer, types.Integer})
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if !result.Equal(types.Real) {
		t.Fatalf("result = %v, want real", result)
	}
}

func TestLookupExplicitIntegerOutranksReal(t *testing.T) {
	r := New()
	r.Register("f", &Signature{
		Params: []types.DType{types.Real},
		Result: types.Real,
		Eval:   func(args []types.Value) (types.Value, error) { return types.Nil, nil },
	})
	r.Register("f", &Signature{
		Params: []types.DType{types.Integer},
		Result: types.Integer,
		Eval:   func(args []types.Value) (types.Value, error) { return types.Nil, nil },
	})
	_, result, err := r.Lookup("f", []types.DType{types.Integer})
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if !result.Equal(types.Integer) {
		t.Fatalf("result = %v, want the explicit integer overload to win", result)
	}
}

func TestLookupUnknownName(t *testing.T) {
	r := New()
	_, _, err := r.Lookup("nope", nil)
	if err == nil || !NotFound(err) {
		t.Fatalf("expected a NotFound error, got %v", err)
	}
}

func TestLookupNoMatchingOverload(t *testing.T) {
	r := New()
	r.Register("f", &Signature{
		Params: []types.DType{types.String},
		Result: types.String,
		Eval:   func(args []types.Value) (types.Value, error) { return types.Nil, nil },
	})
	_, _, err := r.Lookup("f", []types.DType{types.Boolean})
	if err == nil || NotFound(err) {
		t.Fatalf("expected a no-overload error distinct from NotFound, got %v", err)
	}
}

func TestVariadicSignatureMatchesTrailingArgs(t *testing.T) {
	r := New()
	r.Register("concat", &Signature{
		Params: []types.DType{types.VarargOf(types.String)},
		Result: types.String,
		Eval: func(args []types.Value) (types.Value, error) {
			out := ""
			for _, a := range args {
				out += a.S
			}
			return types.NewString(out), nil
		},
	})
	sig, _, err := r.Lookup("concat", []types.DType{types.String, types.String, types.String})
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	v, _ := sig.Eval([]types.Value{types.NewString("a"), types.NewString("b"), types.NewString("c")})
	if v.S != "abc" {
		t.Fatalf("concat = %q, want abc", v.S)
	}
}

func TestNullArgumentMatchesAnySignature(t *testing.T) {
	r := New()
	r.Register("f", &Signature{
		Params: []types.DType{types.Integer},
		Result: types.Integer,
		Eval:   func(args []types.Value) (types.Value, error) { return types.Nil, nil },
	})
	if _, _, err := r.Lookup("f", []types.DType{types.Null}); err != nil {
		t.Fatalf("Lookup with a null-typed argument should still find the signature: %v", err)
	}
}

func TestRegisterAggregateResultType(t *testing.T) {
	r := New()
	r.RegisterAggregate("sum", func(argTypes []types.DType) Aggregator {
		return nil
	}, func(argTypes []types.DType) types.DType {
		return argTypes[0]
	})
	if !r.HasAggregate("SUM") {
		t.Fatal("expected case-insensitive aggregate lookup")
	}
	factory, result, ok := r.LookupAggregate("sum", []types.DType{types.Decimal})
	if !ok || factory == nil {
		t.Fatal("expected sum aggregate to be found")
	}
	if !result.Equal(types.Decimal) {
		t.Fatalf("result = %v, want decimal", result)
	}
}

func TestRegisterCast(t *testing.T) {
	r := New()
	r.RegisterCast("integer", &Signature{
		Params: []types.DType{types.Object},
		Result: types.Integer,
		Eval:   func(args []types.Value) (types.Value, error) { return types.NewInteger(0), nil },
	})
	if _, ok := r.LookupCast("INTEGER"); !ok {
		t.Fatal("expected case-insensitive cast lookup")
	}
}
