package builtins

import (
	"testing"

	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

func eval(t *testing.T, name string, args ...types.Value) types.Value {
	t.Helper()
	argTypes := make([]types.DType, len(args))
	for i, a := range args {
		argTypes[i] = a.DType()
	}
	sig, _, err := registry.Default.Lookup(name, argTypes)
	if err != nil {
		t.Fatalf("Lookup(%q) error: %v", name, err)
	}
	v, err := sig.Eval(args)
	if err != nil {
		t.Fatalf("Eval(%q) error: %v", name, err)
	}
	return v
}

func TestIntegerDivisionTruncatesTowardZero(t *testing.T) {
	v := eval(t, "/", types.NewInteger(-7), types.NewInteger(2))
	if v.I != -3 {
		t.Fatalf("-7/2 = %v, want -3", v.I)
	}
}

func TestDivisionByZeroYieldsNull(t *testing.T) {
	v := eval(t, "/", types.NewInteger(1), types.NewInteger(0))
	if !v.IsNull() {
		t.Fatalf("1/0 = %v, want null", v)
	}
}

func TestIntegerPlusRealPromotesToReal(t *testing.T) {
	v := eval(t, "+", types.NewInteger(1), types.NewReal(2.5))
	if v.Tag != types.TagReal || v.R != 3.5 {
		t.Fatalf("1+2.5 = %#v, want real 3.5", v)
	}
}

func TestNumberPlusStringConcatenates(t *testing.T) {
	v := eval(t, "+", types.NewInteger(5), types.NewString(" apples"))
	if v.S != "5 apples" {
		t.Fatalf("5 + ' apples' = %q", v.S)
	}
}

func TestComparisonAcrossDateTimeAndString(t *testing.T) {
	dt, err := types.ParseDateTime("2024-01-02", "")
	if err != nil {
		t.Fatal(err)
	}
	v := eval(t, "=", types.NewDateTime(dt), types.NewString("2024-01-02"))
	if !v.B {
		t.Fatalf("datetime = string comparison = %v, want true", v)
	}
}

func TestKleeneAndFalseDominatesNull(t *testing.T) {
	v := eval(t, "AND", types.NewBoolean(false), types.Nil)
	if v.IsNull() || v.B {
		t.Fatalf("false AND null = %v, want false", v)
	}
}

func TestKleeneOrTrueDominatesNull(t *testing.T) {
	v := eval(t, "OR", types.NewBoolean(true), types.Nil)
	if v.IsNull() || !v.B {
		t.Fatalf("true OR null = %v, want true", v)
	}
}

func TestInListWithNullReturnsNullWhenNoMatch(t *testing.T) {
	v := eval(t, "IN", types.NewInteger(3), types.NewList([]types.Value{types.NewInteger(1), types.Nil}))
	if !v.IsNull() {
		t.Fatalf("3 IN (1, NULL) = %v, want null", v)
	}
}

func TestInListFindsMatch(t *testing.T) {
	v := eval(t, "IN", types.NewInteger(1), types.NewList([]types.Value{types.NewInteger(1), types.Nil}))
	if v.IsNull() || !v.B {
		t.Fatalf("1 IN (1, NULL) = %v, want true", v)
	}
}

func TestCastIntegerFromString(t *testing.T) {
	v := eval(t, "integer", types.NewString("42"))
	if v.I != 42 {
		t.Fatalf("integer('42') = %v", v)
	}
}

func TestSafeDivReturnsZeroOnZeroDivisor(t *testing.T) {
	v := eval(t, "safediv", types.NewReal(10), types.NewReal(0))
	if v.IsNull() || v.R != 0 {
		t.Fatalf("safediv(10,0) = %v, want 0", v)
	}
}

func TestCountAggregatorEmptyGroupIsZero(t *testing.T) {
	factory, _, ok := registry.Default.LookupAggregate("count", nil)
	if !ok {
		t.Fatal("count aggregator not registered")
	}
	agg := factory(nil)
	if v := agg.Finalize(); v.I != 0 {
		t.Fatalf("count() over empty group = %v, want 0", v)
	}
}

func TestSumAggregatorEmptyGroupIsNull(t *testing.T) {
	factory, _, ok := registry.Default.LookupAggregate("sum", []types.DType{types.Integer})
	if !ok {
		t.Fatal("sum aggregator not registered")
	}
	agg := factory([]types.DType{types.Integer})
	if v := agg.Finalize(); !v.IsNull() {
		t.Fatalf("sum() over empty group = %v, want null", v)
	}
}

func TestCountDistinctExcludesNull(t *testing.T) {
	factory, _, _ := registry.Default.LookupAggregate("count", []types.DType{types.Integer})
	agg := factory([]types.DType{types.Integer})
	// Simulates the plan's DISTINCT decorator: dedupe first, then feed each
	// unique tuple once, the NULL one included; count(x) must skip it.
	for _, v := range []types.Value{types.NewInteger(1), types.NewInteger(2), types.NewInteger(3), types.Nil} {
		agg.Update([]types.Value{v})
	}
	if got := agg.Finalize(); got.I != 3 {
		t.Fatalf("count(distinct x) excluding null = %v, want 3", got)
	}
}

func TestGroupConcatJoinsWithSeparator(t *testing.T) {
	factory, _, _ := registry.Default.LookupAggregate("group_concat", []types.DType{types.String, types.String})
	agg := factory([]types.DType{types.String, types.String})
	agg.Update([]types.Value{types.NewString("a"), types.NewString(".")})
	agg.Update([]types.Value{types.NewString("b"), types.NewString(".")})
	if v := agg.Finalize(); v.S != "a.b" {
		t.Fatalf("group_concat = %q, want a.b", v.S)
	}
}

func TestRowNumberWindowFunc(t *testing.T) {
	factory, _, ok := registry.Default.LookupWindowFunc("row_number", nil)
	if !ok {
		t.Fatal("row_number not registered")
	}
	wf := factory(nil)
	if v := wf.Compute(nil, 2, 0, 3, 0, 0); v.I != 3 {
		t.Fatalf("row_number at idx 2 = %v, want 3", v)
	}
}

func TestLeadLooksAheadInPartitionOrder(t *testing.T) {
	factory, _, ok := registry.Default.LookupWindowFunc("lead", nil)
	if !ok {
		t.Fatal("lead not registered")
	}
	wf := factory(nil)
	rows := [][]types.Value{
		{types.NewInteger(10)},
		{types.NewInteger(20)},
		{types.NewInteger(30)},
	}
	v := wf.Compute(rows, 0, 0, 3, 0, 0)
	if v.I != 20 {
		t.Fatalf("lead at idx 0 = %v, want 20", v)
	}
	v = wf.Compute(rows, 2, 0, 3, 0, 0)
	if !v.IsNull() {
		t.Fatalf("lead past partition end = %v, want null", v)
	}
}
