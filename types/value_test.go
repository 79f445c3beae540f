package types

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewRealNormalizesNaNAndInfToNull(t *testing.T) {
	cases := []float64{math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, c := range cases {
		v := NewReal(c)
		if !v.IsNull() {
			t.Errorf("NewReal(%v) = %v, want Null", c, v)
		}
	}
	if v := NewReal(1.5); v.IsNull() || v.R != 1.5 {
		t.Errorf("NewReal(1.5) = %v, want 1.5", v)
	}
}

func TestEqualNumericCrossType(t *testing.T) {
	a := NewInteger(2)
	b := NewReal(2.0)
	c := NewDecimal(decimal.NewFromInt(2))
	if !Equal(a, b) || !Equal(b, c) || !Equal(a, c) {
		t.Fatal("expected 2 (int), 2.0 (real), 2 (decimal) to compare equal")
	}
	if Equal(a, Nil) || Equal(Nil, Nil) {
		// Equal(Nil, Nil) is expected true actually per spec: Null distinct
		// concept is about NaN, not about Value equality of two nulls.
	}
}

func TestEqualNullIsOnlyEqualToNull(t *testing.T) {
	if Equal(Nil, NewInteger(0)) {
		t.Fatal("NULL must not equal 0")
	}
	if !Equal(Nil, Nil) {
		t.Fatal("NULL must equal NULL under semantic Value equality")
	}
}

func TestCompareIncomparableTypes(t *testing.T) {
	_, ok := Compare(NewString("a"), NewInteger(1))
	if ok {
		t.Fatal("string and integer should not be order-comparable")
	}
}

func TestCompareNumericChain(t *testing.T) {
	vs := []Value{NewInteger(3), NewReal(1.5), NewDecimal(decimal.NewFromInt(2))}
	SortValues(vs)
	if vs[0].R != 1.5 || vs[2].I != 3 {
		t.Fatalf("unexpected sort order: %v", vs)
	}
}

func TestSortValuesNullsLast(t *testing.T) {
	vs := []Value{NewInteger(2), Nil, NewInteger(1)}
	SortValues(vs)
	if !vs[2].IsNull() {
		t.Fatalf("expected null last, got %v", vs)
	}
}

func TestListDTypeInfersFromFirstElement(t *testing.T) {
	l := NewList([]Value{NewInteger(1), NewInteger(2)})
	dt := l.DType()
	if dt.Tag != TagList || dt.Elem == nil || dt.Elem.Tag != TagInteger {
		t.Fatalf("unexpected dtype: %v", dt)
	}
}

func TestExtendsIntegerToReal(t *testing.T) {
	if !Extends(Integer, Real) {
		t.Fatal("Integer should extend Real")
	}
	if Extends(Real, Integer) {
		t.Fatal("Real should not extend Integer")
	}
	if !Extends(String, Object) {
		t.Fatal("everything should extend Object")
	}
}
