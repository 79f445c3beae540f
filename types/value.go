package types

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Duration models a calendar+clock interval: months (years/months folded in)
// plus a sub-month clock component in milliseconds. Keeping the two apart
// lets DateTime arithmetic add "1 month" without pretending a month is a
// fixed number of milliseconds.
type DurationVal struct {
	Months int64
	Millis int64
}

// DateTime is an instant with an optional zone. Equality and ordering are by
// epoch-ms.
type DateTimeVal struct {
	T    time.Time
	Zone string // "" means the instant carries no explicit zone annotation
}

func (d DateTimeVal) EpochMillis() int64 {
	return d.T.UnixMilli()
}

// Value is PeaQL's dynamically tagged value. Exactly one of the typed fields
// is meaningful, selected by Tag. NaN and +/-Inf on Real are normalized to
// Null wherever a Value is constructed (see NewReal).
type Value struct {
	Tag  Tag
	I    int64
	R    float64
	Dec  decimal.Decimal
	B    bool
	S    string
	DT   DateTimeVal
	Dur  DurationVal
	List []Value
}

var Nil = Value{Tag: TagNull}

func NewInteger(i int64) Value  { return Value{Tag: TagInteger, I: i} }
func NewBoolean(b bool) Value   { return Value{Tag: TagBoolean, B: b} }
func NewString(s string) Value  { return Value{Tag: TagString, S: s} }
func NewDecimal(d decimal.Decimal) Value {
	return Value{Tag: TagDecimal, Dec: d}
}
func NewDateTime(dt DateTimeVal) Value { return Value{Tag: TagDateTime, DT: dt} }
func NewDuration(d DurationVal) Value  { return Value{Tag: TagDuration, Dur: d} }
func NewList(vs []Value) Value      { return Value{Tag: TagList, List: vs} }
func NewSet(vs []Value) Value       { return Value{Tag: TagSet, List: vs} }

// NewReal normalizes NaN/+-Inf to Null, keeping Null distinct from NaN/+-Inf
// on output.
func NewReal(r float64) Value {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Nil
	}
	return Value{Tag: TagReal, R: r}
}

func (v Value) IsNull() bool { return v.Tag == TagNull }

func (v Value) DType() DType {
	switch v.Tag {
	case TagList:
		if len(v.List) == 0 {
			return List(Object)
		}
		return List(v.List[0].DType())
	case TagSet:
		if len(v.List) == 0 {
			return Set(Object)
		}
		return Set(v.List[0].DType())
	default:
		return DType{Tag: v.Tag}
	}
}

// AsFloat64 returns a best-effort float64 view of a numeric value, used by
// the window engine's RANGE sort-key extraction and by aggregators that
// accumulate in float space.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Tag {
	case TagInteger:
		return float64(v.I), true
	case TagReal:
		return v.R, true
	case TagDecimal:
		f, _ := v.Dec.Float64()
		return f, true
	case TagBoolean:
		if v.B {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// AsDecimal returns a decimal.Decimal view of any numeric value, used
// whenever an aggregator or arithmetic op needs to accumulate without float
// error (e.g. avg/sum).
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	switch v.Tag {
	case TagInteger:
		return decimal.NewFromInt(v.I), true
	case TagReal:
		return decimal.NewFromFloat(v.R), true
	case TagDecimal:
		return v.Dec, true
	default:
		return decimal.Zero, false
	}
}

// Truthy implements SQL's WHERE-clause truthiness: NULL and FALSE are not
// truthy, everything else that resolves to a boolean is judged by its bool
// value, and non-boolean scalars are never truthy.
func (v Value) Truthy() bool {
	return v.Tag == TagBoolean && v.B
}

// Equal implements semantic Value equality: DateTime/Duration compare by
// epoch-ms/total, Decimal by numerical value, arrays elementwise.
func Equal(a, b Value) bool {
	if a.Tag == TagNull || b.Tag == TagNull {
		return a.Tag == TagNull && b.Tag == TagNull
	}
	switch {
	case IsNumber(DType{Tag: a.Tag}) && IsNumber(DType{Tag: b.Tag}):
		da, _ := a.AsDecimal()
		db, _ := b.AsDecimal()
		return da.Equal(db)
	case a.Tag == TagBoolean && b.Tag == TagBoolean:
		return a.B == b.B
	case a.Tag == TagString && b.Tag == TagString:
		return a.S == b.S
	case a.Tag == TagDateTime && b.Tag == TagDateTime:
		return a.DT.EpochMillis() == b.DT.EpochMillis()
	case a.Tag == TagDuration && b.Tag == TagDuration:
		return a.Dur.Months == b.Dur.Months && a.Dur.Millis == b.Dur.Millis
	case (a.Tag == TagList || a.Tag == TagSet) && a.Tag == b.Tag:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare returns -1/0/1 comparing a to b, and ok=false when the two values
// are not order-comparable (differing non-numeric types) or either is Null.
func Compare(a, b Value) (cmp int, ok bool) {
	if a.Tag == TagNull || b.Tag == TagNull {
		return 0, false
	}
	switch {
	case IsNumber(DType{Tag: a.Tag}) && IsNumber(DType{Tag: b.Tag}):
		da, _ := a.AsDecimal()
		db, _ := b.AsDecimal()
		return da.Cmp(db), true
	case a.Tag == TagString && b.Tag == TagString:
		return strings.Compare(a.S, b.S), true
	case a.Tag == TagBoolean && b.Tag == TagBoolean:
		if a.B == b.B {
			return 0, true
		}
		if !a.B && b.B {
			return -1, true
		}
		return 1, true
	case a.Tag == TagDateTime && b.Tag == TagDateTime:
		am, bm := a.DT.EpochMillis(), b.DT.EpochMillis()
		switch {
		case am < bm:
			return -1, true
		case am > bm:
			return 1, true
		default:
			return 0, true
		}
	case a.Tag == TagDuration && b.Tag == TagDuration:
		at := a.Dur.Months*30*86400000 + a.Dur.Millis
		bt := b.Dur.Months*30*86400000 + b.Dur.Millis
		switch {
		case at < bt:
			return -1, true
		case at > bt:
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

// SortKey32 projects a string onto a stable 32-bit integer. The window
// engine does not use it: its GROUPS and RANGE peer comparisons go through
// Equal and Compare on the order values themselves.
func SortKey32(s string) int64 {
	// FNV-1a, truncated to 32 bits.
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return int64(h)
}

func (v Value) String() string {
	switch v.Tag {
	case TagNull:
		return "NULL"
	case TagInteger:
		return fmt.Sprintf("%d", v.I)
	case TagReal:
		return fmt.Sprintf("%g", v.R)
	case TagDecimal:
		return v.Dec.String()
	case TagBoolean:
		return fmt.Sprintf("%t", v.B)
	case TagString:
		return v.S
	case TagDateTime:
		return v.DT.T.Format(time.RFC3339Nano)
	case TagDuration:
		return fmt.Sprintf("%dmo%dms", v.Dur.Months, v.Dur.Millis)
	case TagList, TagSet:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<unknown>"
	}
}

// SortValues sorts a slice of Values in place using Compare, Nulls last.
// Used by DISTINCT-then-sort aggregators (e.g. group_concat DISTINCT).
func SortValues(vs []Value) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].IsNull() {
			return false
		}
		if vs[j].IsNull() {
			return true
		}
		c, ok := Compare(vs[i], vs[j])
		return ok && c < 0
	})
}
