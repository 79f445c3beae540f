package builtins

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// registerAggregates wires count/sum/avg/min/max/first/last/group_concat/
// array_agg. DISTINCT and FILTER are generic decorators applied by the plan
// package around whichever Aggregator these factories build. DISTINCT
// applies only at finalize time, materializing the group's argument tuples
// and deduping before Update() ever sees them; that naturally makes
// count(distinct x) report a cardinality without any special case here,
// since each distinct tuple then increments count exactly once.
func registerAggregates(r *registry.Registry) {
	r.RegisterAggregate("count", func(argTypes []types.DType) registry.Aggregator {
		return &countAggregator{star: len(argTypes) == 0}
	}, func(argTypes []types.DType) types.DType { return types.Integer })

	r.RegisterAggregate("sum", func(argTypes []types.DType) registry.Aggregator {
		return &sumAggregator{resultTag: sumResultTag(argTypes)}
	}, func(argTypes []types.DType) types.DType { return sumResultDType(argTypes) })

	r.RegisterAggregate("avg", func(argTypes []types.DType) registry.Aggregator {
		return &avgAggregator{}
	}, func(argTypes []types.DType) types.DType { return types.Decimal })

	r.RegisterAggregate("min", func(argTypes []types.DType) registry.Aggregator {
		return &extremeAggregator{wantMax: false}
	}, func(argTypes []types.DType) types.DType { return firstOr(argTypes, types.Object) })

	r.RegisterAggregate("max", func(argTypes []types.DType) registry.Aggregator {
		return &extremeAggregator{wantMax: true}
	}, func(argTypes []types.DType) types.DType { return firstOr(argTypes, types.Object) })

	r.RegisterAggregate("first", func(argTypes []types.DType) registry.Aggregator {
		return &firstLastAggregator{wantLast: false}
	}, func(argTypes []types.DType) types.DType { return firstOr(argTypes, types.Object) })

	r.RegisterAggregate("last", func(argTypes []types.DType) registry.Aggregator {
		return &firstLastAggregator{wantLast: true}
	}, func(argTypes []types.DType) types.DType { return firstOr(argTypes, types.Object) })

	r.RegisterAggregate("group_concat", func(argTypes []types.DType) registry.Aggregator {
		return &groupConcatAggregator{sep: ","}
	}, func(argTypes []types.DType) types.DType { return types.String })

	r.RegisterAggregate("array_agg", func(argTypes []types.DType) registry.Aggregator {
		return &arrayAggAggregator{}
	}, func(argTypes []types.DType) types.DType {
		return types.List(firstOr(argTypes, types.Object))
	})
}

func firstOr(argTypes []types.DType, fallback types.DType) types.DType {
	if len(argTypes) > 0 {
		return argTypes[0]
	}
	return fallback
}

func sumResultTag(argTypes []types.DType) types.Tag {
	if len(argTypes) == 0 {
		return types.TagInteger
	}
	return argTypes[0].Tag
}

func sumResultDType(argTypes []types.DType) types.DType {
	switch sumResultTag(argTypes) {
	case types.TagDecimal:
		return types.Decimal
	case types.TagReal:
		return types.Real
	default:
		return types.Integer
	}
}

// countAggregator implements count(*) (star=true, counts every Update call)
// and count(x) (counts calls whose argument is non-null).
type countAggregator struct {
	star bool
	n    int64
}

func (a *countAggregator) Update(args []types.Value) {
	if a.star || len(args) == 0 || !args[0].IsNull() {
		a.n++
	}
}

// count(*) over an empty input reports 0, not Null, unlike every other
// aggregator here.
func (a *countAggregator) Finalize() types.Value { return types.NewInteger(a.n) }

type sumAggregator struct {
	resultTag types.Tag
	acc       decimal.Decimal
	seen      bool
}

func (a *sumAggregator) Update(args []types.Value) {
	if len(args) == 0 || args[0].IsNull() {
		return
	}
	d, ok := args[0].AsDecimal()
	if !ok {
		return
	}
	a.acc = a.acc.Add(d)
	a.seen = true
}

func (a *sumAggregator) Finalize() types.Value {
	if !a.seen {
		return types.Nil
	}
	switch a.resultTag {
	case types.TagDecimal:
		return types.NewDecimal(a.acc)
	case types.TagReal:
		f, _ := a.acc.Float64()
		return types.NewReal(f)
	default:
		return types.NewInteger(a.acc.IntPart())
	}
}

type avgAggregator struct {
	acc   decimal.Decimal
	count int64
}

func (a *avgAggregator) Update(args []types.Value) {
	if len(args) == 0 || args[0].IsNull() {
		return
	}
	d, ok := args[0].AsDecimal()
	if !ok {
		return
	}
	a.acc = a.acc.Add(d)
	a.count++
}

func (a *avgAggregator) Finalize() types.Value {
	if a.count == 0 {
		return types.Nil
	}
	return types.NewDecimal(a.acc.Div(decimal.NewFromInt(a.count)))
}

type extremeAggregator struct {
	wantMax bool
	best    types.Value
	seen    bool
}

func (a *extremeAggregator) Update(args []types.Value) {
	if len(args) == 0 || args[0].IsNull() {
		return
	}
	if !a.seen {
		a.best = args[0]
		a.seen = true
		return
	}
	cmp, ok := types.Compare(args[0], a.best)
	if !ok {
		return
	}
	if (a.wantMax && cmp > 0) || (!a.wantMax && cmp < 0) {
		a.best = args[0]
	}
}

func (a *extremeAggregator) Finalize() types.Value {
	if !a.seen {
		return types.Nil
	}
	return a.best
}

// firstLastAggregator reports the value from the first/last row it saw,
// including a null value from that row (a group's "first row" is fixed by
// scan order regardless of that column's own nullness).
type firstLastAggregator struct {
	wantLast bool
	value    types.Value
	seen     bool
}

func (a *firstLastAggregator) Update(args []types.Value) {
	if len(args) == 0 {
		return
	}
	if !a.seen || a.wantLast {
		a.value = args[0]
		a.seen = true
	}
}

func (a *firstLastAggregator) Finalize() types.Value {
	if !a.seen {
		return types.Nil
	}
	return a.value
}

type groupConcatAggregator struct {
	sep      string
	sepKnown bool
	parts    []string
}

func (a *groupConcatAggregator) Update(args []types.Value) {
	if len(args) == 0 || args[0].IsNull() {
		return
	}
	if len(args) > 1 && !a.sepKnown {
		a.sep = args[1].S
		a.sepKnown = true
	}
	a.parts = append(a.parts, args[0].String())
}

func (a *groupConcatAggregator) Finalize() types.Value {
	if len(a.parts) == 0 {
		return types.Nil
	}
	return types.NewString(strings.Join(a.parts, a.sep))
}

type arrayAggAggregator struct {
	values []types.Value
}

func (a *arrayAggAggregator) Update(args []types.Value) {
	if len(args) == 0 {
		return
	}
	a.values = append(a.values, args[0])
}

func (a *arrayAggAggregator) Finalize() types.Value {
	if len(a.values) == 0 {
		return types.Nil
	}
	return types.NewList(a.values)
}
