package plan

import (
	"strings"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// AggregateSlot binds one SELECT-list aggregate call to a stable integer
// handle; SlotRef nodes read the finalized value back after group
// finalization writes it under aggSlotKey(Handle).
type AggregateSlot struct {
	Handle   int
	Args     []Node
	Filter   Node // FILTER (WHERE ...), nil if absent
	Distinct bool
	Factory  registry.AggregatorFactory
	ArgTypes []types.DType
}

func (s AggregateSlot) newInstance() registry.Aggregator {
	agg := s.Factory(s.ArgTypes)
	if s.Distinct {
		agg = &distinctAggregator{inner: agg, seen: make(map[string]bool)}
	}
	return agg
}

// distinctAggregator forwards Update only for argument tuples not already
// seen in this group, implementing DISTINCT's materialize-then-dedupe step
// without every aggregator needing its own dedupe logic.
type distinctAggregator struct {
	inner registry.Aggregator
	seen  map[string]bool
}

func (d *distinctAggregator) Update(args []types.Value) {
	key := tupleKey(args)
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.inner.Update(args)
}

func (d *distinctAggregator) Finalize() types.Value { return d.inner.Finalize() }

// tupleKey renders a value tuple into a comparable string, used for both
// DISTINCT dedup and GROUP BY/PARTITION BY bucketing so both share the same
// notion of "equal tuple" (type-tagged, since e.g. integer 1 and text "1"
// must never collide).
func tupleKey(vals []types.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		if v.IsNull() {
			parts[i] = "\x00N"
		} else {
			parts[i] = v.DType().String() + ":" + v.String()
		}
	}
	return strings.Join(parts, "\x1f")
}

// GroupSpec describes one SELECT's GROUP BY + aggregate execution.
type GroupSpec struct {
	Keys []Node
	Aggs []AggregateSlot
}

// groupResult is one finalized group: a representative base row (letting a
// mixed target re-resolve a raw column reference) plus the finalized
// aggregate values under their reserved slot keys.
type groupResult struct {
	row catalog.Row
}

// evalGroups partitions rows by Keys, updates every aggregate slot per
// contributing row (honoring FILTER and DISTINCT), and returns one finalized
// row per group. Group order follows first-seen order, which the spec
// treats as an implementation choice as long as group content matches (spec
// §8 "Universals": group-order invariance).
func evalGroups(rows []catalog.Row, g GroupSpec) ([]groupResult, error) {
	type bucket struct {
		row  catalog.Row
		aggs []registry.Aggregator
	}
	newBucket := func() *bucket {
		b := &bucket{aggs: make([]registry.Aggregator, len(g.Aggs))}
		for i, spec := range g.Aggs {
			b.aggs[i] = spec.newInstance()
		}
		return b
	}

	var order []string
	buckets := make(map[string]*bucket)

	if len(g.Keys) == 0 {
		// A single implicit group covers every row, including zero of them:
		// an aggregate query over an empty input still reports one row, with
		// count=0 and sum/avg/min/max/first/last=Null.
		b := newBucket()
		for i, row := range rows {
			if i == 0 {
				b.row = row
			}
			if err := updateAggs(b.aggs, g.Aggs, row); err != nil {
				return nil, err
			}
		}
		if b.row == nil {
			b.row = catalog.Row{}
		}
		buckets[""] = b
		order = []string{""}
	} else {
		for _, row := range rows {
			keyVals := make([]types.Value, len(g.Keys))
			for i, k := range g.Keys {
				v, err := k.Eval(row)
				if err != nil {
					return nil, err
				}
				keyVals[i] = v
			}
			key := tupleKey(keyVals)
			b, ok := buckets[key]
			if !ok {
				b = newBucket()
				b.row = row
				buckets[key] = b
				order = append(order, key)
			}
			if err := updateAggs(b.aggs, g.Aggs, row); err != nil {
				return nil, err
			}
		}
	}

	results := make([]groupResult, len(order))
	for i, key := range order {
		b := buckets[key]
		out := make(catalog.Row, len(b.row)+len(g.Aggs))
		for k, v := range b.row {
			out[k] = v
		}
		for i2, spec := range g.Aggs {
			out[aggSlotKey(spec.Handle)] = b.aggs[i2].Finalize()
		}
		results[i] = groupResult{row: out}
	}
	return results, nil
}

func updateAggs(aggs []registry.Aggregator, specs []AggregateSlot, row catalog.Row) error {
	for i, spec := range specs {
		if spec.Filter != nil {
			fv, err := spec.Filter.Eval(row)
			if err != nil {
				return err
			}
			if !fv.Truthy() {
				continue
			}
		}
		args := make([]types.Value, len(spec.Args))
		for j, a := range spec.Args {
			v, err := a.Eval(row)
			if err != nil {
				return err
			}
			args[j] = v
		}
		aggs[i].Update(args)
	}
	return nil
}
