package plan

import (
	"sort"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// FrameType/FrameExclude/FrameBound/Frame mirror ast.Frame's shape but with
// PRECEDING/FOLLOWING offsets already resolved to a float64 magnitude at
// compile time, since an offset is a constant expression evaluated once
// rather than a per-row one. Keeping plan's own copy rather than importing
// ast here keeps the evaluator ignorant of AST shapes entirely.
type FrameType int

const (
	FrameRows FrameType = iota
	FrameGroups
	FrameRange
)

type FrameExclude int

const (
	ExcludeNone FrameExclude = iota
	ExcludeCurrentRow
	ExcludeGroup
	ExcludeTies
)

type FrameBound struct {
	Unbounded bool
	Current   bool
	Offset    float64
}

type Frame struct {
	Type      FrameType
	Preceding FrameBound
	Following FrameBound
	Exclude   FrameExclude
}

// OrderSpec is one ORDER BY / window ORDER BY key: an expression plus sort
// direction and explicit null placement. The compiler resolves the
// PostgreSQL-style default of NULLS LAST for ASC / NULLS FIRST for DESC
// before this struct is built, so NullsFirst here is always explicit.
type OrderSpec struct {
	Node       Node
	Desc       bool
	NullsFirst bool
}

// WindowSlot binds one OVER(...) call to a stable handle SlotRef nodes read
// back after window finalization writes it under windowSlotKey(Handle).
// Exactly one of Func/AggFactory is set: window-only functions (row_number,
// rank, lead, lag, ...) implement registry.WindowFunc; an ordinary aggregate
// used as a window function (sum(x) OVER (...)) uses AggFactory instead,
// folding over each row's resolved frame.
type WindowSlot struct {
	Handle      int
	PartitionBy []Node
	OrderBy     []OrderSpec
	Frame       Frame
	Args        []Node
	ArgTypes    []types.DType
	Func        registry.WindowFuncFactory
	AggFactory  registry.AggregatorFactory
	Distinct    bool
}

// evalWindows runs every window slot over rows (already scanned/filtered,
// and grouped if the query also has a GROUP BY) and returns a copy with
// each slot's per-row result written under its reserved key.
func evalWindows(rows []catalog.Row, slots []WindowSlot) ([]catalog.Row, error) {
	if len(slots) == 0 {
		return rows, nil
	}
	out := make([]catalog.Row, len(rows))
	for i, r := range rows {
		cp := make(catalog.Row, len(r)+len(slots))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	for _, slot := range slots {
		if err := evalWindowSlot(rows, out, slot); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type partitionEntry struct {
	origIdx int
	row     catalog.Row
}

func evalWindowSlot(rows []catalog.Row, out []catalog.Row, slot WindowSlot) error {
	partitions := make(map[string][]partitionEntry)
	var order []string
	for i, row := range rows {
		keyVals := make([]types.Value, len(slot.PartitionBy))
		for j, p := range slot.PartitionBy {
			v, err := p.Eval(row)
			if err != nil {
				return err
			}
			keyVals[j] = v
		}
		key := tupleKey(keyVals)
		if _, ok := partitions[key]; !ok {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], partitionEntry{origIdx: i, row: row})
	}

	for _, key := range order {
		if err := evalPartition(partitions[key], out, slot); err != nil {
			return err
		}
	}
	return nil
}

func evalPartition(part []partitionEntry, out []catalog.Row, slot WindowSlot) error {
	n := len(part)
	orderVals := make([][]types.Value, n)
	argVals := make([][]types.Value, n)
	for i, e := range part {
		ov := make([]types.Value, len(slot.OrderBy))
		for j, o := range slot.OrderBy {
			v, err := o.Node.Eval(e.row)
			if err != nil {
				return err
			}
			ov[j] = v
		}
		orderVals[i] = ov
		av := make([]types.Value, len(slot.Args))
		for j, a := range slot.Args {
			v, err := a.Eval(e.row)
			if err != nil {
				return err
			}
			av[j] = v
		}
		argVals[i] = av
	}

	sortedPos := make([]int, n)
	for i := range sortedPos {
		sortedPos[i] = i
	}
	sort.SliceStable(sortedPos, func(a, b int) bool {
		return orderLess(orderVals[sortedPos[a]], orderVals[sortedPos[b]], slot.OrderBy)
	})

	sortedOrderVals := make([][]types.Value, n)
	sortedArgVals := make([][]types.Value, n)
	sortedOrig := make([]int, n)
	for pos, localIdx := range sortedPos {
		sortedOrderVals[pos] = orderVals[localIdx]
		sortedArgVals[pos] = argVals[localIdx]
		sortedOrig[pos] = part[localIdx].origIdx
	}

	peerOf := make([]int, n)
	var groupStart []int
	rank := make([]int, n)
	denseRank := make([]int, n)
	curGroup := -1
	for pos := 0; pos < n; pos++ {
		if pos == 0 || !orderEqual(sortedOrderVals[pos], sortedOrderVals[pos-1]) {
			curGroup++
			groupStart = append(groupStart, pos)
		}
		peerOf[pos] = curGroup
		rank[pos] = groupStart[curGroup] + 1
		denseRank[pos] = curGroup + 1
	}
	groupEnd := make([]int, len(groupStart))
	for g := range groupStart {
		if g+1 < len(groupStart) {
			groupEnd[g] = groupStart[g+1]
		} else {
			groupEnd[g] = n
		}
	}

	for pos := 0; pos < n; pos++ {
		start, end := frameBounds(pos, n, peerOf, groupStart, groupEnd, sortedOrderVals, slot.Frame)
		start, end, skip := applyExclude(pos, start, end, peerOf, groupStart, groupEnd, slot.Frame.Exclude)

		var result types.Value
		if slot.Func != nil {
			wf := slot.Func(slot.ArgTypes)
			result = wf.Compute(sortedArgVals, pos, start, end, rank[pos], denseRank[pos])
		} else {
			agg := slot.AggFactory(slot.ArgTypes)
			if slot.Distinct {
				agg = &distinctAggregator{inner: agg, seen: make(map[string]bool)}
			}
			for k := start; k < end; k++ {
				if k == skip {
					continue
				}
				agg.Update(sortedArgVals[k])
			}
			result = agg.Finalize()
		}
		out[sortedOrig[pos]][windowSlotKey(slot.Handle)] = result
	}
	return nil
}

func orderLess(a, b []types.Value, specs []OrderSpec) bool {
	for i, spec := range specs {
		c := compareOrderValue(a[i], b[i], spec)
		if c != 0 {
			return c < 0
		}
	}
	return false
}

func orderEqual(a, b []types.Value) bool {
	for i := range a {
		if !types.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func compareOrderValue(a, b types.Value, spec OrderSpec) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		if spec.NullsFirst {
			return -1
		}
		return 1
	}
	if b.IsNull() {
		if spec.NullsFirst {
			return 1
		}
		return -1
	}
	c, ok := types.Compare(a, b)
	if !ok {
		return 0
	}
	if spec.Desc {
		return -c
	}
	return c
}

// frameBounds resolves a row's frame to [start, end) among the partition's
// sorted rows. end is exclusive, matching registry.WindowFunc.Compute's
// contract.
func frameBounds(pos, n int, peerOf []int, groupStart, groupEnd []int, orderVals [][]types.Value, frame Frame) (start, end int) {
	start = resolveBound(frame.Preceding, true, pos, n, peerOf, groupStart, groupEnd, orderVals, frame.Type)
	end = resolveBound(frame.Following, false, pos, n, peerOf, groupStart, groupEnd, orderVals, frame.Type)
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return
}

func resolveBound(b FrameBound, preceding bool, pos, n int, peerOf []int, groupStart, groupEnd []int, orderVals [][]types.Value, ft FrameType) int {
	if b.Unbounded {
		if preceding {
			return 0
		}
		return n
	}
	if b.Current {
		switch ft {
		case FrameRows:
			if preceding {
				return pos
			}
			return pos + 1
		default: // Groups, or Range with no offset: the row's peer-group edge
			g := peerOf[pos]
			if preceding {
				return groupStart[g]
			}
			return groupEnd[g]
		}
	}

	switch ft {
	case FrameRows:
		offset := int(b.Offset)
		if preceding {
			return pos - offset
		}
		return pos + offset + 1
	case FrameGroups:
		offset := int(b.Offset)
		g := peerOf[pos]
		if preceding {
			target := g - offset
			if target < 0 {
				return 0
			}
			return groupStart[target]
		}
		target := g + offset
		if target >= len(groupStart) {
			return n
		}
		return groupEnd[target]
	default: // Range with a numeric offset: distance measured on the sole
		// ORDER BY column's value; the compiler rejects a text order
		// column here before plan-building ever sees it.
		cur, ok := orderVals[pos][0].AsFloat64()
		if !ok {
			return pos
		}
		if preceding {
			lo := cur - b.Offset
			idx := pos
			for idx > 0 {
				v, ok := orderVals[idx-1][0].AsFloat64()
				if !ok || v < lo {
					break
				}
				idx--
			}
			return idx
		}
		hi := cur + b.Offset
		idx := pos + 1
		for idx < n {
			v, ok := orderVals[idx][0].AsFloat64()
			if !ok || v > hi {
				break
			}
			idx++
		}
		return idx
	}
}

// applyExclude narrows a contiguous [start,end) frame per EXCLUDE, plus a
// single index within that range still to be masked out (-1 when none).
// ExcludeCurrentRow shrinks the range when the current row sits at an edge,
// but a row strictly interior to the frame (e.g. ROWS BETWEEN 1 PRECEDING
// AND 1 FOLLOWING at a middle row) can't be dropped by shrinking a
// contiguous range, so it's reported as the skip index instead. EXCLUDE
// GROUP/TIES against a frame that only partially overlaps the current row's
// peer group falls back to whichever contiguous sub-range removes the
// current row's side of the group; a frame where the current row sits
// strictly inside a wider group on both sides (rare in practice, it needs
// EXCLUDE combined with an interior offset frame) is left unexcluded rather
// than modeled as two disjoint ranges.
func applyExclude(pos, start, end int, peerOf []int, groupStart, groupEnd []int, excl FrameExclude) (int, int, int) {
	switch excl {
	case ExcludeCurrentRow:
		if pos == start {
			return start + 1, end, -1
		}
		if pos == end-1 {
			return start, end - 1, -1
		}
		if pos > start && pos < end-1 {
			return start, end, pos
		}
		return start, end, -1
	case ExcludeGroup:
		g := peerOf[pos]
		gs, ge := groupStart[g], groupEnd[g]
		switch {
		case gs <= start && ge >= end:
			return start, start, -1
		case gs <= start:
			return ge, end, -1
		case ge >= end:
			return start, gs, -1
		default:
			return start, end, -1
		}
	case ExcludeTies:
		g := peerOf[pos]
		gs, ge := groupStart[g], groupEnd[g]
		switch {
		case gs <= start && ge >= end:
			return pos, pos + 1, -1
		case gs <= start:
			return pos, end, -1
		case ge >= end:
			return start, pos + 1, -1
		default:
			return start, end, -1
		}
	default:
		return start, end, -1
	}
}
