package compiler

import (
	"fmt"
	"math"

	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/errs"
	"github.com/peaql/peaql/plan"
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// compileWindowCall lowers an OVER(...) call site into a plan.WindowSlot
// registered with ec.wins, returning the SlotRef a mixed target re-resolves
// once window finalization has run.
func (c *Compiler) compileWindowCall(n *ast.FuncCall, ec *exprCtx) (plan.Node, error) {
	if ec.wins == nil {
		return nil, &errs.CompileError{Node: n.Name, Message: "window function not allowed here"}
	}
	if n.Filter != nil {
		return nil, &errs.CompileError{Node: n.Name, Message: "FILTER is not supported on a window function call"}
	}

	spec, err := c.resolveWindowSpec(n.Over, ec)
	if err != nil {
		return nil, err
	}

	// PARTITION BY / ORDER BY / the call's own args resolve against the
	// enclosing SELECT's FROM and target aliases, but never nest their own
	// aggregate or window calls.
	winEc := &exprCtx{sc: ec.sc, params: ec.params, aliases: ec.aliases}

	partition := make([]plan.Node, len(spec.PartitionBy))
	for i, e := range spec.PartitionBy {
		node, err := c.compileExpr(e, winEc)
		if err != nil {
			return nil, err
		}
		partition[i] = node
	}

	orderBy, err := c.compileOrderKeys(spec.OrderBy, nil, winEc)
	if err != nil {
		return nil, err
	}

	frame, err := c.compileFrame(spec.Frame, orderBy)
	if err != nil {
		return nil, err
	}

	args, argTypes, err := c.compileCallArgs(n.Args, winEc)
	if err != nil {
		return nil, err
	}

	slot := plan.WindowSlot{
		PartitionBy: partition,
		OrderBy:     orderBy,
		Frame:       frame,
		Args:        args,
		ArgTypes:    argTypes,
		Distinct:    n.Distinct,
	}

	var resType types.DType
	if factory, rt, ok := registry.Default.LookupWindowFunc(n.Name, argTypes); ok {
		slot.Func = factory
		resType = rt
	} else if factory, rt, ok := registry.Default.LookupAggregate(n.Name, argTypes); ok {
		slot.AggFactory = factory
		resType = rt
	} else {
		return nil, &errs.NotSupportedError{Name: n.Name, Signature: renderTypes(argTypes)}
	}

	handle := ec.wins.allocate(slot)
	return plan.WindowSlotRef(handle, resType), nil
}

// resolveWindowSpec merges an inline `OVER (w ...)` extension onto its named
// base window, letting only the fields the inline spec actually sets
// override the base. A base window is assumed not to itself extend another
// one.
func (c *Compiler) resolveWindowSpec(spec *ast.WindowSpec, ec *exprCtx) (*ast.WindowSpec, error) {
	if spec.BaseName == "" {
		return spec, nil
	}
	base, ok := ec.namedWindows[spec.BaseName]
	if !ok {
		return nil, &errs.CompileError{Node: spec.BaseName, Message: fmt.Sprintf("unknown window %q", spec.BaseName)}
	}
	merged := *base
	if len(spec.PartitionBy) > 0 {
		merged.PartitionBy = spec.PartitionBy
	}
	if len(spec.OrderBy) > 0 {
		merged.OrderBy = spec.OrderBy
	}
	if spec.Frame.HasFrame {
		merged.Frame = spec.Frame
	}
	return &merged, nil
}

// compileOrderKeys compiles a plain or window ORDER BY list, resolving the
// PostgreSQL-style default null placement (NULLS LAST for ASC, NULLS FIRST
// for DESC) before building each plan.OrderSpec. targetNodes is the
// already-compiled top-level SELECT target list for positional references;
// nil rejects a positional key (a window's own ORDER BY has no target list
// to index into).
func (c *Compiler) compileOrderKeys(keys []ast.OrderKey, targetNodes []plan.Node, ec *exprCtx) ([]plan.OrderSpec, error) {
	out := make([]plan.OrderSpec, len(keys))
	for i, k := range keys {
		node, err := c.resolveKeyNode(k.Index, k.Expr, targetNodes, ec)
		if err != nil {
			return nil, err
		}
		nullsFirst := k.Desc
		if k.NullsFirst != nil {
			nullsFirst = *k.NullsFirst
		}
		out[i] = plan.OrderSpec{Node: node, Desc: k.Desc, NullsFirst: nullsFirst}
	}
	return out, nil
}

// resolveKeyNode implements the shared "positive 1-based index OR
// expression" rule used by GROUP BY, ORDER BY, and PIVOT BY. targetNodes
// nil means positional references are not valid in this context.
func (c *Compiler) resolveKeyNode(index int, expr ast.Expr, targetNodes []plan.Node, ec *exprCtx) (plan.Node, error) {
	if index > 0 {
		if targetNodes == nil {
			return nil, &errs.CompileError{Message: "a positional reference is only valid in a top-level SELECT's GROUP/ORDER/PIVOT BY"}
		}
		if index > len(targetNodes) {
			return nil, &errs.CompileError{Message: fmt.Sprintf("position %d is out of range for %d selected columns", index, len(targetNodes))}
		}
		return targetNodes[index-1], nil
	}
	return c.compileExpr(expr, ec)
}

func frameBoundHasOffset(b plan.FrameBound) bool {
	return !b.Unbounded && !b.Current
}

// compileFrame lowers a window's frame clause, filling the default when
// none was written: RANGE UNBOUNDED PRECEDING..CURRENT ROW when an ORDER BY
// is present, else ROWS covering the whole partition.
func (c *Compiler) compileFrame(f ast.Frame, orderBy []plan.OrderSpec) (plan.Frame, error) {
	if !f.HasFrame {
		if len(orderBy) > 0 {
			return plan.Frame{
				Type:      plan.FrameRange,
				Preceding: plan.FrameBound{Unbounded: true},
				Following: plan.FrameBound{Current: true},
			}, nil
		}
		return plan.Frame{
			Type:      plan.FrameRows,
			Preceding: plan.FrameBound{Unbounded: true},
			Following: plan.FrameBound{Unbounded: true},
		}, nil
	}

	preceding, err := c.compileFrameBound(f.Preceding)
	if err != nil {
		return plan.Frame{}, err
	}
	following, err := c.compileFrameBound(f.Following)
	if err != nil {
		return plan.Frame{}, err
	}

	ft := plan.FrameType(f.Type)
	if ft == plan.FrameRange && (frameBoundHasOffset(preceding) || frameBoundHasOffset(following)) {
		if len(orderBy) != 1 {
			return plan.Frame{}, &errs.CompileError{Message: "RANGE with a numeric offset requires exactly one ORDER BY column"}
		}
		switch orderBy[0].Node.Type().Tag {
		case types.TagInteger, types.TagReal, types.TagDecimal:
		default:
			return plan.Frame{}, &errs.CompileError{
				Message: fmt.Sprintf("RANGE with offset PRECEDING/FOLLOWING is not supported for column type %s", orderBy[0].Node.Type()),
			}
		}
	}

	return plan.Frame{
		Type:      ft,
		Preceding: preceding,
		Following: following,
		Exclude:   plan.FrameExclude(f.Exclude),
	}, nil
}

// compileFrameBound resolves one PRECEDING/FOLLOWING bound. The parser
// stores a PRECEDING offset negated (UnaryExpr{Op:"-", ...}) and a FOLLOWING
// offset bare, so the constant's magnitude alone (never its sign) carries
// the value plan.FrameBound.Offset needs; direction is implied entirely by
// which struct field it's stored under.
func (c *Compiler) compileFrameBound(b ast.FrameBound) (plan.FrameBound, error) {
	if b.Unbounded {
		return plan.FrameBound{Unbounded: true}, nil
	}
	if b.Current {
		return plan.FrameBound{Current: true}, nil
	}
	node, err := c.compileExpr(b.Offset, &exprCtx{})
	if err != nil {
		return plan.FrameBound{}, err
	}
	v, err := node.Eval(catalog.Row{})
	if err != nil {
		return plan.FrameBound{}, err
	}
	mag, ok := v.AsFloat64()
	if !ok {
		return plan.FrameBound{}, &errs.CompileError{Message: "window frame offset must be a constant number"}
	}
	return plan.FrameBound{Offset: math.Abs(mag)}, nil
}
