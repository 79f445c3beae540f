package builtins

import (
	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// registerWindowFuncs wires the window-only functions: row_number, rank,
// dense_rank, first_value, last_value, nth_value, lead, lag. Each receives
// the whole partition's evaluated argument tuples (in ORDER BY order) plus
// the current row's resolved frame bounds and rank/dense-rank, computed by
// the plan package's window driver; these implementations only pick values
// out of that context.
func registerWindowFuncs(r *registry.Registry) {
	r.RegisterWindowFunc("row_number", func(argTypes []types.DType) registry.WindowFunc {
		return windowFuncOf(func(args [][]types.Value, idx, fs, fe, rank, dense int) types.Value {
			return types.NewInteger(int64(idx + 1))
		})
	}, func(argTypes []types.DType) types.DType { return types.Integer })

	r.RegisterWindowFunc("rank", func(argTypes []types.DType) registry.WindowFunc {
		return windowFuncOf(func(args [][]types.Value, idx, fs, fe, rank, dense int) types.Value {
			return types.NewInteger(int64(rank))
		})
	}, func(argTypes []types.DType) types.DType { return types.Integer })

	r.RegisterWindowFunc("dense_rank", func(argTypes []types.DType) registry.WindowFunc {
		return windowFuncOf(func(args [][]types.Value, idx, fs, fe, rank, dense int) types.Value {
			return types.NewInteger(int64(dense))
		})
	}, func(argTypes []types.DType) types.DType { return types.Integer })

	r.RegisterWindowFunc("first_value", func(argTypes []types.DType) registry.WindowFunc {
		return windowFuncOf(func(args [][]types.Value, idx, fs, fe, rank, dense int) types.Value {
			if fs >= fe || fs < 0 || fs >= len(args) {
				return types.Nil
			}
			return args[fs][0]
		})
	}, func(argTypes []types.DType) types.DType { return firstOr(argTypes, types.Object) })

	r.RegisterWindowFunc("last_value", func(argTypes []types.DType) registry.WindowFunc {
		return windowFuncOf(func(args [][]types.Value, idx, fs, fe, rank, dense int) types.Value {
			if fe <= fs || fe > len(args) {
				return types.Nil
			}
			return args[fe-1][0]
		})
	}, func(argTypes []types.DType) types.DType { return firstOr(argTypes, types.Object) })

	r.RegisterWindowFunc("nth_value", func(argTypes []types.DType) registry.WindowFunc {
		return windowFuncOf(func(args [][]types.Value, idx, fs, fe, rank, dense int) types.Value {
			if idx < 0 || idx >= len(args) || len(args[idx]) < 2 {
				return types.Nil
			}
			n := int(args[idx][1].I)
			pos := fs + n - 1
			if n <= 0 || pos < fs || pos >= fe || pos >= len(args) {
				return types.Nil
			}
			return args[pos][0]
		})
	}, func(argTypes []types.DType) types.DType { return firstOr(argTypes, types.Object) })

	r.RegisterWindowFunc("lead", func(argTypes []types.DType) registry.WindowFunc {
		return windowFuncOf(func(args [][]types.Value, idx, fs, fe, rank, dense int) types.Value {
			return leadLag(args, idx, 1)
		})
	}, func(argTypes []types.DType) types.DType { return firstOr(argTypes, types.Object) })

	r.RegisterWindowFunc("lag", func(argTypes []types.DType) registry.WindowFunc {
		return windowFuncOf(func(args [][]types.Value, idx, fs, fe, rank, dense int) types.Value {
			return leadLag(args, idx, -1)
		})
	}, func(argTypes []types.DType) types.DType { return firstOr(argTypes, types.Object) })
}

// leadLag looks off rows ahead (direction=1) or behind (direction=-1) of idx
// in partition order, ignoring the current frame (LEAD/LAG always see the
// whole partition, per spec's window function semantics). off defaults to 1
// and a default value defaults to Null when the call supplies fewer than 3
// arguments.
func leadLag(args [][]types.Value, idx, direction int) types.Value {
	off := int64(1)
	var def types.Value
	if idx >= 0 && idx < len(args) {
		if len(args[idx]) > 1 && !args[idx][1].IsNull() {
			off = args[idx][1].I
		}
		if len(args[idx]) > 2 {
			def = args[idx][2]
		} else {
			def = types.Nil
		}
	}
	target := idx + direction*int(off)
	if target < 0 || target >= len(args) || len(args[target]) == 0 {
		return def
	}
	return args[target][0]
}

// windowFuncFn adapts a plain function into a registry.WindowFunc.
type windowFuncFn func(args [][]types.Value, idx, frameStart, frameEnd, rank, denseRank int) types.Value

func (f windowFuncFn) Compute(args [][]types.Value, idx, fs, fe, rank, dense int) types.Value {
	return f(args, idx, fs, fe, rank, dense)
}

func windowFuncOf(f windowFuncFn) registry.WindowFunc { return f }
