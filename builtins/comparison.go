package builtins

import (
	"regexp"
	"strings"

	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

// registerComparison wires `= != < <= > >=` across the numeric cross-product
// plus DateTime<->String/Number and Duration<->String/Number coercions (spec
// §4.6). Each yields a 3-valued boolean by returning Null when the operands
// aren't order/equality comparable; the registry's null short-circuit
// already handles a literal Null operand before Eval runs.
func registerComparison(r *registry.Registry) {
	ops := []struct {
		name string
		eq   bool
		lt   bool
		le   bool
		gt   bool
		ge   bool
		ne   bool
	}{
		{"=", true, false, false, false, false, false},
		{"!=", false, false, false, false, false, true},
		{"<", false, true, false, false, false, false},
		{"<=", false, false, true, false, false, false},
		{">", false, false, false, true, false, false},
		{">=", false, false, false, false, true, false},
	}
	coercible := []types.DType{types.Integer, types.Real, types.Decimal, types.Boolean, types.String, types.DateTime, types.Duration}

	for _, op := range ops {
		op := op
		for _, a := range coercible {
			for _, b := range coercible {
				a, b := a, b
				r.Register(op.name, &registry.Signature{
					Params: []types.DType{a, b},
					Result: types.Boolean,
					Eval: func(args []types.Value) (types.Value, error) {
						return compareOp(args[0], args[1], op.eq, op.ne, op.lt, op.le, op.gt, op.ge)
					},
				})
			}
		}
	}
}

// compareOp coerces DateTime/Duration<->String/Number pairs before Compare.
func compareOp(a, b types.Value, eq, ne, lt, le, gt, ge bool) (types.Value, error) {
	a, b = coerceForCompare(a, b)
	if eq || ne {
		equal := types.Equal(a, b)
		if ne {
			equal = !equal
		}
		return types.NewBoolean(equal), nil
	}
	cmp, ok := types.Compare(a, b)
	if !ok {
		return types.Nil, nil
	}
	switch {
	case lt:
		return types.NewBoolean(cmp < 0), nil
	case le:
		return types.NewBoolean(cmp <= 0), nil
	case gt:
		return types.NewBoolean(cmp > 0), nil
	case ge:
		return types.NewBoolean(cmp >= 0), nil
	}
	return types.Nil, nil
}

func coerceForCompare(a, b types.Value) (types.Value, types.Value) {
	if a.Tag == types.TagDateTime && b.Tag != types.TagDateTime {
		if v, ok := types.CastDateTime(b); ok {
			b = v
		}
	}
	if b.Tag == types.TagDateTime && a.Tag != types.TagDateTime {
		if v, ok := types.CastDateTime(a); ok {
			a = v
		}
	}
	if a.Tag == types.TagDuration && b.Tag != types.TagDuration {
		if v, ok := types.CastDuration(b); ok {
			b = v
		}
	}
	if b.Tag == types.TagDuration && a.Tag != types.TagDuration {
		if v, ok := types.CastDuration(a); ok {
			a = v
		}
	}
	return a, b
}

// registerPattern wires POSIX-style regex match operators. `*` forms are
// case-insensitive; `?`-prefixed forms accept an embedded
// `(?flags)` prefix in the pattern and swap operand direction (pattern on
// the left, subject on the right).
func registerPattern(r *registry.Registry) {
	register := func(name string, negate, ci, swapped bool) {
		r.Register(name, &registry.Signature{
			Params: []types.DType{types.String, types.String},
			Result: types.Boolean,
			Eval: func(args []types.Value) (types.Value, error) {
				subject, pattern := args[0].S, args[1].S
				if swapped {
					pattern, subject = args[0].S, args[1].S
				}
				matched, err := regexMatch(pattern, subject, ci)
				if err != nil {
					return types.Nil, nil
				}
				if negate {
					matched = !matched
				}
				return types.NewBoolean(matched), nil
			},
		})
	}
	register("~", false, false, false)
	register("~*", false, true, false)
	register("!~", true, false, false)
	register("!~*", true, true, false)
	register("?~", false, false, true)
	register("?~*", false, true, true)
}

func regexMatch(pattern, subject string, ci bool) (bool, error) {
	if ci && !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(subject), nil
}
