package builtins

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

func registerStrings(r *registry.Registry) {
	r.Register("length", &registry.Signature{
		Params: []types.DType{types.String},
		Result: types.Integer,
		Eval:   func(args []types.Value) (types.Value, error) { return types.NewInteger(int64(utf8.RuneCountInString(args[0].S))), nil },
	})
	r.Register("upper", &registry.Signature{
		Params: []types.DType{types.String},
		Result: types.String,
		Eval:   func(args []types.Value) (types.Value, error) { return types.NewString(strings.ToUpper(args[0].S)), nil },
	})
	r.Register("lower", &registry.Signature{
		Params: []types.DType{types.String},
		Result: types.String,
		Eval:   func(args []types.Value) (types.Value, error) { return types.NewString(strings.ToLower(args[0].S)), nil },
	})

	// substr(s, start) / substr(s, start, len), 1-based start.
	substrEval := func(args []types.Value) (types.Value, error) {
		runes := []rune(args[0].S)
		start := int(args[1].I) - 1
		if start < 0 {
			start = 0
		}
		if start > len(runes) {
			start = len(runes)
		}
		end := len(runes)
		if len(args) > 2 {
			l := int(args[2].I)
			if l < 0 {
				l = 0
			}
			if start+l < end {
				end = start + l
			}
		}
		return types.NewString(string(runes[start:end])), nil
	}
	r.Register("substr", &registry.Signature{Params: []types.DType{types.String, types.Integer}, Result: types.String, Eval: substrEval})
	r.Register("substr", &registry.Signature{Params: []types.DType{types.String, types.Integer, types.Integer}, Result: types.String, Eval: substrEval})

	r.Register("concat", &registry.Signature{
		Params: []types.DType{types.VarargOf(types.Object)},
		Result: types.String,
		NullSafe: true,
		Eval: func(args []types.Value) (types.Value, error) {
			var b strings.Builder
			for _, a := range args {
				if !a.IsNull() {
					b.WriteString(a.String())
				}
			}
			return types.NewString(b.String()), nil
		},
	})

	// maxwidth(s, n) truncates s to at most n runes.
	r.Register("maxwidth", &registry.Signature{
		Params: []types.DType{types.String, types.Integer},
		Result: types.String,
		Eval: func(args []types.Value) (types.Value, error) {
			runes := []rune(args[0].S)
			n := int(args[1].I)
			if n < 0 {
				n = 0
			}
			if len(runes) <= n {
				return args[0], nil
			}
			return types.NewString(string(runes[:n])), nil
		},
	})

	// splitcomp(s, sep, index) splits s on sep and returns the 1-based index'th
	// component, or Null if index is out of range.
	r.Register("splitcomp", &registry.Signature{
		Params: []types.DType{types.String, types.String, types.Integer},
		Result: types.String,
		Eval: func(args []types.Value) (types.Value, error) {
			parts := strings.Split(args[0].S, args[1].S)
			idx := int(args[2].I) - 1
			if idx < 0 || idx >= len(parts) {
				return types.Nil, nil
			}
			return types.NewString(parts[idx]), nil
		},
	})

	// grep(s, pattern) reports whether the regex pattern matches anywhere in
	// s; grepn(s, pattern) counts non-overlapping matches.
	r.Register("grep", &registry.Signature{
		Params: []types.DType{types.String, types.String},
		Result: types.Boolean,
		Eval: func(args []types.Value) (types.Value, error) {
			re, err := regexp.Compile(args[1].S)
			if err != nil {
				return types.Nil, nil
			}
			return types.NewBoolean(re.MatchString(args[0].S)), nil
		},
	})
	r.Register("grepn", &registry.Signature{
		Params: []types.DType{types.String, types.String},
		Result: types.Integer,
		Eval: func(args []types.Value) (types.Value, error) {
			re, err := regexp.Compile(args[1].S)
			if err != nil {
				return types.Nil, nil
			}
			return types.NewInteger(int64(len(re.FindAllStringIndex(args[0].S, -1)))), nil
		},
	})

	// subst(s, pattern, replacement) replaces every regex match with
	// replacement (which may reference capture groups as $1, $2, ...).
	r.Register("subst", &registry.Signature{
		Params: []types.DType{types.String, types.String, types.String},
		Result: types.String,
		Eval: func(args []types.Value) (types.Value, error) {
			re, err := regexp.Compile(args[1].S)
			if err != nil {
				return types.Nil, nil
			}
			return types.NewString(re.ReplaceAllString(args[0].S, args[2].S)), nil
		},
	})

	// findFirst(s, pattern) returns the 1-based rune offset of the first
	// regex match, or 0 if there is none.
	r.Register("findFirst", &registry.Signature{
		Params: []types.DType{types.String, types.String},
		Result: types.Integer,
		Eval: func(args []types.Value) (types.Value, error) {
			re, err := regexp.Compile(args[1].S)
			if err != nil {
				return types.Nil, nil
			}
			loc := re.FindStringIndex(args[0].S)
			if loc == nil {
				return types.NewInteger(0), nil
			}
			return types.NewInteger(int64(utf8.RuneCountInString(args[0].S[:loc[0]]) + 1)), nil
		},
	})

	// joinstr(list, sep) joins a list of strings with sep.
	r.Register("joinstr", &registry.Signature{
		Params: []types.DType{types.List(types.String), types.String},
		Result: types.String,
		Eval: func(args []types.Value) (types.Value, error) {
			parts := make([]string, len(args[0].List))
			for i, v := range args[0].List {
				parts[i] = v.S
			}
			return types.NewString(strings.Join(parts, args[1].S)), nil
		},
	})

	registerFormat(r)
	registerToChar(r)
}

// registerFormat wires printf-like `format(fmt, args...)` supporting the
// `%[flag][width].[prec][dfsx]` verb subset.
func registerFormat(r *registry.Registry) {
	r.Register("format", &registry.Signature{
		Params: []types.DType{types.String, types.VarargOf(types.Object)},
		Result: types.String,
		Eval: func(args []types.Value) (types.Value, error) {
			return types.NewString(applyFormat(args[0].S, args[1:])), nil
		},
	})
}

// applyFormat walks fmtStr scanning for %[flag][width][.prec]verb tokens and
// substitutes the next positional argument, converting to the Go fmt verb
// that produces equivalent output for d/f/s/x.
func applyFormat(fmtStr string, args []types.Value) string {
	var out strings.Builder
	argIdx := 0
	i := 0
	for i < len(fmtStr) {
		c := fmtStr[i]
		if c != '%' {
			out.WriteByte(c)
			i++
			continue
		}
		start := i
		i++
		if i < len(fmtStr) && fmtStr[i] == '%' {
			out.WriteByte('%')
			i++
			continue
		}
		for i < len(fmtStr) && strings.ContainsRune("-+0 #", rune(fmtStr[i])) {
			i++
		}
		for i < len(fmtStr) && fmtStr[i] >= '0' && fmtStr[i] <= '9' {
			i++
		}
		if i < len(fmtStr) && fmtStr[i] == '.' {
			i++
			for i < len(fmtStr) && fmtStr[i] >= '0' && fmtStr[i] <= '9' {
				i++
			}
		}
		if i >= len(fmtStr) {
			out.WriteString(fmtStr[start:i])
			break
		}
		verb := fmtStr[i]
		spec := fmtStr[start : i+1]
		i++
		if argIdx >= len(args) {
			out.WriteString(spec)
			continue
		}
		v := args[argIdx]
		argIdx++
		switch verb {
		case 'd':
			iv, _ := types.CastInteger(v)
			out.WriteString(fmt.Sprintf(spec[:len(spec)-1]+"d", iv.I))
		case 'f':
			fv, _ := v.AsFloat64()
			out.WriteString(fmt.Sprintf(spec, fv))
		case 's':
			out.WriteString(fmt.Sprintf(spec, v.String()))
		case 'x':
			iv, _ := types.CastInteger(v)
			out.WriteString(fmt.Sprintf(spec, iv.I))
		default:
			out.WriteString(spec)
		}
	}
	return out.String()
}

// registerToChar wires `to_char(value, fmt)` over Decimal/number/DateTime/
// Duration.
func registerToChar(r *registry.Registry) {
	for _, t := range []types.DType{types.Integer, types.Real, types.Decimal, types.DateTime, types.Duration} {
		t := t
		r.Register("to_char", &registry.Signature{
			Params: []types.DType{t, types.String},
			Result: types.String,
			Eval: func(args []types.Value) (types.Value, error) {
				return types.NewString(toChar(args[0], args[1].S)), nil
			},
		})
	}
}

func toChar(v types.Value, layout string) string {
	switch v.Tag {
	case types.TagDateTime:
		return v.DT.T.Format(goTimeLayout(layout))
	case types.TagDuration:
		return fmt.Sprintf("%dmo%dms", v.Dur.Months, v.Dur.Millis)
	case types.TagDecimal:
		if prec, err := strconv.Atoi(strings.TrimPrefix(layout, ".")); err == nil {
			return v.Dec.StringFixed(int32(prec))
		}
		return v.Dec.String()
	default:
		f, _ := v.AsFloat64()
		if prec, err := strconv.Atoi(strings.TrimPrefix(layout, ".")); err == nil {
			return strconv.FormatFloat(f, 'f', prec, 64)
		}
		return v.String()
	}
}

// goTimeLayout translates a small set of SQL-ish datetime format tokens into
// Go's reference-time layout, covering the common cases (`YYYY-MM-DD`,
// `HH24:MI:SS`) without pulling in a full strftime implementation.
func goTimeLayout(layout string) string {
	repl := strings.NewReplacer(
		"YYYY", "2006", "MM", "01", "DD", "02",
		"HH24", "15", "MI", "04", "SS", "05",
	)
	return repl.Replace(layout)
}
