package builtins

import (
	"strings"
	"time"

	"github.com/peaql/peaql/registry"
	"github.com/peaql/peaql/types"
)

func registerTemporal(r *registry.Registry) {
	r.Register("now", &registry.Signature{
		Params: nil, Result: types.DateTime,
		Eval: func(args []types.Value) (types.Value, error) {
			return types.NewDateTime(types.DateTimeVal{T: time.Now()}), nil
		},
	})
	r.Register("today", &registry.Signature{
		Params: nil, Result: types.DateTime,
		Eval: func(args []types.Value) (types.Value, error) {
			n := time.Now()
			return types.NewDateTime(types.DateTimeVal{T: time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())}), nil
		},
	})

	dtField := func(name string, fn func(time.Time) types.Value) {
		r.Register(name, &registry.Signature{
			Params: []types.DType{types.DateTime},
			Result: types.Integer,
			Eval:   func(args []types.Value) (types.Value, error) { return fn(args[0].DT.T), nil },
		})
	}
	dtField("year", func(t time.Time) types.Value { return types.NewInteger(int64(t.Year())) })
	dtField("month", func(t time.Time) types.Value { return types.NewInteger(int64(t.Month())) })
	dtField("day", func(t time.Time) types.Value { return types.NewInteger(int64(t.Day())) })
	dtField("hour", func(t time.Time) types.Value { return types.NewInteger(int64(t.Hour())) })
	dtField("minute", func(t time.Time) types.Value { return types.NewInteger(int64(t.Minute())) })
	dtField("second", func(t time.Time) types.Value { return types.NewInteger(int64(t.Second())) })
	dtField("millisecond", func(t time.Time) types.Value { return types.NewInteger(int64(t.Nanosecond() / 1e6)) })
	dtField("weekday", func(t time.Time) types.Value { return types.NewInteger(int64(t.Weekday())) })
	dtField("quarter", func(t time.Time) types.Value { return types.NewInteger(int64(t.Month()-1)/3 + 1) })
	dtField("yearmonth", func(t time.Time) types.Value { return types.NewInteger(int64(t.Year())*100 + int64(t.Month())) })

	durField := func(name string, fn func(types.DurationVal) int64) {
		r.Register(name, &registry.Signature{
			Params: []types.DType{types.Duration}, Result: types.Integer,
			Eval: func(args []types.Value) (types.Value, error) { return types.NewInteger(fn(args[0].Dur)), nil },
		})
	}
	durField("years", func(d types.DurationVal) int64 { return d.Months / 12 })
	durField("months", func(d types.DurationVal) int64 { return d.Months })
	durField("days", func(d types.DurationVal) int64 { return d.Millis / 86400000 })
	durField("hours", func(d types.DurationVal) int64 { return d.Millis / 3600000 })
	durField("minutes", func(d types.DurationVal) int64 { return d.Millis / 60000 })
	durField("seconds", func(d types.DurationVal) int64 { return d.Millis / 1000 })
	durField("milliseconds", func(d types.DurationVal) int64 { return d.Millis })

	r.Register("date_diff", &registry.Signature{
		Params: []types.DType{types.DateTime, types.DateTime, types.VarargOf(types.String)},
		Result: types.Integer,
		Eval: func(args []types.Value) (types.Value, error) {
			unit := "day"
			if len(args) > 2 {
				unit = args[2].S
			}
			return types.NewInteger(dateDiff(args[0].DT.T, args[1].DT.T, unit)), nil
		},
	})
	r.Register("date_add", &registry.Signature{
		Params: []types.DType{types.DateTime, types.Integer, types.String},
		Result: types.DateTime,
		Eval: func(args []types.Value) (types.Value, error) {
			return types.NewDateTime(types.DateTimeVal{T: dateAdd(args[0].DT.T, args[1].I, args[2].S)}), nil
		},
	})
	r.Register("date_sub", &registry.Signature{
		Params: []types.DType{types.DateTime, types.Integer, types.String},
		Result: types.DateTime,
		Eval: func(args []types.Value) (types.Value, error) {
			return types.NewDateTime(types.DateTimeVal{T: dateAdd(args[0].DT.T, -args[1].I, args[2].S)}), nil
		},
	})

	truncSig := &registry.Signature{
		Params: []types.DType{types.DateTime, types.String},
		Result: types.DateTime,
		Eval: func(args []types.Value) (types.Value, error) {
			return types.NewDateTime(types.DateTimeVal{T: dateTrunc(args[0].DT.T, args[1].S)}), nil
		},
	}
	r.Register("date_trunc", truncSig)
	r.Register("date_start", truncSig)

	r.Register("date_end", &registry.Signature{
		Params: []types.DType{types.DateTime, types.String},
		Result: types.DateTime,
		Eval: func(args []types.Value) (types.Value, error) {
			start := dateTrunc(args[0].DT.T, args[1].S)
			next := dateAdd(start, 1, args[1].S)
			return types.NewDateTime(types.DateTimeVal{T: next.Add(-time.Millisecond)}), nil
		},
	})
	r.Register("date_trunc_end", &registry.Signature{
		Params: []types.DType{types.DateTime, types.String},
		Result: types.DateTime,
		Eval: func(args []types.Value) (types.Value, error) {
			start := dateTrunc(args[0].DT.T, args[1].S)
			next := dateAdd(start, 1, args[1].S)
			return types.NewDateTime(types.DateTimeVal{T: next.Add(-time.Millisecond)}), nil
		},
	})

	r.Register("date_part", &registry.Signature{
		Params: []types.DType{types.DateTime, types.String},
		Result: types.Integer,
		Eval: func(args []types.Value) (types.Value, error) {
			return types.NewInteger(datePart(args[0].DT.T, args[1].S)), nil
		},
	})

	// date_bin(interval, source, origin?) buckets source into fixed-width
	// bins of width `interval` (as a Duration) counted from origin (default
	// the Unix epoch), matching PostgreSQL's date_bin.
	r.Register("date_bin", &registry.Signature{
		Params: []types.DType{types.Duration, types.DateTime, types.VarargOf(types.DateTime)},
		Result: types.DateTime,
		Eval: func(args []types.Value) (types.Value, error) {
			origin := time.Unix(0, 0).UTC()
			if len(args) > 2 {
				origin = args[2].DT.T
			}
			width := timeDurationFromMillis(args[0].Dur.Millis)
			if width <= 0 {
				return types.Nil, nil
			}
			elapsed := args[1].DT.T.Sub(origin)
			bins := elapsed / width
			return types.NewDateTime(types.DateTimeVal{T: origin.Add(bins * width)}), nil
		},
	})

	r.Register("parse_date", &registry.Signature{
		Params: []types.DType{types.String, types.VarargOf(types.String)},
		Result: types.DateTime,
		Eval: func(args []types.Value) (types.Value, error) {
			layout := ""
			if len(args) > 1 {
				layout = goTimeLayout(args[1].S)
			}
			dt, err := types.ParseDateTime(args[0].S, layout)
			if err != nil {
				return types.Nil, nil
			}
			return types.NewDateTime(dt), nil
		},
	})
}

func dateAdd(t time.Time, amount int64, unit string) time.Time {
	switch strings.ToLower(unit) {
	case "year", "years":
		return t.AddDate(int(amount), 0, 0)
	case "month", "months":
		return t.AddDate(0, int(amount), 0)
	case "week", "weeks":
		return t.AddDate(0, 0, int(amount)*7)
	case "day", "days":
		return t.AddDate(0, 0, int(amount))
	case "hour", "hours":
		return t.Add(time.Duration(amount) * time.Hour)
	case "minute", "minutes":
		return t.Add(time.Duration(amount) * time.Minute)
	case "second", "seconds":
		return t.Add(time.Duration(amount) * time.Second)
	default:
		return t.AddDate(0, 0, int(amount))
	}
}

func dateDiff(a, b time.Time, unit string) int64 {
	d := a.Sub(b)
	switch strings.ToLower(unit) {
	case "year", "years":
		return int64(a.Year() - b.Year())
	case "month", "months":
		return int64((a.Year()-b.Year())*12 + int(a.Month()) - int(b.Month()))
	case "week", "weeks":
		return int64(d / (7 * 24 * time.Hour))
	case "hour", "hours":
		return int64(d / time.Hour)
	case "minute", "minutes":
		return int64(d / time.Minute)
	case "second", "seconds":
		return int64(d / time.Second)
	default:
		return int64(d / (24 * time.Hour))
	}
}

func dateTrunc(t time.Time, unit string) time.Time {
	switch strings.ToLower(unit) {
	case "year":
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	case "quarter":
		q := (int(t.Month()-1)/3)*3 + 1
		return time.Date(t.Year(), time.Month(q), 1, 0, 0, 0, 0, t.Location())
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case "week":
		offset := (int(t.Weekday()) + 6) % 7
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return d.AddDate(0, 0, -offset)
	case "day":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case "hour":
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case "minute":
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

func datePart(t time.Time, unit string) int64 {
	switch strings.ToLower(unit) {
	case "year":
		return int64(t.Year())
	case "quarter":
		return int64(t.Month()-1)/3 + 1
	case "month":
		return int64(t.Month())
	case "day":
		return int64(t.Day())
	case "hour":
		return int64(t.Hour())
	case "minute":
		return int64(t.Minute())
	case "second":
		return int64(t.Second())
	case "dow", "weekday":
		return int64(t.Weekday())
	case "doy":
		return int64(t.YearDay())
	default:
		return 0
	}
}
