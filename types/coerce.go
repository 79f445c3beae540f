package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order when parsing a string as a DateTime,
// covering SQL/ISO 8601 plus a handful of common human-readable formats.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"15:04:05",
}

// ParseDateTime parses s against dateLayouts in order, or a caller-supplied
// Go reference layout when fmtLayout is non-empty. Backs parse_date(str,fmt).
func ParseDateTime(s string, fmtLayout string) (DateTimeVal, error) {
	s = strings.TrimSpace(s)
	if fmtLayout != "" {
		t, err := time.Parse(fmtLayout, s)
		if err != nil {
			return DateTimeVal{}, fmt.Errorf("cannot parse %q as datetime with format %q: %w", s, fmtLayout, err)
		}
		return DateTimeVal{T: t}, nil
	}
	var lastErr error
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateTimeVal{T: t}, nil
		} else {
			lastErr = err
		}
	}
	return DateTimeVal{}, fmt.Errorf("cannot parse %q as datetime: %w", s, lastErr)
}

// ParseDuration parses an ISO-8601-ish duration ("PT1H30M", "P1Y2M3D") or a
// Go-style duration string ("90m") into a Duration.
func ParseDuration(s string) (DurationVal, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "P") {
		return parseISODuration(s)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return DurationVal{}, fmt.Errorf("cannot parse %q as duration: %w", s, err)
	}
	return DurationVal{Millis: d.Milliseconds()}, nil
}

func parseISODuration(s string) (DurationVal, error) {
	orig := s
	s = strings.TrimPrefix(s, "P")
	datePart, timePart, hasTime := strings.Cut(s, "T")
	var out DurationVal
	num := ""
	for _, r := range datePart {
		if r >= '0' && r <= '9' {
			num += string(r)
			continue
		}
		n, _ := strconv.ParseInt(num, 10, 64)
		num = ""
		switch r {
		case 'Y':
			out.Months += n * 12
		case 'M':
			out.Months += n
		case 'W':
			out.Millis += n * 7 * 86400000
		case 'D':
			out.Millis += n * 86400000
		default:
			return DurationVal{}, fmt.Errorf("cannot parse %q as duration", orig)
		}
	}
	if hasTime {
		num = ""
		for _, r := range timePart {
			if r >= '0' && r <= '9' || r == '.' {
				num += string(r)
				continue
			}
			f, _ := strconv.ParseFloat(num, 64)
			num = ""
			switch r {
			case 'H':
				out.Millis += int64(f * 3600000)
			case 'M':
				out.Millis += int64(f * 60000)
			case 'S':
				out.Millis += int64(f * 1000)
			default:
				return DurationVal{}, fmt.Errorf("cannot parse %q as duration", orig)
			}
		}
	}
	return out, nil
}

// CastNumber implements the `number`/`real` cast function.
func CastNumber(v Value) (Value, bool) {
	switch v.Tag {
	case TagInteger:
		return NewReal(float64(v.I)), true
	case TagReal:
		return v, true
	case TagDecimal:
		f, _ := v.Dec.Float64()
		return NewReal(f), true
	case TagBoolean:
		if v.B {
			return NewReal(1), true
		}
		return NewReal(0), true
	case TagString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.S), 64)
		if err != nil {
			return Nil, false
		}
		return NewReal(f), true
	default:
		return Nil, false
	}
}

// CastInteger implements the `int`/`integer` cast function.
func CastInteger(v Value) (Value, bool) {
	switch v.Tag {
	case TagInteger:
		return v, true
	case TagReal:
		return NewInteger(int64(v.R)), true
	case TagDecimal:
		return NewInteger(v.Dec.IntPart()), true
	case TagBoolean:
		if v.B {
			return NewInteger(1), true
		}
		return NewInteger(0), true
	case TagString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.S), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v.S), 64)
			if ferr != nil {
				return Nil, false
			}
			return NewInteger(int64(f)), true
		}
		return NewInteger(i), true
	default:
		return Nil, false
	}
}

// CastDecimal implements the `numeric`/`decimal` cast function.
func CastDecimal(v Value) (Value, bool) {
	switch v.Tag {
	case TagInteger:
		return NewDecimal(decimal.NewFromInt(v.I)), true
	case TagReal:
		return NewDecimal(decimal.NewFromFloat(v.R)), true
	case TagDecimal:
		return v, true
	case TagString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.S))
		if err != nil {
			return Nil, false
		}
		return NewDecimal(d), true
	default:
		return Nil, false
	}
}

// CastBoolean implements the `boolean` cast function.
func CastBoolean(v Value) (Value, bool) {
	switch v.Tag {
	case TagBoolean:
		return v, true
	case TagInteger:
		return NewBoolean(v.I != 0), true
	case TagReal:
		return NewBoolean(v.R != 0), true
	case TagDecimal:
		return NewBoolean(!v.Dec.IsZero()), true
	case TagString:
		switch strings.ToLower(strings.TrimSpace(v.S)) {
		case "true", "t", "1", "yes":
			return NewBoolean(true), true
		case "false", "f", "0", "no":
			return NewBoolean(false), true
		default:
			return Nil, false
		}
	default:
		return Nil, false
	}
}

// CastString implements the `text`/`string` cast function.
func CastString(v Value) (Value, bool) {
	if v.IsNull() {
		return Nil, true
	}
	return NewString(v.String()), true
}

// CastDateTime implements the `datetime`/`timestamp` cast function.
func CastDateTime(v Value) (Value, bool) {
	switch v.Tag {
	case TagDateTime:
		return v, true
	case TagString:
		dt, err := ParseDateTime(v.S, "")
		if err != nil {
			return Nil, false
		}
		return NewDateTime(dt), true
	case TagInteger:
		return NewDateTime(DateTimeVal{T: time.UnixMilli(v.I)}), true
	default:
		return Nil, false
	}
}

// CastTimestampTz implements `timestamptz(v, zone?)`.
func CastTimestampTz(v Value, zone string) (Value, bool) {
	base, ok := CastDateTime(v)
	if !ok {
		return Nil, false
	}
	dt := base.DT
	if zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return Nil, false
		}
		dt.T = dt.T.In(loc)
		dt.Zone = zone
	}
	return NewDateTime(dt), true
}

// CastDuration implements the `interval` cast function.
func CastDuration(v Value) (Value, bool) {
	switch v.Tag {
	case TagDuration:
		return v, true
	case TagString:
		d, err := ParseDuration(v.S)
		if err != nil {
			return Nil, false
		}
		return NewDuration(d), true
	case TagInteger:
		return NewDuration(DurationVal{Millis: v.I}), true
	default:
		return Nil, false
	}
}
