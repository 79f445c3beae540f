package catalog

import (
	"strings"

	"github.com/peaql/peaql/types"
)

// typeNames maps the DDL/JSON-model type-name spellings onto DType. Not every
// spelling is also a cast name (float, bool, varchar, duration and object
// have no cast); INSERT/UPDATE coercion looks its cast up by the canonical
// name TypeName renders, which is a registered cast for every DType but
// Object.
var typeNames = map[string]types.DType{
	"int": types.Integer, "integer": types.Integer,
	"real": types.Real, "number": types.Real, "float": types.Real,
	"numeric": types.Decimal, "decimal": types.Decimal,
	"boolean": types.Boolean, "bool": types.Boolean,
	"text": types.String, "string": types.String, "varchar": types.String,
	"datetime": types.DateTime, "timestamp": types.DateTime, "timestamptz": types.DateTime,
	"interval": types.Duration, "duration": types.Duration,
	"object": types.Object,
}

// LookupTypeName resolves a DDL column type name (case-insensitive) to a
// DType, ok=false if unknown.
func LookupTypeName(name string) (types.DType, bool) {
	t, ok := typeNames[strings.ToLower(name)]
	return t, ok
}

// InferColumns derives a column list from a slice of already-decoded JSON/Go
// row objects, generalizing the teacher's reader.ExtractSchemaInfo (which
// walks a Parquet file's physical schema) into walking the union of keys
// across decoded rows and classifying each by its Go runtime type, since a
// Table.fromObject source has no file schema to read. The first non-null
// value seen for a key decides its DType; a key that is null in every row
// is classified Object.
func InferColumns(records []map[string]interface{}) []Column {
	order := []string{}
	seen := map[string]bool{}
	types_ := map[string]types.DType{}

	for _, rec := range records {
		for k, v := range rec {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
				types_[k] = types.Object
			}
			if v == nil {
				continue
			}
			if types_[k] == types.Object {
				types_[k] = inferGoType(v)
			}
		}
	}

	cols := make([]Column, 0, len(order))
	for _, name := range order {
		cols = append(cols, NewBaseColumn(name, types_[name]))
	}
	return cols
}

func inferGoType(v interface{}) types.DType {
	switch x := v.(type) {
	case bool:
		return types.Boolean
	case int, int32, int64:
		return types.Integer
	case float64:
		// Same rule as decodeAny: an integral float64 (how encoding/json
		// decodes every number) is an integer.
		if x == float64(int64(x)) {
			return types.Integer
		}
		return types.Real
	case float32:
		return types.Real
	case string:
		return types.String
	default:
		return types.Object
	}
}

// DecodeRow converts one decoded JSON/Go row object into a catalog.Row of
// typed Values, coercing each field to its column's declared type where
// possible.
func DecodeRow(cols []Column, rec map[string]interface{}) Row {
	row := make(Row, len(cols))
	for _, c := range cols {
		v, ok := rec[c.Name]
		if !ok || v == nil {
			row[c.Name] = types.Nil
			continue
		}
		row[c.Name] = decodeScalar(v, c.Type)
	}
	return row
}

func decodeScalar(v interface{}, target types.DType) types.Value {
	raw := decodeAny(v)
	if raw.DType().Equal(target) || target.Tag == types.TagObject {
		return raw
	}
	coerced, ok := coerceValue(raw, target)
	if !ok {
		return raw
	}
	return coerced
}

func decodeAny(v interface{}) types.Value {
	switch x := v.(type) {
	case bool:
		return types.NewBoolean(x)
	case int:
		return types.NewInteger(int64(x))
	case int64:
		return types.NewInteger(x)
	case float64:
		if x == float64(int64(x)) {
			return types.NewInteger(int64(x))
		}
		return types.NewReal(x)
	case string:
		return types.NewString(x)
	case []interface{}:
		items := make([]types.Value, len(x))
		for i, e := range x {
			items[i] = decodeAny(e)
		}
		return types.NewList(items)
	default:
		return types.Nil
	}
}

func coerceValue(v types.Value, target types.DType) (types.Value, bool) {
	switch target.Tag {
	case types.TagInteger:
		return types.CastInteger(v)
	case types.TagReal:
		return types.CastNumber(v)
	case types.TagDecimal:
		return types.CastDecimal(v)
	case types.TagBoolean:
		return types.CastBoolean(v)
	case types.TagString:
		return types.CastString(v)
	case types.TagDateTime:
		return types.CastDateTime(v)
	case types.TagDuration:
		return types.CastDuration(v)
	default:
		return v, true
	}
}
