package compiler

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/errs"
	"github.com/peaql/peaql/types"
)

// literalValue turns a parsed ast.Literal into a typed types.Value. The
// parser never produces Kind "decimal" despite its own doc comment
// mentioning it (numeric literals are always classified "integer" or
// "real"); a decimal result only ever comes from an explicit ::numeric cast
// or a decimal column default, not from literal syntax itself.
func literalValue(lit *ast.Literal) (types.Value, error) {
	switch lit.Kind {
	case "null":
		return types.Nil, nil
	case "boolean":
		return types.NewBoolean(strings.EqualFold(lit.Text, "true")), nil
	case "integer":
		i, err := strconv.ParseInt(lit.Text, 10, 64)
		if err != nil {
			return types.Nil, &errs.CompileError{Node: lit.Text, Message: "invalid integer literal: " + err.Error()}
		}
		return types.NewInteger(i), nil
	case "real":
		f, err := strconv.ParseFloat(lit.Text, 64)
		if err != nil {
			return types.Nil, &errs.CompileError{Node: lit.Text, Message: "invalid real literal: " + err.Error()}
		}
		return types.NewReal(f), nil
	case "decimal":
		d, err := decimal.NewFromString(lit.Text)
		if err != nil {
			return types.Nil, &errs.CompileError{Node: lit.Text, Message: "invalid decimal literal: " + err.Error()}
		}
		return types.NewDecimal(d), nil
	case "string":
		return types.NewString(lit.Text), nil
	default:
		return types.Nil, &errs.InternalError{Message: "unknown literal kind " + lit.Kind}
	}
}
