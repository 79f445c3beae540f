package compiler

import (
	"fmt"

	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/errs"
	"github.com/peaql/peaql/types"
)

// Params carries the bound values for one Compile call. A query's
// placeholders are either all-positional or all-named (the parser already
// rejects mixing the two styles); only one of the two fields is populated
// per call.
type Params struct {
	Positional []types.Value
	Named      map[string]types.Value
}

// resolve looks up the value bound to a parsed placeholder, at compile time:
// a missing name or arity mismatch is fatal at compile time, not deferred to
// evaluation.
func (p Params) resolve(ph *ast.Placeholder) (types.Value, error) {
	switch ph.Style {
	case ast.PlaceholderPositional:
		i := ph.Position - 1
		if i < 0 || i >= len(p.Positional) {
			return types.Nil, &errs.ProgrammingError{Message: fmt.Sprintf("missing value for positional parameter $%d", ph.Position)}
		}
		return p.Positional[i], nil
	case ast.PlaceholderNamed:
		v, ok := p.Named[ph.Name]
		if !ok {
			return types.Nil, &errs.ProgrammingError{Message: fmt.Sprintf("missing value for named parameter :%s", ph.Name)}
		}
		return v, nil
	default:
		return types.Nil, &errs.InternalError{Message: "placeholder with no style"}
	}
}
