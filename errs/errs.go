// Package errs implements PeaQL's error taxonomy: Parse, Compilation,
// Programming, NotSupported, Data, and Internal errors, each a distinct type
// so callers can dispatch on kind with errors.As instead of string-matching
// messages.
package errs

import "fmt"

// ParseError carries a textual position and the offending token.
type ParseError struct {
	Pos     int
	Token   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d near %q: %s", e.Pos, e.Token, e.Message)
}

// ParseErrors aggregates every parse error found in a single statement so
// they can all be surfaced together instead of stopping at the first one.
type ParseErrors struct {
	Errors []*ParseError
}

func (e *ParseErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d parse errors, first: %s", len(e.Errors), e.Errors[0].Error())
}

// CompileError carries the offending AST node's rendered form and position.
type CompileError struct {
	Node    string
	Pos     int
	Message string
}

func (e *CompileError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("compile error in %s: %s", e.Node, e.Message)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

// ProgrammingError signals invalid API usage: mixed placeholder styles,
// missing parameters, wrong parameter shape.
type ProgrammingError struct {
	Message string
}

func (e *ProgrammingError) Error() string { return "programming error: " + e.Message }

// NotSupportedError signals an operator/function with no signature matching
// the given argument types. Signature is a rendered form for diagnostics.
type NotSupportedError struct {
	Name      string
	Signature string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("not supported: no signature of %s matches %s", e.Name, e.Signature)
}

// DataError signals a constraint violation or type-cast failure during
// INSERT/UPDATE, carrying the offending row for the message.
type DataError struct {
	Table         string
	Constraint    string
	Row           []string
	Message       string
}

func (e *DataError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf(
		"Failing row contains (%s). new row for relation %q violates check constraint %q",
		joinComma(e.Row), e.Table, e.Constraint,
	)
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// InternalError signals a broken compiler invariant that should never
// surface in a correctly compiled query.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string { return "internal error: " + e.Message }
