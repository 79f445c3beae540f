package compiler

import (
	"fmt"

	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/errs"
	"github.com/peaql/peaql/plan"
)

// findColumnBinding finds the single binding among bs that declares column
// name, erroring if none or more than one does (spec's implicit "ambiguous
// column reference" rule, shared by bare-identifier resolution and USING
// clause lowering).
func findColumnBinding(bs []binding, name string) (*binding, catalog.Column, error) {
	var found *binding
	var col catalog.Column
	for i := range bs {
		c, ok := bs[i].table.Column(name)
		if !ok {
			continue
		}
		if found != nil {
			return nil, catalog.Column{}, &errs.CompileError{Message: fmt.Sprintf("ambiguous column reference %q", name)}
		}
		found = &bs[i]
		col = c
	}
	if found == nil {
		return nil, catalog.Column{}, &errs.CompileError{Message: fmt.Sprintf("unknown column %q", name)}
	}
	return found, col, nil
}

// columnKey renders the row key a binding's column is stored under, matching
// plan.qualify: bare when the binding has no alias, "alias.name" otherwise.
func columnKey(b *binding, name string) string {
	if b.alias == "" {
		return name
	}
	return b.alias + "." + name
}

// binding is one FROM-clause member: the alias it's known by in this scope
// (defaulting to the table's own name when no AS clause was given) and the
// table it resolves to.
type binding struct {
	alias string
	table *catalog.Table
}

// Scope resolves identifiers against the tables a SELECT's FROM clause
// brought into view, and against the WITH bindings visible to it, following
// the teacher's ExecutionContext (Vegasq-parcat query/executor.go): a fresh
// scope per SELECT, chained to its enclosing scope for correlated-subquery
// and outer-CTE visibility, generalized here from a runtime row-cache map
// into a compile-time identifier resolver.
type Scope struct {
	cat      *catalog.Catalog
	outer    *Scope
	bindings []binding
	ctes     map[string]*catalog.Table
	// correlated is set once this scope resolves any identifier against an
	// enclosing scope, marking the subquery it belongs to as correlated
	// (supplemented feature: only a non-correlated subquery is safe to
	// cache across every row it would otherwise be re-evaluated for).
	correlated bool
}

func newRootScope(cat *catalog.Catalog) *Scope {
	return &Scope{cat: cat, ctes: make(map[string]*catalog.Table)}
}

// child opens a nested scope for a subquery, sharing the compile-time
// catalog clone (so sibling CTEs stay registered) but starting with an
// empty FROM binding list and this scope as its correlation parent.
func (s *Scope) child() *Scope {
	return &Scope{cat: s.cat, outer: s, ctes: make(map[string]*catalog.Table)}
}

// sibling opens a scope for the next SELECT in a UNION/INTERSECT/EXCEPT
// chain: its own independent FROM bindings, but the same CTE and
// correlation visibility as s (a WITH clause attached to the first SELECT
// applies across the whole chain, not just that one SELECT).
func (s *Scope) sibling() *Scope {
	ns := &Scope{cat: s.cat, outer: s.outer, ctes: make(map[string]*catalog.Table)}
	for name, tbl := range s.ctes {
		ns.ctes[name] = tbl
	}
	return ns
}

func (s *Scope) addBinding(alias string, tbl *catalog.Table) {
	s.bindings = append(s.bindings, binding{alias: alias, table: tbl})
}

// registerCTE binds name to tbl in this scope only, shadowing any
// like-named CTE or catalog table visible from an enclosing scope (spec's
// WITH semantics: a nested WITH clause's names shadow the outer one's).
func (s *Scope) registerCTE(name string, tbl *catalog.Table) {
	s.ctes[name] = tbl
}

// lookupTable resolves a bare table name against CTEs first (innermost
// scope outward), then the shared catalog, matching standard SQL's
// "a CTE shadows a real table of the same name" rule.
func (s *Scope) lookupTable(name string) (*catalog.Table, bool) {
	for sc := s; sc != nil; sc = sc.outer {
		if tbl, ok := sc.ctes[name]; ok {
			return tbl, true
		}
	}
	return s.cat.GetTable(name)
}

// resolveColumn finds the table a bare or qualified identifier refers to,
// erroring on an unknown or ambiguous reference. A reference this scope's
// own FROM can't satisfy is retried against the enclosing scope, which is
// how a correlated subquery reaches its outer row (the outer row is merged
// into every inner row by plan.SelectPlan.baseRows at execution time, so the
// same row key resolves correctly at runtime).
func (s *Scope) resolveColumn(table, name string) (*plan.ColumnRef, error) {
	if table != "" {
		for i := range s.bindings {
			b := &s.bindings[i]
			if b.alias != table && b.table.Name != table {
				continue
			}
			col, ok := b.table.Column(name)
			if !ok {
				return nil, &errs.CompileError{Message: fmt.Sprintf("table %q has no column %q", table, name)}
			}
			return &plan.ColumnRef{Key: columnKey(b, name), DType: col.Type}, nil
		}
		if s.outer != nil {
			ref, oerr := s.outer.resolveColumn(table, name)
			if oerr == nil {
				s.correlated = true
			}
			return ref, oerr
		}
		return nil, &errs.CompileError{Message: fmt.Sprintf("unknown table or alias %q", table)}
	}

	b, col, err := findColumnBinding(s.bindings, name)
	if err != nil {
		if s.outer != nil {
			if ref, oerr := s.outer.resolveColumn(table, name); oerr == nil {
				s.correlated = true
				return ref, nil
			}
		}
		return nil, err
	}
	return &plan.ColumnRef{Key: columnKey(b, name), DType: col.Type}, nil
}
