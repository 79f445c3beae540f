// Package registry is the process-wide table of typed operator/function
// overloads, casts, and aggregator factories. It generalizes the teacher's
// query.FunctionRegistry (Vegasq-parcat query/function.go), a name→Function
// map guarded by sync.RWMutex exposing Register/Get, from a single untyped
// Evaluate([]interface{}) per name to multiple typed Signatures per name,
// dispatched by specificity.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/peaql/peaql/types"
)

// Signature is one overload of a registered name: input DTypes, output
// DType, and an eager evaluation function. The last Param may be
// types.Vararg, which expands to match any number of trailing arguments of
// Elem's type.
type Signature struct {
	Params   []types.DType
	Result   types.DType
	// ResultFn overrides Result when the output type depends on the actual
	// argument types (e.g. arithmetic promoting Integer+Real to Real).
	ResultFn func(args []types.DType) types.DType
	// NullSafe signatures run even when an argument is Null (IS NULL, NOT,
	// COALESCE, CASE). All other signatures short-circuit to Null before
	// Eval is invoked.
	NullSafe bool
	Eval     func(args []types.Value) (types.Value, error)
}

func (s *Signature) resultType(argTypes []types.DType) types.DType {
	if s.ResultFn != nil {
		return s.ResultFn(argTypes)
	}
	return s.Result
}

// match reports whether argTypes satisfies this signature's Params, and how
// specific the match is (lower is more specific; used to break ties between
// multiple matching signatures, where fewer Object/generic slots wins).
func (s *Signature) match(argTypes []types.DType) (ok bool, specificity int) {
	n := len(s.Params)
	variadic := n > 0 && s.Params[n-1].Tag == types.TagVararg
	if variadic {
		if len(argTypes) < n-1 {
			return false, 0
		}
	} else if len(argTypes) != n {
		return false, 0
	}

	for i, at := range argTypes {
		var pt types.DType
		if variadic && i >= n-1 {
			pt = *s.Params[n-1].Elem
		} else {
			pt = s.Params[i]
		}
		cost, ok := paramCost(pt, at)
		if !ok {
			return false, 0
		}
		specificity += cost
	}
	return true, specificity
}

// paramCost scores how well an argument type at satisfies a declared
// parameter type pt. 0 means an exact match; larger numbers mean a looser,
// less specific match; false means no match at all. types.Object matches
// anything at the loosest cost, and an Integer argument against a
// Real/Number-shaped parameter is accepted via the "extensions" relation but
// ranked behind a signature that asked for Integer explicitly.
func paramCost(pt, at types.DType) (int, bool) {
	switch {
	case at.Tag == types.TagNull:
		// A literal/typed Null is polymorphic at compile time; the actual
		// short-circuit-to-Null behavior happens at Eval time.
		return 1, true
	case pt.Tag == types.TagObject:
		return 100, true
	case pt.Equal(at):
		return 0, true
	case pt.Tag == types.TagReal && at.Tag == types.TagInteger:
		return 1, true
	case types.Extends(at, pt):
		return 1, true
	case pt.Tag == types.TagList && at.Tag == types.TagList:
		if pt.Elem.Tag == types.TagObject {
			return 50, true
		}
		if c, ok := paramCost(*pt.Elem, *at.Elem); ok {
			return c, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Aggregator is the running state of one aggregate-function invocation over
// a group. Update is called once per contributing row (already filtered by
// FILTER/DISTINCT layers); Finalize produces the reported value. Aggregator
// state handles are allocated once at plan-compile time and referenced by
// stable integer indices at runtime; the plan package owns the slot array,
// this interface only owns the per-slot behavior.
type Aggregator interface {
	Update(args []types.Value)
	Finalize() types.Value
}

// AggregatorFactory builds a fresh Aggregator instance for one group. argTypes
// are the compiled argument expression types, letting a factory pick e.g. a
// Decimal accumulator for sum(decimal_col) vs a float one for sum(real_col).
type AggregatorFactory func(argTypes []types.DType) Aggregator

type aggEntry struct {
	factory AggregatorFactory
	// resultFn computes the aggregator's output DType from its argument
	// types, mirroring Signature.ResultFn for symmetry with scalar functions.
	resultFn func(argTypes []types.DType) types.DType
}

// WindowFunc is a window-only function (row_number, rank, lead, lag, ...)
// that needs positional access to its partition rather than a simple
// running fold. The window engine (plan package) resolves partitioning,
// ORDER BY peer groups, and frame bounds; this interface only computes the
// value for one row given that already-resolved context.
type WindowFunc interface {
	// Compute returns the value at partition-relative position idx. args
	// holds every row's evaluated call arguments, in ORDER BY order.
	// frameStart/frameEnd are the current row's resolved frame bounds
	// (end-exclusive) among that same ordering. rank/denseRank are the
	// row's 1-based rank/dense rank within the ORDER BY peer ordering
	// (ties share a rank), needed by RANK/DENSE_RANK.
	Compute(args [][]types.Value, idx, frameStart, frameEnd, rank, denseRank int) types.Value
}

// WindowFuncFactory builds a fresh WindowFunc for one window-function call
// site, mirroring AggregatorFactory.
type WindowFuncFactory func(argTypes []types.DType) WindowFunc

type winEntry struct {
	factory  WindowFuncFactory
	resultFn func(argTypes []types.DType) types.DType
}

// Registry is the process-wide table. A single Default instance is shared by
// the builtins package (which populates it) and the compiler (which looks
// names up during semantic analysis), following the teacher's package-level
// globalRegistry pattern.
type Registry struct {
	mu           sync.RWMutex
	functions    map[string][]*Signature
	casts        map[string]*Signature
	aggregates   map[string]*aggEntry
	windowFuncs  map[string]*winEntry
}

func New() *Registry {
	return &Registry{
		functions:   make(map[string][]*Signature),
		casts:       make(map[string]*Signature),
		aggregates:  make(map[string]*aggEntry),
		windowFuncs: make(map[string]*winEntry),
	}
}

// Default is the registry the builtins package registers into at package
// init and the compiler resolves names against, matching the teacher's
// GetGlobalRegistry() convention.
var Default = New()

func key(name string) string { return strings.ToUpper(name) }

// Register adds an overload for name. Multiple signatures may share a name;
// Lookup picks the most specific match.
func (r *Registry) Register(name string, sig *Signature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(name)
	r.functions[k] = append(r.functions[k], sig)
}

// RegisterCast adds the cast function targeting DType typeName (e.g.
// "integer", "numeric", "timestamptz"), keyed separately from ordinary
// functions since a cast is looked up by target type name at `::type` /
// CAST(...) sites.
func (r *Registry) RegisterCast(typeName string, sig *Signature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.casts[key(typeName)] = sig
}

// RegisterAggregate adds an aggregator factory under name (count, sum, avg,
// min, max, first, last, group_concat, array_agg).
func (r *Registry) RegisterAggregate(name string, factory AggregatorFactory, resultFn func([]types.DType) types.DType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aggregates[key(name)] = &aggEntry{factory: factory, resultFn: resultFn}
}

// Lookup finds the most specific signature registered under name matching
// argTypes, filtering candidates then sorting by specificity.
func (r *Registry) Lookup(name string, argTypes []types.DType) (*Signature, types.DType, error) {
	r.mu.RLock()
	sigs := r.functions[key(name)]
	r.mu.RUnlock()
	if len(sigs) == 0 {
		return nil, types.Null, &notFoundError{name: name}
	}

	var best *Signature
	bestScore := -1
	for _, s := range sigs {
		ok, score := s.match(argTypes)
		if !ok {
			continue
		}
		if best == nil || score < bestScore {
			best = s
			bestScore = score
		}
	}
	if best == nil {
		return nil, types.Null, &noOverloadError{name: name, argTypes: argTypes}
	}
	return best, best.resultType(argTypes), nil
}

// LookupCast finds the cast signature targeting typeName.
func (r *Registry) LookupCast(typeName string) (*Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.casts[key(typeName)]
	return s, ok
}

// LookupAggregate finds the aggregator factory registered under name and
// the output DType it reports for argTypes.
func (r *Registry) LookupAggregate(name string, argTypes []types.DType) (AggregatorFactory, types.DType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.aggregates[key(name)]
	if !ok {
		return nil, types.Null, false
	}
	result := types.Object
	if e.resultFn != nil {
		result = e.resultFn(argTypes)
	}
	return e.factory, result, true
}

// HasFunction reports whether any overload is registered under name,
// distinguishing "unknown function" from "known function, no matching
// overload" for the compiler's diagnostics.
func (r *Registry) HasFunction(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.functions[key(name)]
	return ok
}

// HasAggregate reports whether name is a registered aggregator.
func (r *Registry) HasAggregate(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.aggregates[key(name)]
	return ok
}

// RegisterWindowFunc adds a window-only function factory under name
// (row_number, rank, dense_rank, first_value, last_value, nth_value, lead,
// lag).
func (r *Registry) RegisterWindowFunc(name string, factory WindowFuncFactory, resultFn func([]types.DType) types.DType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windowFuncs[key(name)] = &winEntry{factory: factory, resultFn: resultFn}
}

// HasWindowFunc reports whether name is a registered window-only function.
func (r *Registry) HasWindowFunc(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.windowFuncs[key(name)]
	return ok
}

// LookupWindowFunc finds the window-function factory registered under name
// and the output DType it reports for argTypes.
func (r *Registry) LookupWindowFunc(name string, argTypes []types.DType) (WindowFuncFactory, types.DType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.windowFuncs[key(name)]
	if !ok {
		return nil, types.Null, false
	}
	result := types.Object
	if e.resultFn != nil {
		result = e.resultFn(argTypes)
	}
	return e.factory, result, true
}

type notFoundError struct{ name string }

func (e *notFoundError) Error() string { return fmt.Sprintf("unknown function %q", e.name) }

// NotFound reports whether err indicates the name itself is unregistered
// (as opposed to being registered with no overload matching the call site).
func NotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}

type noOverloadError struct {
	name     string
	argTypes []types.DType
}

func (e *noOverloadError) Error() string {
	parts := make([]string, len(e.argTypes))
	for i, t := range e.argTypes {
		parts[i] = t.String()
	}
	return fmt.Sprintf("no overload of %q matches argument types (%s)", e.name, strings.Join(parts, ", "))
}
