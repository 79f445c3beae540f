// Package peaql is the embeddable in-process SQL query engine's top-level
// facade. It exists at all because giving catalog.Catalog its own
// compile/execute methods would make catalog import compiler and plan, both
// of which import catalog for Table/Row: a cycle. Context sits one layer
// above all three, mirroring the teacher's own db.DB (db/db.go), which
// wraps its kv catalog, compiler, and vm behind one facade type without any
// of those three importing db.
package peaql

import (
	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/compiler"
	"github.com/peaql/peaql/plan"
)

// Params is re-exported so callers never need to import the compiler
// package directly just to bind placeholder values.
type Params = compiler.Params

// Context is a live table registry plus the compile/execute machinery,
// described as one type. Every exported catalog.Catalog method is promoted
// unchanged (GetTable, TableExists, Tables, Settings, ...); Context adds the
// statement pipeline on top.
type Context struct {
	*catalog.Catalog
}

// New builds an empty Context.
func New() *Context {
	return &Context{Catalog: catalog.New()}
}

// Create builds a Context pre-populated with tables.
func Create(tables ...*catalog.Table) *Context {
	return &Context{Catalog: catalog.New().WithTables(tables...)}
}

// WithTables registers more tables, returning the receiver so it composes
// with New/Create in a chain typed as *Context throughout; catalog.Catalog's
// own WithTables returns *catalog.Catalog, which would otherwise drop out of
// the chain's Context type after one call.
func (ctx *Context) WithTables(tables ...*catalog.Table) *Context {
	ctx.Catalog.WithTables(tables...)
	return ctx
}

// WithDefaultTable selects the table an omitted FROM resolves to.
func (ctx *Context) WithDefaultTable(name string) *Context {
	ctx.Catalog.WithDefaultTable(name)
	return ctx
}

// CreateDatabase builds a Context from a name-to-table-model map, a
// convenience constructor for loading several persisted tables at once.
func CreateDatabase(models map[string]catalog.TableModel) (*Context, error) {
	ctx := New()
	for name, model := range models {
		model.Name = name
		tbl, err := catalog.FromJSON(model, ctx.compileConstraintExpr)
		if err != nil {
			return nil, err
		}
		ctx.Catalog.CreateTable(tbl)
	}
	return ctx, nil
}

// compileConstraintExpr satisfies catalog.ExprCompiler, re-compiling a
// persisted constraint's stored source text against the table being loaded.
func (ctx *Context) compileConstraintExpr(exprText string, tbl *catalog.Table) (catalog.CompiledExpr, error) {
	return compiler.New(ctx.Catalog).CompileTableExpr(exprText, tbl)
}

// Compile parses and lowers text against a private clone of the live
// catalog, augmented with the statement's SET settings. The clone means a
// CREATE TABLE named in text has no effect until the returned plan is
// executed.
func (ctx *Context) Compile(text string, params Params) (*plan.Statements, error) {
	prepared, err := ctx.Catalog.Prepare(text)
	if err != nil {
		return nil, err
	}
	return ctx.CompilePrepared(prepared, params)
}

// CompilePrepared lowers an already-parsed statement, letting a caller
// prepare once and compile many times with different bound parameters.
func (ctx *Context) CompilePrepared(prepared *catalog.PreparedStatement, params Params) (*plan.Statements, error) {
	if err := catalog.ValidateSettings(prepared.Settings); err != nil {
		return nil, err
	}
	cat := ctx.Catalog.Clone().WithSettings(prepared.Settings)
	return compiler.New(cat).Compile(prepared.Stmts, params)
}

// Execute compiles and runs text in one call, applying any DDL/DML in it to
// the live catalog.
func (ctx *Context) Execute(text string, params Params) (*plan.Result, error) {
	stmts, err := ctx.Compile(text, params)
	if err != nil {
		return nil, err
	}
	return ctx.ExecutePlan(stmts)
}

// ExecutePrepared runs an already-compiled Statements block against the live
// catalog, the counterpart to CompilePrepared for a prepare-once,
// execute-many caller.
func (ctx *Context) ExecutePrepared(prepared *catalog.PreparedStatement, params Params) (*plan.Result, error) {
	stmts, err := ctx.CompilePrepared(prepared, params)
	if err != nil {
		return nil, err
	}
	return ctx.ExecutePlan(stmts)
}

// ExecutePlan runs a plan already produced by Compile/CompilePrepared.
func (ctx *Context) ExecutePlan(stmts *plan.Statements) (*plan.Result, error) {
	return stmts.Execute(ctx.Catalog)
}
