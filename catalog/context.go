package catalog

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/errs"
	"github.com/peaql/peaql/parser"
)

// PreparedStatement is the result of Catalog.Prepare: a parsed statement
// tree plus any `SET` settings harvested from the source text. Prepare never
// consults or mutates the catalog. ID lets a caller (e.g. a
// prepared-statement cache keyed by something other than the raw text) refer
// back to this specific prepare call.
type PreparedStatement struct {
	ID       uuid.UUID
	Text     string
	Stmts    *ast.Statements
	Settings ast.Settings
}

// Catalog is PeaQL's persistent table registry, named Catalog here to leave
// `Context` for the top-level facade that also owns the compiler/plan
// wiring. See the root package's Context type, grounded on chirst-cdb's
// db.DB wrapping its catalog/compiler/vm.
type Catalog struct {
	tables       map[string]*Table
	Settings     ast.Settings
	DefaultTable string
}

// New builds an empty catalog.
func New() *Catalog {
	return &Catalog{tables: make(map[string]*Table), Settings: ast.Settings{}}
}

// WithTables registers each table, returning the receiver for chaining.
func (c *Catalog) WithTables(tables ...*Table) *Catalog {
	for _, t := range tables {
		c.tables[t.Name] = t
	}
	return c
}

// WithDefaultTable selects the table used when a query omits FROM.
func (c *Catalog) WithDefaultTable(name string) *Catalog {
	c.DefaultTable = name
	return c
}

// CreateTable registers t under its own name, replacing any existing table
// of that name. Callers implementing `IF NOT EXISTS`/re-create-is-an-error
// semantics should check TableExists first.
func (c *Catalog) CreateTable(t *Table) { c.tables[t.Name] = t }

// TableExists reports whether name is a registered table.
func (c *Catalog) TableExists(name string) bool {
	_, ok := c.tables[name]
	return ok
}

// GetTable looks up a registered table by name.
func (c *Catalog) GetTable(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Tables returns every registered table, for iteration (e.g. dumping a
// whole database to JSON).
func (c *Catalog) Tables() map[string]*Table { return c.tables }

// Clone makes a shallow copy of the catalog for query compilation. Table
// pointers are shared; only the table-name map and settings map are copied,
// so a query compiled against the clone can register subquery-derived
// tables (CTEs) without polluting the live catalog DDL sees.
func (c *Catalog) Clone() *Catalog {
	clone := &Catalog{
		tables:       make(map[string]*Table, len(c.tables)),
		Settings:     make(ast.Settings, len(c.Settings)),
		DefaultTable: c.DefaultTable,
	}
	for k, v := range c.tables {
		clone.tables[k] = v
	}
	for k, v := range c.Settings {
		clone.Settings[k] = v
	}
	return clone
}

// WithSettings merges extra settings into a (typically cloned) catalog,
// returning the receiver.
func (c *Catalog) WithSettings(s ast.Settings) *Catalog {
	for k, v := range s {
		c.Settings[k] = v
	}
	return c
}

// Prepare parses text into a PreparedStatement. Parse errors are returned
// wrapped in *errs.ParseErrors: every error found in a statement is
// collected and surfaced together rather than stopping at the first one.
func (c *Catalog) Prepare(text string) (*PreparedStatement, error) {
	stmts, settings, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}
	return &PreparedStatement{ID: uuid.New(), Text: text, Stmts: stmts, Settings: settings}, nil
}

// IdentifierQuoting reads the `identifier_quoting` setting, defaulting to
// "auto".
func (c *Catalog) IdentifierQuoting() string {
	if v, ok := c.Settings["identifier_quoting"]; ok {
		return v
	}
	return "auto"
}

// checkIdentifierQuoting validates a setting value, used when a statement's
// own SET is folded into a compile-time catalog clone.
func checkIdentifierQuoting(v string) error {
	switch v {
	case "auto", "quoted", "backtick", "bracket":
		return nil
	default:
		return &errs.ProgrammingError{Message: fmt.Sprintf("unknown identifier_quoting value %q", v)}
	}
}

// ImplicitGroupBy reads the `implicit_group_by` setting, defaulting to true:
// a grouped query's non-aggregate targets missing from GROUP BY are
// silently added as group keys. Set to "off" to fall back to strict SQL,
// where the same case is a compile error instead.
func (c *Catalog) ImplicitGroupBy() bool {
	if v, ok := c.Settings["implicit_group_by"]; ok {
		return v != "off"
	}
	return true
}

// checkImplicitGroupBy validates a setting value, used when a statement's
// own SET is folded into a compile-time catalog clone.
func checkImplicitGroupBy(v string) error {
	switch v {
	case "on", "off":
		return nil
	default:
		return &errs.ProgrammingError{Message: fmt.Sprintf("unknown implicit_group_by value %q", v)}
	}
}

// ValidateSettings rejects unrecognized values for the identifier_quoting
// and implicit_group_by settings (only implicit_group_by changes how a
// query compiles; identifier_quoting is checked but not acted on); the
// set of settings is open, so unknown setting names are accepted and
// ignored.
func ValidateSettings(s ast.Settings) error {
	if v, ok := s["identifier_quoting"]; ok {
		if err := checkIdentifierQuoting(v); err != nil {
			return err
		}
	}
	if v, ok := s["implicit_group_by"]; ok {
		if err := checkImplicitGroupBy(v); err != nil {
			return err
		}
	}
	return nil
}
