// Package parser turns lexer tokens into an ast.Stmt tree, in the
// recursive-descent style of the teacher's query.Parser (Vegasq-parcat
// query/parser.go), extended with DDL, DML, CTEs, window functions, PIVOT,
// and placeholder grammar.
package parser

import (
	"fmt"
	"strings"

	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/errs"
	"github.com/peaql/peaql/lexer"
)

// Parser walks a fixed token slice, looking up to two tokens ahead
// (peekAhead), mirroring the teacher's Parser.peek/advance/expect helpers.
type Parser struct {
	toks   []lexer.Token
	pos    int
	errors []*errs.ParseError

	// Style/PositionalN/NamedParams are filled in as `?`/`:name`
	// tokens are consumed, and validated at the end of Parse: a query must
	// carry either all-named or all-positional placeholders, never a mix.
	Style         ast.PlaceholderStyle
	PositionalN   int
	NamedParams   []string
	Settings      ast.Settings
}

// Parse tokenizes and parses src into a Statements root. Any parse errors
// found are returned together, wrapped in *errs.ParseErrors.
func Parse(src string) (*ast.Statements, ast.Settings, error) {
	toks := lexer.New(src).Lex()
	p := &Parser{toks: toks, Settings: ast.Settings{}}
	stmts := p.parseStatements()
	if len(p.errors) > 0 {
		return nil, p.Settings, &errs.ParseErrors{Errors: p.errors}
	}
	if p.Style == ast.PlaceholderPositional && len(p.NamedParams) > 0 ||
		p.Style == ast.PlaceholderNamed && p.PositionalN > 0 {
		return nil, p.Settings, &errs.ProgrammingError{Message: "cannot mix positional and named placeholders in one statement"}
	}
	return stmts, p.Settings, nil
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) atEnd() bool       { return p.cur().Kind == lexer.EOF }
func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}
func (p *Parser) check(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) match(kinds ...lexer.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) expect(k lexer.Kind, what string) lexer.Token {
	if p.check(k) {
		return p.advance()
	}
	p.fail(what)
	return p.cur()
}

func (p *Parser) fail(msg string) {
	p.errors = append(p.errors, &errs.ParseError{
		Pos: p.cur().Pos, Token: p.cur().Text, Message: msg,
	})
	// Advance one token so a single bad token doesn't loop parsing forever;
	// remaining errors in the statement are still collected.
	if !p.atEnd() {
		p.advance()
	}
}

func (p *Parser) parseStatements() *ast.Statements {
	out := &ast.Statements{}
	for !p.atEnd() {
		for p.match(lexer.Semicolon) {
		}
		if p.atEnd() {
			break
		}
		if p.check(lexer.KwSet) {
			p.parseSet()
			p.match(lexer.Semicolon)
			continue
		}
		stmt := p.parseStmt()
		if stmt != nil {
			out.Stmts = append(out.Stmts, stmt)
		}
		if !p.match(lexer.Semicolon) && !p.atEnd() {
			p.fail("expected ';' between statements")
		}
	}
	return out
}

// parseSet handles `SET name = value`. It is captured into Settings rather
// than emitted as an ast.Stmt: SET statements are harvested into a settings
// map and never touch the catalog.
func (p *Parser) parseSet() {
	p.advance() // SET
	nameTok := p.expect(lexer.Ident, "expected setting name after SET")
	p.expect(lexer.Eq, "expected '=' in SET statement")
	valTok := p.advance()
	p.Settings[strings.ToLower(nameTok.Text)] = strings.Trim(valTok.Text, "'\"")
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur().Kind {
	case lexer.KwCreate:
		return p.parseCreate()
	case lexer.KwInsert:
		return p.parseInsert()
	case lexer.KwUpdate:
		return p.parseUpdate()
	case lexer.KwSelect, lexer.KwWith:
		return p.parseSelect()
	case lexer.LParen:
		return p.parseSelect()
	default:
		p.fail(fmt.Sprintf("unexpected token %q, expected a statement", p.cur().Text))
		return nil
	}
}
