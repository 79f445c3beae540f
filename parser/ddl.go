package parser

import (
	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/lexer"
)

func (p *Parser) parseCreate() ast.Stmt {
	p.advance() // CREATE
	p.expect(lexer.KwTable, "expected TABLE after CREATE")
	stmt := &ast.CreateStmt{}
	if p.match(lexer.KwIf) {
		p.expect(lexer.KwNot, "expected NOT in IF NOT EXISTS")
		p.expect(lexer.KwExists, "expected EXISTS in IF NOT EXISTS")
		stmt.IfNotExists = true
	}
	stmt.TableName = p.expect(lexer.Ident, "expected table name").Text

	if p.match(lexer.KwAs) {
		stmt.AsQuery = p.parseSelect()
		return stmt
	}

	p.expect(lexer.LParen, "expected '(' opening column list")
	for {
		if p.isTableConstraintStart() {
			stmt.Constraints = append(stmt.Constraints, p.parseTableConstraint())
		} else {
			stmt.Columns = append(stmt.Columns, p.parseColumnDef(stmt.TableName))
		}
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen, "expected ')' closing column list")
	return stmt
}

func (p *Parser) isTableConstraintStart() bool {
	switch p.cur().Kind {
	case lexer.KwCheck, lexer.KwUnique, lexer.KwPrimary, lexer.KwForeign:
		return true
	default:
		return false
	}
}

func (p *Parser) parseTableConstraint() ast.TableConstraint {
	var tc ast.TableConstraint
	switch p.cur().Kind {
	case lexer.KwCheck:
		p.advance()
		p.expect(lexer.LParen, "expected '(' after CHECK")
		tc.Kind = "check"
		tc.Expr = p.parseExpr()
		p.expect(lexer.RParen, "expected ')' closing CHECK")
	case lexer.KwUnique:
		p.advance()
		tc.Kind = "unique"
		tc.Cols = p.parseColumnNameList()
	case lexer.KwPrimary:
		p.advance()
		p.expect(lexer.KwKey, "expected KEY after PRIMARY")
		tc.Kind = "primary_key"
		tc.Cols = p.parseColumnNameList()
	case lexer.KwForeign:
		p.advance()
		p.expect(lexer.KwKey, "expected KEY after FOREIGN")
		tc.Kind = "foreign_key"
		tc.Cols = p.parseColumnNameList()
		p.expect(lexer.KwReferences, "expected REFERENCES in FOREIGN KEY")
		tc.RefTable = p.expect(lexer.Ident, "expected referenced table name").Text
		tc.RefCols = p.parseColumnNameList()
	}
	return tc
}

func (p *Parser) parseColumnNameList() []string {
	p.expect(lexer.LParen, "expected '(' opening column name list")
	var out []string
	for {
		out = append(out, p.expect(lexer.Ident, "expected column name").Text)
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen, "expected ')' closing column name list")
	return out
}

func (p *Parser) parseColumnDef(tableName string) ast.ColumnDef {
	col := ast.ColumnDef{}
	col.Name = p.expect(lexer.Ident, "expected column name").Text
	col.TypeName = p.expect(lexer.Ident, "expected column type").Text
	if p.match(lexer.LBracket) {
		p.expect(lexer.RBracket, "expected ']' closing array type suffix")
		col.IsArray = true
	}
	for {
		switch {
		case p.check(lexer.KwNot) && p.peekAhead(1).Kind == lexer.KwNull:
			p.advance()
			p.advance()
			col.NotNull = true
		case p.match(lexer.KwPrimary):
			p.expect(lexer.KwKey, "expected KEY after PRIMARY")
			col.PrimaryKey = true
			col.NotNull = true
		case p.match(lexer.KwUnique):
			col.Unique = true
		case p.match(lexer.KwDefault):
			col.Default = p.parseExpr()
		case p.match(lexer.KwCheck):
			p.expect(lexer.LParen, "expected '(' after inline CHECK")
			col.Check = p.parseExpr()
			p.expect(lexer.RParen, "expected ')' closing inline CHECK")
		default:
			return col
		}
	}
}

func (p *Parser) parseInsert() ast.Stmt {
	p.advance() // INSERT
	p.expect(lexer.KwInto, "expected INTO after INSERT")
	stmt := &ast.InsertStmt{}
	stmt.TableName = p.expect(lexer.Ident, "expected table name").Text
	if p.match(lexer.LParen) {
		for {
			stmt.Columns = append(stmt.Columns, p.expect(lexer.Ident, "expected column name").Text)
			if !p.match(lexer.Comma) {
				break
			}
		}
		p.expect(lexer.RParen, "expected ')' closing column list")
	}
	p.expect(lexer.KwValues, "expected VALUES")
	for {
		p.expect(lexer.LParen, "expected '(' opening a VALUES row")
		var row []ast.Expr
		if !p.check(lexer.RParen) {
			for {
				row = append(row, p.parseExpr())
				if !p.match(lexer.Comma) {
					break
				}
			}
		}
		p.expect(lexer.RParen, "expected ')' closing a VALUES row")
		stmt.Rows = append(stmt.Rows, row)
		if !p.match(lexer.Comma) {
			break
		}
	}
	if p.match(lexer.KwReturning) {
		stmt.Returning = p.parseTargetList()
	}
	return stmt
}

func (p *Parser) parseUpdate() ast.Stmt {
	p.advance() // UPDATE
	stmt := &ast.UpdateStmt{}
	stmt.TableName = p.expect(lexer.Ident, "expected table name").Text
	p.expect(lexer.KwSet, "expected SET after table name")
	for {
		col := p.expect(lexer.Ident, "expected column name").Text
		p.expect(lexer.Eq, "expected '=' in SET assignment")
		val := p.parseExpr()
		stmt.Set = append(stmt.Set, ast.Assignment{Column: col, Expr: val})
		if !p.match(lexer.Comma) {
			break
		}
	}
	if p.match(lexer.KwWhere) {
		stmt.Where = p.parseExpr()
	}
	if p.match(lexer.KwReturning) {
		stmt.Returning = p.parseTargetList()
	}
	return stmt
}
