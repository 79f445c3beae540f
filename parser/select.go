package parser

import (
	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/lexer"
)

func (p *Parser) parseSelect() *ast.SelectStmt {
	stmt := &ast.SelectStmt{Windows: map[string]*ast.WindowSpec{}}

	if p.match(lexer.KwWith) {
		stmt.With = p.parseCTEs()
	}

	if p.check(lexer.LParen) {
		// `(SELECT ...) UNION (SELECT ...)` style grouping.
		p.advance()
		inner := p.parseSelect()
		p.expect(lexer.RParen, "expected ')' closing parenthesized SELECT")
		stmt = inner
	} else {
		p.expect(lexer.KwSelect, "expected SELECT")
		if p.match(lexer.KwDistinct) {
			stmt.Distinct = true
		}
		p.match(lexer.KwAll)

		stmt.Targets = p.parseTargetList()

		if p.match(lexer.KwFrom) {
			stmt.From = p.parseFromClause()
		}
		if p.match(lexer.KwWhere) {
			stmt.Where = p.parseExpr()
		}
		if p.match(lexer.KwGroup) {
			p.expect(lexer.KwBy, "expected BY after GROUP")
			stmt.GroupBy = p.parseGroupKeys()
		}
		if p.match(lexer.KwHaving) {
			stmt.Having = p.parseExpr()
		}
		if p.match(lexer.KwWindow) {
			for {
				name := p.expect(lexer.Ident, "expected window name").Text
				p.expect(lexer.KwAs, "expected AS in WINDOW clause")
				p.expect(lexer.LParen, "expected '(' opening window spec")
				spec := p.parseWindowSpecBody()
				spec.Name = name
				stmt.Windows[name] = spec
				if !p.match(lexer.Comma) {
					break
				}
			}
		}
		if p.match(lexer.KwPivot) {
			p.expect(lexer.KwBy, "expected BY after PIVOT")
			p.expect(lexer.LParen, "expected '(' after PIVOT BY")
			a := p.parseGroupKey()
			p.expect(lexer.Comma, "expected ',' between PIVOT BY axes")
			b := p.parseGroupKey()
			p.expect(lexer.RParen, "expected ')' closing PIVOT BY")
			stmt.Pivot = &ast.PivotClause{AxisA: a, AxisB: b}
		}
	}

	if p.check(lexer.KwUnion) || p.check(lexer.KwIntersect) || p.check(lexer.KwExcept) {
		op := p.advance().Text
		opUpper := opUpperName(op)
		if p.match(lexer.KwAll) {
			opUpper += " ALL"
		}
		stmt.SetOp = opUpper
		stmt.SetNext = p.parseSelect()
		return stmt
	}

	if p.match(lexer.KwOrder) {
		p.expect(lexer.KwBy, "expected BY after ORDER")
		stmt.OrderBy = p.parseOrderKeys()
	}
	if p.match(lexer.KwLimit) {
		stmt.Limit = p.parseExpr()
	}
	if p.match(lexer.KwOffset) {
		stmt.Offset = p.parseExpr()
	}
	return stmt
}

func opUpperName(raw string) string {
	switch {
	case len(raw) > 0 && (raw[0] == 'u' || raw[0] == 'U'):
		return "UNION"
	case len(raw) > 0 && (raw[0] == 'i' || raw[0] == 'I'):
		return "INTERSECT"
	default:
		return "EXCEPT"
	}
}

func (p *Parser) parseCTEs() []ast.CTE {
	var out []ast.CTE
	for {
		name := p.expect(lexer.Ident, "expected CTE name").Text
		p.expect(lexer.KwAs, "expected AS in WITH clause")
		p.expect(lexer.LParen, "expected '(' opening CTE query")
		q := p.parseSelect()
		p.expect(lexer.RParen, "expected ')' closing CTE query")
		out = append(out, ast.CTE{Name: name, Query: q})
		if !p.match(lexer.Comma) {
			break
		}
	}
	return out
}

func (p *Parser) parseTargetList() []ast.Target {
	var out []ast.Target
	for {
		out = append(out, p.parseTarget())
		if !p.match(lexer.Comma) {
			break
		}
	}
	return out
}

func (p *Parser) parseTarget() ast.Target {
	if p.check(lexer.Star) {
		p.advance()
		return ast.Target{All: true}
	}
	// `t.*`
	if p.check(lexer.Ident) && p.peekAhead(1).Kind == lexer.Dot && p.peekAhead(2).Kind == lexer.Star {
		table := p.advance().Text
		p.advance() // dot
		p.advance() // star
		return ast.Target{AllTable: table}
	}
	e := p.parseExpr()
	t := ast.Target{Expr: e}
	if p.match(lexer.KwAs) {
		t.Alias = p.parseAliasName()
	} else if p.check(lexer.Ident) || p.check(lexer.QuotedIdent) {
		t.Alias = p.parseAliasName()
	}
	return t
}

func (p *Parser) parseAliasName() string {
	if p.check(lexer.QuotedIdent) {
		return p.advance().Text
	}
	return p.expect(lexer.Ident, "expected identifier").Text
}

func (p *Parser) peekAhead(n int) lexer.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *Parser) parseGroupKeys() []ast.GroupKey {
	var out []ast.GroupKey
	for {
		out = append(out, p.parseGroupKey())
		if !p.match(lexer.Comma) {
			break
		}
	}
	return out
}

func (p *Parser) parseGroupKey() ast.GroupKey {
	if p.check(lexer.Number) && isPlainInt(p.cur().Text) {
		n := p.advance().Text
		return ast.GroupKey{Index: atoiSafe(n)}
	}
	return ast.GroupKey{Expr: p.parseExpr()}
}

func (p *Parser) parseOrderKeys() []ast.OrderKey {
	var out []ast.OrderKey
	for {
		var k ast.OrderKey
		if p.check(lexer.Number) && isPlainInt(p.cur().Text) {
			k.Index = atoiSafe(p.advance().Text)
		} else {
			k.Expr = p.parseExpr()
		}
		if p.match(lexer.KwDesc) {
			k.Desc = true
		} else {
			p.match(lexer.KwAsc)
		}
		if p.checkIdentUpper("NULLS") {
			p.advance()
			first := true
			if p.checkIdentUpper("LAST") {
				first = false
			}
			p.advance()
			k.NullsFirst = &first
		}
		out = append(out, k)
		if !p.match(lexer.Comma) {
			break
		}
	}
	return out
}

func (p *Parser) checkIdentUpper(s string) bool {
	return p.check(lexer.Ident) && equalFold(p.cur().Text, s)
}

func isPlainInt(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
