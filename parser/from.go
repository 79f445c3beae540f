package parser

import (
	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/lexer"
)

// parseFromClause parses the relation list after FROM, folding
// comma-separated relations into CROSS joins and explicit JOIN clauses onto
// a running left-hand FromClause.
func (p *Parser) parseFromClause() ast.FromClause {
	left := p.parseSingleSource()
	for {
		if p.match(lexer.Comma) {
			right := p.parseSingleSource()
			left = &ast.Join{Left: left, Right: right, Type: ast.JoinCross}
			continue
		}
		jt, ok := p.tryParseJoinType()
		if !ok {
			break
		}
		right := p.parseSingleSource()
		join := &ast.Join{Left: left, Right: right, Type: jt}
		if p.match(lexer.KwOn) {
			join.On = p.parseExpr()
		} else if p.match(lexer.KwUsing) {
			p.expect(lexer.LParen, "expected '(' after USING")
			for {
				join.Using = append(join.Using, p.expect(lexer.Ident, "expected column name in USING").Text)
				if !p.match(lexer.Comma) {
					break
				}
			}
			p.expect(lexer.RParen, "expected ')' closing USING")
		}
		left = join
	}
	return left
}

func (p *Parser) tryParseJoinType() (ast.JoinType, bool) {
	switch p.cur().Kind {
	case lexer.KwJoin:
		p.advance()
		return ast.JoinInner, true
	case lexer.KwInner:
		p.advance()
		p.expect(lexer.KwJoin, "expected JOIN after INNER")
		return ast.JoinInner, true
	case lexer.KwLeft:
		p.advance()
		p.match(lexer.KwOuter)
		p.expect(lexer.KwJoin, "expected JOIN after LEFT")
		return ast.JoinLeft, true
	case lexer.KwRight:
		p.advance()
		p.match(lexer.KwOuter)
		p.expect(lexer.KwJoin, "expected JOIN after RIGHT")
		return ast.JoinRight, true
	case lexer.KwFull:
		p.advance()
		p.match(lexer.KwOuter)
		p.expect(lexer.KwJoin, "expected JOIN after FULL")
		return ast.JoinFull, true
	case lexer.KwCross:
		p.advance()
		p.expect(lexer.KwJoin, "expected JOIN after CROSS")
		return ast.JoinCross, true
	case lexer.KwAnti:
		p.advance()
		p.expect(lexer.KwJoin, "expected JOIN after ANTI")
		return ast.JoinAnti, true
	default:
		return 0, false
	}
}

func (p *Parser) parseSingleSource() ast.FromClause {
	if p.check(lexer.LParen) {
		p.advance()
		q := p.parseSelect()
		p.expect(lexer.RParen, "expected ')' closing subquery in FROM")
		alias := p.parseOptionalAlias()
		if alias == "" {
			p.fail("subquery in FROM requires an alias")
		}
		return &ast.SubqueryRef{Query: q, Alias: alias}
	}
	name := p.expect(lexer.Ident, "expected table name").Text
	alias := p.parseOptionalAlias()
	return &ast.TableRef{Name: name, Alias: alias}
}

func (p *Parser) parseOptionalAlias() string {
	if p.match(lexer.KwAs) {
		return p.parseAliasName()
	}
	if p.check(lexer.Ident) && !p.isReservedFollowKeyword() {
		return p.advance().Text
	}
	return ""
}

// isReservedFollowKeyword guards against consuming the next clause's
// leading keyword as a bare alias (e.g. `FROM t WHERE ...` must not treat
// WHERE as an alias -- WHERE lexes as its own keyword kind so this only
// matters for identifiers that coincide with soft keywords we don't tokenize
// specially, which our keyword table does not currently produce; kept as a
// documented no-op hook for grammar growth).
func (p *Parser) isReservedFollowKeyword() bool { return false }
