package parser

import (
	"strings"

	"github.com/peaql/peaql/ast"
	"github.com/peaql/peaql/lexer"
)

// parseExpr is the entry point for the precedence-climbing expression
// parser, structured after the teacher's query/parser_expression.go but
// extended with BETWEEN/IN/IS/pattern-match operators, casts, subscripts,
// attribute access, window functions, and subqueries.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.match(lexer.KwOr) {
		right := p.parseAnd()
		left = &ast.BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseNot()
	for p.match(lexer.KwAnd) {
		right := p.parseNot()
		left = &ast.BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseNot() ast.Expr {
	if p.match(lexer.KwNot) {
		return &ast.UnaryExpr{Op: "NOT", Operand: p.parseNot()}
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	for {
		switch p.cur().Kind {
		case lexer.Eq, lexer.NotEq, lexer.Lt, lexer.Gt, lexer.LtEq, lexer.GtEq,
			lexer.Tilde, lexer.TildeStar, lexer.NotTilde, lexer.NotTildeStar,
			lexer.QTilde, lexer.QTildeStar:
			op := opText(p.advance())
			right := p.parseAdditive()
			left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
			continue
		case lexer.KwIs:
			p.advance()
			not := p.match(lexer.KwNot)
			p.expect(lexer.KwNull, "expected NULL after IS [NOT]")
			if not {
				left = &ast.UnaryExpr{Op: "ISNOTNULL", Operand: left}
			} else {
				left = &ast.UnaryExpr{Op: "ISNULL", Operand: left}
			}
			continue
		case lexer.KwBetween:
			p.advance()
			low := p.parseAdditive()
			p.expect(lexer.KwAnd, "expected AND in BETWEEN")
			high := p.parseAdditive()
			left = &ast.Between{Target: left, Low: low, High: high}
			continue
		case lexer.KwIn:
			left = p.parseIn(left, false)
			continue
		case lexer.KwNot:
			if p.peekAhead(1).Kind == lexer.KwBetween {
				p.advance()
				p.advance()
				low := p.parseAdditive()
				p.expect(lexer.KwAnd, "expected AND in BETWEEN")
				high := p.parseAdditive()
				left = &ast.Between{Not: true, Target: left, Low: low, High: high}
				continue
			}
			if p.peekAhead(1).Kind == lexer.KwIn {
				p.advance()
				left = p.parseIn(left, true)
				continue
			}
		}
		break
	}
	return left
}

func opText(t lexer.Token) string {
	switch t.Kind {
	case lexer.Eq:
		return "="
	case lexer.NotEq:
		return "!="
	case lexer.Lt:
		return "<"
	case lexer.Gt:
		return ">"
	case lexer.LtEq:
		return "<="
	case lexer.GtEq:
		return ">="
	case lexer.Tilde:
		return "~"
	case lexer.TildeStar:
		return "~*"
	case lexer.NotTilde:
		return "!~"
	case lexer.NotTildeStar:
		return "!~*"
	case lexer.QTilde:
		return "?~"
	case lexer.QTildeStar:
		return "?~*"
	default:
		return t.Text
	}
}

func (p *Parser) parseIn(target ast.Expr, not bool) ast.Expr {
	p.advance() // IN
	p.expect(lexer.LParen, "expected '(' after IN")
	if p.check(lexer.KwSelect) || p.check(lexer.KwWith) {
		q := p.parseSelect()
		p.expect(lexer.RParen, "expected ')' closing IN subquery")
		return &ast.InExpr{Not: not, Target: target, SubList: q}
	}
	var list []ast.Expr
	if !p.check(lexer.RParen) {
		for {
			list = append(list, p.parseExpr())
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	p.expect(lexer.RParen, "expected ')' closing IN list")
	return &ast.InExpr{Not: not, Target: target, List: list}
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.check(lexer.Plus) || p.check(lexer.Minus) {
		op := "+"
		if p.cur().Kind == lexer.Minus {
			op = "-"
		}
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.check(lexer.Star) || p.check(lexer.Slash) || p.check(lexer.Percent) {
		op := map[lexer.Kind]string{lexer.Star: "*", lexer.Slash: "/", lexer.Percent: "%"}[p.cur().Kind]
		p.advance()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.match(lexer.Minus) {
		return &ast.UnaryExpr{Op: "-", Operand: p.parseUnary()}
	}
	if p.match(lexer.Plus) {
		return p.parseUnary()
	}
	return p.parsePostfix()
}

// parsePostfix handles `::type` casts, `.name`/`.f(args)` attribute access,
// and `[key]` subscripts, all left-associative and chainable.
func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for {
		switch {
		case p.check(lexer.DoubleColon):
			p.advance()
			typeName := p.expect(lexer.Ident, "expected type name after ::").Text
			e = &ast.Cast{Target: e, TypeName: typeName}
		case p.check(lexer.Dot):
			p.advance()
			name := p.expect(lexer.Ident, "expected attribute name after '.'").Text
			if p.check(lexer.LParen) {
				p.advance()
				var args []ast.Expr
				if !p.check(lexer.RParen) {
					for {
						args = append(args, p.parseExpr())
						if !p.match(lexer.Comma) {
							break
						}
					}
				}
				p.expect(lexer.RParen, "expected ')' closing method call")
				e = &ast.Attribute{Target: e, Name: name, IsCall: true, Args: args}
			} else {
				e = &ast.Attribute{Target: e, Name: name}
			}
		case p.check(lexer.LBracket):
			p.advance()
			key := p.parseExpr()
			p.expect(lexer.RBracket, "expected ']' closing subscript")
			e = &ast.Subscript{Target: e, Key: key}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Number:
		p.advance()
		kind := "integer"
		if strings.ContainsAny(tok.Text, ".eE") {
			kind = "real"
		}
		return &ast.Literal{Kind: kind, Text: tok.Text}
	case lexer.String:
		p.advance()
		return &ast.Literal{Kind: "string", Text: tok.Text}
	case lexer.KwTrue, lexer.KwFalse:
		p.advance()
		return &ast.Literal{Kind: "boolean", Text: tok.Text}
	case lexer.KwNull:
		p.advance()
		return &ast.Literal{Kind: "null"}
	case lexer.Placeholder:
		p.advance()
		return p.makePlaceholder(tok.Text)
	case lexer.QuotedIdent:
		p.advance()
		// The quoted text always becomes an identifier. The
		// identifier_quoting setting is validated but no stage consults
		// it, so a quoted form is never read as a string literal.
		return &ast.Ident{Name: tok.Text, Quoted: true}
	case lexer.Ident:
		return p.parseIdentOrCall()
	case lexer.Star:
		p.advance()
		return &ast.Ident{Name: "*"}
	case lexer.LParen:
		return p.parseParenExpr()
	case lexer.LBracket:
		return p.parseArrayLit()
	case lexer.KwCase:
		return p.parseCase()
	case lexer.KwExists:
		p.advance()
		p.expect(lexer.LParen, "expected '(' after EXISTS")
		q := p.parseSelect()
		p.expect(lexer.RParen, "expected ')' closing EXISTS")
		return &ast.ExistsExpr{Query: q}
	case lexer.KwNot:
		if p.peekAhead(1).Kind == lexer.KwExists {
			p.advance()
			p.advance()
			p.expect(lexer.LParen, "expected '(' after EXISTS")
			q := p.parseSelect()
			p.expect(lexer.RParen, "expected ')' closing EXISTS")
			return &ast.ExistsExpr{Not: true, Query: q}
		}
	}
	p.fail("expected expression")
	return &ast.Literal{Kind: "null"}
}

func (p *Parser) makePlaceholder(text string) ast.Expr {
	if text == "?" {
		p.PositionalN++
		if p.Style == ast.PlaceholderNone {
			p.Style = ast.PlaceholderPositional
		}
		return &ast.Placeholder{Style: ast.PlaceholderPositional, Position: p.PositionalN}
	}
	name := strings.TrimPrefix(text, ":")
	if p.Style == ast.PlaceholderNone {
		p.Style = ast.PlaceholderNamed
	}
	p.NamedParams = append(p.NamedParams, name)
	return &ast.Placeholder{Style: ast.PlaceholderNamed, Name: name}
}

func (p *Parser) parseParenExpr() ast.Expr {
	p.advance() // (
	if p.check(lexer.KwSelect) || p.check(lexer.KwWith) {
		q := p.parseSelect()
		p.expect(lexer.RParen, "expected ')' closing subquery")
		return &ast.ScalarSubquery{Query: q}
	}
	first := p.parseExpr()
	if p.check(lexer.Comma) {
		items := []ast.Expr{first}
		for p.match(lexer.Comma) {
			items = append(items, p.parseExpr())
		}
		p.expect(lexer.RParen, "expected ')' closing tuple literal")
		return &ast.CollectionLit{IsTuple: true, Items: items}
	}
	p.expect(lexer.RParen, "expected ')' closing parenthesized expression")
	return first
}

func (p *Parser) parseArrayLit() ast.Expr {
	p.advance() // [
	var items []ast.Expr
	if !p.check(lexer.RBracket) {
		for {
			items = append(items, p.parseExpr())
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	p.expect(lexer.RBracket, "expected ']' closing array literal")
	return &ast.CollectionLit{Items: items}
}

func (p *Parser) parseCase() ast.Expr {
	p.advance() // CASE
	ce := &ast.CaseExpr{}
	if !p.check(lexer.KwWhen) {
		ce.Operand = p.parseExpr()
	}
	for p.match(lexer.KwWhen) {
		cond := p.parseExpr()
		p.expect(lexer.KwThen, "expected THEN in CASE")
		res := p.parseExpr()
		ce.Whens = append(ce.Whens, ast.WhenClause{Cond: cond, Result: res})
	}
	if p.match(lexer.KwElse) {
		ce.Else = p.parseExpr()
	}
	p.expect(lexer.KwEnd, "expected END closing CASE")
	return ce
}

// parseIdentOrCall parses `name`, `table.name` (an ambiguous node the
// compiler later resolves as either a qualified column reference or a
// structural attribute access), or `name(args...)` including the aggregate
// DISTINCT/FILTER/OVER modifiers. Method-call sugar `expr.f(args)` on a
// non-trivial receiver is handled one level up, by parsePostfix.
func (p *Parser) parseIdentOrCall() ast.Expr {
	name := p.advance().Text
	if p.check(lexer.Dot) && p.peekAhead(1).Kind == lexer.Ident && p.peekAhead(2).Kind != lexer.LParen {
		p.advance() // dot
		second := p.advance().Text
		return &ast.Ident{Table: name, Name: second}
	}
	if p.check(lexer.LParen) {
		return p.finishCall(name)
	}
	return &ast.Ident{Name: name}
}

// finishCall parses the `(args...)` of a function/aggregate call already
// positioned at LParen.
func (p *Parser) finishCall(name string) ast.Expr {
	p.advance() // (
	call := &ast.FuncCall{Name: name}
	if p.match(lexer.KwDistinct) {
		call.Distinct = true
	}
	if !p.check(lexer.RParen) {
		if p.check(lexer.Star) {
			p.advance()
			call.Args = append(call.Args, &ast.Ident{Name: "*"})
		} else {
			for {
				call.Args = append(call.Args, p.parseExpr())
				if !p.match(lexer.Comma) {
					break
				}
			}
		}
	}
	p.expect(lexer.RParen, "expected ')' closing function call")
	if p.match(lexer.KwFilter) {
		p.expect(lexer.LParen, "expected '(' after FILTER")
		p.expect(lexer.KwWhere, "expected WHERE inside FILTER")
		call.Filter = p.parseExpr()
		p.expect(lexer.RParen, "expected ')' closing FILTER")
	}
	if p.match(lexer.KwOver) {
		call.Over = p.parseOverClause()
	}
	return call
}

func (p *Parser) parseOverClause() *ast.WindowSpec {
	if p.check(lexer.Ident) && p.peekAhead(1).Kind != lexer.LParen {
		return &ast.WindowSpec{BaseName: p.advance().Text}
	}
	p.expect(lexer.LParen, "expected '(' after OVER")
	spec := p.parseWindowSpecBody()
	return spec
}

func (p *Parser) parseWindowSpecBody() *ast.WindowSpec {
	spec := &ast.WindowSpec{}
	if p.check(lexer.Ident) {
		spec.BaseName = p.advance().Text
	}
	if p.match(lexer.KwPartition) {
		p.expect(lexer.KwBy, "expected BY after PARTITION")
		for {
			spec.PartitionBy = append(spec.PartitionBy, p.parseExpr())
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	if p.match(lexer.KwOrder) {
		p.expect(lexer.KwBy, "expected BY after ORDER")
		spec.OrderBy = p.parseOrderKeys()
	}
	if p.check(lexer.KwRows) || p.check(lexer.KwGroups) || p.check(lexer.KwRange) {
		spec.Frame = p.parseFrame()
	}
	p.expect(lexer.RParen, "expected ')' closing window spec")
	return spec
}

func (p *Parser) parseFrame() ast.Frame {
	var f ast.Frame
	f.HasFrame = true
	switch p.advance().Kind {
	case lexer.KwRows:
		f.Type = ast.FrameRows
	case lexer.KwGroups:
		f.Type = ast.FrameGroups
	case lexer.KwRange:
		f.Type = ast.FrameRange
	}
	if p.match(lexer.KwBetween) {
		f.Preceding = p.parseFrameBound()
		p.expect(lexer.KwAnd, "expected AND in frame BETWEEN clause")
		f.Following = p.parseFrameBound()
	} else {
		f.Preceding = p.parseFrameBound()
		f.Following = ast.FrameBound{Current: true}
	}
	if p.match(lexer.KwExclude) {
		switch {
		case p.match(lexer.KwCurrent):
			p.expect(lexer.KwRow, "expected ROW after EXCLUDE CURRENT")
			f.Exclude = ast.ExcludeCurrentRow
		case p.check(lexer.KwGroup) || p.check(lexer.KwGroups):
			p.advance()
			f.Exclude = ast.ExcludeGroup
		case p.match(lexer.KwTies):
			f.Exclude = ast.ExcludeTies
		case p.checkIdentUpper("NO"):
			p.advance()
			if p.checkIdentUpper("OTHERS") {
				p.advance()
			}
			f.Exclude = ast.ExcludeNone
		default:
			p.fail("expected NO OTHERS/CURRENT ROW/GROUP/TIES after EXCLUDE")
		}
	}
	return f
}

func (p *Parser) parseFrameBound() ast.FrameBound {
	if p.match(lexer.KwUnbounded) {
		if p.match(lexer.KwPreceding) {
			return ast.FrameBound{Unbounded: true}
		}
		p.expect(lexer.KwFollowing, "expected PRECEDING or FOLLOWING after UNBOUNDED")
		return ast.FrameBound{Unbounded: true}
	}
	if p.match(lexer.KwCurrent) {
		p.expect(lexer.KwRow, "expected ROW after CURRENT")
		return ast.FrameBound{Current: true}
	}
	offset := p.parseAdditive()
	if p.match(lexer.KwPreceding) {
		return ast.FrameBound{Offset: &ast.UnaryExpr{Op: "-", Operand: offset}}
	}
	p.expect(lexer.KwFollowing, "expected PRECEDING or FOLLOWING after frame offset")
	return ast.FrameBound{Offset: offset}
}
