package expr

import (
	"fmt"
)

// node is an expression AST node.
type node interface{}

type (
	numberLit struct{ v float64 }
	stringLit struct{ v string }
	boolLit   struct{ v bool }
	nullLit   struct{}
	ident     struct{ name string }
	arrayLit  struct{ elems []node }
	index     struct{ target, idx node }
	member    struct {
		target node
		name   string
	}
	unary struct {
		op string
		x  node
	}
	binary struct {
		op   string
		l, r node
	}
	ternary struct{ cond, then, els node }
	call    struct {
		fn   string
		args []node
	}
)

// precedence of binary operators, loosest first.
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "===": 3, "!==": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == op
}

func (p *parser) expect(op string) error {
	if !p.isOp(op) {
		t := p.peek()
		return fmt.Errorf("expected %q at %d, got %q", op, t.pos, t.text)
	}
	p.next()
	return nil
}

func (p *parser) parseExpr() (node, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.isOp("?") {
		return cond, nil
	}
	p.next()
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ternary{cond, then, els}, nil
}

func (p *parser) parseBinary(minPrec int) (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		prec, ok := precedence[t.text]
		if t.kind != tokOp || !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = binary{op: t.text, l: left, r: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if p.isOp("-") || p.isOp("!") || p.isOp("+") {
		op := p.next().text
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unary{op, x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isOp("["):
			p.next()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			x = index{x, idx}
		case p.isOp("."):
			p.next()
			t := p.next()
			if t.kind != tokIdent {
				return nil, fmt.Errorf("expected name after '.' at %d", t.pos)
			}
			x = member{x, t.text}
		case p.isOp("("):
			name, ok := calleeName(x)
			if !ok {
				return nil, fmt.Errorf("only built-in functions can be called")
			}
			p.next()
			args, err := p.parseList(")")
			if err != nil {
				return nil, err
			}
			x = call{fn: name, args: args}
		default:
			return x, nil
		}
	}
}

// calleeName accepts both "min" and "Math.min".
func calleeName(x node) (string, bool) {
	switch n := x.(type) {
	case ident:
		return n.name, true
	case member:
		if id, ok := n.target.(ident); ok && id.name == "Math" {
			return n.name, true
		}
	}
	return "", false
}

func (p *parser) parseList(closer string) ([]node, error) {
	var items []node
	if p.isOp(closer) {
		p.next()
		return items, nil
	}
	for {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.isOp(",") {
			p.next()
			continue
		}
		if err := p.expect(closer); err != nil {
			return nil, err
		}
		return items, nil
	}
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return numberLit{t.num}, nil
	case tokString:
		return stringLit{t.text}, nil
	case tokIdent:
		switch t.text {
		case "true":
			return boolLit{true}, nil
		case "false":
			return boolLit{false}, nil
		case "null", "undefined":
			return nullLit{}, nil
		}
		return ident{t.text}, nil
	case tokOp:
		switch t.text {
		case "(":
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		case "[":
			elems, err := p.parseList("]")
			if err != nil {
				return nil, err
			}
			return arrayLit{elems}, nil
		}
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("unexpected %q at %d", t.text, t.pos)
}
