// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"strconv"
)

var (
	errExprParse    = errors.New("expression syntax error")
	errDivideByZero = errors.New("divide by zero")
)

// A binaryOp is an infix operator. Operators with higher precedence bind
// more tightly; all of them are left-associative.
type binaryOp struct {
	symbol     string
	precedence int
	eval       func(a, b int64) (int64, error)
}

// Two-character symbols come first so they match before any one-character
// prefix.
var binaryOps = []binaryOp{
	{"<<", 4, func(a, b int64) (int64, error) { return a << uint32(b), nil }},
	{">>", 4, func(a, b int64) (int64, error) { return a >> uint32(b), nil }},
	{"*", 6, func(a, b int64) (int64, error) { return a * b, nil }},
	{"/", 6, func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivideByZero
		}
		return a / b, nil
	}},
	{"%", 6, func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivideByZero
		}
		return a % b, nil
	}},
	{"+", 5, func(a, b int64) (int64, error) { return a + b, nil }},
	{"-", 5, func(a, b int64) (int64, error) { return a - b, nil }},
	{"&", 3, func(a, b int64) (int64, error) { return a & b, nil }},
	{"^", 2, func(a, b int64) (int64, error) { return a ^ b, nil }},
	{"|", 1, func(a, b int64) (int64, error) { return a | b, nil }},
}

// A resolver supplies the values of identifiers such as register names.
type resolver interface {
	resolveIdentifier(s string) (int64, error)
}

// An exprParser evaluates integer expressions such as "$1000+3", "pc+2" or
// "(x<<8)|y". Numbers may be written as $hex, %binary, 0x/0b/0d-prefixed,
// 'c' character literals, or bare digits. Bare numbers are hexadecimal in
// hex mode and decimal otherwise.
type exprParser struct {
	hexMode bool
	t       tstring
	r       resolver
}

// Parse evaluates the expression, looking up identifiers through r.
func (p *exprParser) Parse(expr string, r resolver) (int64, error) {
	p.t, p.r = tstring(expr), r
	defer func() { p.t, p.r = "", nil }()

	v, err := p.parseBinary(1)
	if err != nil {
		return 0, err
	}
	if p.t.consumeWhitespace() != "" {
		return 0, errExprParse
	}
	return v, nil
}

func (p *exprParser) parseBinary(minPrecedence int) (int64, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	for {
		p.t = p.t.consumeWhitespace()
		op := p.peekOp()
		if op == nil || op.precedence < minPrecedence {
			return lhs, nil
		}
		p.t = p.t.consume(len(op.symbol))

		rhs, err := p.parseBinary(op.precedence + 1)
		if err != nil {
			return 0, err
		}
		if lhs, err = op.eval(lhs, rhs); err != nil {
			return 0, err
		}
	}
}

func (p *exprParser) peekOp() *binaryOp {
	for i := range binaryOps {
		if p.t.hasPrefix(binaryOps[i].symbol) {
			return &binaryOps[i]
		}
	}
	return nil
}

func (p *exprParser) parseUnary() (int64, error) {
	p.t = p.t.consumeWhitespace()
	if p.t == "" {
		return 0, errExprParse
	}

	switch p.t[0] {
	case '-':
		p.t = p.t.consume(1)
		v, err := p.parseUnary()
		return -v, err
	case '+':
		p.t = p.t.consume(1)
		return p.parseUnary()
	case '~':
		p.t = p.t.consume(1)
		v, err := p.parseUnary()
		return ^v, err
	case '(':
		p.t = p.t.consume(1)
		v, err := p.parseBinary(1)
		if err != nil {
			return 0, err
		}
		p.t = p.t.consumeWhitespace()
		if !p.t.hasPrefix(")") {
			return 0, errExprParse
		}
		p.t = p.t.consume(1)
		return v, nil
	default:
		return p.parsePrimary()
	}
}

func (p *exprParser) parsePrimary() (int64, error) {
	c := p.t[0]
	switch {
	case c == '$':
		return p.parseNumber(p.t.consume(1), 16, hexadecimal)
	case c == '%':
		return p.parseNumber(p.t.consume(1), 2, binary)
	case c == '\'':
		if len(p.t) < 3 || p.t[2] != '\'' {
			return 0, errExprParse
		}
		v := int64(p.t[1])
		p.t = p.t.consume(3)
		return v, nil
	case c == '0' && len(p.t) > 2 && (p.t[1] == 'x' || p.t[1] == 'b' || p.t[1] == 'd'):
		switch p.t[1] {
		case 'x':
			return p.parseNumber(p.t.consume(2), 16, hexadecimal)
		case 'b':
			return p.parseNumber(p.t.consume(2), 2, binary)
		default:
			return p.parseNumber(p.t.consume(2), 10, decimal)
		}
	case decimal(c):
		if p.hexMode {
			return p.parseNumber(p.t, 16, hexadecimal)
		}
		return p.parseNumber(p.t, 10, decimal)
	case identifier(c):
		id, remain := p.t.consumeWhile(identifier)
		if p.hexMode && id.scanWhile(hexadecimal) == len(id) {
			return p.parseNumber(p.t, 16, hexadecimal)
		}
		p.t = remain
		if p.r == nil {
			return 0, errExprParse
		}
		return p.r.resolveIdentifier(string(id))
	default:
		return 0, errExprParse
	}
}

func (p *exprParser) parseNumber(t tstring, base int, fn func(c byte) bool) (int64, error) {
	num, remain := t.consumeWhile(fn)
	if num == "" {
		return 0, errExprParse
	}

	v, err := strconv.ParseInt(string(num), base, 64)
	if err != nil {
		return 0, errExprParse
	}
	p.t = remain
	return v, nil
}

//
// tstring
//

type tstring string

func (t tstring) consume(n int) tstring {
	return t[n:]
}

func (t tstring) hasPrefix(s string) bool {
	return len(t) >= len(s) && string(t[:len(s)]) == s
}

func (t tstring) consumeWhitespace() tstring {
	return t.consume(t.scanWhile(whitespace))
}

func (t tstring) scanWhile(fn func(c byte) bool) int {
	i := 0
	for ; i < len(t) && fn(t[i]); i++ {
	}
	return i
}

func (t tstring) consumeWhile(fn func(c byte) bool) (consumed, remain tstring) {
	i := t.scanWhile(fn)
	return t[:i], t[i:]
}

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func decimal(c byte) bool {
	return (c >= '0' && c <= '9')
}

func hexadecimal(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func binary(c byte) bool {
	return c == '0' || c == '1'
}

func identifier(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.'
}
