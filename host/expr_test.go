// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"testing"
)

type registerResolver map[string]int64

func (r registerResolver) resolveIdentifier(s string) (int64, error) {
	if v, ok := r[s]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("identifier '%s' not found", s)
}

func TestExpressions(t *testing.T) {
	r := registerResolver{"a": 0x42, "pc": 0x1000, ".": 0x1000, "x": 2}

	tests := []struct {
		expr    string
		hexMode bool
		v       int64
	}{
		{"$ff", false, 0xff},
		{"0x1000", false, 0x1000},
		{"0b101", false, 5},
		{"0d99", false, 99},
		{"%1010", false, 10},
		{"10", false, 10},
		{"10", true, 0x10},
		{"-1", false, -1},
		{"'A'", false, 0x41},
		{"$1000+3", false, 0x1003},
		{"pc+2", false, 0x1002},
		{". - 1", false, 0xfff},
		{"10-2-3", false, 5},
		{"2+3*4", false, 14},
		{"(2+3)*4", false, 20},
		{"1<<8|x", false, 0x102},
		{"~0 & $ff", false, 0xff},
		{"7 % 4", false, 3},
		{"$f0 ^ $ff", false, 0x0f},
		{"a", false, 0x42},
		{"a", true, 0x0a},
		{"ff+pc", true, 0x10ff},
	}

	for _, tt := range tests {
		p := exprParser{hexMode: tt.hexMode}
		v, err := p.Parse(tt.expr, r)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", tt.expr, err)
			continue
		}
		if v != tt.v {
			t.Errorf("Parse(%q) incorrect. exp: $%X, got: $%X", tt.expr, tt.v, v)
		}
	}
}

func TestExpressionErrors(t *testing.T) {
	r := registerResolver{}

	tests := []struct {
		expr string
		err  error
	}{
		{"", errExprParse},
		{"$xyz", errExprParse},
		{"1+", errExprParse},
		{"(1+2", errExprParse},
		{"1 2", errExprParse},
		{"'A", errExprParse},
		{"4/0", errDivideByZero},
		{"4%0", errDivideByZero},
	}

	for _, tt := range tests {
		p := exprParser{}
		if _, err := p.Parse(tt.expr, r); !errors.Is(err, tt.err) {
			t.Errorf("Parse(%q) error incorrect. exp: %v, got: %v", tt.expr, tt.err, err)
		}
	}

	p := exprParser{}
	if _, err := p.Parse("zz", r); err == nil {
		t.Error("expected error resolving unknown identifier")
	}
}
