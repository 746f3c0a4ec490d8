// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/beevik/cycle6502/cpu"
)

const origin = 0x1000

func assemble(code string) ([]byte, *Writer, error) {
	mem := cpu.NewFlatMemory()
	w := NewWriter(mem, origin)
	if err := w.WriteLines(strings.NewReader(code)); err != nil {
		return nil, w, err
	}
	b := make([]byte, int(w.PC)-origin)
	mem.LoadBytes(origin, b)
	return b, w, nil
}

func checkASM(t *testing.T, asm string, expected string) {
	t.Helper()
	code, _, err := assemble(asm)
	if err != nil {
		t.Error(err)
		return
	}

	s := strings.ReplaceAll(ByteString(code), " ", "")
	if s != expected {
		t.Error("code doesn't match expected")
		t.Errorf("got: %s\n", s)
		t.Errorf("exp: %s\n", expected)
	}
}

func checkASMError(t *testing.T, asm string, target error) {
	t.Helper()
	_, _, err := assemble(asm)
	if err == nil {
		t.Errorf("Expected error on %s, didn't get one\n", asm)
		return
	}
	if !errors.Is(err, target) {
		t.Errorf("Expected '%v', got '%v'\n", target, err)
	}
}

func TestAddressingIMM(t *testing.T) {
	asm := `
	LDA #$20
	LDX #$20
	LDY #$20`

	checkASM(t, asm, "A920A220A020")
}

func TestAddressingZPG(t *testing.T) {
	asm := `
	LDA $20
	LDX $20
	LDY $20
	STA $20
	STX $20
	STY $20`

	checkASM(t, asm, "A520A620A420852086208420")
}

func TestAddressingZPXY(t *testing.T) {
	asm := `
	LDA $20,X
	LDY $20,X
	LDX $20,Y
	STA $20,X
	STY $20,X
	STX $20,Y`

	checkASM(t, asm, "B520B420B620952094209620")
}

func TestAddressingABS(t *testing.T) {
	asm := `
	LDA $2000
	LDX $2000
	LDY $2000
	STA $2000
	STX $2000
	STY $2000
	JSR $2000
	LDA A:$20
	LDA ABS:$20`

	checkASM(t, asm, "AD0020AE0020AC00208D00208E00208C0020200020AD2000AD2000")
}

func TestAddressingABX(t *testing.T) {
	asm := `
	LDA $2000,X
	LDY $2000,X
	STA $2000,X`

	checkASM(t, asm, "BD0020BC00209D0020")
}

func TestAddressingABY(t *testing.T) {
	asm := `
	LDA $2000,Y
	LDX $2000,Y
	STA $2000,Y
	STA $20,Y`

	// STA has no zero page,Y form, so a small operand stays absolute.
	checkASM(t, asm, "B90020BE0020990020992000")
}

func TestAddressingIndirect(t *testing.T) {
	asm := `
	LDA ($20,X)
	LDA ($20),Y
	STA ( $20 , x )
	STA ($20),y`

	checkASM(t, asm, "A120B12081209120")
}

func TestImplied(t *testing.T) {
	checkASM(t, "\tRTS", "60")
}

func TestNumberFormats(t *testing.T) {
	asm := `
	lda #%10000100   ; binary
	ldx #132         ; decimal
	ldy	#$84`

	checkASM(t, asm, "A984A284A084")
}

func TestCommentsAndBlankLines(t *testing.T) {
	asm := `
	; a comment

	LDA #$01 ; trailing comment
	`

	checkASM(t, asm, "A901")
}

func TestErrors(t *testing.T) {
	checkASMError(t, "JMP $2000", ErrUnknownMnemonic)
	checkASMError(t, "STA #$20", ErrInvalidMode)
	checkASMError(t, "STX $2000,X", ErrInvalidMode)
	checkASMError(t, "JSR", ErrInvalidMode)
	checkASMError(t, "RTS $20", ErrInvalidMode)
	checkASMError(t, "LDA ($20)", ErrInvalidMode)
	checkASMError(t, "LDA #$100", ErrOperandRange)
	checkASMError(t, "LDA $10000", ErrOperandRange)
	checkASMError(t, "LDA ($2000),Y", ErrOperandRange)
	checkASMError(t, "LDA #$XY", ErrInvalidOperand)
}

func TestSyntaxErrorLine(t *testing.T) {
	_, _, err := assemble("LDA #$01\nLDA #$02\nFOO\n")
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("Expected *SyntaxError, got %v", err)
	}
	if se.Line != 3 {
		t.Errorf("Line incorrect. exp: 3, got: %d", se.Line)
	}
	if se.Text != "FOO" {
		t.Errorf("Text incorrect. exp: FOO, got: %s", se.Text)
	}
}

type emitRecord struct {
	addr   uint16
	code   string
	cycles int
}

type recordingTracer struct {
	records []emitRecord
}

func (r *recordingTracer) OnEmit(addr uint16, code []byte, cycles int) {
	r.records = append(r.records, emitRecord{addr, ByteString(code), cycles})
}

func TestTracer(t *testing.T) {
	mem := cpu.NewFlatMemory()
	tr := &recordingTracer{}
	w := NewWriter(mem, 0xfffc)
	w.Tracer = tr

	err := w.WriteLines(strings.NewReader("LDA #$84\nLDA $42\nLDA $4480\nJSR $8000"))
	if err != nil {
		t.Fatal(err)
	}

	exp := []emitRecord{
		{0xfffc, "A9 84", 2},
		{0xfffe, "A5 42", 5},
		{0x0000, "AD 80 44", 9},
		{0x0003, "20 00 80", 15},
	}
	if len(tr.records) != len(exp) {
		t.Fatalf("Record count incorrect. exp: %d, got: %d", len(exp), len(tr.records))
	}
	for i := range exp {
		if tr.records[i] != exp[i] {
			t.Errorf("Record %d incorrect. exp: %+v, got: %+v", i, exp[i], tr.records[i])
		}
	}
	if w.Cycles != 15 {
		t.Errorf("Cycles incorrect. exp: 15, got: %d", w.Cycles)
	}
	if w.PC != 0x0006 {
		t.Errorf("PC incorrect. exp: $0006, got: $%04X", w.PC)
	}
}

func TestEmit(t *testing.T) {
	mem := cpu.NewFlatMemory()
	w := NewWriter(mem, 0x0200)

	if err := w.Emit("sta", cpu.ABX, 0x1234); err != nil {
		t.Fatal(err)
	}
	if err := w.Emit("LDX", cpu.ZPG, 0x100); !errors.Is(err, ErrOperandRange) {
		t.Errorf("Expected ErrOperandRange, got %v", err)
	}
	if err := w.Emit("LDX", cpu.ABX, 0x10); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Expected ErrInvalidMode, got %v", err)
	}
	if err := w.Emit("NOP", cpu.IMP, 0); !errors.Is(err, ErrUnknownMnemonic) {
		t.Errorf("Expected ErrUnknownMnemonic, got %v", err)
	}

	b := make([]byte, 3)
	mem.LoadBytes(0x0200, b)
	if got := ByteString(b); got != "9D 34 12" {
		t.Errorf("code incorrect. exp: 9D 34 12, got: %s", got)
	}
	if w.Cycles != 5 {
		t.Errorf("Cycles incorrect. exp: 5, got: %d", w.Cycles)
	}
}
