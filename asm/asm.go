// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm writes 6502 instruction streams into memory.
//
// A Writer accepts one instruction per line, in the usual assembler syntax,
// and stores the encoded bytes at its program counter:
//
//	LDA #$84       ; immediate
//	LDA $42        ; zero page (operand <= $FF)
//	LDA $4480      ; absolute
//	LDA A:$42      ; absolute, forced
//	LDA $4480,X    ; absolute,X (or zero page,X when <= $FF)
//	LDA ($20,X)    ; (indirect,X)
//	LDA ($20),Y    ; (indirect),Y
//	JSR $8000
//	RTS
//
// Numbers may be written as $hex, %binary or decimal.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/cycle6502/cpu"
)

// Errors
var (
	ErrUnknownMnemonic = errors.New("unknown mnemonic")
	ErrInvalidMode     = errors.New("addressing mode not available")
	ErrInvalidOperand  = errors.New("invalid operand")
	ErrOperandRange    = errors.New("operand out of range")
)

// A SyntaxError describes a line the Writer could not encode.
type SyntaxError struct {
	Line int    // 1-based line number, 0 when written with WriteLine
	Text string // the offending source line
	Err  error  // one of the package's sentinel errors
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Text)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// The Tracer interface may be implemented to observe every instruction a
// Writer emits. 'cycles' is the running cycle estimate including the
// emitted instruction.
type Tracer interface {
	OnEmit(addr uint16, code []byte, cycles int)
}

// A Writer encodes instructions into memory starting at PC. The cycle
// estimate is the sum of base cycle costs and ignores page-crossing
// penalties, which depend on register values at run time.
type Writer struct {
	PC      uint16 // address of the next emitted instruction
	Cycles  int    // running cycle estimate
	Tracer  Tracer // optional diagnostic sink
	mem     cpu.Memory
	instSet *cpu.InstructionSet
	line    int
}

// NewWriter creates a writer that emits instructions into 'mem' starting at
// address 'pc'.
func NewWriter(mem cpu.Memory, pc uint16) *Writer {
	return &Writer{
		PC:      pc,
		mem:     mem,
		instSet: cpu.GetInstructionSet(),
	}
}

// WriteLines encodes every line read from r. It stops at the first line
// that fails to encode.
func (w *Writer) WriteLines(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	w.line = 0
	for scanner.Scan() {
		w.line++
		if err := w.WriteLine(scanner.Text()); err != nil {
			return err
		}
	}
	w.line = 0
	return scanner.Err()
}

// WriteLine encodes a single instruction. Blank lines and comment-only
// lines are ignored.
func (w *Writer) WriteLine(line string) error {
	text := line
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	name, operand := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		name, operand = line[:i], line[i+1:]
	}
	if w.instSet.GetInstructions(name) == nil {
		return w.syntaxError(text, ErrUnknownMnemonic)
	}

	o, err := parseOperand(operand)
	if err != nil {
		return w.syntaxError(text, err)
	}

	inst := w.findMatchingInstruction(name, o)
	if inst == nil {
		return w.syntaxError(text, ErrInvalidMode)
	}
	if inst.Length == 2 && o.value > 0xff {
		return w.syntaxError(text, ErrOperandRange)
	}

	w.emit(inst, o.value)
	return nil
}

// Emit encodes the named instruction in the requested addressing mode with
// the given operand value. The value is ignored for implied instructions.
func (w *Writer) Emit(name string, mode cpu.Mode, value uint16) error {
	inst := w.instSet.Find(name, mode)
	switch {
	case inst != nil && inst.Length == 2 && value > 0xff:
		return ErrOperandRange
	case inst != nil:
		w.emit(inst, value)
		return nil
	case w.instSet.GetInstructions(name) == nil:
		return ErrUnknownMnemonic
	default:
		return ErrInvalidMode
	}
}

func (w *Writer) emit(inst *cpu.Instruction, value uint16) {
	code := make([]byte, inst.Length)
	code[0] = inst.Opcode
	copy(code[1:], toBytes(int(inst.Length)-1, int(value)))

	addr := w.PC
	w.mem.StoreBytes(addr, code)
	w.PC += uint16(inst.Length)
	w.Cycles += int(inst.Cycles)

	if w.Tracer != nil {
		w.Tracer.OnEmit(addr, code, w.Cycles)
	}
}

func (w *Writer) syntaxError(text string, err error) error {
	return &SyntaxError{Line: w.line, Text: text, Err: err}
}

// A parsed operand. The mode is a guess that findMatchingInstruction
// narrows to a zero-page form when the value fits.
type operand struct {
	modeGuess     cpu.Mode
	value         uint16
	forceAbsolute bool
}

func parseOperand(s string) (o operand, err error) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))

	var expr string
	switch {
	case s == "":
		o.modeGuess = cpu.IMP
		return o, nil

	case strings.HasPrefix(s, "#"):
		o.modeGuess, expr = cpu.IMM, s[1:]

	case strings.HasPrefix(s, "("):
		switch {
		case strings.HasSuffix(s, ",X)"):
			o.modeGuess, expr = cpu.IDX, s[1:len(s)-3]
		case strings.HasSuffix(s, "),Y"):
			o.modeGuess, expr = cpu.IDY, s[1:len(s)-3]
		default:
			return o, ErrInvalidMode
		}

	default:
		if rest, ok := strings.CutPrefix(s, "ABS:"); ok {
			o.forceAbsolute, s = true, rest
		} else if rest, ok := strings.CutPrefix(s, "A:"); ok {
			o.forceAbsolute, s = true, rest
		}
		switch {
		case strings.HasSuffix(s, ",X"):
			o.modeGuess, expr = cpu.ABX, s[:len(s)-2]
		case strings.HasSuffix(s, ",Y"):
			o.modeGuess, expr = cpu.ABY, s[:len(s)-2]
		default:
			o.modeGuess, expr = cpu.ABS, s
		}
	}

	v, err := parseNumber(expr)
	if err != nil {
		return o, err
	}
	if v > 0xffff || (o.modeGuess == cpu.IMM && v > 0xff) {
		return o, ErrOperandRange
	}
	o.value = uint16(v)
	return o, nil
}

// Given a mnemonic and operand, select the matching instruction variant.
// A plain or indexed operand that fits in a byte selects the zero-page
// form when the instruction has one.
func (w *Writer) findMatchingInstruction(name string, o operand) *cpu.Instruction {
	small := o.value <= 0xff && !o.forceAbsolute
	switch o.modeGuess {
	case cpu.ABS:
		if inst := w.instSet.Find(name, cpu.ZPG); inst != nil && small {
			return inst
		}
	case cpu.ABX:
		if inst := w.instSet.Find(name, cpu.ZPX); inst != nil && small {
			return inst
		}
	case cpu.ABY:
		if inst := w.instSet.Find(name, cpu.ZPY); inst != nil && small {
			return inst
		}
	}
	return w.instSet.Find(name, o.modeGuess)
}
