// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements a cycle-accurate interpreter for the 6502 load,
// store and subroutine instructions.
//
// Every memory access the real chip performs costs one cycle, and so does
// every internal operation that has no bus access of its own (index
// addition, the worst-case fixup cycle of an indexed store, the final cycle
// of JSR). The cycle count of an instruction is therefore the sum of the
// accesses made while it executes.
package cpu

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Errors
var (
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
)

// UnsupportedOpcodeError is returned when the CPU fetches an opcode it does
// not implement. The program counter has already advanced past the opcode
// when the error is returned.
type UnsupportedOpcodeError struct {
	Opcode byte   // the offending opcode
	Addr   uint16 // address the opcode was fetched from
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("unsupported opcode $%02X at $%04X", e.Opcode, e.Addr)
}

func (e *UnsupportedOpcodeError) Unwrap() error {
	return ErrUnsupportedOpcode
}

// CPU represents a single 6502 CPU. It contains a pointer to the
// memory associated with the CPU.
type CPU struct {
	Reg       Registers       // CPU registers
	Mem       Memory          // assigned memory
	Cycles    uint64          // total executed CPU cycles
	LastPC    uint16          // address of the last executed opcode
	InstSet   *InstructionSet // Instruction set used by the CPU
	cycles    int             // cycles consumed by the in-flight instruction
	debugger  *Debugger
	storeByte func(cpu *CPU, addr uint16, v byte)
	stop      atomic.Bool
}

// The CPU starts executing at the reset vector address itself.
const vectorReset = 0xfffc

// NewCPU creates an emulated 6502 CPU bound to the specified memory.
func NewCPU(m Memory) *CPU {
	cpu := &CPU{
		Mem:       m,
		InstSet:   GetInstructionSet(),
		storeByte: (*CPU).storeByteNormal,
	}

	cpu.Reg.Init()
	return cpu
}

// Reset clears all registers and flags and points the program counter at
// the reset vector address ($FFFC). Memory and the cumulative cycle counter
// are left untouched.
func (cpu *CPU) Reset() {
	cpu.Reg.Init()
	cpu.LastPC = 0
}

// SetPC updates the CPU program counter to 'addr'.
func (cpu *CPU) SetPC(addr uint16) {
	cpu.Reg.PC = addr
}

// GetInstruction returns the instruction opcode at the requested address.
func (cpu *CPU) GetInstruction(addr uint16) *Instruction {
	opcode := cpu.Mem.LoadByte(addr)
	return cpu.InstSet.Lookup(opcode)
}

// Execute runs instructions until at least 'cycles' cycles have been
// consumed and returns the number of cycles actually used. An instruction
// that is started always runs to completion, so the result may exceed the
// request by part of one instruction. A budget of zero or less executes
// nothing.
//
// If an unsupported opcode is fetched, execution stops immediately and an
// *UnsupportedOpcodeError is returned along with the cycles used so far.
// A call to Stop ends execution after the current instruction.
func (cpu *CPU) Execute(cycles int) (int, error) {
	cpu.stop.Store(false)

	remaining := cycles
	for remaining > 0 {
		n, err := cpu.Step()
		remaining -= n
		if err != nil {
			return cycles - remaining, err
		}
		if cpu.stop.Load() {
			break
		}
	}
	return cycles - remaining, nil
}

// Stop asks a running Execute call to return once the current instruction
// completes. It may be called from any goroutine, including from within a
// debugger handler. Requests made while Execute is not running are
// discarded when the next Execute begins.
func (cpu *CPU) Stop() {
	cpu.stop.Store(true)
}

// Step the cpu by one instruction, returning the number of cycles it took.
func (cpu *CPU) Step() (int, error) {
	cpu.cycles = 0

	// Grab the next opcode at the current PC
	addr := cpu.Reg.PC
	opcode := cpu.fetchByte()

	inst := cpu.InstSet.Lookup(opcode)
	if inst.fn == nil {
		cpu.Cycles += uint64(cpu.cycles)
		return cpu.cycles, &UnsupportedOpcodeError{Opcode: opcode, Addr: addr}
	}

	cpu.LastPC = addr
	inst.fn(cpu, inst)
	cpu.Cycles += uint64(cpu.cycles)

	// Update the debugger so it handle breakpoints.
	if cpu.debugger != nil {
		cpu.debugger.onUpdatePC(cpu, cpu.Reg.PC)
	}
	return cpu.cycles, nil
}

// AttachDebugger attaches a debugger to the CPU. The debugger receives
// notifications whenever the CPU executes an instruction or stores a byte
// to memory.
func (cpu *CPU) AttachDebugger(debugger *Debugger) {
	cpu.debugger = debugger
	cpu.storeByte = (*CPU).storeByteDebugger
}

// DetachDebugger detaches the currently debugger from the CPU.
func (cpu *CPU) DetachDebugger() {
	cpu.debugger = nil
	cpu.storeByte = (*CPU).storeByteNormal
}

// Spend one cycle on an internal operation.
func (cpu *CPU) tick() {
	cpu.cycles++
}

// Fetch the byte at the program counter and advance it.
func (cpu *CPU) fetchByte() byte {
	v := cpu.Mem.LoadByte(cpu.Reg.PC)
	cpu.Reg.PC++
	cpu.cycles++
	return v
}

// Fetch a little-endian 16-bit operand at the program counter.
func (cpu *CPU) fetchAddress() uint16 {
	lo := cpu.fetchByte()
	hi := cpu.fetchByte()
	return uint16(lo) | uint16(hi)<<8
}

func (cpu *CPU) readByte(addr uint16) byte {
	cpu.cycles++
	return cpu.Mem.LoadByte(addr)
}

func (cpu *CPU) writeByte(addr uint16, v byte) {
	cpu.cycles++
	cpu.storeByte(cpu, addr, v)
}

// Read a 16-bit pointer from the zero page. The high byte of a pointer
// stored at $FF comes from $00.
func (cpu *CPU) readPointer(zp byte) uint16 {
	lo := cpu.readByte(uint16(zp))
	hi := cpu.readByte(uint16(zp + 1))
	return uint16(lo) | uint16(hi)<<8
}

// Offset 'base' by an index register. Loads pay the fixup cycle only when
// the high byte changes; stores always pay it.
func (cpu *CPU) indexed(base uint16, index byte, load bool) uint16 {
	addr, pageCrossed := offsetAddress(base, index)
	if pageCrossed || !load {
		cpu.tick()
	}
	return addr
}

// Resolve the effective address of the instruction operand using the
// requested addressing mode. The 'load' flag selects the page-crossing rule
// of indexed modes.
func (cpu *CPU) resolve(mode Mode, load bool) uint16 {
	switch mode {
	case ZPG:
		return uint16(cpu.fetchByte())
	case ZPX:
		zp := cpu.fetchByte()
		cpu.tick()
		return offsetZeroPage(zp, cpu.Reg.X)
	case ZPY:
		zp := cpu.fetchByte()
		cpu.tick()
		return offsetZeroPage(zp, cpu.Reg.Y)
	case ABS:
		return cpu.fetchAddress()
	case ABX:
		return cpu.indexed(cpu.fetchAddress(), cpu.Reg.X, load)
	case ABY:
		return cpu.indexed(cpu.fetchAddress(), cpu.Reg.Y, load)
	case IDX:
		zp := cpu.fetchByte()
		cpu.tick()
		return cpu.readPointer(zp + cpu.Reg.X)
	case IDY:
		zp := cpu.fetchByte()
		return cpu.indexed(cpu.readPointer(zp), cpu.Reg.Y, load)
	default:
		panic("Invalid addressing mode")
	}
}

// Load a byte into a register using the requested addressing mode, then
// update the zero and negative flags from it.
func (cpu *CPU) load(mode Mode, reg Register) {
	r := cpu.Reg.Ref(reg)
	if mode == IMM {
		*r = cpu.fetchByte()
	} else {
		*r = cpu.readByte(cpu.resolve(mode, true))
	}
	cpu.updateNZ(*r)
}

// Store a register using the requested addressing mode.
func (cpu *CPU) store(mode Mode, reg Register) {
	addr := cpu.resolve(mode, false)
	cpu.writeByte(addr, *cpu.Reg.Ref(reg))
}

// Store the byte value 'v' add the address 'addr'.
func (cpu *CPU) storeByteNormal(addr uint16, v byte) {
	cpu.Mem.StoreByte(addr, v)
}

// Store the byte value 'v' add the address 'addr'.
func (cpu *CPU) storeByteDebugger(addr uint16, v byte) {
	cpu.debugger.onDataStore(cpu, addr, v)
	cpu.Mem.StoreByte(addr, v)
}

// Push a value 'v' onto the stack.
func (cpu *CPU) push(v byte) {
	cpu.writeByte(stackAddress(cpu.Reg.SP), v)
	cpu.Reg.SP--
}

// Push the address 'addr' onto the stack.
func (cpu *CPU) pushAddress(addr uint16) {
	cpu.push(byte(addr >> 8))
	cpu.push(byte(addr))
}

// Pop a value from the stack and return it.
func (cpu *CPU) pop() byte {
	cpu.Reg.SP++
	return cpu.readByte(stackAddress(cpu.Reg.SP))
}

// Pop a 16-bit address off the stack.
func (cpu *CPU) popAddress() uint16 {
	lo := cpu.pop()
	hi := cpu.pop()
	return uint16(lo) | (uint16(hi) << 8)
}

// Update the Zero and Negative flags based on the value of 'v'.
func (cpu *CPU) updateNZ(v byte) {
	cpu.Reg.Zero = (v == 0)
	cpu.Reg.Negative = ((v & 0x80) != 0)
}

// Jump to subroutine
func (cpu *CPU) jsr(inst *Instruction) {
	addr := cpu.fetchAddress()
	cpu.pushAddress(cpu.Reg.PC - 1)
	cpu.tick()
	cpu.Reg.PC = addr
}

// load Accumulator
func (cpu *CPU) lda(inst *Instruction) {
	cpu.load(inst.Mode, RegA)
}

// load the X register
func (cpu *CPU) ldx(inst *Instruction) {
	cpu.load(inst.Mode, RegX)
}

// load the Y register
func (cpu *CPU) ldy(inst *Instruction) {
	cpu.load(inst.Mode, RegY)
}

// Return from Subroutine
func (cpu *CPU) rts(inst *Instruction) {
	cpu.tick()
	cpu.tick()
	addr := cpu.popAddress()
	cpu.tick()
	cpu.Reg.PC = addr + 1
}

// Store Accumulator
func (cpu *CPU) sta(inst *Instruction) {
	cpu.store(inst.Mode, RegA)
}

// Store X register
func (cpu *CPU) stx(inst *Instruction) {
	cpu.store(inst.Mode, RegX)
}

// Store Y register
func (cpu *CPU) sty(inst *Instruction) {
	cpu.store(inst.Mode, RegY)
}
