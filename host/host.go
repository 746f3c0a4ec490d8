// Copyright 2018 Brett Vickers.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host allows you to create a "host" that emulates a computer system
// with a 6502 CPU, 64K of memory, an instruction writer and a debugger.
//
// Within the host it is possible to assemble instructions into memory, load
// raw binaries, execute code for a cycle budget, step through it, set address
// and data breakpoints, dump and change memory, and view or change the CPU
// registers.
package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/beevik/cmd"
	"github.com/beevik/cycle6502/asm"
	"github.com/beevik/cycle6502/cpu"
)

var errQuit = errors.New("exiting program")

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
)

// A Host represents a fully emulated 6502 system, 64K of memory, an
// instruction writer, a debugger, and a command interpreter that drives
// them.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	mem         *cpu.FlatMemory
	cpu         *cpu.CPU
	debugger    *cpu.Debugger
	handler     *hostHandler
	lastCmd     *selection
	state       state
	stepping    bool
	interrupted atomic.Bool
	settings    *settings
}

// New creates a new 6502 host environment.
func New() *Host {
	h := &Host{
		output:   bufio.NewWriter(os.Stdout),
		state:    stateProcessingCommands,
		settings: newSettings(),
	}
	h.handler = newHostHandler(h)

	// Create the emulated CPU and memory.
	h.mem = cpu.NewFlatMemory()
	h.cpu = cpu.NewCPU(h.mem)

	// Create a CPU debugger and attach it to the CPU.
	h.debugger = cpu.NewDebugger(h.handler)
	h.cpu.AttachDebugger(h.debugger)

	return h
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the next command to be entered. An empty line repeats
// the previous command.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive

	if interactive {
		h.println()
	}

	h.displayPC()

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			break
		}

		var c selection
		if strings.TrimSpace(line) != "" {
			c, err = lookupCommand(line)
			switch {
			case errors.Is(err, cmd.ErrNotFound):
				h.println("Command not found.")
				continue
			case errors.Is(err, cmd.ErrAmbiguous):
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.lastCmd != nil {
			c = *h.lastCmd
		}

		if c.Command == nil {
			continue
		}
		h.lastCmd = &c

		handler := c.Command.Data.(*command).fn
		if err := handler(h, c); err != nil {
			break
		}
	}

	h.flush()
}

// AssembleFile writes the instructions contained in a source file into
// memory starting at 'origin' and points the program counter at them.
func (h *Host) AssembleFile(filename string, origin uint16) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := asm.NewWriter(h.mem, origin)
	if err := w.WriteLines(file); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(filename), err)
	}

	h.cpu.SetPC(origin)
	h.printf("Assembled '%s' to $%04X..$%04X (%d cycles).\n",
		filepath.Base(filename), origin, w.PC-1, w.Cycles)
	return nil
}

// Break interrupts a running CPU once its current instruction completes.
// It may be called from any goroutine, typically a signal handler. The
// interruption is reported by the goroutine running the commands. A Break
// that arrives while no code is running has no effect.
func (h *Host) Break() {
	h.interrupted.Store(true)
	h.cpu.Stop()
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.printf("* ")
	}
}

func (h *Host) displayPC() {
	if h.interactive {
		h.println(h.statusString(h.cpu.Reg.PC))
	}
}

func (h *Host) cmdAssemble(c selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	w := asm.NewWriter(h.mem, addr)
	w.Tracer = h.handler

	if len(c.Args) > 1 {
		if err := w.WriteLine(strings.Join(c.Args[1:], " ")); err != nil {
			h.printf("%v\n", err)
		}
		return nil
	}

	// Interactive assembly continues until a blank line or END.
	for {
		if h.interactive {
			h.printf("%04X: ", w.PC)
		}
		line, err := h.getLine()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "end") {
			break
		}
		if err := w.WriteLine(line); err != nil {
			h.printf("%v\n", err)
		}
	}
	h.printf("Assembled $%04X..$%04X (%d cycles).\n", addr, w.PC-1, w.Cycles)
	return nil
}

func (h *Host) cmdBreakpointList(c selection) error {
	h.println("Addr  Enabled  Hits")
	h.println("----- -------  ----")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("$%04X %-5v    %d\n", b.Address, !b.Disabled, b.Hits)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c selection) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at $%04X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c selection) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	if h.debugger.GetBreakpoint(addr) == nil {
		h.printf("No breakpoint was set on $%04X.\n", addr)
		return nil
	}

	h.debugger.RemoveBreakpoint(addr)
	h.printf("Breakpoint at $%04X removed.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointEnable(c selection) error {
	return h.enableBreakpoint(c, true)
}

func (h *Host) cmdBreakpointDisable(c selection) error {
	return h.enableBreakpoint(c, false)
}

func (h *Host) enableBreakpoint(c selection, enable bool) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on $%04X.\n", addr)
		return nil
	}

	b.Disabled = !enable
	h.printf("Breakpoint at $%04X %s.\n", addr, enabledString(enable))
	return nil
}

func (h *Host) cmdDataBreakpointList(c selection) error {
	h.println("Addr  Enabled  Value   Hits")
	h.println("----- -------  -----   ----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		if b.Conditional {
			h.printf("$%04X %-5v    $%02X     %d\n", b.Address, !b.Disabled, b.Value, b.Hits)
		} else {
			h.printf("$%04X %-5v    <none>  %d\n", b.Address, !b.Disabled, b.Hits)
		}
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c selection) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	if len(c.Args) > 1 {
		value, err := h.parseByte(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.debugger.AddConditionalDataBreakpoint(addr, value)
		h.printf("Conditional data breakpoint added at $%04X for value $%02X.\n", addr, value)
	} else {
		h.debugger.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at $%04X.\n", addr)
	}
	return nil
}

func (h *Host) cmdDataBreakpointRemove(c selection) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	if h.debugger.GetDataBreakpoint(addr) == nil {
		h.printf("No data breakpoint was set on $%04X.\n", addr)
		return nil
	}

	h.debugger.RemoveDataBreakpoint(addr)
	h.printf("Data breakpoint at $%04X removed.\n", addr)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c selection) error {
	return h.enableDataBreakpoint(c, true)
}

func (h *Host) cmdDataBreakpointDisable(c selection) error {
	return h.enableDataBreakpoint(c, false)
}

func (h *Host) enableDataBreakpoint(c selection, enable bool) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on $%04X.\n", addr)
		return nil
	}

	b.Disabled = !enable
	h.printf("Data breakpoint at $%04X %s.\n", addr, enabledString(enable))
	return nil
}

func (h *Host) cmdExecute(c selection) error {
	budget := h.settings.StepCycles
	if len(c.Args) > 0 {
		n, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		budget = int(n)
	}

	used, err := h.execute(budget)
	if err != nil {
		h.printf("ERROR: %v.\n", err)
	}
	h.printf("Executed %d cycles.\n", used)
	h.println(registerString(&h.cpu.Reg))
	return nil
}

func (h *Host) cmdHelp(c selection) error {
	if len(c.Args) == 0 {
		h.displayCommands(commandGroups[0])
		return nil
	}

	for _, g := range commandGroups[1:] {
		if len(c.Args) == 1 && strings.HasPrefix(g.name, strings.ToLower(c.Args[0])) {
			h.displayCommands(g)
			return nil
		}
	}

	s, err := lookupCommand(strings.Join(c.Args, " "))
	if err != nil || s.Command == nil {
		h.println("Command not found.")
		return nil
	}

	cm := s.Command.Data.(*command)
	h.printf("Syntax: %s\n\n", cm.usage)
	h.printf("Description:\n%s\n\n", indentWrap(3, cm.description))
	return nil
}

func (h *Host) cmdLoad(c selection) error {
	if len(c.Args) < 2 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseAddr(c.Args[1])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	filename := c.Args[0]
	b, err := os.ReadFile(filename)
	if err != nil {
		h.printf("Failed to read '%s': %v\n", filepath.Base(filename), err)
		return nil
	}
	if len(b) == 0 || len(b) > 0x10000 {
		h.printf("File '%s' has an invalid size (%d bytes).\n", filepath.Base(filename), len(b))
		return nil
	}

	h.mem.StoreBytes(addr, b)
	h.cpu.SetPC(addr)
	h.printf("Loaded '%s' to $%04X..$%04X.\n", filepath.Base(filename), addr, addr+uint16(len(b)-1))
	return nil
}

func (h *Host) cmdMemoryDump(c selection) error {
	addr := h.settings.NextMemDumpAddr
	if len(c.Args) > 0 && c.Args[0] != "$" {
		a, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	bytes := h.settings.MemDumpBytes
	if len(c.Args) > 1 {
		n, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		bytes = int(n)
	}
	if bytes <= 0 {
		return nil
	}
	bytes = min(bytes, 0x10000-int(addr))

	h.dumpMemory(addr, uint16(bytes-1))

	h.settings.NextMemDumpAddr = addr + uint16(bytes)
	h.lastCmd.Args = []string{"$", fmt.Sprintf("$%X", bytes)}
	return nil
}

func (h *Host) cmdMemorySet(c selection) error {
	if len(c.Args) < 2 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := make([]byte, 0, len(c.Args)-1)
	for _, s := range c.Args[1:] {
		v, err := h.parseByte(s)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		b = append(b, v)
	}

	h.mem.StoreBytes(addr, b)
	h.printf("Memory set at $%04X..$%04X.\n", addr, addr+uint16(len(b)-1))
	return nil
}

func (h *Host) cmdQuit(c selection) error {
	return errQuit
}

func (h *Host) cmdRegister(c selection) error {
	switch len(c.Args) {
	case 0:
		h.println(h.statusString(h.cpu.Reg.PC))
		return nil
	case 1:
		h.displayUsage(c)
		return nil
	}

	key := strings.ToLower(c.Args[0])
	v, err := h.parseExpr(c.Args[1])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	reg := &h.cpu.Reg
	var flag *bool
	switch key {
	case "a":
		reg.A = byte(v)
	case "x":
		reg.X = byte(v)
	case "y":
		reg.Y = byte(v)
	case "sp":
		reg.SP = byte(v)
	case "pc", ".":
		reg.PC = uint16(v)
		h.printf("Register PC set to $%04X.\n", reg.PC)
		return nil
	case "n":
		flag = &reg.Negative
	case "v":
		flag = &reg.Overflow
	case "b":
		flag = &reg.Break
	case "d":
		flag = &reg.Decimal
	case "i":
		flag = &reg.InterruptDisable
	case "z":
		flag = &reg.Zero
	case "c":
		flag = &reg.Carry
	default:
		h.printf("Unknown register '%s'.\n", c.Args[0])
		return nil
	}

	if flag != nil {
		*flag = v != 0
		h.printf("Flag %s set to %v.\n", strings.ToUpper(key), *flag)
	} else {
		h.printf("Register %s set to $%02X.\n", strings.ToUpper(key), byte(v))
	}
	return nil
}

func (h *Host) cmdReset(c selection) error {
	h.cpu.Reset()
	h.println("CPU reset.")
	h.println(registerString(&h.cpu.Reg))
	return nil
}

func (h *Host) cmdSet(c selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()
		return nil
	case 1:
		h.displayUsage(c)
		return nil
	}

	key, value := c.Args[0], strings.Join(c.Args[1:], " ")

	var err error
	switch h.settings.Kind(key) {
	case reflect.Invalid:
		err = fmt.Errorf("setting '%s' not found", key)
	case reflect.Bool:
		var v bool
		v, err = stringToBool(value)
		if err == nil {
			err = h.settings.Set(key, v)
		}
	default:
		var v int64
		v, err = h.parseExpr(value)
		if err == nil {
			err = h.settings.Set(key, v)
		}
	}

	if err == nil {
		h.println("Setting updated.")
	} else {
		h.printf("%v\n", err)
	}
	return nil
}

func (h *Host) cmdStep(c selection) error {
	count := 1
	if len(c.Args) > 0 {
		n, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		count = int(n)
	}

	h.interrupted.Store(false)
	h.state, h.stepping = stateRunning, true
	for i := 0; i < count && h.state == stateRunning && !h.interrupted.Load(); i++ {
		if _, err := h.cpu.Step(); err != nil {
			h.printf("ERROR: %v.\n", err)
			break
		}
	}
	h.state, h.stepping = stateProcessingCommands, false
	h.reportInterrupt()
	return nil
}

// Run the CPU until at least 'budget' cycles have elapsed, a breakpoint or
// Break stops it, or it faults. Returns the number of cycles used.
func (h *Host) execute(budget int) (int, error) {
	h.interrupted.Store(false)
	h.state = stateRunning
	used, err := h.cpu.Execute(budget)
	h.state = stateProcessingCommands
	h.reportInterrupt()
	return used, err
}

func (h *Host) reportInterrupt() {
	if h.interrupted.Swap(false) {
		h.printf("Interrupted at $%04X.\n", h.cpu.Reg.PC)
	}
}

// Evaluate an expression argument. Identifiers are resolved as registers.
func (h *Host) parseExpr(s string) (int64, error) {
	p := exprParser{hexMode: h.settings.HexMode}
	v, err := p.Parse(s, h)
	if err != nil {
		return 0, fmt.Errorf("invalid expression '%s': %w", s, err)
	}
	return v, nil
}

func (h *Host) resolveIdentifier(s string) (int64, error) {
	r := &h.cpu.Reg
	switch strings.ToLower(s) {
	case "a":
		return int64(r.A), nil
	case "x":
		return int64(r.X), nil
	case "y":
		return int64(r.Y), nil
	case "sp":
		return int64(r.SP) | 0x100, nil
	case ".", "pc":
		return int64(r.PC), nil
	default:
		return 0, fmt.Errorf("identifier '%s' not found", s)
	}
}

func (h *Host) parseAddr(s string) (uint16, error) {
	v, err := h.parseExpr(s)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 0xffff {
		return 0, fmt.Errorf("address '%s' out of range", s)
	}
	return uint16(v), nil
}

func (h *Host) parseByte(s string) (byte, error) {
	v, err := h.parseExpr(s)
	if err != nil {
		return 0, err
	}
	if v < -128 || v > 0xff {
		return 0, fmt.Errorf("byte value '%s' out of range", s)
	}
	return byte(v), nil
}

// Parse the first argument of a command as an address, displaying usage
// or an error when it is missing or invalid.
func (h *Host) addrArg(c selection) (uint16, bool) {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return 0, false
	}
	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return 0, false
	}
	return addr, true
}

// Return the instruction at 'addr' along with the current register state
// and cycle count.
func (h *Host) statusString(addr uint16) string {
	inst := h.cpu.GetInstruction(addr)
	b := make([]byte, inst.Length)
	h.mem.LoadBytes(addr, b)

	name := inst.Name
	if inst.Mode != cpu.IMP {
		name += " " + inst.Mode.String()
	}
	return fmt.Sprintf("%04X-   %-8s    %-8s %s C=%d",
		addr, asm.ByteString(b), name, registerString(&h.cpu.Reg), h.cpu.Cycles)
}

func (h *Host) dumpMemory(addr0, span uint16) {
	addr1 := addr0 + span
	if addr1 < addr0 {
		addr1 = 0xffff
	}

	buf := []byte("    -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if addr1-addr0 < 8 {
		addrToBuf(addr0, buf[0:4])
		for a, c1, c2 := uint32(addr0), 6, 32; a <= uint32(addr1); a, c1, c2 = a+1, c1+3, c2+1 {
			m := h.mem.LoadByte(uint16(a))
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(string(buf))
		return
	}

	// Align addr0 and addr1 to 8-byte boundaries.
	start := uint32(addr0) & 0xfff8
	stop := min((uint32(addr1)+8)&0xffff8, 0x10000)

	a := start
	for r := start; r < stop; r += 8 {
		addrToBuf(uint16(a), buf[0:4])
		for c1, c2 := 6, 32; c1 < 29; c1, c2, a = c1+3, c2+1, a+1 {
			if a >= uint32(addr0) && a <= uint32(addr1) {
				m := h.mem.LoadByte(uint16(a))
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(string(buf))
	}
}

func (h *Host) displayUsage(c selection) {
	if cm, ok := c.Command.Data.(*command); ok {
		h.printf("Syntax: %s\n", cm.usage)
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) displayCommands(g *commandGroup) {
	if g.name == "" {
		h.println("Commands:")
	} else {
		h.printf("%s:\n", g.brief)
	}
	for _, c := range g.commands {
		h.printf("    %-15s  %s\n", c.name, c.brief)
	}
	if g.name == "" {
		for _, sub := range commandGroups[1:] {
			h.printf("    %-15s  %s\n", sub.name, sub.brief)
		}
	}
}

func (h *Host) onEmit(addr uint16, code []byte, cycles int) {
	h.printf("%04X-   %-8s    C=%d\n", addr, asm.ByteString(code), cycles)
}

func (h *Host) onStep(cpu *cpu.CPU, addr uint16) {
	if h.settings.Trace || h.stepping {
		h.println(h.statusString(addr))
	}
}

func (h *Host) onBreakpoint(cpu *cpu.CPU, b *cpu.Breakpoint) {
	if h.state != stateRunning {
		return
	}
	cpu.Stop()
	h.state = stateBreakpoint
	h.printf("Breakpoint hit at $%04X.\n", b.Address)
	h.displayPC()
}

func (h *Host) onDataBreakpoint(cpu *cpu.CPU, b *cpu.DataBreakpoint) {
	if h.state != stateRunning {
		return
	}
	cpu.Stop()
	h.state = stateBreakpoint
	h.printf("Data breakpoint hit on address $%04X by instruction at $%04X.\n", b.Address, cpu.LastPC)
}

func enabledString(enable bool) string {
	if enable {
		return "enabled"
	}
	return "disabled"
}
