// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bufio"
	"bytes"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func runScript(t *testing.T, h *Host, script string) string {
	t.Helper()
	var out bytes.Buffer
	h.RunCommands(strings.NewReader(script), &out, false)
	return out.String()
}

func expectOutput(t *testing.T, out string, expected ...string) {
	t.Helper()
	for _, e := range expected {
		if !strings.Contains(out, e) {
			t.Errorf("output missing %q. got:\n%s", e, out)
		}
	}
}

func TestExecuteScript(t *testing.T) {
	h := New()
	out := runScript(t, h, `
assemble $1000 LDA #$42
assemble $1002 STA $0200
register pc $1000
execute 6
memory dump $0200 1
quit
`)

	expectOutput(t, out,
		"1000-   A9 42       C=2",
		"1002-   8D 00 02    C=4",
		"Register PC set to $1000.",
		"Executed 6 cycles.",
		"A=42 X=00 Y=00 PS=[--------] SP=00 PC=1005",
		"0200- 42",
	)
}

func TestInteractiveAssembly(t *testing.T) {
	h := New()
	out := runScript(t, h, `
assemble $2000
LDX #$80
LDY $10,X
end
register pc $2000
execute 6
`)

	expectOutput(t, out,
		"2000-   A2 80       C=2",
		"2002-   B4 10       C=6",
		"Assembled $2000..$2003 (6 cycles).",
		"Executed 6 cycles.",
	)
}

func TestUnsupportedOpcodeReported(t *testing.T) {
	h := New()
	out := runScript(t, h, `
memory set $1000 $A9 $01 $4C
register pc $1000
execute 100
`)

	expectOutput(t, out,
		"ERROR: unsupported opcode $4C at $1002.",
		"Executed 3 cycles.",
	)
}

func TestBreakpointStopsExecution(t *testing.T) {
	h := New()
	out := runScript(t, h, `
memory set $1000 $A9 $01 $A9 $02 $A9 $03
register pc $1000
breakpoint add $1004
execute 100
`)

	expectOutput(t, out,
		"Breakpoint added at $1004.",
		"Breakpoint hit at $1004.",
		"Executed 4 cycles.",
		"A=02",
	)
	if b := h.debugger.GetBreakpoint(0x1004); b == nil || b.Hits != 1 {
		t.Errorf("breakpoint not hit once: %+v", b)
	}
}

func TestDataBreakpointStopsExecution(t *testing.T) {
	h := New()
	out := runScript(t, h, `
memory set $1000 $A9 $07 $85 $20 $85 $21
register pc $1000
databreakpoint add $20 7
execute 100
`)

	expectOutput(t, out,
		"Conditional data breakpoint added at $0020 for value $07.",
		"Data breakpoint hit on address $0020 by instruction at $1002.",
		"Executed 5 cycles.",
	)
}

func TestStepRepeat(t *testing.T) {
	h := New()
	out := runScript(t, h, `
memory set $1000 $A2 $01 $A0 $02
register pc $1000
step

`)

	expectOutput(t, out,
		"1000-   A2 01       LDX IMM",
		"1002-   A0 02       LDY IMM",
		"PC=1004",
	)
	if h.cpu.Reg.Y != 0x02 {
		t.Errorf("Y incorrect. exp: $02, got: $%02X", h.cpu.Reg.Y)
	}
}

func TestLoadAndReset(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "prog.bin")
	if err := os.WriteFile(filename, []byte{0xa0, 0x99}, 0600); err != nil {
		t.Fatal(err)
	}

	h := New()
	out := runScript(t, h, "load "+filename+" $3000\nexecute 2\nreset\n")

	expectOutput(t, out,
		"Loaded 'prog.bin' to $3000..$3001.",
		"Executed 2 cycles.",
		"CPU reset.",
		"PC=FFFC",
	)
	if h.mem.LoadByte(0x3001) != 0x99 {
		t.Error("memory cleared by reset")
	}
}

func TestRegisterCommand(t *testing.T) {
	h := New()
	out := runScript(t, h, "register a $80\nregister n 1\nregister sp $F0\n")

	expectOutput(t, out,
		"Register A set to $80.",
		"Flag N set to true.",
		"Register SP set to $F0.",
	)
	if h.cpu.Reg.A != 0x80 || !h.cpu.Reg.Negative || h.cpu.Reg.SP != 0xf0 {
		t.Errorf("registers incorrect: %+v", h.cpu.Reg)
	}
}

func TestSettings(t *testing.T) {
	s := newSettings()

	if err := s.Set("memdump", int64(16)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("hex", true); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("nextmem", int64(0x1234)); err != nil {
		t.Fatal(err)
	}
	if s.MemDumpBytes != 16 || !s.HexMode || s.NextMemDumpAddr != 0x1234 {
		t.Errorf("settings incorrect: %+v", s)
	}

	if err := s.Set("trace", int64(1)); err == nil {
		t.Error("expected type error setting a bool from a number")
	}
	if k := s.Kind("zzz"); k != reflect.Invalid {
		t.Errorf("Kind of unknown setting incorrect. exp: Invalid, got: %v", k)
	}
	if k := s.Kind("step"); k != reflect.Int {
		t.Errorf("Kind of StepCycles incorrect. exp: int, got: %v", k)
	}

	var out bytes.Buffer
	s.Display(&out)
	expectOutput(t, out.String(), "MemDumpBytes     16", "NextMemDumpAddr  $1234")
}

func TestCommandLookup(t *testing.T) {
	h := New()
	out := runScript(t, h, `
ba $1004
bl
re
zzz
breakpoint
help breakpoint add
`)

	expectOutput(t, out,
		"Breakpoint added at $1004.",
		"$1004 true     0",
		"Command is ambiguous.",
		"Command not found.",
		"Syntax: breakpoint add <address>",
	)
	if strings.Count(out, "Command not found.") != 2 {
		t.Errorf("expected two lookup failures. got:\n%s", out)
	}
}

func TestExpressionArguments(t *testing.T) {
	h := New()
	out := runScript(t, h, `
memory set $1000 $A9 $01 $A9 $02 $A9 $03
register pc $1000
breakpoint add pc+4
memory set $2000+3 'A'
register x 2
memory dump $2000+x+1 1
memory dump $2000+ 1
set hex true
memory dump 2000+3 1
`)

	expectOutput(t, out,
		"Breakpoint added at $1004.",
		"Memory set at $2003..$2003.",
		"2003- 41",
		"invalid expression '$2000+': expression syntax error",
	)
	if strings.Count(out, "2003- 41") != 2 {
		t.Errorf("expected two dumps of $2003. got:\n%s", out)
	}
}

func TestMemoryDumpRepeatInHexMode(t *testing.T) {
	h := New()
	h.mem.StoreBytes(0x3010, []byte{0x5a})
	out := runScript(t, h, "set hex true\nmemory dump 3000 10\n\n")

	expectOutput(t, out, "3000-", "3010- 5A")
	if h.settings.NextMemDumpAddr != 0x3020 {
		t.Errorf("next dump address incorrect. exp: $3020, got: $%04X", h.settings.NextMemDumpAddr)
	}
}

func TestTraceExecution(t *testing.T) {
	h := New()
	out := runScript(t, h, `
memory set $1000 $A2 $01 $A0 $02
register pc $1000
set trace true
execute 4
`)

	expectOutput(t, out,
		"1000-   A2 01       LDX IMM",
		"1002-   A0 02       LDY IMM",
		"Executed 4 cycles.",
	)
}

func TestBreakDuringExecute(t *testing.T) {
	h := New()
	var out bytes.Buffer
	h.output = bufio.NewWriter(&out)

	// JSR $1000 calls itself forever.
	h.mem.StoreBytes(0x1000, []byte{0x20, 0x00, 0x10})
	h.cpu.SetPC(0x1000)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(time.Millisecond):
				h.Break()
			}
		}
	}()

	used, err := h.execute(math.MaxInt)
	close(done)

	if err != nil {
		t.Fatal(err)
	}
	if used <= 0 || used%6 != 0 {
		t.Errorf("cycles used incorrect. exp: a positive multiple of 6, got: %d", used)
	}
	if h.cpu.Reg.PC != 0x1000 {
		t.Errorf("PC incorrect. exp: $1000, got: $%04X", h.cpu.Reg.PC)
	}
	if h.state != stateProcessingCommands {
		t.Errorf("host still running after break")
	}
	expectOutput(t, out.String(), "Interrupted at $1000.")
}

func TestBreakWhileIdle(t *testing.T) {
	h := New()
	h.Break()
	out := runScript(t, h, `
memory set $1000 $A9 $01 $A9 $02
register pc $1000
execute 4
`)

	expectOutput(t, out, "Executed 4 cycles.", "A=02")
	if strings.Contains(out, "Interrupted") {
		t.Errorf("stale break interrupted execution. got:\n%s", out)
	}
}

func TestIndentWrap(t *testing.T) {
	s := indentWrap(3, strings.Repeat("word ", 30))
	for _, line := range strings.Split(s, "\n") {
		if len(line) > 80 || !strings.HasPrefix(line, "   word") {
			t.Errorf("bad wrapped line %q", line)
		}
	}
}
