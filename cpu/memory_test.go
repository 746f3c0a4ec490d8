package cpu_test

import (
	"testing"

	"github.com/beevik/cycle6502/cpu"
)

func TestFlatMemoryWrap(t *testing.T) {
	m := cpu.NewFlatMemory()
	m.StoreBytes(0xfffe, []byte{1, 2, 3, 4})

	for addr, exp := range map[uint16]byte{0xfffe: 1, 0xffff: 2, 0x0000: 3, 0x0001: 4} {
		if got := m.LoadByte(addr); got != exp {
			t.Errorf("byte at $%04X incorrect. exp: %d, got: %d", addr, exp, got)
		}
	}

	b := make([]byte, 4)
	m.LoadBytes(0xfffe, b)
	if b[0] != 1 || b[1] != 2 || b[2] != 3 || b[3] != 4 {
		t.Errorf("wrapped load incorrect: %v", b)
	}
}

func TestFlatMemoryReset(t *testing.T) {
	m := cpu.NewFlatMemory()
	m.StoreByte(0x1234, 0x56)
	m.Reset()
	if got := m.LoadByte(0x1234); got != 0 {
		t.Errorf("memory not cleared. got: $%02X", got)
	}
}

func TestCPUReset(t *testing.T) {
	c := runCPU(t, "LDX #$80", 2)
	if c == nil {
		return
	}
	c.Reg.SP = 0xf0
	c.Reset()

	expectPC(t, c, 0xfffc)
	expectSP(t, c, 0x00)
	expectPS(t, c, 0x00)
	if c.Reg.X != 0 {
		t.Errorf("X not cleared. got: $%02X", c.Reg.X)
	}
	// Memory and the cycle counter survive a reset.
	expectMem(t, c, 0x1000, 0xa2)
	expectCycles(t, c, 2)
}
