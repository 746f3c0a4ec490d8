// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/cycle6502/cpu"

// The hostHandler receives notifications from the cpu debugger and the
// instruction writer and forwards them to the host.
type hostHandler struct {
	host *Host
}

func newHostHandler(h *Host) *hostHandler {
	return &hostHandler{host: h}
}

func (h *hostHandler) OnBreakpoint(cpu *cpu.CPU, b *cpu.Breakpoint) {
	h.host.onBreakpoint(cpu, b)
}

func (h *hostHandler) OnStep(cpu *cpu.CPU, addr uint16) {
	h.host.onStep(cpu, addr)
}

func (h *hostHandler) OnDataBreakpoint(cpu *cpu.CPU, b *cpu.DataBreakpoint) {
	h.host.onDataBreakpoint(cpu, b)
}

func (h *hostHandler) OnEmit(addr uint16, code []byte, cycles int) {
	h.host.onEmit(addr, code, cycles)
}
