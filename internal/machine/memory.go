// Package machine implements the execution core (C6, C7, C8): the
// decoder's consumer, the fetch-decode-execute-writeback loop, the
// segmented memory model, and the per-cycle checkpoint writer.
package machine

import "fmt"

// Segment boundaries (§3). Addresses are routed by range, not by
// operation type (invariant c) — Memory is a single routing function
// over three independent byte maps, not a class hierarchy (§9).
const (
	InstrBase  = uint32(0x00000000)
	DataBase   = uint32(0x10000000)
	StackBase  = uint32(0x50000000)
	InitialSP  = uint32(0x7FFFFFFC)
	InstrLimit = DataBase
)

// Memory is the segmented address space: an instruction word map and
// two byte maps (data, stack), each independent.
type Memory struct {
	Instr map[uint32]uint32
	Data  map[uint32]byte
	Stack map[uint32]byte
}

// NewMemory returns an empty segmented memory.
func NewMemory() *Memory {
	return &Memory{
		Instr: make(map[uint32]uint32),
		Data:  make(map[uint32]byte),
		Stack: make(map[uint32]byte),
	}
}

// ErrInstructionRegion reports a runtime load/store into the
// instruction segment (§7 MemoryRegionInvalid): instruction memory is
// writable only at load time.
var ErrInstructionRegion = fmt.Errorf("machine: memory access in instruction region is invalid at runtime")

func inData(addr uint32) bool  { return addr >= DataBase && addr < StackBase }
func inStack(addr uint32) bool { return addr >= StackBase }

// LoadInstruction stores a 32-bit word at a word-aligned instruction
// address. Used only by the listing loader (C5); never called at
// runtime.
func (m *Memory) LoadInstruction(addr, word uint32) {
	m.Instr[addr] = word
}

// FetchInstruction returns the word stored at addr and whether one was
// present (§4.5 fetch: a FetchMiss is normal termination).
func (m *Memory) FetchInstruction(addr uint32) (uint32, bool) {
	w, ok := m.Instr[addr]
	return w, ok
}

// segmentByteMap returns the byte map addr routes to: Data for the data
// range, Stack for every other address. It never returns nil; callers
// reject instruction-region addresses before calling it.
func (m *Memory) segmentByteMap(addr uint32) map[uint32]byte {
	switch {
	case inData(addr):
		return m.Data
	default:
		// everything else (including the nominal stack range and any
		// address >= StackBase) is routed to the stack segment, per
		// the boundary adopted in §3/§9.
		return m.Stack
	}
}

// ReadByte reads one byte at addr. Reading an absent byte yields zero
// (invariant a). A runtime read from the instruction region is
// MemoryRegionInvalid.
func (m *Memory) ReadByte(addr uint32) (byte, error) {
	if addr < InstrLimit {
		return 0, ErrInstructionRegion
	}
	seg := m.segmentByteMap(addr)
	return seg[addr], nil
}

// WriteByte writes one byte at addr. A runtime write into the
// instruction region is MemoryRegionInvalid and is skipped, not
// fatal (§7).
func (m *Memory) WriteByte(addr uint32, v byte) error {
	if addr < InstrLimit {
		return ErrInstructionRegion
	}
	seg := m.segmentByteMap(addr)
	seg[addr] = v
	return nil
}

// ReadWord reads a little-endian 32-bit word starting at addr.
func (m *Memory) ReadWord(addr uint32) (uint32, error) {
	var w uint32
	for i := uint32(0); i < 4; i++ {
		b, err := m.ReadByte(addr + i)
		if err != nil {
			return 0, err
		}
		w |= uint32(b) << (8 * i)
	}
	return w, nil
}

// WriteWord writes a little-endian 32-bit word starting at addr.
func (m *Memory) WriteWord(addr uint32, w uint32) error {
	for i := uint32(0); i < 4; i++ {
		if err := m.WriteByte(addr+i, byte(w>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}

// ReadHalf reads a little-endian 16-bit half-word starting at addr.
func (m *Memory) ReadHalf(addr uint32) (uint16, error) {
	b0, err := m.ReadByte(addr)
	if err != nil {
		return 0, err
	}
	b1, err := m.ReadByte(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(b0) | uint16(b1)<<8, nil
}

// WriteHalf writes a little-endian 16-bit half-word starting at addr.
func (m *Memory) WriteHalf(addr uint32, v uint16) error {
	if err := m.WriteByte(addr, byte(v)); err != nil {
		return err
	}
	return m.WriteByte(addr+1, byte(v>>8))
}
