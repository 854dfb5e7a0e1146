// Package snescpu implements the cycle-accurate CPU execution shell and
// DMA/HDMA controller of a SNES emulator core: a 65816-family processor
// driven one bus cycle at a time, plus the eight-channel DMA/HDMA
// controller it shares a master clock with.
//
// Instruction decode and per-opcode microcode are out of scope: callers
// supply an InstructionSet, and the memory map, work RAM, cartridge
// mappers and PPU/APU registers sit behind the Bus interface.
package snescpu

// MemoryOperationType tags a bus access so the memory layer (outside
// this module) can distinguish CPU traffic from DMA traffic, and
// opcode fetches from operand/data accesses.
type MemoryOperationType uint8

const (
	MemOpExecOpCode MemoryOperationType = iota
	MemOpExecOperand
	MemOpRead
	MemOpWrite
	MemOpDummyRead
	MemOpDmaRead
	MemOpDmaWrite
)

// Bus is the external memory map abstraction the core reads and writes
// through. It owns the master clock: every Read/Write may itself
// advance the clock via side registers, in addition to the CPU-speed
// increment the core applies around the call.
type Bus interface {
	Read(addr uint32, kind MemoryOperationType) uint8
	Write(addr uint32, value uint8, kind MemoryOperationType)

	// PeekWord reads two bytes little-endian with no side effects.
	// Used for vector fetches that must not perturb timing.
	PeekWord(addr uint32) uint16

	// ReadDma/WriteDma are the DMA-tagged counterparts of Read/Write.
	// isBusA distinguishes the A-bus (CPU address space) from the
	// B-bus (PPU/APU register window at 0x2100-0x21FF).
	ReadDma(addr uint32, isBusA bool) uint8
	WriteDma(addr uint32, value uint8, isBusA bool)

	// IsWorkRam reports whether addr maps to console work RAM, used to
	// gate the $2180 work-RAM DMA quirk.
	IsWorkRam(addr uint32) bool

	// GetCpuSpeed returns the speed set by the most recent SetCpuSpeed
	// call. GetCpuSpeedForAddress looks up the per-region access time
	// (6, 8 or 12 master cycles) for addr without changing state.
	GetCpuSpeed() uint8
	GetCpuSpeedForAddress(addr uint32) uint8
	SetCpuSpeed(speed uint8)

	IncMasterClock4()
	IncMasterClock6()
	IncMasterClock8()
	IncrementMasterClockValue(cycles uint8)
	GetMasterClock() uint64

	// GetOpenBus returns the floating-bus value for unmapped reads.
	GetOpenBus() uint8
}
