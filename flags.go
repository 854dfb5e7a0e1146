package snescpu

// ProcFlag is a single bit of the 65816 processor-status register
// (PS). The instruction set manipulates PS as a whole byte, so it is
// kept here as named bit masks rather than individual bool fields.
type ProcFlag uint8

const (
	FlagCarry      ProcFlag = 1 << 0 // C
	FlagZero       ProcFlag = 1 << 1 // Z
	FlagIrqDisable ProcFlag = 1 << 2 // I
	FlagDecimal    ProcFlag = 1 << 3 // D
	FlagIndex8     ProcFlag = 1 << 4 // X (native) / B, the pushed break flag (emulation)
	FlagMemory8    ProcFlag = 1 << 5 // M (native only; always set in emulation mode)
	FlagOverflow   ProcFlag = 1 << 6 // V
	FlagNegative   ProcFlag = 1 << 7 // N
)

// CpuRegister enumerates the registers SetReg can target, for
// debugger/test use.
type CpuRegister uint8

const (
	RegA CpuRegister = iota
	RegX
	RegY
	RegSP
	RegD
	RegPC
	RegK
	RegDBR
	RegPS
	RegNmiFlag
)

// StopState is the CPU's run/stall mode.
type StopState uint8

const (
	StopStateRunning StopState = iota
	StopStateStopped
	StopStateWaitingForIrq
)
