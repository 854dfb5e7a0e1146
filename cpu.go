package snescpu

// InstructionSet is the external opcode dispatch table: it decodes the
// byte at the current PC and executes it, calling back into the
// CpuCore's Read/Write/Idle primitives for every bus cycle the
// instruction takes. Decode tables and per-opcode microcode are out of
// scope for this module.
type InstructionSet interface {
	RunOp(c *CpuCore)
}

// VectorSource supplies the 16-bit vector CpuCore jumps through on an
// interrupt (Reset always reads the reset vector from the bus with
// PeekWord). The base implementation reads it from the bus; an
// SA-1-style coprocessor variant can substitute a fixed value by
// implementing this interface and calling SetVectorSource, without
// subclassing CpuCore.
type VectorSource interface {
	ReadVector(vector uint16) uint16
}

// BranchTimingHook lets a coprocessor variant (e.g. SA-1) observe the
// idle cycles spent at the end of a jump or a taken branch, which it
// may time differently from the base 65816.
type BranchTimingHook interface {
	IdleEndJump()
	IdleTakeBranch()
}

// InterruptObserver is notified whenever the CPU vectors through NMI
// or IRQ. It is the only externally visible event the core emits
// (Design Notes §9); preserve the signature for tooling compatibility.
type InterruptObserver interface {
	OnCpuInterrupt(originalPC, newPC uint32, isNmi bool)
}

// CpuState is the programmer-visible register snapshot returned by
// GetState; it has no methods and is safe to copy.
type CpuState struct {
	A, X, Y, SP, D, PC uint16
	K, DBR, PS         uint8
	EmulationMode      bool
	CycleCount         uint64
	StopState          StopState
	IrqSource          InterruptSource
	NeedNmi            bool
	IrqLock            bool
}

// CpuCore is the 65816 execution shell: registers, processor-status
// flags, stop states, and the per-cycle bus driver that coordinates
// with a DmaEngine on every access.
type CpuCore struct {
	InterruptSignals

	A, X, Y, SP, D, PC uint16
	K, DBR, PS         uint8
	EmulationMode      bool
	CycleCount         uint64
	StopState          StopState
	IrqLock            bool

	immediateMode bool

	bus          Bus
	dma          *DmaEngine
	instructions InstructionSet

	vectorSource VectorSource
	branchHook   BranchTimingHook
	observer     InterruptObserver
}

// NewCpuCore creates a CpuCore wired to bus and dma, using instructions
// for opcode dispatch, and performs a power-on Reset.
func NewCpuCore(bus Bus, dma *DmaEngine, instructions InstructionSet) *CpuCore {
	c := &CpuCore{bus: bus, dma: dma, instructions: instructions}
	c.Reset()
	return c
}

// SetVectorSource overrides vector fetches, e.g. for an SA-1 variant
// that returns vectors directly instead of loading them from ROM.
func (c *CpuCore) SetVectorSource(v VectorSource) { c.vectorSource = v }

// SetBranchTimingHook overrides end-of-jump/taken-branch idle timing.
func (c *CpuCore) SetBranchTimingHook(h BranchTimingHook) { c.branchHook = h }

// SetInterruptObserver registers the callback invoked when an NMI or
// IRQ is serviced.
func (c *CpuCore) SetInterruptObserver(o InterruptObserver) { c.observer = o }

// Reset fetches the 16-bit reset vector from the bus and initializes
// registers to the documented 65816 power-on state: emulation mode,
// 8-bit index registers, interrupts masked, SP = 0x01FF, PC loaded from
// the reset vector (always read through the emulation-mode path).
func (c *CpuCore) Reset() {
	c.A, c.X, c.Y = 0, 0, 0
	c.D = 0
	c.K, c.DBR = 0, 0
	c.SP = 0x01FF
	c.EmulationMode = true
	c.PS = uint8(FlagIrqDisable | FlagIndex8 | FlagMemory8)
	c.CycleCount = 0
	c.StopState = StopStateRunning
	c.IrqLock = false
	c.InterruptSignals = InterruptSignals{}
	c.immediateMode = false

	c.PC = c.bus.PeekWord(uint32(VectorReset))
}

// Exec advances the CPU by one instruction, or by one stalled/idle
// cycle while stopped or waiting for an interrupt.
func (c *CpuCore) Exec() {
	c.immediateMode = false

	switch c.StopState {
	case StopStateRunning:
		c.instructions.RunOp(c)

	case StopStateStopped:
		// STP was executed: the CPU never runs bus cycles again until
		// a hardware reset, only the master clock advances.
		c.bus.IncMasterClock4()
		return

	case StopStateWaitingForIrq:
		// WAI: idle until an interrupt source asserts, then spend two
		// more idle cycles and resume Running. The interrupt itself is
		// serviced by the normal check below, in this same Exec call.
		c.Idle()
		if c.IrqSource != 0 || c.NeedNmi {
			c.Idle()
			c.Idle()
			c.StopState = StopStateRunning
		}
	}

	// Use the latched (previous-cycle) IRQ/NMI state, never the live
	// one: this one-cycle delay is mandatory for cycle-accurate
	// interrupt timing (spec invariant).
	if c.PrevNeedNmi {
		c.NeedNmi = false
		originalPC := c.programAddress(c.PC)
		nmiVector := VectorNmiNative
		if c.EmulationMode {
			nmiVector = VectorNmiLegacy
		}
		c.ProcessInterrupt(nmiVector, true)
		if c.observer != nil {
			c.observer.OnCpuInterrupt(originalPC, c.programAddress(c.PC), true)
		}
	} else if c.PrevIrqSource != 0 {
		originalPC := c.programAddress(c.PC)
		irqVector := VectorIrqNative
		if c.EmulationMode {
			irqVector = VectorIrqLegacy
		}
		c.ProcessInterrupt(irqVector, false)
		if c.observer != nil {
			c.observer.OnCpuInterrupt(originalPC, c.programAddress(c.PC), false)
		}
	}
}

// programAddress folds a bank byte and a 16-bit offset into a 24-bit
// program address, as used by the interrupt observer callback.
func (c *CpuCore) programAddress(pc uint16) uint32 {
	return uint32(c.K)<<16 | uint32(pc)
}

// Idle performs one CPU bus cycle with no underlying memory access:
// fixed 6 master-cycle cost.
func (c *CpuCore) Idle() {
	c.bus.SetCpuSpeed(6)
	c.processCpuCycle()
	c.bus.IncMasterClock6()
	c.updateIrqNmiFlags()
}

// IdleEndJump is a hook point for coprocessor variants that time the
// idle cycle at the end of a jump differently; the base 65816 performs
// no extra work here.
func (c *CpuCore) IdleEndJump() {
	if c.branchHook != nil {
		c.branchHook.IdleEndJump()
	}
}

// IdleTakeBranch is the equivalent hook for a taken branch.
func (c *CpuCore) IdleTakeBranch() {
	if c.branchHook != nil {
		c.branchHook.IdleTakeBranch()
	}
}

// processCpuCycle is the per-cycle housekeeping shared by every bus
// primitive: bump the cycle counter, sample the NMI edge, and let any
// pending DMA/HDMA transfer steal cycles before the access proceeds.
func (c *CpuCore) processCpuCycle() {
	c.CycleCount++
	c.DetectNmiSignalEdge()
	c.IrqLock = c.dma.ProcessPendingTransfers()
}

// updateIrqNmiFlags latches the live IRQ/NMI inputs into the Prev*
// fields used by interrupt servicing, unless a DMA transfer is
// currently stealing cycles (IrqLock), in which case latching is
// suppressed for the duration of the stall.
func (c *CpuCore) updateIrqNmiFlags() {
	if !c.IrqLock {
		c.PrevIrqSource = c.IrqSource
		c.PrevNeedNmi = c.NeedNmi
	}
}

// ReadVector reads a 16-bit vector, overridable via SetVectorSource for
// coprocessor variants that don't source vectors from ROM.
func (c *CpuCore) ReadVector(vector uint16) uint16 {
	if c.vectorSource != nil {
		return c.vectorSource.ReadVector(vector)
	}
	lo := c.Read(uint32(vector), MemOpRead)
	hi := c.Read(uint32(vector)+1, MemOpRead)
	return uint16(hi)<<8 | uint16(lo)
}

// Read performs one CPU bus read cycle: set the per-address CPU speed,
// run the per-cycle housekeeping (which may let DMA steal cycles),
// perform the access, advance the master clock, then re-latch the
// interrupt inputs.
func (c *CpuCore) Read(addr uint32, kind MemoryOperationType) uint8 {
	c.bus.SetCpuSpeed(c.bus.GetCpuSpeedForAddress(addr))
	c.processCpuCycle()
	value := c.bus.Read(addr, kind)
	c.bus.IncrementMasterClockValue(c.bus.GetCpuSpeed())
	c.updateIrqNmiFlags()
	return value
}

// Write is the write counterpart of Read.
func (c *CpuCore) Write(addr uint32, value uint8, kind MemoryOperationType) {
	c.bus.SetCpuSpeed(c.bus.GetCpuSpeedForAddress(addr))
	c.processCpuCycle()
	c.bus.Write(addr, value, kind)
	c.bus.IncrementMasterClockValue(c.bus.GetCpuSpeed())
	c.updateIrqNmiFlags()
}

// SetReg is a debugger/test hook for setting individual registers
// directly, bypassing instruction execution.
func (c *CpuCore) SetReg(reg CpuRegister, value uint16) {
	switch reg {
	case RegA:
		c.A = value
	case RegX:
		c.X = value
	case RegY:
		c.Y = value
	case RegSP:
		c.SP = value
	case RegD:
		c.D = value
	case RegPC:
		c.PC = value
	case RegK:
		c.K = uint8(value)
	case RegDBR:
		c.DBR = uint8(value)
	case RegPS:
		c.PS = uint8(value)
	case RegNmiFlag:
		c.NmiFlag = value != 0
	}
}

// GetCpuProcFlag reports whether a single bit of PS is set.
func (c *CpuCore) GetCpuProcFlag(flag ProcFlag) bool {
	return c.PS&uint8(flag) != 0
}

// SetCpuProcFlag sets or clears a single bit of PS.
func (c *CpuCore) SetCpuProcFlag(flag ProcFlag, set bool) {
	if set {
		c.PS |= uint8(flag)
	} else {
		c.PS &^= uint8(flag)
	}
}

// GetCycleCount returns the total number of CPU bus/idle cycles
// processed since the last Reset.
func (c *CpuCore) GetCycleCount() uint64 { return c.CycleCount }

// GetState returns a snapshot of the programmer-visible register and
// interrupt-signal state.
func (c *CpuCore) GetState() CpuState {
	return CpuState{
		A: c.A, X: c.X, Y: c.Y, SP: c.SP, D: c.D, PC: c.PC,
		K: c.K, DBR: c.DBR, PS: c.PS,
		EmulationMode: c.EmulationMode,
		CycleCount:    c.CycleCount,
		StopState:     c.StopState,
		IrqSource:     c.IrqSource,
		NeedNmi:       c.NeedNmi,
		IrqLock:       c.IrqLock,
	}
}
