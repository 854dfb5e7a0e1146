package snescpu

// ProcessInterrupt services an NMI or IRQ: pushes the return PC, the
// program bank (native mode only) and PS, clears the decimal flag,
// sets the IRQ-disable flag, and loads PC from vector. forInterrupt is
// true for hardware NMI/IRQ (as opposed to BRK/COP software
// interrupts, which push the same frame but advance PC past the
// instruction before calling in).
//
// Cycle cost: two internal idle cycles, three pushes (PC high, PC low,
// PS — plus K in native mode), and the two-byte vector read, matching
// the fixed 65816 interrupt-acknowledge sequence.
func (c *CpuCore) ProcessInterrupt(vector uint16, forInterrupt bool) {
	c.Idle()
	c.Idle()

	if !c.EmulationMode {
		c.pushByte(c.K)
	}
	c.pushByte(byte(c.PC >> 8))
	c.pushByte(byte(c.PC))

	ps := c.PS
	if c.EmulationMode {
		// Bit 4 is the X flag in native mode but the pushed B (break)
		// flag in emulation mode: clear for a hardware NMI/IRQ, set
		// for a software BRK/COP entering through the same path.
		if forInterrupt {
			ps &^= uint8(FlagIndex8)
		} else {
			ps |= uint8(FlagIndex8)
		}
	}
	c.pushByte(ps)

	c.SetCpuProcFlag(FlagDecimal, false)
	c.SetCpuProcFlag(FlagIrqDisable, true)

	c.K = 0
	c.PC = c.ReadVector(vector)
}

// pushByte pushes one byte onto the stack at SP and decrements SP,
// matching the 65816's byte-addressed stack (unlike the word-aligned
// 68000 stack some other architectures in this family use).
func (c *CpuCore) pushByte(value uint8) {
	c.Write(0x000000|uint32(c.SP), value, MemOpWrite)
	c.SP--
}
