package snescpu

// Serializer is a minimal position-based stream used for save states:
// each Bool/U8/U16/U64 call reads or writes the next field in a fixed
// order, mirroring the teacher's version-byte-plus-fixed-offset
// approach but generalized to a push/pull interface so callers can
// supply their own backing stream (buffer, file, network). Err reports
// the first buffer-too-small or version-mismatch condition encountered;
// once set, further field calls are no-ops.
type Serializer interface {
	Bool(v *bool)
	U8(v *uint8)
	U16(v *uint16)
	U64(v *uint64)
	Err() error
}

// Serialize streams the DMA controller's full state in the fixed order
// specified in §6: the four scheduling flags plus hdmaChannels and
// dmaStartClock and needToProcess, then each channel's 17 fields. It
// returns the first error s reports, e.g. a truncated or
// version-mismatched buffer on Deserialize.
func (d *DmaEngine) Serialize(s Serializer) error {
	s.Bool(&d.hdmaPending)
	s.U8(&d.hdmaChannels)
	s.Bool(&d.dmaPending)
	s.U64(&d.dmaStartClock)
	s.Bool(&d.hdmaInitPending)
	s.Bool(&d.dmaStartDelay)
	s.Bool(&d.needToProcess)

	for i := range d.channel {
		ch := &d.channel[i]
		s.Bool(&ch.Decrement)
		s.U8(&ch.DestAddress)
		s.Bool(&ch.DoTransfer)
		s.Bool(&ch.FixedTransfer)
		s.U8(&ch.HdmaBank)
		s.Bool(&ch.HdmaFinished)
		s.Bool(&ch.HdmaIndirectAddressing)
		s.U8(&ch.HdmaLineCounterAndRepeat)
		s.U16(&ch.HdmaTableAddress)
		s.Bool(&ch.InvertDirection)
		s.U16(&ch.SrcAddress)
		s.U8(&ch.SrcBank)
		s.U8(&ch.TransferMode)
		s.U16(&ch.TransferSize)
		s.Bool(&ch.UnusedFlag)
		s.Bool(&ch.DmaActive)
		s.U8(&ch.UnusedByte)
	}

	return s.Err()
}

// Serialize streams the CPU's full programmer-visible and
// interrupt-latch state. Bus/DmaEngine/InstructionSet references are
// not included; the caller must rewire them after Deserialize. It
// returns the first error s reports.
func (c *CpuCore) Serialize(s Serializer) error {
	s.U16(&c.A)
	s.U16(&c.X)
	s.U16(&c.Y)
	s.U16(&c.SP)
	s.U16(&c.D)
	s.U16(&c.PC)
	s.U8(&c.K)
	s.U8(&c.DBR)
	s.U8(&c.PS)
	s.Bool(&c.EmulationMode)
	s.U64(&c.CycleCount)

	stopState := uint8(c.StopState)
	s.U8(&stopState)
	c.StopState = StopState(stopState)

	s.Bool(&c.IrqLock)

	irqSource := uint8(c.IrqSource)
	s.U8(&irqSource)
	c.IrqSource = InterruptSource(irqSource)
	s.Bool(&c.NeedNmi)

	prevIrqSource := uint8(c.PrevIrqSource)
	s.U8(&prevIrqSource)
	c.PrevIrqSource = InterruptSource(prevIrqSource)
	s.Bool(&c.PrevNeedNmi)

	s.Bool(&c.NmiFlag)

	return s.Err()
}
