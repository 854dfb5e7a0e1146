package snescpu

// InterruptSource is a bitmask of external IRQ lines (PPU H/V-IRQ,
// coprocessor, controller latch, etc.) that are OR'd together into a
// single level-sensitive signal.
type InterruptSource uint8

// InterruptSignals holds the raw and latched interrupt inputs shared
// between the external world (PPU, coprocessors) and CpuCore. IRQ is
// level-sensitive and aggregated by OR; NMI is a pulse, edge-detected
// once per bus cycle.
//
// The Prev* fields are sampled copies from the previous bus cycle:
// interrupt servicing reads these, never the live values, because the
// one-cycle latency is what real 65816 hardware observes.
type InterruptSignals struct {
	IrqSource InterruptSource
	NeedNmi   bool

	PrevIrqSource InterruptSource
	PrevNeedNmi   bool

	nmiLine bool // raw NMI input line, for edge detection
	NmiFlag bool // edge-detect latch, exposed for SetReg/debugger use
}

// SetIrqSource asserts or deasserts a single IRQ source bit. The
// aggregate IrqSource is the OR of every asserted source.
func (s *InterruptSignals) SetIrqSource(src InterruptSource, asserted bool) {
	if asserted {
		s.IrqSource |= src
	} else {
		s.IrqSource &^= src
	}
}

// SetNmiLine updates the raw NMI input line. The actual NeedNmi pulse
// is produced by DetectNmiSignalEdge, called once per bus cycle, so
// that repeated assertions while NMI is already pending coalesce into
// a single serviced interrupt.
func (s *InterruptSignals) SetNmiLine(asserted bool) {
	s.nmiLine = asserted
}

// DetectNmiSignalEdge samples the NMI line once per bus cycle and
// latches NeedNmi on a low-to-high transition.
func (s *InterruptSignals) DetectNmiSignalEdge() {
	if s.nmiLine && !s.NmiFlag {
		s.NeedNmi = true
	}
	s.NmiFlag = s.nmiLine
}
