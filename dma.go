package snescpu

// HdmaChannelFlag OR's into DmaEngine.activeChannel to distinguish an
// HDMA transfer (bit set) from a general DMA transfer (bit clear) on
// the same channel index, for observers of GetActiveChannel.
const HdmaChannelFlag uint8 = 0x80

// transferByteCount is the number of bytes moved per transfer unit for
// each of the 8 DMA/HDMA transfer modes.
var transferByteCount = [8]uint8{1, 2, 2, 4, 4, 4, 2, 4}

// transferOffset is the B-bus destination-offset sequence for each
// transfer mode, four entries, normally indexed modulo 4. Modes 2 and
// 6 are functionally identical to mode 0, and modes 3 and 7 to mode 1
// — the duplication is intentional and required for faithful register
// read-back behavior (the low 3 bits of the control register are the
// only state, so the duplicate modes really do behave identically).
var transferOffset = [8][4]uint8{
	{0, 0, 0, 0},
	{0, 1, 0, 1},
	{0, 0, 0, 0},
	{0, 0, 1, 1},
	{0, 1, 2, 3},
	{0, 1, 0, 1},
	{0, 0, 0, 0},
	{0, 0, 1, 1},
}

// DmaChannelConfig is the register-visible and scheduling state of one
// of the eight DMA/HDMA channels.
type DmaChannelConfig struct {
	InvertDirection        bool  // false: CPU->PPU (B-bus); true: PPU->CPU
	HdmaIndirectAddressing bool  // HDMA uses indirect table format
	UnusedFlag             bool  // writable, unused by hardware; must read back
	Decrement              bool  // SrcAddress step direction (DMA only)
	FixedTransfer          bool  // suppress SrcAddress update (DMA only)
	TransferMode           uint8 // 0..7
	DestAddress            uint8 // offset added to 0x2100
	SrcAddress             uint16
	SrcBank                uint8
	TransferSize           uint16 // DMA: bytes remaining; indirect HDMA: current indirect pointer
	HdmaBank               uint8  // bank for indirect HDMA reads
	HdmaTableAddress       uint16 // cursor into HDMA table
	HdmaLineCounterAndRepeat uint8 // bit 7 = Repeat, bits 6..0 = lines remaining
	UnusedByte             uint8  // offsets 0x0B and 0x0F share this storage

	DmaActive    bool // general DMA: channel currently mid-transfer
	DoTransfer   bool // HDMA: perform transfer this scanline?
	HdmaFinished bool // HDMA: channel terminated for this frame
}

// DmaEngine is the eight-channel DMA/HDMA controller: register window,
// scheduling state, and the transfer algorithms that steal master-clock
// cycles from the CPU.
type DmaEngine struct {
	bus     Bus
	channel [8]DmaChannelConfig

	hdmaChannels   uint8 // bitmask of HDMA-enabled channels
	hdmaPending    bool
	hdmaInitPending bool
	dmaPending     bool
	dmaStartDelay  bool
	needToProcess  bool

	dmaStartClock uint64
	activeChannel uint8
}

// NewDmaEngine creates a DmaEngine wired to bus, resets its scheduling
// state, and fills every channel's $4300-$430A registers with 0xFF —
// the one-time power-on register fill real hardware performs. A later
// Reset() does not repeat this fill (see SPEC_FULL.md).
func NewDmaEngine(bus Bus) *DmaEngine {
	d := &DmaEngine{bus: bus}
	d.Reset()
	for ch := 0; ch < 8; ch++ {
		for reg := 0; reg <= 0x0A; reg++ {
			d.Write(uint16(0x4300|reg|(ch<<4)), 0xFF)
		}
	}
	return d
}

// Reset clears all scheduling flags and marks every channel inactive.
// It does not touch the $43xx register file.
func (d *DmaEngine) Reset() {
	d.hdmaChannels = 0
	d.hdmaPending = false
	d.hdmaInitPending = false
	d.dmaStartDelay = false
	d.dmaPending = false
	d.needToProcess = false

	for i := range d.channel {
		d.channel[i].DmaActive = false
	}
}

// GetActiveChannel returns the channel currently running a transfer,
// OR'd with HdmaChannelFlag when it is an HDMA (rather than general
// DMA) transfer.
func (d *DmaEngine) GetActiveChannel() uint8 { return d.activeChannel }

// GetChannelConfig returns a copy of one channel's register state.
func (d *DmaEngine) GetChannelConfig(channel uint8) DmaChannelConfig {
	return d.channel[channel]
}

// copyDmaByte moves one byte between the A-bus address addressBusA and
// the B-bus address addressBusB (0x2100-0x21FF), honoring the $2180
// work-RAM DMA quirk: a CPU->PPU transfer into $2180 sourced from work
// RAM performs neither the read nor the write; a PPU->CPU transfer out
// of $2180 into work RAM performs the write (with an invalid 0xFF
// value) but suppresses the read.
func (d *DmaEngine) copyDmaByte(addressBusA uint32, addressBusB uint16, fromBtoA bool) {
	if fromBtoA {
		if addressBusB != 0x2180 || !d.bus.IsWorkRam(addressBusA) {
			value := d.bus.ReadDma(uint32(addressBusB), false)
			d.bus.WriteDma(addressBusA, value, true)
		} else {
			// $2180 -> WRAM causes a write but no read; the value
			// written is invalid.
			d.bus.IncMasterClock4()
			d.bus.WriteDma(addressBusA, 0xFF, true)
		}
	} else {
		if addressBusB != 0x2180 || !d.bus.IsWorkRam(addressBusA) {
			value := d.bus.ReadDma(addressBusA, true)
			d.bus.WriteDma(uint32(addressBusB), value, false)
		} else {
			// WRAM -> $2180 does not cause a write to occur.
			d.bus.IncMasterClock8()
		}
	}
}

// RunDma executes a general-DMA transfer to completion for one
// channel, recursively yielding to any HDMA transfer that becomes
// pending mid-channel. The recursion depth here is bounded to 1 (DMA
// yielding once to HDMA); HDMA's own scheduler never re-enters DMA.
func (d *DmaEngine) RunDma(channel *DmaChannelConfig) {
	if !channel.DmaActive {
		return
	}

	// 8 master cycles overhead, then 8 per byte transferred.
	d.bus.IncMasterClock8()
	d.ProcessPendingTransfers()

	offsets := transferOffset[channel.TransferMode]

	i := uint8(0)
	for {
		d.copyDmaByte(
			uint32(channel.SrcBank)<<16|uint32(channel.SrcAddress),
			0x2100|(uint16(channel.DestAddress)+uint16(offsets[i&0x03])),
			channel.InvertDirection,
		)

		if !channel.FixedTransfer {
			if channel.Decrement {
				channel.SrcAddress--
			} else {
				channel.SrcAddress++
			}
		}

		channel.TransferSize--
		i++
		d.ProcessPendingTransfers()

		if channel.TransferSize == 0 || !channel.DmaActive {
			break
		}
	}

	channel.DmaActive = false
}

// hasActiveDmaChannel reports whether any channel is mid general-DMA
// transfer, used to decide whether SyncStartDma/SyncEndDma are needed
// (a nested HDMA interrupting an in-progress DMA round must not
// re-sync).
func (d *DmaEngine) hasActiveDmaChannel() bool {
	for i := range d.channel {
		if d.channel[i].DmaActive {
			return true
		}
	}
	return false
}

// InitHdmaChannels runs the once-per-frame HDMA setup: resets
// DoTransfer/HdmaFinished on all eight channels unconditionally (this
// matters even for disabled channels — some games, e.g. Aladdin and
// Super Ghouls 'n Ghosts, rely on it), then primes every enabled
// channel's table cursor and line counter, and its indirect pointer if
// applicable.
func (d *DmaEngine) InitHdmaChannels() bool {
	d.hdmaInitPending = false

	for i := range d.channel {
		d.channel[i].HdmaFinished = false
		d.channel[i].DoTransfer = false
	}

	if d.hdmaChannels == 0 {
		d.updateNeedToProcessFlag()
		return false
	}

	needSync := !d.hasActiveDmaChannel()
	if needSync {
		d.SyncStartDma()
	}
	d.bus.IncMasterClock8()

	for i := range d.channel {
		ch := &d.channel[i]
		ch.DoTransfer = true

		if d.hdmaChannels&(1<<uint(i)) == 0 {
			continue
		}

		ch.HdmaTableAddress = ch.SrcAddress
		ch.DmaActive = false

		ch.HdmaLineCounterAndRepeat = d.bus.ReadDma(uint32(ch.SrcBank)<<16|uint32(ch.HdmaTableAddress), true)
		d.bus.IncMasterClock4()
		ch.HdmaTableAddress++

		if ch.HdmaLineCounterAndRepeat == 0 {
			ch.HdmaFinished = true
		}

		if ch.HdmaIndirectAddressing {
			lsb := d.bus.ReadDma(uint32(ch.SrcBank)<<16|uint32(ch.HdmaTableAddress), true)
			ch.HdmaTableAddress++
			d.bus.IncMasterClock4()

			msb := d.bus.ReadDma(uint32(ch.SrcBank)<<16|uint32(ch.HdmaTableAddress), true)
			ch.HdmaTableAddress++
			d.bus.IncMasterClock4()

			ch.TransferSize = uint16(msb)<<8 | uint16(lsb)
		}
	}

	if needSync {
		d.SyncEndDma()
	}

	d.updateNeedToProcessFlag()
	return true
}

// RunHdmaTransfer performs the transfer phase for one scanline on one
// channel: transferByteCount[TransferMode] bytes, direct form reading
// from the HDMA table (advancing HdmaTableAddress), indirect form
// reading through the indirect pointer (advancing TransferSize).
func (d *DmaEngine) RunHdmaTransfer(channel *DmaChannelConfig) {
	offsets := transferOffset[channel.TransferMode]
	count := transferByteCount[channel.TransferMode]
	channel.DmaActive = false

	if channel.HdmaIndirectAddressing {
		for i := uint8(0); i < count; i++ {
			d.copyDmaByte(
				uint32(channel.HdmaBank)<<16|uint32(channel.TransferSize),
				0x2100|(uint16(channel.DestAddress)+uint16(offsets[i])),
				channel.InvertDirection,
			)
			channel.TransferSize++
		}
	} else {
		for i := uint8(0); i < count; i++ {
			d.copyDmaByte(
				uint32(channel.SrcBank)<<16|uint32(channel.HdmaTableAddress),
				0x2100|(uint16(channel.DestAddress)+uint16(offsets[i])),
				channel.InvertDirection,
			)
			channel.HdmaTableAddress++
		}
	}
}

// SyncStartDma waits 2-8 master cycles to reach a whole multiple of 8
// master cycles since reset, and snapshots the clock for SyncEndDma.
func (d *DmaEngine) SyncStartDma() {
	d.dmaStartClock = d.bus.GetMasterClock()
	d.bus.IncrementMasterClockValue(8 - uint8(d.bus.GetMasterClock()&0x07))
}

// SyncEndDma waits 1 to cpuSpeed master cycles (a full cpuSpeed when
// already aligned) to reach a whole number of CPU-speed-sized cycles
// since the SyncStartDma snapshot. cpuSpeed is
// assumed to be one of {6, 8, 12}; the modular arithmetic below is
// undefined (per spec.md's Open Question) for other speeds, and is not
// otherwise guarded against them.
func (d *DmaEngine) SyncEndDma() {
	cpuSpeed := d.bus.GetCpuSpeed()
	elapsed := d.bus.GetMasterClock() - d.dmaStartClock
	d.bus.IncrementMasterClockValue(cpuSpeed - uint8(elapsed%uint64(cpuSpeed)))
}

// isLastActiveHdmaChannel reports whether no channel with a higher
// index than channel is both HDMA-enabled and not yet finished.
func (d *DmaEngine) isLastActiveHdmaChannel(channel int) bool {
	for i := channel + 1; i < 8; i++ {
		if d.hdmaChannels&(1<<uint(i)) != 0 && !d.channel[i].HdmaFinished {
			return false
		}
	}
	return true
}

// ProcessHdmaChannels runs the per-scanline HDMA transfer: phase 1
// copies bytes for every enabled, not-finished, DoTransfer channel;
// phase 2 advances each enabled, not-finished channel's line counter
// and, on reload, its table cursor (and indirect pointer).
func (d *DmaEngine) ProcessHdmaChannels() bool {
	d.hdmaPending = false

	if d.hdmaChannels == 0 {
		d.updateNeedToProcessFlag()
		return false
	}

	needSync := !d.hasActiveDmaChannel()
	if needSync {
		d.SyncStartDma()
	}
	d.bus.IncMasterClock8()

	originalActiveChannel := d.activeChannel

	for i := range d.channel {
		ch := &d.channel[i]
		if d.hdmaChannels&(1<<uint(i)) == 0 {
			continue
		}

		ch.DmaActive = false
		if ch.HdmaFinished {
			continue
		}

		if ch.DoTransfer {
			d.activeChannel = HdmaChannelFlag | uint8(i)
			d.RunHdmaTransfer(ch)
		}
	}

	for i := range d.channel {
		ch := &d.channel[i]
		if d.hdmaChannels&(1<<uint(i)) == 0 || ch.HdmaFinished {
			continue
		}

		ch.HdmaLineCounterAndRepeat--
		ch.DoTransfer = ch.HdmaLineCounterAndRepeat&0x80 != 0

		// Unconditionally read the next table byte; it is discarded
		// unless the 7-bit line counter just reached 0.
		newCounter := d.bus.ReadDma(uint32(ch.SrcBank)<<16|uint32(ch.HdmaTableAddress), true)
		d.bus.IncMasterClock4()

		if ch.HdmaLineCounterAndRepeat&0x7F == 0 {
			ch.HdmaLineCounterAndRepeat = newCounter
			ch.HdmaTableAddress++

			if ch.HdmaIndirectAddressing {
				if ch.HdmaLineCounterAndRepeat == 0 && d.isLastActiveHdmaChannel(i) {
					// One oddity: if $43xA is 0 and this is the last
					// active HDMA channel this scanline, only the
					// high byte of the next indirect address is
					// loaded; the low byte becomes 0, the table
					// address advances one, and one fewer CPU cycle
					// is spent.
					msb := d.bus.ReadDma(uint32(ch.SrcBank)<<16|uint32(ch.HdmaTableAddress), true)
					ch.HdmaTableAddress++
					d.bus.IncMasterClock4()
					ch.TransferSize = uint16(msb) << 8
				} else {
					lsb := d.bus.ReadDma(uint32(ch.SrcBank)<<16|uint32(ch.HdmaTableAddress), true)
					ch.HdmaTableAddress++
					d.bus.IncMasterClock4()

					msb := d.bus.ReadDma(uint32(ch.SrcBank)<<16|uint32(ch.HdmaTableAddress), true)
					ch.HdmaTableAddress++
					d.bus.IncMasterClock4()

					ch.TransferSize = uint16(msb)<<8 | uint16(lsb)
				}
			}

			if ch.HdmaLineCounterAndRepeat == 0 {
				ch.HdmaFinished = true
			}

			ch.DoTransfer = true
		}
	}

	if needSync {
		d.SyncEndDma()
	}

	d.activeChannel = originalActiveChannel
	d.updateNeedToProcessFlag()
	return true
}

// updateNeedToProcessFlag recomputes the cached OR of the four
// scheduling flags, so ProcessPendingTransfers can early-out with one
// comparison on the (much hotter) per-cycle call path.
func (d *DmaEngine) updateNeedToProcessFlag() {
	d.needToProcess = d.hdmaPending || d.hdmaInitPending || d.dmaStartDelay || d.dmaPending
}

// BeginHdmaTransfer schedules the per-scanline HDMA pass, if any HDMA
// channel is enabled.
func (d *DmaEngine) BeginHdmaTransfer() {
	if d.hdmaChannels != 0 {
		d.hdmaPending = true
		d.updateNeedToProcessFlag()
	}
}

// BeginHdmaInit schedules the once-per-frame HDMA init pass.
func (d *DmaEngine) BeginHdmaInit() {
	d.hdmaInitPending = true
	d.updateNeedToProcessFlag()
}

// ProcessPendingTransfers is called from every CPU bus cycle. It
// serves at most one pending category per call, in priority order
// HDMA transfer > HDMA init > general DMA, and reports whether it
// consumed cycles — the CPU uses this to suppress IRQ/NMI latching for
// the duration of the stall.
func (d *DmaEngine) ProcessPendingTransfers() bool {
	if !d.needToProcess {
		return false
	}

	if d.dmaStartDelay {
		// The first scheduled call after MDMAEN is written is
		// suppressed: hardware observes a one-cycle start delay.
		d.dmaStartDelay = false
		return false
	}

	switch {
	case d.hdmaPending:
		return d.ProcessHdmaChannels()

	case d.hdmaInitPending:
		return d.InitHdmaChannels()

	case d.dmaPending:
		d.dmaPending = false

		d.SyncStartDma()
		d.bus.IncMasterClock8()
		d.ProcessPendingTransfers()

		for i := range d.channel {
			if d.channel[i].DmaActive {
				d.activeChannel = uint8(i)
				d.RunDma(&d.channel[i])
			}
		}

		d.SyncEndDma()
		d.updateNeedToProcessFlag()
		return true
	}

	return false
}
