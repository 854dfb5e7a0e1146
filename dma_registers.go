package snescpu

// Write handles a write to the DMA/HDMA memory-mapped register surface:
// 0x420B (MDMAEN), 0x420C (HDMAEN), and the per-channel window
// 0x4300-0x437F. Addresses outside these are not handled here (§6).
func (d *DmaEngine) Write(addr uint16, value uint8) {
	switch addr {
	case 0x420B:
		// MDMAEN: start general DMA on every bit set.
		for i := 0; i < 8; i++ {
			if value&(1<<uint(i)) != 0 {
				d.channel[i].DmaActive = true
			}
		}
		if value != 0 {
			d.dmaPending = true
			d.dmaStartDelay = true
			d.updateNeedToProcessFlag()
		}
		return

	case 0x420C:
		// HDMAEN: HDMA channel enable mask.
		d.hdmaChannels = value
		return
	}

	if addr < 0x4300 || addr > 0x437F {
		return
	}

	ch := &d.channel[(addr&0x70)>>4]
	switch addr & 0x0F {
	case 0x00:
		// DMAPx - DMA control for channel x.
		ch.InvertDirection = value&0x80 != 0
		ch.HdmaIndirectAddressing = value&0x40 != 0
		ch.UnusedFlag = value&0x20 != 0
		ch.Decrement = value&0x10 != 0
		ch.FixedTransfer = value&0x08 != 0
		ch.TransferMode = value & 0x07

	case 0x01:
		// BBADx - DMA destination register for channel x.
		ch.DestAddress = value

	case 0x02:
		ch.SrcAddress = ch.SrcAddress&0xFF00 | uint16(value)

	case 0x03:
		ch.SrcAddress = ch.SrcAddress&0x00FF | uint16(value)<<8

	case 0x04:
		ch.SrcBank = value

	case 0x05:
		// DASxL - DMA size / HDMA indirect address low byte.
		ch.TransferSize = ch.TransferSize&0xFF00 | uint16(value)

	case 0x06:
		// DASxH - DMA size / HDMA indirect address high byte.
		ch.TransferSize = ch.TransferSize&0x00FF | uint16(value)<<8

	case 0x07:
		// DASBx - HDMA indirect address bank byte.
		ch.HdmaBank = value

	case 0x08:
		// A2AxL - HDMA table address low byte.
		ch.HdmaTableAddress = ch.HdmaTableAddress&0xFF00 | uint16(value)

	case 0x09:
		// A2AxH - HDMA table address high byte.
		ch.HdmaTableAddress = uint16(value)<<8 | ch.HdmaTableAddress&0x00FF

	case 0x0A:
		// NTRLx - HDMA line counter and repeat.
		ch.HdmaLineCounterAndRepeat = value

	case 0x0B, 0x0F:
		// UNUSEDx - both offsets share the same backing byte; last
		// write wins regardless of which offset was used.
		ch.UnusedByte = value
	}
}

// Read handles a read from the DMA/HDMA per-channel register window.
// Undefined offsets within 0x4300-0x437F (0x0C-0x0E) and any address
// outside the window return the bus's open-bus value.
func (d *DmaEngine) Read(addr uint16) uint8 {
	if addr < 0x4300 || addr > 0x437F {
		return d.bus.GetOpenBus()
	}

	ch := &d.channel[(addr&0x70)>>4]
	switch addr & 0x0F {
	case 0x00:
		var v uint8
		if ch.InvertDirection {
			v |= 0x80
		}
		if ch.HdmaIndirectAddressing {
			v |= 0x40
		}
		if ch.UnusedFlag {
			v |= 0x20
		}
		if ch.Decrement {
			v |= 0x10
		}
		if ch.FixedTransfer {
			v |= 0x08
		}
		return v | ch.TransferMode&0x07

	case 0x01:
		return ch.DestAddress

	case 0x02:
		return uint8(ch.SrcAddress)

	case 0x03:
		return uint8(ch.SrcAddress >> 8)

	case 0x04:
		return ch.SrcBank

	case 0x05:
		return uint8(ch.TransferSize)

	case 0x06:
		return uint8(ch.TransferSize >> 8)

	case 0x07:
		return ch.HdmaBank

	case 0x08:
		return uint8(ch.HdmaTableAddress)

	case 0x09:
		return uint8(ch.HdmaTableAddress >> 8)

	case 0x0A:
		return ch.HdmaLineCounterAndRepeat

	case 0x0B, 0x0F:
		return ch.UnusedByte
	}

	return d.bus.GetOpenBus()
}
