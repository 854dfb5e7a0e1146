package snescpu

// testBus is a flat 24-bit-address-space bus for testing: one byte array for
// the A-bus (CPU address space and DMA source/destination), one small array
// for the B-bus PPU/APU register window DMA targets (0x2100-0x21FF), plus
// the minimal speed/clock bookkeeping CpuCore and DmaEngine depend on.
type testBus struct {
	mem    [1 << 24]byte
	bbus   [0x100]byte
	wram   [2]uint8 // enabled WRAM bank numbers, e.g. {0x7E, 0x7F}

	speed       uint8
	masterClock uint64
	openBus     uint8

	reads  []uint32 // addresses passed to Read, for call-count assertions
	writes []uint32
}

func newTestBus() *testBus {
	return &testBus{wram: [2]uint8{0x7E, 0x7F}, openBus: 0x55, speed: 8}
}

func (b *testBus) Read(addr uint32, _ MemoryOperationType) uint8 {
	b.reads = append(b.reads, addr)
	return b.mem[addr&0xFFFFFF]
}

func (b *testBus) Write(addr uint32, value uint8, _ MemoryOperationType) {
	b.writes = append(b.writes, addr)
	b.mem[addr&0xFFFFFF] = value
}

func (b *testBus) PeekWord(addr uint32) uint16 {
	lo := b.mem[addr&0xFFFFFF]
	hi := b.mem[(addr+1)&0xFFFFFF]
	return uint16(hi)<<8 | uint16(lo)
}

func (b *testBus) ReadDma(addr uint32, isBusA bool) uint8 {
	if isBusA {
		return b.mem[addr&0xFFFFFF]
	}
	return b.bbus[addr&0xFF]
}

func (b *testBus) WriteDma(addr uint32, value uint8, isBusA bool) {
	if isBusA {
		b.mem[addr&0xFFFFFF] = value
		return
	}
	b.bbus[addr&0xFF] = value
}

func (b *testBus) IsWorkRam(addr uint32) bool {
	bank := uint8(addr >> 16)
	return bank == b.wram[0] || bank == b.wram[1]
}

func (b *testBus) GetCpuSpeed() uint8              { return b.speed }
func (b *testBus) GetCpuSpeedForAddress(uint32) uint8 { return 8 }
func (b *testBus) SetCpuSpeed(speed uint8)         { b.speed = speed }

func (b *testBus) IncMasterClock4() { b.masterClock += 4 }
func (b *testBus) IncMasterClock6() { b.masterClock += 6 }
func (b *testBus) IncMasterClock8() { b.masterClock += 8 }
func (b *testBus) IncrementMasterClockValue(cycles uint8) { b.masterClock += uint64(cycles) }
func (b *testBus) GetMasterClock() uint64 { return b.masterClock }

func (b *testBus) GetOpenBus() uint8 { return b.openBus }

// stubInstructions is an InstructionSet whose RunOp counts the call, spends
// one idle bus cycle and advances PC by one, for CpuCore tests that only
// exercise Exec's StopState dispatch and interrupt servicing, not real
// opcode decode.
type stubInstructions struct {
	ran int
}

func (s *stubInstructions) RunOp(c *CpuCore) {
	s.ran++
	c.Idle() // every real opcode spends at least one bus cycle
	c.PC++
}

func newTestCpu() (*CpuCore, *testBus, *DmaEngine) {
	bus := newTestBus()
	dma := NewDmaEngine(bus)
	cpu := NewCpuCore(bus, dma, &stubInstructions{})
	return cpu, bus, dma
}

// recordingObserver captures every OnCpuInterrupt call it receives, for
// tests asserting on the CPU's one externally visible event.
type recordingObserver struct {
	calls []observedInterrupt
}

type observedInterrupt struct {
	originalPC, newPC uint32
	isNmi             bool
}

func (o *recordingObserver) OnCpuInterrupt(originalPC, newPC uint32, isNmi bool) {
	o.calls = append(o.calls, observedInterrupt{originalPC, newPC, isNmi})
}
