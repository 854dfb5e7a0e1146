package snescpu

// 65816 vector addresses (§6). Reset always enters through the
// emulation-mode vector; NMI/IRQ have distinct native and
// emulation-mode (legacy) vectors.
const (
	VectorReset     uint16 = 0xFFFC
	VectorNmiNative uint16 = 0xFFEA
	VectorNmiLegacy uint16 = 0xFFFA
	VectorIrqNative uint16 = 0xFFEE
	VectorIrqLegacy uint16 = 0xFFFE
	VectorBrkNative uint16 = 0xFFE6
	VectorCopNative uint16 = 0xFFE4
	VectorCopLegacy uint16 = 0xFFF4
	VectorAbortNative uint16 = 0xFFE8
	VectorAbortLegacy uint16 = 0xFFF8
)
