package hal

// Exception frame layout shared by the kernel (initial frames) and the
// trampoline (save/restore). Offsets are words from the context pointer,
// lowest address first: the software-saved R4-R11 followed by the
// hardware-stacked R0-R3, R12, LR, PC and xPSR.
const (
	FrameR4 = iota
	FrameR5
	FrameR6
	FrameR7
	FrameR8
	FrameR9
	FrameR10
	FrameR11
	FrameR0
	FrameR1
	FrameR2
	FrameR3
	FrameR12
	FrameLR
	FramePC
	FrameXPSR

	FrameWords
)

// XPSRThumb is the execution state bit; restoring a frame without it faults.
const XPSRThumb uint32 = 0x01000000

// frameSentinels are the diagnostic register values of a fresh frame.
var frameSentinels = [FrameWords]uint32{
	FrameR4:   0x04040404,
	FrameR5:   0x05050505,
	FrameR6:   0x06060606,
	FrameR7:   0x07070707,
	FrameR8:   0x08080808,
	FrameR9:   0x09090909,
	FrameR10:  0x10101010,
	FrameR11:  0x11111111,
	FrameR0:   0x00000000,
	FrameR1:   0x01010101,
	FrameR2:   0x02020202,
	FrameR3:   0x03030303,
	FrameR12:  0x12121212,
	FrameLR:   0x14141414,
	FrameXPSR: XPSRThumb,
}

// InitialFrame writes a synthetic frame at the top of stack that resumes at
// pc, and returns the context pointer to store in the thread descriptor.
func InitialFrame(stack []uint32, pc uint32) uint32 {
	sp := uint32(len(stack) - FrameWords)
	frame := stack[sp:]
	copy(frame, frameSentinels[:])
	frame[FramePC] = pc
	return sp
}
