// Package device wires the CPU, MMU, and PPU into the single frame-driver entry point a
// host calls once per video frame, mirroring the Rust original's top-level Device.
package device

import (
	"io"

	"github.com/go-dmg/dmgcore/internal/cpu"
	"github.com/go-dmg/dmgcore/internal/mmu"
)

// cyclesPerFrame is the number of T-cycles a DMG frame takes: 154 lines * 456 dots.
const cyclesPerFrame = 70224

// dmgShades is the fixed DMG palette, lightest to darkest, matching real hardware.
var dmgShades = [4]uint32{0xFFFFFF, 0xAAAAAA, 0x555555, 0x000000}

// LCDBuffer is a flat 160x144 RGB frame the host owns and passes into Frame by reference.
// Cleared is set whenever the LCD was off for the frame, so a host painting a window can
// tell "blank because the game turned the screen off" apart from "blank because nothing
// drew there yet".
type LCDBuffer struct {
	Pix     [160 * 144]uint32
	Cleared bool
}

// JoypadState is the eight-button snapshot sampled once per frame.
type JoypadState struct {
	Up, Down, Left, Right bool
	A, B, Start, Select   bool
}

func (j JoypadState) mask() byte {
	var m byte
	if j.Right {
		m |= mmu.JoypRight
	}
	if j.Left {
		m |= mmu.JoypLeft
	}
	if j.Up {
		m |= mmu.JoypUp
	}
	if j.Down {
		m |= mmu.JoypDown
	}
	if j.A {
		m |= mmu.JoypA
	}
	if j.B {
		m |= mmu.JoypB
	}
	if j.Select {
		m |= mmu.JoypSelectBtn
	}
	if j.Start {
		m |= mmu.JoypStart
	}
	return m
}

// Device owns the CPU, MMU, and PPU and drives them in lockstep, one frame at a time.
type Device struct {
	cpu *cpu.CPU
	mmu *mmu.Mmu
}

// New constructs a Device around a freshly parsed cartridge, restoring any previously
// saved battery RAM / RTC state. It fails with the cartridge's own typed construction
// error for an unsupported cart_type or a too-short ROM. With no boot ROM supplied
// separately via SetBootROM, the CPU and IO registers start at the documented DMG
// post-boot defaults and PC begins at the cartridge entry point, 0x0100.
func New(rom, ram, rtc []byte) (*Device, error) {
	m, err := mmu.New(rom, ram, rtc)
	if err != nil {
		return nil, err
	}
	c := cpu.New(m)
	c.ResetNoBoot()
	c.SetPC(0x0100)
	applyPostBootIODefaults(m)
	return &Device{cpu: c, mmu: m}, nil
}

// applyPostBootIODefaults writes the IO register values the DMG boot ROM leaves behind,
// used when a Device is built without one so cartridges that read them before writing
// their own values see the same state a real boot would have left.
func applyPostBootIODefaults(m *mmu.Mmu) {
	m.Write(0xFF00, 0xCF)
	m.Write(0xFF05, 0x00)
	m.Write(0xFF06, 0x00)
	m.Write(0xFF07, 0x00)
	m.Write(0xFF40, 0x91)
	m.Write(0xFF42, 0x00)
	m.Write(0xFF43, 0x00)
	m.Write(0xFF45, 0x00)
	m.Write(0xFF47, 0xFC)
	m.Write(0xFF48, 0xFF)
	m.Write(0xFF49, 0xFF)
	m.Write(0xFF4A, 0x00)
	m.Write(0xFF4B, 0x00)
	m.Write(0xFFFF, 0x00)
}

// CPU exposes the underlying CPU for tools that need direct register/trace access
// (the cpurunner harness, boot-ROM bring-up).
func (d *Device) CPU() *cpu.CPU { return d.cpu }

// Mmu exposes the underlying bus for tools that need direct address-space access.
func (d *Device) Mmu() *mmu.Mmu { return d.mmu }

// SetSerialWriter routes serial-port bytes (written via 0xFF01/0xFF02) to w, used by the
// Blargg-style test-ROM harness to capture their text output.
func (d *Device) SetSerialWriter(w io.Writer) { d.mmu.SetSerialWriter(w) }

// SetBootROM loads a DMG boot ROM mapped at 0x0000-0x00FF until the game disables it,
// and rewinds the CPU to run from it rather than from the post-boot defaults New applied.
func (d *Device) SetBootROM(data []byte) {
	d.mmu.SetBootROM(data)
	if len(data) >= 0x100 {
		d.cpu.SetPC(0x0000)
		d.cpu.SetSP(0xFFFE)
		d.cpu.SetIME(false)
	}
}

// Frame advances the emulator by one video frame, sampling joypad once at the start and
// leaving buffer holding the frame just rendered. It runs whole CPU instructions until at
// least 70224 T-cycles have elapsed, so the last instruction may end a few cycles past the
// frame boundary; that surplus is not carried into the next call. Each Step call ticks the
// MMU (and, transitively, the PPU and timers) by exactly the cycles that instruction
// consumed, so CPU/PPU/timers never drift out of lockstep with each other.
func (d *Device) Frame(buffer *LCDBuffer, joypad JoypadState) {
	d.mmu.SetJoypadState(joypad.mask())

	var total int
	for total < cyclesPerFrame {
		total += d.cpu.Step()
	}

	d.render(buffer)
}

func (d *Device) render(buffer *LCDBuffer) {
	lcdOn := d.mmu.PPU().LCDC()&0x80 != 0
	buffer.Cleared = !lcdOn
	if !lcdOn {
		for i := range buffer.Pix {
			buffer.Pix[i] = dmgShades[0]
		}
		return
	}
	fb := d.mmu.PPU().FrameBuffer()
	for y := 0; y < 144; y++ {
		for x := 0; x < 160; x++ {
			buffer.Pix[y*160+x] = dmgShades[fb[y][x]&0x03]
		}
	}
}

// UpdateRTCNow advances the cartridge's RTC (if it has one) to the given monotonic
// second count; a cartridge without an RTC silently ignores the call.
func (d *Device) UpdateRTCNow(elapsedSeconds uint64) {
	d.mmu.UpdateRTCNow(elapsedSeconds)
}

// DumpRAM returns the cartridge's battery-backed RAM, or nil if it has none.
func (d *Device) DumpRAM() []byte { return d.mmu.DumpRAM() }

// DumpRTC returns the cartridge's RTC save blob, or nil if it has no RTC.
func (d *Device) DumpRTC() []byte { return d.mmu.DumpRTC() }
