// Package mmu wires the CPU-visible address space to the cartridge, work RAM, high RAM,
// the PPU's VRAM/OAM/registers, and the IO block (joypad, timers, serial, interrupts).
package mmu

import (
	"io"

	"github.com/go-dmg/dmgcore/internal/cart"
	"github.com/go-dmg/dmgcore/internal/ppu"
)

// Mmu implements the full DMG address map described by the original mmu/mod.rs: cartridge
// ROM/RAM, 8 KiB work RAM with its echo mirror, the PPU's VRAM/OAM, high RAM, and the IO
// registers (joypad, timer, serial, LCD via the PPU, interrupt flags).
type Mmu struct {
	cart cart.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF, echoed at 0xE000-0xFDFF
	hram [0x7F]byte   // 0xFF80-0xFFFE

	ppu *ppu.PPU

	ie    byte
	ifReg byte

	joypSelect byte
	joypad     byte
	joypLower4 byte

	div                 byte
	tima                byte
	tma                 byte
	tac                 byte
	timaOverflowPending bool
	divInternal         uint16

	sb byte
	sc byte
	sw io.Writer

	dma       byte
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int

	bootROM     []byte
	bootEnabled bool
}

// New builds an Mmu around a freshly constructed cartridge, loading any previously saved
// battery RAM / RTC state. Returns the cartridge's typed construction error unchanged.
func New(rom, ram, rtc []byte) (*Mmu, error) {
	c, err := cart.New(rom, ram, rtc)
	if err != nil {
		return nil, err
	}
	return NewWithCartridge(c), nil
}

// NewWithCartridge wires a provided cartridge implementation directly; useful for tests.
func NewWithCartridge(c cart.Cartridge) *Mmu {
	m := &Mmu{cart: c}
	m.ppu = ppu.New(func(bit int) { m.ifReg |= 1 << bit })
	return m
}

// PPU returns the internal PPU for frame-buffer access.
func (m *Mmu) PPU() *ppu.PPU { return m.ppu }

// Cart returns the underlying cartridge for save/RTC plumbing.
func (m *Mmu) Cart() cart.Cartridge { return m.cart }

// DumpRAM returns the cartridge's battery-backed RAM, or nil if it has none.
func (m *Mmu) DumpRAM() []byte {
	if bb, ok := m.cart.(cart.BatteryBacked); ok {
		return bb.SaveRAM()
	}
	return nil
}

// DumpRTC returns the cartridge's RTC save blob, or nil if it has no RTC.
func (m *Mmu) DumpRTC() []byte {
	if rb, ok := m.cart.(cart.RTCBacked); ok {
		return rb.SaveRTC()
	}
	return nil
}

// UpdateRTCNow advances the cartridge RTC, if any, to the given monotonic second count.
func (m *Mmu) UpdateRTCNow(nowSecs uint64) {
	if rb, ok := m.cart.(cart.RTCBacked); ok {
		rb.UpdateNow(nowSecs)
	}
}

func (m *Mmu) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if m.bootEnabled && addr < 0x0100 && len(m.bootROM) >= 0x100 {
			return m.bootROM[addr]
		}
		return m.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return m.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return m.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return m.wram[addr-0xC000]
	case addr >= 0xE000 && addr <= 0xFDFF:
		return m.wram[addr-0x2000-0xC000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if m.dmaActive {
			return 0xFF
		}
		return m.ppu.CPURead(addr)
	case addr >= 0xFEA0 && addr <= 0xFEFF: // unusable region: reads 0, writes ignored
		return 0x00
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return m.hram[addr-0xFF80]
	case addr == 0xFF00:
		return m.readJoyp()
	case addr == 0xFF04:
		return m.div
	case addr == 0xFF05:
		return m.tima
	case addr == 0xFF06:
		return m.tma
	case addr == 0xFF07:
		return 0xF8 | (m.tac & 0x07)
	case addr == 0xFF01:
		return m.sb
	case addr == 0xFF02:
		return 0x7E | (m.sc & 0x81)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		return m.ppu.CPURead(addr)
	case addr == 0xFF46:
		return m.dma
	case addr == 0xFF50:
		return 0xFF
	case addr == 0xFF0F:
		return 0xE0 | (m.ifReg & 0x1F)
	case addr == 0xFFFF:
		return m.ie
	}
	return 0xFF
}

// Read16 reads a little-endian 16-bit value, used by CPU instructions that fetch a word.
func (m *Mmu) Read16(addr uint16) uint16 {
	lo := uint16(m.Read(addr))
	hi := uint16(m.Read(addr + 1))
	return lo | (hi << 8)
}

func (m *Mmu) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		m.cart.Write(addr, value)
	case addr >= 0x8000 && addr <= 0x9FFF:
		m.ppu.CPUWrite(addr, value)
	case addr >= 0xA000 && addr <= 0xBFFF:
		m.cart.Write(addr, value)
	case addr >= 0xC000 && addr <= 0xDFFF:
		m.wram[addr-0xC000] = value
	case addr >= 0xE000 && addr <= 0xFDFF:
		m.wram[addr-0x2000-0xC000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if m.dmaActive {
			return
		}
		m.ppu.CPUWrite(addr, value)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		m.hram[addr-0xFF80] = value
	case addr == 0xFF00:
		m.joypSelect = value & 0x30
		m.updateJoypadIRQ()
	case addr == 0xFF04:
		oldInput := m.timerInput()
		m.divInternal = 0
		m.div = 0
		if oldInput && !m.timerInput() {
			m.incrementTIMA()
		}
	case addr == 0xFF05:
		m.tima = value
		m.timaOverflowPending = false
	case addr == 0xFF06:
		m.tma = value
	case addr == 0xFF07:
		oldInput := m.timerInput()
		m.tac = value & 0x07
		if oldInput && !m.timerInput() {
			m.incrementTIMA()
		}
	case addr == 0xFF01:
		m.sb = value
	case addr == 0xFF02:
		m.sc = value & 0x81
		if (m.sc & 0x80) != 0 {
			if m.sw != nil {
				_, _ = m.sw.Write([]byte{m.sb})
			}
			m.ifReg |= 1 << 3
			m.sc = 0
		}
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		m.ppu.CPUWrite(addr, value)
	case addr == 0xFF46:
		m.dma = value
		m.dmaActive = true
		m.dmaSrc = uint16(value) << 8
		m.dmaIndex = 0
	case addr == 0xFF50:
		if value != 0x00 {
			m.bootEnabled = false
		}
	case addr == 0xFF0F:
		m.ifReg = value & 0x1F
	case addr == 0xFFFF:
		m.ie = value
	}
}

func (m *Mmu) readJoyp() byte {
	res := byte(0xC0 | (m.joypSelect & 0x30) | 0x0F)
	if (m.joypSelect & 0x10) == 0 {
		if m.joypad&JoypRight != 0 {
			res &^= 0x01
		}
		if m.joypad&JoypLeft != 0 {
			res &^= 0x02
		}
		if m.joypad&JoypUp != 0 {
			res &^= 0x04
		}
		if m.joypad&JoypDown != 0 {
			res &^= 0x08
		}
	}
	if (m.joypSelect & 0x20) == 0 {
		if m.joypad&JoypA != 0 {
			res &^= 0x01
		}
		if m.joypad&JoypB != 0 {
			res &^= 0x02
		}
		if m.joypad&JoypSelectBtn != 0 {
			res &^= 0x04
		}
		if m.joypad&JoypStart != 0 {
			res &^= 0x08
		}
	}
	return res
}

// Joypad button bitmasks for SetJoypadState. Bits set mean "pressed".
const (
	JoypRight     = 1 << 0
	JoypLeft      = 1 << 1
	JoypUp        = 1 << 2
	JoypDown      = 1 << 3
	JoypA         = 1 << 4
	JoypB         = 1 << 5
	JoypSelectBtn = 1 << 6
	JoypStart     = 1 << 7
)

// SetJoypadState sets which buttons are currently pressed (bits per the Joyp* constants).
func (m *Mmu) SetJoypadState(mask byte) {
	m.joypad = mask
	m.updateJoypadIRQ()
}

// SetSerialWriter sets a sink that receives bytes written via the serial port (SB/SC),
// used by the Blargg-style test-ROM harness.
func (m *Mmu) SetSerialWriter(w io.Writer) { m.sw = w }

// SetBootROM loads a DMG boot ROM mapped at 0x0000-0x00FF until disabled via an 0xFF50 write.
func (m *Mmu) SetBootROM(data []byte) {
	m.bootROM = nil
	m.bootEnabled = false
	if len(data) >= 0x100 {
		m.bootROM = make([]byte, 0x100)
		copy(m.bootROM, data[:0x100])
		m.bootEnabled = true
	}
}

// Tick advances timers, the PPU, and OAM DMA by the given number of T-cycles.
func (m *Mmu) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		// An overflow reload on the previous tick requests its interrupt now, before
		// this tick's own increment runs.
		if m.timaOverflowPending {
			m.ifReg |= 1 << 2
			m.timaOverflowPending = false
		}

		oldInput := m.timerInput()
		m.divInternal++
		m.div = byte(m.divInternal >> 8)
		newInput := m.timerInput()
		falling := oldInput && !newInput

		if falling {
			m.incrementTIMA()
		}

		m.ppu.Tick(1)

		if m.dmaActive {
			if m.dmaIndex < 0xA0 {
				v := m.Read(m.dmaSrc + uint16(m.dmaIndex))
				m.ppu.CPUWrite(0xFE00+uint16(m.dmaIndex), v)
				m.dmaIndex++
			}
			if m.dmaIndex >= 0xA0 {
				m.dmaActive = false
			}
		}
	}
}

func (m *Mmu) timerInput() bool {
	if (m.tac & 0x04) == 0 {
		return false
	}
	var bit uint
	switch m.tac & 0x03 {
	case 0x00:
		bit = 9
	case 0x01:
		bit = 3
	case 0x02:
		bit = 5
	case 0x03:
		bit = 7
	}
	return ((m.divInternal >> bit) & 1) != 0
}

// incrementTIMA reloads from TMA immediately on overflow and latches the Timer interrupt
// request for the start of the next tick, matching inc_tima/update_timers's one-tick lag.
func (m *Mmu) incrementTIMA() {
	if m.tima == 0xFF {
		m.tima = m.tma
		m.timaOverflowPending = true
		return
	}
	m.tima++
}

// updateJoypadIRQ recomputes JOYP's lower 4 bits (active-low) and raises IF bit 4 on any
// 1->0 transition, matching the original joypad.rs edge-detection rule.
func (m *Mmu) updateJoypadIRQ() {
	newLower := byte(0x0F)
	if (m.joypSelect & 0x10) == 0 {
		if m.joypad&JoypRight != 0 {
			newLower &^= 0x01
		}
		if m.joypad&JoypLeft != 0 {
			newLower &^= 0x02
		}
		if m.joypad&JoypUp != 0 {
			newLower &^= 0x04
		}
		if m.joypad&JoypDown != 0 {
			newLower &^= 0x08
		}
	}
	if (m.joypSelect & 0x20) == 0 {
		if m.joypad&JoypA != 0 {
			newLower &^= 0x01
		}
		if m.joypad&JoypB != 0 {
			newLower &^= 0x02
		}
		if m.joypad&JoypSelectBtn != 0 {
			newLower &^= 0x04
		}
		if m.joypad&JoypStart != 0 {
			newLower &^= 0x08
		}
	}
	falling := m.joypLower4 &^ newLower
	if falling != 0 {
		m.ifReg |= 1 << 4
	}
	m.joypLower4 = newLower
}

// IE returns the interrupt-enable register for direct CPU access during interrupt servicing.
func (m *Mmu) IE() byte { return m.ie }

// IF returns the interrupt-flag register (lower 5 bits) for direct CPU access.
func (m *Mmu) IF() byte { return m.ifReg & 0x1F }

// SetIF overwrites the interrupt-flag register, used by the CPU to acknowledge a serviced
// interrupt.
func (m *Mmu) SetIF(v byte) { m.ifReg = v & 0x1F }
