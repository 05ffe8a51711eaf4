package mmu

import "testing"

func newTestMmu(t *testing.T, rom []byte) *Mmu {
	t.Helper()
	m, err := New(rom, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestMmu_ROMAndRAM(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0100] = 0x42
	m := newTestMmu(t, rom)

	if got := m.Read(0x0100); got != 0x42 {
		t.Fatalf("ROM read got %02x, want 42", got)
	}

	m.Write(0xC000, 0x99)
	if got := m.Read(0xC000); got != 0x99 {
		t.Fatalf("RAM read got %02x, want 99", got)
	}

	m.Write(0xE000, 0x55)
	if got := m.Read(0xC000); got != 0x55 {
		t.Fatalf("Echo write did not mirror to WRAM: got %02x", got)
	}

	m.Write(0xFF80, 0xAB)
	if got := m.Read(0xFF80); got != 0xAB {
		t.Fatalf("HRAM read got %02x, want AB", got)
	}

	if got := m.Read(0xA123); got != 0xFF {
		t.Fatalf("Ext RAM (ROM-only) got %02x, want FF", got)
	}
}

func TestMmu_VRAM_OAM_InterruptRegs(t *testing.T) {
	m := newTestMmu(t, make([]byte, 0x8000))

	m.Write(0x8000, 0x11)
	if got := m.Read(0x8000); got != 0x11 {
		t.Fatalf("VRAM read got %02x, want 11", got)
	}

	m.Write(0xFE00, 0x22)
	if got := m.Read(0xFE00); got != 0x22 {
		t.Fatalf("OAM read got %02x, want 22", got)
	}

	m.Write(0xFF0F, 0x3F)
	if got := m.Read(0xFF0F); got != 0xE0|0x1F {
		t.Fatalf("IF read got %02x, want %02x", got, byte(0xE0|0x1F))
	}

	m.Write(0xFFFF, 0x1B)
	if got := m.Read(0xFFFF); got != 0x1B {
		t.Fatalf("IE read got %02x, want 1B", got)
	}
}

func TestMmu_JoypadEdgeInterrupt(t *testing.T) {
	m := newTestMmu(t, make([]byte, 0x8000))
	m.Write(0xFF00, 0x10) // select buttons (P14=0 selects dpad; here select buttons group low)
	m.Write(0xFF0F, 0)
	m.SetJoypadState(JoypA)
	if (m.Read(0xFF0F) & (1 << 4)) == 0 {
		t.Fatalf("expected joypad IF on press edge")
	}
}

func TestMmu_TimerOverflowReloadsImmediatelyInterruptOneTickLater(t *testing.T) {
	m := newTestMmu(t, make([]byte, 0x8000))
	m.Write(0xFF06, 0x7F) // TMA
	m.Write(0xFF05, 0xFF) // TIMA about to overflow
	m.Write(0xFF07, 0x05) // enable, 262144 Hz (bit3 of div)
	m.Write(0xFF0F, 0)

	// Tick enough cycles to force a falling edge on bit3 and overflow.
	m.Tick(16)
	if got := m.Read(0xFF05); got != 0x7F {
		t.Fatalf("TIMA must reload from TMA immediately on overflow, got %02x want 7F", got)
	}
	if (m.Read(0xFF0F) & (1 << 2)) != 0 {
		t.Fatalf("Timer IF must not be set on the same tick as the overflow")
	}

	m.Tick(1)
	if (m.Read(0xFF0F) & (1 << 2)) == 0 {
		t.Fatalf("expected Timer IF on the tick after the overflow")
	}
}

func TestMmu_PPU_STAT_HBlankInterrupt(t *testing.T) {
	m := newTestMmu(t, make([]byte, 0x8000))
	m.Write(0xFF40, 0x80)
	m.Write(0xFF41, 1<<3)
	m.Write(0xFF0F, 0)
	m.Tick(80 + 172)
	if (m.Read(0xFF0F) & (1 << 1)) == 0 {
		t.Fatalf("expected STAT IF on HBlank mode change")
	}
}

func TestMmu_PPU_LYC_InterruptAndFlag(t *testing.T) {
	m := newTestMmu(t, make([]byte, 0x8000))
	m.Write(0xFF40, 0x80)
	m.Write(0xFF41, 1<<6)
	m.Write(0xFF45, 0x01)
	m.Write(0xFF0F, 0)
	m.Tick(456)
	if (m.Read(0xFF0F) & (1 << 1)) == 0 {
		t.Fatalf("expected STAT IF on LYC=LY match at LY=1")
	}
	stat := m.Read(0xFF41)
	if stat&(1<<2) == 0 {
		t.Fatalf("expected LYC coincidence flag set")
	}
}

func TestMmu_InvalidCartridgeReturnsTypedError(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x147] = 0xFE // unsupported cart type
	if _, err := New(rom, nil, nil); err == nil {
		t.Fatalf("expected error for unsupported cartridge type")
	}
}
