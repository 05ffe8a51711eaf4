package device

import (
	"bytes"
	"testing"
)

// newTestROM builds a minimal ROM-only cartridge image big enough to satisfy header
// parsing, with an infinite JR loop at the reset vector so Frame has something to run.
func newTestROM() []byte {
	rom := make([]byte, 0x8000)
	rom[0x0100] = 0x18 // JR -2 (spins at 0x0100)
	rom[0x0101] = 0xFE
	copy(rom[0x0134:], "TESTROM")
	rom[0x0147] = 0x00 // ROM ONLY
	rom[0x0148] = 0x00 // 32KiB
	rom[0x0149] = 0x00 // no RAM
	return rom
}

func TestDevice_NewRejectsUnsupportedCartType(t *testing.T) {
	rom := newTestROM()
	rom[0x0147] = 0xFE
	if _, err := New(rom, nil, nil); err == nil {
		t.Fatalf("expected error for unsupported cart type")
	}
}

func TestDevice_FrameWithLCDOnLeavesBufferNotCleared(t *testing.T) {
	d, err := New(newTestROM(), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var buf LCDBuffer
	d.Frame(&buf, JoypadState{})
	if buf.Cleared {
		t.Fatalf("LCD starts on (post-boot LCDC=0x91); buffer should not be Cleared")
	}
}

func TestDevice_LCDOffClearsBufferToWhite(t *testing.T) {
	rom := newTestROM()
	d, err := New(rom, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.Mmu().Write(0xFF40, 0x00) // turn LCD off
	var buf LCDBuffer
	d.Frame(&buf, JoypadState{})
	if !buf.Cleared {
		t.Fatalf("expected Cleared when LCDC.7 is 0")
	}
	for i, px := range buf.Pix {
		if px != dmgShades[0] {
			t.Fatalf("pixel %d not white while LCD off: %06x", i, px)
		}
	}
}

func TestDevice_SerialWriterCapturesBlarggStyleOutput(t *testing.T) {
	rom := make([]byte, 0x8000)
	// LD A,0x41; LD (0xFF01),A; LD A,0x81; LD (0xFF02),A; JR -2 (spin forever)
	prog := []byte{
		0x3E, 0x41,
		0xE0, 0x01,
		0x3E, 0x81,
		0xE0, 0x02,
		0x18, 0xFE,
	}
	copy(rom[0x0100:], prog)
	rom[0x0147] = 0x00

	d, err := New(rom, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var out bytes.Buffer
	d.SetSerialWriter(&out)

	var buf LCDBuffer
	d.Frame(&buf, JoypadState{})

	if got := out.String(); got == "" || got[0] != 'A' {
		t.Fatalf("expected serial capture to start with 'A', got %q", got)
	}
}

func TestDevice_DumpRAMNilForBatterylessCartridge(t *testing.T) {
	d, err := New(newTestROM(), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.DumpRAM() != nil {
		t.Fatalf("ROM-only cartridge should have no battery RAM to dump")
	}
	if d.DumpRTC() != nil {
		t.Fatalf("ROM-only cartridge should have no RTC to dump")
	}
}
