package cart

// ROMOnly implements cart_type 0x00/0x08/0x09: no MBC, optionally a small fixed RAM
// (0x08/0x09) that this emulator treats as absent rather than battery-backed, since no
// pack ROM in scope exercises it.
type ROMOnly struct {
	rom []byte
}

func NewROMOnly(rom []byte) *ROMOnly {
	return &ROMOnly{rom: rom}
}

func (c *ROMOnly) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if int(addr) < len(c.rom) {
			return c.rom[addr]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (c *ROMOnly) Write(addr uint16, value byte) {
	// ROM-only: all writes in 0x0000-0x7FFF and 0xA000-0xBFFF are ignored.
}
