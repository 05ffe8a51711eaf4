package cart

// MBC1 implements ROM banking up to 2MB and RAM up to 32KB.
//
// bank1 holds the low 5 bits of the ROM bank (forced to 1 when written as 0); bank2
// holds either the RAM bank or the high 2 bits of a >512KB ROM bank number, selected
// by mode, including the small-RAM wraparound rule for carts with 0 or 1 RAM bank.
type MBC1 struct {
	rom []byte
	ram []byte

	bank1      byte // 1..31, never 0
	bank2      byte // 0..3
	ramEnabled bool
	mode       byte // 0 = simple (ROM banking), 1 = advanced (RAM banking)
}

func NewMBC1(rom []byte, ramSize int) *MBC1 {
	m := &MBC1{rom: rom, bank1: 1}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m
}

func (m *MBC1) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if m.mode == 0 {
			return m.romByte(0, addr)
		}
		return m.romByte(int(m.bank2)<<5, addr)
	case addr < 0x8000:
		bank := int(m.bank1)
		if m.mode == 1 {
			bank |= int(m.bank2) << 5
		}
		return m.romByte(bank, addr-0x4000)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return m.ramByte(addr)
	default:
		return 0xFF
	}
}

func (m *MBC1) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		v := value & 0x1F
		if v == 0 {
			v = 1
		}
		m.bank1 = v
	case addr < 0x6000:
		m.bank2 = value & 0x03
	case addr < 0x8000:
		m.mode = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		m.ramWrite(addr, value)
	}
}

func (m *MBC1) romByte(bank int, addr uint16) byte {
	off := bank*0x4000 + int(addr)
	if off >= 0 && off < len(m.rom) {
		return m.rom[off]
	}
	return 0xFF
}

// ramAddress applies the small-RAM wraparound rule: carts with 0 or 1 RAM bank mirror
// the whole bank across 0xA000-0xBFFF regardless of bank2/mode, instead of being
// bank-indexed.
func (m *MBC1) ramAddress(addr uint16) (int, bool) {
	if !m.ramEnabled || len(m.ram) == 0 {
		return 0, false
	}
	if len(m.ram) <= 0x2000 {
		return int(addr-0xA000) % len(m.ram), true
	}
	bank := 0
	if m.mode == 1 {
		bank = int(m.bank2)
	}
	off := bank*0x2000 + int(addr-0xA000)
	if off < 0 || off >= len(m.ram) {
		return 0, false
	}
	return off, true
}

func (m *MBC1) ramByte(addr uint16) byte {
	off, ok := m.ramAddress(addr)
	if !ok {
		return 0xFF
	}
	return m.ram[off]
}

func (m *MBC1) ramWrite(addr uint16, value byte) {
	off, ok := m.ramAddress(addr)
	if !ok {
		return
	}
	m.ram[off] = value
}

func (m *MBC1) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC1) LoadRAM(data []byte) {
	if len(m.ram) == 0 {
		return
	}
	copy(m.ram, data)
}
