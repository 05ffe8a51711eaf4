package cart

// MBC3 implements ROM banking (1..127) plus either a RAM bank (0..3) or one of the RTC's
// five registers (0x08..0x0C), selected by the same 0x4000-0x5FFF register.
//
// Select-value routing: select masked to its low nibble, then split into the 0..3
// RAM-bank range and the 8..C RTC-register range, with the 0x6000-0x7FFF latch edge
// wired into rtc.HandleLatchWrite.
type MBC3 struct {
	rom []byte
	ram []byte
	rtc *rtc

	ramEnabled bool
	romBank    byte // 1..127
	select_    byte // 0..3 = RAM bank, 8..C = RTC register
}

func NewMBC3(rom []byte, ramSize int) *MBC3 {
	m := &MBC3{rom: rom, romBank: 1, rtc: newRTC()}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m
}

func (m *MBC3) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		off := int(m.romBank)*0x4000 + int(addr-0x4000)
		if off >= 0 && off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		switch {
		case m.select_ >= 0x08 && m.select_ <= 0x0C:
			return m.rtc.ReadRegister(m.select_)
		case m.select_ <= 0x03:
			off := int(m.select_)*0x2000 + int(addr-0xA000)
			if len(m.ram) == 0 || off < 0 || off >= len(m.ram) {
				return 0xFF
			}
			return m.ram[off]
		default:
			return 0xFF
		}
	default:
		return 0xFF
	}
}

func (m *MBC3) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		v := value & 0x7F
		if v == 0 {
			v = 1
		}
		m.romBank = v
	case addr < 0x6000:
		m.select_ = value & 0x0F
	case addr < 0x8000:
		m.rtc.HandleLatchWrite(value)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		switch {
		case m.select_ >= 0x08 && m.select_ <= 0x0C:
			m.rtc.WriteRegister(m.select_, value)
		case m.select_ <= 0x03:
			off := int(m.select_)*0x2000 + int(addr-0xA000)
			if len(m.ram) == 0 || off < 0 || off >= len(m.ram) {
				return
			}
			m.ram[off] = value
		}
	}
}

func (m *MBC3) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC3) LoadRAM(data []byte) {
	if len(m.ram) == 0 {
		return
	}
	copy(m.ram, data)
}

func (m *MBC3) SaveRTC() []byte      { return m.rtc.Save() }
func (m *MBC3) LoadRTC(data []byte)  { m.rtc.Load(data) }
func (m *MBC3) UpdateNow(now uint64) { m.rtc.UpdateNow(now) }
