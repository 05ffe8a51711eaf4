package cart

import (
	"encoding/binary"
	"strings"
)

const (
	headerStart = 0x0100
	headerEnd   = 0x014F
)

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

var cartTypesWithBattery = map[byte]bool{
	0x03: true, 0x06: true, 0x0F: true, 0x10: true, 0x13: true, 0x1B: true, 0x1E: true,
}

var cartTypesWithRTC = map[byte]bool{0x0F: true, 0x10: true}

var cartTypesWithRumble = map[byte]bool{0x1C: true, 0x1D: true, 0x1E: true}

// Header is the parsed cartridge header: title, cart_type, and the ROM/RAM size codes,
// plus the fields derived from them.
type Header struct {
	Title          string // 0x0134-0x0143, truncated at the first non-ASCII byte
	CGBFlag        byte   // 0x0143
	NewLicensee    string // 0x0144-0x0145 (ASCII), if old == 0x33
	SGBFlag        byte   // 0x0146
	CartType       byte   // 0x0147
	ROMSizeCode    byte   // 0x0148
	RAMSizeCode    byte   // 0x0149
	Destination    byte   // 0x014A
	OldLicensee    byte   // 0x014B
	ROMVersion     byte   // 0x014C
	HeaderChecksum byte   // 0x014D
	GlobalChecksum uint16 // 0x014E-0x014F
}

// ParseHeader reads the cartridge header out of rom. A ROM shorter than the header region
// is an InvalidCartridge error; a mismatched Nintendo logo is tolerated (many homebrew and
// test ROMs omit it) rather than rejected.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerEnd+1 {
		return nil, &ErrROMTooShort{Got: len(rom), Want: headerEnd + 1}
	}

	rawTitle := rom[0x0134:0x0144]
	var titleBytes []byte
	for _, b := range rawTitle {
		if b >= 0x80 {
			break
		}
		titleBytes = append(titleBytes, b)
	}
	title := strings.TrimRight(string(titleBytes), "\x00")

	h := &Header{
		Title:          title,
		CGBFlag:        rom[0x0143],
		NewLicensee:    string(rom[0x0144:0x0146]),
		SGBFlag:        rom[0x0146],
		CartType:       rom[0x0147],
		ROMSizeCode:    rom[0x0148],
		RAMSizeCode:    rom[0x0149],
		Destination:    rom[0x014A],
		OldLicensee:    rom[0x014B],
		ROMVersion:     rom[0x014C],
		HeaderChecksum: rom[0x014D],
		GlobalChecksum: binary.BigEndian.Uint16(rom[0x014E:0x0150]),
	}
	return h, nil
}

// HeaderChecksumOK recomputes the Pan Docs header checksum over 0x0134-0x014C.
func HeaderChecksumOK(rom []byte) bool {
	if len(rom) < 0x014E {
		return false
	}
	var sum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		sum = sum - rom[addr] - 1
	}
	return sum == rom[0x014D]
}

// LogoOK reports whether the Nintendo logo bytes at 0x0104 match the boot ROM's expectation.
func LogoOK(rom []byte) bool {
	if len(rom) < 0x0104+48 {
		return false
	}
	for i := 0; i < 48; i++ {
		if rom[0x0104+i] != nintendoLogo[i] {
			return false
		}
	}
	return true
}

// ROMBanks returns 2^(rom_size_code+1).
func (h *Header) ROMBanks() int { return 1 << (uint(h.ROMSizeCode) + 1) }

// ROMSizeBytes returns ROMBanks()*16KiB.
func (h *Header) ROMSizeBytes() int { return h.ROMBanks() * romBankSize }

// RAMBanks decodes ram_size_code into a bank count per the DMG table.
func (h *Header) RAMBanks() int {
	switch h.RAMSizeCode {
	case 0x00, 0x01:
		return 0
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 0
	}
}

// RAMSizeBytes returns the external RAM size in bytes. MBC2 carries its own fixed
// 512-nibble RAM regardless of the header's ram_size_code.
func (h *Header) RAMSizeBytes() int {
	if h.CartType == 0x05 || h.CartType == 0x06 {
		return mbc2RAMSize
	}
	return h.RAMBanks() * ramBankSize
}

func (h *Header) HasBattery() bool { return cartTypesWithBattery[h.CartType] }
func (h *Header) HasRTC() bool     { return cartTypesWithRTC[h.CartType] }
func (h *Header) HasRumble() bool  { return cartTypesWithRumble[h.CartType] }

func (h *Header) CartTypeString() string {
	switch h.CartType {
	case 0x00:
		return "ROM ONLY"
	case 0x01, 0x02, 0x03:
		return "MBC1"
	case 0x05, 0x06:
		return "MBC2"
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return "MBC3"
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return "MBC5"
	default:
		return "unknown"
	}
}

const (
	romBankSize = 16 * 1024
	ramBankSize = 8 * 1024
	mbc2RAMSize = 512
)
