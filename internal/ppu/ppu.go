package ppu

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT, etc.).
type InterruptRequester func(bit int)

// LineRegs is a snapshot of the registers that matter for scanline reproduction, captured
// at the moment a line enters pixel transfer (mode 3). Tests and the frame builder use it
// to reason about a specific historical line rather than the PPU's live (later) state.
type LineRegs struct {
	WinLine                byte
	SCX, SCY, WX, WY        byte
	LCDC, BGP, OBP0, OBP1   byte
}

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC timing, and the BG/window/sprite pixel
// pipeline. Mode-3 length is computed once per line from the Pan Docs-documented formula
// (172 base dots + SCX fine-scroll + a one-time window fetch penalty + a per-sprite
// penalty) rather than driven pixel-by-pixel, so STAT/LY timing stays correct for games
// that poll it while the actual pixel content is produced in one batch per line via the
// same fetcher primitives the pixel-accurate helpers in fetcher.go/sprite.go implement.
type PPU struct {
	vram [0x2000]byte // 0x8000–0x9FFF
	oam  [0xA0]byte   // 0xFE00–0xFE9F

	lcdc byte // FF40
	stat byte // FF41
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot        int // dots within current line [0..455]; negative during the first line 0 OAM search after the line-153 quirk
	mode3Len   int // computed at mode2->3 transition for the current line

	sprites         []Sprite
	wyEqualLy       bool
	windowLineCt    byte
	lineRegs        [144]LineRegs

	oldStat bool // latched combined STAT signal, for edge-triggering IF bit 1

	frame [144][160]byte // resolved shade index (0..3) per pixel, palette already applied

	req InterruptRequester
}

func New(req InterruptRequester) *PPU { return &PPU{req: req} }

// FrameBuffer returns the last fully composed frame (144 rows of 160 shade indices 0..3).
func (p *PPU) FrameBuffer() *[144][160]byte { return &p.frame }

// LineRegs returns the register snapshot captured when line y entered pixel transfer.
func (p *PPU) LineRegs(y int) LineRegs {
	if y < 0 || y >= len(p.lineRegs) {
		return LineRegs{}
	}
	return p.lineRegs[y]
}

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			p.ly = 0
			p.dot = 0
			p.setMode(0)
			p.updateLYC()
			p.wyEqualLy = false
			p.windowLineCt = 0
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			p.ly = 0
			p.dot = 0
			p.setMode(2)
			p.updateLYC()
			p.wyEqualLy = false
			p.windowLineCt = 0
			p.scanOAMForLine()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
		p.updateStatLine()
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		// LY is read-only on real hardware; writes are discarded.
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// Tick advances PPU state by the given number of dots (CPU cycles).
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 { // LCD off
			continue
		}
		p.dot++

		if p.ly < 144 {
			switch {
			case p.dot == 80:
				p.enterPixelTransfer()
			case p.mode3Len != 0 && p.dot == 80+p.mode3Len:
				p.setMode(0) // HBlank
			}
		}

		// Quirk: LY reads 153 for only 4 T-cycles; then LY wraps to 0 and the
		// next frame's OAM search (mode 2) starts. dot restarts at 4-456 so the
		// remaining 452 dots of line 153 are spent in that OAM search, and line 0's
		// own timeline (mode 3 at dot 80) starts exactly 154*456 = 70224 dots after
		// the previous frame's.
		if (p.stat&0x03) == 1 && p.ly == 153 && p.dot == 4 {
			p.dot = 4 - 456
			p.ly = 0
			p.mode3Len = 0
			p.wyEqualLy = p.wy == 0
			p.windowLineCt = 0
			p.updateLYC()
			if p.ly == p.wy {
				p.wyEqualLy = true
			}
			p.setMode(2)
			p.scanOAMForLine()
			continue
		}

		if p.dot >= 456 {
			p.dot = 0
			p.mode3Len = 0
			p.ly++
			if p.ly == 144 {
				p.setMode(1) // also raises STAT IF if the VBlank source is enabled
				if p.req != nil {
					p.req(0)
				} // VBlank IF
			}
			p.updateLYC()
			if p.ly == p.wy {
				p.wyEqualLy = true
			}
			if p.ly < 144 {
				p.setMode(2)
				p.scanOAMForLine()
			}
		}
	}
}

// enterPixelTransfer computes this line's mode-3 length, captures LineRegs, renders the
// line into the frame buffer, and switches STAT to mode 3.
func (p *PPU) enterPixelTransfer() {
	p.setMode(3)

	windowOn := (p.lcdc&0x20) != 0 && p.wyEqualLy && p.wx <= 166
	length := 172 + int(p.scx%8)
	if windowOn {
		length += 6
	}
	length += 6 * len(p.sprites)
	p.mode3Len = length

	winLine := byte(0)
	if windowOn {
		winLine = p.windowLineCt
	}
	p.lineRegs[p.ly] = LineRegs{
		WinLine: winLine,
		SCX: p.scx, SCY: p.scy, WX: p.wx, WY: p.wy,
		LCDC: p.lcdc, BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
	}
	if windowOn {
		p.windowLineCt++
	}

	p.renderLine(windowOn, winLine)
}

func (p *PPU) renderLine(windowOn bool, winLine byte) {
	ly := p.ly
	var bgci [160]byte
	if p.lcdc&0x01 != 0 {
		mapBase := uint16(0x9800)
		if p.lcdc&0x08 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := p.lcdc&0x10 != 0
		bgci = RenderBGScanlineUsingFetcher(p, mapBase, tileData8000, p.scx, p.scy, ly)
	}
	if windowOn {
		winMapBase := uint16(0x9800)
		if p.lcdc&0x40 != 0 {
			winMapBase = 0x9C00
		}
		tileData8000 := p.lcdc&0x10 != 0
		wxStart := int(p.wx) - 7
		wci := RenderWindowScanlineUsingFetcher(p, winMapBase, tileData8000, wxStart, winLine)
		for x := wxStart; x < 160; x++ {
			if x < 0 {
				continue
			}
			bgci[x] = wci[x]
		}
	}

	tall := p.lcdc&0x04 != 0
	var spCi [160]byte
	var spObp1 [160]bool
	var spShown [160]bool
	if p.lcdc&0x02 != 0 {
		spCi, spObp1, spShown = composeSpriteLineWithPalette(p, p.sprites, ly, bgci, tall)
	}

	for x := 0; x < 160; x++ {
		var shade byte
		if spShown[x] {
			pal := p.obp0
			if spObp1[x] {
				pal = p.obp1
			}
			shade = (pal >> (spCi[x] * 2)) & 0x03
		} else {
			shade = (p.bgp >> (bgci[x] * 2)) & 0x03
		}
		p.frame[ly][x] = shade
	}
}

func (p *PPU) scanOAMForLine() {
	tall := p.lcdc&0x04 != 0
	if p.lcdc&0x02 == 0 {
		p.sprites = nil
		return
	}
	p.sprites = scanSprites(p.oam[:], p.ly, tall)
}

// Read implements VRAMReader for the fetcher helpers.
func (p *PPU) Read(addr uint16) byte {
	if addr < 0x8000 || addr > 0x9FFF {
		return 0xFF
	}
	return p.vram[addr-0x8000]
}

func (p *PPU) setMode(mode byte) {
	if (p.stat & 0x03) == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	p.updateStatLine()
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
	} else {
		p.stat &^= 1 << 2
	}
	p.updateStatLine()
}

// statSignal computes the combined STAT interrupt source: LYC==LY coincidence OR'd with
// whichever of HBlank/VBlank/OAM matches the current mode, each gated by its own enable bit.
func (p *PPU) statSignal() bool {
	if (p.stat&(1<<2)) != 0 && (p.stat&(1<<6)) != 0 {
		return true
	}
	switch p.stat & 0x03 {
	case 0:
		return (p.stat & (1 << 3)) != 0
	case 1:
		return (p.stat & (1 << 4)) != 0
	case 2:
		return (p.stat & (1 << 5)) != 0
	default:
		return false
	}
}

// updateStatLine recomputes the combined STAT signal and requests IF bit 1 only on its
// 0->1 transition, so two sources becoming true on the same dot (e.g. a mode change that
// lands exactly on an LYC match) still requests the interrupt once, not once per source.
func (p *PPU) updateStatLine() {
	sig := p.statSignal()
	if sig && !p.oldStat {
		if p.req != nil {
			p.req(1)
		}
	}
	p.oldStat = sig
}

// Expose palettes and scroll for renderer convenience (optional helpers)
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
