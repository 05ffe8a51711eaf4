package ppu

import "sort"

// Sprite is one OAM entry already translated to screen-space X/Y (OAM X-8, OAM Y-16),
// matching the sprite fetcher's addressing in the original Rust pixel pipeline
// (ppu/pixel_fetcher/sprite_fetcher.rs), where sprites always use 0x8000 tile addressing
// regardless of LCDC.4.
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

const (
	spriteAttrPriority = 1 << 7
	spriteAttrYFlip    = 1 << 6
	spriteAttrXFlip    = 1 << 5
	spriteAttrPalette  = 1 << 4
)

// scanSprites selects up to 10 sprites visible on scanline ly, in OAM order, from the
// 40-entry OAM table (Sprite #0 at 0xFE00, 4 bytes each: Y, X, tile, attr).
func scanSprites(oam []byte, ly byte, tall bool) []Sprite {
	height := 8
	if tall {
		height = 16
	}
	var out []Sprite
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := i * 4
		y := int(oam[base+0]) - 16
		x := int(oam[base+1]) - 8
		if oam[base+1] == 0 {
			continue
		}
		if int(ly) < y || int(ly) >= y+height {
			continue
		}
		out = append(out, Sprite{
			X: x, Y: y,
			Tile:     oam[base+2],
			Attr:     oam[base+3],
			OAMIndex: i,
		})
	}
	return out
}

// mergeSpritePixels resolves the sprite pixel for every column of scanline ly by pushing
// each selected sprite's 8-pixel tile row through a MergeFifo, processed in ascending-X
// fetch order (ties by OAM index) as the hardware's sprite fetcher would encounter them.
// A column already holding an earlier (higher-priority) sprite's opaque pixel survives a
// later overlapping sprite's push untouched, since MergeFifo only overwrites empty or
// color-0 slots.
func mergeSpritePixels(mem VRAMReader, sprites []Sprite, ly byte, tall bool) (merged [160]Pixel, present [160]bool) {
	ordered := make([]int, len(sprites))
	for i := range ordered {
		ordered[i] = i
	}
	sort.Slice(ordered, func(a, b int) bool {
		sa, sb := sprites[ordered[a]], sprites[ordered[b]]
		if sa.X != sb.X {
			return sa.X < sb.X
		}
		return sa.OAMIndex < sb.OAMIndex
	})
	height := 8
	if tall {
		height = 16
	}
	for _, idx := range ordered {
		s := sprites[idx]
		row := int(ly) - s.Y
		if s.Attr&spriteAttrYFlip != 0 {
			row = height - 1 - row
		}
		tile := s.Tile
		if tall {
			tile &^= 0x01
			if row >= 8 {
				tile |= 0x01
				row -= 8
			}
		}
		base := 0x8000 + uint16(tile)*16 + uint16(row)*2
		lo := mem.Read(base)
		hi := mem.Read(base + 1)

		var cols []int
		for col := 0; col < 8; col++ {
			x := s.X + col
			if x >= 0 && x < 160 {
				cols = append(cols, x)
			}
		}

		// Seed the FIFO with whatever already occupies these columns, then Clear
		// (which rewinds the indices without nulling the buffer) so the seeded
		// pixels are still physically present when this sprite's own pixels push
		// in behind them.
		var mf MergeFifo
		for _, x := range cols {
			if present[x] {
				mf.Push(merged[x])
			} else {
				mf.Push(Pixel{})
			}
		}
		mf.Clear()
		for col := 0; col < 8; col++ {
			x := s.X + col
			if x < 0 || x >= 160 {
				continue
			}
			bit := col
			if s.Attr&spriteAttrXFlip == 0 {
				bit = 7 - col
			}
			ci := ((hi>>uint(bit))&1)<<1 | ((lo >> uint(bit)) & 1)
			mf.Push(Pixel{
				Color:      ci,
				UseOBP1:    s.Attr&spriteAttrPalette != 0,
				BGPriority: s.Attr&spriteAttrPriority != 0,
			})
		}
		for _, x := range cols {
			p, ok := mf.Shift()
			if ok {
				merged[x] = p
				present[x] = true
			}
		}
	}
	return
}

// ComposeSpriteLine merges sprite pixels for scanline ly on top of the already-resolved
// BG/window color indices in bgci, applying the behind-BG priority bit and transparency.
// It returns raw 2-bit color indices (0 = no sprite pixel shown); palette application is
// the caller's responsibility since OBP0/OBP1 selection depends on which sprite won.
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte, tall bool) [160]byte {
	var out [160]byte
	merged, present := mergeSpritePixels(mem, sprites, ly, tall)
	for x := 0; x < 160; x++ {
		if !present[x] || merged[x].Color == 0 {
			continue
		}
		if merged[x].BGPriority && bgci[x] != 0 {
			continue
		}
		out[x] = merged[x].Color
	}
	return out
}

// composeSpriteLineWithPalette is the frame-builder's variant of ComposeSpriteLine: it also
// reports which OBP register (0 or 1) produced each visible sprite pixel.
func composeSpriteLineWithPalette(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte, tall bool) (ci [160]byte, useObp1 [160]bool, shown [160]bool) {
	merged, present := mergeSpritePixels(mem, sprites, ly, tall)
	for x := 0; x < 160; x++ {
		if !present[x] || merged[x].Color == 0 {
			continue
		}
		if merged[x].BGPriority && bgci[x] != 0 {
			continue
		}
		ci[x] = merged[x].Color
		useObp1[x] = merged[x].UseOBP1
		shown[x] = true
	}
	return
}
