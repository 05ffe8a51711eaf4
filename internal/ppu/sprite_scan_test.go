package ppu

import "testing"

func buildOAMEntry(oam []byte, index int, y, x, tile, attr byte) {
	base := index * 4
	oam[base+0] = y
	oam[base+1] = x
	oam[base+2] = tile
	oam[base+3] = attr
}

func TestScanSpritesExcludesXEqualsZero(t *testing.T) {
	var oam [0xA0]byte
	// On-screen Y (ly=10 -> OAM Y=26) but X=0 must be excluded regardless of Y match.
	buildOAMEntry(oam[:], 0, 26, 0, 0, 0)
	// A second, visible sprite at X=8 (screen X=0) should still be picked up.
	buildOAMEntry(oam[:], 1, 26, 8, 1, 0)

	sprites := scanSprites(oam[:], 10, false)
	if len(sprites) != 1 {
		t.Fatalf("expected exactly 1 sprite after excluding x=0, got %d", len(sprites))
	}
	if sprites[0].OAMIndex != 1 {
		t.Fatalf("expected surviving sprite to be OAM index 1, got %d", sprites[0].OAMIndex)
	}
}

func TestScanSpritesXEqualsZeroDoesNotCountAgainstTenSpriteCap(t *testing.T) {
	var oam [0xA0]byte
	// Nine real sprites at x=0 (excluded) plus ten visible ones: the cap must only
	// count the visible ones, so all ten visible sprites should survive.
	for i := 0; i < 9; i++ {
		buildOAMEntry(oam[:], i, 26, 0, 0, 0)
	}
	for i := 0; i < 10; i++ {
		buildOAMEntry(oam[:], 9+i, 26, byte(16+i), 0, 0)
	}

	sprites := scanSprites(oam[:], 10, false)
	if len(sprites) != 10 {
		t.Fatalf("expected 10 visible sprites unaffected by excluded x=0 entries, got %d", len(sprites))
	}
}
