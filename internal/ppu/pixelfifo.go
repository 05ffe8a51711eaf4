package ppu

// Pixel is a single sprite pixel as it travels through the merge FIFO: a 2-bit color
// index plus the OBP selector and OBJ-to-BG priority bit needed to finish compositing
// once it reaches the front of the queue.
type Pixel struct {
	Color      byte
	UseOBP1    bool
	BGPriority bool
}

const spriteFifoCapacity = 8

// MergeFifo is the sprite pixel FIFO: bounded to 8 entries like the BG FIFO, but its Push
// only overwrites a slot if that slot is empty or holds a transparent (color 0) pixel, so
// an earlier, higher-priority sprite's opaque pixels survive a later overlapping sprite's
// fetch into the same slots. Clear rewinds the push/pop indices arithmetically without
// nulling the buffer, so pixels already written at a given column persist through a
// Clear+refill there, letting a fresh sprite's fetch merge on top of them.
type MergeFifo struct {
	buf   [spriteFifoCapacity]Pixel
	valid [spriteFifoCapacity]bool
	pushI int
	popI  int
	len   int
}

func (f *MergeFifo) Len() int { return f.len }

func (f *MergeFifo) Push(p Pixel) {
	if f.len >= spriteFifoCapacity {
		return
	}
	if !(f.valid[f.pushI] && f.buf[f.pushI].Color != 0) {
		f.buf[f.pushI] = p
	}
	f.valid[f.pushI] = true
	f.pushI = (f.pushI + 1) % spriteFifoCapacity
	f.len++
}

func (f *MergeFifo) Shift() (Pixel, bool) {
	if f.len == 0 {
		return Pixel{}, false
	}
	p := f.buf[f.popI]
	ok := f.valid[f.popI]
	f.valid[f.popI] = false
	f.popI = (f.popI + 1) % spriteFifoCapacity
	f.len--
	return p, ok
}

func (f *MergeFifo) Clear() {
	if f.len > f.pushI {
		f.pushI = spriteFifoCapacity - (f.len - f.pushI)
	} else {
		f.pushI -= f.len
	}
	f.popI = f.pushI
	f.len = 0
}

func (f *MergeFifo) FullClear() {
	f.Clear()
	for i := range f.valid {
		f.valid[i] = false
	}
}
