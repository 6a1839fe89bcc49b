package bigtools

// chunkCache is a small direct-mapped cache of fixed-size file chunks,
// used to avoid re-reading header and R-tree pages across many small
// queries against the same Reader.
type chunkCache struct {
	slotSize int
	slots    []cacheSlot
	fetch    func(off uint64, n int) ([]byte, error)
}

type cacheSlot struct {
	valid bool
	index uint64 // off / slotSize
	data  []byte
}

func newChunkCache(numSlots, slotSize int, fetch func(off uint64, n int) ([]byte, error)) *chunkCache {
	return &chunkCache{
		slotSize: slotSize,
		slots:    make([]cacheSlot, numSlots),
		fetch:    fetch,
	}
}

// read returns n bytes starting at off. Reads that fit entirely inside
// one cache-line-aligned chunk are served through the cache; reads that
// span multiple chunks (large blocks) bypass it and go straight to
// fetch, since caching a one-off multi-chunk read buys nothing.
func (c *chunkCache) read(off uint64, n int) ([]byte, error) {
	chunkOff := off / uint64(c.slotSize)
	withinChunkEnd := (off + uint64(n) - 1) / uint64(c.slotSize)
	if n <= 0 {
		return nil, nil
	}
	if chunkOff != withinChunkEnd {
		return c.fetch(off, n)
	}

	slot := &c.slots[chunkOff%uint64(len(c.slots))]
	if !slot.valid || slot.index != chunkOff {
		data, err := c.fetch(chunkOff*uint64(c.slotSize), c.slotSize)
		if err != nil {
			// The final chunk in a file may be short; fall back to an
			// uncached direct read sized to what the caller asked for.
			return c.fetch(off, n)
		}
		slot.valid = true
		slot.index = chunkOff
		slot.data = data
	}
	start := off - chunkOff*uint64(c.slotSize)
	return slot.data[start : start+uint64(n)], nil
}
