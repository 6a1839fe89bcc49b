package bigtools

// Value is one BigWig record: a half-open [Start, End) interval and its
// signal value.
type Value struct {
	Start uint32
	End   uint32
	Value float32
}

// BedEntry is one BigBed record: a half-open [Start, End) interval and
// an opaque, tab-separated remainder of BED fields.
type BedEntry struct {
	Start uint32
	End   uint32
	Rest  string
}

// ChromSizes is an ordered chromosome-name-to-length mapping. Order
// matters: chromosome ids are assigned in this order, and that
// assignment is part of the on-disk format, so two writers given the
// same ChromSizes in different orders produce files with different ids
// for the same name.
type ChromSizes []ChromSize

// ChromSize is one chromosome's name and length in bases.
type ChromSize struct {
	Name   string
	Length uint32
}

// Lookup returns the length of name and whether it is present.
func (c ChromSizes) Lookup(name string) (uint32, bool) {
	for _, cs := range c {
		if cs.Name == name {
			return cs.Length, true
		}
	}
	return 0, false
}

// Names returns the chromosome names in table order.
func (c ChromSizes) Names() []string {
	out := make([]string, len(c))
	for i, cs := range c {
		out[i] = cs.Name
	}
	return out
}

// Summary is the global aggregate recorded in a BBI file's header.
type Summary struct {
	TotalItems   uint64
	BasesCovered uint64
	Min          float64
	Max          float64
	Sum          float64
	SumSquares   float64
}

// Mean returns Sum / BasesCovered, or 0 if no bases were covered.
func (s Summary) Mean() float64 {
	if s.BasesCovered == 0 {
		return 0
	}
	return s.Sum / float64(s.BasesCovered)
}

// ZoomRecord is one summarized bin from a zoom level.
type ZoomRecord struct {
	ChromID      uint32
	Start        uint32
	End          uint32
	BasesCovered uint32
	Min          float32
	Max          float32
	Sum          float32
	SumOfSquares float32
}

// Block locates one compressed data block by file offset and size. The
// R-tree query returns its own rtree.Leaf values internally; no function
// in this package returns a Block.
type Block struct {
	Offset uint64
	Size   uint64
}
