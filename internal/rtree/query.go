package rtree

import "github.com/nvictus/bigtools/internal/codec"

const (
	nodeHeaderSize  = 4
	leafEntrySize   = 32
	innerEntrySize  = 24
)

// Fetcher reads exact-length byte ranges from the underlying file,
// typically backed by a small chunk cache so repeated R-tree descents
// don't re-read the same pages.
type Fetcher interface {
	ReadAt(off uint64, n int) ([]byte, error)
}

// Query returns every Leaf whose key range overlaps
// [chromID:start, chromID:end), descending from the node at rootOffset.
// The overlap test matches only within chromID: a leaf's chromStart..
// chromEnd span brackets the query chromosome the same way a
// [start,end) interval brackets a point, per the dataset's
// (chrom, position) total order.
func Query(f Fetcher, rootOffset uint64, chromID, start, end uint32) ([]Leaf, error) {
	var out []Leaf
	if err := queryNode(f, rootOffset, chromID, start, end, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func queryNode(f Fetcher, offset uint64, chromID, start, end uint32, out *[]Leaf) error {
	hdr, err := f.ReadAt(offset, nodeHeaderSize)
	if err != nil {
		return err
	}
	r := codec.NewReader(hdr)
	isLeaf := r.U8()
	r.U8() // reserved
	count := int(r.U16())

	if isLeaf != 0 {
		body, err := f.ReadAt(offset+nodeHeaderSize, count*leafEntrySize)
		if err != nil {
			return err
		}
		br := codec.NewReader(body)
		for i := 0; i < count; i++ {
			l := Leaf{
				ChromStart: br.U32(),
				Start:      br.U32(),
				ChromEnd:   br.U32(),
				End:        br.U32(),
				Offset:     br.U64(),
				Size:       br.U64(),
			}
			if overlaps(l.ChromStart, l.Start, l.ChromEnd, l.End, chromID, start, end) {
				*out = append(*out, l)
			}
		}
		return nil
	}

	body, err := f.ReadAt(offset+nodeHeaderSize, count*innerEntrySize)
	if err != nil {
		return err
	}
	br := codec.NewReader(body)
	type child struct {
		cs, s, ce, e uint32
		off          uint64
	}
	children := make([]child, count)
	for i := 0; i < count; i++ {
		children[i] = child{cs: br.U32(), s: br.U32(), ce: br.U32(), e: br.U32(), off: br.U64()}
	}
	for _, c := range children {
		if overlaps(c.cs, c.s, c.ce, c.e, chromID, start, end) {
			if err := queryNode(f, c.off, chromID, start, end, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// overlaps implements the pruning rule: a child key range
// [chromStart:start, chromEnd:end) overlaps the query
// [qChrom:qStart, qChrom:qEnd) iff the child's upper bound strictly
// exceeds the query's lower bound and the child's lower bound strictly
// precedes the query's upper bound, compared as (chrom, position) pairs.
func overlaps(chromStart, start, chromEnd, end, qChrom, qStart, qEnd uint32) bool {
	upperExceedsLower := chromEnd > qChrom || (chromEnd == qChrom && end > qStart)
	lowerPrecedesUpper := chromStart < qChrom || (chromStart == qChrom && start < qEnd)
	return upperExceedsLower && lowerPrecedesUpper
}
