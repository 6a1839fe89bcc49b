package zoom

import (
	"fmt"

	"github.com/nvictus/bigtools/internal/codec"
	"github.com/nvictus/bigtools/internal/rtree"
)

// zoomSectionType tags a zoom data section distinctly from the three
// base-level BigWig section types; BigBed zoom sections use it too,
// since zoom records have the same shape regardless of source format.
const zoomSectionType uint8 = 4

// DefaultItemsPerSection is the maximum number of Records per compressed
// zoom section. A level's closed bins stay in memory until Flush, which
// splits them into sections of at most this many.
const DefaultItemsPerSection = 1024

// LevelResult is everything the writer needs to place one flushed zoom
// level into the output file: the concatenated compressed section bytes
// and the leaf entries indexing them, with offsets relative to the start
// of Data (the writer adds its own base file offset before building the
// level's R-tree).
type LevelResult struct {
	Reduction uint32
	Data      []byte
	Entries   []rtree.Leaf
	ItemCount uint64
}

// Engine runs every configured reduction level against the same ordered
// record stream, closing and re-opening each level's per-chromosome bin
// independently.
type Engine struct {
	reductions      []uint32
	levels          []*levelState
	itemsPerSection int
	branch          int
	level           int // compression level, 0 = default
}

type levelState struct {
	reduction uint32
	acc       *Accumulator
	chromID   uint32
	haveAcc   bool

	pending []Record
	data    []byte
	leaves  []rtree.Leaf
	items   uint64
}

// New builds an Engine for the given reduction widths.
// itemsPerSection <= 0 uses DefaultItemsPerSection. branch is stored but
// not used by the Engine, which returns leaf entries rather than a built
// R-tree. compressionLevel is the flate level
// applied to each level's sealed sections (0 selects
// flate.DefaultCompression).
func New(reductions []uint32, itemsPerSection, branch, compressionLevel int) *Engine {
	if itemsPerSection <= 0 {
		itemsPerSection = DefaultItemsPerSection
	}
	e := &Engine{reductions: reductions, itemsPerSection: itemsPerSection, branch: branch, level: compressionLevel}
	for _, red := range reductions {
		e.levels = append(e.levels, &levelState{reduction: red})
	}
	return e
}

// NumLevels returns the number of configured reduction levels.
func (e *Engine) NumLevels() int { return len(e.levels) }

// Reduction returns the reduction width of level idx.
func (e *Engine) Reduction(idx int) uint32 { return e.reductions[idx] }

// Add folds [s, e) with value v into every level's current bin for
// chromID. Callers processing BigBed features pass v = 1.
func (e *Engine) Add(chromID, s, end uint32, v float32) {
	for _, lv := range e.levels {
		if !lv.haveAcc || lv.chromID != chromID {
			if lv.haveAcc {
				lv.acc.Finish(func(r Record) { lv.seal(r) })
			}
			lv.acc = NewAccumulator(chromID, lv.reduction)
			lv.chromID = chromID
			lv.haveAcc = true
		}
		lv.acc.Add(s, end, v, func(r Record) { lv.seal(r) })
	}
}

// FinishChrom closes every level's open bin for chromID. Call once a
// chromosome's records are exhausted, before moving to the next one.
func (e *Engine) FinishChrom(chromID uint32) {
	for _, lv := range e.levels {
		if lv.haveAcc && lv.chromID == chromID {
			lv.acc.Finish(func(r Record) { lv.seal(r) })
			lv.haveAcc = false
		}
	}
}

func (lv *levelState) seal(r Record) {
	lv.pending = append(lv.pending, r)
}

// flushPending compresses whatever is buffered in lv.pending into one
// section, appending it to lv.data and recording a leaf entry.
func (lv *levelState) flushPending(level int) error {
	if len(lv.pending) == 0 {
		return nil
	}
	n := len(lv.pending)
	first, last := lv.pending[0], lv.pending[n-1]

	w := codec.NewWriter()
	w.U32(first.ChromID)
	w.U32(first.Start)
	w.U32(last.End)
	w.U32(0) // item_step, unused for zoom sections
	w.U32(0) // item_span, unused for zoom sections
	w.U8(zoomSectionType)
	w.U8(0)
	w.U16(uint16(n))
	for _, r := range lv.pending {
		r.Encode(w)
	}
	raw := w.BytesOut()

	compressed, err := codec.Compress(raw, level)
	if err != nil {
		return fmt.Errorf("zoom: compress level reduction=%d: %w", lv.reduction, err)
	}
	payload := compressed
	if len(compressed) >= len(raw) {
		payload = raw
	}
	offset := uint64(len(lv.data))
	lv.data = append(lv.data, payload...)
	lv.leaves = append(lv.leaves, rtree.Leaf{
		ChromStart: first.ChromID,
		Start:      first.Start,
		ChromEnd:   last.ChromID,
		End:        last.End,
		Offset:     offset,
		Size:       uint64(len(payload)),
	})
	lv.items += uint64(n)
	lv.pending = lv.pending[:0]
	return nil
}

// Flush finalizes level idx — sealing any still-open bin is the caller's
// responsibility via FinishChrom — and returns its serialized data and
// index entries. Flush may run concurrently across levels since each
// operates on independent state.
func (e *Engine) Flush(idx int) (LevelResult, error) {
	lv := e.levels[idx]
	for len(lv.pending) > e.itemsPerSection {
		chunk := lv.pending[:e.itemsPerSection]
		rest := append([]Record(nil), lv.pending[e.itemsPerSection:]...)
		lv.pending = chunk
		if err := lv.flushPending(e.level); err != nil {
			return LevelResult{}, err
		}
		lv.pending = rest
	}
	if err := lv.flushPending(e.level); err != nil {
		return LevelResult{}, err
	}
	return LevelResult{
		Reduction: lv.reduction,
		Data:      lv.data,
		Entries:   lv.leaves,
		ItemCount: lv.items,
	}, nil
}
