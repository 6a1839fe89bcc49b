package bigtools

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/nvictus/bigtools/internal/chromtree"
	"github.com/nvictus/bigtools/internal/codec"
	"github.com/nvictus/bigtools/internal/rtree"
)

// ReadOptions controls reader tuning. The zero value selects defaults.
type ReadOptions struct {
	// CacheSlots is the number of direct-mapped chunk-cache slots.
	// Default defaultCacheSlots.
	CacheSlots int
	// CacheSlotSize is the size in bytes of each cache slot. Default
	// defaultCacheSlotSize.
	CacheSlotSize int
}

const (
	defaultCacheSlots    = 16
	defaultCacheSlotSize = 8192
)

func (o ReadOptions) withDefaults() ReadOptions {
	if o.CacheSlots <= 0 {
		o.CacheSlots = defaultCacheSlots
	}
	if o.CacheSlotSize <= 0 {
		o.CacheSlotSize = defaultCacheSlotSize
	}
	return o
}

// Reader provides random-access queries against an open BBI file. A
// Reader is not safe for concurrent use; call Clone to get an
// independent Reader (its own file handle, its own empty cache) for use
// from another goroutine.
type Reader struct {
	path string
	f    *os.File
	opts ReadOptions

	swap bool
	hdr  header

	zoomHdrs []zoomHeader
	chroms   []chromtree.Entry
	byName   map[string]chromtree.Entry
	byID     map[uint32]chromtree.Entry

	cache *chunkCache
}

// Open opens the BBI file at path and reads its header, zoom headers,
// and chromosome table.
func Open(path string, opts ReadOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapErr(KindIO, "open", err)
	}
	r := &Reader{path: path, f: f, opts: opts.withDefaults()}
	if err := r.init(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) init() error {
	r.cache = newChunkCache(r.opts.CacheSlots, r.opts.CacheSlotSize, r.rawReadAt)

	hdrBytes, err := r.rawReadAt(0, headerSize)
	if err != nil {
		return wrapErr(KindIO, "read header", err)
	}
	magicLE := decodeHeader(hdrBytes, false).magic
	switch magicLE {
	case MagicBigWig, MagicBigBed:
		r.swap = false
	default:
		magicBE := decodeHeader(hdrBytes, true).magic
		if magicBE != MagicBigWig && magicBE != MagicBigBed {
			return newErr(KindNotBBI, fmt.Sprintf("first four bytes do not match a known magic (got %#x)", magicLE))
		}
		r.swap = true
	}
	r.hdr = decodeHeader(hdrBytes, r.swap)

	if r.hdr.zoomLevels > 0 {
		zb, err := r.rawReadAt(headerSize, int(r.hdr.zoomLevels)*zoomHeaderSize)
		if err != nil {
			return wrapErr(KindIO, "read zoom headers", err)
		}
		for i := 0; i < int(r.hdr.zoomLevels); i++ {
			zh := decodeZoomHeader(zb[i*zoomHeaderSize : (i+1)*zoomHeaderSize])
			if r.swap {
				zh.reduction = swap32(zh.reduction)
				zh.dataOffset = swap64(zh.dataOffset)
				zh.indexOffset = swap64(zh.indexOffset)
			}
			r.zoomHdrs = append(r.zoomHdrs, zh)
		}
	}

	ctBytes, err := r.readWholeChromTree()
	if err != nil {
		return wrapErr(KindInvalidChroms, "read chromosome tree", err)
	}
	entries, err := chromtree.Read(ctBytes, r.hdr.chromTreeOffset)
	if err != nil {
		return wrapErr(KindInvalidChroms, "decode chromosome tree", err)
	}
	r.chroms = entries
	r.byName = make(map[string]chromtree.Entry, len(entries))
	r.byID = make(map[uint32]chromtree.Entry, len(entries))
	for _, e := range entries {
		r.byName[e.Name] = e
		r.byID[e.ID] = e
	}
	return nil
}

// readWholeChromTree reads from the chromosome tree's offset up to the
// data R-tree's root node (fullIndexOffset). In this writer's on-disk
// layout (data region, then chromosome tree, then data R-tree nodes in
// post-order, root last) the span can also include the R-tree's non-root
// nodes, which chromtree.Read never reaches.
func (r *Reader) readWholeChromTree() ([]byte, error) {
	n := int(r.hdr.fullIndexOffset - r.hdr.chromTreeOffset)
	if n <= 0 {
		return nil, fmt.Errorf("invalid chromosome tree span: %d", n)
	}
	return r.rawReadAt(r.hdr.chromTreeOffset, n)
}

func (r *Reader) rawReadAt(off uint64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := r.f.ReadAt(buf, int64(off)); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadAt satisfies rtree.Fetcher via the reader's chunk cache.
func (r *Reader) ReadAt(off uint64, n int) ([]byte, error) {
	return r.cache.read(off, n)
}

// Clone returns an independent Reader over the same file: its own
// handle, its own empty chunk cache. Use one clone per goroutine.
func (r *Reader) Clone() (*Reader, error) {
	return Open(r.path, r.opts)
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// IsBigWig reports whether the file is a BigWig (as opposed to BigBed).
func (r *Reader) IsBigWig() bool { return r.hdr.magic == MagicBigWig }

// GetChroms returns every chromosome name and length, in id order.
func (r *Reader) GetChroms() ChromSizes {
	out := make(ChromSizes, len(r.chroms))
	for _, e := range r.chroms {
		out[e.ID] = ChromSize{Name: e.Name, Length: e.Length}
	}
	return out
}

// GetSummary returns the global aggregate recorded in the file header.
func (r *Reader) GetSummary() (Summary, error) {
	b, err := r.rawReadAt(r.hdr.totalSummaryOffset, totalSummarySize)
	if err != nil {
		return Summary{}, wrapErr(KindIO, "read summary", err)
	}
	s := decodeSummary(b)
	return Summary{
		TotalItems:   s.totalItems,
		BasesCovered: s.validCount,
		Min:          s.minVal,
		Max:          s.maxVal,
		Sum:          s.sumData,
		SumSquares:   s.sumSquares,
	}, nil
}

func (r *Reader) chromID(name string) (uint32, uint32, bool) {
	e, ok := r.byName[name]
	if !ok {
		return 0, 0, false
	}
	return e.ID, e.Length, true
}

// GetInterval returns every BigWig Value overlapping [start, end) on
// chrom, clipped to that range.
func (r *Reader) GetInterval(chrom string, start, end uint32) ([]Value, error) {
	chromID, _, ok := r.chromID(chrom)
	if !ok {
		return nil, newErr(KindInvalidInput, fmt.Sprintf("unknown chromosome %q", chrom))
	}
	blocks, err := rtree.Query(r, r.hdr.fullIndexOffset, chromID, start, end)
	if err != nil {
		return nil, wrapErr(KindIO, "query data index", err)
	}
	var out []Value
	for _, blk := range blocks {
		payload, err := r.readBlock(blk)
		if err != nil {
			return nil, err
		}
		vals, err := decodeBigWigSection(payload, chromID, start, end)
		if err != nil {
			return nil, wrapErr(KindIO, "decode section", err)
		}
		out = append(out, vals...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// GetBedEntries returns every BigBed BedEntry overlapping [start, end)
// on chrom, clipped to that range.
func (r *Reader) GetBedEntries(chrom string, start, end uint32) ([]BedEntry, error) {
	chromID, _, ok := r.chromID(chrom)
	if !ok {
		return nil, newErr(KindInvalidInput, fmt.Sprintf("unknown chromosome %q", chrom))
	}
	blocks, err := rtree.Query(r, r.hdr.fullIndexOffset, chromID, start, end)
	if err != nil {
		return nil, wrapErr(KindIO, "query data index", err)
	}
	var out []BedEntry
	for _, blk := range blocks {
		payload, err := r.readBlock(blk)
		if err != nil {
			return nil, err
		}
		entries, err := decodeBigBedSection(payload, start, end)
		if err != nil {
			return nil, wrapErr(KindIO, "decode section", err)
		}
		out = append(out, entries...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// GetZoomInterval returns the ZoomRecords for the zoom level whose
// reduction exactly matches reductionLevel, overlapping [start, end).
func (r *Reader) GetZoomInterval(chrom string, start, end, reductionLevel uint32) ([]ZoomRecord, error) {
	chromID, _, ok := r.chromID(chrom)
	if !ok {
		return nil, newErr(KindInvalidInput, fmt.Sprintf("unknown chromosome %q", chrom))
	}
	zh, ok := r.findZoomLevel(reductionLevel)
	if !ok {
		return nil, newErr(KindUnknownZoomLevel, fmt.Sprintf("no zoom level with reduction %d", reductionLevel))
	}
	blocks, err := rtree.Query(r, zh.indexOffset, chromID, start, end)
	if err != nil {
		return nil, wrapErr(KindIO, "query zoom index", err)
	}
	var out []ZoomRecord
	for _, blk := range blocks {
		payload, err := r.readBlock(blk)
		if err != nil {
			return nil, err
		}
		recs, err := decodeZoomSection(payload, chromID, start, end)
		if err != nil {
			return nil, wrapErr(KindIO, "decode zoom section", err)
		}
		out = append(out, recs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *Reader) findZoomLevel(reduction uint32) (zoomHeader, bool) {
	for _, zh := range r.zoomHdrs {
		if zh.reduction == reduction {
			return zh, true
		}
	}
	return zoomHeader{}, false
}

// GetZoomIntervalAuto picks whichever stored zoom level best matches
// numBins over [start, end) and returns its records, or reports no
// zoom level qualifying so the caller can fall back to Values. The
// chosen level is the coarsest one whose reduction does not exceed the
// span's per-bin width; among levels exceeding it, none qualify, since
// a coarser-than-requested level would merge bins the caller asked to
// keep separate.
func (r *Reader) GetZoomIntervalAuto(chrom string, start, end uint32, numBins int) ([]ZoomRecord, uint32, bool, error) {
	if numBins <= 0 || end <= start || len(r.zoomHdrs) == 0 {
		return nil, 0, false, nil
	}
	desired := (end - start) / uint32(numBins)
	if desired < 2 {
		return nil, 0, false, nil
	}
	zh, ok := r.bestZoomLevel(desired)
	if !ok {
		return nil, 0, false, nil
	}
	recs, err := r.GetZoomInterval(chrom, start, end, zh.reduction)
	return recs, zh.reduction, true, err
}

// bestZoomLevel returns the stored level with the largest reduction
// that is still <= desiredReduction, i.e. the coarsest level that is
// not coarser than the request.
func (r *Reader) bestZoomLevel(desiredReduction uint32) (zoomHeader, bool) {
	best, haveBest := zoomHeader{}, false
	for _, zh := range r.zoomHdrs {
		if desiredReduction >= zh.reduction && (!haveBest || zh.reduction > best.reduction) {
			best, haveBest = zh, true
		}
	}
	return best, haveBest
}

// Values fills a slice of length end-start with the BigWig signal over
// [start, end), pre-filled with NaN where no record covers a position.
func (r *Reader) Values(chrom string, start, end uint32) ([]float32, error) {
	out := make([]float32, end-start)
	for i := range out {
		out[i] = float32(math.NaN())
	}
	vals, err := r.GetInterval(chrom, start, end)
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		lo, hi := v.Start, v.End
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}
		for p := lo; p < hi; p++ {
			out[p-start] = v.Value
		}
	}
	return out, nil
}

func (r *Reader) readBlock(blk rtree.Leaf) ([]byte, error) {
	compressed, err := r.cache.read(blk.Offset, int(blk.Size))
	if err != nil {
		return nil, wrapErr(KindIO, "read block", err)
	}
	if r.hdr.uncompressBufSize == 0 {
		return compressed, nil
	}
	raw, err := codec.Decompress(compressed, int(r.hdr.uncompressBufSize))
	if err != nil {
		// Sections that failed to shrink during write are stored
		// uncompressed even when uncompressBufSize > 0; fall back to
		// treating the bytes as already-raw.
		return compressed, nil
	}
	return raw, nil
}
