package bigtools

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/nvictus/bigtools/internal/chromid"
	"github.com/nvictus/bigtools/internal/chromtree"
	"github.com/nvictus/bigtools/internal/grouper"
	"github.com/nvictus/bigtools/internal/rtree"
	"github.com/nvictus/bigtools/internal/section"
	"github.com/nvictus/bigtools/internal/source"
	"github.com/nvictus/bigtools/internal/zoom"
	"golang.org/x/sync/errgroup"
	"v.io/x/lib/vlog"
)

// WriteOptions controls the ingestion pipeline's tuning knobs. The zero
// value selects the package defaults.
type WriteOptions struct {
	// ItemsPerSection bounds how many records a single data section
	// holds. Default section.DefaultItemsPerSection.
	ItemsPerSection int
	// Workers is the compression pool size. Default section.DefaultWorkers.
	Workers int
	// BranchingFactor is the R-tree fan-out, used for both the base data
	// index and every zoom level's index. Default rtree.DefaultBranchingFactor.
	BranchingFactor int
	// ZoomBase is the geometric ratio between reduction levels. Default
	// zoom.DefaultBase.
	ZoomBase uint32
	// ZoomLevels is the number of zoom levels to build. Default
	// zoom.DefaultLevelCount. Negative disables the zoom pyramid entirely.
	ZoomLevels int
	// CompressionLevel is the flate level passed to the compression
	// pool. 0 selects flate.DefaultCompression.
	CompressionLevel int
}

func (o WriteOptions) withDefaults() WriteOptions {
	if o.ItemsPerSection <= 0 {
		o.ItemsPerSection = section.DefaultItemsPerSection
	}
	if o.Workers <= 0 {
		o.Workers = section.DefaultWorkers
	}
	if o.BranchingFactor <= 0 {
		o.BranchingFactor = rtree.DefaultBranchingFactor
	}
	if o.ZoomBase <= 1 {
		o.ZoomBase = zoom.DefaultBase
	}
	if o.ZoomLevels == 0 {
		o.ZoomLevels = zoom.DefaultLevelCount
	}
	return o
}

// Sink is the seekable output a Writer needs: ordinary files satisfy it.
type Sink interface {
	io.WriterAt
	io.Writer
	io.Seeker
}

// WriteBigWig streams src into sink as a BigWig file. chroms fixes the
// chromosome id assignment order; any record naming a chromosome not in
// chroms is a hard error.
func WriteBigWig(sink Sink, src source.Source, chroms ChromSizes, opts WriteOptions) error {
	return runWriter(sink, src, chroms, opts, section.BigWig, MagicBigWig)
}

// WriteBigBed streams src into sink as a BigBed file.
func WriteBigBed(sink Sink, src source.Source, chroms ChromSizes, opts WriteOptions) error {
	return runWriter(sink, src, chroms, opts, section.BigBed, MagicBigBed)
}

type sectionMeta struct {
	chromID uint32
	start   uint32
	end     uint32
}

func runWriter(sink Sink, src source.Source, chroms ChromSizes, opts WriteOptions, kind section.Kind, magic uint32) (err error) {
	opts = opts.withDefaults()

	vlog.VI(1).Infof("bigtools: opening writer, %d chromosomes, %d zoom levels", len(chroms), opts.ZoomLevels)
	defer vlog.VI(1).Infof("bigtools: writer closed")

	ids := chromid.NewFromSizes(chroms.Names())

	var reductions []uint32
	if opts.ZoomLevels > 0 {
		reductions = zoom.Levels(opts.ZoomBase, opts.ZoomLevels)
	}

	// The zoom headers sit immediately after the main header, before the
	// data region, so their space must be reserved now even though their
	// contents (data/index offsets) aren't known until the whole pipeline
	// finishes.
	preamble := headerSize + len(reductions)*zoomHeaderSize
	if _, err := sink.Write(make([]byte, preamble)); err != nil {
		return wrapErr(KindIO, "write placeholder header", err)
	}

	pos := uint64(preamble)
	writeAt := func(b []byte) (uint64, error) {
		off := pos
		if _, err := sink.Write(b); err != nil {
			return 0, err
		}
		pos += uint64(len(b))
		return off, nil
	}

	pool := section.NewPool(opts.Workers, opts.CompressionLevel)
	engine := zoom.New(reductions, opts.ItemsPerSection, opts.BranchingFactor, opts.CompressionLevel)

	builder := section.NewBuilder(kind, opts.ItemsPerSection)
	rt := rtree.NewBuilder(opts.BranchingFactor)

	var metas []sectionMeta
	var seq int64
	maxUncompressed := 0
	var summary Summary

	g := grouper.New(src)
	for {
		chromName, sub, ok, gerr := g.Next()
		if gerr != nil {
			pool.Cancel()
			return classify("group records", gerr)
		}
		if !ok {
			break
		}
		length, known := chroms.Lookup(chromName)
		if !known {
			pool.Cancel()
			return newErr(KindInvalidInput, fmt.Sprintf("record references unknown chromosome %q", chromName))
		}
		chromID, _ := ids.Lookup(chromName)
		builder.Reset(chromID)

		for {
			rec, ok, serr := sub.Next()
			if serr != nil {
				pool.Cancel()
				return classify("read chromosome "+chromName, serr)
			}
			if !ok {
				break
			}
			if rec.End > length {
				pool.Cancel()
				return newErr(KindInvalidInput, fmt.Sprintf("record end %d exceeds length %d of chromosome %q", rec.End, length, chromName))
			}
			if err := builder.Add(rec); err != nil {
				pool.Cancel()
				return wrapErr(KindInvalidInput, "encode record", err)
			}
			v := float32(1)
			if kind == section.BigWig {
				parsed, perr := strconv.ParseFloat(rec.Rest, 32)
				if perr != nil {
					pool.Cancel()
					return newErr(KindInvalidInput, fmt.Sprintf("record value %q on chromosome %q is not a valid number", rec.Rest, chromName))
				}
				v = float32(parsed)
			}
			engine.Add(chromID, rec.Start, rec.End, v)
			summary.TotalItems++
			summary.BasesCovered += uint64(rec.End - rec.Start)
			summary.Sum += float64(v) * float64(rec.End-rec.Start)
			summary.SumSquares += float64(v) * float64(v) * float64(rec.End-rec.Start)
			if summary.TotalItems == 1 {
				summary.Min, summary.Max = float64(v), float64(v)
			} else {
				summary.Min = math.Min(summary.Min, float64(v))
				summary.Max = math.Max(summary.Max, float64(v))
			}

			if builder.Full() {
				if err := flushSection(builder, pool, &metas, &seq); err != nil {
					pool.Cancel()
					return wrapErr(KindIO, "submit section", err)
				}
			}
		}
		if raw, ok := builder.Flush(); ok {
			metas = append(metas, sectionMeta{chromID: raw.ChromID, start: raw.Start, end: raw.End})
			pool.Submit(seq, raw.Bytes)
			seq++
		}
		engine.FinishChrom(chromID)
		vlog.VI(2).Infof("bigtools: finished chromosome %q (id %d)", chromName, chromID)
	}
	pool.CloseSubmit()
	vlog.VI(1).Infof("bigtools: all sections submitted, draining compression pool (%d sections)", len(metas))

	for i := 0; i < len(metas); i++ {
		res, ok := pool.NextCompleted()
		if !ok {
			return wrapErr(KindIO, "compression pool closed early", io.ErrUnexpectedEOF)
		}
		if res.Err != nil {
			return wrapErr(KindIO, "compress section", res.Err)
		}
		if res.UncompressedSize > maxUncompressed {
			maxUncompressed = res.UncompressedSize
		}
		off, err := writeAt(res.Payload)
		if err != nil {
			return wrapErr(KindIO, "write section", err)
		}
		m := metas[res.Seq]
		rt.Add(rtree.Leaf{
			ChromStart: m.chromID,
			Start:      m.start,
			ChromEnd:   m.chromID,
			End:        m.end,
			Offset:     off,
			Size:       uint64(len(res.Payload)),
		})
	}
	pool.Wait()

	fullDataOffset := uint64(preamble)

	// Chromosome tree.
	entries := make([]chromtree.Entry, len(chroms))
	for i, cs := range chroms {
		entries[i] = chromtree.Entry{Name: cs.Name, ID: uint32(i), Length: cs.Length}
	}
	chromTreeOffset, err := writeAt(chromtree.Write(entries))
	if err != nil {
		return wrapErr(KindIO, "write chromosome tree", err)
	}

	// Base-level R-tree.
	tree := rt.Build()
	fullIndexOffset, err := tree.Write(func(b []byte) (uint64, error) { return writeAt(b) })
	if err != nil {
		return wrapErr(KindIO, "write data index", err)
	}

	// Zoom levels: flush each independently in parallel, then append
	// sequentially so file layout stays deterministic regardless of
	// which level finishes first.
	var zoomHeaders []zoomHeader
	results := make([]zoom.LevelResult, engine.NumLevels())
	{
		var eg errgroup.Group
		for i := 0; i < engine.NumLevels(); i++ {
			i := i
			eg.Go(func() error {
				r, err := engine.Flush(i)
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return wrapErr(KindIO, "flush zoom levels", err)
		}
	}
	for _, r := range results {
		if len(r.Entries) == 0 {
			// Every chromosome with records closes at least one bin per
			// level, so a level is empty only when no records were
			// written at all; such a level has nothing to index and is
			// omitted from the file entirely rather than recorded as a
			// zero-reduction header.
			continue
		}
		dataOffset, err := writeAt(r.Data)
		if err != nil {
			return wrapErr(KindIO, "write zoom data", err)
		}
		zrt := rtree.NewBuilder(opts.BranchingFactor)
		for _, e := range r.Entries {
			e.Offset += dataOffset
			zrt.Add(e)
		}
		indexOffset, err := zrt.Build().Write(func(b []byte) (uint64, error) { return writeAt(b) })
		if err != nil {
			return wrapErr(KindIO, "write zoom index", err)
		}
		zoomHeaders = append(zoomHeaders, zoomHeader{reduction: r.Reduction, dataOffset: dataOffset, indexOffset: indexOffset})
	}

	totalSummaryOffset, err := writeAt(summaryOnDisk{
		totalItems: summary.TotalItems,
		validCount: summary.BasesCovered,
		minVal:     summary.Min,
		maxVal:     summary.Max,
		sumData:    summary.Sum,
		sumSquares: summary.SumSquares,
	}.encode())
	if err != nil {
		return wrapErr(KindIO, "write summary", err)
	}

	// Patch header.
	h := header{
		magic:              magic,
		version:            fileVersion,
		zoomLevels:         uint16(len(zoomHeaders)),
		chromTreeOffset:    chromTreeOffset,
		fullDataOffset:     fullDataOffset,
		fullIndexOffset:    fullIndexOffset,
		autoSQLOffset:      0,
		totalSummaryOffset: totalSummaryOffset,
		uncompressBufSize:  uint32(maxUncompressed),
	}
	if kind == section.BigBed {
		h.fieldCount = 3
		h.definedFieldCount = 3
	}
	if _, err := sink.WriteAt(h.encode(), 0); err != nil {
		return wrapErr(KindIO, "patch header", err)
	}
	zoomBuf := make([]byte, 0, len(zoomHeaders)*zoomHeaderSize)
	for _, zh := range zoomHeaders {
		zoomBuf = append(zoomBuf, zh.encode()...)
	}
	if len(zoomBuf) > 0 {
		if _, err := sink.WriteAt(zoomBuf, headerSize); err != nil {
			return wrapErr(KindIO, "patch zoom headers", err)
		}
	}
	return nil
}

func flushSection(b *section.Builder, pool *section.Pool, metas *[]sectionMeta, seq *int64) error {
	raw, ok := b.Flush()
	if !ok {
		return nil
	}
	*metas = append(*metas, sectionMeta{chromID: raw.ChromID, start: raw.Start, end: raw.End})
	pool.Submit(*seq, raw.Bytes)
	*seq++
	return nil
}

