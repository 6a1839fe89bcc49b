// Package bigtools writes and reads UCSC BBI files: BigWig (genome-wide
// floating-point signal) and BigBed (genome-wide interval annotation),
// both sharing the same container format — a 64-byte header, an optional
// zoom pyramid, a chromosome B+-tree, and an R-tree index over
// compressed data sections.
//
// Writing streams a Source of ascending, per-chromosome records through
// WriteBigWig or WriteBigBed: each chromosome's records are grouped,
// packed into fixed-size sections, deflated by a bounded worker pool,
// and indexed by an R-tree as they land; a zoom pyramid accumulates
// alongside, off the same record stream, and its levels are flushed
// concurrently once input ends. Reading opens a file with Open
// and answers range queries (GetInterval, GetBedEntries,
// GetZoomInterval) by descending the appropriate R-tree and decoding
// only the sections that overlap.
package bigtools
