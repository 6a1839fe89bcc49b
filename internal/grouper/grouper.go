// Package grouper converts a flat source.Source into a sequence of
// per-chromosome sub-streams, enforcing chromosome ordering and the "at
// most one record buffered, exactly one sub-stream live at a time"
// contract.
package grouper

import (
	"bytes"

	"github.com/nvictus/bigtools/internal/bbierr"
	"github.com/nvictus/bigtools/internal/contract"
	"github.com/nvictus/bigtools/internal/source"
)

// Grouper wraps a source.Source and hands out one SubStream per
// chromosome, in the order chromosomes first appear in the underlying
// stream. It is not safe for concurrent use — it and its SubStream are a
// single-threaded hand-off.
type Grouper struct {
	src source.Source

	initialized bool
	srcDone     bool
	haveNext    bool
	next        source.Record

	havePrevChrom bool
	prevChrom     string

	checkedOut bool
	err        error
}

// New wraps src.
func New(src source.Source) *Grouper {
	return &Grouper{src: src}
}

// Err returns the first error encountered, if any. Once set it is
// returned by every subsequent Next call.
func (g *Grouper) Err() error { return g.err }

func (g *Grouper) fill() {
	if g.srcDone || g.err != nil {
		g.haveNext = false
		return
	}
	r, ok, err := g.src.Next()
	if err != nil {
		g.err = err
		g.haveNext = false
		return
	}
	if !ok {
		g.srcDone = true
		g.haveNext = false
		return
	}
	if r.End <= r.Start {
		g.err = bbierr.Newf("record end (%d) <= start (%d) for chromosome %q", r.End, r.Start, r.Chrom)
		g.haveNext = false
		return
	}
	g.next = r
	g.haveNext = true
}

// Next starts the next chromosome's group, returning its name and a
// SubStream that yields its records. ok is false once the underlying
// source is exhausted. Next panics with a *contract.Violation if the
// previous SubStream has not been fully drained or explicitly Close'd —
// the grouper buffers at most one record and cannot safely advance while
// a sub-stream still owns the read position.
func (g *Grouper) Next() (chrom string, sub *SubStream, ok bool, err error) {
	if g.checkedOut {
		contract.Raise("grouper.Next called while previous sub-stream is still live")
	}
	if !g.initialized {
		g.initialized = true
		g.fill()
	}
	if g.err != nil {
		return "", nil, false, g.err
	}
	if !g.haveNext {
		return "", nil, false, nil
	}
	chrom = g.next.Chrom
	if g.havePrevChrom && bytes.Compare([]byte(chrom), []byte(g.prevChrom)) <= 0 {
		g.err = bbierr.Newf("input not sorted: chromosome %q does not sort strictly after %q", chrom, g.prevChrom)
		return "", nil, false, g.err
	}
	g.prevChrom = chrom
	g.havePrevChrom = true
	g.checkedOut = true
	return chrom, &SubStream{g: g, chrom: chrom}, true, nil
}

// SubStream lazily yields the records of one chromosome. Exactly one
// SubStream is live at a time; see Grouper.Next.
type SubStream struct {
	g    *Grouper
	chrom string

	closed   bool
	haveLast bool
	lastStart uint32
}

// Next returns the sub-stream's next record, or ok=false once this
// chromosome's records are exhausted (the underlying record, if any,
// remains buffered as the next chromosome's lookahead).
func (s *SubStream) Next() (source.Record, bool, error) {
	if s.closed {
		return source.Record{}, false, nil
	}
	g := s.g
	if g.err != nil {
		s.release()
		return source.Record{}, false, g.err
	}
	if !g.haveNext || g.next.Chrom != s.chrom {
		s.release()
		return source.Record{}, false, nil
	}
	rec := g.next
	if s.haveLast && rec.Start < s.lastStart {
		g.err = bbierr.Newf("records for chromosome %q are not sorted by start: %d after %d", s.chrom, rec.Start, s.lastStart)
		s.release()
		return source.Record{}, false, g.err
	}
	s.lastStart = rec.Start
	s.haveLast = true
	g.fill()
	return rec, true, nil
}

// Peek returns the sub-stream's lookahead record without consuming it.
// It reports ok=false if the sub-stream is closed, exhausted, or the
// buffered record already belongs to the next chromosome.
func (s *SubStream) Peek() (source.Record, bool) {
	g := s.g
	if s.closed || !g.haveNext || g.next.Chrom != s.chrom {
		return source.Record{}, false
	}
	return g.next, true
}

// Close abandons the sub-stream, returning the hand-off state to the
// grouper even if records remain unconsumed. The held lookahead (if any)
// survives and becomes visible to the grouper's next Next call.
func (s *SubStream) Close() {
	s.release()
}

func (s *SubStream) release() {
	if !s.closed {
		s.closed = true
		s.g.checkedOut = false
	}
}
