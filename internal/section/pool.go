package section

import (
	"container/heap"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/nvictus/bigtools/internal/codec"
)

// Result is one compressed section, tagged with the sequence number it
// was submitted under so the writer can reassemble results in order.
type Result struct {
	Seq              int64
	Payload          []byte // either deflated bytes or the raw bytes, verbatim
	Stored           bool   // true if Payload is raw (compression did not shrink it)
	UncompressedSize int
	Err              error
}

// Pool is a bounded worker pool that deflates section payloads
// concurrently while preserving the caller's submission order on
// output, the same ordered-reassembly idiom used by parallel bzip2
// decompressors: workers race ahead on whatever job they're handed, a
// min-heap keyed by sequence number holds finished-but-not-yet-due
// results, and the consumer only ever sees sequence N after sequence
// N-1.
type Pool struct {
	jobs chan job
	out  chan Result

	wg        sync.WaitGroup
	collectWg sync.WaitGroup

	mu       sync.Mutex
	cond     *sync.Cond
	pending  resultHeap
	expected int64
	outClosed bool

	cancelled atomic.Bool
	level     int

	// firstErr captures the first compression failure across every
	// worker; a single-flight capture avoids a data race between
	// concurrent workers all wanting to report the same kind of failure.
	firstErr errors.Once
}

type job struct {
	seq int64
	raw []byte
}

// DefaultWorkers is the default compression pool size.
const DefaultWorkers = 6

// NewPool starts a pool of workers (DefaultWorkers if n <= 0) compressing
// at the given flate level (0 selects flate.DefaultCompression).
func NewPool(n int, level int) *Pool {
	if n <= 0 {
		n = DefaultWorkers
	}
	p := &Pool{
		jobs:  make(chan job, n),
		out:   make(chan Result, n),
		level: level,
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	p.collectWg.Add(1)
	go p.collect()
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		if p.cancelled.Load() {
			continue
		}
		p.out <- p.compress(j)
	}
}

func (p *Pool) compress(j job) Result {
	compressed, err := codec.Compress(j.raw, p.level)
	if err != nil {
		return Result{Seq: j.seq, Err: err}
	}
	if len(compressed) < len(j.raw) {
		return Result{Seq: j.seq, Payload: compressed, UncompressedSize: len(j.raw)}
	}
	return Result{Seq: j.seq, Payload: j.raw, Stored: true, UncompressedSize: len(j.raw)}
}

func (p *Pool) collect() {
	defer p.collectWg.Done()
	for r := range p.out {
		r := r
		if r.Err != nil {
			p.firstErr.Set(r.Err)
		}
		p.mu.Lock()
		heap.Push(&p.pending, &r)
		p.cond.Broadcast()
		p.mu.Unlock()
	}
	p.mu.Lock()
	p.outClosed = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Submit enqueues raw for compression under sequence number seq.
// Sequence numbers must be assigned by the caller starting at 0 and
// increasing by exactly 1 per call.
func (p *Pool) Submit(seq int64, raw []byte) {
	p.jobs <- job{seq: seq, raw: raw}
}

// CloseSubmit signals that no further Submit calls will be made. It must
// be called exactly once, after the last Submit.
func (p *Pool) CloseSubmit() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.out)
	}()
}

// Cancel drops every job not already in flight. Workers that have
// already started compressing their current job still finish it.
func (p *Pool) Cancel() {
	p.cancelled.Store(true)
}

// NextCompleted blocks until the result for the next expected sequence
// number is available, then returns it. ok is false once every
// submitted job (through CloseSubmit) has been returned.
func (p *Pool) NextCompleted() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if len(p.pending) > 0 && p.pending[0].Seq == p.expected {
			r := heap.Pop(&p.pending).(*Result)
			p.expected++
			return *r, true
		}
		if p.outClosed && len(p.pending) == 0 {
			return Result{}, false
		}
		p.cond.Wait()
	}
}

// Wait blocks until every worker and the collector goroutine have
// exited. Call after CloseSubmit and after draining NextCompleted.
func (p *Pool) Wait() {
	p.wg.Wait()
	p.collectWg.Wait()
}

// Err returns the first compression failure seen by any worker, if any.
func (p *Pool) Err() error {
	return p.firstErr.Err()
}

type resultHeap []*Result

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return h[i].Seq < h[j].Seq }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x interface{}) { *h = append(*h, x.(*Result)) }
func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
