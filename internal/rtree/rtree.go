// Package rtree implements the one-dimensional, chromosome-and-position
// keyed R-tree used to index both base-level data blocks and each zoom
// level: bottom-up packing on write, depth-first overlap query on read.
package rtree

import "github.com/nvictus/bigtools/internal/codec"

// DefaultBranchingFactor is the number of children per node used when a
// Builder is not given an explicit one.
const DefaultBranchingFactor = 256

// Magic is the BBI magic word for an R-tree index (chromosome tree
// uses a different one, defined by its own package). Tree.Write does not
// emit it: only the nodes are written.
const Magic = 0x2468ACE0

// Leaf is one base-level entry: the indexed key range and the location
// of its compressed block.
type Leaf struct {
	ChromStart uint32
	Start      uint32
	ChromEnd   uint32
	End        uint32
	Offset     uint64
	Size       uint64
}

// Builder packs a stream of Leaf entries, appended in ascending
// (chrom, start, end) order, into an R-tree bottom-up.
type Builder struct {
	branch int
	leaves []Leaf
}

// NewBuilder returns a Builder with the given branching factor
// (DefaultBranchingFactor if branch <= 0).
func NewBuilder(branch int) *Builder {
	if branch <= 0 {
		branch = DefaultBranchingFactor
	}
	return &Builder{branch: branch}
}

// Add appends one leaf entry. Callers must supply entries in the
// ascending order the on-disk format requires; Builder does not sort.
func (b *Builder) Add(l Leaf) {
	b.leaves = append(b.leaves, l)
}

// Len reports the number of leaves added so far.
func (b *Builder) Len() int { return len(b.leaves) }

// node is an in-memory node of the packed write-side tree. The read
// side does not build nodes; Query decodes on-disk nodes as it descends.
type node struct {
	isLeaf   bool
	leaves   []Leaf
	children []*node

	chromStart uint32
	start      uint32
	chromEnd   uint32
	end        uint32

	// offset is filled in once the node is serialized, so parents can
	// reference it; valid only after Build's post-order write pass.
	offset uint64
}

func (n *node) key() (cs, s, ce, e uint32) { return n.chromStart, n.start, n.chromEnd, n.end }

// Build packs the accumulated leaves into a tree and returns it as an
// opaque Tree ready for Write.
func (b *Builder) Build() *Tree {
	if len(b.leaves) == 0 {
		return &Tree{branch: b.branch}
	}
	level := make([]*node, 0, (len(b.leaves)+b.branch-1)/b.branch)
	for i := 0; i < len(b.leaves); i += b.branch {
		end := i + b.branch
		if end > len(b.leaves) {
			end = len(b.leaves)
		}
		level = append(level, leafNode(b.leaves[i:end]))
	}
	for len(level) > 1 {
		level = packLevel(level, b.branch)
	}
	return &Tree{root: level[0], branch: b.branch, itemCount: uint64(len(b.leaves))}
}

func leafNode(ls []Leaf) *node {
	n := &node{isLeaf: true, leaves: append([]Leaf(nil), ls...)}
	n.chromStart, n.start, n.chromEnd, n.end = boundLeaves(ls)
	return n
}

func boundLeaves(ls []Leaf) (cs, s, ce, e uint32) {
	cs, s = ls[0].ChromStart, ls[0].Start
	ce, e = ls[0].ChromEnd, ls[0].End
	for _, l := range ls[1:] {
		if less2(l.ChromStart, l.Start, cs, s) {
			cs, s = l.ChromStart, l.Start
		}
		if less2(ce, e, l.ChromEnd, l.End) {
			ce, e = l.ChromEnd, l.End
		}
	}
	return
}

func packLevel(level []*node, branch int) []*node {
	out := make([]*node, 0, (len(level)+branch-1)/branch)
	for i := 0; i < len(level); i += branch {
		end := i + branch
		if end > len(level) {
			end = len(level)
		}
		group := level[i:end]
		n := &node{children: append([]*node(nil), group...)}
		n.chromStart, n.start, n.chromEnd, n.end = boundChildren(group)
		out = append(out, n)
	}
	return out
}

func boundChildren(children []*node) (cs, s, ce, e uint32) {
	cs, s, ce, e = children[0].chromStart, children[0].start, children[0].chromEnd, children[0].end
	for _, c := range children[1:] {
		if less2(c.chromStart, c.start, cs, s) {
			cs, s = c.chromStart, c.start
		}
		if less2(ce, e, c.chromEnd, c.end) {
			ce, e = c.chromEnd, c.end
		}
	}
	return
}

// less2 orders (chrom, pos) pairs the way the format's overlap rule
// does: chrom first, position only breaks ties within a chromosome.
func less2(chromA, posA, chromB, posB uint32) bool {
	if chromA != chromB {
		return chromA < chromB
	}
	return posA < posB
}

// Tree is a built, in-memory R-tree ready to be written. Written trees
// are queried with Query, not through a Tree.
type Tree struct {
	root      *node
	branch    int
	itemCount uint64
}

// ItemCount returns the number of leaf entries in the tree.
func (t *Tree) ItemCount() uint64 { return t.itemCount }

// Write serializes the tree in post-order (children before parents) so
// that by the time a parent is written, its children's file offsets are
// known and can be embedded directly. Only the nodes are written: no
// index header (magic word, block size, item count, bounds) precedes
// them. Every node is written as a single block, since the branching
// factor already bounds node size.
//
// sink is called once per node with its encoded bytes and must return
// the file offset the bytes were written at.
func (t *Tree) Write(sink func(encoded []byte) (uint64, error)) (rootOffset uint64, err error) {
	if t.root == nil {
		return 0, nil
	}
	return writeNode(t.root, sink)
}

func writeNode(n *node, sink func([]byte) (uint64, error)) (uint64, error) {
	if !n.isLeaf {
		for _, c := range n.children {
			off, err := writeNode(c, sink)
			if err != nil {
				return 0, err
			}
			c.offset = off
		}
	}
	w := codec.NewWriter()
	if n.isLeaf {
		w.U8(1)
		w.U8(0)
		w.U16(uint16(len(n.leaves)))
		for _, l := range n.leaves {
			w.U32(l.ChromStart)
			w.U32(l.Start)
			w.U32(l.ChromEnd)
			w.U32(l.End)
			w.U64(l.Offset)
			w.U64(l.Size)
		}
	} else {
		w.U8(0)
		w.U8(0)
		w.U16(uint16(len(n.children)))
		for _, c := range n.children {
			w.U32(c.chromStart)
			w.U32(c.start)
			w.U32(c.chromEnd)
			w.U32(c.end)
			w.U64(c.offset)
		}
	}
	return sink(w.BytesOut())
}
