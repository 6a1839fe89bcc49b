// Package chromtree encodes and decodes the chromosome B+-tree: an
// on-disk index from chromosome name to (id, length), keyed by a
// fixed-width, zero-padded name.
package chromtree

import (
	"bytes"
	"fmt"

	"github.com/nvictus/bigtools/internal/codec"
)

// Magic is the chromosome tree's on-disk magic word.
const Magic = 0x78CA8C91

const nodeHeaderSize = 4 // isLeaf u8, reserved u8, count u16

// Entry is one chromosome's (name, id, length) triple.
type Entry struct {
	Name   string
	ID     uint32
	Length uint32
}

// KeySize returns the fixed key width the tree should use for the given
// entries: the longest name length, at least 1.
func KeySize(entries []Entry) uint32 {
	max := 1
	for _, e := range entries {
		if len(e.Name) > max {
			max = len(e.Name)
		}
	}
	return uint32(max)
}

// Write encodes entries as a single-leaf-node B+-tree: every production
// assembly has at most a few hundred contigs, well under one node's
// branching factor, so a multi-level tree buys nothing here. Should a
// caller ever need thousands of contigs, packing leaves the way
// internal/rtree does would be the natural extension.
func Write(entries []Entry) []byte {
	keySize := KeySize(entries)
	w := codec.NewWriter()
	w.U32(Magic)
	w.U32(uint32(len(entries))) // items per block == all of them, one leaf
	w.U32(keySize)
	w.U32(8) // value size: id u32 + length u32
	w.U64(uint64(len(entries)))
	w.U64(0) // reserved

	// Root node: isLeaf=1, reserved=0, count.
	w.U8(1)
	w.U8(0)
	w.U16(uint16(len(entries)))
	for _, e := range entries {
		nameBytes := []byte(e.Name)
		start := w.Len()
		w.Bytes(nameBytes)
		w.PadTo(start, int(keySize))
		w.U32(e.ID)
		w.U32(e.Length)
	}
	return w.BytesOut()
}

// Read decodes a chromosome tree previously produced by Write, or any
// conforming on-disk tree with an arbitrary number of internal levels,
// given the whole tree region (from its magic word through its last
// descendant block) in a single contiguous buffer. Non-leaf child
// pointers are absolute offsets from the start of the on-disk file, so
// base must be the file offset at which b[0] lives.
func Read(b []byte, base uint64) ([]Entry, error) {
	r := codec.NewReader(b)
	magic := r.U32()
	if magic != Magic {
		return nil, fmt.Errorf("chromtree: bad magic %#x", magic)
	}
	r.U32() // items per block, unused by the reader
	keySize := r.U32()
	r.U32() // value size, implied to be 8 (id + length) by this format
	itemCount := r.U64()
	r.U64() // reserved

	var out []Entry
	if err := readBlock(b, r.Pos(), base, keySize, &out); err != nil {
		return nil, err
	}
	if uint64(len(out)) != itemCount {
		return nil, fmt.Errorf("chromtree: item count mismatch: header says %d, read %d", itemCount, len(out))
	}
	return out, nil
}

// readBlock decodes the node at local offset pos within b (pos ==
// absolute-file-offset - base), descending into non-leaf children by
// translating their absolute child pointers back into local offsets.
// This mirrors the seek-and-recurse walk the format's reference reader
// performs directly against the file, adapted here to walk a single
// in-memory span instead of reopening a handle per descent.
func readBlock(b []byte, pos int, base uint64, keySize uint32, out *[]Entry) error {
	if pos < 0 || pos+nodeHeaderSize > len(b) {
		return fmt.Errorf("chromtree: node offset %d out of range", pos)
	}
	r := codec.NewReader(b[pos:])
	isLeaf := r.U8()
	r.U8() // reserved
	count := int(r.U16())

	if isLeaf != 0 {
		for i := 0; i < count; i++ {
			name := r.Bytes(int(keySize))
			name = bytes.TrimRight(name, "\x00")
			id := r.U32()
			length := r.U32()
			*out = append(*out, Entry{Name: string(name), ID: id, Length: length})
		}
		return nil
	}
	for i := 0; i < count; i++ {
		r.Bytes(int(keySize)) // child's first key, unused — we descend unconditionally
		childOff := r.U64()
		childPos := int(childOff - base)
		if err := readBlock(b, childPos, base, keySize, out); err != nil {
			return err
		}
	}
	return nil
}
