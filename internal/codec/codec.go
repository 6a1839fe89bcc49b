// Package codec implements the endian-aware primitive encoding BBI files
// use, plus the deflate-based block compression every data and zoom
// section is wrapped in. Index nodes are stored uncompressed.
//
// Compression uses github.com/klauspost/compress/flate rather than the
// standard library's compress/flate: klauspost's writer bounds worst-case
// output growth on incompressible input via its own internal stored-block
// fallback, which is how a payload that fails to shrink still ends up
// stored losslessly, without a non-standard per-block flag (see
// DESIGN.md).
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/flate"
)

// Writer accumulates little-endian primitive values into an in-memory
// buffer, the shape every on-disk section/node payload is built in
// before being handed to the compressor or flushed to the sink.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

func (w *Writer) U8(v uint8)   { w.buf.WriteByte(v) }
func (w *Writer) U16(v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); w.buf.Write(b[:]) }
func (w *Writer) U32(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *Writer) U64(v uint64) { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); w.buf.Write(b[:]) }
func (w *Writer) F32(v float32) { w.U32(f32bits(v)) }
func (w *Writer) Bytes(b []byte) { w.buf.Write(b) }

// PadTo pads the buffer with zero bytes until it holds exactly size
// bytes of the field just written, counted from start (used for the
// chromosome tree's fixed-width name keys).
func (w *Writer) PadTo(start int, size int) {
	for w.buf.Len() < start+size {
		w.buf.WriteByte(0)
	}
}

// Len returns the number of bytes accumulated so far.
func (w *Writer) Len() int { return w.buf.Len() }

// BytesOut returns the accumulated payload.
func (w *Writer) BytesOut() []byte { return w.buf.Bytes() }

// Reset clears the buffer for reuse.
func (w *Writer) Reset() { w.buf.Reset() }

// Reader decodes little-endian primitive values from a byte slice,
// advancing an internal cursor. All methods panic on short input; callers
// decoding untrusted on-disk data should recover or pre-validate length.
type Reader struct {
	b   []byte
	pos int
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader { return &Reader{b: b} }

func (r *Reader) need(n int) {
	if r.pos+n > len(r.b) {
		panic(fmt.Sprintf("codec: short read: need %d bytes at offset %d, have %d", n, r.pos, len(r.b)))
	}
}

func (r *Reader) U8() uint8 {
	r.need(1)
	v := r.b[r.pos]
	r.pos++
	return v
}

func (r *Reader) U16() uint16 {
	r.need(2)
	v := binary.LittleEndian.Uint16(r.b[r.pos:])
	r.pos += 2
	return v
}

func (r *Reader) U32() uint32 {
	r.need(4)
	v := binary.LittleEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v
}

func (r *Reader) U64() uint64 {
	r.need(8)
	v := binary.LittleEndian.Uint64(r.b[r.pos:])
	r.pos += 8
	return v
}

func (r *Reader) F32() float32 {
	return f32frombits(r.U32())
}

func (r *Reader) Bytes(n int) []byte {
	r.need(n)
	v := r.b[r.pos : r.pos+n]
	r.pos += n
	return v
}

// Skip advances the cursor by n bytes without interpreting them.
func (r *Reader) Skip(n int) { r.need(n); r.pos += n }

// Pos returns the current cursor offset.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.b) - r.pos }

// Compress deflates raw using the given flate level (flate.DefaultCompression
// if level is 0). The bound on output growth for incompressible input is
// small and fixed by klauspost's flate implementation, which always falls
// back to emitting literal stored blocks rather than expanding data that
// does not compress.
func Compress(raw []byte, level int) ([]byte, error) {
	if level == 0 {
		level = flate.DefaultCompression
	}
	var out bytes.Buffer
	fw, err := flate.NewWriter(&out, level)
	if err != nil {
		return nil, fmt.Errorf("codec: new flate writer: %w", err)
	}
	if _, err := fw.Write(raw); err != nil {
		return nil, fmt.Errorf("codec: flate write: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("codec: flate close: %w", err)
	}
	return out.Bytes(), nil
}

// Decompress inflates a block produced by Compress.
func Decompress(compressed []byte, hintSize int) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()
	var out bytes.Buffer
	if hintSize > 0 {
		out.Grow(hintSize)
	}
	if _, err := io.Copy(&out, fr); err != nil {
		return nil, fmt.Errorf("codec: flate read: %w", err)
	}
	return out.Bytes(), nil
}

func f32bits(v float32) uint32 {
	return math.Float32bits(v)
}

func f32frombits(b uint32) float32 {
	return math.Float32frombits(b)
}
