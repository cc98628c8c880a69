/*
Copyright © 2025 Logicos Software

Package wire implements the length-prefixed byte framing used by the
SSH agent protocol: unsigned 32-bit big-endian lengths, and a "string"
field that is a uint32 length followed by that many raw bytes.
*/
package wire

import (
	"encoding/binary"
	"fmt"
)

// Reader wraps a byte slice with a monotonically advancing read cursor.
// Any read past the end of the buffer fails rather than panicking.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential field reads.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if r.pos+1 > len(r.buf) {
		return 0, fmt.Errorf("wire: under-run reading byte at offset %d", r.pos)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, fmt.Errorf("wire: under-run reading uint32 at offset %d", r.pos)
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// String reads a length-prefixed field: a uint32 length followed by that
// many raw bytes (which may be binary, per the SSH agent wire format).
func (r *Reader) String() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if r.pos+int(n) > len(r.buf) {
		return nil, fmt.Errorf("wire: under-run reading %d-byte string at offset %d", n, r.pos)
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

// Raw reads n unprefixed bytes.
func (r *Reader) Raw(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("wire: under-run reading %d raw bytes at offset %d", n, r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Remaining returns the unread tail of the buffer.
func (r *Reader) Remaining() []byte {
	return r.buf[r.pos:]
}

// Done reports whether every byte has been consumed.
func (r *Reader) Done() bool {
	return r.pos == len(r.buf)
}

// Writer accumulates length-prefixed fields and reports the total length
// written so far.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Byte appends a single byte.
func (w *Writer) Byte(b byte) *Writer {
	w.buf = append(w.buf, b)
	return w
}

// Uint32 appends a big-endian uint32.
func (w *Writer) Uint32(v uint32) *Writer {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

// String appends a length-prefixed field: a uint32 length followed by data.
func (w *Writer) String(data []byte) *Writer {
	w.Uint32(uint32(len(data)))
	w.buf = append(w.buf, data...)
	return w
}

// Raw appends data with no length prefix.
func (w *Writer) Raw(data []byte) *Writer {
	w.buf = append(w.buf, data...)
	return w
}

// Len returns the total number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}
