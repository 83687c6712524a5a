// Package args implements the binary argument buffer used by every
// contract entry point: fields are packed in a fixed order, u64 values
// as 8 little-endian bytes, strings as a u32-LE length prefix followed
// by UTF-8 bytes. A short or malformed buffer fails the whole call.
package args

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var ErrTruncated = errors.New("args: buffer truncated")

// Writer packs fields in call order.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) AddU64(v uint64) *Writer {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) AddString(s string) *Writer {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(s)))
	w.buf = append(w.buf, l[:]...)
	w.buf = append(w.buf, s...)
	return w
}

func (w *Writer) Bytes() []byte { return w.buf }

// Reader unpacks fields in the same order they were written.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

func (r *Reader) NextU64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, errors.Wrap(ErrTruncated, "u64")
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *Reader) NextString() (string, error) {
	if r.off+4 > len(r.buf) {
		return "", errors.Wrap(ErrTruncated, "string length")
	}
	n := int(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	if r.off+n > len(r.buf) {
		return "", errors.Wrap(ErrTruncated, "string body")
	}
	s := string(r.buf[r.off : r.off+n])
	r.off += n
	return s, nil
}
