package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chainchat/chainchat/internal/address"
)

// Wire format: fixed-width little-endian integers, u32 length-prefixed
// strings bounded by the limits in limits.go, one presence byte ahead of
// each optional field, u32 counts ahead of each vector.

var (
	errUnknownKind = errors.New("state: unknown record kind")
	errTruncated   = errors.New("state: truncated record")
)

type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) i64(v int64) {
	w.u64(uint64(v))
}

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) addr(a address.Address) {
	w.buf = append(w.buf, a[:]...)
}

type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.fail(errTruncated)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) bool() bool {
	return r.u8() != 0
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

// str reads a length-prefixed string, rejecting lengths above max.
func (r *reader) str(max int) string {
	n := int(r.u32())
	if r.err != nil {
		return ""
	}
	if n > max {
		r.fail(fmt.Errorf("state: string length %d exceeds bound %d", n, max))
		return ""
	}
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *reader) addr() address.Address {
	b := r.take(address.Size)
	if b == nil {
		return address.Zero
	}
	return address.FromBytes(b)
}

// done checks the reader consumed the record exactly.
func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return fmt.Errorf("state: %d trailing bytes after record", len(r.buf)-r.off)
	}
	return nil
}
