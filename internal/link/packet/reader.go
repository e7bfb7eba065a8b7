package packet

import (
	"encoding/binary"
	"unicode/utf8"
)

// Reader reads fields from one frame payload. Byte 0 is always the opcode.
// Reads past the end yield zero values; Err reports whether that happened.
type Reader struct {
	data  []byte
	off   int
	short bool
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1} // skip opcode byte
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// ReadC reads 1 byte.
func (r *Reader) ReadC() byte {
	if r.off >= len(r.data) {
		r.short = true
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if r.off+2 > len(r.data) {
		r.short = true
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadD reads 4 bytes as little-endian int32.
func (r *Reader) ReadD() int32 {
	if r.off+4 > len(r.data) {
		r.short = true
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// ReadQ reads 8 bytes as little-endian uint64.
func (r *Reader) ReadQ() uint64 {
	if r.off+8 > len(r.data) {
		r.short = true
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

// ReadS reads a uint16 length-prefixed UTF-8 string. Invalid sequences are
// replaced with U+FFFD.
func (r *Reader) ReadS() string {
	n := int(r.ReadH())
	if r.off+n > len(r.data) {
		r.short = true
		r.off = len(r.data)
		return ""
	}
	raw := r.data[r.off : r.off+n]
	r.off += n
	if utf8.Valid(raw) {
		return string(raw)
	}
	return string([]rune(string(raw)))
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Short reports whether any read ran past the payload.
func (r *Reader) Short() bool { return r.short }
