package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedEOF indicates that a binary frame ended in the middle of a value
	ErrUnexpectedEOF = errors.New("unexpected end of frame")

	// ErrVarUintOverflow indicates a variable-length integer longer than 64 bits
	ErrVarUintOverflow = errors.New("variable-length integer overflows 64 bits")
)

// Encoder accumulates lib0-style binary values (the encoding used by the
// y-protocols sync and awareness messages).
type Encoder struct {
	buf []byte
}

// NewEncoder creates an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 64)}
}

// WriteUint8 appends a single byte.
func (e *Encoder) WriteUint8(b uint8) {
	e.buf = append(e.buf, b)
}

// WriteVarUint appends an unsigned integer, 7 bits per byte, low groups first.
func (e *Encoder) WriteVarUint(n uint64) {
	for n > 0x7f {
		e.buf = append(e.buf, byte(0x80|(n&0x7f)))
		n >>= 7
	}
	e.buf = append(e.buf, byte(n))
}

// WriteVarBytes appends a length-prefixed byte slice.
func (e *Encoder) WriteVarBytes(p []byte) {
	e.WriteVarUint(uint64(len(p)))
	e.buf = append(e.buf, p...)
}

// WriteVarString appends a length-prefixed UTF-8 string.
func (e *Encoder) WriteVarString(s string) {
	e.WriteVarUint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteRaw appends bytes without a length prefix.
func (e *Encoder) WriteRaw(p []byte) {
	e.buf = append(e.buf, p...)
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Bytes returns the encoded bytes. The slice aliases the encoder buffer.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Decoder reads lib0-style values from a byte slice.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder over p.
func NewDecoder(p []byte) *Decoder {
	return &Decoder{buf: p}
}

// ReadUint8 reads a single byte.
func (d *Decoder) ReadUint8() (uint8, error) {
	if d.pos >= len(d.buf) {
		return 0, ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadVarUint reads an unsigned variable-length integer.
func (d *Decoder) ReadVarUint() (uint64, error) {
	var n uint64
	var shift uint
	for {
		if d.pos >= len(d.buf) {
			return 0, ErrUnexpectedEOF
		}
		b := d.buf[d.pos]
		d.pos++
		if shift == 63 && b > 1 {
			return 0, ErrVarUintOverflow
		}
		n |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return n, nil
		}
		shift += 7
		if shift > 63 {
			return 0, ErrVarUintOverflow
		}
	}
}

// ReadVarBytes reads a length-prefixed byte slice. The result aliases the
// decoder input.
func (d *Decoder) ReadVarBytes() ([]byte, error) {
	n, err := d.ReadVarUint()
	if err != nil {
		return nil, fmt.Errorf("failed to read length: %w", err)
	}
	if n > uint64(len(d.buf)-d.pos) {
		return nil, ErrUnexpectedEOF
	}
	p := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return p, nil
}

// ReadVarString reads a length-prefixed UTF-8 string.
func (d *Decoder) ReadVarString() (string, error) {
	p, err := d.ReadVarBytes()
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// Remaining returns the unread tail of the input.
func (d *Decoder) Remaining() []byte {
	return d.buf[d.pos:]
}

// HasContent reports whether unread bytes are left.
func (d *Decoder) HasContent() bool {
	return d.pos < len(d.buf)
}
