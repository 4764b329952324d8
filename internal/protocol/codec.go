package protocol

import (
	"io"

	"github.com/infinispan/go-hotrod/internal/errs"
)

// Encoder appends the wire encoding of Hot Rod primitives to a growing byte
// buffer. It never reads; a fresh Encoder is used to build exactly one
// message.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with a buffer pre-sized for a small message.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 64)}
}

// Bytes returns the buffer accumulated so far.
func (e *Encoder) Bytes() []byte { return e.buf }

// PutByte appends a single unsigned byte.
func (e *Encoder) PutByte(b byte) { e.buf = append(e.buf, b) }

// PutUShort appends a 2-byte big-endian unsigned short.
func (e *Encoder) PutUShort(v uint16) {
	e.buf = append(e.buf, byte(v>>8), byte(v))
}

// PutSplitByte appends a single byte carrying two 4-bit nibbles, hi first.
func (e *Encoder) PutSplitByte(hi, lo byte) {
	e.PutByte((hi << 4) | (lo & 0x0f))
}

// PutUvarint appends v as unsigned LEB128, rejecting encodings longer than 5
// bytes.
func (e *Encoder) PutUvarint(v uint64) error {
	return e.putUvar(v, 5)
}

// PutUvarlong appends v as unsigned LEB128, rejecting encodings longer than 9
// bytes.
func (e *Encoder) PutUvarlong(v uint64) error {
	return e.putUvar(v, 9)
}

func (e *Encoder) putUvar(v uint64, maxBytes int) error {
	start := len(e.buf)
	n := 0
	for {
		b := byte(v & 0x7f)
		v >>= 7
		n++
		if v != 0 {
			e.buf = append(e.buf, b|0x80)
			continue
		}
		e.buf = append(e.buf, b)
		break
	}
	if n > maxBytes {
		e.buf = e.buf[:start]
		return errs.NewEncodeError("LEB128 value exceeds %d-byte cap", maxBytes)
	}
	return nil
}

// PutString appends s length-prefixed by uvarint, or a single 0x00 byte when
// s is empty.
func (e *Encoder) PutString(s string) error {
	if s == "" {
		e.PutByte(0x00)
		return nil
	}
	return e.PutBytes([]byte(s))
}

// PutBytes appends b length-prefixed by uvarint.
func (e *Encoder) PutBytes(b []byte) error {
	if err := e.PutUvarint(uint64(len(b))); err != nil {
		return err
	}
	e.buf = append(e.buf, b...)
	return nil
}

// Decoder pulls wire primitives one byte at a time from a byte source. The
// source is typically a *transport.SocketConnection (implementing
// io.ByteReader) so that the decoder can read lazily as bytes arrive.
type Decoder struct {
	src io.ByteReader
}

// NewDecoder wraps a byte source for decoding.
func NewDecoder(src io.ByteReader) *Decoder {
	return &Decoder{src: src}
}

func (d *Decoder) readByte() (byte, error) {
	b, err := d.src.ReadByte()
	if err != nil {
		if ce, ok := err.(*errs.ConnectionErr); ok {
			return 0, ce
		}
		return 0, errs.NewDecodeError("unexpected end of input: %v", err)
	}
	return b, nil
}

// Byte reads a single unsigned byte.
func (d *Decoder) Byte() (byte, error) { return d.readByte() }

// UShort reads a 2-byte big-endian unsigned short.
func (d *Decoder) UShort() (uint16, error) {
	hi, err := d.readByte()
	if err != nil {
		return 0, err
	}
	lo, err := d.readByte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// SplitByte reads a byte and splits it into its high and low nibbles.
func (d *Decoder) SplitByte() (hi, lo byte, err error) {
	b, err := d.readByte()
	if err != nil {
		return 0, 0, err
	}
	return b >> 4, b & 0x0f, nil
}

// Uvarint reads an unsigned LEB128 value, rejecting sequences longer than 5
// bytes.
func (d *Decoder) Uvarint() (uint64, error) {
	return d.uvar(5)
}

// Uvarlong reads an unsigned LEB128 value, rejecting sequences longer than 9
// bytes.
func (d *Decoder) Uvarlong() (uint64, error) {
	return d.uvar(9)
}

func (d *Decoder) uvar(maxBytes int) (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < maxBytes; i++ {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, errs.NewDecodeError("LEB128 value exceeds %d-byte cap", maxBytes)
}

// Bytes reads a uvarint-prefixed byte string.
func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.Uvarint()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	for i := range buf {
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

// String reads a uvarint-prefixed UTF-8 string. The empty-string encoding
// (a lone 0x00 byte) decodes to "" via the same path as Bytes.
func (d *Decoder) String() (string, error) {
	b, err := d.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
