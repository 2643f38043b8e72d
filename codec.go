package dbus

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Endianness selects the byte order used to encode and decode
// multi-byte scalars. Unlike the teacher's marshal/newmarshal pair,
// which hard-coded binary.LittleEndian, every primitive here is
// parameterized so a Deserializer can switch order after reading the
// wire's endianness marker (see Message).
type Endianness byte

const (
	// LittleEndian is the D-Bus 'l' marker.
	LittleEndian Endianness = 'l'
	// BigEndian is the D-Bus 'B' marker.
	BigEndian Endianness = 'B'
)

func (e Endianness) order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (e Endianness) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// nativeEndianness is the host's byte order, used as Connection's
// default outbound endianness.
var nativeEndianness = func() Endianness {
	buf := make([]byte, 2)
	binary.NativeEndian.PutUint16(buf, 1)
	if buf[0] == 1 {
		return LittleEndian
	}
	return BigEndian
}()

// align rounds offset up to the next multiple of alignment.
func align(offset, alignment int) int {
	if alignment <= 1 {
		return offset
	}
	rem := offset % alignment
	if rem == 0 {
		return offset
	}
	return offset + (alignment - rem)
}

// Deserializer reads D-Bus primitives out of a byte slice. pos is an
// index into buf; alignment padding is computed from pos relative to
// start, the offset of the enclosing message within buf, per §4.1.
// NewDeserializer sets start to 0, so a message must begin at buf[0].
type Deserializer struct {
	buf   []byte
	pos   int
	start int
	order Endianness
}

// NewDeserializer wraps buf for reading, starting at byte offset pos,
// where offsets are computed relative to the start of the message
// (usually 0 for a deserializer over the whole buffer).
func NewDeserializer(buf []byte, pos int, order Endianness) *Deserializer {
	return &Deserializer{buf: buf, pos: pos, order: order}
}

// Pos reports the current read offset within buf.
func (d *Deserializer) Pos() int { return d.pos }

// SetEndianness overrides the byte order used for subsequent reads;
// used by the message framer once it has read the endianness marker.
func (d *Deserializer) SetEndianness(order Endianness) { d.order = order }

func (d *Deserializer) relative() int { return d.pos - d.start }

func (d *Deserializer) padTo(alignment int) error {
	target := d.start + align(d.relative(), alignment)
	if target > len(d.buf) {
		return errEndOfInput(d.pos)
	}
	for p := d.pos; p < target; p++ {
		if d.buf[p] != 0 {
			return errNonZeroPadding(d.pos, target)
		}
	}
	d.pos = target
	return nil
}

func (d *Deserializer) need(n int) error {
	if len(d.buf)-d.pos < n {
		return errEndOfInput(d.pos)
	}
	return nil
}

// U8 reads one unaligned byte.
func (d *Deserializer) U8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

// U16 reads one uint16, aligned to 2.
func (d *Deserializer) U16() (uint16, error) {
	if err := d.padTo(2); err != nil {
		return 0, err
	}
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := d.order.order().Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

// I16 reads one int16, aligned to 2.
func (d *Deserializer) I16() (int16, error) {
	v, err := d.U16()
	return int16(v), err
}

// U32 reads one uint32, aligned to 4.
func (d *Deserializer) U32() (uint32, error) {
	if err := d.padTo(4); err != nil {
		return 0, err
	}
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := d.order.order().Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// I32 reads one int32, aligned to 4.
func (d *Deserializer) I32() (int32, error) {
	v, err := d.U32()
	return int32(v), err
}

// U64 reads one uint64, aligned to 8.
func (d *Deserializer) U64() (uint64, error) {
	if err := d.padTo(8); err != nil {
		return 0, err
	}
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := d.order.order().Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

// I64 reads one int64, aligned to 8.
func (d *Deserializer) I64() (int64, error) {
	v, err := d.U64()
	return int64(v), err
}

// F64 reads one float64, aligned to 8.
func (d *Deserializer) F64() (float64, error) {
	v, err := d.U64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// Bool reads a D-Bus BOOL: a u32 that must be 0 or 1.
func (d *Deserializer) Bool() (bool, error) {
	start := d.pos
	v, err := d.U32()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errInvalidValue(start, "0 or 1", "bool")
	}
}

// String reads a D-Bus STRING: aligned u32 length, bytes, NUL.
func (d *Deserializer) String() (string, error) {
	length, err := d.U32()
	if err != nil {
		return "", err
	}
	if err := d.need(int(length) + 1); err != nil {
		return "", err
	}
	data := d.buf[d.pos : d.pos+int(length)]
	nul := d.buf[d.pos+int(length)]
	if nul != 0 {
		return "", errMissingNul(d.pos + int(length))
	}
	if !utf8.Valid(data) {
		return "", errInvalidUTF8(d.pos)
	}
	s := string(data)
	d.pos += int(length) + 1
	return s, nil
}

// SignatureString reads a D-Bus SIGNATURE: u8 length, ASCII bytes, NUL.
func (d *Deserializer) SignatureString() (string, error) {
	length, err := d.U8()
	if err != nil {
		return "", err
	}
	if err := d.need(int(length) + 1); err != nil {
		return "", err
	}
	data := d.buf[d.pos : d.pos+int(length)]
	nul := d.buf[d.pos+int(length)]
	if nul != 0 {
		return "", errMissingNul(d.pos + int(length))
	}
	s := string(data)
	d.pos += int(length) + 1
	return s, nil
}

// ArrayU8 reads a raw byte array: u32 length, L raw bytes. This is the
// fast path for signature "ay" that avoids boxing each byte.
func (d *Deserializer) ArrayU8() ([]byte, error) {
	length, err := d.U32()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(length)); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, d.buf[d.pos:d.pos+int(length)])
	d.pos += int(length)
	return out, nil
}

// Array reads a D-Bus ARRAY's u32 byte-length, pads to
// elementAlignment (padding not counted in the length), then invokes
// parseElement repeatedly until the element region is exhausted.
func (d *Deserializer) Array(elementAlignment int, parseElement func(*Deserializer) error) error {
	length, err := d.U32()
	if err != nil {
		return err
	}
	if err := d.padTo(elementAlignment); err != nil {
		return err
	}
	end := d.pos + int(length)
	if end > len(d.buf) {
		return errEndOfInput(d.pos)
	}
	for d.pos < end {
		if err := parseElement(d); err != nil {
			return err
		}
	}
	if d.pos != end {
		return errInvalidValue(end, "element boundary", "misaligned array element")
	}
	return nil
}

// Struct pads to 8 and invokes parseBody.
func (d *Deserializer) Struct(parseBody func(*Deserializer) error) error {
	if err := d.padTo(8); err != nil {
		return err
	}
	return parseBody(d)
}

// Serializer writes D-Bus primitives into a growing byte slice. Like
// Deserializer, offsets are measured relative to start so a nested
// body gets its own alignment origin.
type Serializer struct {
	buf   []byte
	start int
	order Endianness
}

// NewSerializer creates a Serializer appending to buf (which may be
// nil), aligning relative to the current length of buf.
func NewSerializer(buf []byte, order Endianness) *Serializer {
	return &Serializer{buf: buf, start: len(buf), order: order}
}

// Bytes returns the accumulated output.
func (s *Serializer) Bytes() []byte { return s.buf }

// Len reports the number of bytes written since start.
func (s *Serializer) Len() int { return len(s.buf) - s.start }

func (s *Serializer) relative() int { return len(s.buf) - s.start }

// PadTo zero-fills up to the next multiple of alignment, measured
// relative to start.
func (s *Serializer) PadTo(alignment int) {
	target := align(s.relative(), alignment)
	for s.relative() < target {
		s.buf = append(s.buf, 0)
	}
}

// U8 appends one unaligned byte.
func (s *Serializer) U8(v uint8) { s.buf = append(s.buf, v) }

// U16 appends one uint16, aligned to 2.
func (s *Serializer) U16(v uint16) {
	s.PadTo(2)
	var tmp [2]byte
	s.order.order().PutUint16(tmp[:], v)
	s.buf = append(s.buf, tmp[:]...)
}

// I16 appends one int16, aligned to 2.
func (s *Serializer) I16(v int16) { s.U16(uint16(v)) }

// U32 appends one uint32, aligned to 4.
func (s *Serializer) U32(v uint32) {
	s.PadTo(4)
	var tmp [4]byte
	s.order.order().PutUint32(tmp[:], v)
	s.buf = append(s.buf, tmp[:]...)
}

// I32 appends one int32, aligned to 4.
func (s *Serializer) I32(v int32) { s.U32(uint32(v)) }

// U64 appends one uint64, aligned to 8.
func (s *Serializer) U64(v uint64) {
	s.PadTo(8)
	var tmp [8]byte
	s.order.order().PutUint64(tmp[:], v)
	s.buf = append(s.buf, tmp[:]...)
}

// I64 appends one int64, aligned to 8.
func (s *Serializer) I64(v int64) { s.U64(uint64(v)) }

// F64 appends one float64, aligned to 8.
func (s *Serializer) F64(v float64) { s.U64(math.Float64bits(v)) }

// Bool appends a D-Bus BOOL (u32 0 or 1).
func (s *Serializer) Bool(v bool) {
	if v {
		s.U32(1)
	} else {
		s.U32(0)
	}
}

// String appends a D-Bus STRING.
func (s *Serializer) String(v string) {
	s.U32(uint32(len(v)))
	s.buf = append(s.buf, v...)
	s.buf = append(s.buf, 0)
}

// SignatureString appends a D-Bus SIGNATURE. It returns a
// SerializeError if v does not fit in a u8 length.
func (s *Serializer) SignatureString(v string) error {
	if len(v) > 0xff {
		return errExceedsLimit("signature", len(v), 0xff)
	}
	s.buf = append(s.buf, byte(len(v)))
	s.buf = append(s.buf, v...)
	s.buf = append(s.buf, 0)
	return nil
}

// ArrayU8 appends a raw byte array.
func (s *Serializer) ArrayU8(v []byte) {
	s.U32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

// Array writes a u32 placeholder, pads to elementAlignment, invokes
// writeElements, then back-patches the true byte length of the
// element region (the padding between the length and the first
// element is never counted in that length).
func (s *Serializer) Array(elementAlignment int, writeElements func(*Serializer)) {
	s.PadTo(4)
	lenOffset := len(s.buf)
	s.buf = append(s.buf, 0, 0, 0, 0)
	s.PadTo(elementAlignment)
	bodyStart := len(s.buf)
	writeElements(s)
	bodyLen := len(s.buf) - bodyStart
	s.order.order().PutUint32(s.buf[lenOffset:lenOffset+4], uint32(bodyLen))
}

// Struct pads to 8 and invokes writeBody.
func (s *Serializer) Struct(writeBody func(*Serializer)) {
	s.PadTo(8)
	writeBody(s)
}
