package dbus

import (
	"bytes"
	"testing"
)

func TestSerializeArrayUint64(t *testing.T) {
	s := NewSerializer(nil, LittleEndian)
	s.Array(8, func(s *Serializer) {
		s.U64(1)
		s.U64(2)
	})
	want := []byte{
		16, 0, 0, 0, // length = 16 bytes (padding before first element excluded)
		0, 0, 0, 0, // padding to 8-byte element alignment
		1, 0, 0, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0, 0,
	}
	if got := s.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestSerializeTupleByteArrayUint64(t *testing.T) {
	s := NewSerializer(nil, LittleEndian)
	s.U8(7)
	s.Array(8, func(s *Serializer) {
		s.U64(42)
	})
	// The single byte is followed by 3 bytes of padding to align the
	// array's u32 length field to offset 4; the length field ends at
	// offset 8, already an 8-byte boundary, so no further padding
	// precedes the one u64 element.
	want := []byte{
		7, 0, 0, 0,
		8, 0, 0, 0,
		42, 0, 0, 0, 0, 0, 0, 0,
	}
	if got := s.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestDeserializeRoundTripArrayDictEntry(t *testing.T) {
	s := NewSerializer(nil, LittleEndian)
	s.Array(8, func(s *Serializer) {
		s.Struct(func(s *Serializer) {
			s.String("a")
			s.U32(1)
		})
		s.Struct(func(s *Serializer) {
			s.String("b")
			s.U32(2)
		})
	})

	d := NewDeserializer(s.Bytes(), 0, LittleEndian)
	var keys []string
	var values []uint32
	err := d.Array(8, func(d *Deserializer) error {
		return d.Struct(func(d *Deserializer) error {
			k, err := d.String()
			if err != nil {
				return err
			}
			v, err := d.U32()
			keys = append(keys, k)
			values = append(values, v)
			return err
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" || values[0] != 1 || values[1] != 2 {
		t.Errorf("got keys=%v values=%v", keys, values)
	}
}

func TestSignatureStringWireBytes(t *testing.T) {
	s := NewSerializer(nil, LittleEndian)
	if err := s.SignatureString("s"); err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 's', 0}
	if got := s.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}

	d := NewDeserializer(s.Bytes(), 0, LittleEndian)
	got, err := d.SignatureString()
	if err != nil {
		t.Fatal(err)
	}
	if got != "s" {
		t.Errorf("SignatureString() = %q, want %q", got, "s")
	}
}

func TestBoolEncoding(t *testing.T) {
	s := NewSerializer(nil, LittleEndian)
	s.Bool(true)
	want := []byte{1, 0, 0, 0}
	if got := s.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}

	d := NewDeserializer([]byte{2, 0, 0, 0}, 0, LittleEndian)
	if _, err := d.Bool(); err == nil {
		t.Error("Bool() with invalid value 2 succeeded, want error")
	}
}

func TestNonZeroPaddingRejected(t *testing.T) {
	// A u64 at offset 1 requires 7 bytes of zero padding; poison one.
	buf := []byte{0xff, 0, 0, 0, 0, 0, 1, 0, 9, 0, 0, 0, 0, 0, 0, 0}
	d := NewDeserializer(buf, 0, LittleEndian)
	if _, err := d.U8(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.U64(); err == nil {
		t.Error("U64() over non-zero padding succeeded, want error")
	}
}

func TestEmptyArrayStillHasElementPadding(t *testing.T) {
	s := NewSerializer(nil, LittleEndian)
	s.Array(8, func(s *Serializer) {})
	want := []byte{0, 0, 0, 0, 0, 0, 0, 0}
	if got := s.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestMessageRelativeAlignment(t *testing.T) {
	// A deserializer whose start is offset 3 within buf must align
	// relative to 3, not to 0: reading a u32 immediately at pos==start
	// needs no padding even though 3 isn't itself a multiple of 4.
	buf := []byte{0xaa, 0xbb, 0xcc, 9, 0, 0, 0}
	d := NewDeserializer(buf, 3, LittleEndian)
	d.start = 3
	v, err := d.U32()
	if err != nil {
		t.Fatal(err)
	}
	if v != 9 {
		t.Errorf("U32() = %d, want 9", v)
	}
}
