package dbus

import "testing"

func roundTrip(t *testing.T, v Variant) Variant {
	t.Helper()
	s := NewSerializer(nil, LittleEndian)
	if err := SerializeVariant(s, v); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	d := NewDeserializer(s.Bytes(), 0, LittleEndian)
	got, err := DeserializeVariant(d, v.Signature())
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	return got
}

func TestVariantRoundTripPrimitives(t *testing.T) {
	cases := []Variant{
		Byte(42),
		Boolean(true),
		Boolean(false),
		Int16(-7),
		Uint16(7),
		Int32(-1234),
		Uint32(1234),
		Int64(-1 << 40),
		Uint64(1 << 40),
		Float64(3.5),
		String("hello"),
		ObjectPathValue("/org/freedesktop/DBus"),
		SignatureValue(Struct(SigByte, SigString)),
		UnixFD(3),
	}
	for _, v := range cases {
		got := roundTrip(t, v)
		if !variantsEqual(v, got) {
			t.Errorf("round trip of %s: got %+v, want %+v", v.Signature(), got, v)
		}
	}
}

func TestVariantRoundTripArrays(t *testing.T) {
	cases := []Variant{
		ArrayByte([]byte{1, 2, 3}),
		ArrayByte(nil),
		ArrayUint32([]uint32{1, 2, 3}),
		ArrayString([]string{"a", "b"}),
		ArrayString(nil),
		ArrayBoolean([]bool{true, false, true}),
	}
	for _, v := range cases {
		got := roundTrip(t, v)
		if !variantsEqual(v, got) {
			t.Errorf("round trip of %s: got %+v, want %+v", v.Signature(), got, v)
		}
	}
}

func TestVariantRoundTripNested(t *testing.T) {
	inner := StructOf(String("name"), Uint32(7))
	v := ArrayOf(Struct(SigString, SigUint32), []Variant{inner})
	got := roundTrip(t, v)
	if !variantsEqual(v, got) {
		t.Errorf("round trip nested struct array: got %+v, want %+v", got, v)
	}
}

func TestVariantRoundTripOfVariant(t *testing.T) {
	v := VariantOf(String("boxed"))
	got := roundTrip(t, v)
	if got.Kind() != KindVariant || got.Inner().Str() != "boxed" {
		t.Errorf("round trip variant-of-variant: got %+v", got)
	}
}

func TestVariantRoundTripDictEntryArray(t *testing.T) {
	entries := []Variant{
		DictEntryOf(String("a"), Uint32(1)),
		DictEntryOf(String("b"), Uint32(2)),
	}
	v := ArrayOf(DictEntry(SigString, SigUint32), entries)
	got := roundTrip(t, v)
	gotEntries := got.Elements()
	if len(gotEntries) != 2 {
		t.Fatalf("got %d entries, want 2", len(gotEntries))
	}
	if gotEntries[0].DictKey().Str() != "a" || gotEntries[0].DictValue().Uint32() != 1 {
		t.Errorf("entry 0 mismatch: %+v", gotEntries[0])
	}
}

func TestVariantSignatureMatchesOwnShape(t *testing.T) {
	v := StructOf(Byte(1), ArrayString([]string{"x"}))
	sig := v.Signature()
	want := Struct(SigByte, Array(SigString))
	if !sig.Equal(want) {
		t.Errorf("Signature() = %s, want %s", sig, want)
	}
}

func TestVariantAccessorPanicsOnWrongKind(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic calling Str() on a Byte variant")
		}
	}()
	Byte(1).Str()
}

// variantsEqual is a test-only structural comparison; production code
// never needs to compare two arbitrary Variants for equality.
func variantsEqual(a, b Variant) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindByte:
		return a.b == b.b
	case KindBoolean:
		return a.Bool() == b.Bool()
	case KindInt16:
		return a.i16 == b.i16
	case KindUint16:
		return a.u16 == b.u16
	case KindInt32:
		return a.i32 == b.i32
	case KindUint32:
		return a.u32 == b.u32
	case KindInt64:
		return a.i64 == b.i64
	case KindUint64:
		return a.u64 == b.u64
	case KindFloat64:
		return a.f64 == b.f64
	case KindString, KindObjectPath, KindSignature:
		return a.str == b.str
	case KindUnixFD:
		return a.u32 == b.u32
	case KindVariant:
		return variantsEqual(*a.variant, *b.variant)
	case KindArray:
		ae, be := a.Elements(), b.Elements()
		if len(ae) != len(be) {
			return false
		}
		for i := range ae {
			if !variantsEqual(ae[i], be[i]) {
				return false
			}
		}
		return true
	case KindDictEntry:
		return variantsEqual(*a.dictKey, *b.dictKey) && variantsEqual(*a.dictValue, *b.dictValue)
	case KindStruct, KindTuple:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for i := range a.fields {
			if !variantsEqual(a.fields[i], b.fields[i]) {
				return false
			}
		}
		return true
	}
	return true
}
