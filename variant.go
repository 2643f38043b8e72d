package dbus

import "fmt"

// ObjectPath is a string-like value whose on-wire layout is identical
// to STRING but whose type tag (OBJECT_PATH) is distinct.
type ObjectPath string

// Variant is a value tagged with its own Signature. Every constructor
// below corresponds 1:1 to a Signature Kind; the specialized array
// constructors (ArrayByte, ArrayString, ...) exist so arrays of
// primitives don't box each element as a Variant, matching the fast
// paths the teacher's marshal/newmarshal pair hand-rolled for slices
// of a single reflect.Kind.
type Variant struct {
	kind Kind

	b   byte
	u16 uint16
	i16 int16
	u32 uint32
	i32 int32
	u64 uint64
	i64 int64
	f64 float64
	str string // String, ObjectPath, Signature string form

	variant *Variant // Variant-of-Variant

	arrayElemSig *Signature
	arrayVariant []Variant // general Array elements

	// Specialized array fast paths.
	arrayByte   []byte
	arrayU16    []uint16
	arrayI16    []int16
	arrayU32    []uint32
	arrayI32    []int32
	arrayU64    []uint64
	arrayI64    []int64
	arrayF64    []float64
	arrayBool   []bool
	arrayString []string

	dictKey   *Variant
	dictValue *Variant

	fields []Variant // Struct, Tuple
}

// Byte builds a Variant of signature 'y'.
func Byte(v byte) Variant { return Variant{kind: KindByte, b: v} }

// Boolean builds a Variant of signature 'b'.
func Boolean(v bool) Variant {
	vv := Variant{kind: KindBoolean}
	if v {
		vv.u32 = 1
	}
	return vv
}

// Int16 builds a Variant of signature 'n'.
func Int16(v int16) Variant { return Variant{kind: KindInt16, i16: v} }

// Uint16 builds a Variant of signature 'q'.
func Uint16(v uint16) Variant { return Variant{kind: KindUint16, u16: v} }

// Int32 builds a Variant of signature 'i'.
func Int32(v int32) Variant { return Variant{kind: KindInt32, i32: v} }

// Uint32 builds a Variant of signature 'u'.
func Uint32(v uint32) Variant { return Variant{kind: KindUint32, u32: v} }

// Int64 builds a Variant of signature 'x'.
func Int64(v int64) Variant { return Variant{kind: KindInt64, i64: v} }

// Uint64 builds a Variant of signature 't'.
func Uint64(v uint64) Variant { return Variant{kind: KindUint64, u64: v} }

// Float64 builds a Variant of signature 'd'.
func Float64(v float64) Variant { return Variant{kind: KindFloat64, f64: v} }

// String builds a Variant of signature 's'.
func String(v string) Variant { return Variant{kind: KindString, str: v} }

// ObjectPathValue builds a Variant of signature 'o'.
func ObjectPathValue(v ObjectPath) Variant { return Variant{kind: KindObjectPath, str: string(v)} }

// SignatureValue builds a Variant of signature 'g'.
func SignatureValue(v Signature) Variant { return Variant{kind: KindSignature, str: v.String()} }

// UnixFD builds a Variant of signature 'h'. File-descriptor transfer
// itself is out of scope; this only carries the u32 index.
func UnixFD(index uint32) Variant { return Variant{kind: KindUnixFD, u32: index} }

// VariantOf builds a Variant-of-variant (signature 'v') wrapping inner.
func VariantOf(inner Variant) Variant {
	iv := inner
	return Variant{kind: KindVariant, variant: &iv}
}

// ArrayByte builds the signature-"ay" fast path.
func ArrayByte(v []byte) Variant {
	out := make([]byte, len(v))
	copy(out, v)
	return Variant{kind: KindArray, arrayElemSig: &SigByte, arrayByte: out}
}

// ArrayUint16 builds the signature-"aq" fast path.
func ArrayUint16(v []uint16) Variant {
	out := append([]uint16{}, v...)
	return Variant{kind: KindArray, arrayElemSig: &SigUint16, arrayU16: out}
}

// ArrayInt16 builds the signature-"an" fast path.
func ArrayInt16(v []int16) Variant {
	out := append([]int16{}, v...)
	return Variant{kind: KindArray, arrayElemSig: &SigInt16, arrayI16: out}
}

// ArrayUint32 builds the signature-"au" fast path.
func ArrayUint32(v []uint32) Variant {
	out := append([]uint32{}, v...)
	return Variant{kind: KindArray, arrayElemSig: &SigUint32, arrayU32: out}
}

// ArrayInt32 builds the signature-"ai" fast path.
func ArrayInt32(v []int32) Variant {
	out := append([]int32{}, v...)
	return Variant{kind: KindArray, arrayElemSig: &SigInt32, arrayI32: out}
}

// ArrayUint64 builds the signature-"at" fast path.
func ArrayUint64(v []uint64) Variant {
	out := append([]uint64{}, v...)
	return Variant{kind: KindArray, arrayElemSig: &SigUint64, arrayU64: out}
}

// ArrayInt64 builds the signature-"ax" fast path.
func ArrayInt64(v []int64) Variant {
	out := append([]int64{}, v...)
	return Variant{kind: KindArray, arrayElemSig: &SigInt64, arrayI64: out}
}

// ArrayFloat64 builds the signature-"ad" fast path.
func ArrayFloat64(v []float64) Variant {
	out := append([]float64{}, v...)
	return Variant{kind: KindArray, arrayElemSig: &SigFloat64, arrayF64: out}
}

// ArrayBoolean builds the signature-"ab" fast path.
func ArrayBoolean(v []bool) Variant {
	out := append([]bool{}, v...)
	return Variant{kind: KindArray, arrayElemSig: &SigBoolean, arrayBool: out}
}

// ArrayString builds the signature-"as" fast path.
func ArrayString(v []string) Variant {
	out := append([]string{}, v...)
	return Variant{kind: KindArray, arrayElemSig: &SigString, arrayString: out}
}

// ArrayOf builds a general array of elem whose elements are boxed as
// Variants; used for any element signature without a specialized fast
// path (structs, dict-entries, variants, nested arrays).
func ArrayOf(elem Signature, elements []Variant) Variant {
	e := elem
	out := append([]Variant{}, elements...)
	return Variant{kind: KindArray, arrayElemSig: &e, arrayVariant: out}
}

// DictEntryOf builds a Variant of signature "{kv}".
func DictEntryOf(key, value Variant) Variant {
	k, v := key, value
	return Variant{kind: KindDictEntry, dictKey: &k, dictValue: &v}
}

// StructOf builds a Variant of signature "(...)".
func StructOf(fields ...Variant) Variant {
	return Variant{kind: KindStruct, fields: append([]Variant{}, fields...)}
}

// TupleOf builds the synthetic top-level juxtaposition Variant used
// for message bodies.
func TupleOf(elements ...Variant) Variant {
	return Variant{kind: KindTuple, fields: append([]Variant{}, elements...)}
}

// Kind reports the Variant's constructor.
func (v Variant) Kind() Kind { return v.kind }

// Signature reports v's own signature. deserialize(v.Signature(),
// serialize(v)) must always reproduce v bit-exactly (§4.3).
func (v Variant) Signature() Signature {
	switch v.kind {
	case KindByte:
		return SigByte
	case KindBoolean:
		return SigBoolean
	case KindInt16:
		return SigInt16
	case KindUint16:
		return SigUint16
	case KindInt32:
		return SigInt32
	case KindUint32:
		return SigUint32
	case KindInt64:
		return SigInt64
	case KindUint64:
		return SigUint64
	case KindFloat64:
		return SigFloat64
	case KindString:
		return SigString
	case KindObjectPath:
		return SigObjectPath
	case KindSignature:
		return SigSignature
	case KindUnixFD:
		return SigUnixFD
	case KindVariant:
		return SigVariant
	case KindArray:
		return Array(*v.arrayElemSig)
	case KindDictEntry:
		return DictEntry(v.dictKey.Signature(), v.dictValue.Signature())
	case KindStruct:
		sigs := make([]Signature, len(v.fields))
		for i, f := range v.fields {
			sigs[i] = f.Signature()
		}
		return Struct(sigs...)
	case KindTuple:
		sigs := make([]Signature, len(v.fields))
		for i, f := range v.fields {
			sigs[i] = f.Signature()
		}
		return Tuple(sigs...)
	}
	return Signature{}
}

// Accessors. Each panics if called against the wrong Kind, mirroring
// the teacher's use of a type-switch panic ("Could not marshal ...")
// for programmer errors rather than a silent zero value.

func (v Variant) wrongKind(want Kind) string {
	return fmt.Sprintf("dbus: Variant is %s, not %s", v.kind, want)
}

func (v Variant) Byte() byte {
	if v.kind != KindByte {
		panic(v.wrongKind(KindByte))
	}
	return v.b
}

func (v Variant) Bool() bool {
	if v.kind != KindBoolean {
		panic(v.wrongKind(KindBoolean))
	}
	return v.u32 != 0
}

func (v Variant) Int16() int16 {
	if v.kind != KindInt16 {
		panic(v.wrongKind(KindInt16))
	}
	return v.i16
}

func (v Variant) Uint16() uint16 {
	if v.kind != KindUint16 {
		panic(v.wrongKind(KindUint16))
	}
	return v.u16
}

func (v Variant) Int32() int32 {
	if v.kind != KindInt32 {
		panic(v.wrongKind(KindInt32))
	}
	return v.i32
}

func (v Variant) Uint32() uint32 {
	if v.kind != KindUint32 {
		panic(v.wrongKind(KindUint32))
	}
	return v.u32
}

func (v Variant) Int64() int64 {
	if v.kind != KindInt64 {
		panic(v.wrongKind(KindInt64))
	}
	return v.i64
}

func (v Variant) Uint64() uint64 {
	if v.kind != KindUint64 {
		panic(v.wrongKind(KindUint64))
	}
	return v.u64
}

func (v Variant) Float64() float64 {
	if v.kind != KindFloat64 {
		panic(v.wrongKind(KindFloat64))
	}
	return v.f64
}

func (v Variant) Str() string {
	switch v.kind {
	case KindString, KindObjectPath, KindSignature:
		return v.str
	}
	panic(v.wrongKind(KindString))
}

func (v Variant) ObjectPath() ObjectPath {
	if v.kind != KindObjectPath {
		panic(v.wrongKind(KindObjectPath))
	}
	return ObjectPath(v.str)
}

func (v Variant) UnixFDIndex() uint32 {
	if v.kind != KindUnixFD {
		panic(v.wrongKind(KindUnixFD))
	}
	return v.u32
}

func (v Variant) Inner() Variant {
	if v.kind != KindVariant {
		panic(v.wrongKind(KindVariant))
	}
	return *v.variant
}

func (v Variant) ElemSignature() Signature {
	if v.kind != KindArray {
		panic(v.wrongKind(KindArray))
	}
	return *v.arrayElemSig
}

// Elements returns the array's elements boxed as Variants, regardless
// of whether the value was built with a specialized fast-path
// constructor. SerializeVariant and DeserializeVariant do not use it;
// it is for callers that read array elements generically.
func (v Variant) Elements() []Variant {
	if v.kind != KindArray {
		panic(v.wrongKind(KindArray))
	}
	switch {
	case v.arrayByte != nil:
		out := make([]Variant, len(v.arrayByte))
		for i, x := range v.arrayByte {
			out[i] = Byte(x)
		}
		return out
	case v.arrayU16 != nil:
		out := make([]Variant, len(v.arrayU16))
		for i, x := range v.arrayU16 {
			out[i] = Uint16(x)
		}
		return out
	case v.arrayI16 != nil:
		out := make([]Variant, len(v.arrayI16))
		for i, x := range v.arrayI16 {
			out[i] = Int16(x)
		}
		return out
	case v.arrayU32 != nil:
		out := make([]Variant, len(v.arrayU32))
		for i, x := range v.arrayU32 {
			out[i] = Uint32(x)
		}
		return out
	case v.arrayI32 != nil:
		out := make([]Variant, len(v.arrayI32))
		for i, x := range v.arrayI32 {
			out[i] = Int32(x)
		}
		return out
	case v.arrayU64 != nil:
		out := make([]Variant, len(v.arrayU64))
		for i, x := range v.arrayU64 {
			out[i] = Uint64(x)
		}
		return out
	case v.arrayI64 != nil:
		out := make([]Variant, len(v.arrayI64))
		for i, x := range v.arrayI64 {
			out[i] = Int64(x)
		}
		return out
	case v.arrayF64 != nil:
		out := make([]Variant, len(v.arrayF64))
		for i, x := range v.arrayF64 {
			out[i] = Float64(x)
		}
		return out
	case v.arrayBool != nil:
		out := make([]Variant, len(v.arrayBool))
		for i, x := range v.arrayBool {
			out[i] = Boolean(x)
		}
		return out
	case v.arrayString != nil:
		out := make([]Variant, len(v.arrayString))
		for i, x := range v.arrayString {
			out[i] = String(x)
		}
		return out
	default:
		return v.arrayVariant
	}
}

func (v Variant) DictKey() Variant {
	if v.kind != KindDictEntry {
		panic(v.wrongKind(KindDictEntry))
	}
	return *v.dictKey
}

func (v Variant) DictValue() Variant {
	if v.kind != KindDictEntry {
		panic(v.wrongKind(KindDictEntry))
	}
	return *v.dictValue
}

func (v Variant) StructFields() []Variant {
	if v.kind != KindStruct && v.kind != KindTuple {
		panic(v.wrongKind(KindStruct))
	}
	return v.fields
}

// SerializeVariant appends v's on-wire encoding to s, dispatching on
// v's own Kind. Callers never supply a signature on write: the chosen
// primitive and alignment always match v.Signature() by construction.
func SerializeVariant(s *Serializer, v Variant) error {
	switch v.kind {
	case KindByte:
		s.U8(v.b)
	case KindBoolean:
		s.Bool(v.u32 != 0)
	case KindInt16:
		s.I16(v.i16)
	case KindUint16:
		s.U16(v.u16)
	case KindInt32:
		s.I32(v.i32)
	case KindUint32:
		s.U32(v.u32)
	case KindInt64:
		s.I64(v.i64)
	case KindUint64:
		s.U64(v.u64)
	case KindFloat64:
		s.F64(v.f64)
	case KindString, KindObjectPath:
		s.String(v.str)
	case KindSignature:
		return s.SignatureString(v.str)
	case KindUnixFD:
		s.U32(v.u32)
	case KindVariant:
		sig := v.variant.Signature()
		if err := s.SignatureString(sig.String()); err != nil {
			return err
		}
		return SerializeVariant(s, *v.variant)
	case KindArray:
		return serializeArray(s, v)
	case KindDictEntry:
		var err error
		s.Struct(func(s *Serializer) {
			if e := SerializeVariant(s, *v.dictKey); e != nil {
				err = e
				return
			}
			err = SerializeVariant(s, *v.dictValue)
		})
		return err
	case KindStruct:
		var err error
		s.Struct(func(s *Serializer) {
			for _, f := range v.fields {
				if e := SerializeVariant(s, f); e != nil {
					err = e
					return
				}
			}
		})
		return err
	case KindTuple:
		for _, f := range v.fields {
			if err := SerializeVariant(s, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func serializeArray(s *Serializer, v Variant) error {
	elemAlign := v.arrayElemSig.Align()
	var err error
	switch {
	case v.arrayByte != nil:
		s.ArrayU8(v.arrayByte)
	case v.arrayU16 != nil:
		s.Array(elemAlign, func(s *Serializer) {
			for _, x := range v.arrayU16 {
				s.U16(x)
			}
		})
	case v.arrayI16 != nil:
		s.Array(elemAlign, func(s *Serializer) {
			for _, x := range v.arrayI16 {
				s.I16(x)
			}
		})
	case v.arrayU32 != nil:
		s.Array(elemAlign, func(s *Serializer) {
			for _, x := range v.arrayU32 {
				s.U32(x)
			}
		})
	case v.arrayI32 != nil:
		s.Array(elemAlign, func(s *Serializer) {
			for _, x := range v.arrayI32 {
				s.I32(x)
			}
		})
	case v.arrayU64 != nil:
		s.Array(elemAlign, func(s *Serializer) {
			for _, x := range v.arrayU64 {
				s.U64(x)
			}
		})
	case v.arrayI64 != nil:
		s.Array(elemAlign, func(s *Serializer) {
			for _, x := range v.arrayI64 {
				s.I64(x)
			}
		})
	case v.arrayF64 != nil:
		s.Array(elemAlign, func(s *Serializer) {
			for _, x := range v.arrayF64 {
				s.F64(x)
			}
		})
	case v.arrayBool != nil:
		s.Array(elemAlign, func(s *Serializer) {
			for _, x := range v.arrayBool {
				s.Bool(x)
			}
		})
	case v.arrayString != nil:
		s.Array(elemAlign, func(s *Serializer) {
			for _, x := range v.arrayString {
				s.String(x)
			}
		})
	default:
		s.Array(elemAlign, func(s *Serializer) {
			for _, elem := range v.arrayVariant {
				if e := SerializeVariant(s, elem); e != nil {
					err = e
					return
				}
			}
		})
	}
	return err
}

// DeserializeVariant reads a value of the given signature from d,
// dispatching on sig per the table in §4.3. The result's Signature()
// always equals sig.
func DeserializeVariant(d *Deserializer, sig Signature) (Variant, error) {
	switch sig.kind {
	case KindByte:
		v, err := d.U8()
		return Byte(v), err
	case KindBoolean:
		v, err := d.Bool()
		return Boolean(v), err
	case KindInt16:
		v, err := d.I16()
		return Int16(v), err
	case KindUint16:
		v, err := d.U16()
		return Uint16(v), err
	case KindInt32:
		v, err := d.I32()
		return Int32(v), err
	case KindUint32:
		v, err := d.U32()
		return Uint32(v), err
	case KindInt64:
		v, err := d.I64()
		return Int64(v), err
	case KindUint64:
		v, err := d.U64()
		return Uint64(v), err
	case KindFloat64:
		v, err := d.F64()
		return Float64(v), err
	case KindString:
		v, err := d.String()
		return String(v), err
	case KindObjectPath:
		v, err := d.String()
		return ObjectPathValue(ObjectPath(v)), err
	case KindSignature:
		v, err := d.SignatureString()
		return Variant{kind: KindSignature, str: v}, err
	case KindUnixFD:
		v, err := d.U32()
		return UnixFD(v), err
	case KindVariant:
		innerSigStr, err := d.SignatureString()
		if err != nil {
			return Variant{}, err
		}
		innerSig, err := ParseSignature(innerSigStr)
		if err != nil {
			return Variant{}, err
		}
		inner, err := DeserializeVariant(d, innerSig)
		if err != nil {
			return Variant{}, err
		}
		return VariantOf(inner), nil
	case KindArray:
		return deserializeArray(d, sig.Elem())
	case KindDictEntry:
		var key, value Variant
		err := d.Struct(func(d *Deserializer) error {
			var err error
			key, err = DeserializeVariant(d, sig.Key())
			if err != nil {
				return err
			}
			value, err = DeserializeVariant(d, sig.Elem())
			return err
		})
		if err != nil {
			return Variant{}, err
		}
		return DictEntryOf(key, value), nil
	case KindStruct:
		var fields []Variant
		err := d.Struct(func(d *Deserializer) error {
			for _, fsig := range sig.Fields() {
				v, err := DeserializeVariant(d, fsig)
				if err != nil {
					return err
				}
				fields = append(fields, v)
			}
			return nil
		})
		if err != nil {
			return Variant{}, err
		}
		return StructOf(fields...), nil
	case KindTuple:
		fields := make([]Variant, 0, len(sig.Fields()))
		for _, fsig := range sig.Fields() {
			v, err := DeserializeVariant(d, fsig)
			if err != nil {
				return Variant{}, err
			}
			fields = append(fields, v)
		}
		return TupleOf(fields...), nil
	}
	return Variant{}, errInvalidValue(d.Pos(), "known signature kind", sig.kind.String())
}

func deserializeArray(d *Deserializer, elem Signature) (Variant, error) {
	switch elem.kind {
	case KindByte:
		v, err := d.ArrayU8()
		if err != nil {
			return Variant{}, err
		}
		return ArrayByte(v), nil
	case KindUint16:
		var out []uint16
		err := d.Array(elem.Align(), func(d *Deserializer) error {
			v, err := d.U16()
			out = append(out, v)
			return err
		})
		return Variant{kind: KindArray, arrayElemSig: &SigUint16, arrayU16: orEmptyU16(out)}, err
	case KindInt16:
		var out []int16
		err := d.Array(elem.Align(), func(d *Deserializer) error {
			v, err := d.I16()
			out = append(out, v)
			return err
		})
		return Variant{kind: KindArray, arrayElemSig: &SigInt16, arrayI16: orEmptyI16(out)}, err
	case KindUint32:
		var out []uint32
		err := d.Array(elem.Align(), func(d *Deserializer) error {
			v, err := d.U32()
			out = append(out, v)
			return err
		})
		return Variant{kind: KindArray, arrayElemSig: &SigUint32, arrayU32: orEmptyU32(out)}, err
	case KindInt32:
		var out []int32
		err := d.Array(elem.Align(), func(d *Deserializer) error {
			v, err := d.I32()
			out = append(out, v)
			return err
		})
		return Variant{kind: KindArray, arrayElemSig: &SigInt32, arrayI32: orEmptyI32(out)}, err
	case KindUint64:
		var out []uint64
		err := d.Array(elem.Align(), func(d *Deserializer) error {
			v, err := d.U64()
			out = append(out, v)
			return err
		})
		return Variant{kind: KindArray, arrayElemSig: &SigUint64, arrayU64: orEmptyU64(out)}, err
	case KindInt64:
		var out []int64
		err := d.Array(elem.Align(), func(d *Deserializer) error {
			v, err := d.I64()
			out = append(out, v)
			return err
		})
		return Variant{kind: KindArray, arrayElemSig: &SigInt64, arrayI64: orEmptyI64(out)}, err
	case KindFloat64:
		var out []float64
		err := d.Array(elem.Align(), func(d *Deserializer) error {
			v, err := d.F64()
			out = append(out, v)
			return err
		})
		return Variant{kind: KindArray, arrayElemSig: &SigFloat64, arrayF64: orEmptyF64(out)}, err
	case KindBoolean:
		var out []bool
		err := d.Array(elem.Align(), func(d *Deserializer) error {
			v, err := d.Bool()
			out = append(out, v)
			return err
		})
		return Variant{kind: KindArray, arrayElemSig: &SigBoolean, arrayBool: orEmptyBool(out)}, err
	case KindString:
		var out []string
		err := d.Array(elem.Align(), func(d *Deserializer) error {
			v, err := d.String()
			out = append(out, v)
			return err
		})
		return Variant{kind: KindArray, arrayElemSig: &SigString, arrayString: orEmptyString(out)}, err
	case KindUnixFD:
		var out []uint32
		err := d.Array(elem.Align(), func(d *Deserializer) error {
			v, err := d.U32()
			out = append(out, v)
			return err
		})
		elems := make([]Variant, len(out))
		for i, x := range out {
			elems[i] = UnixFD(x)
		}
		return ArrayOf(SigUnixFD, elems), err
	default:
		var out []Variant
		err := d.Array(elem.Align(), func(d *Deserializer) error {
			v, err := DeserializeVariant(d, elem)
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
		return ArrayOf(elem, out), err
	}
}

// orEmptyXxx ensure a zero-element array still reports a non-nil
// slice so Variant equality treats "parsed, zero elements" the same
// as a freshly built empty array (see the empty-array padding
// scenario in §8 test case 3).
func orEmptyU16(v []uint16) []uint16 {
	if v == nil {
		return []uint16{}
	}
	return v
}
func orEmptyI16(v []int16) []int16 {
	if v == nil {
		return []int16{}
	}
	return v
}
func orEmptyU32(v []uint32) []uint32 {
	if v == nil {
		return []uint32{}
	}
	return v
}
func orEmptyI32(v []int32) []int32 {
	if v == nil {
		return []int32{}
	}
	return v
}
func orEmptyU64(v []uint64) []uint64 {
	if v == nil {
		return []uint64{}
	}
	return v
}
func orEmptyI64(v []int64) []int64 {
	if v == nil {
		return []int64{}
	}
	return v
}
func orEmptyF64(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
func orEmptyBool(v []bool) []bool {
	if v == nil {
		return []bool{}
	}
	return v
}
func orEmptyString(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
