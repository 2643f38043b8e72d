package dbus

// MessageType identifies one of the four D-Bus message kinds.
type MessageType byte

const (
	MethodCall   MessageType = 1
	MethodReturn MessageType = 2
	Error        MessageType = 3
	Signal       MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case MethodCall:
		return "method_call"
	case MethodReturn:
		return "method_return"
	case Error:
		return "error"
	case Signal:
		return "signal"
	}
	return "unknown"
}

// HeaderFieldCode identifies one of the standard header fields, per
// the wire's header field array of (code, variant) structs.
type HeaderFieldCode byte

const (
	FieldPath        HeaderFieldCode = 1
	FieldInterface   HeaderFieldCode = 2
	FieldMember      HeaderFieldCode = 3
	FieldErrorName   HeaderFieldCode = 4
	FieldReplySerial HeaderFieldCode = 5
	FieldDestination HeaderFieldCode = 6
	FieldSender      HeaderFieldCode = 7
	FieldSignature   HeaderFieldCode = 8
	FieldUnixFDs     HeaderFieldCode = 9
)

func (c HeaderFieldCode) String() string {
	switch c {
	case FieldPath:
		return "PATH"
	case FieldInterface:
		return "INTERFACE"
	case FieldMember:
		return "MEMBER"
	case FieldErrorName:
		return "ERROR_NAME"
	case FieldReplySerial:
		return "REPLY_SERIAL"
	case FieldDestination:
		return "DESTINATION"
	case FieldSender:
		return "SENDER"
	case FieldSignature:
		return "SIGNATURE"
	case FieldUnixFDs:
		return "UNIX_FDS"
	}
	return "UNKNOWN"
}

// HeaderField is one (code, value) entry of a message's header field
// array. An unrecognized code is preserved verbatim rather than
// rejected, so a client built against an older revision of this
// package can still relay messages carrying fields it doesn't
// interpret.
type HeaderField struct {
	Code  HeaderFieldCode
	Value Variant
}

const protocolVersion = 1

// flag bits for Message.Flags.
const (
	FlagNoReplyExpected byte = 1 << 0
	FlagNoAutoStart     byte = 1 << 1
)

// Message is one D-Bus message: a fixed header, a header field array,
// and an optional body. Deserialize/Serialize operate on the whole
// message as a unit; Connection.Send/Recv never expose the raw header
// bytes to callers.
type Message struct {
	Type   MessageType
	Flags  byte
	Serial uint32

	Path        ObjectPath
	Interface   string
	Member      string
	ErrorName   string
	ReplySerial uint32
	Destination string
	Sender      string

	// Unknown carries any header fields with a code this package does
	// not interpret, preserved for pass-through.
	Unknown []HeaderField

	// Body holds the message's arguments as a single Tuple Variant. A
	// message with no arguments has a Body of TupleOf() (empty tuple).
	Body Variant
}

func (m *Message) bodySignature() Signature {
	if m.Body.kind == KindInvalid {
		return Tuple()
	}
	return m.Body.Signature()
}

func (m *Message) headerFields() []HeaderField {
	var fields []HeaderField
	if m.Path != "" {
		fields = append(fields, HeaderField{FieldPath, ObjectPathValue(m.Path)})
	}
	if m.Interface != "" {
		fields = append(fields, HeaderField{FieldInterface, String(m.Interface)})
	}
	if m.Member != "" {
		fields = append(fields, HeaderField{FieldMember, String(m.Member)})
	}
	if m.ErrorName != "" {
		fields = append(fields, HeaderField{FieldErrorName, String(m.ErrorName)})
	}
	if m.ReplySerial != 0 {
		fields = append(fields, HeaderField{FieldReplySerial, Uint32(m.ReplySerial)})
	}
	if m.Destination != "" {
		fields = append(fields, HeaderField{FieldDestination, String(m.Destination)})
	}
	if m.Sender != "" {
		fields = append(fields, HeaderField{FieldSender, String(m.Sender)})
	}
	bodySig := m.bodySignature()
	if len(bodySig.Fields()) > 0 {
		fields = append(fields, HeaderField{FieldSignature, SignatureValue(bodySig)})
	}
	fields = append(fields, m.Unknown...)
	return fields
}

// requiredFields reports which of the standard header fields a
// message of Type must carry, per the D-Bus specification's per-type
// mandatory field table.
func (t MessageType) requiredFields() []HeaderFieldCode {
	switch t {
	case MethodCall:
		return []HeaderFieldCode{FieldPath, FieldMember}
	case MethodReturn:
		return []HeaderFieldCode{FieldReplySerial}
	case Error:
		return []HeaderFieldCode{FieldErrorName, FieldReplySerial}
	case Signal:
		return []HeaderFieldCode{FieldPath, FieldInterface, FieldMember}
	}
	return nil
}

func (m *Message) validate() error {
	for _, code := range m.Type.requiredFields() {
		switch code {
		case FieldPath:
			if m.Path == "" {
				return &MissingHeaderFieldError{MessageType: m.Type, Field: code.String()}
			}
		case FieldMember:
			if m.Member == "" {
				return &MissingHeaderFieldError{MessageType: m.Type, Field: code.String()}
			}
		case FieldInterface:
			if m.Interface == "" {
				return &MissingHeaderFieldError{MessageType: m.Type, Field: code.String()}
			}
		case FieldErrorName:
			if m.ErrorName == "" {
				return &MissingHeaderFieldError{MessageType: m.Type, Field: code.String()}
			}
		case FieldReplySerial:
			if m.ReplySerial == 0 {
				return &MissingHeaderFieldError{MessageType: m.Type, Field: code.String()}
			}
		}
	}
	return nil
}

// SerializeMessage encodes m in its entirety: endianness marker,
// fixed header, header field array (padded to an 8-byte body
// boundary), then the body.
func SerializeMessage(order Endianness, m *Message) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	var bodyBuf []byte
	bodySig := m.bodySignature()
	if len(bodySig.Fields()) > 0 {
		bs := NewSerializer(nil, order)
		for _, f := range m.Body.StructFields() {
			if err := SerializeVariant(bs, f); err != nil {
				return nil, err
			}
		}
		bodyBuf = bs.Bytes()
	}

	s := NewSerializer(nil, order)
	s.U8(byte(order))
	s.U8(byte(m.Type))
	s.U8(m.Flags)
	s.U8(protocolVersion)
	s.U32(uint32(len(bodyBuf)))
	s.U32(m.Serial)

	s.Array(8, func(s *Serializer) {
		for _, f := range m.headerFields() {
			s.Struct(func(s *Serializer) {
				s.U8(byte(f.Code))
				sig := f.Value.Signature()
				if err := s.SignatureString(sig.String()); err != nil {
					return
				}
				_ = SerializeVariant(s, f.Value)
			})
		}
	})
	s.PadTo(8)

	out := append(s.Bytes(), bodyBuf...)
	return out, nil
}

// headerLen is the byte length of a message's fixed portion, before
// the header field array's own u32 length prefix.
const headerLen = 12

// DeserializeMessageHeader reads only the fixed 12-byte header and
// reports its endianness, message type, flags, body length and serial.
// The header field array's length is not part of these 12 bytes, so a
// Connection reads that u32 separately before sizing the rest.
func DeserializeMessageHeader(buf []byte) (order Endianness, msgType MessageType, flags byte, bodyLen uint32, serial uint32, err error) {
	if len(buf) < headerLen {
		return 0, 0, 0, 0, 0, errEndOfInput(len(buf))
	}
	order = Endianness(buf[0])
	if order != LittleEndian && order != BigEndian {
		return 0, 0, 0, 0, 0, errInvalidValue(0, "'l' or 'B'", string(rune(buf[0])))
	}
	d := NewDeserializer(buf, 0, order)
	e, err := d.U8()
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	order = Endianness(e)
	d.SetEndianness(order)
	t, err := d.U8()
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	f, err := d.U8()
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	ver, err := d.U8()
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	if ver != protocolVersion {
		return 0, 0, 0, 0, 0, errInvalidValue(3, "protocol version 1", "another protocol version")
	}
	bl, err := d.U32()
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	ser, err := d.U32()
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	return order, MessageType(t), f, bl, ser, nil
}

// DeserializeMessage decodes a complete message (header, header field
// array, and body) from buf, which must hold exactly one message's
// worth of bytes as determined by DeserializeMessageHeader's bodyLen.
func DeserializeMessage(buf []byte) (*Message, error) {
	order, msgType, flags, bodyLen, serial, err := DeserializeMessageHeader(buf)
	if err != nil {
		return nil, err
	}

	d := NewDeserializer(buf, headerLen, order)
	m := &Message{Type: msgType, Flags: flags, Serial: serial}

	var fieldCount int
	var bodySigStr string
	err = d.Array(8, func(d *Deserializer) error {
		return d.Struct(func(d *Deserializer) error {
			code, err := d.U8()
			if err != nil {
				return err
			}
			sigStr, err := d.SignatureString()
			if err != nil {
				return err
			}
			sig, err := ParseSignature(sigStr)
			if err != nil {
				return err
			}
			value, err := DeserializeVariant(d, sig)
			if err != nil {
				return err
			}
			fieldCount++
			switch HeaderFieldCode(code) {
			case FieldPath:
				m.Path = value.ObjectPath()
			case FieldInterface:
				m.Interface = value.Str()
			case FieldMember:
				m.Member = value.Str()
			case FieldErrorName:
				m.ErrorName = value.Str()
			case FieldReplySerial:
				m.ReplySerial = value.Uint32()
			case FieldDestination:
				m.Destination = value.Str()
			case FieldSender:
				m.Sender = value.Str()
			case FieldSignature:
				bodySigStr = value.Str()
			case FieldUnixFDs:
				m.Unknown = append(m.Unknown, HeaderField{Code: FieldUnixFDs, Value: value})
			default:
				m.Unknown = append(m.Unknown, HeaderField{Code: HeaderFieldCode(code), Value: value})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if err := d.padTo(8); err != nil {
		return nil, err
	}

	if bodyLen > 0 && bodySigStr == "" {
		return nil, &MissingHeaderFieldError{MessageType: msgType, Field: FieldSignature.String()}
	}

	bodySig, err := ParseSignatureTuple(bodySigStr)
	if err != nil {
		return nil, err
	}
	fields := make([]Variant, 0, len(bodySig.Fields()))
	for _, fsig := range bodySig.Fields() {
		v, err := DeserializeVariant(d, fsig)
		if err != nil {
			return nil, err
		}
		fields = append(fields, v)
	}
	m.Body = TupleOf(fields...)

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}
