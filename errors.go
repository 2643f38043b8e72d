package dbus

import "fmt"

// DeserializeError reports a failure decoding a value from a byte
// buffer. It always carries the byte offset at which the failure was
// detected so a log line identifies both what went wrong and where.
type DeserializeError struct {
	Offset int
	Reason string
	Err    error
}

func (e *DeserializeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dbus: decode at offset %d: %s: %v", e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("dbus: decode at offset %d: %s", e.Offset, e.Reason)
}

func (e *DeserializeError) Unwrap() error { return e.Err }

func errEndOfInput(offset int) error {
	return &DeserializeError{Offset: offset, Reason: "end of input"}
}

func errNonZeroPadding(start, end int) error {
	return &DeserializeError{Offset: start, Reason: fmt.Sprintf("non-zero padding byte in [%d,%d)", start, end)}
}

func errInvalidValue(offset int, expected, actual string) error {
	return &DeserializeError{Offset: offset, Reason: fmt.Sprintf("invalid value: expected %s, got %s", expected, actual)}
}

func errInvalidUTF8(offset int) error {
	return &DeserializeError{Offset: offset, Reason: "invalid UTF-8 in string"}
}

func errMissingNul(offset int) error {
	return &DeserializeError{Offset: offset, Reason: "string missing NUL terminator"}
}

// SerializeError reports a failure encoding a value. Unlike
// DeserializeError, a SerializeError is always recoverable: nothing
// has been written to the wire yet.
type SerializeError struct {
	Reason string
}

func (e *SerializeError) Error() string { return "dbus: encode: " + e.Reason }

func errExceedsLimit(what string, n, limit int) error {
	return &SerializeError{Reason: fmt.Sprintf("%s length %d exceeds limit %d", what, n, limit)}
}

// MissingHeaderFieldError reports that a message of a given type
// lacked one of its type-mandatory header fields.
type MissingHeaderFieldError struct {
	MessageType MessageType
	Field       string
}

func (e *MissingHeaderFieldError) Error() string {
	return fmt.Sprintf("dbus: message type %s is missing required header field %s", e.MessageType, e.Field)
}

// AuthenticateError reports a failure in the SASL EXTERNAL handshake:
// either the server rejected the mechanism outright, or its response
// line didn't have the shape this package requires.
type AuthenticateError struct {
	Line     string
	Rejected bool
}

func (e *AuthenticateError) Error() string {
	if e.Rejected {
		return "dbus: SASL EXTERNAL rejected: " + e.Line
	}
	return "dbus: malformed SASL response: " + e.Line
}

// ConnectError reports a failure establishing a Connection. It
// accumulates every dial attempt made across candidate addresses.
type ConnectError struct {
	MissingEnvVar string
	Attempts      []DialAttempt
	AuthErr       error
	Scheme        string
}

// DialAttempt records one candidate address and the error dialing it.
type DialAttempt struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	switch {
	case e.MissingEnvVar != "":
		return fmt.Sprintf("dbus: environment variable %s is not set", e.MissingEnvVar)
	case e.Scheme != "":
		return fmt.Sprintf("dbus: unsupported transport %q", e.Scheme)
	case e.AuthErr != nil:
		return fmt.Sprintf("dbus: authentication failed: %v", e.AuthErr)
	default:
		return fmt.Sprintf("dbus: could not connect to any of %d candidate address(es): %v", len(e.Attempts), e.Attempts)
	}
}

func (e *ConnectError) Unwrap() error { return e.AuthErr }

// SendError reports a failure sending a message. An I/O failure
// poisons the Connection; a Serialize failure does not, since nothing
// was transmitted.
type SendError struct {
	Io        error
	Serialize error
}

func (e *SendError) Error() string {
	if e.Io != nil {
		return fmt.Sprintf("dbus: send: i/o error: %v", e.Io)
	}
	return fmt.Sprintf("dbus: send: %v", e.Serialize)
}

func (e *SendError) Unwrap() error {
	if e.Io != nil {
		return e.Io
	}
	return e.Serialize
}

// RecvError reports a failure receiving a message. Both kinds are
// terminal for the Connection.
type RecvError struct {
	Io         error
	Deserialize error
}

func (e *RecvError) Error() string {
	if e.Io != nil {
		return fmt.Sprintf("dbus: recv: i/o error: %v", e.Io)
	}
	return fmt.Sprintf("dbus: recv: %v", e.Deserialize)
}

func (e *RecvError) Unwrap() error {
	if e.Io != nil {
		return e.Io
	}
	return e.Deserialize
}

// MethodCallError reports a failure making a method call, including
// the case where the remote end replied with a D-Bus ERROR message.
type MethodCallError struct {
	SendRequest  error
	RecvResponse error
	// Name and Body are set when the remote end returned an ERROR
	// message in reply to the call.
	Name string
	Body *Variant
	// Unexpected is set when the Hello reply's body is not a single
	// string. Replies of another type or reply_serial are not errors:
	// the Client holds them for a later Recv.
	Unexpected bool
}

func (e *MethodCallError) Error() string {
	switch {
	case e.SendRequest != nil:
		return fmt.Sprintf("dbus: method call: %v", e.SendRequest)
	case e.RecvResponse != nil:
		return fmt.Sprintf("dbus: method call: %v", e.RecvResponse)
	case e.Unexpected:
		return "dbus: method call: unexpected response"
	default:
		return fmt.Sprintf("dbus: method call: remote error %s", e.Name)
	}
}

func (e *MethodCallError) Unwrap() error {
	if e.SendRequest != nil {
		return e.SendRequest
	}
	return e.RecvResponse
}
