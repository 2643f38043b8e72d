package dbus

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultReadBufferSize = 4096

// ConnConfig holds Connection construction options, set through
// ConnOption functions following the options-struct-plus-setter shape
// marselester-systemd uses for its Config/Option pair.
type ConnConfig struct {
	logger         logrus.FieldLogger
	writeOrder     Endianness
	readBufferSize int
	dialTimeout    time.Duration
}

// ConnOption sets up a ConnConfig.
type ConnOption func(*ConnConfig)

// WithLogger directs Connection lifecycle logging to l instead of a
// package default that logs nothing below Warn.
func WithLogger(l logrus.FieldLogger) ConnOption {
	return func(c *ConnConfig) { c.logger = l }
}

// WithWriteEndianness overrides the byte order a Connection uses for
// outbound messages. The default is the host's native order.
func WithWriteEndianness(order Endianness) ConnOption {
	return func(c *ConnConfig) { c.writeOrder = order }
}

// WithReadBufferSize records n as the Connection's read buffer size.
// Recv does not use it: it sizes each read from the incoming message's
// own header and field-array length.
func WithReadBufferSize(n int) ConnOption {
	return func(c *ConnConfig) { c.readBufferSize = n }
}

// WithDialTimeout bounds how long Dial waits to establish the
// underlying socket. There is no in-protocol timeout once connected;
// a caller wanting one uses Connection.SetDeadline.
func WithDialTimeout(d time.Duration) ConnOption {
	return func(c *ConnConfig) { c.dialTimeout = d }
}

func defaultLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// Connection owns a single D-Bus transport socket: the SASL EXTERNAL
// handshake, framed message send/receive, and nothing else. Client
// layers serial allocation, Hello, and reply correlation on top.
type Connection struct {
	conn   net.Conn
	log    logrus.FieldLogger
	order  Endianness
	bufLen int

	// GUID is the server's 32-character hex identifier, negotiated
	// during the SASL EXTERNAL handshake.
	GUID string
}

// Dial resolves the candidate addresses for bus, connects to the
// first one that accepts a TCP/unix dial and completes the SASL
// EXTERNAL handshake, and returns a ready Connection. Every failed
// candidate is recorded in the returned ConnectError if all of them
// fail.
func Dial(bus Bus, opts ...ConnOption) (*Connection, error) {
	cfg := ConnConfig{
		logger:         defaultLogger(),
		writeOrder:     nativeEndianness,
		readBufferSize: defaultReadBufferSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	addrs, err := ResolveAddresses(bus)
	if err != nil {
		return nil, err
	}

	var attempts []DialAttempt
	for _, raw := range addrs {
		c, err := dialOne(raw, cfg)
		if err != nil {
			attempts = append(attempts, DialAttempt{Address: raw, Err: err})
			cfg.logger.WithFields(logrus.Fields{"address": raw, "error": err}).Debug("dbus: dial attempt failed")
			continue
		}
		cfg.logger.WithFields(logrus.Fields{"address": raw}).Info("dbus: connected")
		return c, nil
	}
	return nil, &ConnectError{Attempts: attempts}
}

func dialOne(raw string, cfg ConnConfig) (*Connection, error) {
	cand, err := parseCandidateAddress(raw)
	if err != nil {
		return nil, err
	}

	var netConn net.Conn
	switch cand.scheme {
	case "unix":
		addr, err := unixSocketAddress(cand)
		if err != nil {
			return nil, err
		}
		d := net.Dialer{Timeout: cfg.dialTimeout}
		netConn, err = d.Dial("unix", addr)
		if err != nil {
			return nil, err
		}
	case "tcp":
		d := net.Dialer{Timeout: cfg.dialTimeout}
		netConn, err = d.Dial("tcp", cand.options["host"]+":"+cand.options["port"])
		if err != nil {
			return nil, err
		}
	default:
		return nil, &ConnectError{Scheme: cand.scheme}
	}

	guid, err := authenticateExternal(netConn)
	if err != nil {
		netConn.Close()
		return nil, &ConnectError{AuthErr: err}
	}
	logPeerCredentials(cfg.logger, netConn)

	return &Connection{
		conn:   netConn,
		log:    cfg.logger,
		order:  cfg.writeOrder,
		bufLen: cfg.readBufferSize,
		GUID:   guid,
	}, nil
}

// Close closes the underlying socket.
func (c *Connection) Close() error { return c.conn.Close() }

// SetDeadline passes through to the underlying net.Conn, the only
// cancellation mechanism this package exposes: there is no
// in-protocol timeout.
func (c *Connection) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

// Send serializes m with the Connection's configured write
// endianness and writes it to the socket in a single Write call.
func (c *Connection) Send(m *Message) error {
	buf, err := SerializeMessage(c.order, m)
	if err != nil {
		return &SendError{Serialize: err}
	}
	if _, err := c.conn.Write(buf); err != nil {
		return &SendError{Io: err}
	}
	c.log.WithFields(logrus.Fields{"serial": m.Serial, "type": m.Type}).Debug("dbus: sent message")
	return nil
}

// Recv blocks for exactly one complete message: it reads the fixed
// 12-byte header (which carries the body length) and the 4-byte header
// field array length, then reads the remainder (header fields,
// padding, body) before decoding.
func (c *Connection) Recv() (*Message, error) {
	header := make([]byte, headerLen)
	if _, err := readFull(c.conn, header); err != nil {
		return nil, &RecvError{Io: err}
	}

	_, _, _, bodyLen, _, err := DeserializeMessageHeader(header)
	if err != nil {
		return nil, &RecvError{Deserialize: err}
	}

	// The header-field array's own length follows immediately; read it
	// to learn how many more bytes precede the (8-byte aligned) body.
	fieldArrayLen := make([]byte, 4)
	if _, err := readFull(c.conn, fieldArrayLen); err != nil {
		return nil, &RecvError{Io: err}
	}
	order := Endianness(header[0])
	n := order.order().Uint32(fieldArrayLen)

	const afterLengthField = headerLen + 4
	arrayBodyStart := align(afterLengthField, 8)
	padBeforeArray := arrayBodyStart - afterLengthField
	bodyStart := align(arrayBodyStart+int(n), 8)
	padBeforeBody := bodyStart - (arrayBodyStart + int(n))

	rest := padBeforeArray + int(n) + padBeforeBody + int(bodyLen)
	restBuf := make([]byte, rest)
	if _, err := readFull(c.conn, restBuf); err != nil {
		return nil, &RecvError{Io: err}
	}

	full := make([]byte, 0, headerLen+4+len(restBuf))
	full = append(full, header...)
	full = append(full, fieldArrayLen...)
	full = append(full, restBuf...)

	m, err := DeserializeMessage(full)
	if err != nil {
		return nil, &RecvError{Deserialize: err}
	}
	c.log.WithFields(logrus.Fields{"serial": m.Serial, "type": m.Type}).Debug("dbus: received message")
	return m, nil
}

func readFull(r net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
