package dbus

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	busDestination = "org.freedesktop.DBus"
	busPath        = ObjectPath("/org/freedesktop/DBus")
	busInterface   = "org.freedesktop.DBus"
)

// ClientConfig holds Client construction options.
type ClientConfig struct {
	logger logrus.FieldLogger
}

// ClientOption sets up a ClientConfig.
type ClientOption func(*ClientConfig)

// WithClientLogger directs Client lifecycle logging to l.
func WithClientLogger(l logrus.FieldLogger) ClientOption {
	return func(c *ClientConfig) { c.logger = l }
}

// Client wraps a Connection with bus-name assignment, serial
// allocation, and request/reply correlation. Like
// marselester-systemd's Client, a Client must not be used
// concurrently: Send, Recv, RecvMatching and MethodCall take an
// internal mutex (Name and Close do not), and the underlying
// connection is read and written serially.
type Client struct {
	conn *Connection
	log  logrus.FieldLogger

	mu     sync.Mutex
	serial uint32
	name   string

	// held queues messages read while waiting for a specific
	// reply serial that didn't match it, so a later Recv/RecvMatching
	// drains them in the order they arrived instead of dropping them.
	held []*Message
}

// NewClient wraps conn and performs the Hello handshake, blocking
// until the bus assigns this connection a unique name.
func NewClient(conn *Connection, opts ...ClientOption) (*Client, error) {
	cfg := ClientConfig{logger: defaultLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Client{conn: conn, log: cfg.logger}

	reply, err := c.call(busDestination, busPath, busInterface, "Hello", Variant{})
	if err != nil {
		return nil, err
	}
	fields := reply.StructFields()
	if len(fields) != 1 || fields[0].Kind() != KindString {
		return nil, &MethodCallError{Unexpected: true}
	}
	c.name = fields[0].Str()
	c.log.WithFields(logrus.Fields{"name": c.name}).Info("dbus: acquired bus name")
	return c, nil
}

// Name reports the unique bus name this Client was assigned by Hello.
func (c *Client) Name() string { return c.name }

// Close closes the underlying Connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) nextSerial() uint32 {
	c.serial++
	if c.serial == 0 {
		c.serial++
	}
	return c.serial
}

// Send allocates a serial, stamps it into header, sets header.Sender
// to the client's bus name, and writes the message. It returns the serial so a caller can correlate a later
// RecvMatching call with this request.
func (c *Client) Send(header *Message, body Variant) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(header, body)
}

func (c *Client) sendLocked(header *Message, body Variant) (uint32, error) {
	serial := c.nextSerial()
	header.Serial = serial
	header.Sender = c.name
	if body.Kind() != KindInvalid {
		header.Body = body
	} else {
		header.Body = TupleOf()
	}
	if err := c.conn.Send(header); err != nil {
		return 0, err
	}
	c.log.WithFields(logrus.Fields{"serial": serial, "member": header.Member}).Debug("dbus: allocated serial")
	return serial, nil
}

// Recv returns the next message in FIFO order, preferring one already
// held from a prior RecvMatching call before reading a fresh one off
// the wire.
func (c *Client) Recv() (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recvLocked()
}

func (c *Client) recvLocked() (*Message, error) {
	if len(c.held) > 0 {
		m := c.held[0]
		c.held = c.held[1:]
		return m, nil
	}
	return c.conn.Recv()
}

// RecvMatching blocks until a message satisfying predicate arrives,
// queuing every non-matching message it reads along the way so a
// subsequent Recv or RecvMatching still observes it, in order.
func (c *Client) RecvMatching(predicate func(*Message) bool) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recvMatchingLocked(predicate)
}

// call is the low-level helper Hello and MethodCall share: send a
// request with the given body and block for its reply.
func (c *Client) call(destination string, path ObjectPath, iface, member string, body Variant) (Variant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := &Message{
		Type:        MethodCall,
		Path:        path,
		Interface:   iface,
		Member:      member,
		Destination: destination,
	}
	serial, err := c.sendLocked(req, body)
	if err != nil {
		return Variant{}, &MethodCallError{SendRequest: err}
	}

	reply, err := c.recvMatchingLocked(func(m *Message) bool {
		return m.ReplySerial == serial && (m.Type == MethodReturn || m.Type == Error)
	})
	if err != nil {
		return Variant{}, &MethodCallError{RecvResponse: err}
	}
	if reply.Type == Error {
		body := reply.Body
		return Variant{}, &MethodCallError{Name: reply.ErrorName, Body: &body}
	}
	return reply.Body, nil
}

func (c *Client) recvMatchingLocked(predicate func(*Message) bool) (*Message, error) {
	for i, m := range c.held {
		if predicate(m) {
			c.held = append(c.held[:i], c.held[i+1:]...)
			return m, nil
		}
	}
	for {
		m, err := c.conn.Recv()
		if err != nil {
			return nil, err
		}
		if predicate(m) {
			return m, nil
		}
		c.held = append(c.held, m)
		c.log.WithFields(logrus.Fields{"serial": m.Serial, "queue_len": len(c.held)}).Debug("dbus: held unmatched message")
	}
}

// MethodCall sends a METHOD_CALL to the given destination/path/
// interface/member and blocks for its reply. parameters may be the
// zero Variant for a call with no arguments. The returned Variant is
// the reply's body as a Tuple.
func (c *Client) MethodCall(destination string, path ObjectPath, iface, member string, parameters Variant) (Variant, error) {
	return c.call(destination, path, iface, member, parameters)
}
