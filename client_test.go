package dbus

import (
	"net"
	"testing"

	"github.com/sirupsen/logrus"
)

func newPipeClient(t *testing.T) (clientConn *Connection, serverConn *Connection) {
	t.Helper()
	c, s := net.Pipe()
	t.Cleanup(func() {
		c.Close()
		s.Close()
	})
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	clientConn = &Connection{conn: c, log: log, order: LittleEndian, bufLen: defaultReadBufferSize}
	serverConn = &Connection{conn: s, log: log, order: LittleEndian, bufLen: defaultReadBufferSize}
	return clientConn, serverConn
}

// fakeBus answers exactly one Hello call with the given assigned name,
// then, for each entry in replies, answers the next request it sees
// with that Variant as a METHOD_RETURN body.
func fakeBus(t *testing.T, conn *Connection, assignedName string, replies []Variant) {
	t.Helper()
	go func() {
		req, err := conn.Recv()
		if err != nil {
			t.Errorf("fakeBus: recv Hello: %v", err)
			return
		}
		if req.Member != "Hello" {
			t.Errorf("fakeBus: first request = %q, want Hello", req.Member)
			return
		}
		reply := &Message{
			Type:        MethodReturn,
			Serial:      1,
			ReplySerial: req.Serial,
			Body:        TupleOf(String(assignedName)),
		}
		if err := conn.Send(reply); err != nil {
			t.Errorf("fakeBus: send Hello reply: %v", err)
			return
		}

		for i, body := range replies {
			req, err := conn.Recv()
			if err != nil {
				t.Errorf("fakeBus: recv request %d: %v", i, err)
				return
			}
			reply := &Message{
				Type:        MethodReturn,
				Serial:      uint32(2 + i),
				ReplySerial: req.Serial,
				Body:        body,
			}
			if err := conn.Send(reply); err != nil {
				t.Errorf("fakeBus: send reply %d: %v", i, err)
				return
			}
		}
	}()
}

func TestClientHelloAssignsName(t *testing.T) {
	clientConn, serverConn := newPipeClient(t)
	fakeBus(t, serverConn, ":1.42", nil)

	c, err := NewClient(clientConn)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Name() != ":1.42" {
		t.Errorf("Name() = %q, want :1.42", c.Name())
	}
}

func TestClientMethodCall(t *testing.T) {
	clientConn, serverConn := newPipeClient(t)
	fakeBus(t, serverConn, ":1.1", []Variant{
		TupleOf(ArrayString([]string{":1.1", "org.freedesktop.DBus"})),
	})

	c, err := NewClient(clientConn)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	reply, err := c.MethodCall("org.freedesktop.DBus", busPath, busInterface, "ListNames", Variant{})
	if err != nil {
		t.Fatalf("MethodCall: %v", err)
	}
	names := reply.StructFields()[0].Elements()
	if len(names) != 2 || names[1].Str() != "org.freedesktop.DBus" {
		t.Errorf("ListNames reply = %+v", reply)
	}
}

func TestClientRecvMatchingHoldsUnrelatedMessages(t *testing.T) {
	clientConn, serverConn := newPipeClient(t)

	go func() {
		req, err := serverConn.Recv()
		if err != nil {
			t.Errorf("fakeBus: recv Hello: %v", err)
			return
		}
		serverConn.Send(&Message{Type: MethodReturn, Serial: 1, ReplySerial: req.Serial, Body: TupleOf(String(":1.9"))})

		req2, err := serverConn.Recv()
		if err != nil {
			t.Errorf("fakeBus: recv method call: %v", err)
			return
		}

		// A signal arrives before the reply to the method call it's
		// unrelated to.
		serverConn.Send(&Message{Type: Signal, Serial: 2, Path: "/a", Interface: "org.example.I", Member: "Tick", Body: TupleOf()})

		serverConn.Send(&Message{Type: MethodReturn, Serial: 3, ReplySerial: req2.Serial, Body: TupleOf(Int32(1))})
	}()

	c, err := NewClient(clientConn)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	reply, err := c.MethodCall("org.example.Foo", "/a", "org.example.I", "Get", Variant{})
	if err != nil {
		t.Fatalf("MethodCall: %v", err)
	}
	if reply.StructFields()[0].Int32() != 1 {
		t.Fatalf("reply = %+v", reply)
	}

	sig, err := c.RecvMatching(func(m *Message) bool { return m.Type == Signal })
	if err != nil {
		t.Fatalf("RecvMatching: %v", err)
	}
	if sig.Member != "Tick" {
		t.Errorf("held message = %+v, want the Tick signal", sig)
	}
}
