package dbus

import (
	"net"
	"testing"

	"github.com/sirupsen/logrus"
)

func newPipeConnection(t *testing.T) (*Connection, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	c := &Connection{conn: client, log: log, order: LittleEndian, bufLen: defaultReadBufferSize}
	return c, server
}

func TestConnectionSendRecvRoundTrip(t *testing.T) {
	c, server := newPipeConnection(t)

	m := &Message{
		Type:        MethodCall,
		Serial:      1,
		Path:        "/a",
		Member:      "Ping",
		Destination: "org.example.Foo",
		Body:        TupleOf(Int32(9)),
	}

	done := make(chan error, 1)
	go func() { done <- c.Send(m) }()

	buf := make([]byte, headerLen)
	if _, err := readFull(server, buf); err != nil {
		t.Fatalf("server read header: %v", err)
	}
	order, msgType, _, bodyLen, serial, err := DeserializeMessageHeader(buf)
	if err != nil {
		t.Fatalf("DeserializeMessageHeader: %v", err)
	}
	if order != LittleEndian || msgType != MethodCall || serial != 1 || bodyLen != 4 {
		t.Fatalf("unexpected header: order=%v type=%v serial=%d bodyLen=%d", order, msgType, serial, bodyLen)
	}
	// net.Pipe's Write returns only once every byte has been read, so
	// drain the rest of the message before waiting for Send.
	full, err := SerializeMessage(LittleEndian, m)
	if err != nil {
		t.Fatalf("SerializeMessage: %v", err)
	}
	if _, err := readFull(server, make([]byte, len(full)-headerLen)); err != nil {
		t.Fatalf("server read rest: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestConnectionRecvFullMessage(t *testing.T) {
	c, server := newPipeConnection(t)

	m := &Message{
		Type:        MethodReturn,
		Serial:      2,
		ReplySerial: 1,
		Body:        TupleOf(String("pong")),
	}
	buf, err := SerializeMessage(LittleEndian, m)
	if err != nil {
		t.Fatalf("SerializeMessage: %v", err)
	}

	go server.Write(buf)

	got, err := c.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got.ReplySerial != 1 || got.Body.StructFields()[0].Str() != "pong" {
		t.Errorf("got %+v", got)
	}
}
