package transport_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/infinispan/go-hotrod/internal/transport"
)

func connectedPair(t *testing.T) (*transport.SocketConnection, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	dial := func(ctx context.Context, address string) (net.Conn, error) {
		return client, nil
	}
	conn := transport.NewSocketConnection("peer:1", dial)
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		conn.Disconnect()
		server.Close()
	})
	return conn, server
}

func TestSocketConnectionReadByteReturnsWrittenData(t *testing.T) {
	conn, server := connectedPair(t)

	go func() {
		server.Write([]byte{0xAB})
	}()

	b, err := conn.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if b != 0xAB {
		t.Fatalf("got %x, want 0xAB", b)
	}
}

func TestSocketConnectionReadByteRetriesPastShortPollTimeouts(t *testing.T) {
	conn, server := connectedPair(t)

	if err := conn.SetDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetDeadline: %v", err)
	}

	go func() {
		// Sleep past at least one of the reader's short internal poll
		// windows (which start at 50ms) before writing, so ReadByte only
		// succeeds by retrying rather than on its first attempt.
		time.Sleep(150 * time.Millisecond)
		server.Write([]byte{0x42})
	}()

	b, err := conn.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if b != 0x42 {
		t.Fatalf("got %x, want 0x42", b)
	}
}

func TestSocketConnectionReadByteHonorsOverallDeadline(t *testing.T) {
	conn, _ := connectedPair(t)

	if err := conn.SetDeadline(time.Now().Add(120 * time.Millisecond)); err != nil {
		t.Fatalf("SetDeadline: %v", err)
	}

	_, err := conn.ReadByte()
	if err == nil {
		t.Fatal("expected a timeout error when nothing is ever written")
	}
}

func TestSocketConnectionSendWritesFullBuffer(t *testing.T) {
	conn, server := connectedPair(t)

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 3)
		n, _ := server.Read(buf)
		done <- buf[:n]
	}()

	if err := conn.Send([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got := <-done
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("got %v, want [1 2 3]", got)
	}
}

func TestSocketConnectionSendOnUnconnectedErrors(t *testing.T) {
	conn := transport.NewSocketConnection("peer:1", nil)
	if err := conn.Send([]byte{1}); err == nil {
		t.Fatal("expected an error sending on an unconnected socket")
	}
}

func TestSocketConnectionDisconnectIsIdempotent(t *testing.T) {
	conn, _ := connectedPair(t)
	if err := conn.Disconnect(); err != nil {
		t.Fatalf("first Disconnect: %v", err)
	}
	if err := conn.Disconnect(); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
}
