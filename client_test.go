package hotrod_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	hotrod "github.com/infinispan/go-hotrod"
)

// --- minimal wire-level fake server, grounded in the same byte layouts
// exercised by internal/protocol's own tests; it exists only to drive the
// client package's public API end to end over a real loopback socket. ---

func readUvarint(r *bufio.Reader) (uint64, error) {
	var x uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		x |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return x, nil
		}
		shift += 7
	}
}

func readBytesField(r *bufio.Reader) ([]byte, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := readFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
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

type fakeRequest struct {
	id       byte
	opcode   byte
	key      []byte
	value    []byte
	tunits   byte
	lifespan uint64
	maxIdle  uint64
}

const (
	opPut         = 0x01
	opGet         = 0x03
	opPutIfAbsent = 0x05
	opReplace     = 0x07
	opRemove      = 0x0B
	opContainsKey = 0x0F
	opPing        = 0x17
)

func readFakeRequest(r *bufio.Reader) (*fakeRequest, error) {
	if _, err := r.ReadByte(); err != nil { // magic
		return nil, err
	}
	id, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadByte(); err != nil { // version
		return nil, err
	}
	opcode, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if _, err := readBytesField(r); err != nil { // cache name
		return nil, err
	}
	if _, err := readUvarint(r); err != nil { // flags
		return nil, err
	}
	if _, err := r.ReadByte(); err != nil { // client intelligence
		return nil, err
	}
	if _, err := readUvarint(r); err != nil { // topology id
		return nil, err
	}

	req := &fakeRequest{id: byte(id), opcode: opcode}

	switch opcode {
	case opPing:
		return req, nil
	case opGet, opRemove, opContainsKey:
		key, err := readBytesField(r)
		if err != nil {
			return nil, err
		}
		req.key = key
		return req, nil
	case opPut, opPutIfAbsent, opReplace:
		key, err := readBytesField(r)
		if err != nil {
			return nil, err
		}
		tunits, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		req.tunits = tunits
		hi, lo := tunits>>4, tunits&0x0f
		if hi != 7 && hi != 8 {
			lifespan, err := readUvarint(r)
			if err != nil {
				return nil, err
			}
			req.lifespan = lifespan
		}
		if lo != 7 && lo != 8 {
			maxIdle, err := readUvarint(r)
			if err != nil {
				return nil, err
			}
			req.maxIdle = maxIdle
		}
		value, err := readBytesField(r)
		if err != nil {
			return nil, err
		}
		req.key, req.value = key, value
		return req, nil
	default:
		return req, nil
	}
}

func lenPrefixed(b []byte) []byte {
	out := []byte{byte(len(b))}
	return append(out, b...)
}

func buildResponse(id, opcode, status byte, payload []byte) []byte {
	out := []byte{0xA1, id, opcode, status, 0x00}
	return append(out, payload...)
}

// fakeServer accepts exactly one connection (asynchronously, since the
// client only dials once the test calls newTestClient) and lets the test
// script one response per request it receives on it.
type fakeServer struct {
	listener net.Listener
	accepted chan net.Conn
	conn     net.Conn
	r        *bufio.Reader
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	s := &fakeServer{listener: ln, accepted: make(chan net.Conn, 1)}
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			s.accepted <- conn
		}
	}()
	return s
}

func (s *fakeServer) addr() string {
	return s.listener.Addr().String()
}

func (s *fakeServer) close() {
	if s.conn != nil {
		s.conn.Close()
	}
	s.listener.Close()
}

// awaitConn blocks until the listener has accepted a connection. Called
// from serve's background goroutine, so it reports a timeout via t.Error
// (safe from any goroutine) rather than t.Fatal (which is not).
func (s *fakeServer) awaitConn(t *testing.T) bool {
	t.Helper()
	if s.conn != nil {
		return true
	}
	select {
	case conn := <-s.accepted:
		s.conn = conn
		s.r = bufio.NewReader(conn)
		return true
	case <-time.After(5 * time.Second):
		t.Error("timed out waiting for the client to connect")
		return false
	}
}

// serve handles n requests in the background, calling respond(req) to
// produce each reply.
func (s *fakeServer) serve(t *testing.T, n int, respond func(*fakeRequest) []byte) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if !s.awaitConn(t) {
			return
		}
		for i := 0; i < n; i++ {
			req, err := readFakeRequest(s.r)
			if err != nil {
				return
			}
			if _, err := s.conn.Write(respond(req)); err != nil {
				return
			}
		}
	}()
	return done
}

func newTestClient(t *testing.T, addr string) *hotrod.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := hotrod.New(ctx, []string{addr}, hotrod.WithCallTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { client.Disconnect() })
	return client
}

func TestClientPing(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		return buildResponse(req.id, 0x18, 0x00, nil)
	})

	client := newTestClient(t, srv.addr())
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	<-done
}

func TestClientGetFound(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	wantValue, _ := json.Marshal("ahoj")
	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		return buildResponse(req.id, 0x04, 0x00, lenPrefixed(wantValue))
	})

	client := newTestClient(t, srv.addr())
	var got string
	found, err := client.Get(context.Background(), "k", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if got != "ahoj" {
		t.Fatalf("got %q, want %q", got, "ahoj")
	}
	<-done
}

func TestClientGetNotFound(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		return buildResponse(req.id, 0x04, 0x02, nil) // KeyNotExists
	})

	client := newTestClient(t, srv.addr())
	var got string
	found, err := client.Get(context.Background(), "missing", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Fatal("expected found=false")
	}
	<-done
}

func TestClientPutSendsJSONEncodedKeyAndValue(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	var captured *fakeRequest
	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		captured = req
		return buildResponse(req.id, 0x02, 0x00, nil)
	})

	client := newTestClient(t, srv.addr())
	if _, err := client.Put(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	<-done

	var key, value string
	if err := json.Unmarshal(captured.key, &key); err != nil {
		t.Fatalf("unmarshal key: %v", err)
	}
	if err := json.Unmarshal(captured.value, &value); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if key != "k" || value != "v" {
		t.Fatalf("got key=%q value=%q, want key=%q value=%q", key, value, "k", "v")
	}
}

func TestClientPutWithLifespanEncodesExplicitDuration(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	var captured *fakeRequest
	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		captured = req
		return buildResponse(req.id, 0x02, 0x00, nil)
	})

	client := newTestClient(t, srv.addr())
	if _, err := client.Put(context.Background(), "k", "v", hotrod.WithLifespan("2s")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	<-done

	const unitSeconds, unitDefault = 0, 7
	wantTunits := byte(unitSeconds<<4 | unitDefault)
	if captured.tunits != wantTunits {
		t.Fatalf("got tunits 0x%x, want 0x%x", captured.tunits, wantTunits)
	}
	if captured.lifespan != 2 {
		t.Fatalf("got lifespan %d, want 2", captured.lifespan)
	}
	if captured.maxIdle != 0 {
		t.Fatalf("got maxIdle %d, want 0 (field omitted when unit is default)", captured.maxIdle)
	}
}

func TestClientPutWithInvalidLifespanReturnsError(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	client := newTestClient(t, srv.addr())
	if _, err := client.Put(context.Background(), "k", "v", hotrod.WithLifespan("10")); err == nil {
		t.Fatal("expected an error for a malformed lifespan spec")
	}
}

func TestClientPutIfAbsentStored(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		return buildResponse(req.id, 0x06, 0x00, nil) // OK: stored
	})

	client := newTestClient(t, srv.addr())
	stored, _, err := client.PutIfAbsent(context.Background(), "k", "v")
	if err != nil {
		t.Fatalf("PutIfAbsent: %v", err)
	}
	if !stored {
		t.Fatal("expected stored=true")
	}
	<-done
}

func TestClientPutIfAbsentNotStored(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		// StatusNotExecutedWithPrevious carries a (possibly empty)
		// previous-value field that PutIfAbsentResponse always decodes
		// for this exact status.
		return buildResponse(req.id, 0x06, 0x04, lenPrefixed(nil))
	})

	client := newTestClient(t, srv.addr())
	stored, _, err := client.PutIfAbsent(context.Background(), "k", "v")
	if err != nil {
		t.Fatalf("PutIfAbsent: %v", err)
	}
	if stored {
		t.Fatal("expected stored=false")
	}
	<-done
}

func TestClientReplaceExisting(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	var captured *fakeRequest
	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		captured = req
		return buildResponse(req.id, 0x08, 0x00, nil) // OK: replaced
	})

	client := newTestClient(t, srv.addr())
	replaced, _, err := client.Replace(context.Background(), "k", "v")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !replaced {
		t.Fatal("expected replaced=true")
	}
	if captured.opcode != opReplace {
		t.Fatalf("got opcode %#x, want %#x", captured.opcode, opReplace)
	}
	<-done
}

func TestClientReplaceMissingKey(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		return buildResponse(req.id, 0x08, 0x02, nil) // StatusKeyNotExists
	})

	client := newTestClient(t, srv.addr())
	replaced, _, err := client.Replace(context.Background(), "k", "v")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if replaced {
		t.Fatal("expected replaced=false")
	}
	<-done
}

func TestClientRemove(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		return buildResponse(req.id, 0x0C, 0x00, nil)
	})

	client := newTestClient(t, srv.addr())
	previous, err := client.Remove(context.Background(), "k", false)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if previous != nil {
		t.Fatalf("expected previous=nil when previous wasn't requested, got %q", previous)
	}
	<-done
}

func TestClientRemoveWithPreviousReturnsPriorValue(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	wantValue, _ := json.Marshal("old")
	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		return buildResponse(req.id, 0x0C, 0x03, lenPrefixed(wantValue)) // StatusOKWithPrevious
	})

	client := newTestClient(t, srv.addr())
	previous, err := client.Remove(context.Background(), "k", true)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	var got string
	if err := json.Unmarshal(previous, &got); err != nil {
		t.Fatalf("unmarshal previous: %v", err)
	}
	if got != "old" {
		t.Fatalf("got previous %q, want %q", got, "old")
	}
	<-done
}

func TestClientContainsKey(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	done := srv.serve(t, 1, func(req *fakeRequest) []byte {
		return buildResponse(req.id, 0x10, 0x00, nil)
	})

	client := newTestClient(t, srv.addr())
	ok, err := client.ContainsKey(context.Background(), "k")
	if err != nil {
		t.Fatalf("ContainsKey: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	<-done
}

func TestClientMultipleSequentialCallsReuseConnection(t *testing.T) {
	srv := startFakeServer(t)
	defer srv.close()

	done := srv.serve(t, 3, func(req *fakeRequest) []byte {
		switch req.opcode {
		case opPing:
			return buildResponse(req.id, 0x18, 0x00, nil)
		case opPut:
			return buildResponse(req.id, 0x02, 0x00, nil)
		case opContainsKey:
			return buildResponse(req.id, 0x10, 0x00, nil)
		default:
			t.Errorf("unexpected opcode 0x%x", req.opcode)
			return nil
		}
	})

	client := newTestClient(t, srv.addr())
	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := client.Put(ctx, "k", "v"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := client.ContainsKey(ctx, "k"); err != nil {
		t.Fatalf("ContainsKey: %v", err)
	}
	<-done
}
