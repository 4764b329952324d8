package transport_test

import (
	"context"
	"net"
	"testing"

	"github.com/infinispan/go-hotrod/internal/transport"
)

// pipeDialer hands out one side of a net.Pipe per address, so tests can
// exercise Connect/Lease/Update without touching a real socket. The other
// end is kept open for the test's lifetime; pipes are never read from or
// written to by these tests, only connected and disconnected.
func pipeDialer(t *testing.T) (transport.DialFunc, func()) {
	t.Helper()
	var peers []net.Conn
	dial := func(ctx context.Context, address string) (net.Conn, error) {
		client, server := net.Pipe()
		peers = append(peers, server)
		return client, nil
	}
	cleanup := func() {
		for _, p := range peers {
			p.Close()
		}
	}
	return dial, cleanup
}

func TestConnectionPoolLeaseRoundRobin(t *testing.T) {
	dial, cleanup := pipeDialer(t)
	defer cleanup()

	pool := transport.NewConnectionPool(dial, 1)
	addrs := []string{"a:1", "b:2", "c:3"}
	if err := pool.Connect(context.Background(), addrs); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer pool.Disconnect()

	if pool.Len() != 3 {
		t.Fatalf("got pool len %d, want 3", pool.Len())
	}

	var order []string
	for i := 0; i < 6; i++ {
		c, err := pool.Lease()
		if err != nil {
			t.Fatalf("Lease: %v", err)
		}
		order = append(order, c.Address)
		pool.Release(c)
	}

	want := []string{"a:1", "b:2", "c:3", "a:1", "b:2", "c:3"}
	for i, addr := range want {
		if order[i] != addr {
			t.Fatalf("lease %d: got %q, want %q (order=%v)", i, order[i], addr, order)
		}
	}
}

func TestConnectionPoolLeaseOnEmptyPoolErrors(t *testing.T) {
	pool := transport.NewConnectionPool(nil, 1)
	if _, err := pool.Lease(); err == nil {
		t.Fatal("expected an error leasing from an empty pool")
	}
}

func TestConnectionPoolUpdateKeepsRetainedConnectionIdentity(t *testing.T) {
	dial, cleanup := pipeDialer(t)
	defer cleanup()

	pool := transport.NewConnectionPool(dial, 1)
	if err := pool.Connect(context.Background(), []string{"a:1", "b:2"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer pool.Disconnect()

	var retained *transport.SocketConnection
	for i := 0; i < 2; i++ {
		c, err := pool.Lease()
		if err != nil {
			t.Fatalf("Lease: %v", err)
		}
		if c.Address == "b:2" {
			retained = c
		}
		pool.Release(c)
	}

	if err := pool.Update(context.Background(), []string{"b:2", "c:3"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if pool.Len() != 2 {
		t.Fatalf("got pool len %d, want 2", pool.Len())
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		c, err := pool.Lease()
		if err != nil {
			t.Fatalf("Lease: %v", err)
		}
		seen[c.Address] = true
		if c.Address == "b:2" && c != retained {
			t.Fatal("b:2 was replaced by a new connection, want the existing one kept")
		}
		pool.Release(c)
	}
	if !seen["b:2"] || !seen["c:3"] {
		t.Fatalf("got members %v, want exactly b:2 and c:3", seen)
	}
}

func TestConnectionPoolConnectOpensPoolSizeConnectionsPerAddress(t *testing.T) {
	dial, cleanup := pipeDialer(t)
	defer cleanup()

	pool := transport.NewConnectionPool(dial, 2)
	if err := pool.Connect(context.Background(), []string{"a:1", "b:2"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer pool.Disconnect()

	if pool.Len() != 4 {
		t.Fatalf("got pool len %d, want 4 (2 addresses * poolSize 2)", pool.Len())
	}

	counts := map[string]int{}
	for i := 0; i < 4; i++ {
		c, err := pool.Lease()
		if err != nil {
			t.Fatalf("Lease: %v", err)
		}
		counts[c.Address]++
		pool.Release(c)
	}
	if counts["a:1"] != 2 || counts["b:2"] != 2 {
		t.Fatalf("got lease counts %v, want 2 each for a:1 and b:2", counts)
	}
}

func TestConnectionPoolUpdateMaintainsPoolSizePerAddress(t *testing.T) {
	dial, cleanup := pipeDialer(t)
	defer cleanup()

	pool := transport.NewConnectionPool(dial, 2)
	if err := pool.Connect(context.Background(), []string{"a:1", "b:2"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer pool.Disconnect()

	if err := pool.Update(context.Background(), []string{"b:2", "c:3"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if pool.Len() != 4 {
		t.Fatalf("got pool len %d, want 4 (2 addresses * poolSize 2)", pool.Len())
	}

	counts := map[string]int{}
	for i := 0; i < 4; i++ {
		c, err := pool.Lease()
		if err != nil {
			t.Fatalf("Lease: %v", err)
		}
		counts[c.Address]++
		pool.Release(c)
	}
	if counts["b:2"] != 2 || counts["c:3"] != 2 {
		t.Fatalf("got lease counts %v, want 2 each for b:2 and c:3", counts)
	}
}
