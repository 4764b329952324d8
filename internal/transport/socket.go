// Package transport implements the TCP connection and connection pool that
// carry Hot Rod messages between the client and a cache server.
package transport

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/infinispan/go-hotrod/internal/errs"
)

// DialFunc establishes a raw network connection to a Hot Rod server.
type DialFunc func(ctx context.Context, address string) (net.Conn, error)

// DefaultDialFunc dials TCP using the standard library's default dialer.
func DefaultDialFunc(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", address)
}

const (
	recvBackoffStart = 50 * time.Millisecond
	recvBackoffCap   = 400 * time.Millisecond
)

// SocketConnection owns one TCP connection to one Hot Rod server. Every
// exchange (a full request write followed by its response read) must be
// bracketed by Lock/Unlock: the connection has no internal notion of
// request boundaries, so interleaved writers would corrupt the stream.
type SocketConnection struct {
	mu       sync.Mutex
	Address  string
	conn     net.Conn
	br       *bufio.Reader
	dial     DialFunc
	deadline time.Time // overall deadline for the exchange in progress, zero if none
}

// NewSocketConnection returns an unconnected SocketConnection for address,
// using dial (or DefaultDialFunc when dial is nil) to establish the socket.
func NewSocketConnection(address string, dial DialFunc) *SocketConnection {
	if dial == nil {
		dial = DefaultDialFunc
	}
	return &SocketConnection{Address: address, dial: dial}
}

// Lock serializes an entire request/response exchange against concurrent
// callers of the same connection. Must be paired with Unlock.
func (c *SocketConnection) Lock() { c.mu.Lock() }

// Unlock releases a lock acquired with Lock.
func (c *SocketConnection) Unlock() { c.mu.Unlock() }

// Connected reports whether the socket is currently open. Callers should
// hold the lock when the answer must not race a concurrent Connect/
// Disconnect.
func (c *SocketConnection) Connected() bool {
	return c.conn != nil
}

const (
	dialBackoffFactor = 100 * time.Millisecond
	dialBackoffCap    = time.Second
	dialRetryLimit    = 5
)

// Connect dials the server, retrying a handful of times with exponential
// backoff on failure (refused connections during a rolling server restart
// are the common case). Connecting an already-connected socket is a no-op,
// matching the client library's idempotent connect semantics.
func (c *SocketConnection) Connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	backoffFn := backoff.BinaryExponential(dialBackoffFactor)
	var conn net.Conn
	err := retry.Retry(func(attempt uint) error {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		var err error
		conn, err = c.dial(ctx, c.Address)
		return err
	},
		strategy.Limit(dialRetryLimit),
		func(attempt uint) bool {
			if attempt == 0 {
				return true
			}
			delay := backoffFn(attempt)
			if delay > dialBackoffCap || delay <= 0 {
				delay = dialBackoffCap
			}
			time.Sleep(delay)
			return true
		},
	)
	if err != nil {
		return errs.NewConnectionError("connect %s: %v", c.Address, err)
	}
	if ctx.Err() != nil {
		return errs.NewConnectionError("connect %s: %v", c.Address, ctx.Err())
	}
	if conn == nil {
		return errs.NewConnectionError("connect %s: dial did not succeed", c.Address)
	}

	c.conn = conn
	c.br = bufio.NewReader(&backoffReader{sock: c})
	return nil
}

// Disconnect closes the socket. Disconnecting an already-disconnected socket
// is a no-op.
func (c *SocketConnection) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.br = nil
	if err != nil {
		return errs.NewConnectionError("disconnect %s: %v", c.Address, err)
	}
	return nil
}

// Send writes data in full. A short write or broken pipe surfaces as a
// ConnectionErr.
func (c *SocketConnection) Send(data []byte) error {
	if c.conn == nil {
		return errs.NewConnectionError("not connected")
	}
	n, err := c.conn.Write(data)
	if err != nil {
		return errs.NewConnectionError("send to %s: %v", c.Address, err)
	}
	if n != len(data) {
		return errs.NewConnectionError("short write to %s: wrote %d of %d bytes", c.Address, n, len(data))
	}
	return nil
}

// SetDeadline bounds every Send/ReadByte until cleared by passing the zero
// Time. Unlike a raw net.Conn deadline, ReadByte is allowed to poll in short
// bursts within this window (see backoffReader) rather than failing the
// instant a single read attempt is idle.
func (c *SocketConnection) SetDeadline(deadline time.Time) error {
	if c.conn == nil {
		return errs.NewConnectionError("not connected")
	}
	c.deadline = deadline
	return c.conn.SetWriteDeadline(deadline)
}

// ReadByte implements io.ByteReader by pulling from the buffered, backoff-
// wrapped socket reader. This is what lets *protocol.Decoder consume the
// response stream one primitive at a time while actual reads stay batched
// and resilient to a server that hasn't written its response yet.
func (c *SocketConnection) ReadByte() (byte, error) {
	if c.br == nil {
		return 0, errs.NewConnectionError("not connected")
	}
	b, err := c.br.ReadByte()
	if err != nil {
		return 0, translateReadErr(c.Address, err)
	}
	return b, nil
}

func translateReadErr(address string, err error) error {
	if err == nil {
		return nil
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return errs.NewConnectionError("read from %s: timed out", address)
	}
	if err.Error() == "EOF" {
		return errs.NewConnectionError("read from %s: remote closed the connection", address)
	}
	return errs.NewConnectionError("read from %s: %v", address, err)
}

// backoffReader wraps a SocketConnection's net.Conn so that a read attempt
// which times out simply because the server hasn't written yet is retried
// with exponential backoff (50ms doubling, capped at 400ms) rather than
// surfacing as an error. Each attempt uses a short read deadline of its own;
// once those short deadlines would run past the connection's overall
// deadline, the final attempt is clipped to that overall deadline and its
// timeout, if any, is allowed to propagate as the real failure.
type backoffReader struct {
	sock *SocketConnection
}

func (r *backoffReader) Read(p []byte) (int, error) {
	conn := r.sock.conn
	overall := r.sock.deadline
	delay := recvBackoffStart
	next := backoff.BinaryExponential(recvBackoffStart)
	attempt := uint(0)

	for {
		attemptDeadline := time.Now().Add(delay)
		clipped := false
		if !overall.IsZero() && attemptDeadline.After(overall) {
			attemptDeadline = overall
			clipped = true
		}
		conn.SetReadDeadline(attemptDeadline)

		n, err := conn.Read(p)
		if n > 0 || err == nil {
			return n, err
		}

		ne, ok := err.(net.Error)
		if !ok || !ne.Timeout() {
			return n, err
		}
		if clipped {
			// The overall deadline, not just this attempt's poll
			// interval, has been reached: this is a real timeout.
			return n, err
		}

		attempt++
		delay = next(attempt)
		if delay > recvBackoffCap || delay <= 0 {
			delay = recvBackoffCap
		}
	}
}
