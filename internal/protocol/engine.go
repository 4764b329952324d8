package protocol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/infinispan/go-hotrod/internal/errs"
	"github.com/infinispan/go-hotrod/internal/transport"
	"github.com/infinispan/go-hotrod/logging"
	pkgerrors "github.com/pkg/errors"
)

// hostAddress renders a topology-reported Host as the "host:port" string
// transport.ConnectionPool and net.Dialer expect.
func hostAddress(h Host) string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}

// Engine assigns correlation ids, drives the encode/send/recv/decode cycle
// for every call, reconciles the connection pool on topology changes, and
// translates error responses into typed errors.
//
// The engine lock guards only nextID and the current topology id; it is
// never held across I/O, so one call's network wait cannot stall another
// call's correlation id assignment or a concurrent topology reconciliation.
type Engine struct {
	mu         sync.Mutex
	nextID     uint64
	topologyID uint64

	pool               *transport.ConnectionPool
	cacheName          string
	clientIntelligence ClientIntelligence
	timeout            time.Duration
	log                logging.Func
}

// NewEngine returns an Engine driving calls against pool.
func NewEngine(pool *transport.ConnectionPool, cacheName string, timeout time.Duration, log logging.Func) *Engine {
	if log == nil {
		log = logging.Noop
	}
	return &Engine{
		pool:               pool,
		cacheName:          cacheName,
		clientIntelligence: IntelligenceTopology,
		timeout:            timeout,
		log:                log,
	}
}

func (e *Engine) nextMessageID() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	// Wrap at 2^63 rather than letting the uvarlong encoding exceed its
	// 9-byte, 63-bit domain.
	e.nextID = (e.nextID + 1) % (1 << 63)
	return id
}

func (e *Engine) currentTopologyID() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.topologyID
}

// Send runs the full call lifecycle for req: assigns a correlation id,
// populates the shared header fields, encodes, leases a connection, writes
// the request and decodes one response from it, translates error responses,
// and folds in any piggy-backed topology change before returning the
// business response to the caller.
func (e *Engine) Send(ctx context.Context, req Request) (Response, error) {
	header := req.Header()
	header.MessageID = e.nextMessageID()
	header.CacheName = e.cacheName
	header.ClientIntelligence = e.clientIntelligence
	header.TopologyID = e.currentTopologyID()

	data, err := Encode(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "encode %s request (id=%d)", requestOpcodeName(header.Opcode), header.MessageID)
	}

	conn, err := e.pool.Lease()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "lease connection for %s request (id=%d)", requestOpcodeName(header.Opcode), header.MessageID)
	}
	defer e.pool.Release(conn)

	deadline := time.Time{}
	if e.timeout > 0 {
		deadline = time.Now().Add(e.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if !deadline.IsZero() {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	if err := conn.Send(data); err != nil {
		return nil, pkgerrors.Wrapf(err, "send %s request (id=%d)", requestOpcodeName(header.Opcode), header.MessageID)
	}

	resp, err := Decode(NewDecoder(conn))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "receive response to %s request (id=%d)", requestOpcodeName(header.Opcode), header.MessageID)
	}

	if resp.Header().MessageID != header.MessageID {
		return nil, errs.NewProtocolError("response id %d does not match request id %d", resp.Header().MessageID, header.MessageID)
	}

	if errResp, ok := resp.(*ErrorResponse); ok {
		return resp, translateError(errResp)
	}

	if resp.Header().TopologyChanged {
		e.handleTopologyChange(ctx, resp.Topology())
	}

	return resp, nil
}

// translateError maps a decoded ErrorResponse's status to a typed error, per
// the status-to-error-kind table: SERVER_ERROR and COMMAND_TIMED_OUT become
// ServerErr; UNKNOWN_COMMAND, UNKNOWN_VERSION, PARSE_ERROR and
// INVALID_MAGIC_OR_MESSAGE_ID become ClientErr; any other non-OK status
// becomes a generic ResponseErr.
func translateError(resp *ErrorResponse) error {
	return TranslateStatus(resp.Status, resp.Message, resp)
}

// TranslateStatus applies the same status-to-error-kind table as
// translateError to a status that didn't arrive wrapped in an
// *ErrorResponse (e.g. a business response carrying a status its own
// decoder never special-cased as OK). response, if non-nil, is attached to
// the resulting error for callers that want to inspect it.
func TranslateStatus(status Status, message string, response any) error {
	switch {
	case status.IsServerError():
		return errs.NewServerError(message, response)
	case status.IsClientError():
		return errs.NewClientError(message, response)
	default:
		return errs.NewResponseError(message, response)
	}
}

// handleTopologyChange reconciles the connection pool against a freshly
// reported member list. It runs after the response has been decoded but
// before Send returns, so the caller waits while new members are dialed;
// the pool drains stale connections in the background.
func (e *Engine) handleTopologyChange(ctx context.Context, tc *TopologyChangeHeader) {
	e.mu.Lock()
	if tc.TopologyID == e.topologyID {
		e.mu.Unlock()
		return
	}
	e.topologyID = tc.TopologyID
	e.mu.Unlock()

	addresses := make([]string, len(tc.Servers))
	for i, h := range tc.Servers {
		addresses[i] = hostAddress(h)
	}

	if err := e.pool.Update(ctx, addresses); err != nil {
		e.log(logging.Warn, "topology update to id %d: %v", tc.TopologyID, err)
	}
}
