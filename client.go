// Package hotrod is a client for remote key-value caches that speak the Hot
// Rod wire protocol (version 25) over TCP.
package hotrod

import (
	"context"
	"fmt"

	"github.com/infinispan/go-hotrod/internal/dispatch"
	"github.com/infinispan/go-hotrod/internal/protocol"
	"github.com/infinispan/go-hotrod/internal/transport"
	"github.com/infinispan/go-hotrod/timespec"
)

// StoreOption tweaks the expiration of a single Put, PutIfAbsent or Replace
// call. The zero value of each (no options given) means "use the server's
// configured default lifespan and max-idle", per timespec's "def" spec.
type StoreOption func(*storeOptions)

type storeOptions struct {
	lifespan timespec.Spec
	maxIdle  timespec.Spec
	err      error
}

// WithLifespan sets how long the entry may live before expiring, as a
// timespec string ("10s", "5m", "inf", "def"). A malformed spec is not
// applied; it is instead returned from the Put/PutIfAbsent/Replace call it
// was passed to.
func WithLifespan(spec string) StoreOption {
	return func(o *storeOptions) {
		s, err := timespec.Parse(spec)
		if err != nil {
			if o.err == nil {
				o.err = fmt.Errorf("WithLifespan: %w", err)
			}
			return
		}
		o.lifespan = s
	}
}

// WithMaxIdle sets how long the entry may go unaccessed before expiring, as
// a timespec string ("10s", "5m", "inf", "def"). A malformed spec is not
// applied; it is instead returned from the Put/PutIfAbsent/Replace call it
// was passed to.
func WithMaxIdle(spec string) StoreOption {
	return func(o *storeOptions) {
		s, err := timespec.Parse(spec)
		if err != nil {
			if o.err == nil {
				o.err = fmt.Errorf("WithMaxIdle: %w", err)
			}
			return
		}
		o.maxIdle = s
	}
}

func resolveStoreOptions(opts []StoreOption) (storeOptions, error) {
	o := storeOptions{
		lifespan: timespec.Spec{Unit: protocol.UnitDefault},
		maxIdle:  timespec.Spec{Unit: protocol.UnitDefault},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o, o.err
}

// Client is a connection to one or more Hot Rod servers sharing a cluster
// topology, targeting a single remote cache.
type Client struct {
	config Config
	pool   *transport.ConnectionPool
	engine *protocol.Engine
	bg     *dispatch.Pool
}

// New builds a Client for the given seed addresses ("host:port" each) and
// connects it. The seed list need not be exhaustive: once connected, the
// client's topology tracking (internal/protocol.Engine) replaces it with
// whatever member list the server reports, dropping seeds not in that list.
func New(ctx context.Context, addresses []string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	pool := transport.NewConnectionPool(cfg.Dial, cfg.PoolSize)
	engine := protocol.NewEngine(pool, cfg.CacheName, cfg.CallTimeout, cfg.Log)

	c := &Client{
		config: *cfg,
		pool:   pool,
		engine: engine,
		bg:     dispatch.NewPool(cfg.DispatchConcurrency),
	}

	if err := c.Connect(ctx, addresses); err != nil {
		return nil, err
	}

	return c, nil
}

// Connect (re)opens the connection pool against addresses. Connecting an
// already-connected client is a no-op, matching the pool's idempotent
// connect semantics.
func (c *Client) Connect(ctx context.Context, addresses []string) error {
	return c.pool.Connect(ctx, addresses)
}

// Disconnect closes every pooled connection. Disconnecting an
// already-disconnected client is a no-op.
func (c *Client) Disconnect() error {
	return c.pool.Disconnect()
}

// Ping checks that the server is reachable and, on first contact, seeds the
// client's topology view.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.engine.Send(ctx, &protocol.PingRequest{})
	return err
}

// PingAsync is the background-dispatched counterpart of Ping.
func (c *Client) PingAsync(ctx context.Context) *dispatch.Future {
	return c.bg.Submit(ctx, func(ctx context.Context) (any, error) {
		return nil, c.Ping(ctx)
	})
}

// Get fetches the value stored under key into valueOut, which must be a
// pointer compatible with the client's configured ValueSerializer. It
// reports found=false (and a nil error) when key is not present, matching
// the wire protocol's own distinction between "not found" and "failure".
func (c *Client) Get(ctx context.Context, key any, valueOut any) (found bool, err error) {
	keyBytes, err := c.config.KeySerializer.Marshal(key)
	if err != nil {
		return false, err
	}

	resp, err := c.engine.Send(ctx, &protocol.GetRequest{Key: keyBytes})
	if err != nil {
		return false, err
	}
	get := resp.(*protocol.GetResponse)

	switch get.Status {
	case protocol.StatusOK:
		if err := c.config.ValueSerializer.Unmarshal(get.Value, valueOut); err != nil {
			return false, err
		}
		return true, nil
	case protocol.StatusKeyNotExists:
		return false, nil
	default:
		return false, nil
	}
}

// GetAsync is the background-dispatched counterpart of Get. The future's
// value is a bool reporting found; the caller's valueOut is populated
// synchronously with the call's result once the future resolves.
func (c *Client) GetAsync(ctx context.Context, key any, valueOut any) *dispatch.Future {
	return c.bg.Submit(ctx, func(ctx context.Context) (any, error) {
		return c.Get(ctx, key, valueOut)
	})
}

// expiring is implemented by the request types that accept a lifespan and
// max-idle override.
type expiring interface {
	SetLifespan(unit protocol.TimeUnit, amount uint64)
	SetMaxIdle(unit protocol.TimeUnit, amount uint64)
}

func applyStoreOptions(r expiring, opts []StoreOption) error {
	o, err := resolveStoreOptions(opts)
	if err != nil {
		return err
	}
	r.SetLifespan(o.lifespan.Unit, o.lifespan.Amount)
	r.SetMaxIdle(o.maxIdle.Unit, o.maxIdle.Amount)
	return nil
}

// Put stores value under key, overwriting any existing entry, and returns
// the value previously stored under key (nil if there was none). By default
// the entry inherits the cache's configured lifespan and max-idle;
// WithLifespan and WithMaxIdle override either.
func (c *Client) Put(ctx context.Context, key, value any, opts ...StoreOption) ([]byte, error) {
	keyBytes, err := c.config.KeySerializer.Marshal(key)
	if err != nil {
		return nil, err
	}
	valueBytes, err := c.config.ValueSerializer.Marshal(value)
	if err != nil {
		return nil, err
	}

	req := &protocol.PutRequest{Key: keyBytes, Value: valueBytes}
	if err := applyStoreOptions(req, opts); err != nil {
		return nil, err
	}
	req.Header().Flags |= uint64(protocol.FlagForceReturnValue)

	resp, err := c.engine.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.PutResponse).PreviousValue, nil
}

// PutAsync is the background-dispatched counterpart of Put.
func (c *Client) PutAsync(ctx context.Context, key, value any, opts ...StoreOption) *dispatch.Future {
	return c.bg.Submit(ctx, func(ctx context.Context) (any, error) {
		return c.Put(ctx, key, value, opts...)
	})
}

// putIfAbsentResult packs PutIfAbsent's two business values into the single
// value dispatch.Pool.Submit's future carries.
type putIfAbsentResult struct {
	Stored   bool
	Previous []byte
}

// PutIfAbsent stores value under key only if key is not already present. It
// reports whether the store happened and, when it didn't, the value already
// stored under key.
func (c *Client) PutIfAbsent(ctx context.Context, key, value any, opts ...StoreOption) (stored bool, previous []byte, err error) {
	keyBytes, err := c.config.KeySerializer.Marshal(key)
	if err != nil {
		return false, nil, err
	}
	valueBytes, err := c.config.ValueSerializer.Marshal(value)
	if err != nil {
		return false, nil, err
	}

	req := &protocol.PutIfAbsentRequest{Key: keyBytes, Value: valueBytes}
	if err := applyStoreOptions(req, opts); err != nil {
		return false, nil, err
	}
	req.Header().Flags |= uint64(protocol.FlagForceReturnValue)

	resp, err := c.engine.Send(ctx, req)
	if err != nil {
		return false, nil, err
	}
	putResp := resp.(*protocol.PutIfAbsentResponse)
	return putResp.Status.OK(), putResp.PreviousValue, nil
}

// PutIfAbsentAsync is the background-dispatched counterpart of
// PutIfAbsent. The future's value is a putIfAbsentResult.
func (c *Client) PutIfAbsentAsync(ctx context.Context, key, value any, opts ...StoreOption) *dispatch.Future {
	return c.bg.Submit(ctx, func(ctx context.Context) (any, error) {
		stored, previous, err := c.PutIfAbsent(ctx, key, value, opts...)
		return putIfAbsentResult{Stored: stored, Previous: previous}, err
	})
}

// replaceResult packs Replace's two business values into the single value
// dispatch.Pool.Submit's future carries.
type replaceResult struct {
	Replaced bool
	Previous []byte
}

// Replace stores value under key only if key is already present. It reports
// whether the replacement happened and, when it did, the value previously
// stored under key.
func (c *Client) Replace(ctx context.Context, key, value any, opts ...StoreOption) (replaced bool, previous []byte, err error) {
	keyBytes, err := c.config.KeySerializer.Marshal(key)
	if err != nil {
		return false, nil, err
	}
	valueBytes, err := c.config.ValueSerializer.Marshal(value)
	if err != nil {
		return false, nil, err
	}

	req := &protocol.ReplaceRequest{Key: keyBytes, Value: valueBytes}
	if err := applyStoreOptions(req, opts); err != nil {
		return false, nil, err
	}
	req.Header().Flags |= uint64(protocol.FlagForceReturnValue)

	resp, err := c.engine.Send(ctx, req)
	if err != nil {
		return false, nil, err
	}
	replaceResp := resp.(*protocol.ReplaceResponse)
	return replaceResp.Status.OK(), replaceResp.PreviousValue, nil
}

// ReplaceAsync is the background-dispatched counterpart of Replace. The
// future's value is a replaceResult.
func (c *Client) ReplaceAsync(ctx context.Context, key, value any, opts ...StoreOption) *dispatch.Future {
	return c.bg.Submit(ctx, func(ctx context.Context) (any, error) {
		replaced, previous, err := c.Replace(ctx, key, value, opts...)
		return replaceResult{Replaced: replaced, Previous: previous}, err
	})
}

// ContainsKey reports whether key is present, without fetching its value.
func (c *Client) ContainsKey(ctx context.Context, key any) (bool, error) {
	keyBytes, err := c.config.KeySerializer.Marshal(key)
	if err != nil {
		return false, err
	}

	resp, err := c.engine.Send(ctx, &protocol.ContainsKeyRequest{Key: keyBytes})
	if err != nil {
		return false, err
	}
	status := resp.(*protocol.ContainsKeyResponse).Status
	switch status {
	case protocol.StatusOK:
		return true, nil
	case protocol.StatusKeyNotExists:
		return false, nil
	default:
		return false, protocol.TranslateStatus(status, fmt.Sprintf("unexpected status 0x%x for ContainsKey", byte(status)), resp)
	}
}

// ContainsKeyAsync is the background-dispatched counterpart of ContainsKey.
func (c *Client) ContainsKeyAsync(ctx context.Context, key any) *dispatch.Future {
	return c.bg.Submit(ctx, func(ctx context.Context) (any, error) {
		return c.ContainsKey(ctx, key)
	})
}

// Remove deletes the entry stored under key. When previous is true, the
// value that was stored under key is requested from the server and
// returned; otherwise the return value is always nil, regardless of
// whether an entry existed.
func (c *Client) Remove(ctx context.Context, key any, previous bool) ([]byte, error) {
	keyBytes, err := c.config.KeySerializer.Marshal(key)
	if err != nil {
		return nil, err
	}

	req := &protocol.RemoveRequest{Key: keyBytes}
	if previous {
		req.Header().Flags |= uint64(protocol.FlagForceReturnValue)
	}

	resp, err := c.engine.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.RemoveResponse).PreviousValue, nil
}

// RemoveAsync is the background-dispatched counterpart of Remove.
func (c *Client) RemoveAsync(ctx context.Context, key any, previous bool) *dispatch.Future {
	return c.bg.Submit(ctx, func(ctx context.Context) (any, error) {
		return c.Remove(ctx, key, previous)
	})
}
