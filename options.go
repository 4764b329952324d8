package hotrod

import (
	"time"

	"github.com/infinispan/go-hotrod/internal/transport"
	"github.com/infinispan/go-hotrod/logging"
	"github.com/infinispan/go-hotrod/serial"
)

// Option tweaks a Client's Config at construction time.
type Option func(*Config)

// Config holds every tunable of the client: the cache to target, connection
// pool sizing, timeouts, serializers and logging.
type Config struct {
	// CacheName selects which remote cache every call addresses.
	CacheName string

	// PoolSize is the number of connections maintained per known server.
	// PoolSize connections are opened per seed address initially; servers
	// discovered via topology updates are added with the same sizing.
	PoolSize int

	// CallTimeout bounds a single request/response exchange.
	CallTimeout time.Duration

	// DispatchConcurrency bounds how many *Async calls may be in flight
	// on background goroutines at once.
	DispatchConcurrency int64

	// Dial overrides how a connection's raw TCP socket is established.
	Dial transport.DialFunc

	// Log receives diagnostic messages (currently: topology updates that
	// failed to reconcile the pool). Defaults to logging.Noop.
	Log logging.Func

	// KeySerializer and ValueSerializer control how Go values passed to
	// Get/Put/... are converted to and from wire bytes. Both default to
	// serial.JSONSerializer{}.
	KeySerializer   serial.Serializer
	ValueSerializer serial.Serializer
}

func defaultConfig() *Config {
	return &Config{
		CacheName:           "",
		PoolSize:            1,
		CallTimeout:         10 * time.Second,
		DispatchConcurrency: 20,
		Dial:                transport.DefaultDialFunc,
		Log:                 logging.Noop,
		KeySerializer:       serial.JSONSerializer{},
		ValueSerializer:     serial.JSONSerializer{},
	}
}

// WithCacheName targets a named cache instead of the default unnamed cache.
func WithCacheName(name string) Option {
	return func(c *Config) { c.CacheName = name }
}

// WithPoolSize sets the number of connections maintained per server.
func WithPoolSize(n int) Option {
	return func(c *Config) { c.PoolSize = n }
}

// WithCallTimeout bounds every blocking request/response exchange.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Config) { c.CallTimeout = d }
}

// WithDispatchConcurrency bounds concurrent background (*Async) calls.
func WithDispatchConcurrency(n int64) Option {
	return func(c *Config) { c.DispatchConcurrency = n }
}

// WithDialFunc overrides how the client dials new connections.
func WithDialFunc(dial transport.DialFunc) Option {
	return func(c *Config) { c.Dial = dial }
}

// WithLogFunc overrides the client's diagnostic logging hook.
func WithLogFunc(log logging.Func) Option {
	return func(c *Config) { c.Log = log }
}

// WithKeySerializer overrides how keys are converted to wire bytes.
func WithKeySerializer(s serial.Serializer) Option {
	return func(c *Config) { c.KeySerializer = s }
}

// WithValueSerializer overrides how values are converted to wire bytes.
func WithValueSerializer(s serial.Serializer) Option {
	return func(c *Config) { c.ValueSerializer = s }
}
