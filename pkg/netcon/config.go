package netcon

import (
	"time"

	"github.com/pion/logging"
)

// Defaults applied by Config.withDefaults.
const (
	// DefaultMaxOutstanding caps concurrently awaited requests.
	DefaultMaxOutstanding = 32

	// DefaultRequestTimeout bounds the wait for a correlated response.
	DefaultRequestTimeout = 5 * time.Second

	// DefaultSubscriberBuffer is the per-subscriber console-log queue
	// depth. When full, the oldest line is dropped and counted.
	DefaultSubscriberBuffer = 256
)

// Config configures a Client.
type Config struct {
	// MaxOutstanding caps the number of requests awaiting a response.
	// Zero means DefaultMaxOutstanding.
	MaxOutstanding int

	// BlockOnFull selects the backpressure policy when all outstanding
	// slots are taken: block until a slot frees (or the context ends)
	// instead of failing fast with ErrTooManyOutstanding.
	BlockOnFull bool

	// RequestTimeout bounds each request's wait for its response,
	// independent of any context deadline. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration

	// SubscriberBuffer is the console-log queue depth per subscriber.
	// Zero means DefaultSubscriberBuffer.
	SubscriberBuffer int

	// LoggerFactory creates the client's loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

func (c Config) withDefaults() Config {
	if c.MaxOutstanding == 0 {
		c.MaxOutstanding = DefaultMaxOutstanding
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.SubscriberBuffer == 0 {
		c.SubscriberBuffer = DefaultSubscriberBuffer
	}
	return c
}
