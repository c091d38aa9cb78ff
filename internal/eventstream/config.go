package eventstream

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultPort           = 9090
	DefaultPath           = "/sse"
	defaultBackoffFloor   = time.Second
	defaultBackoffCeiling = 30 * time.Second
	defaultInboundBuffer  = 64
)

// Config encapsulates the tunables of a Client.
type Config struct {
	// URL of the stream endpoint without a query, e.g. http://192.168.4.1:9090/sse.
	URL string
	// BackoffFloor is the first reconnect delay and the value restored after
	// every successful open.
	BackoffFloor time.Duration
	// BackoffCeiling caps the reconnect delay.
	BackoffCeiling time.Duration
	// InboundBuffer is the capacity of the channel between transports and the
	// dispatch loop.
	InboundBuffer int
}

func (c Config) withDefaults() Config {
	if c.BackoffFloor <= 0 {
		c.BackoffFloor = defaultBackoffFloor
	}
	if c.BackoffCeiling <= 0 {
		c.BackoffCeiling = defaultBackoffCeiling
	}
	if c.BackoffCeiling < c.BackoffFloor {
		c.BackoffCeiling = c.BackoffFloor
	}
	if c.InboundBuffer <= 0 {
		c.InboundBuffer = defaultInboundBuffer
	}
	return c
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger installs a structured logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithDialer replaces the HTTP transport, mostly for tests.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithHTTPClient makes the default dialer use hc instead of a client without
// timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.dialer = NewHTTPDialer(hc) }
}

// withScheduler swaps the retry timer implementation.
func withScheduler(s scheduler) Option {
	return func(c *Client) { c.sched = s }
}
