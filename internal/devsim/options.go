package devsim

import "time"

// DefaultKeepalive matches the firmware's comment interval.
const DefaultKeepalive = 5 * time.Second

const defaultMaxBodyBytes int64 = 1 << 20

// Options configures the simulator's HTTP layer.
type Options struct {
	// Keepalive is the interval between comment frames. Zero disables them.
	Keepalive time.Duration
	// CORSOrigins enables CORS for the listed origins when non-empty.
	CORSOrigins []string
	// PushRate limits POST /api/sse/push in requests per second; zero or
	// negative means unlimited.
	PushRate float64
	// PushBurst is the limiter's burst size. Defaults to 1 when PushRate is set.
	PushBurst int
	// MaxBodyBytes caps push request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	if o.PushRate > 0 && o.PushBurst <= 0 {
		o.PushBurst = 1
	}
	return o
}
