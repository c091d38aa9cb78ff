package eventstream

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeDialer records every target and hands out controllable streams.
type fakeDialer struct {
	mu      sync.Mutex
	targets []string
	streams []*fakeStream
	err     error
}

func (d *fakeDialer) Dial(ctx context.Context, target string) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets = append(d.targets, target)
	if d.err != nil {
		return nil, d.err
	}
	s := newFakeStream()
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDialer) setErr(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *fakeDialer) dials() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.targets...)
}

func (d *fakeDialer) stream(i int) *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.streams) {
		return nil
	}
	return d.streams[i]
}

func (d *fakeDialer) streamCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}

type fakeStream struct {
	frames chan *Frame
	errc   chan error
	closed chan struct{}
	once   sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		frames: make(chan *Frame, 16),
		errc:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (s *fakeStream) Next() (*Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.errc:
		return nil, err
	case <-s.closed:
		return nil, io.ErrClosedPipe
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *fakeStream) send(event, data string) {
	s.frames <- &Frame{Event: event, Data: data}
}

// fakeScheduler records timers and fires them only when told to.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (s *fakeScheduler) pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

func (s *fakeScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.timers))
	for i, t := range s.timers {
		out[i] = t.d
	}
	return out
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire runs t's callback as an expired timer would, regardless of Stop.
func (t *fakeTimer) fire() {
	t.s.mu.Lock()
	t.fired = true
	f := t.f
	t.s.mu.Unlock()
	f()
}

// statusRecorder collects statuses reported to an observer.
type statusRecorder struct {
	mu   sync.Mutex
	seen []Status
}

func (r *statusRecorder) observe(s Status) {
	r.mu.Lock()
	r.seen = append(r.seen, s)
	r.mu.Unlock()
}

func (r *statusRecorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.seen...)
}

func (r *statusRecorder) last() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return ""
	}
	return r.seen[len(r.seen)-1]
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// newTestClient builds a client wired to fakes and closes it on cleanup.
func newTestClient(t *testing.T, cfg Config) (*Client, *fakeDialer, *fakeScheduler, *statusRecorder) {
	t.Helper()
	if cfg.URL == "" {
		cfg.URL = "http://device.local:9090/sse"
	}
	d := &fakeDialer{}
	s := &fakeScheduler{}
	rec := &statusRecorder{}
	c := New(cfg, WithDialer(d), withScheduler(s))
	c.OnStatusChange(rec.observe)
	t.Cleanup(func() { _ = c.Close() })
	return c, d, s, rec
}

func equalStatuses(a, b []Status) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
