package e2e

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"rgbctl/internal/devsim"
	"rgbctl/internal/eventstream"
)

// restartableDevice serves a simulator whose hub can be replaced, which
// looks to clients like a device reboot.
type restartableDevice struct {
	srv *httptest.Server

	mu  sync.Mutex
	hub *devsim.Hub
	mux http.Handler
}

func newDevice(t *testing.T) *restartableDevice {
	t.Helper()
	d := &restartableDevice{}
	d.swap()
	d.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		h := d.mux
		d.mu.Unlock()
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(func() {
		d.Hub().Close()
		d.srv.Close()
	})
	return d
}

func (d *restartableDevice) swap() {
	hub := devsim.NewHub()
	d.mu.Lock()
	old := d.hub
	d.hub, d.mux = hub, devsim.NewMux(hub, devsim.Options{})
	d.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Restart drops every stream and starts over with an empty hub.
func (d *restartableDevice) Restart() { d.swap() }

func (d *restartableDevice) Hub() *devsim.Hub {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hub
}

func (d *restartableDevice) StreamURL() string { return d.srv.URL + eventstream.DefaultPath }

func newClient(t *testing.T, d *restartableDevice) *eventstream.Client {
	t.Helper()
	c := eventstream.New(eventstream.Config{
		URL:            d.StreamURL(),
		BackoffFloor:   10 * time.Millisecond,
		BackoffCeiling: 40 * time.Millisecond,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// collector gathers payload messages from one or more handlers.
type collector struct {
	mu   sync.Mutex
	msgs []string
}

func (c *collector) handler(p eventstream.Payload) {
	c.mu.Lock()
	c.msgs = append(c.msgs, p.Msg())
	c.mu.Unlock()
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

func (c *collector) has(msg string) bool {
	for _, m := range c.snapshot() {
		if m == msg {
			return true
		}
	}
	return false
}

type statusLog struct {
	mu  sync.Mutex
	got []eventstream.Status
}

func (s *statusLog) observe(st eventstream.Status) {
	s.mu.Lock()
	s.got = append(s.got, st)
	s.mu.Unlock()
}

func (s *statusLog) snapshot() []eventstream.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]eventstream.Status(nil), s.got...)
}
