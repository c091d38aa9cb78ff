package e2e

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"rgbctl/internal/eventstream"
	"rgbctl/internal/linesensor"
	"rgbctl/pkg/types"
)

func TestE2E_MaskedDelivery(t *testing.T) {
	d := newDevice(t)
	c := newClient(t, d)
	var got collector
	c.Subscribe(types.TargetConsole, got.handler)
	c.Connect()
	waitFor(t, "open", c.IsConnected)
	waitFor(t, "server client", func() bool { return d.Hub().Clients() == 1 })

	if !strings.HasSuffix(c.Target(), "?targets=console") {
		t.Fatalf("target = %q", c.Target())
	}
	if _, err := d.Hub().Publish("wifi", types.TargetSSE, []byte("not for us")); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Hub().Publish("console", types.TargetConsole, []byte("boot ok")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "console event", func() bool { return got.has("boot ok") })
	if got.has("not for us") {
		t.Fatal("sse event leaked through the console mask")
	}
}

func TestE2E_SubscriptionChangeReconnects(t *testing.T) {
	d := newDevice(t)
	c := newClient(t, d)
	var statuses statusLog
	c.OnStatusChange(statuses.observe)
	var con, line collector
	c.Subscribe(types.TargetConsole, con.handler)
	c.Connect()
	waitFor(t, "open", c.IsConnected)

	var frames []linesensor.Frame
	framesCh := make(chan linesensor.Frame, 1)
	c.Subscribe(types.TargetLineSensor, func(p eventstream.Payload) {
		line.handler(p)
		if f, err := linesensor.Decode(p); err == nil {
			framesCh <- f
		}
	})
	if !strings.HasSuffix(c.Target(), "?targets=console,line_sensor") {
		t.Fatalf("target after subscribe = %q", c.Target())
	}
	waitFor(t, "reopen", c.IsConnected)
	waitFor(t, "old stream dropped", func() bool { return d.Hub().Clients() == 1 })

	if _, err := d.Hub().Publish("i2c_line", types.TargetLineSensor, []byte{0x0F, 0xA0}); err != nil {
		t.Fatal(err)
	}
	select {
	case f := <-framesCh:
		frames = append(frames, f)
	case <-time.After(3 * time.Second):
		t.Fatal("no line_sensor frame")
	}
	if frames[0].String() != "00001111 | 10100000" {
		t.Fatalf("frame = %q", frames[0].String())
	}

	st := statuses.snapshot()
	want := []eventstream.Status{eventstream.StatusConnecting, eventstream.StatusOpen, eventstream.StatusConnecting, eventstream.StatusOpen}
	if len(st) < len(want) {
		t.Fatalf("statuses = %v", st)
	}
	for i := range want {
		if st[i] != want[i] {
			t.Fatalf("statuses = %v, want prefix %v", st, want)
		}
	}
}

func TestE2E_RecoversFromDeviceRestart(t *testing.T) {
	d := newDevice(t)
	c := newClient(t, d)
	var statuses statusLog
	c.OnStatusChange(statuses.observe)
	var got collector
	c.Subscribe(types.TargetConsole, got.handler)
	c.Connect()
	waitFor(t, "open", c.IsConnected)

	d.Restart()
	waitFor(t, "error", func() bool {
		for _, s := range statuses.snapshot() {
			if s == eventstream.StatusError {
				return true
			}
		}
		return false
	})
	waitFor(t, "reconnect to the new hub", func() bool { return d.Hub().Clients() == 1 && c.IsConnected() })

	if _, err := d.Hub().Publish("console", types.TargetConsole, []byte("after reboot")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "event after restart", func() bool { return got.has("after reboot") })
	if c.RetryDelay() != 10*time.Millisecond {
		t.Fatalf("backoff not reset after reopen: %s", c.RetryDelay())
	}
}

func TestE2E_PushReachesSubscriber(t *testing.T) {
	d := newDevice(t)
	c := newClient(t, d)
	var got collector
	c.Subscribe(types.TargetSSE, got.handler)
	c.Connect()
	waitFor(t, "server client", func() bool { return d.Hub().Clients() == 1 && c.IsConnected() })

	res, err := http.Post(d.srv.URL+"/api/sse/push", "application/json",
		bytes.NewBufferString(`{"target":"sse","message":{"msg":"pushed","level":"warn"}}`))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("push status=%d", res.StatusCode)
	}
	waitFor(t, "pushed event", func() bool { return got.has("pushed") })
}

func TestE2E_DisconnectReleasesServerClient(t *testing.T) {
	d := newDevice(t)
	c := newClient(t, d)
	var statuses statusLog
	c.OnStatusChange(statuses.observe)
	c.Subscribe(types.TargetConsole, func(eventstream.Payload) {})
	c.Connect()
	waitFor(t, "server client", func() bool { return d.Hub().Clients() == 1 })

	c.Disconnect()
	if c.IsConnected() || c.IsRequested() {
		t.Fatal("client should be idle after Disconnect")
	}
	waitFor(t, "server side release", func() bool {
		d.Hub().Keepalive()
		return d.Hub().Clients() == 0
	})
	st := statuses.snapshot()
	if st[len(st)-1] != eventstream.StatusClosed {
		t.Fatalf("last status = %v", st)
	}
	time.Sleep(50 * time.Millisecond)
	if st2 := statuses.snapshot(); len(st2) != len(st) {
		t.Fatalf("status changed after Disconnect: %v", st2)
	}
}
