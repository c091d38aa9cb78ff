package devsim

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rgbctl/pkg/types"
)

const keepaliveFrame = ": keepalive\n\n"

// Hub tracks connected stream clients and fans events out to them.
type Hub struct {
	start time.Time
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

type client struct {
	id    string
	mask  Mask
	w     io.Writer
	flush func()
	done  chan struct{}

	mu      sync.Mutex
	dropped bool
}

// NewHub returns an empty hub whose event clock starts now.
func NewHub() *Hub {
	return &Hub{
		start:   time.Now(),
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Uptime returns the time since the hub was created.
func (h *Hub) Uptime() time.Duration { return h.now().Sub(h.start) }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// add registers a writer. start runs once the client is registered and
// before any event reaches w. The client's done channel is closed when it is
// dropped, either by remove or after a failed write.
func (h *Hub) add(mask Mask, w io.Writer, flush, start func()) (*client, error) {
	if flush == nil {
		flush = func() {}
	}
	c := &client{id: uuid.NewString(), mask: mask, w: w, flush: flush, done: make(chan struct{})}
	c.mu.Lock()
	defer c.mu.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, errHubClosed
	}
	h.clients[c.id] = c
	sseClients.Set(float64(len(h.clients)))
	h.mu.Unlock()

	if start != nil {
		start()
	}
	return c, nil
}

// remove drops c. No write reaches c's writer once remove returns.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		sseClients.Set(float64(len(h.clients)))
	}
	h.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dropped {
		c.dropped = true
		close(c.done)
	}
}

func (h *Hub) snapshot() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// write sends frame to every client accepted by match and drops clients
// whose write fails.
func (h *Hub) write(frame []byte, match func(*client) bool) int {
	n := 0
	for _, c := range h.snapshot() {
		if !match(c) {
			continue
		}
		if err := c.send(frame); err != nil {
			zlog.Debug().Str("client", c.id).Err(err).Msg("dropping stream client")
			clientsDropped.Inc()
			h.remove(c)
			continue
		}
		n++
	}
	return n
}

func (c *client) send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		return errHubClosed
	}
	if _, err := c.w.Write(frame); err != nil {
		return err
	}
	c.flush()
	return nil
}

// Broadcast writes data as an event named target to every client whose mask
// includes it and returns the number of clients written.
func (h *Hub) Broadcast(target string, data []byte) (int, error) {
	bit, ok := LookupTarget(target)
	if !ok {
		return 0, UnknownTargetError{Target: target}
	}
	name := strings.ToLower(strings.TrimSpace(target))
	frame := encodeFrame(name, uuid.NewString(), data)
	n := h.write(frame, func(c *client) bool { return c.mask.Has(bit) })
	eventsBroadcast.WithLabelValues(name).Inc()
	return n, nil
}

// Publish wraps raw into a device event envelope and broadcasts it. Events
// published under the line-sensor target carry their bytes as hex and
// base64.
func (h *Hub) Publish(source, target string, raw []byte) (int, error) {
	ev := h.Envelope(source, target, raw)
	data, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("encode event: %w", err)
	}
	return h.Broadcast(target, data)
}

// Envelope builds the event a device would emit for raw.
func (h *Hub) Envelope(source, target string, raw []byte) types.DeviceEvent {
	ev := types.DeviceEvent{
		Source: source,
		Level:  "info",
		Time:   h.Uptime().Milliseconds(),
	}
	if !strings.EqualFold(strings.TrimSpace(target), types.TargetLineSensor) {
		ev.Data = string(raw)
		ev.Msg = ev.Data
		return ev
	}
	if len(raw) > types.MaxLineSensorBytes {
		raw = raw[:types.MaxLineSensorBytes]
	}
	ev.Data = hexBytes(raw)
	ev.Msg = ev.Data
	ev.DataB64 = base64.StdEncoding.EncodeToString(raw)
	ev.Schema = types.LineSensorSchema
	ev.ByteCount = len(raw)
	ev.BitOrder = "msb"
	return ev
}

// Keepalive writes a comment frame to every client.
func (h *Hub) Keepalive() int {
	return h.write([]byte(keepaliveFrame), func(*client) bool { return true })
}

// Run sends keepalives every interval until ctx is done, then closes the hub.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	defer h.Close()
	if interval <= 0 {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.Keepalive()
		}
	}
}

// Close drops every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	for _, c := range h.snapshot() {
		h.remove(c)
	}
}

// encodeFrame renders one event. Multi-line data is split over several
// data fields so the receiver rejoins it with newlines.
func encodeFrame(name, id string, data []byte) []byte {
	var b bytes.Buffer
	b.WriteString("event: ")
	b.WriteString(name)
	b.WriteString("\nid: ")
	b.WriteString(id)
	b.WriteByte('\n')
	for _, line := range bytes.Split(data, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(bytes.TrimSuffix(line, []byte("\r")))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes()
}

func hexBytes(b []byte) string {
	const digits = "0123456789ABCDEF"
	out := make([]byte, 0, len(b)*3)
	for i, v := range b {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, digits[v>>4], digits[v&0x0f])
	}
	return string(out)
}
