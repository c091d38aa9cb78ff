package eventstream

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var errStreamEnded = errors.New("stream ended")

// Client keeps one stream open to the device and fans its events out to
// subscribers. All methods are safe for concurrent use, and handlers and
// status observers may call back into the Client.
type Client struct {
	cfg    Config
	dialer Dialer
	sched  scheduler
	log    zerolog.Logger

	mu        sync.Mutex
	names     []string // subscription order
	handlers  map[string][]handlerEntry
	nextID    uint64
	observers []StatusObserver
	state     State
	requested bool
	gen       uint64
	cur       *transport
	retry     *pendingRetry
	backoff   *retryBackoff
	lastErr   error
	pending   []Status
	closed    bool

	emitMu   sync.Mutex
	inbound  chan message
	done     chan struct{}
	loopDone chan struct{}
	wg       sync.WaitGroup
}

// Subscription identifies one handler registration.
type Subscription struct {
	c    *Client
	name string
	id   uint64
}

// Name returns the event name the handler is registered under.
func (s *Subscription) Name() string { return s.name }

// Cancel is shorthand for Unsubscribe(s.Name(), s).
func (s *Subscription) Cancel() {
	if s != nil && s.c != nil {
		s.c.Unsubscribe(s.name, s)
	}
}

type msgKind int

const (
	msgOpen msgKind = iota
	msgFrame
	msgFailed
)

// message is what transports send to the dispatch loop. gen tags the
// transport so that anything from a replaced one is dropped.
type message struct {
	gen   uint64
	kind  msgKind
	frame *Frame
	err   error
}

type transport struct {
	gen    uint64
	target string
	cancel context.CancelFunc

	mu     sync.Mutex
	stream Stream
	closed bool
}

// attach hands the dialed stream to t unless t was already released.
func (t *transport) attach(s Stream) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.stream = s
	return true
}

func (t *transport) close() {
	t.mu.Lock()
	t.closed = true
	s := t.stream
	t.stream = nil
	t.mu.Unlock()
	t.cancel()
	if s != nil {
		go func() { _ = s.Close() }()
	}
}

type pendingRetry struct {
	t     stopper
	delay time.Duration
}

// New returns a disconnected Client with no subscriptions. Call Close to stop
// its dispatch loop.
func New(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:      cfg,
		sched:    timeScheduler{},
		log:      zerolog.Nop(),
		handlers: make(map[string][]handlerEntry),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	if c.dialer == nil {
		c.dialer = NewHTTPDialer(nil)
	}
	c.backoff = newRetryBackoff(cfg.BackoffFloor, cfg.BackoffCeiling)
	c.inbound = make(chan message, cfg.InboundBuffer)
	go c.loop()
	return c
}

// Subscribe registers h for events named name. Adding a name that was not yet
// subscribed replaces the connection when one is requested.
func (c *Client) Subscribe(name string, h Handler) *Subscription {
	if h == nil {
		h = func(Payload) {}
	}
	c.mu.Lock()
	c.nextID++
	sub := &Subscription{c: c, name: name, id: c.nextID}
	_, known := c.handlers[name]
	c.handlers[name] = append(c.handlers[name], handlerEntry{id: sub.id, fn: h})
	if !known {
		c.names = append(c.names, name)
		if c.requested && !c.closed {
			c.rebuildLocked(reasonSubscriptionChange)
		}
	}
	c.mu.Unlock()
	c.flush()
	return sub
}

// Unsubscribe removes the handler registered as sub. When it was the last one
// for name, name leaves the subscription set and the connection is replaced if
// one is requested. Unknown registrations are ignored.
func (c *Client) Unsubscribe(name string, sub *Subscription) {
	if sub == nil || sub.c != c || sub.name != name {
		return
	}
	c.mu.Lock()
	hs := c.handlers[name]
	idx := -1
	for i, h := range hs {
		if h.id == sub.id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	// copy so that slices handed to the dispatch loop stay intact
	rest := make([]handlerEntry, 0, len(hs)-1)
	rest = append(rest, hs[:idx]...)
	rest = append(rest, hs[idx+1:]...)
	if len(rest) > 0 {
		c.handlers[name] = rest
	} else {
		delete(c.handlers, name)
		c.removeNameLocked(name)
		if c.requested && !c.closed {
			c.rebuildLocked(reasonSubscriptionChange)
		}
	}
	c.mu.Unlock()
	c.flush()
}

// Connect records the intent to be connected and opens a new stream for the
// current subscription set, replacing any existing one.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.log.Warn().Msg("connect on closed event stream client")
		return
	}
	c.requested = true
	c.rebuildLocked(reasonConnect)
	c.mu.Unlock()
	c.flush()
}

// Disconnect clears the connect intent, cancels a pending retry and closes the
// stream. Observers always see "closed", even when nothing was connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.disconnectLocked()
	c.mu.Unlock()
	c.flush()
}

// OnStatusChange registers obs for every later status transition.
func (c *Client) OnStatusChange(obs StatusObserver) {
	if obs == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers[:len(c.observers):len(c.observers)], obs)
	c.mu.Unlock()
}

// IsConnected reports whether a stream exists and is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur != nil && c.state == StateOpen
}

// IsRequested returns the connect intent.
func (c *Client) IsRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requested
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscriptions returns the subscribed names in subscription order.
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

// Target returns the URL of the live stream, for diagnostics.
func (c *Client) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return ""
	}
	return c.cur.target
}

// RetryDelay returns the delay the next scheduled reconnect would use.
func (c *Client) RetryDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backoff.Peek()
}

// PendingRetry reports the delay of the scheduled reconnect, if one is pending.
func (c *Client) PendingRetry() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.retry == nil {
		return 0, false
	}
	return c.retry.delay, true
}

// LastError returns the most recent transport failure.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close disconnects and stops the dispatch loop. It must not be called from a
// handler or observer.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.disconnectLocked()
	c.closed = true
	c.mu.Unlock()
	c.flush()
	close(c.done)
	<-c.loopDone
	c.wg.Wait()
	return nil
}

func (c *Client) removeNameLocked(name string) {
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i:i], c.names[i+1:]...)
			return
		}
	}
}

func (c *Client) disconnectLocked() {
	c.requested = false
	c.cancelRetryLocked()
	c.teardownLocked()
	c.transitionLocked(StateDisconnected)
}

// rebuildLocked replaces the transport with one targeting the current
// subscription set. Any events in flight on the old one are dropped.
func (c *Client) rebuildLocked(reason string) {
	c.teardownLocked()
	c.gen++
	rebuildsTotal.WithLabelValues(reason).Inc()
	c.transitionLocked(StateConnecting)

	target, err := BuildTarget(c.cfg.URL, c.names)
	if err != nil {
		c.failLocked(err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &transport{gen: c.gen, target: target, cancel: cancel}
	c.cur = t
	c.log.Debug().Str("reason", reason).Str("target", target).Uint64("gen", t.gen).Msg("event stream rebuild")
	c.wg.Add(1)
	go c.run(ctx, t)
}

// teardownLocked releases the live transport. The reference is cleared first so
// nothing it sends afterwards can touch client state.
func (c *Client) teardownLocked() {
	c.gen++
	if c.cur == nil {
		return
	}
	t := c.cur
	c.cur = nil
	t.close()
}

func (c *Client) failLocked(err error) {
	c.teardownLocked()
	c.lastErr = err
	c.transitionLocked(StateErroring)
	if !c.requested || c.retry != nil {
		c.log.Warn().Err(err).Msg("event stream error")
		return
	}
	d := c.backoff.Advance()
	c.log.Warn().Err(err).Dur("retry_in", d).Msg("event stream error, will reconnect")
	c.scheduleRetryLocked(d)
}

func (c *Client) scheduleRetryLocked(d time.Duration) {
	p := &pendingRetry{delay: d}
	c.retry = p
	retriesScheduledTotal.Inc()
	retryDelaySeconds.Set(d.Seconds())
	p.t = c.sched.AfterFunc(d, func() { c.fireRetry(p) })
}

func (c *Client) cancelRetryLocked() {
	if c.retry == nil {
		return
	}
	c.retry.t.Stop()
	c.retry = nil
}

func (c *Client) fireRetry(p *pendingRetry) {
	c.mu.Lock()
	if c.retry != p {
		c.mu.Unlock()
		return
	}
	c.retry = nil
	if c.requested && !c.closed && c.state != StateOpen {
		c.rebuildLocked(reasonRetry)
	}
	c.mu.Unlock()
	c.flush()
}

func (c *Client) transitionLocked(s State) {
	c.state = s
	st := s.status()
	c.pending = append(c.pending, st)
	statusTransitionsTotal.WithLabelValues(string(st)).Inc()
}

// flush delivers queued statuses in order. Whoever holds emitMu drains the
// queue, including entries appended by other goroutines or by observers
// calling back into the client.
func (c *Client) flush() {
	for {
		if !c.emitMu.TryLock() {
			return
		}
		for {
			c.mu.Lock()
			if len(c.pending) == 0 {
				c.mu.Unlock()
				break
			}
			s := c.pending[0]
			c.pending = c.pending[1:]
			obs := c.observers
			c.mu.Unlock()
			for _, o := range obs {
				c.notify(o, s)
			}
		}
		c.emitMu.Unlock()

		c.mu.Lock()
		more := len(c.pending) > 0
		c.mu.Unlock()
		if !more {
			return
		}
	}
}

// run dials and pumps one transport until it fails or is released.
func (c *Client) run(ctx context.Context, t *transport) {
	defer c.wg.Done()
	s, err := c.dialer.Dial(ctx, t.target)
	if err != nil {
		c.post(ctx, message{gen: t.gen, kind: msgFailed, err: err})
		return
	}
	if !t.attach(s) {
		_ = s.Close()
		return
	}
	defer s.Close()
	if !c.post(ctx, message{gen: t.gen, kind: msgOpen}) {
		return
	}
	for {
		f, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errStreamEnded
			}
			c.post(ctx, message{gen: t.gen, kind: msgFailed, err: err})
			return
		}
		if !c.post(ctx, message{gen: t.gen, kind: msgFrame, frame: f}) {
			return
		}
	}
}

func (c *Client) post(ctx context.Context, m message) bool {
	select {
	case c.inbound <- m:
		return true
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	}
}

// loop is the single consumer of transport messages. Frames are dispatched in
// the order their transport delivered them.
func (c *Client) loop() {
	defer close(c.loopDone)
	for {
		select {
		case m := <-c.inbound:
			c.handle(m)
		case <-c.done:
			return
		}
	}
}

func (c *Client) handle(m message) {
	c.mu.Lock()
	if m.gen != c.gen || c.cur == nil {
		c.mu.Unlock()
		return
	}
	switch m.kind {
	case msgOpen:
		c.backoff.Reset()
		c.cancelRetryLocked()
		c.lastErr = nil
		c.transitionLocked(StateOpen)
		c.log.Info().Str("target", c.cur.target).Msg("event stream open")
		c.mu.Unlock()
		c.flush()
	case msgFailed:
		c.failLocked(m.err)
		c.mu.Unlock()
		c.flush()
	case msgFrame:
		name := m.frame.Name()
		hs := c.handlers[name]
		c.mu.Unlock()
		if len(hs) == 0 {
			c.log.Debug().Str("event", name).Msg("event without subscribers")
			return
		}
		p, ok := DecodePayload(m.frame.Data)
		if !ok {
			decodeFallbacksTotal.Inc()
		}
		c.dispatch(name, p, hs)
	default:
		c.mu.Unlock()
	}
}
