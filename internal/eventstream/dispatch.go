package eventstream

import (
	"encoding/json"
)

// Payload is the decoded body of an event. Handlers always receive an object:
// text that is not a JSON object arrives as {"msg": text}.
type Payload map[string]any

// Msg returns the "msg" field as a string, or "".
func (p Payload) Msg() string {
	s, _ := p["msg"].(string)
	return s
}

// Handler receives the payloads of one event name.
type Handler func(Payload)

// StatusObserver is notified of every status transition.
type StatusObserver func(Status)

// DecodePayload decodes data as a JSON object. ok is false when data had to be
// wrapped.
func DecodePayload(data string) (p Payload, ok bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil || obj == nil {
		return Payload{"msg": data}, false
	}
	return Payload(obj), true
}

type handlerEntry struct {
	id uint64
	fn Handler
}

// dispatch delivers p to every handler in order. A panicking handler is logged
// and skipped.
func (c *Client) dispatch(name string, p Payload, hs []handlerEntry) {
	for _, h := range hs {
		c.invoke(name, h.fn, p)
	}
	if len(hs) > 0 {
		framesDispatchedTotal.WithLabelValues(name).Inc()
	}
}

func (c *Client) invoke(name string, fn Handler, p Payload) {
	defer func() {
		if r := recover(); r != nil {
			handlerPanicsTotal.WithLabelValues("handler").Inc()
			c.log.Error().Str("event", name).Interface("panic", r).Msg("event handler panicked")
		}
	}()
	fn(p)
}

func (c *Client) notify(obs StatusObserver, s Status) {
	defer func() {
		if r := recover(); r != nil {
			handlerPanicsTotal.WithLabelValues("observer").Inc()
			c.log.Error().Str("status", string(s)).Interface("panic", r).Msg("status observer panicked")
		}
	}()
	obs(s)
}
