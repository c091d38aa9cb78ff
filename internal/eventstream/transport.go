package eventstream

import (
	"context"
	"mime"
	"net/http"
	"sync"
)

// Dialer opens a stream for a target URL. Dial returns once the stream is
// open; the client reports that as the "open" transition.
type Dialer interface {
	Dial(ctx context.Context, target string) (Stream, error)
}

// Stream yields frames until it fails or is closed. Next is only called from
// one goroutine; Close may be called concurrently with Next and must unblock it.
type Stream interface {
	Next() (*Frame, error)
	Close() error
}

// HTTPDialer opens streams with plain HTTP GET requests.
type HTTPDialer struct {
	client *http.Client

	mu          sync.Mutex
	lastEventID string
}

// NewHTTPDialer returns a dialer using hc, or a client without a timeout when
// hc is nil. A client-wide timeout would cut long-lived streams.
func NewHTTPDialer(hc *http.Client) *HTTPDialer {
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPDialer{client: hc}
}

// Dial issues the request and checks that the device answered with an event
// stream.
func (d *HTTPDialer) Dial(ctx context.Context, target string) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &dialError{target: target, err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if id := d.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}
	res, err := d.client.Do(req)
	if err != nil {
		return nil, &dialError{target: target, err: err}
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, &dialError{target: target, status: res.StatusCode}
	}
	if mt, _, err := mime.ParseMediaType(res.Header.Get("Content-Type")); err != nil || mt != "text/event-stream" {
		res.Body.Close()
		return nil, &dialError{target: target, err: errUnexpectedContentType}
	}
	return &httpStream{r: NewReader(res.Body), d: d}, nil
}

// LastEventID returns the id of the most recent frame seen on any stream of
// this dialer.
func (d *HTTPDialer) LastEventID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastEventID
}

func (d *HTTPDialer) setLastEventID(id string) {
	d.mu.Lock()
	d.lastEventID = id
	d.mu.Unlock()
}

type httpStream struct {
	r *Reader
	d *HTTPDialer
}

func (s *httpStream) Next() (*Frame, error) {
	f, err := s.r.Next()
	if err != nil {
		return nil, err
	}
	if f.ID != "" {
		s.d.setLastEventID(f.ID)
	}
	return f, nil
}

func (s *httpStream) Close() error { return s.r.Close() }
