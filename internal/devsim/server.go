package devsim

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"rgbctl/pkg/types"
)

// PushSource is the event source recorded for pushed text.
const PushSource = "push"

type server struct {
	hub     *Hub
	opts    Options
	limiter *rate.Limiter
}

// NewMux returns the simulator's HTTP handler serving hub.
func NewMux(hub *Hub, opts Options) http.Handler {
	opts = opts.withDefaults()
	s := &server{hub: hub, opts: opts, limiter: rate.NewLimiter(rate.Inf, 0)}
	if opts.PushRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.PushRate), opts.PushBurst)
	}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(requestLogger)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "Cache-Control", "Last-Event-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/sse", s.handleSSE)
	r.Post("/api/sse/push", s.handlePush)
	r.Get("/healthz", s.handleHealth)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	return r
}

// handleSSE godoc
// @Summary      Subscribe to device events
// @Description  Streams events for the comma separated targets. Unknown names are ignored; no known name means the sse target only.
// @Tags         events
// @Produce      text/event-stream
// @Param        targets  query  string  false  "Comma separated targets"  example(console,line_sensor)
// @Success      200
// @Failure      500  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /sse [get]
func (s *server) handleSSE(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	mask := ParseMask(r.URL.Query().Get("targets"))
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	c, err := s.hub.add(mask, w, fl.Flush, func() {
		w.WriteHeader(http.StatusOK)
		fl.Flush()
	})
	if err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer s.hub.remove(c)

	z := zlog.Info().Str("client", c.id).Strs("targets", mask.Names())
	if id := r.Header.Get("Last-Event-ID"); id != "" {
		z = z.Str("last_event_id", id)
	}
	z.Msg("stream client connected")

	select {
	case <-r.Context().Done():
	case <-c.done:
	}
	zlog.Info().Str("client", c.id).Msg("stream client gone")
}

// handlePush godoc
// @Summary      Inject an event
// @Description  Publishes a JSON message verbatim, or wraps text in a device event envelope.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        body  body      types.PushRequest  true  "Event to publish"
// @Success      200   {object}  types.PushResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      415   {object}  types.ErrorResponse
// @Failure      429   {object}  types.ErrorResponse
// @Router       /api/sse/push [post]
func (s *server) handlePush(w http.ResponseWriter, r *http.Request) {
	// Content-Type check
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	if !s.limiter.Allow() {
		IncrementBackpressure("push_rate")
		writeJSONError(w, http.StatusTooManyRequests, "push rate exceeded")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	var req types.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	target := strings.ToLower(strings.TrimSpace(req.Target))
	if _, ok := LookupTarget(target); !ok {
		writeJSONError(w, http.StatusBadRequest, UnknownTargetError{Target: req.Target}.Error())
		return
	}

	var (
		n   int
		err error
	)
	switch msg := bytes.TrimSpace(req.Message); {
	case len(msg) > 0 && !bytes.Equal(msg, []byte("null")):
		var compact bytes.Buffer
		if err := json.Compact(&compact, msg); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid message")
			return
		}
		n, err = s.hub.Broadcast(target, compact.Bytes())
	case req.Text != "":
		n, err = s.hub.Publish(PushSource, target, []byte(req.Text))
	default:
		writeJSONError(w, http.StatusBadRequest, "message or text is required")
		return
	}
	if err != nil {
		if IsUnknownTarget(err) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	zlog.Debug().Str("target", target).Int("delivered", n).Msg("push")
	writeJSON(w, http.StatusOK, types.PushResponse{Target: target, Delivered: n})
}

// handleHealth godoc
// @Summary  Liveness
// @Tags     health
// @Produce  json
// @Success  200  {object}  types.HealthResponse
// @Router   /healthz [get]
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:   "ok",
		Clients:  s.hub.Clients(),
		UptimeMS: s.hub.Uptime().Milliseconds(),
	})
}
