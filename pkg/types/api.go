package types

import "encoding/json"

// PushRequest injects an event into a device's stream via POST /api/sse/push.
// Exactly one of Message or Text should be set; Message wins when both are.
type PushRequest struct {
	// Event name to publish under.
	// example: console
	Target string `json:"target" example:"console"`
	// Arbitrary JSON object forwarded verbatim as the event data.
	Message json.RawMessage `json:"message,omitempty" swaggertype:"object"`
	// Plain text wrapped into a device event envelope.
	// example: hello from the bench
	Text string `json:"text,omitempty" example:"hello from the bench"`
}

// PushResponse acknowledges a push.
type PushResponse struct {
	// Event name the payload was published under.
	// example: console
	Target string `json:"target" example:"console"`
	// Number of connected clients the event was written to.
	// example: 2
	Delivered int `json:"delivered" example:"2"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
	// Connected stream clients.
	// example: 1
	Clients int `json:"clients" example:"1"`
	// Milliseconds since the simulator started.
	// example: 15342
	UptimeMS int64 `json:"uptime_ms" example:"15342"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
