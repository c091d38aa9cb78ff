// Package devsim simulates the event-stream side of an RGB controller.
//
// It serves the same contract as the firmware so clients can be exercised
// without hardware:
//   - hub.go: connected stream clients, target masks, broadcast and keepalive
//   - server.go: chi router for /sse, /api/sse/push, /healthz, /metrics, /swagger
//   - metrics.go: Prometheus instrumentation of the HTTP layer and the hub
//   - demo.go: optional generator publishing console and line-sensor events
package devsim
