// Package eventstream implements a reconnecting Server-Sent Events client that
// multiplexes named subscriptions over a single connection to the controller.
// It is structured into small files by concern:
//
//   - client.go: Client type, subscription and connection lifecycle.
//   - config.go: Config, options and package defaults.
//   - status.go: connection states and the statuses reported to observers.
//   - backoff.go: reconnect delay policy (floor, doubling, ceiling).
//   - target.go: encoding of the subscription set into the stream URL.
//   - dispatch.go: payload decoding and panic-safe handler invocation.
//   - reader.go: text/event-stream frame parser.
//   - transport.go: Dialer/Stream interfaces and the HTTP implementation.
//   - metrics.go: Prometheus instrumentation.
//   - errors.go: error types and helpers (IsDialError).
//
// The stream target is fixed when a connection is made, so any change to the
// subscription set while connected replaces the whole connection. Events sent
// by the device during that window are lost.
package eventstream
