// Package notify provides the best-effort side channels that receive accepted
// statuses from the registry.
//
// Every notifier implements [registry.Notifier]. The registry calls it after
// releasing its lock, logs any returned error, and never rolls back the
// append. The available sinks are:
//
//   - [Console]: prints one line per status to an operator console
//   - [Redis]: publishes a JSON [Event] on a per-project Redis channel
//   - [Webhook]: POSTs a JSON [Event] to an HTTP endpoint
//   - [Hub]: in-process pub/sub feeding the live SSE stream
//
// [Multi] fans a status out to several notifiers and records per-sink
// failures in Prometheus.
package notify
