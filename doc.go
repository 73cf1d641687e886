// Package smokewatch provides a stall monitor for smoker temperature
// streams. It consumes timestamped readings from NATS JetStream, keeps a
// rolling window of recent temperatures per sensor, and raises an alert
// when the temperature range across the window collapses below a
// configured threshold.
//
// # Pipeline
//
// Each configured sensor runs an independent pipeline:
//
//	┌──────────────┐    ┌─────────┐    ┌─────────┐    ┌──────────┐
//	│ StreamSource │ →  │ reading │ →  │ window  │ →  │ detector │
//	│ (JetStream)  │    │ .Decode │    │ .Append │    │ .Evaluate│
//	└──────────────┘    └─────────┘    └─────────┘    └──────────┘
//	                                                        ↓
//	                         decisions / alerts published to NATS
//
// The monitor package drives the pipeline sequentially: one message is
// received, decoded, appended, and evaluated before the next is fetched.
// Undecodable payloads are counted and skipped; only a broken stream
// stops a monitor.
//
// # Packages
//
//   - reading: payload decoding with the per-message error taxonomy
//   - window: fixed-capacity FIFO ring of recent values
//   - detector: window evaluation (range vs. threshold, inclusive)
//   - monitor: per-sensor lifecycle component driving the pipeline
//   - natsclient: NATS connection management with circuit breaker
//   - output/alertfile: JSONL sink for alert events
//   - feed: synthetic reading producer for demos and testing
//   - config, errors, metric, health, component: service plumbing
//
// # Binaries
//
//   - cmd/smokewatch: the monitoring service
//   - cmd/smokewatch-feed: the synthetic producer
package smokewatch
