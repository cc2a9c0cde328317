// Package metrics defines the sinks that observe coordinator runs. Sinks
// like PromSink and InfluxSink (in infra/metrics) record iteration samples
// and run summaries and can be combined with NewMultiSink. The factory
// helpers return a MultiSink automatically when multiple sinks are
// configured.
package metrics
