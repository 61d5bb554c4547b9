// Package instrument provides reactive.Observer implementations for
// Prometheus metrics and OpenTelemetry tracing.
//
// Install them on a runtime:
//
//	rt := reactive.NewRuntime(reactive.WithObserver(instrument.Multi(
//	    instrument.NewMetrics(instrument.WithNamespace("myapp")),
//	    instrument.NewTracer(),
//	)))
//	reactive.SetDefault(rt)
package instrument
