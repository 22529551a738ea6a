// Package telemetry provides OpenTelemetry tracing and metrics for safepush.
//
// Telemetry is off by default. When enabled, spans and the build-duration
// histogram are exported over OTLP (gRPC or HTTP/protobuf) to a collector.
// A run is short-lived, so providers are flushed on Shutdown rather than on
// a timer.
//
//	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx, span := tel.Tracer("safepush").Start(ctx, "safepush.run")
//	defer span.End()
//
// Failures to build an exporter never fail a run: the instance degrades to
// the global no-op providers and records why in Health.
//
// Tests use NewTestTelemetry, which records spans in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	... run code under test with tt.Telemetry ...
//	tt.AssertSpanExists(t, "safepush.build")
package telemetry
