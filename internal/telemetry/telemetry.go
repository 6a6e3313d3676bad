package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "companion"

// Metrics holds the counters the audio and tool paths record on.
type Metrics struct {
	FramesSent       metric.Int64Counter
	FramesGated      metric.Int64Counter
	BuffersScheduled metric.Int64Counter
	Interruptions    metric.Int64Counter
	ToolCalls        metric.Int64Counter
}

// NewMetrics registers the session counters on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	if m.FramesSent, err = meter.Int64Counter("session.audio.frames_sent",
		metric.WithDescription("Microphone frames forwarded to the agent")); err != nil {
		return nil, err
	}
	if m.FramesGated, err = meter.Int64Counter("session.audio.frames_gated",
		metric.WithDescription("Microphone frames suppressed by the mic gate")); err != nil {
		return nil, err
	}
	if m.BuffersScheduled, err = meter.Int64Counter("session.audio.buffers_scheduled",
		metric.WithDescription("Agent audio buffers queued for playback")); err != nil {
		return nil, err
	}
	if m.Interruptions, err = meter.Int64Counter("session.interruptions",
		metric.WithDescription("Barge-in events handled")); err != nil {
		return nil, err
	}
	if m.ToolCalls, err = meter.Int64Counter("session.tool_calls",
		metric.WithDescription("Tool calls dispatched")); err != nil {
		return nil, err
	}
	return m, nil
}

// NopMetrics returns counters that record nowhere, for tests.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(serviceName))
	return m
}

// Init wires tracing and metrics to rotated files under logDir so a
// collector is never required to run the companion locally.
func Init(ctx context.Context, logDir string) (trace.Tracer, *Metrics, func(), error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "companion_traces.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	traceExporter, err := stdouttrace.New(
		stdouttrace.WithWriter(traceFile),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricsFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "companion_metrics.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	metricExporter, err := stdoutmetric.New(
		stdoutmetric.WithWriter(metricsFile),
		stdoutmetric.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				metricExporter,
				sdkmetric.WithInterval(10*time.Second),
			),
		),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	metrics, err := NewMetrics(mp.Meter(serviceName))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create counters: %w", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = traceFile.Close()
		_ = metricsFile.Close()
	}

	return tp.Tracer(serviceName), metrics, cleanup, nil
}
