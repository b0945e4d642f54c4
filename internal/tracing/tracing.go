package tracing

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"github.com/vidgrab/vidgrab/internal/config"
)

// Init initializes the Jaeger tracer and installs it globally. With tracing
// disabled a no-op tracer is installed so span helpers stay callable.
func Init(cfg config.TracingConfig) (opentracing.Tracer, io.Closer, error) {
	if !cfg.Enabled {
		tracer := opentracing.NoopTracer{}
		opentracing.SetGlobalTracer(tracer)
		return tracer, io.NopCloser(nil), nil
	}

	jcfg := &jaegercfg.Configuration{
		ServiceName: cfg.ServiceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:            false,
			CollectorEndpoint:   cfg.JaegerEndpoint,
			BufferFlushInterval: time.Second,
		},
	}

	tracer, closer, err := jcfg.NewTracer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return tracer, closer, nil
}

// StartSpan starts a new span with the given operation name
func StartSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, operationName)
}

// LogError marks the span as failed and records the error
func LogError(span opentracing.Span, err error) {
	if span != nil && err != nil {
		span.SetTag("error", true)
		span.LogKV("error", err.Error())
	}
}

// SetTag sets a tag on the span
func SetTag(span opentracing.Span, key string, value interface{}) {
	if span != nil {
		span.SetTag(key, value)
	}
}
