package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestInitOTel_Disabled(t *testing.T) {
	providers, err := InitOTel(context.Background(), OTelConfig{Enabled: false}, NewNopLogger())

	assert.NoError(t, err)
	assert.Nil(t, providers)
}

func TestShutdownOTel_NilProviders(t *testing.T) {
	assert.NoError(t, ShutdownOTel(context.Background(), nil, NewNopLogger()))
}

func TestShutdownOTel_WithProviders(t *testing.T) {
	providers := &OTelProviders{TracerProvider: sdktrace.NewTracerProvider()}

	assert.NoError(t, ShutdownOTel(context.Background(), providers, NewNopLogger()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Contains(t, sampler(tt.ratio).Description(), tt.want)
		})
	}
}

func TestUpdateLoggerWithTraceContext(t *testing.T) {
	t.Run("no span", func(t *testing.T) {
		logger := NewNopLogger()
		assert.Same(t, logger, UpdateLoggerWithTraceContext(context.Background(), logger))
	})

	t.Run("nil logger", func(t *testing.T) {
		assert.Nil(t, UpdateLoggerWithTraceContext(context.Background(), nil))
	})

	t.Run("recording span", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()

		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		var buf bytes.Buffer
		UpdateLoggerWithTraceContext(ctx, NewLogger(InfoLevel, &buf)).Info("hello")

		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
	})

	t.Run("non recording span", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: trace.TraceID{1},
			SpanID:  trace.SpanID{1},
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		logger := NewNopLogger()
		assert.Same(t, logger, UpdateLoggerWithTraceContext(ctx, logger))
	})
}
