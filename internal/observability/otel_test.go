package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-auth-backend/internal/config"
)

// preserveOTelGlobals restores the global provider and propagator when t ends.
func preserveOTelGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func otelConfig(enabled, insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     enabled,
		Insecure:    insecure,
		Endpoint:    "localhost:4317",
		ServiceName: "go-auth-backend-test",
		SampleRatio: 1.0,
	}
}

func TestSetupOTel_Disabled(t *testing.T) {
	preserveOTelGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), otelConfig(false, true), BuildInfo{Version: "dev"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider(), "disabled tracing keeps the global provider")
}

func TestSetupOTel_InstallsProvider(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name string
		ctx  context.Context
		cfg  config.OTELConfig
	}{
		{"insecure", context.Background(), otelConfig(true, true)},
		{"tls", context.Background(), otelConfig(true, false)},
		// The gRPC client connects lazily, so setup survives a dead context.
		{"canceled context", canceled, otelConfig(true, true)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			preserveOTelGlobals(t)

			shutdown, err := SetupOTel(tc.ctx, tc.cfg, BuildInfo{Version: "v1.2.3", Environment: "test"})
			require.NoError(t, err)
			t.Cleanup(func() { _ = shutdown(context.Background()) })

			_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
			assert.True(t, ok, "expected *sdktrace.TracerProvider")

			// W3C trace context must round-trip through the global propagator.
			ctx, span := StartSpan(context.Background(), "auth.ResolveSession")
			carrier := propagation.MapCarrier{}
			otel.GetTextMapPropagator().Inject(ctx, carrier)
			EndSpan(span, nil)
			assert.NotEmpty(t, carrier.Get("traceparent"))
			got := trace.SpanContextFromContext(otel.GetTextMapPropagator().Extract(context.Background(), carrier))
			assert.Equal(t, span.SpanContext().TraceID(), got.TraceID())
		})
	}
}

func TestSetupOTel_SeamFailures(t *testing.T) {
	cases := map[string]func(t *testing.T){
		"exporter": func(t *testing.T) {
			orig := newOTLPExporterFn
			t.Cleanup(func() { newOTLPExporterFn = orig })
			newOTLPExporterFn = func(context.Context, otlptrace.Client) (*otlptrace.Exporter, error) {
				return nil, errors.New("boom-exporter")
			}
		},
		"resource": func(t *testing.T) {
			orig := newServiceResourceFn
			t.Cleanup(func() { newServiceResourceFn = orig })
			newServiceResourceFn = func(context.Context, string, BuildInfo) (*resource.Resource, error) {
				return nil, errors.New("boom-resource")
			}
		},
	}
	for name, breakSeam := range cases {
		t.Run(name, func(t *testing.T) {
			preserveOTelGlobals(t)
			breakSeam(t)
			prevTP := otel.GetTracerProvider()
			prevProp := otel.GetTextMapPropagator()

			_, err := SetupOTel(context.Background(), otelConfig(true, true), BuildInfo{Version: "v0"})
			require.ErrorContains(t, err, "boom-"+name)
			assert.Equal(t, prevTP, otel.GetTracerProvider(), "provider must survive a failed setup")
			assert.Equal(t, prevProp, otel.GetTextMapPropagator(), "propagator must survive a failed setup")
		})
	}
}

func TestSetupOTel_ShutdownWithoutSpans(t *testing.T) {
	preserveOTelGlobals(t)

	shutdown, err := SetupOTel(context.Background(), otelConfig(true, true), BuildInfo{Version: "v1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	assert.NoError(t, shutdown(ctx))
}

func TestServiceResource_CarriesEnvironment(t *testing.T) {
	res, err := newServiceResourceFn(context.Background(), "svc", BuildInfo{Version: "v1", Environment: "production"})
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	got := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		got[kv.Key] = kv.Value.Emit()
	}
	if got["service.name"] != "svc" || got["service.version"] != "v1" {
		t.Fatalf("service attributes missing: %v", got)
	}
	if got["deployment.environment"] != "production" {
		t.Fatalf("environment missing: %v", got)
	}

	res, err = newServiceResourceFn(context.Background(), "svc", BuildInfo{Version: "v1"})
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	if _, ok := res.Set().Value("deployment.environment"); ok {
		t.Fatalf("empty environment must not be recorded")
	}
}

func TestStartSpan_EndSpan(t *testing.T) {
	preserveOTelGlobals(t)

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)

	_, ok := StartSpan(context.Background(), "auth.SignIn", attribute.String("user.email_domain", "example.com"))
	EndSpan(ok, nil)
	_, bad := StartSpan(context.Background(), "users.Update")
	EndSpan(bad, errors.New("boom"))

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(spans))
	}
	if spans[0].Name() != "auth.SignIn" || spans[0].Status().Code != codes.Unset {
		t.Fatalf("unexpected first span: %s %v", spans[0].Name(), spans[0].Status())
	}
	if spans[0].InstrumentationScope().Name != TracerName {
		t.Fatalf("unexpected scope %q", spans[0].InstrumentationScope().Name)
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "boom" {
		t.Fatalf("expected error status, got %v", spans[1].Status())
	}
	if len(spans[1].Events()) == 0 {
		t.Fatalf("expected recorded error event")
	}
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0: 0, 0.25: 0.25, 1: 1, 7: 1} {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v)=%v want %v", in, got, want)
		}
	}
}
