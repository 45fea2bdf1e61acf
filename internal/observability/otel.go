// Package observability bootstraps OpenTelemetry tracing for the intake
// service. Spans from Gin (otelgin), GORM and the orchestrator are exported
// over OTLP/gRPC; the resource describes which backends this deployment runs
// with so degraded-mode traces can be told apart.
package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-intake-bot/internal/config"
)

// ---- TEST SEAMS ----
var (
	newOTLPClient = otlptracegrpc.NewClient

	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newServiceResourceFn = func(ctx context.Context, serviceName, version string, attrs ...attribute.KeyValue) (*resource.Resource, error) {
		kv := append([]attribute.KeyValue{
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		}, attrs...)
		return resource.New(ctx, resource.WithAttributes(kv...))
	}
)

// IntakeAttributes describes the deployment: which AI model is configured,
// whether WhatsApp delivery is wired and the phone region. Credentials are
// never included.
func IntakeAttributes(cfg config.Config) []attribute.KeyValue {
	model := ""
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		model = cfg.AI.Model
	}
	return []attribute.KeyValue{
		attribute.Bool("intake.ai.enabled", model != ""),
		attribute.String("intake.ai.model", model),
		attribute.Bool("intake.whatsapp.enabled", cfg.WhatsApp.Enabled()),
		attribute.String("intake.phone.region", strings.ToUpper(cfg.Phone.Region)),
	}
}

// SetupOTel configures OpenTelemetry tracing and returns a shutdown function.
// When tracing is disabled the returned function is a no-op and the global
// provider is left alone.
func SetupOTel(ctx context.Context, cfg config.Config, version string) (func(context.Context) error, error) {
	oc := cfg.OTEL
	if !oc.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(oc.Endpoint),
	}
	if oc.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		creds := credentials.NewClientTLSFromCert(nil, "")
		opts = append(opts, otlptracegrpc.WithTLSCredentials(creds))
	}

	client := newOTLPClient(opts...)
	exp, err := newOTLPExporterFn(ctx, client)
	if err != nil {
		return nil, err
	}

	res, err := newServiceResourceFn(ctx, oc.ServiceName, version, IntakeAttributes(cfg)...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(oc.SampleRatio)))),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
