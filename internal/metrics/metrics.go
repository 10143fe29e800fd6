package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/esacantik/storefront-go/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// AppMetrics holds all application metrics
type AppMetrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Business Metrics
	ProductsViewed     metric.Int64Counter
	CartItemsCount     metric.Int64Gauge
	ActiveCartsCount   metric.Int64Gauge
	CheckoutsCompleted metric.Int64Counter
	RevenueTotal       metric.Float64Counter

	// Assistant Metrics
	ChatMessagesTotal   metric.Int64Counter
	ChatRequestDuration metric.Float64Histogram
	ChatFailuresTotal   metric.Int64Counter

	// Service name for adding to all metrics
	serviceName string
}

// InitMetrics initializes OpenTelemetry metrics with an OTLP HTTP exporter
func InitMetrics(ctx context.Context, cfg *config.Config) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	// Create resource with service information.
	// resource.WithFromEnv reads OTEL_SERVICE_NAME etc.; explicit attributes
	// merged afterwards take precedence.
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}

	explicitRes, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
			attribute.String("deployment.environment", cfg.OTELDeploymentEnvironment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create explicit resource: %w", err)
	}

	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	// Create OTLP HTTP exporter.
	// WithEndpoint expects host:port (no scheme); WithInsecure is for http://
	// endpoints, WithHeaders carries ingestion keys for hosted collectors.
	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}

	if cfg.OTELExporterOTLPHeaders != "" {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(parseHeaders(cfg.OTELExporterOTLPHeaders)))
	}

	if cfg.OTELExporterOTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		fmt.Printf("Metrics exporter: Using insecure HTTP connection\n")
	} else {
		fmt.Printf("Metrics exporter: Using secure HTTPS connection\n")
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	// Create periodic reader (exports every 10 seconds)
	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(10*time.Second),
	)

	fmt.Printf("✓ Metrics will be exported every 10 seconds to: %s/v1/metrics\n", cfg.OTELExporterOTLPEndpoint)
	fmt.Printf("✓ Business metrics configured: products_viewed_total, cart_items_count, active_carts_count, checkouts_completed_total, revenue_total\n")
	fmt.Printf("✓ Assistant metrics configured: chat_messages_total, chat_request_duration, chat_failures_total\n\n")

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	// Set global meter provider
	otel.SetMeterProvider(meterProvider)

	appMetrics, err := NewAppMetrics(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		return nil, nil, err
	}

	return appMetrics, meterProvider, nil
}

// NewAppMetrics creates the instrument set on the given meter. Tests pass a
// meter from a reader-less MeterProvider so nothing is exported.
func NewAppMetrics(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	// SigNoz default histogram buckets in milliseconds, expanded to 60s
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 15000, 20000, 30000, 45000, 60000}

	httpRequestsTotal, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	httpRequestsErrors, err := meter.Int64Counter(
		"http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	productsViewed, err := meter.Int64Counter(
		"products_viewed_total",
		metric.WithDescription("Total number of product views"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create products viewed counter: %w", err)
	}

	cartItemsCount, err := meter.Int64Gauge(
		"cart_items_count",
		metric.WithDescription("Current number of items in session carts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart items gauge: %w", err)
	}

	activeCartsCount, err := meter.Int64Gauge(
		"active_carts_count",
		metric.WithDescription("Number of active carts with items"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active carts gauge: %w", err)
	}

	checkoutsCompleted, err := meter.Int64Counter(
		"checkouts_completed_total",
		metric.WithDescription("Total number of completed simulated checkouts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkouts counter: %w", err)
	}

	revenueTotal, err := meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total revenue from completed checkouts"),
		metric.WithUnit("IDR"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}

	chatMessagesTotal, err := meter.Int64Counter(
		"chat_messages_total",
		metric.WithDescription("Total number of assistant chat requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat messages counter: %w", err)
	}

	chatRequestDuration, err := meter.Float64Histogram(
		"chat_request_duration",
		metric.WithDescription("Assistant request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat duration histogram: %w", err)
	}

	chatFailuresTotal, err := meter.Int64Counter(
		"chat_failures_total",
		metric.WithDescription("Total number of failed assistant requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat failures counter: %w", err)
	}

	return &AppMetrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestsErrors:  httpRequestsErrors,
		HTTPRequestDuration: httpRequestDuration,
		ProductsViewed:      productsViewed,
		CartItemsCount:      cartItemsCount,
		ActiveCartsCount:    activeCartsCount,
		CheckoutsCompleted:  checkoutsCompleted,
		RevenueTotal:        revenueTotal,
		ChatMessagesTotal:   chatMessagesTotal,
		ChatRequestDuration: chatRequestDuration,
		ChatFailuresTotal:   chatFailuresTotal,
		serviceName:         serviceName,
	}, nil
}

// WithServiceName adds service.name to attributes
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// RecordChatRequest records assistant request metrics
func (m *AppMetrics) RecordChatRequest(ctx context.Context, model string, start time.Time, success bool) {
	duration := time.Since(start).Milliseconds()

	status := "success"
	if !success {
		status = "error"
	}

	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.request.model", model),
		attribute.String("status", status),
	}

	m.ChatMessagesTotal.Add(ctx, 1, metric.WithAttributes(m.WithServiceName(attrs)...))
	m.ChatRequestDuration.Record(ctx, float64(duration), metric.WithAttributes(m.WithServiceName(attrs)...))
	if !success {
		m.ChatFailuresTotal.Add(ctx, 1, metric.WithAttributes(m.WithServiceName(attrs)...))
	}
}

// parseHeaders parses header string in format "key1=value1,key2=value2"
// and returns a map of headers
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	pairs := strings.Split(headerStr, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
