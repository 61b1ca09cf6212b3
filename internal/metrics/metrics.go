// AngelaMos | 2026
// metrics.go

package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/carterperez-dev/paywall-blog/internal/access"
	"github.com/carterperez-dev/paywall-blog/internal/content"
	"github.com/carterperez-dev/paywall-blog/internal/purchase"
)

// Metrics records application instruments through an OpenTelemetry meter
// and exposes them in Prometheus text format.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry

	resolutions  metric.Int64Counter
	reloads      metric.Int64Counter
	contentItems metric.Int64Gauge
	logins       metric.Int64Counter
	webhooks     metric.Int64Counter
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
}

var (
	_ content.Observer         = (*Metrics)(nil)
	_ purchase.WebhookRecorder = (*Metrics)(nil)
)

func New(serviceName string) (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(serviceName)

	m := &Metrics{provider: provider, registry: registry}

	if m.resolutions, err = meter.Int64Counter(
		"content.resolutions",
		metric.WithDescription("Content lookups by effective tier and result"),
	); err != nil {
		return nil, err
	}
	if m.reloads, err = meter.Int64Counter(
		"content.reloads",
		metric.WithDescription("Content library rebuilds by result"),
	); err != nil {
		return nil, err
	}
	if m.contentItems, err = meter.Int64Gauge(
		"content.items",
		metric.WithDescription("Items in the current content store"),
	); err != nil {
		return nil, err
	}
	if m.logins, err = meter.Int64Counter(
		"auth.logins",
		metric.WithDescription("Login attempts by result"),
	); err != nil {
		return nil, err
	}
	if m.webhooks, err = meter.Int64Counter(
		"purchase.webhook.events",
		metric.WithDescription("Payment webhook deliveries by outcome"),
	); err != nil {
		return nil, err
	}
	if m.requests, err = meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("HTTP requests by route and status class"),
	); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

func (m *Metrics) ContentReloaded(ctx context.Context, items int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		m.contentItems.Record(ctx, int64(items))
	}
	m.reloads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) ContentResolved(ctx context.Context, tier access.Tier, status content.LookupStatus) {
	m.resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", tier.String()),
		attribute.String("status", status.String()),
	))
}

func (m *Metrics) RecordLogin(ctx context.Context, result string) {
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) RecordWebhook(ctx context.Context, outcome purchase.Outcome) {
	m.webhooks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
}

// Middleware counts requests per chi route pattern, so content paths
// collapse into their catch-all route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.String("status", fmt.Sprintf("%dxx", status/100)),
		)
		m.requests.Add(r.Context(), 1, attrs)
		m.duration.Record(r.Context(), float64(time.Since(start).Microseconds())/1000, attrs)
	})
}
