package metrics

import (
	"context"

	"go.opentelemetry.io/otel/exporters/prometheus"
	otelapi "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	metricsNamespace = "pproxy"
)

var (
	meter otelapi.Meter
)

func Setup(
	ctx context.Context,
	observe func(ctx context.Context, o otelapi.Observer) error,
) error {
	for _, setup := range []func(context.Context) error{
		setupMeter, // must come first
		setupProxySuccessCount,
		setupProxyFailureCount,
		setupUnknownNetworkCount,
		setupRequestSize,
		setupResponseSize,
		setupLatencyBackend,
		setupLatencyTotal,
		setupFrontendConnectionsCount,
	} {
		if err := setup(ctx); err != nil {
			return err
		}
	}

	_, err := meter.RegisterCallback(observe,
		FrontendConnectionsCount,
	)
	if err != nil {
		return err
	}

	return nil
}

func setupMeter(ctx context.Context) error {
	res, err := resource.New(ctx)
	if err != nil {
		return err
	}

	exporter, err := prometheus.New(
		prometheus.WithNamespace(metricsNamespace),
		prometheus.WithoutScopeInfo(),
	)
	if err != nil {
		return err
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)

	meter = provider.Meter(metricsNamespace)

	return nil
}

func setupProxySuccessCount(ctx context.Context) error {
	m, err := meter.Int64Counter("proxy_success_count",
		otelapi.WithDescription("count of successfully proxied requests"),
	)
	if err != nil {
		return err
	}
	ProxySuccessCount = m
	return nil
}

func setupProxyFailureCount(ctx context.Context) error {
	m, err := meter.Int64Counter("proxy_failure_count",
		otelapi.WithDescription("count of failures to proxy the request"),
	)
	if err != nil {
		return err
	}
	ProxyFailureCount = m
	return nil
}

func setupUnknownNetworkCount(ctx context.Context) error {
	m, err := meter.Int64Counter("unknown_network_count",
		otelapi.WithDescription("count of requests rejected due to an unknown network path"),
	)
	if err != nil {
		return err
	}
	UnknownNetworkCount = m
	return nil
}

func setupRequestSize(ctx context.Context) error {
	m, err := meter.Int64Histogram("request_size_bytes",
		otelapi.WithDescription("size of proxied request bodies"),
	)
	if err != nil {
		return err
	}
	RequestSize = m
	return nil
}

func setupResponseSize(ctx context.Context) error {
	m, err := meter.Int64Histogram("response_size_bytes",
		otelapi.WithDescription("size of proxied response bodies"),
	)
	if err != nil {
		return err
	}
	ResponseSize = m
	return nil
}

func setupLatencyBackend(ctx context.Context) error {
	m, err := meter.Int64Histogram("latency_backend_milliseconds",
		otelapi.WithDescription("latency of the upstream call"),
	)
	if err != nil {
		return err
	}
	LatencyBackend = m
	return nil
}

func setupLatencyTotal(ctx context.Context) error {
	m, err := meter.Int64Histogram("latency_total_milliseconds",
		otelapi.WithDescription("total latency of handling the request"),
	)
	if err != nil {
		return err
	}
	LatencyTotal = m
	return nil
}

func setupFrontendConnectionsCount(ctx context.Context) error {
	m, err := meter.Int64ObservableGauge("frontend_connections_count",
		otelapi.WithDescription("count of open frontend connections"),
	)
	if err != nil {
		return err
	}
	FrontendConnectionsCount = m
	return nil
}
