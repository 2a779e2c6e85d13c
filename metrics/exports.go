package metrics

import (
	otelapi "go.opentelemetry.io/otel/metric"
)

var (
	ProxySuccessCount   otelapi.Int64Counter
	ProxyFailureCount   otelapi.Int64Counter
	UnknownNetworkCount otelapi.Int64Counter

	RequestSize    otelapi.Int64Histogram
	ResponseSize   otelapi.Int64Histogram
	LatencyBackend otelapi.Int64Histogram
	LatencyTotal   otelapi.Int64Histogram

	FrontendConnectionsCount otelapi.Int64ObservableGauge
)
