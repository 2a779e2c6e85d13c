package proxy

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	otelapi "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/darkerego/particle-proxy/logutils"
	"github.com/darkerego/particle-proxy/metrics"
	"github.com/darkerego/particle-proxy/types"
	"github.com/darkerego/particle-proxy/utils"
)

// Proxy accepts requests on a single listen address and forwards them to the
// Particle upstream matched by the first path segment. One forwarding attempt
// per request; upstream responses (errors included) are relayed verbatim.
type Proxy struct {
	cfg *Config

	backend  *fasthttp.Client
	frontend *fasthttp.Server

	healthcheck *healthcheck
	logger      *zap.Logger
}

func New(cfg *Config) (*Proxy, error) {
	l := zap.L().With(zap.String("proxy_name", cfg.Name))

	p := &Proxy{
		cfg:    cfg,
		logger: l,
	}

	p.frontend = &fasthttp.Server{
		Handler:            p.receive,
		IdleTimeout:        cfg.Proxy.ClientIdleConnectionTimeout,
		Logger:             logutils.FasthttpLogger(l),
		MaxConnsPerIP:      cfg.Proxy.MaxClientConnectionsPerIP,
		MaxRequestBodySize: cfg.Proxy.MaxRequestSizeMb * 1024 * 1024,
		Name:               cfg.Name,
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       cfg.Proxy.BackendTimeout + 5*time.Second,
	}

	if cfg.Proxy.TLSCertificate != "" && cfg.Proxy.TLSKey != "" {
		cert, err := cfg.Proxy.LoadTLSCertificate()
		if err != nil {
			return nil, err
		}

		p.frontend.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	p.backend = &fasthttp.Client{
		MaxConnsPerHost:     cfg.Proxy.MaxBackendConnectionsPerHost,
		MaxConnWaitTimeout:  cfg.Proxy.MaxBackendConnectionWaitTimeout,
		MaxIdleConnDuration: 30 * time.Second,
		MaxResponseBodySize: cfg.Proxy.MaxResponseSizeMb * 1024 * 1024,
		Name:                cfg.Name,
		ReadTimeout:         cfg.Proxy.BackendTimeout,
		WriteTimeout:        5 * time.Second,
	}

	if cfg.Proxy.Healthcheck != nil && cfg.Proxy.Healthcheck.URL != "" {
		h, err := newHealthcheck(
			cfg.Name,
			cfg.Proxy.Healthcheck.URL,
			cfg.Proxy.Healthcheck.Interval,
			cfg.Proxy.Healthcheck.ThresholdHealthy,
			cfg.Proxy.Healthcheck.ThresholdUnhealthy,
		)
		if err != nil {
			return nil, err
		}
		p.healthcheck = h
	}

	return p, nil
}

func (p *Proxy) Run(ctx context.Context, failure chan<- error) {
	if p == nil {
		return
	}

	l := p.logger

	go func() { // run the proxy
		l.Info("Proxy is going up...",
			zap.String("listen_address", p.cfg.Proxy.ListenAddress),
			zap.Strings("networks", p.cfg.Routes.Networks()),
		)
		if p.cfg.Proxy.TLSCertificate != "" && p.cfg.Proxy.TLSKey != "" {
			if err := p.frontend.ListenAndServeTLS(p.cfg.Proxy.ListenAddress, "", ""); err != nil {
				failure <- err
			}
		} else {
			if err := p.frontend.ListenAndServe(p.cfg.Proxy.ListenAddress); err != nil {
				failure <- err
			}
		}
		l.Info("Proxy is down")
	}()

	if p.healthcheck != nil {
		p.healthcheck.run(ctx)
	}
}

func (p *Proxy) Stop(ctx context.Context) error {
	if p == nil {
		return nil
	}

	if p.healthcheck != nil {
		p.healthcheck.stop()
	}

	err := p.frontend.ShutdownWithContext(ctx)

	p.cfg.Routes.release()

	return err
}

func (p *Proxy) Observe(ctx context.Context, o otelapi.Observer) error {
	if p == nil {
		return nil
	}

	o.ObserveInt64(metrics.FrontendConnectionsCount, int64(p.frontend.GetOpenConnectionsCount()), otelapi.WithAttributes(
		attribute.KeyValue{Key: "proxy", Value: attribute.StringValue(p.cfg.Name)},
	))

	return nil
}

func (p *Proxy) receive(ctx *fasthttp.RequestCtx) {
	tsReqReceived := ctx.Time()

	network := firstPathSegment(ctx.Path())
	route, found := p.cfg.Routes.Lookup(network)
	if !found {
		p.rejectUnknownNetwork(ctx, network)
		return
	}

	call := types.JrpcCall{} // best-effort peek for logs; the payload stays opaque
	_ = json.Unmarshal(ctx.Request.Body(), &call)

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(res)

	{ // prepare the outbound request
		ctx.Request.CopyTo(req)
		req.SetTimeout(p.cfg.Proxy.BackendTimeout)
		req.SetURI(route.uri)
		req.Header.Set(fasthttp.HeaderAuthorization, route.auth)
		req.Header.Add("x-forwarded-for", ctx.RemoteIP().String())
		req.Header.Add("x-forwarded-host", utils.Str(ctx.Host()))
		req.Header.Add("x-forwarded-proto", utils.Str(ctx.Request.URI().Scheme()))
		if len(req.Header.Peek("x-request-id")) == 0 {
			req.Header.Set("x-request-id", uuid.NewString())
		}
	}

	log := p.logger.With(
		zap.Time("ts_request_received", tsReqReceived),
		zap.String("network", route.Network.Name),
		zap.Uint64("chain_id", route.Network.ChainID),
		zap.String("jrpc_method", call.Method),
		zap.Uint64("connection_id", ctx.ConnID()),
		zap.Uint64("request_id", ctx.ConnRequestNum()),
		zap.String("remote_addr", ctx.RemoteAddr().String()),
		zap.String("upstream_host", utils.Str(route.uri.Host())),
	)

	tsReqProxyStart := time.Now()
	err := p.backend.Do(req, res)
	tsReqProxyEnd := time.Now()
	success := (err == nil)

	if success {
		res.CopyTo(&ctx.Response)
	} else {
		p.respondUpstreamFailure(ctx, &call, err)
	}

	loggedFields := make([]zap.Field, 0, 8)

	loggedFields = append(loggedFields,
		zap.Int("request_size", len(req.Body())),
		zap.Int("response_size", len(ctx.Response.Body())),
	)

	if err != nil {
		loggedFields = append(loggedFields,
			zap.NamedError("error_upstream", err),
		)
	}

	{ // add log fields
		if p.cfg.Proxy.LogRequests && len(req.Body()) <= p.cfg.Proxy.LogRequestsMaxSize {
			var jsonRequest interface{}
			if err := json.Unmarshal(req.Body(), &jsonRequest); err == nil {
				loggedFields = append(loggedFields,
					zap.Any("json_request", jsonRequest),
				)
			} else {
				loggedFields = append(loggedFields,
					zap.NamedError("error_unmarshal", err),
					zap.String("http_request", utils.Str(req.Body())),
				)
			}
		}

		if success && p.cfg.Proxy.LogResponses && len(res.Body()) <= p.cfg.Proxy.LogResponsesMaxSize {
			var body []byte

			switch utils.Str(res.Header.ContentEncoding()) {
			default:
				body = res.Body()
			case "gzip":
				var errGunzip error
				if body, errGunzip = res.BodyGunzip(); errGunzip != nil {
					loggedFields = append(loggedFields,
						zap.NamedError("error_gunzip", errGunzip),
						zap.String("hex_response", hex.EncodeToString(res.Body())),
					)
				}
			}

			if body != nil {
				var jsonResponse interface{}
				if err := json.Unmarshal(body, &jsonResponse); err == nil {
					loggedFields = append(loggedFields,
						zap.Any("json_response", jsonResponse),
					)
				} else {
					loggedFields = append(loggedFields,
						zap.NamedError("error_unmarshal", err),
						zap.String("http_response", utils.Str(body)),
					)
				}
			}
		}

		loggedFields = append(loggedFields,
			zap.Int("http_status", ctx.Response.StatusCode()),
			zap.Duration("latency_backend", tsReqProxyEnd.Sub(tsReqProxyStart)),
			zap.Duration("latency_total", time.Since(tsReqReceived)),
		)
	}

	{ // emit logs and metrics
		metricAttributes := otelapi.WithAttributes(
			attribute.KeyValue{Key: "proxy", Value: attribute.StringValue(p.cfg.Name)},
			attribute.KeyValue{Key: "network", Value: attribute.StringValue(route.Network.Name)},
			attribute.KeyValue{Key: "jrpc_method", Value: attribute.StringValue(call.Method)},
		)

		metrics.RequestSize.Record(context.TODO(), int64(len(req.Body())), metricAttributes)
		metrics.ResponseSize.Record(context.TODO(), int64(len(ctx.Response.Body())), metricAttributes)
		metrics.LatencyBackend.Record(context.TODO(), tsReqProxyEnd.Sub(tsReqProxyStart).Milliseconds(), metricAttributes)
		metrics.LatencyTotal.Record(context.TODO(), time.Since(tsReqReceived).Milliseconds(), metricAttributes)

		if success {
			metrics.ProxySuccessCount.Add(context.TODO(), 1, metricAttributes)
			log.Info("Proxied the request", loggedFields...)
		} else {
			metrics.ProxyFailureCount.Add(context.TODO(), 1, metricAttributes)
			log.Error("Failed to proxy the request", loggedFields...)
		}
	}

	_ = log.Sync()
}

func (p *Proxy) rejectUnknownNetwork(ctx *fasthttp.RequestCtx, network string) {
	ctx.SetStatusCode(fasthttp.StatusNotFound)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString(fmt.Sprintf("unknown network %q, routed networks: %s",
		network, strings.Join(p.cfg.Routes.Networks(), ", "),
	))

	metrics.UnknownNetworkCount.Add(context.TODO(), 1, otelapi.WithAttributes(
		attribute.KeyValue{Key: "proxy", Value: attribute.StringValue(p.cfg.Name)},
	))

	p.logger.Warn("Rejected request for unknown network",
		zap.String("network", network),
		zap.String("remote_addr", ctx.RemoteAddr().String()),
		zap.String("path", utils.Str(ctx.Path())),
	)
}

// respondUpstreamFailure turns a transport-level upstream error into a 502.
// JSON callers get a jrpc error object so that web3 clients surface the
// message instead of choking on a plain-text body.
func (p *Proxy) respondUpstreamFailure(ctx *fasthttp.RequestCtx, call *types.JrpcCall, err error) {
	ctx.SetStatusCode(fasthttp.StatusBadGateway)

	switch utils.Str(ctx.Request.Header.ContentType()) {
	case "application/json":
		id := []byte("null")
		if len(call.ID) > 0 {
			id = call.ID
		}
		ctx.SetContentType("application/json; charset=utf-8")
		ctx.SetBody([]byte(fmt.Sprintf(
			`{"jsonrpc":"2.0","id":%s,"error":{"code":-32042,"message":%s}}`,
			id, strconv.Quote(err.Error()),
		)))
	default:
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString(err.Error())
	}
}
