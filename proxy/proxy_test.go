package proxy

import (
	"context"
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp/fasthttputil"
	otelapi "go.opentelemetry.io/otel/metric"

	"github.com/darkerego/particle-proxy/chains"
	"github.com/darkerego/particle-proxy/config"
	"github.com/darkerego/particle-proxy/metrics"
)

func TestMain(m *testing.M) {
	// metric instruments are package globals; register them once for all tests
	err := metrics.Setup(context.Background(),
		func(context.Context, otelapi.Observer) error { return nil },
	)
	if err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testProxyConfig(t *testing.T, baseURL string, networks ...chains.Network) *Config {
	routes, err := NewRouteTable(networks, testParticleConfig(baseURL))
	assert.NoError(t, err)

	return &Config{
		Name: "pproxy-test",
		Proxy: &config.Proxy{
			BackendTimeout:              time.Second,
			ClientIdleConnectionTimeout: 30 * time.Second,
			ListenAddress:               "127.0.0.1:0",
			MaxRequestSizeMb:            4,
			MaxResponseSizeMb:           4,
		},
		Routes: routes,
	}
}

func startTestProxy(t *testing.T, cfg *Config) *http.Client {
	p, err := New(cfg)
	assert.NoError(t, err)

	ln := fasthttputil.NewInmemoryListener()
	go func() {
		_ = p.frontend.Serve(ln)
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Stop(ctx)
		_ = ln.Close()
	})

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}
}

func TestProxyRoundTrip(t *testing.T) {
	var (
		gotAuth    string
		gotBody    []byte
		gotChainID string
		gotReqID   string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotAuth = r.Header.Get("Authorization")
		gotChainID = r.URL.Query().Get("chainId")
		gotReqID = r.Header.Get("X-Request-Id")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x10d4f"}`))
	}))
	defer upstream.Close()

	client := startTestProxy(t, testProxyConfig(t, upstream.URL,
		chains.Network{ChainID: 1, Name: "ethereum"},
	))

	body := `{"jsonrpc":"2.0","method":"eth_blockNumber","params":[],"id":1}`
	res, err := client.Post("http://particle-proxy/ethereum", "application/json", strings.NewReader(body))
	assert.NoError(t, err)
	defer res.Body.Close()

	{ // the upstream saw the body byte-for-byte, with credentials attached
		assert.Equal(t, body, string(gotBody))
		assert.Equal(t, "1", gotChainID)
		assert.Equal(t,
			"Basic "+base64.StdEncoding.EncodeToString([]byte("test-project:test-key")),
			gotAuth,
		)
		assert.NotEmpty(t, gotReqID)
	}

	{ // the upstream response came back unchanged
		assert.Equal(t, http.StatusOK, res.StatusCode)
		resBody, err := io.ReadAll(res.Body)
		assert.NoError(t, err)
		assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":"0x10d4f"}`, string(resBody))
	}
}

func TestProxyPathMatching(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	client := startTestProxy(t, testProxyConfig(t, upstream.URL,
		chains.Network{ChainID: 1, Name: "ethereum"},
	))

	{ // network names match case-insensitively
		res, err := client.Post("http://particle-proxy/Ethereum", "application/json", strings.NewReader(`{}`))
		assert.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
	}

	{ // trailing path segments don't change the routing decision
		res, err := client.Post("http://particle-proxy/ethereum/extra/path", "application/json", strings.NewReader(`{}`))
		assert.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
	}

	assert.Equal(t, int64(2), calls.Load())
}

func TestProxyUnknownNetwork(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	client := startTestProxy(t, testProxyConfig(t, upstream.URL,
		chains.Network{ChainID: 1, Name: "ethereum"},
		chains.Network{ChainID: 42161, Name: "arbitrum"},
	))

	res, err := client.Post("http://particle-proxy/solana", "application/json", strings.NewReader(`{}`))
	assert.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	resBody, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(resBody), `unknown network "solana"`)
	assert.Contains(t, string(resBody), "arbitrum, ethereum")

	// no upstream call was attempted
	assert.Equal(t, int64(0), calls.Load())
}

func TestProxyRelaysUpstreamErrorStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer upstream.Close()

	client := startTestProxy(t, testProxyConfig(t, upstream.URL,
		chains.Network{ChainID: 1, Name: "ethereum"},
	))

	res, err := client.Post("http://particle-proxy/ethereum", "application/json", strings.NewReader(`{}`))
	assert.NoError(t, err)
	defer res.Body.Close()

	// no retry, no translation: the upstream's error is the caller's error
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	resBody, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Equal(t, "rate limited", string(resBody))
}

func TestProxyUpstreamTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(3 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := testProxyConfig(t, upstream.URL,
		chains.Network{ChainID: 1, Name: "ethereum"},
	)
	cfg.Proxy.BackendTimeout = 300 * time.Millisecond

	client := startTestProxy(t, cfg)

	tsStart := time.Now()
	res, err := client.Post("http://particle-proxy/ethereum", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","method":"eth_blockNumber","id":7}`))
	assert.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Less(t, time.Since(tsStart), 2*time.Second)

	// json callers get a jrpc error carrying their request id
	resBody, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(resBody), `"jsonrpc":"2.0"`)
	assert.Contains(t, string(resBody), `"id":7`)
}

func TestProxyUpstreamUnreachable(t *testing.T) {
	// a closed port: connection refused on the first attempt
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	upstreamURL := upstream.URL
	upstream.Close()

	client := startTestProxy(t, testProxyConfig(t, upstreamURL,
		chains.Network{ChainID: 1, Name: "ethereum"},
	))

	res, err := client.Post("http://particle-proxy/ethereum", "text/plain", strings.NewReader("ping"))
	assert.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}
