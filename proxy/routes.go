package proxy

import (
	"encoding/base64"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/darkerego/particle-proxy/chains"
	"github.com/darkerego/particle-proxy/config"
)

// Route points one network at its Particle upstream. The upstream uri carries
// the chainId query argument, the auth value is the precomputed basic-auth
// header for the shared credential pair.
type Route struct {
	Network chains.Network

	uri  *fasthttp.URI
	auth string
}

// RouteTable maps network names to routes. It is built once at startup and
// never mutated afterwards, so lookups are safe without locking.
type RouteTable struct {
	routes map[string]*Route
}

var (
	errRouteTableEmpty = errors.New("route table needs at least one network")
)

func NewRouteTable(networks []chains.Network, cfg *config.Particle) (*RouteTable, error) {
	if len(networks) == 0 {
		return nil, errRouteTableEmpty
	}

	auth := "Basic " + base64.StdEncoding.EncodeToString(
		[]byte(cfg.ProjectID+":"+cfg.ProjectServerKey),
	)

	routes := make(map[string]*Route, len(networks))
	for _, n := range networks {
		uri := fasthttp.AcquireURI()
		if err := uri.Parse(nil, []byte(cfg.BaseURL)); err != nil {
			fasthttp.ReleaseURI(uri)
			for _, r := range routes {
				fasthttp.ReleaseURI(r.uri)
			}
			return nil, err
		}
		uri.QueryArgs().Set("chainId", strconv.FormatUint(n.ChainID, 10))

		routes[n.Name] = &Route{
			Network: n,
			uri:     uri,
			auth:    auth,
		}
	}

	return &RouteTable{routes: routes}, nil
}

// Lookup resolves a network name case-insensitively. Unknown names report
// false; there is no fallback route.
func (t *RouteTable) Lookup(network string) (*Route, bool) {
	r, found := t.routes[strings.ToLower(network)]
	return r, found
}

func (t *RouteTable) Len() int {
	return len(t.routes)
}

// Networks returns the routed network names, sorted.
func (t *RouteTable) Networks() []string {
	res := make([]string, 0, len(t.routes))
	for name := range t.routes {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

func (t *RouteTable) release() {
	for _, r := range t.routes {
		fasthttp.ReleaseURI(r.uri)
	}
}
