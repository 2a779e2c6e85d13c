package proxy

import "github.com/darkerego/particle-proxy/config"

type Config struct {
	Name string

	Proxy  *config.Proxy
	Routes *RouteTable
}
