package proxy

import (
	"bytes"

	"github.com/darkerego/particle-proxy/utils"
)

// firstPathSegment extracts the network identifier from a request path; the
// remainder of the path is not part of the routing decision.
func firstPathSegment(path []byte) string {
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if idx := bytes.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	return utils.Str(path)
}
