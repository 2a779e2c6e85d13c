package types

import (
	"github.com/goccy/go-json"
)

// JrpcCall is the envelope of a JSON-RPC request. Only the fields needed for
// logging and error reporting are decoded; params stay opaque. ID is kept raw
// b/c callers send both string and numeric ids.
type JrpcCall struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      json.RawMessage `json:"id"`
}
