// Package chains holds the static registry of networks reachable through the
// Particle rpc aggregator.
package chains

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Network struct {
	ChainID uint64
	Name    string
}

var ErrUnknownNetwork = errors.New("unknown network")

var networks = []Network{
	{1, "ethereum"},
	{43114, "avalanche"},
	{56, "bsc"},
	{137, "polygon"},
	{10, "optimism"},
	{42161, "arbitrum"},
	{42170, "nova"},
	{8453, "base"},
	{534352, "scroll"},
	{324, "zksync"},
	{1101, "polygonzkevm"},
	{1284, "moonbeam"},
	{1285, "moonriver"},
	{1313161554, "aurora"},
	{1030, "confluxespace"},
	{22776, "mapprotocol"},
	{728126428, "tron"},
	{42220, "celo"},
	{25, "cronos"},
	{250, "fantom"},
	{100, "gnosis"},
	{1666600000, "harmony"},
	{128, "heco"},
	{321, "kcc"},
	{8217, "klaytn"},
	{1088, "metis"},
	{42262, "oasisemerald"},
	{66, "okc"},
	{108, "thundercore"},
}

var byName = func() map[string]Network {
	m := make(map[string]Network, len(networks))
	for _, n := range networks {
		m[n.Name] = n
	}
	return m
}()

// All returns the registry in its canonical order.
func All() []Network {
	res := make([]Network, len(networks))
	copy(res, networks)
	return res
}

func ByName(name string) (Network, bool) {
	n, ok := byName[strings.ToLower(name)]
	return n, ok
}

func ByID(id uint64) (Network, bool) {
	for _, n := range networks {
		if n.ChainID == id {
			return n, true
		}
	}
	return Network{}, false
}

// Resolve maps a list of selectors (network names or decimal chain ids) to
// networks. An empty list, or the single selector "0" or "all", selects the
// whole registry. Unknown selectors fail the resolution instead of being
// skipped so that a typo can't silently shrink the route table.
func Resolve(selectors []string) ([]Network, error) {
	if len(selectors) == 0 {
		return All(), nil
	}
	if len(selectors) == 1 {
		switch strings.ToLower(strings.TrimSpace(selectors[0])) {
		case "0", "all":
			return All(), nil
		}
	}

	res := make([]Network, 0, len(selectors))
	seen := make(map[string]struct{}, len(selectors))
	for _, s := range selectors {
		s = strings.TrimSpace(s)

		var (
			n  Network
			ok bool
		)
		if id, err := strconv.ParseUint(s, 10, 64); err == nil {
			n, ok = ByID(id)
		} else {
			n, ok = ByName(s)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, s)
		}

		if _, dup := seen[n.Name]; dup {
			continue
		}
		seen[n.Name] = struct{}{}
		res = append(res, n)
	}

	return res, nil
}
