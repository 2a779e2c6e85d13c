package chains_test

import (
	"testing"

	"github.com/darkerego/particle-proxy/chains"

	"github.com/stretchr/testify/assert"
)

func TestByName(t *testing.T) {
	n, ok := chains.ByName("ethereum")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), n.ChainID)

	n, ok = chains.ByName("Arbitrum")
	assert.True(t, ok)
	assert.Equal(t, uint64(42161), n.ChainID)

	_, ok = chains.ByName("solana")
	assert.False(t, ok)
}

func TestByID(t *testing.T) {
	n, ok := chains.ByID(8453)
	assert.True(t, ok)
	assert.Equal(t, "base", n.Name)

	_, ok = chains.ByID(31337)
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	{ // empty selector means everything
		all, err := chains.Resolve(nil)
		assert.NoError(t, err)
		assert.Equal(t, chains.All(), all)
	}

	{ // "0" kept for compatibility with the old per-port proxies
		all, err := chains.Resolve([]string{"0"})
		assert.NoError(t, err)
		assert.Equal(t, chains.All(), all)
	}

	{ // mixed ids and names, duplicates collapsed
		res, err := chains.Resolve([]string{"1", "arbitrum", "Ethereum"})
		assert.NoError(t, err)
		assert.Equal(t, []chains.Network{
			{ChainID: 1, Name: "ethereum"},
			{ChainID: 42161, Name: "arbitrum"},
		}, res)
	}

	{ // unknown selectors fail the whole resolution
		_, err := chains.Resolve([]string{"ethereum", "dogecoin"})
		assert.ErrorIs(t, err, chains.ErrUnknownNetwork)
	}
}
