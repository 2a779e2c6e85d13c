package utils_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darkerego/particle-proxy/utils"
)

func TestStr(t *testing.T) {
	assert.Equal(t, "ethereum", utils.Str([]byte("ethereum")))
	assert.Equal(t, "", utils.Str(nil))
}

func TestFlattenErrors(t *testing.T) {
	assert.NoError(t, utils.FlattenErrors(nil))
	assert.NoError(t, utils.FlattenErrors([]error{}))

	errA := errors.New("a")
	errB := errors.New("b")

	assert.Equal(t, errA, utils.FlattenErrors([]error{errA}))

	joined := utils.FlattenErrors([]error{errA, errB})
	assert.ErrorIs(t, joined, errA)
	assert.ErrorIs(t, joined, errB)
}
