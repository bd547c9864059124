package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeedHorizonCoversRequestedDays(t *testing.T) {
	assert.Equal(t, 30, seedHorizon(7, 30), "short runs still seed the configured window")
	assert.Equal(t, 30, seedHorizon(30, 30))
	assert.Equal(t, 45, seedHorizon(45, 30), "long runs seed every day they will read")
}
