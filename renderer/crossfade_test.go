package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrossfadeFactor(t *testing.T) {
	// Full brightness through the middle of the window.
	assert.Equal(t, float32(1), CrossfadeFactor(5, 10))
	assert.Equal(t, float32(1), CrossfadeFactor(0.5, 10))
	assert.Equal(t, float32(1), CrossfadeFactor(9.5, 10))

	// Fades over the first and last half second.
	assert.InDelta(t, 0.5, CrossfadeFactor(0.25, 10), 1e-6)
	assert.InDelta(t, 0.5, CrossfadeFactor(9.75, 10), 1e-6)
	assert.Equal(t, float32(0), CrossfadeFactor(0, 10))
	assert.Equal(t, float32(0), CrossfadeFactor(10, 10))
}

func TestCrossfadeFactorClamps(t *testing.T) {
	// Past the window the factor stays pinned at zero, never negative.
	assert.Equal(t, float32(0), CrossfadeFactor(11, 10))
	assert.Equal(t, float32(0), CrossfadeFactor(-1, 10))
}

func TestCrossfadeFactorUnboundedDuration(t *testing.T) {
	assert.Equal(t, float32(1), CrossfadeFactor(0, 0))
	assert.Equal(t, float32(1), CrossfadeFactor(100, -1))
}
