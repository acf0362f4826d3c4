package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCubemapFacePaths(t *testing.T) {
	faces := CubemapFacePaths("media/sky.png")
	assert.Equal(t, [6]string{
		"media/sky.png",
		"media/sky_1.png",
		"media/sky_2.png",
		"media/sky_3.png",
		"media/sky_4.png",
		"media/sky_5.png",
	}, faces)

	// Extension-less paths still get distinct face names.
	faces = CubemapFacePaths("media/sky")
	assert.Equal(t, "media/sky_5", faces[5])
}
