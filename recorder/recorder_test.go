package recorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameCount(t *testing.T) {
	opts := Options{Width: 640, Height: 360, FPS: 30, Duration: 10}
	assert.Equal(t, 300, opts.FrameCount())
	assert.Equal(t, 640*360*4, opts.frameSize())
}

func TestEncoderArgs(t *testing.T) {
	opts := Options{Width: 1920, Height: 1080, FPS: 60, Duration: 1}

	in := opts.inputArgs()
	assert.Equal(t, "rawvideo", in["format"])
	assert.Equal(t, "rgba", in["pix_fmt"])
	assert.Equal(t, "1920x1080", in["s"])

	out := opts.outputArgs()
	assert.Equal(t, "libx264", out["c:v"])
	assert.Equal(t, "yuv420p", out["pix_fmt"])

	opts.Codec = "libx265"
	assert.Equal(t, "libx265", opts.outputArgs()["c:v"])
}
