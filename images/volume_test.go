package images

import (
	"encoding/binary"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func volumeBlob(w, h, d, ch uint32) []byte {
	buf := make([]byte, volumeHeaderSize+int(w*h*d*ch))
	copy(buf, "BIN\x00")
	binary.LittleEndian.PutUint32(buf[4:], w)
	binary.LittleEndian.PutUint32(buf[8:], h)
	binary.LittleEndian.PutUint32(buf[12:], d)
	binary.LittleEndian.PutUint32(buf[16:], ch)
	return buf
}

func TestParseVolume(t *testing.T) {
	header, texels, err := ParseVolume(volumeBlob(4, 2, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, VolumeHeader{Width: 4, Height: 2, Depth: 3, Channels: 2}, header)
	assert.Len(t, texels, 4*2*3*2)
	assert.Equal(t, vk.FormatR8g8Unorm, header.Format())
}

func TestParseVolumeRejectsBadMagic(t *testing.T) {
	blob := volumeBlob(2, 2, 2, 1)
	blob[3] = 'X'
	_, _, err := ParseVolume(blob)
	assert.Error(t, err)
}

func TestParseVolumeRejectsTruncated(t *testing.T) {
	_, _, err := ParseVolume([]byte("BIN\x00"))
	assert.Error(t, err)
}

func TestParseVolumeRejectsSizeMismatch(t *testing.T) {
	blob := volumeBlob(2, 2, 2, 4)
	_, _, err := ParseVolume(blob[:len(blob)-1])
	assert.Error(t, err)
}

func TestParseVolumeRejectsBadChannels(t *testing.T) {
	for _, ch := range []uint32{0, 5} {
		_, _, err := ParseVolume(volumeBlob(2, 2, 2, ch))
		assert.Error(t, err, "channels=%d", ch)
	}
}

func TestVolumeFormats(t *testing.T) {
	assert.Equal(t, vk.FormatR8Unorm, VolumeHeader{Channels: 1}.Format())
	assert.Equal(t, vk.FormatR8g8b8Unorm, VolumeHeader{Channels: 3}.Format())
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, VolumeHeader{Channels: 4}.Format())
}
