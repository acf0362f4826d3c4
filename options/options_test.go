package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	o, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, 1024, o.Width)
	assert.Equal(t, 768, o.Height)
	assert.Equal(t, 60, o.Rate)
	assert.Equal(t, ".", o.ProjectPath)
	assert.Equal(t, "script.json", o.Script)
	assert.Equal(t, 1.0, o.Interval)
	assert.False(t, o.Record)
}

func TestParseShortAndLongForms(t *testing.T) {
	o, err := Parse([]string{"-W", "640", "-H", "480", "-s", "plasma", "-i", "30"})
	require.NoError(t, err)
	assert.Equal(t, 640, o.Width)
	assert.Equal(t, 480, o.Height)
	assert.Equal(t, "plasma", o.Shader)
	assert.Equal(t, 30.0, o.Interval)

	o, err = Parse([]string{"--width", "1920", "--fullscreen", "--monitor", "1"})
	require.NoError(t, err)
	assert.Equal(t, 1920, o.Width)
	assert.True(t, o.Fullscreen)
	assert.Equal(t, 1, o.Monitor)
}

func TestParseRejectsBadValues(t *testing.T) {
	_, err := Parse([]string{"-W", "0"})
	assert.Error(t, err)

	_, err = Parse([]string{"--no-such-flag"})
	assert.Error(t, err)
}
