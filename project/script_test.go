package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScriptMixedEntries(t *testing.T) {
	script, err := ParseScript([]byte(`[
		"clouds",
		{"program": "ocean", "duration": 2.5},
		{"program": "noise"},
		42
	]`))
	require.NoError(t, err)

	require.Len(t, script, 3)
	assert.Equal(t, "clouds", script[0].ProgramName)
	assert.Equal(t, 1.0, script[0].Duration)
	assert.Equal(t, "ocean", script[1].ProgramName)
	assert.Equal(t, 2.5, script[1].Duration)
	assert.Equal(t, 1.0, script[2].Duration)
}

func TestParseScriptEmptyFails(t *testing.T) {
	_, err := ParseScript([]byte(`[]`))
	assert.Error(t, err)

	_, err = ParseScript([]byte(`[42, {"duration": 3}]`))
	assert.Error(t, err)
}

func TestParseScriptBadJSON(t *testing.T) {
	_, err := ParseScript([]byte(`{not json`))
	assert.Error(t, err)
}
