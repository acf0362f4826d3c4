package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProgram(t *testing.T, root, name, description string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "description.json"), []byte(description), 0o644))
}

const twoPassDescription = `[{
	"renderpass": [
		{
			"type": "image",
			"code": "image.frag",
			"outputs": [],
			"inputs": [{"channel": 0, "type": "buffer", "id": "bufA"}]
		},
		{
			"type": "buffer",
			"code": "bufferA.frag",
			"outputs": [{"id": "bufA"}],
			"inputs": [{"channel": 0, "type": "buffer", "id": "bufA"}]
		},
		{
			"type": "common",
			"code": "common.glsl"
		}
	]
}]`

func TestLoadProgramOrdersImagePassLast(t *testing.T) {
	root := t.TempDir()
	writeProgram(t, root, "demo", twoPassDescription)

	prog, err := LoadProgram(root, "demo")
	require.NoError(t, err)

	require.Len(t, prog.Passes, 2)
	assert.Equal(t, "buffer", prog.Passes[0].Type)
	assert.Equal(t, "image", prog.Passes[1].Type)
	assert.Equal(t, 1, prog.ImagePassIndex)
	assert.Equal(t, "bufA", prog.Passes[0].OutputID())
	assert.Equal(t, filepath.Join(root, "demo", "common.glsl"), prog.CommonSourcePath)
}

func TestLoadProgramRequiresImagePass(t *testing.T) {
	root := t.TempDir()
	writeProgram(t, root, "broken", `[{
		"renderpass": [
			{"type": "buffer", "code": "a.frag", "outputs": [{"id": "bufA"}], "inputs": []}
		]
	}]`)

	_, err := LoadProgram(root, "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no 'image' type pass")
}

func TestLoadProgramRejectsTooManyPasses(t *testing.T) {
	desc := `[{"renderpass": [
		{"type": "image", "code": "i.frag"},
		{"type": "buffer", "code": "a.frag", "outputs": [{"id": "a"}]},
		{"type": "buffer", "code": "b.frag", "outputs": [{"id": "b"}]},
		{"type": "buffer", "code": "c.frag", "outputs": [{"id": "c"}]},
		{"type": "buffer", "code": "d.frag", "outputs": [{"id": "d"}]},
		{"type": "buffer", "code": "e.frag", "outputs": [{"id": "e"}]}
	]}]`
	root := t.TempDir()
	writeProgram(t, root, "big", desc)

	_, err := LoadProgram(root, "big")
	assert.Error(t, err)
}

func TestLoadProgramMissingFile(t *testing.T) {
	_, err := LoadProgram(t.TempDir(), "absent")
	assert.Error(t, err)
}

func TestInputAssetPath(t *testing.T) {
	in := Input{Filepath: "/media/rock.png"}
	assert.Equal(t, filepath.Join("proj", "media", "rock.png"), in.AssetPath("proj"))
}
