package renderer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/goshaderproj/project"
)

// scriptedRenderer builds a renderer with one program per runnable flag and
// a script entry naming each one, without touching the GPU.
func scriptedRenderer(runnable ...bool) (*Renderer, []project.ScriptEntry) {
	r := &Renderer{}
	var entries []project.ScriptEntry
	for i, ok := range runnable {
		name := fmt.Sprintf("prog%d", i)
		r.programs = append(r.programs, &Program{Name: name, Runnable: ok})
		entries = append(entries, project.ScriptEntry{
			ProgramName:  name,
			ProgramIndex: -1,
			Duration:     1,
		})
	}
	return r, entries
}

func TestSetScriptSkipsUnloadedPrograms(t *testing.T) {
	r, entries := scriptedRenderer(true)
	entries = append(entries, project.ScriptEntry{ProgramName: "ghost", ProgramIndex: -1, Duration: 1})

	require.NoError(t, r.SetScript(entries, 1))
	assert.Len(t, r.script, 1)
	assert.Equal(t, 0, r.activeProgram)
}

func TestSetScriptFailsWhenNothingPlayable(t *testing.T) {
	// Nothing named in the script was loaded.
	r := &Renderer{}
	err := r.SetScript([]project.ScriptEntry{
		{ProgramName: "ghost", ProgramIndex: -1, Duration: 1},
	}, 1)
	assert.Error(t, err)

	// Everything loaded but nothing compiled.
	r, entries := scriptedRenderer(false, false)
	assert.Error(t, r.SetScript(entries, 1))
}

func TestSetScriptKeepsBrokenEntriesButStartsRunnable(t *testing.T) {
	r, entries := scriptedRenderer(false, true)

	require.NoError(t, r.SetScript(entries, 1))
	// The broken entry stays in the script so a reload can revive it.
	assert.Len(t, r.script, 2)
	assert.Equal(t, 1, r.scriptIndex)
	assert.Equal(t, 1, r.activeProgram)
}

func TestSetScriptScalesDurations(t *testing.T) {
	r, entries := scriptedRenderer(true)

	require.NoError(t, r.SetScript(entries, 30))
	assert.Equal(t, 30.0, r.currentDuration)
}

func TestRotationSkipsNonRunnablePrograms(t *testing.T) {
	r, entries := scriptedRenderer(true, false, false, true)
	require.NoError(t, r.SetScript(entries, 1))
	assert.Equal(t, 0, r.activeProgram)

	// Two consecutive broken programs are passed over in one step.
	r.NextProgram()
	assert.Equal(t, 3, r.activeProgram)
	assert.True(t, r.programs[r.activeProgram].Runnable)

	r.NextProgram()
	assert.Equal(t, 0, r.activeProgram)

	r.PreviousProgram()
	assert.Equal(t, 3, r.activeProgram)
}

func TestRotationWithNothingRunnableKeepsCurrentEntry(t *testing.T) {
	r, entries := scriptedRenderer(true, false)
	require.NoError(t, r.SetScript(entries, 1))

	// The active program breaking after a reload must not let rotation
	// activate the other broken one.
	r.programs[0].Runnable = false
	r.NextProgram()
	assert.Equal(t, 0, r.activeProgram)
	assert.Equal(t, 0, r.scriptIndex)
}
